package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/pulse/pkg/audit"
	"github.com/mchmarny/pulse/pkg/data"
	"github.com/mchmarny/pulse/pkg/report"
	urfave "github.com/urfave/cli/v3"
)

const (
	noSaveFlagName = "no-save"
	limitFlagName  = "limit"
)

func newNoSaveFlag() *urfave.BoolFlag {
	return &urfave.BoolFlag{
		Name:  noSaveFlagName,
		Usage: "Do not record the assessment in history",
	}
}

func newLimitFlag(def int) *urfave.IntFlag {
	return &urfave.IntFlag{
		Name:  limitFlagName,
		Usage: "Maximum number of results",
		Value: def,
	}
}

func newAssessCmd() *urfave.Command {
	return &urfave.Command{
		Name:      "assess",
		Usage:     "Score the vitality of a single repository",
		ArgsUsage: "OWNER/REPO",
		Flags:     []urfave.Flag{newNoSaveFlag()},
		Action:    cmdAssess,
	}
}

func newCompareCmd() *urfave.Command {
	return &urfave.Command{
		Name:      "compare",
		Usage:     "Score 2 or 3 repositories side by side",
		ArgsUsage: "OWNER/REPO OWNER/REPO [OWNER/REPO]",
		Flags:     []urfave.Flag{newNoSaveFlag()},
		Action:    cmdCompare,
	}
}

func newSearchCmd() *urfave.Command {
	return &urfave.Command{
		Name:      "search",
		Usage:     "Search GitHub repositories by stars",
		ArgsUsage: "QUERY",
		Flags:     []urfave.Flag{newLimitFlag(data.DefaultSearchLimit)},
		Action:    cmdSearch,
	}
}

func cmdAssess(ctx context.Context, cmd *urfave.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("expected exactly one OWNER/REPO argument, got %d", cmd.NArg())
	}
	cfg := getConfig(cmd)

	a, _, err := newAuditor(ctx, cfg, !cmd.Bool(noSaveFlagName))
	if err != nil {
		return err
	}

	res, err := a.Assess(ctx, cmd.Args().First())
	if err != nil {
		return fmt.Errorf("could not assess: %w", err)
	}

	reports := report.FromResults([]*audit.Result{res})
	return encodeReports(writer(cmd), cfg.Format, reports[0], reports)
}

func cmdCompare(ctx context.Context, cmd *urfave.Command) error {
	return compareRefs(ctx, cmd, cmd.Args().Slice())
}

func compareRefs(ctx context.Context, cmd *urfave.Command, refs []string) error {
	cfg := getConfig(cmd)

	a, _, err := newAuditor(ctx, cfg, !cmd.Bool(noSaveFlagName))
	if err != nil {
		return err
	}

	results, err := a.Compare(ctx, refs)
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Error != "" {
			slog.Warn("comparison item failed", "repo", r.Ref.String(), "error", r.Error)
		}
	}

	reports := report.FromResults(results)
	return encodeReports(writer(cmd), cfg.Format, reports, reports)
}

func cmdSearch(ctx context.Context, cmd *urfave.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("search query required")
	}
	cfg := getConfig(cmd)

	p, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	list, err := p.SearchRepositories(ctx, joinArgs(cmd.Args().Slice()), cmd.Int(limitFlagName))
	if err != nil {
		return fmt.Errorf("searching repositories: %w", err)
	}

	return encode(writer(cmd), cfg.Format, list)
}
