package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/pulse/pkg/audit"
	"github.com/mchmarny/pulse/pkg/data"
	urfave "github.com/urfave/cli/v3"
)

func newHistoryCmd() *urfave.Command {
	return &urfave.Command{
		Name:      "history",
		Usage:     "List recorded assessments, newest first",
		ArgsUsage: "[OWNER/REPO]",
		Flags:     []urfave.Flag{newLimitFlag(data.DefaultHistoryLimit)},
		Action:    cmdHistory,
	}
}

func cmdHistory(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	var name string
	if cmd.NArg() > 0 {
		ref, err := audit.ParseRef(cmd.Args().First())
		if err != nil {
			return err
		}
		name = ref.String()
	}

	list, err := cfg.Store.GetAssessments(ctx, name, cmd.Int(limitFlagName))
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	return encode(writer(cmd), cfg.Format, list)
}
