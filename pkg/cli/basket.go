package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchmarny/pulse/pkg/audit"
	"github.com/mchmarny/pulse/pkg/basket"
	urfave "github.com/urfave/cli/v3"
)

// basketChange is the result of a basket mutation.
type basketChange struct {
	Repo    string        `json:"repo,omitempty" yaml:"repo,omitempty"`
	Changed bool          `json:"changed" yaml:"changed"`
	Reason  string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Items   []basket.Item `json:"items" yaml:"items"`
}

func newBasketCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "basket",
		Usage:           "Manage the comparison basket (up to 3 repositories)",
		HideHelpCommand: true,
		Commands: []*urfave.Command{
			{
				Name:      "add",
				Usage:     "Add a repository to the basket",
				ArgsUsage: "OWNER/REPO",
				Action:    cmdBasketAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a repository from the basket",
				ArgsUsage: "OWNER/REPO",
				Action:    cmdBasketRemove,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List repositories in the basket",
				Action:  cmdBasketList,
			},
			{
				Name:   "clear",
				Usage:  "Remove all repositories from the basket",
				Action: cmdBasketClear,
			},
			{
				Name:   "compare",
				Usage:  "Compare the repositories in the basket",
				Flags:  []urfave.Flag{newNoSaveFlag()},
				Action: cmdBasketCompare,
			},
		},
	}
}

func openBasket(ctx context.Context, cfg *appConfig) (*basket.Basket, error) {
	b, err := basket.New(ctx, cfg.Store.Basket())
	if err != nil {
		return nil, fmt.Errorf("opening basket: %w", err)
	}
	return b, nil
}

func cmdBasketAdd(ctx context.Context, cmd *urfave.Command) error {
	if cmd.NArg() != 1 {
		return errors.New("expected exactly one OWNER/REPO argument")
	}
	cfg := getConfig(cmd)

	ref, err := audit.ParseRef(cmd.Args().First())
	if err != nil {
		return err
	}

	b, err := openBasket(ctx, cfg)
	if err != nil {
		return err
	}

	p, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	repo, err := p.GetRepo(ctx, ref.Owner, ref.Name)
	if err != nil {
		return fmt.Errorf("could not find %s: %w", ref, err)
	}

	item := basket.Item{
		Owner:    repo.Owner,
		Name:     repo.Name,
		FullName: repo.FullName,
		Stars:    repo.Stars,
	}
	added, err := b.Add(ctx, item)
	if err != nil {
		return err
	}

	res := &basketChange{Repo: repo.FullName, Changed: added, Items: b.List()}
	if !added {
		res.Reason = addRejectReason(b)
		slog.Warn("repository not added to basket", "repo", repo.FullName, "reason", res.Reason)
	}
	return encode(writer(cmd), cfg.Format, res)
}

func addRejectReason(b *basket.Basket) string {
	if b.Full() {
		return fmt.Sprintf("basket is full (max %d)", basket.MaxItems)
	}
	return "already in basket"
}

func cmdBasketRemove(ctx context.Context, cmd *urfave.Command) error {
	if cmd.NArg() != 1 {
		return errors.New("expected exactly one OWNER/REPO argument")
	}
	cfg := getConfig(cmd)

	b, err := openBasket(ctx, cfg)
	if err != nil {
		return err
	}

	name := cmd.Args().First()
	if ref, err := audit.ParseRef(name); err == nil {
		name = ref.String()
	}

	removed, err := b.Remove(ctx, name)
	if err != nil {
		return err
	}

	res := &basketChange{Repo: name, Changed: removed, Items: b.List()}
	if !removed {
		res.Reason = "not in basket"
	}
	return encode(writer(cmd), cfg.Format, res)
}

func cmdBasketList(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	b, err := openBasket(ctx, cfg)
	if err != nil {
		return err
	}
	return encode(writer(cmd), cfg.Format, b.List())
}

func cmdBasketClear(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	b, err := openBasket(ctx, cfg)
	if err != nil {
		return err
	}
	if err := b.Clear(ctx); err != nil {
		return err
	}
	return encode(writer(cmd), cfg.Format, &basketChange{Changed: true, Items: b.List()})
}

func cmdBasketCompare(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	b, err := openBasket(ctx, cfg)
	if err != nil {
		return err
	}

	refs := b.Refs()
	if len(refs) < audit.MinCompare {
		return fmt.Errorf("basket holds %d repositories, add at least %d to compare", len(refs), audit.MinCompare)
	}
	return compareRefs(ctx, cmd, refs)
}
