package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mchmarny/pulse/pkg/audit"
	"github.com/mchmarny/pulse/pkg/data"
	"github.com/mchmarny/pulse/pkg/net"
)

func newProvider(ctx context.Context, cfg *appConfig) (*data.Provider, error) {
	token := getGitHubToken(cfg.Dir)
	if token == "" {
		slog.Warn("no github token, requests are subject to the unauthenticated rate limit; run 'pulse auth'")
	}

	gh := cfg.Config.GitHub
	p, err := data.NewProvider(net.GetOAuthClient(ctx, token), data.ProviderOptions{
		CommitWindowDays:  gh.CommitWindowDays,
		IssueSampleSize:   gh.IssueSampleSize,
		RequestsPerSecond: gh.RequestsPerSecond,
		BaseURL:           gh.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating metrics provider: %w", err)
	}
	return p, nil
}

// newAuditor returns an auditor and the provider behind it. Assessments are
// recorded in the store when record is set.
func newAuditor(ctx context.Context, cfg *appConfig, record bool) (*audit.Auditor, *data.Provider, error) {
	p, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := make([]audit.Option, 0, 1)
	if record && cfg.Store != nil {
		opts = append(opts, audit.WithRecorder(cfg.Store))
	}

	a, err := audit.New(p, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating auditor: %w", err)
	}
	return a, p, nil
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
