package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/go-github/v83/github"
	"github.com/mchmarny/pulse/pkg/vitality"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultCommitWindowDays = 30
	DefaultIssueSampleSize  = 30
	DefaultSearchLimit      = 10

	commitPageSize = 100
	maxPageSize    = 100
	hoursPerDay    = 24
	issueStateDone = "closed"
)

// ProviderOptions configures a Provider. Zero values select the defaults.
type ProviderOptions struct {
	// CommitWindowDays is how far back commits are collected.
	CommitWindowDays int
	// IssueSampleSize is the number of recently closed issues averaged.
	IssueSampleSize int
	// RequestsPerSecond paces API calls; zero or less disables pacing.
	RequestsPerSecond float64
	// BaseURL overrides the GitHub API endpoint.
	BaseURL string
	// Clock returns the reference time for the commit window.
	Clock func() time.Time
}

// Provider collects repository metrics from the GitHub API.
type Provider struct {
	client           *github.Client
	limiter          *rate.Limiter
	commitWindowDays int
	issueSampleSize  int
	clock            func() time.Time
}

// NewProvider creates a provider using the given HTTP client, which is
// expected to carry authentication (see net.GetOAuthClient).
func NewProvider(client *http.Client, opts ProviderOptions) (*Provider, error) {
	gh := github.NewClient(client)

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url %s: %w", opts.BaseURL, err)
		}
		gh.BaseURL = u
	}

	p := &Provider{
		client:           gh,
		limiter:          rate.NewLimiter(rate.Inf, 1),
		commitWindowDays: opts.CommitWindowDays,
		issueSampleSize:  min(opts.IssueSampleSize, maxPageSize),
		clock:            opts.Clock,
	}

	if opts.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	if p.commitWindowDays <= 0 {
		p.commitWindowDays = DefaultCommitWindowDays
	}
	if p.issueSampleSize <= 0 {
		p.issueSampleSize = DefaultIssueSampleSize
	}
	if p.clock == nil {
		p.clock = time.Now
	}

	return p, nil
}

// GetMetrics fetches repository details, recent commits and recently closed
// issues concurrently and returns them as scoring input. Commits are ordered
// most-recent-first.
func (p *Provider) GetMetrics(ctx context.Context, owner, repo string) (*vitality.Metrics, error) {
	if owner == "" || repo == "" {
		return nil, errors.New("owner and repo are required")
	}

	since := p.clock().UTC().AddDate(0, 0, -p.commitWindowDays)

	var (
		details *github.Repository
		commits []vitality.Commit
		avg     float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		details, err = p.getRepository(gctx, owner, repo)
		return err
	})
	g.Go(func() error {
		var err error
		commits, err = p.getCommits(gctx, owner, repo, since)
		return err
	})
	g.Go(func() error {
		var err error
		avg, err = p.getAvgResolutionDays(gctx, owner, repo)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &vitality.Metrics{
		Repo:              mapIdentity(details),
		Commits:           commits,
		AvgResolutionDays: avg,
		OpenIssues:        details.GetOpenIssuesCount(),
		IsArchived:        details.GetArchived(),
	}

	slog.Debug("collected metrics",
		"repo", m.Repo.FullName,
		"commits", len(m.Commits),
		"avg_resolution_days", m.AvgResolutionDays,
		"open_issues", m.OpenIssues,
		"archived", m.IsArchived,
	)

	return m, nil
}

// GetRepo returns the summary of a single repository.
func (p *Provider) GetRepo(ctx context.Context, owner, repo string) (*Repo, error) {
	if owner == "" || repo == "" {
		return nil, errors.New("owner and repo are required")
	}
	r, err := p.getRepository(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	return mapRepo(r), nil
}

// SearchRepositories returns repositories matching query ordered by stars.
// An empty query returns an empty list.
func (p *Provider) SearchRepositories(ctx context.Context, query string, limit int) ([]*Repo, error) {
	list := make([]*Repo, 0)
	query = strings.TrimSpace(query)
	if query == "" {
		return list, nil
	}

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, maxPageSize)

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	opts := &github.SearchOptions{
		Sort:  "stars",
		Order: "desc",
		ListOptions: github.ListOptions{
			PerPage: limit,
		},
	}
	res, resp, err := p.client.Search.Repositories(ctx, query, opts)
	if err != nil {
		return nil, wrapError(err, fmt.Sprintf("failed to search repositories for: %s", query))
	}
	if err := checkRateLimit(ctx, resp); err != nil {
		return nil, err
	}

	slog.Debug("searched repositories",
		"query", query,
		"matched", res.GetTotal(),
		"returned", len(res.Repositories),
		"rate", rateInfo(resp.Rate),
	)

	for _, r := range res.Repositories {
		if len(list) == limit {
			break
		}
		list = append(list, mapRepo(r))
	}

	return list, nil
}

func (p *Provider) getRepository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	r, resp, err := p.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, wrapError(err, fmt.Sprintf("failed to get repository %s/%s", owner, repo))
	}
	if err := checkRateLimit(ctx, resp); err != nil {
		return nil, err
	}
	return r, nil
}

// getCommits returns a single page of commits since the given time.
func (p *Provider) getCommits(ctx context.Context, owner, repo string, since time.Time) ([]vitality.Commit, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	opts := &github.CommitsListOptions{
		Since: since,
		ListOptions: github.ListOptions{
			PerPage: commitPageSize,
		},
	}
	items, resp, err := p.client.Repositories.ListCommits(ctx, owner, repo, opts)
	if err != nil {
		// empty repositories have no history to list
		if statusCode(err) == http.StatusConflict {
			return make([]vitality.Commit, 0), nil
		}
		return nil, wrapError(err, fmt.Sprintf("failed to list commits for %s/%s", owner, repo))
	}
	if err := checkRateLimit(ctx, resp); err != nil {
		return nil, err
	}

	list := make([]vitality.Commit, 0, len(items))
	for _, c := range items {
		list = append(list, mapCommit(c))
	}
	sortCommits(list)

	return list, nil
}

func (p *Provider) getAvgResolutionDays(ctx context.Context, owner, repo string) (float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	opts := &github.IssueListByRepoOptions{
		State: issueStateDone,
		ListOptions: github.ListOptions{
			PerPage: p.issueSampleSize,
		},
	}
	items, resp, err := p.client.Issues.ListByRepo(ctx, owner, repo, opts)
	if err != nil {
		return 0, wrapError(err, fmt.Sprintf("failed to list closed issues for %s/%s", owner, repo))
	}
	if err := checkRateLimit(ctx, resp); err != nil {
		return 0, err
	}

	return averageResolutionDays(items), nil
}

func mapCommit(c *github.RepositoryCommit) vitality.Commit {
	return vitality.Commit{
		Author: c.GetAuthor().GetLogin(),
		Date:   c.GetCommit().GetAuthor().GetDate().Time,
	}
}

// sortCommits orders commits most-recent-first; undated commits go last.
func sortCommits(list []vitality.Commit) {
	slices.SortStableFunc(list, func(a, b vitality.Commit) int {
		return b.Date.Compare(a.Date)
	})
}

// averageResolutionDays returns the mean time from open to close in days
// over the issues, ignoring pull requests. Zero means no sample.
func averageResolutionDays(items []*github.Issue) float64 {
	var total float64
	var n int
	for _, i := range items {
		if i == nil || i.IsPullRequest() {
			continue
		}
		created, closed := i.GetCreatedAt().Time, i.GetClosedAt().Time
		if created.IsZero() || closed.IsZero() {
			continue
		}
		total += closed.Sub(created).Hours() / hoursPerDay
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
