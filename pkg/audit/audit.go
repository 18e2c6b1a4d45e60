// Package audit runs the metrics provider and the scoring model for single
// repositories and side by side comparisons.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mchmarny/pulse/pkg/vitality"
	"golang.org/x/sync/errgroup"
)

const (
	MinCompare = 2
	MaxCompare = 3
)

var ErrComparisonSize = fmt.Errorf("comparison requires %d to %d repositories", MinCompare, MaxCompare)

// MetricsProvider returns scoring input for a repository.
type MetricsProvider interface {
	GetMetrics(ctx context.Context, owner, repo string) (*vitality.Metrics, error)
}

// Recorder stores completed assessments.
type Recorder interface {
	SaveAssessment(ctx context.Context, a vitality.Assessment, at time.Time) (string, error)
}

// Result is the outcome of assessing one repository. In a comparison a
// failed item has Error set and no Metrics or Assessment.
type Result struct {
	Ref         Ref                  `json:"ref" yaml:"ref"`
	EvaluatedAt time.Time            `json:"evaluated_at" yaml:"evaluatedAt"`
	Metrics     *vitality.Metrics    `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Assessment  *vitality.Assessment `json:"assessment,omitempty" yaml:"assessment,omitempty"`
	Error       string               `json:"error,omitempty" yaml:"error,omitempty"`
}

// Auditor assesses repositories.
type Auditor struct {
	provider MetricsProvider
	recorder Recorder
	clock    func() time.Time
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithRecorder records every successful assessment.
func WithRecorder(r Recorder) Option {
	return func(a *Auditor) {
		a.recorder = r
	}
}

// WithClock sets the reference time source.
func WithClock(clock func() time.Time) Option {
	return func(a *Auditor) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// New creates an Auditor.
func New(provider MetricsProvider, opts ...Option) (*Auditor, error) {
	if provider == nil {
		return nil, errors.New("metrics provider required")
	}
	a := &Auditor{
		provider: provider,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Assess fetches metrics for the referenced repository and scores them.
func (a *Auditor) Assess(ctx context.Context, ref string) (*Result, error) {
	r, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	return a.assess(ctx, r)
}

func (a *Auditor) assess(ctx context.Context, r Ref) (*Result, error) {
	m, err := a.provider.GetMetrics(ctx, r.Owner, r.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics for %s: %w", r, err)
	}

	now := a.clock()
	v := vitality.Evaluate(*m, now)

	slog.Debug("assessed repository",
		"repo", r.String(),
		"score", v.Score,
		"severity", v.Severity,
		"confidence", v.Confidence,
		"flags", len(v.Flags),
	)

	if a.recorder != nil {
		if _, err := a.recorder.SaveAssessment(ctx, v, now); err != nil {
			slog.Error("failed to record assessment", "repo", r.String(), "error", err)
		}
	}

	return &Result{
		Ref:         r,
		EvaluatedAt: now,
		Metrics:     m,
		Assessment:  &v,
	}, nil
}

// Compare assesses 2 to 3 repositories concurrently. Results are in input
// order. A repository that cannot be assessed yields a Result with Error set
// rather than failing the comparison.
func (a *Auditor) Compare(ctx context.Context, refs []string) ([]*Result, error) {
	if len(refs) < MinCompare || len(refs) > MaxCompare {
		return nil, fmt.Errorf("%w: got %d", ErrComparisonSize, len(refs))
	}

	parsed := make([]Ref, len(refs))
	for i, s := range refs {
		r, err := ParseRef(s)
		if err != nil {
			return nil, err
		}
		parsed[i] = r
	}

	// Items never fail the group; their errors are kept in Result.Error.
	results := make([]*Result, len(parsed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxCompare)
	for i, r := range parsed {
		g.Go(func() error {
			res, err := a.assess(gctx, r)
			if err != nil {
				slog.Debug("comparison item failed", "repo", r.String(), "error", err)
				res = &Result{
					Ref:         r,
					EvaluatedAt: a.clock(),
					Error:       fmt.Sprintf("could not assess: %v", err),
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
