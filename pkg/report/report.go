// Package report renders assessments for sharing: markdown summaries,
// comparison tables and Prometheus text exposition.
package report

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/mchmarny/pulse/pkg/audit"
	"github.com/mchmarny/pulse/pkg/vitality"
	"github.com/mchmarny/reputer/pkg/score"
)

// Status of a single indicator.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusWarning Status = "warning"
	StatusCaution Status = "caution"
)

const (
	velocityHealthyCommits = 20
	responseHealthyDays    = 7.0
	backlogHealthyIssues   = 100

	hoursPerDay = 24
)

// Indicator is a single supporting metric with its own status.
type Indicator struct {
	Title       string `json:"title" yaml:"title"`
	Value       string `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
	Status      Status `json:"status" yaml:"status"`
}

// Maintainer is the most active commit author in the sample.
type Maintainer struct {
	Author     string    `json:"author" yaml:"author"`
	Commits    int       `json:"commits" yaml:"commits"`
	Share      int       `json:"share" yaml:"share"`
	LastCommit time.Time `json:"last_commit" yaml:"lastCommit"`
	// Reputation in [0, 1] from local commit signals only.
	Reputation float64 `json:"reputation" yaml:"reputation"`
}

// Report is a shareable view of one assessment. A report for a repository
// that could not be assessed carries only Repo and Error.
type Report struct {
	Repo           vitality.Identity    `json:"repo" yaml:"repo"`
	GeneratedAt    time.Time            `json:"generated_at" yaml:"generatedAt"`
	Assessment     *vitality.Assessment `json:"assessment,omitempty" yaml:"assessment,omitempty"`
	Band           vitality.Severity    `json:"band,omitempty" yaml:"band,omitempty"`
	Indicators     []Indicator          `json:"indicators,omitempty" yaml:"indicators,omitempty"`
	Contributors   int                  `json:"contributors" yaml:"contributors"`
	LeadMaintainer *Maintainer          `json:"lead_maintainer,omitempty" yaml:"leadMaintainer,omitempty"`
	Error          string               `json:"error,omitempty" yaml:"error,omitempty"`
}

// New builds a report from the scoring input and its assessment.
func New(m vitality.Metrics, a vitality.Assessment, now time.Time) *Report {
	contributors := vitality.Contributors(m.Commits)

	r := &Report{
		Repo:         m.Repo,
		GeneratedAt:  now.UTC(),
		Assessment:   &a,
		Band:         vitality.Band(a.Score),
		Indicators:   indicators(m),
		Contributors: len(contributors),
	}

	if len(contributors) > 0 {
		r.LeadMaintainer = leadMaintainer(contributors, len(m.Commits), now)
	}

	return r
}

// Failed returns a report placeholder for a repository that could not be
// assessed.
func Failed(id vitality.Identity, msg string, now time.Time) *Report {
	return &Report{
		Repo:        id,
		GeneratedAt: now.UTC(),
		Error:       msg,
	}
}

// FromResults converts audit results to reports, preserving order.
func FromResults(results []*audit.Result) []*Report {
	list := make([]*Report, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Metrics == nil || res.Assessment == nil {
			id := vitality.Identity{
				Owner:    res.Ref.Owner,
				Name:     res.Ref.Name,
				FullName: res.Ref.String(),
			}
			list = append(list, Failed(id, res.Error, res.EvaluatedAt))
			continue
		}
		list = append(list, New(*res.Metrics, *res.Assessment, res.EvaluatedAt))
	}
	return list
}

// OK reports whether the report holds an assessment.
func (r *Report) OK() bool {
	return r != nil && r.Assessment != nil && r.Error == ""
}

func indicators(m vitality.Metrics) []Indicator {
	velocity := StatusWarning
	if len(m.Commits) > velocityHealthyCommits {
		velocity = StatusHealthy
	}

	response := StatusWarning
	if m.AvgResolutionDays < responseHealthyDays {
		response = StatusHealthy
	}

	backlog := StatusCaution
	if m.OpenIssues < backlogHealthyIssues {
		backlog = StatusHealthy
	}

	return []Indicator{
		{
			Title:       "Maintenance Velocity",
			Value:       fmt.Sprintf("%d Commits", len(m.Commits)),
			Description: "Frequency of changes in the collection window.",
			Status:      velocity,
		},
		{
			Title:       "Issue Response",
			Value:       fmt.Sprintf("~%.1f Days", m.AvgResolutionDays),
			Description: "Average time to close recent issues.",
			Status:      response,
		},
		{
			Title:       "Sustainable Backlog",
			Value:       fmt.Sprintf("%s Issues", formatCount(m.OpenIssues)),
			Description: "Total open issues.",
			Status:      backlog,
		},
	}
}

func leadMaintainer(contributors []vitality.Contributor, total int, now time.Time) *Maintainer {
	top := contributors[0]

	var lastDays int64
	if !top.LastCommit.IsZero() {
		lastDays = int64(math.Max(0, now.Sub(top.LastCommit).Hours()/hoursPerDay))
	}

	rep := score.Compute(score.Signals{
		Commits:           int64(top.Commits),
		TotalCommits:      int64(total),
		TotalContributors: len(contributors),
		LastCommitDays:    lastDays,
	})

	return &Maintainer{
		Author:     top.Author,
		Commits:    top.Commits,
		Share:      int(math.Floor(float64(top.Commits)/float64(max(total, 1))*100 + 0.5)),
		LastCommit: top.LastCommit,
		Reputation: math.Round(rep*100) / 100,
	}
}

// formatCount renders n with thousands separators.
func formatCount(n int) string {
	s := strconv.Itoa(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
