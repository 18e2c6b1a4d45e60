package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mchmarny/pulse/pkg/audit"
	"github.com/mchmarny/pulse/pkg/vitality"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// testMetrics has 20 commits over 12 days, 15 by alice and 5 by bob.
func testMetrics() vitality.Metrics {
	commits := make([]vitality.Commit, 0, 20)
	for i := 0; i < 20; i++ {
		author := "alice"
		if i%4 == 3 {
			author = "bob"
		}
		commits = append(commits, vitality.Commit{Author: author, Date: testNow.AddDate(0, 0, -(i % 12))})
	}
	return vitality.Metrics{
		Repo: vitality.Identity{
			Owner:    "acme",
			Name:     "widget",
			FullName: "acme/widget",
			Stars:    12345,
			License:  "MIT",
		},
		Commits:           commits,
		AvgResolutionDays: 2,
		OpenIssues:        150,
	}
}

func testReport() *Report {
	m := testMetrics()
	return New(m, vitality.Evaluate(m, testNow), testNow)
}

func TestNew(t *testing.T) {
	r := testReport()
	require.True(t, r.OK())

	// 48 activity + 24 responsiveness + 30 base, capped; 75% share is not above the threshold
	assert.Equal(t, 100, r.Assessment.Score)
	assert.Equal(t, 75, r.Assessment.RiskRatio)
	assert.Empty(t, r.Assessment.Flags)

	assert.Equal(t, "acme/widget", r.Repo.FullName)
	assert.Equal(t, testNow, r.GeneratedAt)
	assert.Equal(t, vitality.Band(r.Assessment.Score), r.Band)
	assert.Equal(t, 2, r.Contributors)

	require.Len(t, r.Indicators, 3)
	assert.Equal(t, StatusWarning, r.Indicators[0].Status, "20 commits is not more than 20")
	assert.Equal(t, "20 Commits", r.Indicators[0].Value)
	assert.Equal(t, StatusHealthy, r.Indicators[1].Status)
	assert.Equal(t, "~2.0 Days", r.Indicators[1].Value)
	assert.Equal(t, StatusCaution, r.Indicators[2].Status)
	assert.Equal(t, "150 Issues", r.Indicators[2].Value)

	require.NotNil(t, r.LeadMaintainer)
	assert.Equal(t, "alice", r.LeadMaintainer.Author)
	assert.Equal(t, 15, r.LeadMaintainer.Commits)
	assert.Equal(t, 75, r.LeadMaintainer.Share)
	assert.Equal(t, testNow, r.LeadMaintainer.LastCommit)
	assert.GreaterOrEqual(t, r.LeadMaintainer.Reputation, 0.0)
	assert.LessOrEqual(t, r.LeadMaintainer.Reputation, 1.0)
}

func TestIndicatorThresholds(t *testing.T) {
	m := vitality.Metrics{
		Commits:           make([]vitality.Commit, 21),
		AvgResolutionDays: 7,
		OpenIssues:        99,
	}
	list := indicators(m)
	assert.Equal(t, StatusHealthy, list[0].Status)
	assert.Equal(t, StatusWarning, list[1].Status)
	assert.Equal(t, StatusHealthy, list[2].Status)
}

func TestNew_NoCommits(t *testing.T) {
	m := vitality.Metrics{Repo: vitality.Identity{FullName: "acme/empty"}}
	r := New(m, vitality.Evaluate(m, testNow), testNow)
	assert.Nil(t, r.LeadMaintainer)
	assert.Zero(t, r.Contributors)
	assert.True(t, r.OK())
}

func TestFromResults(t *testing.T) {
	m := testMetrics()
	a := vitality.Evaluate(m, testNow)
	results := []*audit.Result{
		{Ref: audit.Ref{Owner: "acme", Name: "widget"}, EvaluatedAt: testNow, Metrics: &m, Assessment: &a},
		nil,
		{Ref: audit.Ref{Owner: "acme", Name: "gone"}, EvaluatedAt: testNow, Error: "could not assess: not found"},
	}

	list := FromResults(results)
	require.Len(t, list, 2)
	assert.True(t, list[0].OK())
	assert.False(t, list[1].OK())
	assert.Equal(t, "acme/gone", list[1].Repo.FullName)
	assert.Equal(t, "could not assess: not found", list[1].Error)
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testReport().WriteMarkdown(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# acme/widget\n"))
	assert.Contains(t, out, "**Vitality score:** 100/100 (HEALTHY)")
	assert.Contains(t, out, "**Confidence:** HIGH")
	assert.Contains(t, out, "**Stars:** 12,345")
	assert.Contains(t, out, "**License:** MIT")
	assert.Contains(t, out, "> "+vitality.ExplanationHealthy)
	assert.Contains(t, out, "**Flags:** None")
	assert.Contains(t, out, "| Sustainable Backlog | 150 Issues | CAUTION |")
	assert.Contains(t, out, "**Lead maintainer:** alice, 15 commits (75%)")
	assert.Contains(t, out, "_Generated 2025-06-15T12:00:00Z_")
}

func TestWriteMarkdown_Failed(t *testing.T) {
	r := Failed(vitality.Identity{FullName: "acme/gone"}, "could not assess", testNow)
	assert.Error(t, r.WriteMarkdown(&bytes.Buffer{}))
}

func TestWriteComparison(t *testing.T) {
	archived := vitality.Metrics{Repo: vitality.Identity{FullName: "acme/old", Stars: 7}, IsArchived: true}
	reports := []*Report{
		testReport(),
		New(archived, vitality.Evaluate(archived, testNow), testNow),
		Failed(vitality.Identity{FullName: "acme/gone"}, "could not assess: a|b", testNow),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, reports))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "| Metric | acme/widget | acme/old | acme/gone |", lines[0])
	assert.Equal(t, "|---|---|---|---|", lines[1])
	assert.Equal(t, `| Score | 100/100 | 0/100 | could not assess: a\|b |`, lines[2])
	assert.Equal(t, "| Severity | HEALTHY | CRITICAL | - |", lines[3])
	assert.Equal(t, "| Lead Share | 75% | 0% | - |", lines[5])
	assert.Equal(t, "| Stars | 12,345 | 7 | - |", lines[6])
	assert.Equal(t, "| Flags | None | ARCHIVED | - |", lines[7])

	assert.Error(t, WriteComparison(&buf, nil))
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriteComparison_WriterError(t *testing.T) {
	assert.Error(t, WriteComparison(failWriter{}, []*Report{testReport()}))
}

func TestWritePrometheus(t *testing.T) {
	burst := vitality.Metrics{
		Repo:    vitality.Identity{FullName: "acme/burst"},
		Commits: []vitality.Commit{{Author: "x", Date: testNow}, {Author: "x", Date: testNow}, {Author: "y", Date: testNow}},
	}
	reports := []*Report{
		testReport(),
		New(burst, vitality.Evaluate(burst, testNow), testNow),
		Failed(vitality.Identity{FullName: "acme/gone"}, "could not assess", testNow),
	}

	var buf bytes.Buffer
	require.NoError(t, WritePrometheus(&buf, reports))

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(&buf)
	require.NoError(t, err)

	score := families[metricScore]
	require.NotNil(t, score)
	require.Len(t, score.GetMetric(), 2, "failed report skipped")
	assert.Equal(t, "acme/widget", score.GetMetric()[0].GetLabel()[0].GetValue())
	assert.InDelta(t, 100, score.GetMetric()[0].GetGauge().GetValue(), 0.001)

	conf := families[metricConfidence]
	require.NotNil(t, conf)
	assert.InDelta(t, 2, conf.GetMetric()[0].GetGauge().GetValue(), 0.001)
	assert.InDelta(t, 0, conf.GetMetric()[1].GetGauge().GetValue(), 0.001)

	flags := families[metricFlag]
	require.NotNil(t, flags)
	assert.Len(t, flags.GetMetric(), 2*len(vitality.AllFlags()))

	raised := map[string]bool{}
	for _, m := range flags.GetMetric() {
		var repo, flag string
		for _, l := range m.GetLabel() {
			switch l.GetName() {
			case labelRepo:
				repo = l.GetValue()
			case labelFlag:
				flag = l.GetValue()
			}
		}
		if m.GetGauge().GetValue() == 1 {
			raised[repo+":"+flag] = true
		}
	}
	assert.Equal(t, map[string]bool{
		"acme/burst:" + string(vitality.FlagBurstActivity): true,
		"acme/burst:" + string(vitality.FlagNoIssueData):   true,
	}, raised)

	assert.NotNil(t, families[metricRiskRatio])
	assert.NotNil(t, families[metricTimestamp])
}

func TestWritePrometheus_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePrometheus(&buf, nil))
	assert.Zero(t, buf.Len())
}

func TestFormatCount(t *testing.T) {
	tests := map[int]string{
		0:        "0",
		7:        "7",
		999:      "999",
		1000:     "1,000",
		12345:    "12,345",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatCount(in))
	}
}
