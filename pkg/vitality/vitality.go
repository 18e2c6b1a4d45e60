package vitality

import (
	"math"
	"time"
)

const (
	// Recency thresholds in days.
	StagnationThresholdDays = 90
	CriticalStagnationDays  = 365

	// NoCommitsDays is used when there is no commit to measure recency from.
	// It must exceed both recency thresholds.
	NoCommitsDays = 999

	// Share of commits by one author above which the project is a single point of failure.
	BusFactorThreshold = 0.75
	// Share above which the verdict calls out the single maintainer.
	SingleMaintainerThreshold = 0.9

	// Commit counts for the confidence steps.
	MinDataPoints  = 5
	HighDataPoints = 15

	// Weights and penalties.
	activityWeight        = 40.0
	activityDaysCeil      = 10.0
	responsivenessWeight  = 30.0
	resolutionDayCost     = 3.0
	neutralResponsiveness = 10.0
	baseAllowance         = 30.0
	stalePenalty          = 20.0
	abandonedPenalty      = 60.0
	busFactorPenalty      = 15.0

	// Severity cut-offs.
	healthyScore  = 80
	criticalScore = 50

	unknownAuthor = "unknown"
	hoursPerDay   = 24
)

// Verdicts.
const (
	ExplanationArchived         = "Repository is officially archived and read-only."
	ExplanationAbandoned        = "Project is functionally abandoned."
	ExplanationSingleMaintainer = "Critical dependency on a single maintainer."
	ExplanationIrregular        = "Activity is irregular; maintenance may be inconsistent."
	ExplanationHealthy          = "Project shows healthy, distributed maintenance."
	ExplanationDrift            = "Project shows signs of maintenance drift."
)

// Evaluate scores the given metrics relative to now.
//
// It never fails: empty or partial input degrades to conservative defaults.
// The result depends only on m and now.
func Evaluate(m Metrics, now time.Time) Assessment {
	if m.IsArchived {
		return Assessment{
			Repo:        m.Repo,
			Score:       0,
			Severity:    SeverityCritical,
			Confidence:  ConfidenceHigh,
			Flags:       Flags{FlagArchived},
			RiskRatio:   0,
			Explanation: ExplanationArchived,
		}
	}

	flags := Flags{}
	total := len(m.Commits)
	days := daysSinceLastCommit(m.Commits, now)
	confidence := confidenceFor(total)

	// activity
	uniqueDays := countUniqueDays(m.Commits)
	activity := float64(uniqueDays) / activityDaysCeil * activityWeight
	if uniqueDays < 2 && total > 0 {
		flags = flags.add(FlagBurstActivity)
	}

	// responsiveness
	var responsiveness float64
	if m.AvgResolutionDays > 0 {
		responsiveness = math.Max(0, responsivenessWeight-m.AvgResolutionDays*resolutionDayCost)
	} else if total > 0 {
		responsiveness = neutralResponsiveness
		flags = flags.add(FlagNoIssueData)
	}

	// drift, the higher tier replaces the lower one
	var drift float64
	if days > StagnationThresholdDays {
		drift = stalePenalty
		flags = flags.add(FlagStaleMaintenance)
	}
	if days > CriticalStagnationDays {
		drift = abandonedPenalty
		flags = flags.add(FlagAbandoned)
	}

	// concentration
	share := topAuthorShare(m.Commits)
	var busPenalty float64
	if share > BusFactorThreshold {
		busPenalty = busFactorPenalty
		flags = flags.add(FlagHighBusFactor)
	}

	raw := roundHalfUp(activity + responsiveness + baseAllowance - drift - busPenalty)
	score := clamp(raw, 0, 100)

	return Assessment{
		Repo:        m.Repo,
		Score:       score,
		Severity:    severityFor(score, days, confidence),
		Confidence:  confidence,
		Flags:       flags,
		RiskRatio:   clamp(roundHalfUp(share*100), 0, 100),
		Explanation: explain(score, days, share, flags),
	}
}

// Band maps a bare score to a severity without any override conditions.
// Use it to colour raw scores; an Assessment's own Severity takes precedence.
func Band(score int) Severity {
	switch {
	case score >= healthyScore:
		return SeverityHealthy
	case score >= criticalScore:
		return SeverityWarning
	default:
		return SeverityCritical
	}
}

func confidenceFor(total int) Confidence {
	switch {
	case total < MinDataPoints:
		return ConfidenceLow
	case total < HighDataPoints:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

// severityFor applies the rules in order; later rules override earlier ones.
func severityFor(score int, days float64, c Confidence) Severity {
	s := SeverityHealthy
	if score < healthyScore {
		s = SeverityWarning
	}
	if score < criticalScore || days > CriticalStagnationDays {
		s = SeverityCritical
	}
	if c == ConfidenceLow && score > criticalScore {
		s = SeverityUnknown
	}
	return s
}

func explain(score int, days, share float64, flags Flags) string {
	switch {
	case days > CriticalStagnationDays:
		return ExplanationAbandoned
	case share > SingleMaintainerThreshold:
		return ExplanationSingleMaintainer
	case flags.Has(FlagBurstActivity):
		return ExplanationIrregular
	case score > healthyScore:
		return ExplanationHealthy
	default:
		return ExplanationDrift
	}
}

// daysSinceLastCommit returns fractional days since the first commit, or
// NoCommitsDays when there is no usable timestamp.
func daysSinceLastCommit(commits []Commit, now time.Time) float64 {
	if len(commits) == 0 || commits[0].Date.IsZero() {
		return NoCommitsDays
	}
	return now.Sub(commits[0].Date).Hours() / hoursPerDay
}

// countUniqueDays counts distinct UTC calendar days with at least one commit.
func countUniqueDays(commits []Commit) int {
	days := make(map[string]struct{}, len(commits))
	for _, c := range commits {
		if c.Date.IsZero() {
			continue
		}
		days[c.Date.UTC().Format(time.DateOnly)] = struct{}{}
	}
	return len(days)
}

// topAuthorShare returns the share of commits by the most active author.
func topAuthorShare(commits []Commit) float64 {
	counts := make(map[string]int)
	top := 0
	for _, c := range commits {
		author := c.Author
		if author == "" {
			author = unknownAuthor
		}
		counts[author]++
		if counts[author] > top {
			top = counts[author]
		}
	}
	return float64(top) / float64(max(len(commits), 1))
}

// roundHalfUp rounds x to the nearest integer with halves rounded up.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
