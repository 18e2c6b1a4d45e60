package vitality

import "time"

// Severity is the user-facing risk tier of an assessment.
type Severity string

const (
	SeverityHealthy  Severity = "healthy"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
	SeverityUnknown  Severity = "unknown"
)

// Confidence describes how much data the score is based on.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Flag is a named risk condition detected during evaluation.
type Flag string

const (
	FlagArchived         Flag = "ARCHIVED"
	FlagBurstActivity    Flag = "BURST_ACTIVITY"
	FlagNoIssueData      Flag = "NO_ISSUE_DATA"
	FlagStaleMaintenance Flag = "STALE_MAINTENANCE"
	FlagAbandoned        Flag = "ABANDONED"
	FlagHighBusFactor    Flag = "HIGH_BUS_FACTOR"
)

var allFlags = []Flag{
	FlagArchived,
	FlagBurstActivity,
	FlagNoIssueData,
	FlagStaleMaintenance,
	FlagAbandoned,
	FlagHighBusFactor,
}

// AllFlags returns every flag the model can raise, in detection order.
func AllFlags() []Flag {
	list := make([]Flag, len(allFlags))
	copy(list, allFlags)
	return list
}

// Valid reports whether f is one of the known flags.
func (f Flag) Valid() bool {
	for _, v := range allFlags {
		if v == f {
			return true
		}
	}
	return false
}

// Label returns the display form of the flag (e.g. "STALE MAINTENANCE").
func (f Flag) Label() string {
	b := []byte(f)
	for i := range b {
		if b[i] == '_' {
			b[i] = ' '
		}
	}
	return string(b)
}

// Flags is an ordered set of flags. Order is detection order.
type Flags []Flag

// Has reports whether f is in the set.
func (fs Flags) Has(f Flag) bool {
	for _, v := range fs {
		if v == f {
			return true
		}
	}
	return false
}

func (fs Flags) add(f Flag) Flags {
	if fs.Has(f) {
		return fs
	}
	return append(fs, f)
}

// Identity holds the display fields of a repository. The model carries
// them through without interpreting them.
type Identity struct {
	Owner    string `json:"owner" yaml:"owner"`
	Name     string `json:"name" yaml:"name"`
	FullName string `json:"full_name" yaml:"fullName"`
	Stars    int    `json:"stars" yaml:"stars"`
	License  string `json:"license,omitempty" yaml:"license,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Commit is a single commit record. An empty Author means the author
// could not be resolved to an account.
type Commit struct {
	Author string    `json:"author,omitempty" yaml:"author,omitempty"`
	Date   time.Time `json:"date" yaml:"date"`
}

// Metrics holds the raw inputs to the model.
//
// Commits must be ordered most-recent-first; index 0 is used for recency.
type Metrics struct {
	Repo              Identity `json:"repo" yaml:"repo"`
	Commits           []Commit `json:"commits" yaml:"commits"`
	AvgResolutionDays float64  `json:"avg_resolution_days" yaml:"avgResolutionDays"`
	OpenIssues        int      `json:"open_issues" yaml:"openIssues"`
	IsArchived        bool     `json:"archived" yaml:"archived"`
}

// Assessment is the result of a single evaluation.
type Assessment struct {
	Repo        Identity   `json:"repo" yaml:"repo"`
	Score       int        `json:"score" yaml:"score"`
	Severity    Severity   `json:"severity" yaml:"severity"`
	Confidence  Confidence `json:"confidence" yaml:"confidence"`
	Flags       Flags      `json:"flags" yaml:"flags"`
	RiskRatio   int        `json:"risk_ratio" yaml:"riskRatio"`
	Explanation string     `json:"explanation" yaml:"explanation"`
}
