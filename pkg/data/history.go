package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/pulse/pkg/vitality"
)

const (
	DefaultHistoryLimit = 20

	flagSeparator = ","

	insertAssessmentSQL = `INSERT INTO assessment
		(id, full_name, score, severity, confidence, flags, risk_ratio, explanation, evaluated_at, stars)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectAssessmentsSQL = `SELECT id, full_name, score, severity, confidence, flags,
			risk_ratio, explanation, evaluated_at, stars
		FROM assessment
		ORDER BY evaluated_at DESC
		LIMIT ?
	`

	selectRepoAssessmentsSQL = `SELECT id, full_name, score, severity, confidence, flags,
			risk_ratio, explanation, evaluated_at, stars
		FROM assessment
		WHERE LOWER(full_name) = LOWER(?)
		ORDER BY evaluated_at DESC
		LIMIT ?
	`
)

// AssessmentRecord is a stored assessment.
type AssessmentRecord struct {
	ID          string              `json:"id" yaml:"id"`
	EvaluatedAt time.Time           `json:"evaluated_at" yaml:"evaluatedAt"`
	Assessment  vitality.Assessment `json:"assessment" yaml:"assessment"`
}

// SaveAssessment records a with the time it was evaluated at and returns
// the new record ID.
func (s *Store) SaveAssessment(ctx context.Context, a vitality.Assessment, at time.Time) (string, error) {
	if s == nil || s.db == nil {
		return "", errDBNotInitialized
	}
	if a.Repo.FullName == "" {
		return "", errors.New("assessment repository full name required")
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, s.rebind(insertAssessmentSQL),
		id,
		a.Repo.FullName,
		a.Score,
		string(a.Severity),
		string(a.Confidence),
		joinFlags(a.Flags),
		a.RiskRatio,
		a.Explanation,
		formatTime(at),
		a.Repo.Stars,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert assessment for %s: %w", a.Repo.FullName, err)
	}
	return id, nil
}

// GetAssessments returns the most recent assessments, newest first. An empty
// fullName returns assessments of all repositories.
func (s *Store) GetAssessments(ctx context.Context, fullName string, limit int) ([]*AssessmentRecord, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query, args := selectAssessmentsSQL, []any{limit}
	if fullName != "" {
		query, args = selectRepoAssessmentsSQL, []any{fullName, limit}
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	list := make([]*AssessmentRecord, 0)
	for rows.Next() {
		var (
			r                                 AssessmentRecord
			name, sev, conf, flags, evaluated string
		)
		a := &r.Assessment
		if err := rows.Scan(&r.ID, &name, &a.Score, &sev, &conf, &flags,
			&a.RiskRatio, &a.Explanation, &evaluated, &a.Repo.Stars); err != nil {
			return nil, fmt.Errorf("failed to scan assessment row: %w", err)
		}
		a.Repo.FullName = name
		a.Repo.Owner, a.Repo.Name, _ = strings.Cut(name, "/")
		a.Severity = vitality.Severity(sev)
		a.Confidence = vitality.Confidence(conf)
		a.Flags = splitFlags(flags)
		r.EvaluatedAt = parseTime(evaluated)
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessment rows: %w", err)
	}

	return list, nil
}

func joinFlags(flags vitality.Flags) string {
	list := make([]string, len(flags))
	for i, f := range flags {
		list[i] = string(f)
	}
	return strings.Join(list, flagSeparator)
}

func splitFlags(s string) vitality.Flags {
	flags := vitality.Flags{}
	if s == "" {
		return flags
	}
	for _, v := range strings.Split(s, flagSeparator) {
		if f := vitality.Flag(v); f.Valid() {
			flags = append(flags, f)
		}
	}
	return flags
}
