package data

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v83/github"
)

var (
	ErrNotFound    = errors.New("repository not found")
	ErrRateLimited = errors.New("github api rate limit exceeded")
)

// wrapError maps GitHub client errors to package errors.
func wrapError(err error, msg string) error {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		slog.Warn("github rate limit exceeded", "reset_at", rle.Rate.Reset.Format(time.RFC3339))
		return fmt.Errorf("%s: %w (resets at %s)", msg, ErrRateLimited, rle.Rate.Reset.Format(time.Kitchen))
	}

	var are *github.AbuseRateLimitError
	if errors.As(err, &are) {
		slog.Warn("github secondary rate limit exceeded", "retry_after", are.GetRetryAfter())
		return fmt.Errorf("%s: %w", msg, ErrRateLimited)
	}

	if statusCode(err) == http.StatusNotFound {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}

	return fmt.Errorf("%s: %w", msg, err)
}

func statusCode(err error) int {
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode
	}
	return 0
}

func rateInfo(r github.Rate) string {
	return fmt.Sprintf("rate:%d/%d until:%s", r.Remaining, r.Limit, r.Reset.Format("15:04"))
}

func trim(s *string) string {
	if s != nil {
		return strings.TrimSpace(*s)
	}
	return ""
}
