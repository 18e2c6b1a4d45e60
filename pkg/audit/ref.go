package audit

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrInvalidRef = errors.New("invalid repository reference")

	ownerRegEx = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,38})$`)
	nameRegEx  = regexp.MustCompile(`^[A-Za-z0-9._-]{1,100}$`)
)

// Ref identifies a repository.
type Ref struct {
	Owner string `json:"owner" yaml:"owner"`
	Name  string `json:"name" yaml:"name"`
}

func (r Ref) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRef parses "owner/repo" or a github.com repository URL.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, fmt.Errorf("%w: empty", ErrInvalidRef)
	}

	if strings.Contains(s, "://") || strings.HasPrefix(s, "github.com/") {
		if !strings.Contains(s, "://") {
			s = "https://" + s
		}
		u, err := url.Parse(s)
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %s", ErrInvalidRef, s)
		}
		if !strings.EqualFold(strings.TrimPrefix(u.Hostname(), "www."), "github.com") {
			return Ref{}, fmt.Errorf("%w: not a github.com url: %s", ErrInvalidRef, s)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 {
			return Ref{}, fmt.Errorf("%w: %s", ErrInvalidRef, s)
		}
		s = parts[0] + "/" + strings.TrimSuffix(parts[1], ".git")
	}

	owner, name, ok := strings.Cut(s, "/")
	if !ok || !ownerRegEx.MatchString(owner) || !nameRegEx.MatchString(name) || name == "." || name == ".." {
		return Ref{}, fmt.Errorf("%w: %s", ErrInvalidRef, s)
	}

	return Ref{Owner: owner, Name: name}, nil
}
