package data

import (
	"github.com/google/go-github/v83/github"
	"github.com/mchmarny/pulse/pkg/vitality"
)

// Repo is a repository summary as returned by search.
type Repo struct {
	Owner       string `json:"owner" yaml:"owner"`
	Name        string `json:"name" yaml:"name"`
	FullName    string `json:"full_name" yaml:"fullName"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Language    string `json:"language,omitempty" yaml:"language,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Stars       int    `json:"stars" yaml:"stars"`
	OpenIssues  int    `json:"open_issues" yaml:"openIssues"`
	Archived    bool   `json:"archived" yaml:"archived"`
}

// Identity returns the display fields used by the scoring model.
func (r *Repo) Identity() vitality.Identity {
	return vitality.Identity{
		Owner:    r.Owner,
		Name:     r.Name,
		FullName: r.FullName,
		Stars:    r.Stars,
		URL:      r.URL,
	}
}

func mapRepo(r *github.Repository) *Repo {
	return &Repo{
		Owner:       r.GetOwner().GetLogin(),
		Name:        trim(r.Name),
		FullName:    trim(r.FullName),
		Description: trim(r.Description),
		Language:    trim(r.Language),
		URL:         trim(r.HTMLURL),
		Stars:       r.GetStargazersCount(),
		OpenIssues:  r.GetOpenIssuesCount(),
		Archived:    r.GetArchived(),
	}
}

func mapIdentity(r *github.Repository) vitality.Identity {
	id := mapRepo(r).Identity()
	id.License = r.GetLicense().GetSPDXID()
	return id
}
