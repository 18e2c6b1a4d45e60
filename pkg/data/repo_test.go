package data

import (
	"testing"

	"github.com/google/go-github/v83/github"
	"github.com/mchmarny/pulse/pkg/vitality"
	"github.com/stretchr/testify/assert"
)

func TestMapIdentity(t *testing.T) {
	r := &github.Repository{
		Name:            github.Ptr("widget"),
		FullName:        github.Ptr("acme/widget"),
		Owner:           &github.User{Login: github.Ptr("acme")},
		HTMLURL:         github.Ptr("https://github.com/acme/widget"),
		Language:        github.Ptr("Go"),
		StargazersCount: github.Ptr(12),
		OpenIssuesCount: github.Ptr(3),
		Archived:        github.Ptr(true),
		License:         &github.License{SPDXID: github.Ptr("MIT")},
	}

	repo := mapRepo(r)
	assert.Equal(t, "Go", repo.Language)
	assert.Equal(t, 3, repo.OpenIssues)
	assert.True(t, repo.Archived)

	assert.Equal(t, vitality.Identity{
		Owner:    "acme",
		Name:     "widget",
		FullName: "acme/widget",
		Stars:    12,
		License:  "MIT",
		URL:      "https://github.com/acme/widget",
	}, mapIdentity(r))
}

func TestMapIdentity_Empty(t *testing.T) {
	id := mapIdentity(&github.Repository{})
	assert.Equal(t, vitality.Identity{}, id)
}
