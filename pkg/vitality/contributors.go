package vitality

import (
	"sort"
	"time"
)

// Contributor is the commit tally of one author.
type Contributor struct {
	Author     string    `json:"author" yaml:"author"`
	Commits    int       `json:"commits" yaml:"commits"`
	LastCommit time.Time `json:"last_commit" yaml:"lastCommit"`
}

// Contributors tallies commits per author, most active first. Ties are
// broken by author name so the order is stable. Commits without an author
// are grouped under "unknown".
func Contributors(commits []Commit) []Contributor {
	idx := make(map[string]int)
	list := make([]Contributor, 0)
	for _, c := range commits {
		author := c.Author
		if author == "" {
			author = unknownAuthor
		}
		i, ok := idx[author]
		if !ok {
			i = len(list)
			idx[author] = i
			list = append(list, Contributor{Author: author})
		}
		list[i].Commits++
		if c.Date.After(list[i].LastCommit) {
			list[i].LastCommit = c.Date
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Commits != list[j].Commits {
			return list[i].Commits > list[j].Commits
		}
		return list[i].Author < list[j].Author
	})
	return list
}
