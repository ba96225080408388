package players

import (
	"sort"
	"strings"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
)

// Match scores, strongest first
const (
	ScoreExact      = 5
	ScorePrefix     = 4
	ScoreLastPrefix = 3
	ScoreSubstring  = 2
	ScoreToken      = 1
)

// Candidate is a directory entry that matched a query
type Candidate struct {
	dfs.PlayerDirectoryEntry
	MatchScore int `json:"matchScore"`
}

// Score rates how well entry matches an already normalized query. Zero
// means no match.
func Score(query string, entry dfs.PlayerDirectoryEntry) int {
	if query == "" {
		return 0
	}

	full := entry.SearchKey
	switch {
	case full == query:
		return ScoreExact
	case strings.HasPrefix(full, query):
		return ScorePrefix
	case entry.LastNameKey != "" && strings.HasPrefix(entry.LastNameKey, query):
		return ScoreLastPrefix
	case strings.Contains(full, query):
		return ScoreSubstring
	}

	for _, token := range strings.Fields(query) {
		if strings.Contains(full, token) {
			return ScoreToken
		}
	}
	return 0
}

// Match returns up to limit candidates for query ordered by descending
// score. Ties keep directory order. limit <= 0 returns every match.
func Match(query string, directory []dfs.PlayerDirectoryEntry, limit int) []Candidate {
	q := NormalizeName(query)
	if q == "" {
		return nil
	}

	var candidates []Candidate
	for _, entry := range directory {
		if score := Score(q, entry); score > 0 {
			candidates = append(candidates, Candidate{PlayerDirectoryEntry: entry, MatchScore: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MatchScore > candidates[j].MatchScore
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Best returns the single strongest candidate
func Best(query string, directory []dfs.PlayerDirectoryEntry) (Candidate, bool) {
	matches := Match(query, directory, 1)
	if len(matches) == 0 {
		return Candidate{}, false
	}
	return matches[0], true
}
