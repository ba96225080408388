// Package players builds the searchable player directory and matches
// free-text queries against it.
package players

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
)

// RawPlayer is one record of a provider's player map (Sleeper's shape)
type RawPlayer struct {
	PlayerID         string   `json:"player_id"`
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	FullName         string   `json:"full_name"`
	Team             *string  `json:"team"`
	Position         string   `json:"position"`
	FantasyPositions []string `json:"fantasy_positions"`
}

// BuildDirectory filters raw players to fantasy positions and returns them
// ordered by full name, then id
func BuildDirectory(raw map[string]RawPlayer) []dfs.PlayerDirectoryEntry {
	entries := make([]dfs.PlayerDirectoryEntry, 0, len(raw))

	for key, p := range raw {
		pos, ok := position(p)
		if !ok {
			continue
		}

		id := p.PlayerID
		if id == "" {
			id = key
		}

		fullName := displayName(p)
		if fullName == "" {
			continue
		}

		team := ""
		if p.Team != nil {
			team = dfs.NormalizeTeam(*p.Team)
		}
		if pos == dfs.PositionDST && team == "" {
			team = dfs.NormalizeTeam(id)
		}

		lastName := p.LastName
		if lastName == "" {
			if fields := strings.Fields(fullName); len(fields) > 0 {
				lastName = fields[len(fields)-1]
			}
		}

		entries = append(entries, dfs.PlayerDirectoryEntry{
			ID:          id,
			FullName:    fullName,
			Team:        team,
			Position:    pos,
			SearchKey:   NormalizeName(fullName),
			LastNameKey: NormalizeName(lastName),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].FullName != entries[j].FullName {
			return entries[i].FullName < entries[j].FullName
		}
		return entries[i].ID < entries[j].ID
	})

	return entries
}

func position(p RawPlayer) (dfs.Position, bool) {
	if pos, ok := dfs.ParsePosition(p.Position); ok {
		return pos, true
	}
	for _, fp := range p.FantasyPositions {
		if pos, ok := dfs.ParsePosition(fp); ok {
			return pos, true
		}
	}
	return "", false
}

func displayName(p RawPlayer) string {
	if name := strings.Join(strings.Fields(p.FullName), " "); name != "" {
		return name
	}
	return strings.Join(strings.Fields(p.FirstName+" "+p.LastName), " ")
}

// NormalizeName lowercases, strips accents and punctuation, and collapses
// whitespace. Hyphens separate words.
func NormalizeName(name string) string {
	name = strings.ToLower(name)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, name); err == nil {
		name = folded
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == '-', unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, name)

	return strings.Join(strings.Fields(name), " ")
}
