package defense

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
)

//go:embed default_ranks.json
var bundledRanksJSON []byte

// Table is an immutable, team-indexed snapshot of defense rankings
type Table struct {
	entries []dfs.DefenseRankEntry
	byTeam  map[string]dfs.DefenseRankEntry
}

// NewTable indexes entries by team. The slice is copied.
func NewTable(entries []dfs.DefenseRankEntry) *Table {
	t := &Table{
		entries: make([]dfs.DefenseRankEntry, len(entries)),
		byTeam:  make(map[string]dfs.DefenseRankEntry, len(entries)),
	}
	copy(t.entries, entries)
	for _, e := range t.entries {
		t.byTeam[dfs.NormalizeTeam(e.TeamAbbr)] = e
	}
	return t
}

// Entries returns a copy of the rows in ranking order
func (t *Table) Entries() []dfs.DefenseRankEntry {
	out := make([]dfs.DefenseRankEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len reports the number of teams in the table
func (t *Table) Len() int {
	return len(t.entries)
}

// Lookup finds the entry for a team code. Variant codes ("JAC") and
// nicknames resolve through the bundled alias table.
func (t *Table) Lookup(team string) (dfs.DefenseRankEntry, bool) {
	if e, ok := t.byTeam[dfs.NormalizeTeam(team)]; ok {
		return e, true
	}
	if code, ok := CanonicalTeam(team); ok {
		e, found := t.byTeam[code]
		return e, found
	}
	return dfs.DefenseRankEntry{}, false
}

// RankFor returns the rank the opponent's defense holds against pos
func (t *Table) RankFor(team string, pos dfs.Position) (float64, bool) {
	e, ok := t.Lookup(team)
	if !ok {
		return 0, false
	}
	return e.RankFor(pos), true
}

// BundledTable is the neutral table shipped with the binary
func BundledTable() *Table {
	var entries []dfs.DefenseRankEntry
	if err := json.Unmarshal(bundledRanksJSON, &entries); err != nil {
		panic(fmt.Sprintf("defense: bundled default_ranks.json is invalid: %v", err))
	}
	return NewTable(entries)
}

// LoadFile reads a persisted ranking file
func LoadFile(path string) ([]dfs.DefenseRankEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read defense cache file: %w", err)
	}

	var entries []dfs.DefenseRankEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse defense cache file: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoUsableRecords
	}
	return entries, nil
}

// SaveFile writes entries to path via a temp file and rename so readers
// never see a partial file
func SaveFile(path string, entries []dfs.DefenseRankEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal defense ranks: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create defense cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".defense-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write defense cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close defense cache: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace defense cache: %w", err)
	}
	return nil
}
