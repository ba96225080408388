package defense

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
)

//go:embed aliases.json
var defaultAliasesJSON []byte

var teamCodePattern = regexp.MustCompile(`^[A-Z]{2,4}$`)

// AliasTable lists, in probe order, the field names a ranking source may use
// for each canonical field. Matching is case-insensitive.
type AliasTable struct {
	WrapperKeys []string                  `json:"wrapper_keys"`
	Team        []string                  `json:"team"`
	TeamNested  []string                  `json:"team_nested"`
	Overall     []string                  `json:"overall"`
	Positions   map[dfs.Position][]string `json:"positions"`
	RankNested  []string                  `json:"rank_nested"`
	TeamCodes   map[string]string         `json:"team_codes"`
	TeamNames   map[string]string         `json:"team_names"`
}

// DefaultAliases returns the bundled alias table
func DefaultAliases() *AliasTable {
	table, err := parseAliases(defaultAliasesJSON)
	if err != nil {
		panic(fmt.Sprintf("defense: bundled aliases.json is invalid: %v", err))
	}
	return table
}

var (
	bundledOnce    sync.Once
	bundledAliases *AliasTable
)

// CanonicalTeam canonicalizes raw with the bundled alias table
func CanonicalTeam(raw string) (string, bool) {
	bundledOnce.Do(func() { bundledAliases = DefaultAliases() })
	return bundledAliases.CanonicalTeam(raw)
}

// LoadAliases reads an alias table from path. An empty path yields the
// bundled table. Keys missing from the file keep their bundled values.
func LoadAliases(path string) (*AliasTable, error) {
	if path == "" {
		return DefaultAliases(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file: %w", err)
	}

	override, err := parseAliases(data)
	if err != nil {
		return nil, err
	}

	return DefaultAliases().merge(override), nil
}

func parseAliases(data []byte) (*AliasTable, error) {
	var table AliasTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse alias table: %w", err)
	}
	return &table, nil
}

func (a *AliasTable) merge(o *AliasTable) *AliasTable {
	out := *a
	if len(o.WrapperKeys) > 0 {
		out.WrapperKeys = o.WrapperKeys
	}
	if len(o.Team) > 0 {
		out.Team = o.Team
	}
	if len(o.TeamNested) > 0 {
		out.TeamNested = o.TeamNested
	}
	if len(o.Overall) > 0 {
		out.Overall = o.Overall
	}
	if len(o.RankNested) > 0 {
		out.RankNested = o.RankNested
	}

	out.Positions = make(map[dfs.Position][]string, len(a.Positions))
	for pos, keys := range a.Positions {
		out.Positions[pos] = keys
	}
	for pos, keys := range o.Positions {
		out.Positions[pos] = keys
	}

	out.TeamCodes = mergeStrings(a.TeamCodes, o.TeamCodes)
	out.TeamNames = mergeStrings(a.TeamNames, o.TeamNames)
	return &out
}

func mergeStrings(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// CanonicalTeam maps a raw team value onto a canonical 2-4 letter code.
// Variant codes go through team_codes and nicknames ("Kansas City Chiefs")
// through team_names.
func (a *AliasTable) CanonicalTeam(raw string) (string, bool) {
	code := dfs.NormalizeTeam(raw)
	if code == "" {
		return "", false
	}

	if mapped, ok := a.TeamCodes[code]; ok {
		return mapped, true
	}

	// Nicknames are keyed by the final word of the display name. Checked
	// before the code pattern so "Jets" or "Rams" never pass as codes.
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) > 0 {
		if mapped, ok := a.TeamNames[fields[len(fields)-1]]; ok {
			return mapped, true
		}
	}

	if teamCodePattern.MatchString(code) {
		return code, true
	}
	return "", false
}
