package defense

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
)

// ErrNoUsableRecords means a payload parsed but yielded no team rows
var ErrNoUsableRecords = errors.New("defense: payload contained no usable records")

var rankedPositions = []dfs.Position{dfs.PositionQB, dfs.PositionRB, dfs.PositionWR, dfs.PositionTE}

// Normalizer converts defense-ranking payloads of unknown layout into
// DefenseRankEntry rows
type Normalizer struct {
	aliases *AliasTable
	weights Weights
}

// NewNormalizer creates a normalizer. A nil alias table uses the bundled one.
func NewNormalizer(aliases *AliasTable, weights Weights) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Normalizer{
		aliases: aliases,
		weights: weights.Normalized(),
	}
}

// Weights returns the normalized weights in use
func (n *Normalizer) Weights() Weights {
	return n.weights
}

// CanonicalTeam canonicalizes raw with the normalizer's alias table, so
// lookups use the same codes as normalized rows
func (n *Normalizer) CanonicalTeam(raw string) (string, bool) {
	return n.aliases.CanonicalTeam(raw)
}

// Normalize parses payload as JSON, falling back to CSV, and returns the
// resolvable rows sorted toughest defense first.
func (n *Normalizer) Normalize(payload []byte) ([]dfs.DefenseRankEntry, error) {
	records, err := n.decode(payload)
	if err != nil {
		return nil, err
	}

	entries := make([]dfs.DefenseRankEntry, 0, len(records))
	for _, rec := range records {
		entry, ok := n.normalizeRecord(rec)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, ErrNoUsableRecords
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Overall < entries[j].Overall
	})
	return entries, nil
}

func (n *Normalizer) decode(payload []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, ErrNoUsableRecords
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err == nil && !dec.More() {
		return n.recordsFromJSON(doc), nil
	}

	return parseCSV(trimmed)
}

func (n *Normalizer) recordsFromJSON(doc any) []map[string]any {
	switch v := doc.(type) {
	case []any:
		return objectsOf(v)
	case map[string]any:
		lookup := newLookup(v)
		for _, key := range n.aliases.WrapperKeys {
			if inner, ok := lookup.get(key); ok {
				if list, ok := inner.([]any); ok {
					return objectsOf(list)
				}
			}
		}
		return n.recordsFromKeyedObject(v)
	default:
		return nil
	}
}

// recordsFromKeyedObject handles {"KC": {...}, "BUF": {...}} layouts by
// using the key as the team when the record does not carry one. A single
// flat record is returned as-is.
func (n *Normalizer) recordsFromKeyedObject(obj map[string]any) []map[string]any {
	keys := make([]string, 0, len(obj))
	for k, v := range obj {
		if _, ok := v.(map[string]any); !ok {
			return []map[string]any{obj}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		rec := obj[k].(map[string]any)
		if _, ok := n.resolveTeam(newLookup(rec)); !ok {
			withTeam := make(map[string]any, len(rec)+1)
			for field, val := range rec {
				withTeam[field] = val
			}
			withTeam["team"] = k
			rec = withTeam
		}
		records = append(records, rec)
	}
	return records
}

func objectsOf(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func (n *Normalizer) normalizeRecord(rec map[string]any) (dfs.DefenseRankEntry, bool) {
	lookup := newLookup(rec)

	team, ok := n.resolveTeam(lookup)
	if !ok {
		return dfs.DefenseRankEntry{}, false
	}

	present := make(map[dfs.Position]float64, len(rankedPositions))
	for _, pos := range rankedPositions {
		if rank, ok := n.resolveRank(lookup, n.aliases.Positions[pos]); ok {
			present[pos] = rank
		}
	}

	rankOr := func(pos dfs.Position) float64 {
		if rank, ok := present[pos]; ok {
			return rank
		}
		return NeutralRank
	}

	overall, ok := n.resolveRank(lookup, n.aliases.Overall)
	if !ok {
		overall = n.weights.Overall(present)
	}

	return dfs.DefenseRankEntry{
		TeamAbbr: team,
		Overall:  overall,
		QB:       rankOr(dfs.PositionQB),
		RB:       rankOr(dfs.PositionRB),
		WR:       rankOr(dfs.PositionWR),
		TE:       rankOr(dfs.PositionTE),
	}, true
}

func (n *Normalizer) resolveTeam(lookup fieldLookup) (string, bool) {
	for _, alias := range n.aliases.Team {
		val, ok := lookup.get(alias)
		if !ok {
			continue
		}

		switch v := val.(type) {
		case string:
			if code, ok := n.aliases.CanonicalTeam(v); ok {
				return code, true
			}
		case map[string]any:
			nested := newLookup(v)
			for _, inner := range n.aliases.TeamNested {
				if s, ok := nested.get(inner); ok {
					if str, ok := s.(string); ok {
						if code, ok := n.aliases.CanonicalTeam(str); ok {
							return code, true
						}
					}
				}
			}
		}
	}
	return "", false
}

func (n *Normalizer) resolveRank(lookup fieldLookup, aliases []string) (float64, bool) {
	for _, alias := range aliases {
		val, ok := lookup.get(alias)
		if !ok {
			continue
		}

		if nestedObj, ok := val.(map[string]any); ok {
			nested := newLookup(nestedObj)
			for _, inner := range n.aliases.RankNested {
				if v, ok := nested.get(inner); ok {
					if rank, ok := toNumber(v); ok {
						return rank, true
					}
				}
			}
			continue
		}

		if rank, ok := toNumber(val); ok {
			return rank, true
		}
	}
	return 0, false
}

// fieldLookup is a case-insensitive view over one record, built once
type fieldLookup map[string]any

func newLookup(rec map[string]any) fieldLookup {
	lookup := make(fieldLookup, len(rec))
	for k, v := range rec {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, exists := lookup[key]; exists {
			continue
		}
		lookup[key] = v
	}
	return lookup
}

func (l fieldLookup) get(alias string) (any, bool) {
	v, ok := l[strings.ToLower(alias)]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if !isFinite(f) {
		return 0, false
	}
	return f, true
}
