package market

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Scoreboard is the subset of an ESPN-style scoreboard the resolver reads
type Scoreboard struct {
	Events []Event `json:"events"`
}

type Event struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Name         string        `json:"name"`
	Competitions []Competition `json:"competitions"`
}

type Competition struct {
	ID          string       `json:"id"`
	Date        string       `json:"date"`
	Venue       *Venue       `json:"venue"`
	Broadcasts  []Broadcast  `json:"broadcasts"`
	Competitors []Competitor `json:"competitors"`
	Odds        []Odds       `json:"odds"`
}

type Venue struct {
	FullName string `json:"fullName"`
}

type Broadcast struct {
	Market string   `json:"market"`
	Names  []string `json:"names"`
}

type Competitor struct {
	ID       string `json:"id"`
	HomeAway string `json:"homeAway"`
	Team     Team   `json:"team"`
}

type Team struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	DisplayName  string `json:"displayName"`
}

// Odds holds the betting line for a competition. Details carries the
// "TEAM -3.5" descriptor; Spread may arrive as a number or a string.
type Odds struct {
	Provider  *OddsProvider `json:"provider"`
	Details   FlexValue     `json:"details"`
	OverUnder FlexValue     `json:"overUnder"`
	Spread    FlexValue     `json:"spread"`
}

type OddsProvider struct {
	Name string `json:"name"`
}

// FlexValue keeps a JSON scalar that may be a number or a string
type FlexValue struct {
	raw     string
	number  float64
	numeric bool
	present bool
}

func (f *FlexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		*f = FlexValue{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = FlexValue{}
			return nil
		}
		*f = FlexValue{raw: s, present: true}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			f.number = n
			f.numeric = true
		}
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		// objects, arrays and booleans are not usable scalars
		*f = FlexValue{}
		return nil
	}
	*f = FlexValue{raw: string(data), number: n, numeric: true, present: true}
	return nil
}

// Present reports whether the field held a usable scalar
func (f FlexValue) Present() bool { return f.present }

// Number returns the numeric value when the field parsed as one
func (f FlexValue) Number() (float64, bool) { return f.number, f.numeric }

// String returns the raw text of the field
func (f FlexValue) String() string { return f.raw }

// NumberValue builds a numeric FlexValue
func NumberValue(n float64) FlexValue {
	return FlexValue{raw: strconv.FormatFloat(n, 'f', -1, 64), number: n, numeric: true, present: true}
}

// StringValue builds a FlexValue from text, parsing numbers when possible
func StringValue(s string) FlexValue {
	var f FlexValue
	b, _ := json.Marshal(s)
	_ = f.UnmarshalJSON(b)
	return f
}

var kickoffLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z",
	"2006-01-02T15:04:05Z",
}

func parseKickoff(values ...string) *time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		for _, layout := range kickoffLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				utc := t.UTC()
				return &utc
			}
		}
	}
	return nil
}
