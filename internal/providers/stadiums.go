package providers

import "github.com/stitts-dev/waiver-ranker/internal/dfs"

// Stadium is a home venue location. Indoor covers fixed domes and
// retractable roofs.
type Stadium struct {
	Name      string
	Latitude  float64
	Longitude float64
	Indoor    bool
}

var stadiums = map[string]Stadium{
	"ARI": {"State Farm Stadium", 33.5276, -112.2626, true},
	"ATL": {"Mercedes-Benz Stadium", 33.7554, -84.4008, true},
	"BAL": {"M&T Bank Stadium", 39.2780, -76.6227, false},
	"BUF": {"Highmark Stadium", 42.7738, -78.7870, false},
	"CAR": {"Bank of America Stadium", 35.2258, -80.8528, false},
	"CHI": {"Soldier Field", 41.8623, -87.6167, false},
	"CIN": {"Paycor Stadium", 39.0955, -84.5161, false},
	"CLE": {"Cleveland Browns Stadium", 41.5061, -81.6995, false},
	"DAL": {"AT&T Stadium", 32.7473, -97.0945, true},
	"DEN": {"Empower Field at Mile High", 39.7439, -105.0201, false},
	"DET": {"Ford Field", 42.3400, -83.0456, true},
	"GB":  {"Lambeau Field", 44.5013, -88.0622, false},
	"HOU": {"NRG Stadium", 29.6847, -95.4107, true},
	"IND": {"Lucas Oil Stadium", 39.7601, -86.1639, true},
	"JAX": {"EverBank Stadium", 30.3239, -81.6373, false},
	"KC":  {"GEHA Field at Arrowhead Stadium", 39.0489, -94.4839, false},
	"LAC": {"SoFi Stadium", 33.9535, -118.3392, true},
	"LAR": {"SoFi Stadium", 33.9535, -118.3392, true},
	"LV":  {"Allegiant Stadium", 36.0909, -115.1833, true},
	"MIA": {"Hard Rock Stadium", 25.9580, -80.2389, false},
	"MIN": {"U.S. Bank Stadium", 44.9736, -93.2575, true},
	"NE":  {"Gillette Stadium", 42.0909, -71.2643, false},
	"NO":  {"Caesars Superdome", 29.9511, -90.0812, true},
	"NYG": {"MetLife Stadium", 40.8135, -74.0745, false},
	"NYJ": {"MetLife Stadium", 40.8135, -74.0745, false},
	"PHI": {"Lincoln Financial Field", 39.9008, -75.1675, false},
	"PIT": {"Acrisure Stadium", 40.4468, -80.0158, false},
	"SEA": {"Lumen Field", 47.5952, -122.3316, false},
	"SF":  {"Levi's Stadium", 37.4030, -121.9700, false},
	"TB":  {"Raymond James Stadium", 27.9759, -82.5033, false},
	"TEN": {"Nissan Stadium", 36.1665, -86.7713, false},
	"WAS": {"Northwest Stadium", 38.9078, -76.8645, false},
}

// StadiumFor returns the home stadium of a team
func StadiumFor(team string) (Stadium, bool) {
	s, ok := stadiums[dfs.NormalizeTeam(team)]
	return s, ok
}
