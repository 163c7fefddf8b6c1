package geoguesser

import (
	"fmt"
	"regexp"
	"strings"

	"geobot/internal/geo"
)

type Mode int

const (
	ModeCity Mode = iota
	ModeCounty
)

type ModeConfig struct {
	Name   string
	Icon   string
	Radius float64 // meters around Center where locations are sampled
	Center geo.Coordinates
	// Guesses not matching Qualifier get Suffix appended before geocoding
	Qualifier *regexp.Regexp
	Suffix    string
	// What the geocoder answers for Suffix alone
	Centroid geo.Coordinates
	// Degree distance at which a guess scores nothing
	ZeroScoreDistance float64
}

var modes = map[Mode]ModeConfig{
	ModeCity: {
		Name:              "City",
		Icon:              "🏙️",
		Radius:            10000,
		Center:            geo.Coordinates{Lat: 40.0379, Lng: -76.3055},
		Qualifier:         regexp.MustCompile(`(?i)\blancaster\b`),
		Suffix:            "Lancaster City, PA",
		Centroid:          geo.Coordinates{Lat: 40.0378755, Lng: -76.3055144},
		ZeroScoreDistance: 0.02,
	},
	ModeCounty: {
		Name:              "County",
		Icon:              "🌾",
		Radius:            30000,
		Center:            geo.Coordinates{Lat: 40.0423, Lng: -76.2477},
		Qualifier:         regexp.MustCompile(`(?i)\b(pa|pennsylvania)\b`),
		Suffix:            "Lancaster County, PA",
		Centroid:          geo.Coordinates{Lat: 40.0467197, Lng: -76.1784428},
		ZeroScoreDistance: 0.1,
	},
}

// Tolerance when comparing a geocoded point with a mode centroid
const centroidTolerance = 1e-6

func Modes() []Mode {
	return []Mode{ModeCity, ModeCounty}
}

func (m Mode) Config() ModeConfig {
	return modes[m]
}

func (m Mode) String() string {
	if config, ok := modes[m]; ok {
		return strings.ToLower(config.Name)
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	for _, mode := range Modes() {
		if strings.EqualFold(strings.TrimSpace(s), mode.String()) {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// The geocoder answers the centroid of the region when it could only make
// sense of the suffix we appended. The coordinates were observed, not derived,
// so they have to be checked again whenever a suffix changes
func IsReservedCentroid(c geo.Coordinates, mode Mode) bool {
	centroid := mode.Config().Centroid
	return geo.DegreeDistance(c, centroid) < centroidTolerance
}

// Append the mode suffix unless the guess already names the region
func QualifyGuess(mode Mode, raw string) string {
	config := mode.Config()
	guess := strings.TrimSpace(raw)
	if config.Qualifier.MatchString(guess) {
		return guess
	}
	return guess + ", " + config.Suffix
}
