package geoguesser

import (
	"context"
	"math"
	"strings"

	"geobot/internal/geo"

	"github.com/rs/zerolog/log"
)

type GuessResult struct {
	Guess          geo.Coordinates
	Distance       float64 // degrees, used for the score
	DistanceMeters float64 // only for display
	Score          float64 // 0 to 100
}

type Scorer struct {
	geocoder GeocodingProvider
}

func NewScorer(geocoder GeocodingProvider) *Scorer {
	return &Scorer{geocoder: geocoder}
}

// Geocode a free text guess inside the region of the mode
func (s *Scorer) ResolveGuess(ctx context.Context, mode Mode, raw string) (geo.Coordinates, error) {

	if strings.TrimSpace(raw) == "" {
		return geo.Coordinates{}, ErrUnresolvable
	}
	query := QualifyGuess(mode, raw)
	coords, found, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Could not geocode guess")
		return geo.Coordinates{}, ErrUnresolvable
	}
	if !found {
		return geo.Coordinates{}, ErrUnresolvable
	}
	if IsReservedCentroid(coords, mode) {
		log.Debug().Str("query", query).Msg("Guess resolved to the region centroid")
		return geo.Coordinates{}, ErrFalsePositive
	}
	return coords, nil
}

// Linear falloff from 100 at the exact spot to 0 at the zero score distance
func Score(mode Mode, guess geo.Coordinates, truth geo.Coordinates) GuessResult {
	distance := geo.DegreeDistance(guess, truth)
	zero := mode.Config().ZeroScoreDistance
	score := math.Max(0, 1-distance/zero) * 100
	score = math.Min(100, math.Max(0, score))
	return GuessResult{Guess: guess, Distance: distance, Score: score}
}

// Driving distance from the guess to the truth, or the straight line
// distance when the distance matrix has no answer
func (s *Scorer) DisplayDistance(ctx context.Context, guess geo.Coordinates, truth geo.Coordinates) float64 {
	meters, err := s.geocoder.DistanceMatrix(ctx, guess, truth)
	if err != nil {
		log.Debug().Err(err).Msg("Distance matrix not available, using haversine")
		return geo.Haversine(guess, truth)
	}
	return meters
}
