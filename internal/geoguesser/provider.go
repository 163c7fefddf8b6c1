package geoguesser

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"geobot/internal/geo"
	"geobot/internal/observability"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const DefaultMaxSampleAttempts = 25

// Produces playable locations: a road point with a street view image cached locally
type Provider struct {
	geocoder    GeocodingProvider
	imagery     StreetImageryProvider
	store       LocationStore
	images      ImageCache
	maxAttempts int
	mu          sync.Mutex
	rng         *rand.Rand
}

func NewProvider(geocoder GeocodingProvider, imagery StreetImageryProvider, store LocationStore, images ImageCache, maxAttempts int) *Provider {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxSampleAttempts
	}
	seed := uint64(time.Now().UnixNano())
	return &Provider{
		geocoder:    geocoder,
		imagery:     imagery,
		store:       store,
		images:      images,
		maxAttempts: maxAttempts,
		rng:         rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

func (p *Provider) samplePoint(mode Mode) geo.Coordinates {
	config := mode.Config()
	p.mu.Lock()
	defer p.mu.Unlock()
	return geo.SampleRandomPoint(p.rng, config.Center, config.Radius)
}

// Sample random points until one lands close to a road with street view
// imagery, giving up after maxAttempts
func (p *Provider) SampleLocation(ctx context.Context, mode Mode) (Location, error) {

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Location{}, err
		}

		initial := p.samplePoint(mode)
		road, found, err := p.geocoder.SnapToNearestRoad(ctx, initial)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("Could not snap point to a road")
			observability.LocationSamples.WithLabelValues("snap_error").Inc()
			lastErr = err
			continue
		}
		if !found {
			log.Debug().Str("point", initial.String()).Msg("No road around sampled point")
			observability.LocationSamples.WithLabelValues("no_road").Inc()
			continue
		}

		location := Location{ID: uuid.New(), Mode: mode, Initial: initial, Road: road}
		if err := p.EnsureImage(ctx, &location); err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Str("point", road.String()).Msg("Discarding location without image")
			observability.LocationSamples.WithLabelValues("no_image").Inc()
			lastErr = err
			continue
		}

		observability.LocationSamples.WithLabelValues("ok").Inc()
		log.Debug().Str("location", location.ID.String()).Int("attempts", attempt).Msg("Sampled new location")
		return location, nil
	}

	if lastErr != nil {
		return Location{}, fmt.Errorf("%w after %d attempts in mode %s: %w", ErrLocationUnavailable, p.maxAttempts, mode, lastErr)
	}
	return Location{}, fmt.Errorf("%w after %d attempts in mode %s", ErrLocationUnavailable, p.maxAttempts, mode)
}

// Make sure the image of the location is in the local cache, fetching it if needed
func (p *Provider) EnsureImage(ctx context.Context, location *Location) error {
	road := location.Road
	path, err := p.images.Ensure(ctx, location.ID, func(ctx context.Context) ([]byte, error) {
		return p.imagery.FetchImage(ctx, road)
	})
	if err != nil {
		return err
	}
	location.Image = path
	return nil
}

// Get count locations, preferring the persisted pool over sampling new ones.
// Newly sampled locations are added to the pool
func (p *Provider) LoadOrPopulate(ctx context.Context, mode Mode, count int) ([]Location, error) {

	locations := make([]Location, 0, count)

	stored, err := p.store.LoadRandom(ctx, mode, count)
	if err != nil {
		log.Warn().Err(err).Str("mode", mode.String()).Msg("Could not load stored locations, sampling new ones")
	}
	for _, location := range stored {
		if len(locations) == count {
			break
		}
		if err := p.EnsureImage(ctx, &location); err != nil {
			log.Warn().Err(err).Str("location", location.ID.String()).Msg("Skipping stored location without image")
			continue
		}
		locations = append(locations, location)
	}
	observability.LocationsServed.WithLabelValues("store").Add(float64(len(locations)))

	fresh, err := p.sampleMany(ctx, mode, count-len(locations))
	if len(fresh) > 0 {
		if err := p.store.SaveMany(ctx, mode, fresh); err != nil {
			log.Error().Err(err).Int("count", len(fresh)).Msg("Could not save new locations")
		}
		observability.LocationsServed.WithLabelValues("sampled").Add(float64(len(fresh)))
	}
	if err != nil {
		return nil, err
	}

	return append(locations, fresh...), nil
}

// Grow the persisted pool of a mode by count new locations
func (p *Provider) Populate(ctx context.Context, mode Mode, count int) (int, error) {

	fresh, sampleErr := p.sampleMany(ctx, mode, count)
	if len(fresh) == 0 {
		return 0, sampleErr
	}
	if err := p.store.SaveMany(ctx, mode, fresh); err != nil {
		return 0, fmt.Errorf("could not save %d locations: %w", len(fresh), err)
	}
	log.Info().Int("count", len(fresh)).Str("mode", mode.String()).Msg("Populated location pool")
	return len(fresh), sampleErr
}

// Sample locations one after the other; returns the ones found before any error
func (p *Provider) sampleMany(ctx context.Context, mode Mode, count int) ([]Location, error) {
	locations := make([]Location, 0, max(count, 0))
	for len(locations) < count {
		location, err := p.SampleLocation(ctx, mode)
		if err != nil {
			return locations, err
		}
		locations = append(locations, location)
	}
	return locations, nil
}
