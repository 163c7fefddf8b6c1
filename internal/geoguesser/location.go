package geoguesser

import (
	"context"

	"geobot/internal/geo"

	"github.com/google/uuid"
)

type Location struct {
	ID      uuid.UUID
	Mode    Mode
	Initial geo.Coordinates // point sampled inside the mode radius
	Road    geo.Coordinates // Initial snapped to the nearest road
	Image   string          // path of the street view image in the local cache
}

type GeocodingProvider interface {
	Geocode(ctx context.Context, text string) (geo.Coordinates, bool, error)
	SnapToNearestRoad(ctx context.Context, point geo.Coordinates) (geo.Coordinates, bool, error)
	DistanceMatrix(ctx context.Context, from geo.Coordinates, to geo.Coordinates) (float64, error)
}

type StreetImageryProvider interface {
	FetchImage(ctx context.Context, point geo.Coordinates) ([]byte, error)
}

// Pool of previously resolved locations, per mode
type LocationStore interface {
	LoadRandom(ctx context.Context, mode Mode, count int) ([]Location, error)
	SaveMany(ctx context.Context, mode Mode, locations []Location) error
	Count(ctx context.Context, mode Mode) (int, error)
}

// Local directory of street view images keyed by location id
type ImageCache interface {
	// Return the path of the image, calling fetch only if it is not cached yet
	Ensure(ctx context.Context, id uuid.UUID, fetch func(context.Context) ([]byte, error)) (string, error)
}
