package mapsapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"geobot/internal/common"
	"geobot/internal/geo"

	"github.com/rs/zerolog/log"
)

// Google Maps platform hosts
const MAPS_SCHEMA = "https://maps.googleapis.com"
const ROADS_SCHEMA = "https://roads.googleapis.com"

// Routes inside the maps platform
const ROUTE_GEOCODE = "/maps/api/geocode/json"
const ROUTE_DISTANCE_MATRIX = "/maps/api/distancematrix/json"
const ROUTE_STREETVIEW = "/maps/api/streetview"
const ROUTE_STREETVIEW_METADATA = "/maps/api/streetview/metadata"
const ROUTE_NEAREST_ROADS = "/v1/nearestRoads"

// Size of the street view images requested
const IMAGE_SIZE = "640x640"

type MapsApi struct {
	key          string
	mapsSchema   string
	roadsSchema  string
	proxy        *common.Proxy
	mu           sync.RWMutex
	geocodeCache map[string]GeocodeResult
}

type Options struct {
	Key          string
	Restrictions []common.Restriction
	Timeout      time.Duration
	// Overrides for the hosts, mostly useful for tests
	MapsSchema  string
	RoadsSchema string
}

func NewMapsApi(options Options) *MapsApi {

	mapsapi := &MapsApi{
		key:          options.Key,
		mapsSchema:   MAPS_SCHEMA,
		roadsSchema:  ROADS_SCHEMA,
		geocodeCache: map[string]GeocodeResult{},
	}
	if options.MapsSchema != "" {
		mapsapi.mapsSchema = options.MapsSchema
	}
	if options.RoadsSchema != "" {
		mapsapi.roadsSchema = options.RoadsSchema
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	mapsapi.proxy = common.NewProxy(nil, options.Restrictions, timeout)

	return mapsapi
}

// Observe every request that reaches Google
func (mapsapi *MapsApi) SetObserver(observer common.RequestObserver) {
	mapsapi.proxy.SetObserver(observer)
}

// Geocode free text. The boolean is false when Google found nothing
func (mapsapi *MapsApi) Geocode(ctx context.Context, address string) (geo.Coordinates, bool, error) {

	// Check cache
	key := strings.ToLower(strings.TrimSpace(address))
	mapsapi.mu.RLock()
	cached, ok := mapsapi.geocodeCache[key]
	mapsapi.mu.RUnlock()
	if ok {
		return cached.Location, cached.Found, nil
	}

	// Request
	query := url.Values{"address": {address}}
	data, err := mapsapi.request(ctx, mapsapi.mapsSchema+ROUTE_GEOCODE, query, true)
	if err != nil {
		return geo.Coordinates{}, false, fmt.Errorf("could not geocode %q: %w", address, err)
	}

	// Decode
	result, err := DecodeGeocode(data)
	if err != nil {
		return geo.Coordinates{}, false, err
	}
	log.Debug().Str("address", address).Bool("found", result.Found).Msg("Geocoded")

	// Update cache
	mapsapi.mu.Lock()
	mapsapi.geocodeCache[key] = result
	mapsapi.mu.Unlock()
	return result.Location, result.Found, nil
}

// Nearest point on a road. The boolean is false when there is no road around
func (mapsapi *MapsApi) SnapToNearestRoad(ctx context.Context, point geo.Coordinates) (geo.Coordinates, bool, error) {

	query := url.Values{"points": {point.String()}}
	data, err := mapsapi.request(ctx, mapsapi.roadsSchema+ROUTE_NEAREST_ROADS, query, true)
	if err != nil {
		return geo.Coordinates{}, false, fmt.Errorf("could not snap %s to a road: %w", point, err)
	}
	return DecodeNearestRoad(data)
}

// Driving distance in meters between two points
func (mapsapi *MapsApi) DistanceMatrix(ctx context.Context, from geo.Coordinates, to geo.Coordinates) (float64, error) {

	query := url.Values{"origins": {from.String()}, "destinations": {to.String()}}
	// Only for display, so not vital
	data, err := mapsapi.request(ctx, mapsapi.mapsSchema+ROUTE_DISTANCE_MATRIX, query, false)
	if err != nil {
		return 0, fmt.Errorf("could not get distance from %s to %s: %w", from, to, err)
	}
	return DecodeDistanceMatrix(data)
}

// Street view image of the provided point. Returns ErrNoImagery if
// Google does not have a panorama close enough
func (mapsapi *MapsApi) FetchImage(ctx context.Context, point geo.Coordinates) ([]byte, error) {

	// The image endpoint answers 200 with a grey placeholder when there
	// is no panorama, so ask for the metadata first
	query := url.Values{"location": {point.String()}, "source": {"outdoor"}}
	data, err := mapsapi.request(ctx, mapsapi.mapsSchema+ROUTE_STREETVIEW_METADATA, query, true)
	if err != nil {
		return nil, fmt.Errorf("could not get street view metadata for %s: %w", point, err)
	}
	if err := DecodeStreetViewMetadata(data); err != nil {
		return nil, err
	}

	query.Set("size", IMAGE_SIZE)
	image, err := mapsapi.request(ctx, mapsapi.mapsSchema+ROUTE_STREETVIEW, query, true)
	if err != nil {
		return nil, fmt.Errorf("could not fetch street view image for %s: %w", point, err)
	}
	if len(image) == 0 {
		return nil, ErrNoImagery
	}
	return image, nil
}

func (mapsapi *MapsApi) request(ctx context.Context, route string, query url.Values, vital bool) ([]byte, error) {

	log.Debug().Str("route", route).Msg("Requesting")
	query.Set("key", mapsapi.key)
	return mapsapi.proxy.Request(ctx, route+"?"+query.Encode(), vital)
}
