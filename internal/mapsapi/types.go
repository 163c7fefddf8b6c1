package mapsapi

import (
	"errors"

	"geobot/internal/geo"
)

var ErrNoImagery = errors.New("no street view imagery at this location")

// Status values returned in the body of the maps web services
const (
	STATUS_OK            = "OK"
	STATUS_ZERO_RESULTS  = "ZERO_RESULTS"
	STATUS_NOT_FOUND     = "NOT_FOUND"
	STATUS_OVER_LIMIT    = "OVER_QUERY_LIMIT"
	STATUS_DENIED        = "REQUEST_DENIED"
	STATUS_INVALID       = "INVALID_REQUEST"
	STATUS_UNKNOWN_ERROR = "UNKNOWN_ERROR"
)

type GeocodeResult struct {
	Location geo.Coordinates
	Found    bool
}

// Error reported inside a 200 answer
type ApiError struct {
	Status  string
	Message string
}

func (e *ApiError) Error() string {
	if e.Message == "" {
		return "maps api status " + e.Status
	}
	return "maps api status " + e.Status + ": " + e.Message
}
