package mapsapi

import (
	"encoding/json"
	"fmt"

	"geobot/internal/geo"
)

func DecodeGeocode(data []byte) (GeocodeResult, error) {

	var raw struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Results      []struct {
			Geometry struct {
				Location geo.Coordinates `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return GeocodeResult{}, err
	}

	switch raw.Status {
	case STATUS_OK:
		if len(raw.Results) == 0 {
			return GeocodeResult{}, nil
		}
		return GeocodeResult{Location: raw.Results[0].Geometry.Location, Found: true}, nil
	case STATUS_ZERO_RESULTS:
		return GeocodeResult{}, nil
	default:
		return GeocodeResult{}, &ApiError{Status: raw.Status, Message: raw.ErrorMessage}
	}
}

// The roads api answers an empty object when there is no road nearby
func DecodeNearestRoad(data []byte) (geo.Coordinates, bool, error) {

	var raw struct {
		SnappedPoints []struct {
			Location struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"location"`
			PlaceId string `json:"placeId"`
		} `json:"snappedPoints"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return geo.Coordinates{}, false, err
	}
	if len(raw.SnappedPoints) == 0 {
		return geo.Coordinates{}, false, nil
	}
	location := raw.SnappedPoints[0].Location
	return geo.Coordinates{Lat: location.Latitude, Lng: location.Longitude}, true, nil
}

func DecodeDistanceMatrix(data []byte) (float64, error) {

	var raw struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Rows         []struct {
			Elements []struct {
				Status   string `json:"status"`
				Distance struct {
					Value float64 `json:"value"`
				} `json:"distance"`
			} `json:"elements"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, err
	}
	if raw.Status != STATUS_OK {
		return 0, &ApiError{Status: raw.Status, Message: raw.ErrorMessage}
	}
	if len(raw.Rows) == 0 || len(raw.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("distance matrix answer has no elements")
	}
	element := raw.Rows[0].Elements[0]
	if element.Status != STATUS_OK {
		return 0, &ApiError{Status: element.Status}
	}
	return element.Distance.Value, nil
}

func DecodeStreetViewMetadata(data []byte) error {

	var raw struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Status {
	case STATUS_OK:
		return nil
	case STATUS_ZERO_RESULTS, STATUS_NOT_FOUND:
		return ErrNoImagery
	default:
		return &ApiError{Status: raw.Status, Message: raw.ErrorMessage}
	}
}
