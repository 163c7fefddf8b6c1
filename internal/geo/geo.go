package geo

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Meters covered by one degree of latitude
const MetersPerDegree = 111320.0

const earthRadius = 6371000.0

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Sample a point at a uniformly random angle and a uniformly random
// distance in [0, radius] from the center. Points are denser near the center.
func SampleRandomPoint(rng *rand.Rand, center Coordinates, radiusMeters float64) Coordinates {
	angle := rng.Float64() * 2 * math.Pi
	radius := rng.Float64() * radiusMeters
	return Offset(center, radius*math.Cos(angle), radius*math.Sin(angle))
}

// Move a point north and east by the given number of meters
func Offset(c Coordinates, northMeters float64, eastMeters float64) Coordinates {
	dLat := northMeters / MetersPerDegree
	dLng := eastMeters / (MetersPerDegree * math.Cos(c.Lat*math.Pi/180))
	return Coordinates{Lat: c.Lat + dLat, Lng: c.Lng + dLng}
}

// Euclidean distance in degree space. Only meaningful for nearby points.
func DegreeDistance(a Coordinates, b Coordinates) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
}

// Haversine distance in meters
func Haversine(a Coordinates, b Coordinates) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
