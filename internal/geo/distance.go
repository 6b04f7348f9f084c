package geo

import "math"

// earthRadiusKm is the spherical-Earth approximation used across the engine.
const earthRadiusKm = 6371

// DistanceKm computes the great-circle distance between two coordinates in
// decimal degrees using the haversine formula. Deterministic and symmetric;
// behavior for NaN or out-of-range inputs is undefined and callers validate
// upstream.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
