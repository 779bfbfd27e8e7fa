package query

import "math"

const earthRadiusMeters = 6371000

// DistanceMeters returns the haversine great-circle distance between two
// points. The repository's SQL proximity predicate is the same formula with
// the same radius constant, so in-memory and store-side filtering agree.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dLng/2), 2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

// Matches reports whether an event point satisfies the filter's proximity
// constraint. Events without coordinates never match an active geo filter;
// a point exactly at the radius distance is included.
func (f Filter) Matches(lat, lng *float64) bool {
	if !f.Geo {
		return true
	}
	if lat == nil || lng == nil {
		return false
	}
	return DistanceMeters(f.Lat, f.Lng, *lat, *lng) <= f.RadiusMeters
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
