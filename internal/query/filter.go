// Package query translates list-request parameters into a typed filter the
// repository can execute. Malformed optional parameters are dropped rather
// than failing the request; callers log the drops.
package query

import (
	"net/url"
	"strconv"
	"time"
)

// DefaultRadiusKm is applied when a geo query omits the radius parameter.
const DefaultRadiusKm = 50

// Filter is a repository-executable list query. Zero values mean "no
// constraint". Results are always restricted to published events and ordered
// by start time ascending; those two rules live in the repository, not here.
type Filter struct {
	Search   string
	Category string

	// Date bucket resolved to a half-open interval [DateFrom, DateTo).
	DateFrom *time.Time
	DateTo   *time.Time

	// Proximity constraint; active only when Geo is true.
	Geo          bool
	Lat          float64
	Lng          float64
	RadiusMeters float64
}

// ParseFilter builds a Filter from raw query parameters. now supplies the
// anchor for date buckets so tests can pin the clock. The second return
// value names the optional parameters that were dropped as malformed.
func ParseFilter(values url.Values, now func() time.Time) (Filter, []string) {
	var dropped []string

	f := Filter{
		Search:   values.Get("search"),
		Category: values.Get("category"),
	}

	if bucket := values.Get("date"); bucket != "" {
		from, to, ok := dateBucket(bucket, now())
		if ok {
			f.DateFrom = &from
			f.DateTo = &to
		} else {
			// Unrecognized bucket names are ignored, not rejected.
			dropped = append(dropped, "date")
		}
	}

	latRaw, lngRaw := values.Get("lat"), values.Get("lng")
	if latRaw != "" || lngRaw != "" {
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lng, lngErr := strconv.ParseFloat(lngRaw, 64)
		if latErr != nil || lngErr != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			dropped = append(dropped, "geo")
		} else {
			f.Geo = true
			f.Lat = lat
			f.Lng = lng
			f.RadiusMeters = DefaultRadiusKm * 1000
			if radiusRaw := values.Get("radius"); radiusRaw != "" {
				radius, err := strconv.ParseFloat(radiusRaw, 64)
				if err != nil || radius <= 0 {
					dropped = append(dropped, "radius")
				} else {
					f.RadiusMeters = radius * 1000
				}
			}
		}
	}

	return f, dropped
}

// dateBucket resolves a named bucket to a half-open [from, to) interval
// anchored at now. today and tomorrow are midnight-to-midnight in the
// request's local time; week and month start at the request moment.
func dateBucket(name string, now time.Time) (time.Time, time.Time, bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch name {
	case "today":
		return midnight, midnight.AddDate(0, 0, 1), true
	case "tomorrow":
		return midnight.AddDate(0, 0, 1), midnight.AddDate(0, 0, 2), true
	case "week":
		return now, now.AddDate(0, 0, 7), true
	case "month":
		return now, now.AddDate(0, 1, 0), true
	}
	return time.Time{}, time.Time{}, false
}
