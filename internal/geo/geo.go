// Package geo provides distance math for the proximity quote search.
package geo

import "math"

const earthRadiusMeters = 6371000

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// BoundingBox returns the lat/lon bounds of a square covering radiusMeters
// around a point. Used as an index-friendly prefilter before exact distance.
func BoundingBox(lat, lon, radiusMeters float64) (latMin, latMax, lonMin, lonMax float64) {
	const kmPerDegLat = 111.0
	kmPerDegLon := 111.0 * math.Cos(lat*math.Pi/180)

	radiusKm := radiusMeters / 1000
	dLat := radiusKm / kmPerDegLat
	dLon := radiusKm / kmPerDegLon
	return lat - dLat, lat + dLat, lon - dLon, lon + dLon
}
