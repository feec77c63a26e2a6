// Package geo provides coordinate validation, great-circle distance,
// and the browser geolocation failure reasons reported by clients.
// Location is always best-effort: a missing or failed position must
// never block account or listing creation.
package geo

import "math"

// earthRadiusKm is the mean radius of the Earth.
const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat" firestore:"lat"`
	Lng float64 `json:"lng" firestore:"lng"`
}

// Valid reports whether the point is within coordinate bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the great-circle distance between two points in
// kilometers, using the haversine formula.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// LocateFailure is the reason a client could not supply a position.
// The values mirror the browser geolocation error codes.
type LocateFailure string

const (
	FailurePermissionDenied    LocateFailure = "permission_denied"
	FailurePositionUnavailable LocateFailure = "position_unavailable"
	FailureTimeout             LocateFailure = "timeout"
	FailureUnknown             LocateFailure = "unknown"
)

// ParseFailure maps a client-reported reason string to a known
// LocateFailure. Unrecognized reasons collapse to FailureUnknown so
// each failure mode stays distinct without rejecting the request.
func ParseFailure(reason string) LocateFailure {
	switch LocateFailure(reason) {
	case FailurePermissionDenied, FailurePositionUnavailable, FailureTimeout:
		return LocateFailure(reason)
	default:
		return FailureUnknown
	}
}
