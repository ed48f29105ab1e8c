// Package agent implements the client side: geofence evaluation, the
// location permission monitor and the server sync session.
package agent

import (
	"context"
	"math"
)

// metersPerDegreeLatitude is close enough at office scale; geofence radii
// are tens to hundreds of meters.
const metersPerDegreeLatitude = 111_320.0

// DefaultGeofenceRadiusMeters is the radius used for site geofences.
const DefaultGeofenceRadiusMeters = 100.0

// Coords is a WGS84 position.
type Coords struct {
	Latitude  float64
	Longitude float64
}

// GeoCircle is a circular geofence around a site.
type GeoCircle struct {
	SiteID       string
	Center       Coords
	RadiusMeters float64
}

// Contains reports whether the position lies inside the circle, using a
// planar projection. The error is negligible at geofence distances.
func (g GeoCircle) Contains(p Coords) bool {
	return g.DistanceMeters(p) <= g.RadiusMeters
}

// DistanceMeters returns the approximate distance from the position to the
// circle's center.
func (g GeoCircle) DistanceMeters(p Coords) float64 {
	dLat := (p.Latitude - g.Center.Latitude) * metersPerDegreeLatitude
	dLon := (p.Longitude - g.Center.Longitude) * metersPerDegreeLatitude *
		math.Cos(g.Center.Latitude*math.Pi/180)
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// Locator abstracts the platform positioning source. Implementations are
// chosen at composition time per platform.
type Locator interface {
	// CurrentLocation returns the device position, or an error when no fix
	// is available.
	CurrentLocation(ctx context.Context) (Coords, error)
}
