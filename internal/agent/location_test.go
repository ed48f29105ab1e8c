package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeoCircleContains(t *testing.T) {
	office := GeoCircle{
		SiteID:       "hq",
		Center:       Coords{Latitude: 48.1351, Longitude: 11.5820},
		RadiusMeters: 100,
	}

	assert.True(t, office.Contains(office.Center))

	// About 55m north of center.
	near := Coords{Latitude: 48.1351 + 0.0005, Longitude: 11.5820}
	assert.True(t, office.Contains(near))

	// About 1.1km north of center.
	far := Coords{Latitude: 48.1351 + 0.01, Longitude: 11.5820}
	assert.False(t, office.Contains(far))
}

func TestGeoCircleLongitudeScaling(t *testing.T) {
	// At 60 degrees latitude a longitude degree is about half as wide, so
	// the same longitude delta must yield roughly half the distance.
	equatorial := GeoCircle{Center: Coords{Latitude: 0, Longitude: 0}}
	northern := GeoCircle{Center: Coords{Latitude: 60, Longitude: 0}}

	dEquator := equatorial.DistanceMeters(Coords{Latitude: 0, Longitude: 0.001})
	dNorth := northern.DistanceMeters(Coords{Latitude: 60, Longitude: 0.001})

	assert.InDelta(t, dEquator/2, dNorth, dEquator*0.02)
}
