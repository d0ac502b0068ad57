package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	nyc := Point{Lat: 40.7128, Lon: -74.0060}
	la := Point{Lat: 34.0522, Lon: -118.2437}

	assert.InDelta(t, 3935.7, Distance(nyc, la), 5)
	assert.InDelta(t, 0, Distance(nyc, nyc), 1e-9)
	assert.InDelta(t, Distance(nyc, la), Distance(la, nyc), 1e-9)
}

func TestDistanceShortHop(t *testing.T) {
	center := Point{Lat: 40.71, Lon: -74.01}
	near := Point{Lat: 40.70, Lon: -74.00}
	assert.InDelta(t, 1.4, Distance(center, near), 0.1)
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	center := Point{Lat: 40.71, Lon: -74.01}
	box := BoundingBox(center, 50)

	assert.True(t, box.Contains(Point{Lat: 40.70, Lon: -74.00}))
	assert.False(t, box.Contains(Point{Lat: 34.05, Lon: -118.24}))

	// points just inside the radius along each axis stay in the box
	assert.True(t, box.Contains(Point{Lat: 41.15, Lon: -74.01}))
	assert.True(t, box.Contains(Point{Lat: 40.71, Lon: -73.45}))
}

func TestBoundingBoxPoleWidens(t *testing.T) {
	box := BoundingBox(Point{Lat: 89.9, Lon: 10}, 100)
	assert.Equal(t, 90.0, box.MaxLat)
	assert.Equal(t, -180.0, box.MinLon)
	assert.Equal(t, 180.0, box.MaxLon)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Point{Lat: 0, Lon: 0}.Validate())
	assert.Error(t, Point{Lat: 91, Lon: 0}.Validate())
	assert.Error(t, Point{Lat: 0, Lon: -181}.Validate())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2345))
}
