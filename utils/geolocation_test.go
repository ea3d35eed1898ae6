package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateDistance(t *testing.T) {
	// One degree of latitude is ~111.2 km.
	assert.InDelta(t, 111195, CalculateDistance(0, 0, 1, 0), 100)

	// Zero distance.
	assert.InDelta(t, 0, CalculateDistance(48.8566, 2.3522, 48.8566, 2.3522), 0.001)

	// Delhi to Mumbai is roughly 1150 km.
	assert.InDelta(t, 1150, CalculateDistanceKm(28.6139, 77.2090, 19.0760, 72.8777), 30)
}

func TestIsValidCoordinate(t *testing.T) {
	assert.True(t, IsValidCoordinate(0, 0))
	assert.True(t, IsValidCoordinate(-90, 180))
	assert.False(t, IsValidCoordinate(90.1, 0))
	assert.False(t, IsValidCoordinate(0, -180.5))
}

func TestIsPointInPolygon(t *testing.T) {
	square := []Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 2},
		{Latitude: 2, Longitude: 2},
		{Latitude: 2, Longitude: 0},
	}

	assert.True(t, IsPointInPolygon(1, 1, square))
	assert.False(t, IsPointInPolygon(3, 1, square))
	assert.False(t, IsPointInPolygon(-0.001, 1, square))

	// Points on an edge or a vertex count as inside.
	assert.True(t, IsPointInPolygon(0, 1, square))
	assert.True(t, IsPointInPolygon(0, 0, square))

	// Degenerate polygon.
	assert.False(t, IsPointInPolygon(0, 0, square[:2]))
}

func TestDistanceToPolygonM(t *testing.T) {
	square := []Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 1, Longitude: 1},
		{Latitude: 1, Longitude: 0},
	}

	// Half a degree south of the bottom edge.
	dist := DistanceToPolygonM(-0.5, 0.5, square)
	assert.InDelta(t, 55598, dist, 200)

	// On the edge.
	assert.InDelta(t, 0, DistanceToPolygonM(0, 0.5, square), 1)
}

func TestCalculateBoundingBox(t *testing.T) {
	box := CalculateBoundingBox(0, 0, 1000)

	assert.Greater(t, box.NorthEast.Latitude, 0.0)
	assert.Less(t, box.SouthWest.Latitude, 0.0)
	require.InDelta(t, 0.009, box.NorthEast.Latitude, 0.001)
}

func TestCoarsenCoordinate(t *testing.T) {
	lat, lon := CoarsenCoordinate(28.61391234, 77.20901234, 100)

	// Snapped coordinates differ from the raw input but stay within
	// one grid cell.
	assert.InDelta(t, 28.61391234, lat, 0.001)
	assert.InDelta(t, 77.20901234, lon, 0.001)

	// Re-snapping is a fixed point.
	lat2, lon2 := CoarsenCoordinate(lat, lon, 100)
	assert.InDelta(t, lat, lat2, 1e-9)
	assert.InDelta(t, lon, lon2, 1e-9)

	// Nearby points collapse onto the same cell.
	a1, o1 := CoarsenCoordinate(28.613900, 77.209000, 100)
	a2, o2 := CoarsenCoordinate(28.613905, 77.209005, 100)
	assert.Equal(t, a1, a2)
	assert.Equal(t, o1, o2)
}

func TestMedianAndStdDev(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 3.0, Median([]float64{3}))
	assert.Equal(t, 2.5, Median([]float64{1, 2, 3, 4}))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))

	// Median must not reorder the caller's slice.
	input := []float64{5, 1, 3}
	Median(input)
	assert.Equal(t, []float64{5, 1, 3}, input)

	assert.Equal(t, 0.0, StdDev(nil))
	assert.Equal(t, 0.0, StdDev([]float64{2, 2, 2}))
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}
