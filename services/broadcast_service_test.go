package services

import (
	"testing"
	"time"

	"safehorizon/models"
	"safehorizon/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// offsetKm moves a point north by the given distance.
func offsetKm(lat float64, km float64) float64 {
	return lat + km/111.195
}

func TestFilterByRadiusTargeting(t *testing.T) {
	centerLat, centerLon := 19.0760, 72.8777
	seen := time.Now().Add(-time.Hour)

	tourists := []models.Tourist{
		{ID: "T4", LastLocation: &models.GeoPoint{Lat: offsetKm(centerLat, 1.2), Lon: centerLon}, LastSeen: &seen},
		{ID: "T5", LastLocation: &models.GeoPoint{Lat: offsetKm(centerLat, 4.8), Lon: centerLon}, LastSeen: &seen},
		{ID: "T6", LastLocation: &models.GeoPoint{Lat: offsetKm(centerLat, 6.0), Lon: centerLon}, LastSeen: &seen},
	}

	targets := FilterByRadius(tourists, centerLat, centerLon, 5)
	require.Len(t, targets, 2)
	assert.Equal(t, "T4", targets[0].ID)
	assert.Equal(t, "T5", targets[1].ID)
}

func TestFilterByRadiusSkipsUnlocated(t *testing.T) {
	tourists := []models.Tourist{
		{ID: "T1"},
		{ID: "T2", LastLocation: &models.GeoPoint{Lat: 0, Lon: 0}},
	}

	targets := FilterByRadius(tourists, 0, 0, 1)
	require.Len(t, targets, 1)
	assert.Equal(t, "T2", targets[0].ID)
}

func TestFilterByRadiusBoundaryInclusive(t *testing.T) {
	// A tourist at exactly the radius distance stays in the set.
	lat := offsetKm(0, 5.0)
	tourists := []models.Tourist{
		{ID: "edge", LastLocation: &models.GeoPoint{Lat: lat, Lon: 0}},
	}

	dist := utils.CalculateDistanceKm(0, 0, lat, 0)
	require.InDelta(t, 5.0, dist, 0.01)

	assert.Len(t, FilterByRadius(tourists, 0, 0, dist), 1)
	assert.Empty(t, FilterByRadius(tourists, 0, 0, 4.9))
}
