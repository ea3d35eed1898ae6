package services

import (
	"sync"
	"testing"

	"safehorizon/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(zones ...models.Zone) *ZoneIndex {
	zi := NewZoneIndex(nil)
	zi.LoadZones(zones)
	return zi
}

func TestLocateDiskZone(t *testing.T) {
	// Restricted disk around Times Square, 200 m radius.
	zone := models.Zone{
		ID:       1,
		Name:     "Times Square cordon",
		Type:     models.ZoneRestricted,
		Center:   models.GeoPoint{Lat: 40.7589, Lon: -73.9851},
		RadiusM:  200,
		IsActive: true,
	}
	zi := newTestIndex(zone)

	// ~11 m north of center: inside.
	matches := zi.Locate(40.7590, -73.9851)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].Inside)
	assert.Equal(t, int64(1), matches[0].Zone.ID)
	assert.Negative(t, matches[0].BoundaryDistanceM)

	// Far away: no match.
	assert.Empty(t, zi.Locate(40.80, -73.9851))
}

func TestLocateDiskBoundaryIsClosed(t *testing.T) {
	// A point at exactly the radius distance counts as inside.
	zone := models.Zone{
		ID:      1,
		Type:    models.ZoneRisky,
		Center:  models.GeoPoint{Lat: 0, Lon: 0},
		RadiusM: 111195, // one degree of latitude along a meridian
	}
	zi := newTestIndex(zone)

	matches := zi.Locate(1.0, 0)
	require.Len(t, matches, 1, "boundary point must be inside the closed disk")
	assert.InDelta(t, 0, matches[0].BoundaryDistanceM, 50)
}

func TestLocatePolygonZone(t *testing.T) {
	zone := models.Zone{
		ID:     2,
		Name:   "river basin",
		Type:   models.ZoneRisky,
		Center: models.GeoPoint{Lat: 0.5, Lon: 0.5},
		Bounds: []models.GeoPoint{
			{Lat: 0, Lon: 0},
			{Lat: 0, Lon: 1},
			{Lat: 1, Lon: 1},
			{Lat: 1, Lon: 0},
		},
	}
	zi := newTestIndex(zone)

	inside := zi.Locate(0.5, 0.5)
	require.Len(t, inside, 1)
	assert.True(t, inside[0].Inside)

	assert.Empty(t, zi.Locate(1.5, 0.5))
	assert.Empty(t, zi.Locate(-0.1, 0.5))
}

func TestTwoVertexPolygonDoesNotMatchQueryPoint(t *testing.T) {
	zi := NewZoneIndex(nil)
	zi.LoadZones([]models.Zone{
		{ID: 1, Type: models.ZoneSafe, Center: models.GeoPoint{Lat: 10, Lon: 10}, RadiusM: 100},
	})

	// Two vertices do not make a polygon; with no radius the zone does
	// not contain the queried point.
	assert.Empty(t, newTestIndex(models.Zone{
		ID:     2,
		Type:   models.ZoneRisky,
		Bounds: []models.GeoPoint{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}},
	}).Locate(0.5, 0.5))

	// The valid disk still serves.
	assert.Len(t, zi.Locate(10, 10), 1)
}

func TestNearReturnsBoundaryDistances(t *testing.T) {
	near := models.Zone{ID: 1, Type: models.ZoneRisky, Center: models.GeoPoint{Lat: 0, Lon: 0.01}, RadiusM: 100}
	far := models.Zone{ID: 2, Type: models.ZoneRestricted, Center: models.GeoPoint{Lat: 0, Lon: 0.03}, RadiusM: 100}
	zi := newTestIndex(near, far)

	matches := zi.Near(0, 0, 5000)
	require.Len(t, matches, 2)

	// Nearest boundary first.
	assert.Equal(t, int64(1), matches[0].Zone.ID)
	assert.Equal(t, int64(2), matches[1].Zone.ID)
	assert.Less(t, matches[0].BoundaryDistanceM, matches[1].BoundaryDistanceM)
	assert.Positive(t, matches[0].BoundaryDistanceM)
}

func TestNearestRiskDistance(t *testing.T) {
	zones := []models.Zone{
		{ID: 1, Type: models.ZoneSafe, Center: models.GeoPoint{Lat: 0, Lon: 0.001}, RadiusM: 50},
		{ID: 2, Type: models.ZoneRisky, Center: models.GeoPoint{Lat: 0, Lon: 0.01}, RadiusM: 100},
	}
	zi := newTestIndex(zones...)

	// Safe zones are ignored; the risky boundary is ~1013 m out.
	dist := zi.NearestRiskDistanceM(0, 0, 5000)
	assert.InDelta(t, 1013, dist, 30)

	// Inside a risky zone the distance clamps to zero.
	assert.Equal(t, 0.0, zi.NearestRiskDistanceM(0, 0.01, 5000))

	// Nothing in range.
	empty := newTestIndex()
	assert.True(t, empty.NearestRiskDistanceM(0, 0, 5000) > 1e17)
}

func TestSnapshotSwapDoesNotBlockReaders(t *testing.T) {
	zi := newTestIndex(models.Zone{
		ID: 1, Type: models.ZoneSafe,
		Center: models.GeoPoint{Lat: 0, Lon: 0}, RadiusM: 1000,
	})

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				zi.LoadZones([]models.Zone{
					{ID: 2, Type: models.ZoneRisky, Center: models.GeoPoint{Lat: 0, Lon: 0}, RadiusM: 500},
				})
			}
		}
	}()

	// Readers always observe a complete snapshot: zero or one match,
	// never a torn state.
	for i := 0; i < 10000; i++ {
		matches := zi.Locate(0, 0)
		require.LessOrEqual(t, len(matches), 1)
	}

	close(stop)
	wg.Wait()
}
