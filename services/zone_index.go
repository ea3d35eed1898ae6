package services

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/utils"

	"github.com/sirupsen/logrus"
)

// ZoneMatch is one zone containing (or near) a queried point.
type ZoneMatch struct {
	Zone *models.Zone
	// BoundaryDistanceM is the distance from the point to the zone
	// boundary: negative means inside (distance to the edge), positive
	// means outside.
	BoundaryDistanceM float64
	Inside            bool
}

// indexedZone precomputes what the hot path needs.
type indexedZone struct {
	zone    models.Zone
	polygon []utils.Coordinate
}

type zoneSnapshot struct {
	zones     []indexedZone
	refreshed time.Time
}

// ZoneIndex answers point-in-zone queries from an in-memory snapshot.
// The snapshot pointer is swapped atomically on refresh so readers
// never block; a failed refresh leaves the stale snapshot serving.
type ZoneIndex struct {
	zoneRepo *repositories.ZoneRepository
	snapshot atomic.Pointer[zoneSnapshot]
}

func NewZoneIndex(zoneRepo *repositories.ZoneRepository) *ZoneIndex {
	zi := &ZoneIndex{zoneRepo: zoneRepo}
	zi.snapshot.Store(&zoneSnapshot{})
	return zi
}

// Refresh rebuilds the snapshot from the database. Zones with
// malformed geometry are excluded with a warning.
func (zi *ZoneIndex) Refresh(ctx context.Context) error {
	zones, err := zi.zoneRepo.ListActive(ctx)
	if err != nil {
		logrus.Warnf("zone index refresh failed, serving stale snapshot: %v", err)
		return err
	}

	indexed := make([]indexedZone, 0, len(zones))
	for _, zone := range zones {
		iz := indexedZone{zone: zone}

		if zone.IsPolygon() {
			polygon := make([]utils.Coordinate, 0, len(zone.Bounds))
			valid := true
			for _, vertex := range zone.Bounds {
				if !utils.IsValidCoordinate(vertex.Lat, vertex.Lon) {
					valid = false
					break
				}
				polygon = append(polygon, utils.Coordinate{Latitude: vertex.Lat, Longitude: vertex.Lon})
			}
			if !valid || len(polygon) < 3 {
				logrus.Warnf("zone index: excluding zone %d (%s) with malformed polygon", zone.ID, zone.Name)
				continue
			}
			iz.polygon = polygon
		} else if zone.RadiusM <= 0 {
			logrus.Warnf("zone index: excluding zone %d (%s) with no radius and no polygon", zone.ID, zone.Name)
			continue
		}

		indexed = append(indexed, iz)
	}

	zi.snapshot.Store(&zoneSnapshot{zones: indexed, refreshed: time.Now()})
	logrus.Debugf("zone index refreshed: %d zones", len(indexed))
	return nil
}

// LoadZones injects a snapshot directly, without the geometry checks
// that Refresh applies. Tests use it; the zone service's invalidation
// path calls Refresh.
func (zi *ZoneIndex) LoadZones(zones []models.Zone) {
	indexed := make([]indexedZone, 0, len(zones))
	for _, zone := range zones {
		iz := indexedZone{zone: zone}
		if zone.IsPolygon() {
			polygon := make([]utils.Coordinate, 0, len(zone.Bounds))
			for _, vertex := range zone.Bounds {
				polygon = append(polygon, utils.Coordinate{Latitude: vertex.Lat, Longitude: vertex.Lon})
			}
			iz.polygon = polygon
		}
		indexed = append(indexed, iz)
	}
	zi.snapshot.Store(&zoneSnapshot{zones: indexed, refreshed: time.Now()})
}

// RefreshedAt reports when the serving snapshot was built.
func (zi *ZoneIndex) RefreshedAt() time.Time {
	return zi.snapshot.Load().refreshed
}

// Locate returns all zones containing the point. Containment is a
// closed region: a point exactly on the boundary is inside.
func (zi *ZoneIndex) Locate(lat, lon float64) []ZoneMatch {
	snap := zi.snapshot.Load()

	var matches []ZoneMatch
	for i := range snap.zones {
		iz := &snap.zones[i]

		if iz.polygon != nil {
			if utils.IsPointInPolygon(lat, lon, iz.polygon) {
				matches = append(matches, ZoneMatch{
					Zone:              &iz.zone,
					BoundaryDistanceM: -utils.DistanceToPolygonM(lat, lon, iz.polygon),
					Inside:            true,
				})
			}
			continue
		}

		dist := utils.CalculateDistance(lat, lon, iz.zone.Center.Lat, iz.zone.Center.Lon)
		if dist <= iz.zone.RadiusM {
			matches = append(matches, ZoneMatch{
				Zone:              &iz.zone,
				BoundaryDistanceM: dist - iz.zone.RadiusM,
				Inside:            true,
			})
		}
	}

	return matches
}

// Near returns all zones whose center lies within radiusM of the
// point, with their boundary distances, nearest first.
func (zi *ZoneIndex) Near(lat, lon, radiusM float64) []ZoneMatch {
	snap := zi.snapshot.Load()

	var matches []ZoneMatch
	for i := range snap.zones {
		iz := &snap.zones[i]

		centerDist := utils.CalculateDistance(lat, lon, iz.zone.Center.Lat, iz.zone.Center.Lon)
		if centerDist > radiusM {
			continue
		}

		match := ZoneMatch{Zone: &iz.zone}
		if iz.polygon != nil {
			edge := utils.DistanceToPolygonM(lat, lon, iz.polygon)
			match.Inside = utils.IsPointInPolygon(lat, lon, iz.polygon)
			if match.Inside {
				match.BoundaryDistanceM = -edge
			} else {
				match.BoundaryDistanceM = edge
			}
		} else {
			match.BoundaryDistanceM = centerDist - iz.zone.RadiusM
			match.Inside = match.BoundaryDistanceM <= 0
		}

		matches = append(matches, match)
	}

	// nearest boundary first
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].BoundaryDistanceM < matches[j-1].BoundaryDistanceM; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}

	return matches
}

// NearestRiskDistanceM returns the distance in meters to the nearest
// risky or restricted zone boundary, or +Inf when none is within the
// search radius. Feeds the zone-risk scoring factor.
func (zi *ZoneIndex) NearestRiskDistanceM(lat, lon, searchRadiusM float64) float64 {
	nearest := math.Inf(1)
	for _, match := range zi.Near(lat, lon, searchRadiusM) {
		if match.Zone.Type != models.ZoneRisky && match.Zone.Type != models.ZoneRestricted {
			continue
		}
		d := match.BoundaryDistanceM
		if d < 0 {
			d = 0
		}
		if d < nearest {
			nearest = d
		}
	}
	return nearest
}
