package models

import "time"

type ZoneType string

const (
	ZoneSafe       ZoneType = "safe"
	ZoneRisky      ZoneType = "risky"
	ZoneRestricted ZoneType = "restricted"
)

// Zone is a persisted geofence. A zone is either a disk
// (center + RadiusM) or a polygon (Bounds, at least three vertices).
// Deletion is soft via IsActive.
type Zone struct {
	ID          int64      `bson:"_id" json:"id"`
	Name        string     `bson:"name" json:"name"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	Type        ZoneType   `bson:"type" json:"type"`
	Center      GeoPoint   `bson:"center" json:"center"`
	RadiusM     float64    `bson:"radiusM,omitempty" json:"radiusM,omitempty"`
	Bounds      []GeoPoint `bson:"bounds,omitempty" json:"bounds,omitempty"`
	IsActive    bool       `bson:"isActive" json:"isActive"`
	CreatedBy   string     `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// IsPolygon reports whether the zone is bounded by vertices rather
// than a radius.
func (z *Zone) IsPolygon() bool {
	return len(z.Bounds) >= 3
}

type CreateZoneRequest struct {
	Name        string     `json:"name" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"omitempty,max=2000"`
	Type        string     `json:"type" validate:"required,zone_type"`
	CenterLat   float64    `json:"centerLat" validate:"gte=-90,lte=90"`
	CenterLon   float64    `json:"centerLon" validate:"gte=-180,lte=180"`
	RadiusM     float64    `json:"radiusM" validate:"omitempty,gt=0"`
	Bounds      []GeoPoint `json:"bounds" validate:"omitempty,min=3"`
}
