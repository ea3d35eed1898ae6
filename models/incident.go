package models

import "time"

type IncidentStatus string

const (
	IncidentOpen          IncidentStatus = "open"
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentResolved      IncidentStatus = "resolved"
)

// Incident is the case record an authority opens from an alert.
// Exactly one incident per alert.
type Incident struct {
	ID              int64          `bson:"_id" json:"id"`
	AlertID         int64          `bson:"alertId" json:"alertId"`
	IncidentNumber  string         `bson:"incidentNumber" json:"incidentNumber"`
	Status          IncidentStatus `bson:"status" json:"status"`
	Priority        string         `bson:"priority,omitempty" json:"priority,omitempty"`
	AssignedTo      string         `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	ResolutionNotes string         `bson:"resolutionNotes,omitempty" json:"resolutionNotes,omitempty"`
	EFIRReference   string         `bson:"efirReference,omitempty" json:"efirReference,omitempty"`
	CreatedAt       time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time      `bson:"updatedAt" json:"updatedAt"`
}

type CreateIncidentRequest struct {
	AlertID  int64  `json:"alertId" validate:"required"`
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}
