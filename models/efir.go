package models

import "time"

type EFIRSource string

const (
	EFIRSourceTourist   EFIRSource = "tourist"
	EFIRSourceAuthority EFIRSource = "authority"
)

// EFIRTouristSnapshot freezes the tourist's contact details at issue
// time so later profile edits cannot change the record.
type EFIRTouristSnapshot struct {
	TouristID        string `bson:"touristId" json:"touristId"`
	Name             string `bson:"name,omitempty" json:"name,omitempty"`
	Email            string `bson:"email" json:"email"`
	Phone            string `bson:"phone,omitempty" json:"phone,omitempty"`
	EmergencyContact string `bson:"emergencyContact,omitempty" json:"emergencyContact,omitempty"`
	EmergencyPhone   string `bson:"emergencyPhone,omitempty" json:"emergencyPhone,omitempty"`
}

// EFIROfficerSnapshot freezes the filing officer. Nil for
// tourist-filed reports.
type EFIROfficerSnapshot struct {
	AuthorityID string `bson:"authorityId" json:"authorityId"`
	Name        string `bson:"name" json:"name"`
	BadgeNumber string `bson:"badgeNumber" json:"badgeNumber"`
	Department  string `bson:"department" json:"department"`
	Rank        string `bson:"rank,omitempty" json:"rank,omitempty"`
}

// EFIR is an immutable, hash-chained incident report. No field is ever
// updated after insert; TxID and BlockHash are unique, and each
// BlockHash commits to the previous record's BlockHash.
type EFIR struct {
	ID                int64                `bson:"_id" json:"id"`
	EFIRNumber        string               `bson:"efirNumber" json:"efir_number"`
	AlertID           *int64               `bson:"alertId,omitempty" json:"alertId,omitempty"`
	TouristID         string               `bson:"touristId" json:"touristId"`
	Source            EFIRSource           `bson:"source" json:"source"`
	Description       string               `bson:"description" json:"description"`
	IncidentLocation  *GeoPoint            `bson:"incidentLocation,omitempty" json:"incidentLocation,omitempty"`
	Witnesses         []string             `bson:"witnesses,omitempty" json:"witnesses,omitempty"`
	Evidence          []string             `bson:"evidence,omitempty" json:"evidence,omitempty"`
	Tourist           EFIRTouristSnapshot  `bson:"tourist" json:"tourist"`
	Officer           *EFIROfficerSnapshot `bson:"officer,omitempty" json:"officer,omitempty"`
	IncidentTimestamp time.Time            `bson:"incidentTimestamp" json:"incidentTimestamp"`
	GeneratedAt       time.Time            `bson:"generatedAt" json:"generatedAt"`
	Nonce             string               `bson:"nonce" json:"-"`
	TxID              string               `bson:"txId" json:"tx_id"`
	BlockHash         string               `bson:"blockHash" json:"block_hash"`
}

type GenerateEFIRRequest struct {
	AlertID           *int64     `json:"alertId,omitempty"`
	Description       string     `json:"description" validate:"required,min=1,max=8000"`
	Lat               *float64   `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lon               *float64   `json:"lon,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Witnesses         []string   `json:"witnesses,omitempty" validate:"omitempty,dive,max=200"`
	Evidence          []string   `json:"evidence,omitempty" validate:"omitempty,dive,max=500"`
	IncidentTimestamp *time.Time `json:"incidentTimestamp,omitempty"`
}

// EFIRVerification is the result of recomputing an E-FIR's hashes.
type EFIRVerification struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	TxID       string `json:"tx_id"`
	EFIRNumber string `json:"efir_number,omitempty"`
}
