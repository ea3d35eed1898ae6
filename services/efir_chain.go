package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"safehorizon/models"
)

// Genesis value for the first record's previous-hash link. The chain
// id is fixed for the deployment.
const efirChainID = "safehorizon-efir-chain"

// GenesisBlockHash anchors the chain: the first E-FIR's block hash is
// computed against this value.
func GenesisBlockHash() string {
	sum := sha256.Sum256([]byte(efirChainID + ":genesis"))
	return hex.EncodeToString(sum[:])
}

// canonicalEFIR is the byte representation that the content hash
// commits to. Field order is fixed by the struct declaration, so the
// encoding is stable.
type canonicalEFIR struct {
	EFIRNumber        string                      `json:"efir_number"`
	AlertID           *int64                      `json:"alert_id"`
	TouristID         string                      `json:"tourist_id"`
	Source            models.EFIRSource           `json:"source"`
	Description       string                      `json:"description"`
	IncidentLocation  *models.GeoPoint            `json:"incident_location"`
	Witnesses         []string                    `json:"witnesses"`
	Evidence          []string                    `json:"evidence"`
	Tourist           models.EFIRTouristSnapshot  `json:"tourist"`
	Officer           *models.EFIROfficerSnapshot `json:"officer"`
	IncidentTimestamp string                      `json:"incident_timestamp"`
	GeneratedAt       string                      `json:"generated_at"`
	ChainID           string                      `json:"chain_id"`
}

// CanonicalBytes renders the record's immutable content.
func CanonicalBytes(efir *models.EFIR) ([]byte, error) {
	return json.Marshal(canonicalEFIR{
		EFIRNumber:        efir.EFIRNumber,
		AlertID:           efir.AlertID,
		TouristID:         efir.TouristID,
		Source:            efir.Source,
		Description:       efir.Description,
		IncidentLocation:  efir.IncidentLocation,
		Witnesses:         efir.Witnesses,
		Evidence:          efir.Evidence,
		Tourist:           efir.Tourist,
		Officer:           efir.Officer,
		IncidentTimestamp: CanonicalTimestamp(efir.IncidentTimestamp),
		GeneratedAt:       CanonicalTimestamp(efir.GeneratedAt),
		ChainID:           efirChainID,
	})
}

// CanonicalTimestamp is the single timestamp rendering used in
// hashing.
func CanonicalTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ComputeTxID hashes canonical content with the record's nonce.
func ComputeTxID(canonical []byte, nonceHex string) string {
	h := sha256.New()
	h.Write(canonical)
	h.Write([]byte(nonceHex))
	return hex.EncodeToString(h.Sum(nil))
}

// ComputeBlockHash chains a record onto its predecessor.
func ComputeBlockHash(txID, prevBlockHash, canonicalTS string) string {
	h := sha256.New()
	h.Write([]byte(txID))
	h.Write([]byte(prevBlockHash))
	h.Write([]byte(canonicalTS))
	return hex.EncodeToString(h.Sum(nil))
}

// Verification failure reasons.
const (
	VerifyContentMismatch = "content_hash_mismatch"
	VerifyChainMismatch   = "chain_mismatch"
)

// VerifyRecord recomputes both hashes of a stored record against the
// predecessor's block hash (or the genesis value).
func VerifyRecord(efir *models.EFIR, prevBlockHash string) models.EFIRVerification {
	result := models.EFIRVerification{
		TxID:       efir.TxID,
		EFIRNumber: efir.EFIRNumber,
	}

	canonical, err := CanonicalBytes(efir)
	if err != nil {
		result.Reason = VerifyContentMismatch
		return result
	}

	if ComputeTxID(canonical, efir.Nonce) != efir.TxID {
		result.Reason = VerifyContentMismatch
		return result
	}

	if ComputeBlockHash(efir.TxID, prevBlockHash, CanonicalTimestamp(efir.GeneratedAt)) != efir.BlockHash {
		result.Reason = VerifyChainMismatch
		return result
	}

	result.Valid = true
	return result
}
