package services

import (
	"context"
	"sync"
	"time"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/utils"

	"go.mongodb.org/mongo-driver/mongo"
)

// EFIRService issues and verifies hash-chained incident reports.
// Issuance is serialized by an in-process mutex so two simultaneous
// issuances chain correctly; the unique indexes on number, tx_id and
// block_hash backstop multi-instance races.
type EFIRService struct {
	efirRepo      *repositories.EFIRRepository
	touristRepo   *repositories.TouristRepository
	authorityRepo *repositories.AuthorityRepository
	alertRepo     *repositories.AlertRepository
	validator     *utils.ValidationService

	issueMu sync.Mutex
}

func NewEFIRService(
	efirRepo *repositories.EFIRRepository,
	touristRepo *repositories.TouristRepository,
	authorityRepo *repositories.AuthorityRepository,
	alertRepo *repositories.AlertRepository,
) *EFIRService {
	return &EFIRService{
		efirRepo:      efirRepo,
		touristRepo:   touristRepo,
		authorityRepo: authorityRepo,
		alertRepo:     alertRepo,
		validator:     utils.NewValidationService(),
	}
}

// Issue mints an immutable E-FIR. filedBy identifies the officer for
// authority-filed reports and is empty for self-reports.
func (es *EFIRService) Issue(ctx context.Context, touristID, filedBy string, req models.GenerateEFIRRequest) (*models.EFIR, error) {
	if errs := es.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.NewValidationError(errs[0].Message)
	}

	tourist, err := es.touristRepo.GetByID(ctx, touristID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewTouristNotFoundError()
		}
		return nil, utils.NewDatabaseError("get tourist", err)
	}

	if req.AlertID != nil {
		if _, err := es.alertRepo.GetByID(ctx, *req.AlertID); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, utils.NewAlertNotFoundError()
			}
			return nil, utils.NewDatabaseError("get alert", err)
		}
	}

	var officer *models.EFIROfficerSnapshot
	source := models.EFIRSourceTourist
	if filedBy != "" {
		authority, err := es.authorityRepo.GetByID(ctx, filedBy)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, utils.NewNotFoundError("Authority")
			}
			return nil, utils.NewDatabaseError("get authority", err)
		}
		officer = &models.EFIROfficerSnapshot{
			AuthorityID: authority.ID,
			Name:        authority.Name,
			BadgeNumber: authority.BadgeNumber,
			Department:  authority.Department,
			Rank:        authority.Rank,
		}
		source = models.EFIRSourceAuthority
	}

	incidentTS := time.Now()
	if req.IncidentTimestamp != nil {
		incidentTS = *req.IncidentTimestamp
	}

	var location *models.GeoPoint
	if req.Lat != nil && req.Lon != nil {
		location = &models.GeoPoint{Lat: *req.Lat, Lon: *req.Lon}
	}

	nonce, err := utils.GenerateNonce(16)
	if err != nil {
		return nil, utils.NewInternalError("failed to generate nonce")
	}

	// Steps 1–5 run under the issuance lock: number allocation, chain
	// head read, hashing, and the insert.
	es.issueMu.Lock()
	defer es.issueMu.Unlock()

	number, err := es.efirRepo.NextNumber(ctx, time.Now())
	if err != nil {
		return nil, utils.NewDatabaseError("allocate E-FIR number", err)
	}

	prev, err := es.efirRepo.GetLatest(ctx)
	if err != nil {
		return nil, utils.NewDatabaseError("read chain head", err)
	}
	prevHash := GenesisBlockHash()
	if prev != nil {
		prevHash = prev.BlockHash
	}

	efir := &models.EFIR{
		EFIRNumber:        number,
		AlertID:           req.AlertID,
		TouristID:         tourist.ID,
		Source:            source,
		Description:       req.Description,
		IncidentLocation:  location,
		Witnesses:         req.Witnesses,
		Evidence:          req.Evidence,
		Tourist: models.EFIRTouristSnapshot{
			TouristID:        tourist.ID,
			Name:             tourist.Name,
			Email:            tourist.Email,
			Phone:            tourist.Phone,
			EmergencyContact: tourist.EmergencyContact,
			EmergencyPhone:   tourist.EmergencyPhone,
		},
		Officer:           officer,
		IncidentTimestamp: incidentTS,
		GeneratedAt:       time.Now(),
		Nonce:             nonce,
	}

	canonical, err := CanonicalBytes(efir)
	if err != nil {
		return nil, utils.NewInternalError("failed to encode E-FIR")
	}

	efir.TxID = ComputeTxID(canonical, nonce)
	efir.BlockHash = ComputeBlockHash(efir.TxID, prevHash, CanonicalTimestamp(efir.GeneratedAt))

	if err := es.efirRepo.Insert(ctx, efir); err != nil {
		return nil, utils.NewDatabaseError("insert E-FIR", err)
	}

	return efir, nil
}

// Verify recomputes the hashes of a stored record. A content mismatch
// is an invariant violation on an immutable record.
func (es *EFIRService) Verify(ctx context.Context, txID string) (*models.EFIRVerification, error) {
	efir, err := es.efirRepo.GetByTxID(ctx, txID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewEFIRNotFoundError()
		}
		return nil, utils.NewDatabaseError("get E-FIR", err)
	}

	prevHash := GenesisBlockHash()
	prev, err := es.efirRepo.GetPredecessor(ctx, efir.ID)
	if err != nil {
		return nil, utils.NewDatabaseError("get chain predecessor", err)
	}
	if prev != nil {
		prevHash = prev.BlockHash
	}

	result := VerifyRecord(efir, prevHash)
	return &result, nil
}

func (es *EFIRService) ListByTourist(ctx context.Context, touristID string, limit int64) ([]models.EFIR, error) {
	efirs, err := es.efirRepo.ListByTourist(ctx, touristID, limit)
	if err != nil {
		return nil, utils.NewDatabaseError("list E-FIRs", err)
	}
	return efirs, nil
}
