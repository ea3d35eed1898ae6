package services

import (
	"context"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// AuthService owns registration and login for both roles. Tokens are
// HMAC-signed with {sub, role, exp}.
type AuthService struct {
	touristRepo   *repositories.TouristRepository
	authorityRepo *repositories.AuthorityRepository
	jwtService    *utils.JWTService
	validator     *utils.ValidationService
}

func NewAuthService(
	touristRepo *repositories.TouristRepository,
	authorityRepo *repositories.AuthorityRepository,
	jwtService *utils.JWTService,
) *AuthService {
	return &AuthService{
		touristRepo:   touristRepo,
		authorityRepo: authorityRepo,
		jwtService:    jwtService,
		validator:     utils.NewValidationService(),
	}
}

func (as *AuthService) RegisterTourist(ctx context.Context, req models.RegisterTouristRequest) (*models.Tourist, error) {
	if errs := as.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.NewValidationError(errs[0].Message)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.NewInternalError("failed to hash password")
	}

	tourist := &models.Tourist{
		ID:               utils.GenerateUUID(),
		Email:            req.Email,
		Name:             req.Name,
		Phone:            req.Phone,
		EmergencyContact: req.EmergencyContact,
		EmergencyPhone:   req.EmergencyPhone,
		PasswordHash:     string(hash),
		SafetyScore:      100,
		IsActive:         true,
	}

	if err := as.touristRepo.Create(ctx, tourist); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, utils.NewConflictError("email already registered")
		}
		return nil, utils.NewDatabaseError("create tourist", err)
	}

	return tourist, nil
}

func (as *AuthService) RegisterAuthority(ctx context.Context, req models.RegisterAuthorityRequest) (*models.Authority, error) {
	if errs := as.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.NewValidationError(errs[0].Message)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.NewInternalError("failed to hash password")
	}

	authority := &models.Authority{
		ID:           utils.GenerateUUID(),
		Email:        req.Email,
		Name:         req.Name,
		BadgeNumber:  req.BadgeNumber,
		Department:   req.Department,
		Rank:         req.Rank,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		IsActive:     true,
	}

	if err := as.authorityRepo.Create(ctx, authority); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, utils.NewConflictError("email or badge number already registered")
		}
		return nil, utils.NewDatabaseError("create authority", err)
	}

	return authority, nil
}

// LoginTourist checks credentials and mints a tourist token. Failures
// are indistinguishable to the caller.
func (as *AuthService) LoginTourist(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	tourist, err := as.touristRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, utils.NewInvalidCredentialsError()
	}
	if !tourist.IsActive {
		return nil, utils.NewInvalidCredentialsError()
	}
	if bcrypt.CompareHashAndPassword([]byte(tourist.PasswordHash), []byte(req.Password)) != nil {
		return nil, utils.NewInvalidCredentialsError()
	}

	return as.mintToken(tourist.ID, models.RoleTourist)
}

func (as *AuthService) LoginAuthority(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	authority, err := as.authorityRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, utils.NewInvalidCredentialsError()
	}
	if !authority.IsActive {
		return nil, utils.NewInvalidCredentialsError()
	}
	if bcrypt.CompareHashAndPassword([]byte(authority.PasswordHash), []byte(req.Password)) != nil {
		return nil, utils.NewInvalidCredentialsError()
	}

	return as.mintToken(authority.ID, models.RoleAuthority)
}

func (as *AuthService) mintToken(subject, role string) (*models.LoginResponse, error) {
	token, expiresAt, err := as.jwtService.GenerateToken(subject, role)
	if err != nil {
		return nil, utils.NewInternalError("failed to sign token")
	}

	return &models.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		UserID:      subject,
		Role:        role,
	}, nil
}

// ValidateToken validates a token and returns its claims.
func (as *AuthService) ValidateToken(token string) (*utils.Claims, error) {
	return as.jwtService.ValidateToken(token)
}
