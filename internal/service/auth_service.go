package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vriksha/farmfund/internal/config"
	"github.com/vriksha/farmfund/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Request / Response types
// ──────────────────────────────────────────────────────────────────────────────

// SignupRequest contains the fields required to create a new account.
type SignupRequest struct {
	Email    string  `json:"email"     binding:"required,email"`
	Password string  `json:"password"  binding:"required,min=8"`
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
}

// AuthResponse is returned on successful signup or login.
type AuthResponse struct {
	Profile      *domain.Profile `json:"profile"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
}

// TokenPair holds both tokens returned by generateTokenPair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ──────────────────────────────────────────────────────────────────────────────
// JWT claims
// ──────────────────────────────────────────────────────────────────────────────

// AppClaims extends jwt.RegisteredClaims with application-specific fields.
// Email identifies the actor for every fund authorization check.
type AppClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"type"` // "access" or "refresh"
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthService
// ──────────────────────────────────────────────────────────────────────────────

// AccountStore is the slice of the profile repository AuthService needs.
type AccountStore interface {
	Create(ctx context.Context, p *domain.Profile) error
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	UpdateContact(ctx context.Context, email string, fields map[string]interface{}) error
	SetInvestor(ctx context.Context, email string) error
	SetVerification(ctx context.Context, email, status string) error
	SetRole(ctx context.Context, email, role string, assignedFund *uuid.UUID) error
	ManagerAssignment(ctx context.Context, email string) (*uuid.UUID, bool, error)
}

// AuthService handles signup, login, token operations, and profile edits.
type AuthService struct {
	accounts AccountStore
	cfg      *config.Config
	log      *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(accounts AccountStore, cfg *config.Config, log *slog.Logger) *AuthService {
	return &AuthService{accounts: accounts, cfg: cfg, log: log}
}

// ──────────────────────────────────────────────────────────────────────────────
// Signup
// ──────────────────────────────────────────────────────────────────────────────

// Signup creates a new profile and returns a fresh token pair.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, fmt.Errorf("auth_service.Signup: hash: %w", err)
	}

	now := time.Now().UTC()
	profile := &domain.Profile{
		ID:                 uuid.New(),
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:       string(hash),
		FullName:           req.FullName,
		Phone:              req.Phone,
		Role:               "investor",
		VerificationStatus: "unverified",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.accounts.Create(ctx, profile); err != nil {
		return nil, err
	}

	pair, err := s.generateTokenPair(profile)
	if err != nil {
		return nil, fmt.Errorf("auth_service.Signup: tokens: %w", err)
	}
	return &AuthResponse{
		Profile:      profile,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Login
// ──────────────────────────────────────────────────────────────────────────────

// Login validates credentials and returns a fresh token pair. The profile's
// role is synced against the fund manager registry on every login so a
// delegation made while the profile was offline takes effect immediately.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	profile, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		// Map not-found to a generic credential error to prevent enumeration.
		return nil, domain.ErrInvalidCredentials
	}
	if err = bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	s.syncManagerRole(ctx, profile)

	pair, err := s.generateTokenPair(profile)
	if err != nil {
		return nil, fmt.Errorf("auth_service.Login: tokens: %w", err)
	}
	return &AuthResponse{
		Profile:      profile,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// syncManagerRole promotes a profile whose email appears in the manager
// registry. Failures keep the stored role.
func (s *AuthService) syncManagerRole(ctx context.Context, profile *domain.Profile) {
	assigned, found, err := s.accounts.ManagerAssignment(ctx, profile.Email)
	if err != nil {
		s.log.Warn("manager role sync failed", "email", profile.Email, "error", err)
		return
	}
	if !found || profile.Role == "fund_manager" {
		return
	}
	if err := s.accounts.SetRole(ctx, profile.Email, "fund_manager", assigned); err != nil {
		s.log.Warn("manager role promotion failed", "email", profile.Email, "error", err)
		return
	}
	profile.Role = "fund_manager"
	profile.AssignedFund = assigned
}

// ──────────────────────────────────────────────────────────────────────────────
// RefreshToken
// ──────────────────────────────────────────────────────────────────────────────

// RefreshToken validates a refresh token and issues a new token pair.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (string, string, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return "", "", domain.ErrTokenInvalid
	}
	if claims.TokenType != "refresh" {
		return "", "", domain.ErrTokenInvalid
	}

	profile, err := s.accounts.GetByEmail(ctx, claims.Email)
	if err != nil {
		return "", "", domain.ErrProfileNotFound
	}

	pair, err := s.generateTokenPair(profile)
	if err != nil {
		return "", "", fmt.Errorf("auth_service.RefreshToken: %w", err)
	}
	return pair.AccessToken, pair.RefreshToken, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Profile edits
// ──────────────────────────────────────────────────────────────────────────────

// UpdateProfileRequest carries the editable contact fields. Nil fields are
// left unchanged.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
}

// UpdateProfile applies contact edits and returns the refreshed profile.
func (s *AuthService) UpdateProfile(ctx context.Context, email string, req UpdateProfileRequest) (*domain.Profile, error) {
	fields := map[string]interface{}{}
	if req.FullName != nil {
		fields["full_name"] = *req.FullName
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if err := s.accounts.UpdateContact(ctx, email, fields); err != nil {
		return nil, err
	}
	return s.accounts.GetByEmail(ctx, email)
}

// KYCRequest carries identity and bank details for verification.
type KYCRequest struct {
	PANNumber     string `json:"pan_number"     binding:"required"`
	AadhaarNumber string `json:"aadhaar_number" binding:"required"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	IFSCCode      string `json:"ifsc_code"`
}

// SubmitKYC stores identity details and marks the profile verified. There is
// no external verification provider; the recorded details are reviewed
// offline.
func (s *AuthService) SubmitKYC(ctx context.Context, email string, req KYCRequest) (*domain.Profile, error) {
	fields := map[string]interface{}{
		"pan_number":          req.PANNumber,
		"aadhaar_number":      req.AadhaarNumber,
		"verification_status": "verified",
	}
	if req.BankName != "" {
		fields["bank_name"] = req.BankName
	}
	if req.AccountNumber != "" {
		fields["account_number"] = req.AccountNumber
	}
	if req.IFSCCode != "" {
		fields["ifsc_code"] = req.IFSCCode
	}
	if err := s.accounts.UpdateContact(ctx, email, fields); err != nil {
		return nil, err
	}
	if err := s.accounts.SetInvestor(ctx, email); err != nil {
		return nil, err
	}
	return s.accounts.GetByEmail(ctx, email)
}

// GetProfile returns the profile for an email.
func (s *AuthService) GetProfile(ctx context.Context, email string) (*domain.Profile, error) {
	return s.accounts.GetByEmail(ctx, email)
}

// ──────────────────────────────────────────────────────────────────────────────
// Token helpers
// ──────────────────────────────────────────────────────────────────────────────

// generateTokenPair creates a signed access token (AccessTTL) and a signed
// refresh token (RefreshTTL) for the given profile.
func (s *AuthService) generateTokenPair(profile *domain.Profile) (TokenPair, error) {
	now := time.Now().UTC()
	secret := []byte(s.cfg.JWT.AccessSecret) // same secret for both; type claim differentiates

	// The administrator is identified by config, not by a stored role.
	role := profile.Role
	if strings.EqualFold(profile.Email, s.cfg.Admin.Email) {
		role = "admin"
	}

	accessClaims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.AccessTTL)),
		},
		Email:     profile.Email,
		Role:      role,
		TokenType: "access",
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshClaims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.RefreshTTL)),
		},
		Email:     profile.Email,
		TokenType: "refresh",
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// parseToken validates the token signature, algorithm, and expiry.
func (s *AuthService) parseToken(tokenString string) (*AppClaims, error) {
	secret := []byte(s.cfg.JWT.AccessSecret)
	tok, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, domain.ErrTokenInvalid
	}
	claims, ok := tok.Claims.(*AppClaims)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

// ParseAccessToken is exported for use by the JWT middleware.
func (s *AuthService) ParseAccessToken(tokenString string) (*AppClaims, error) {
	return s.parseToken(tokenString)
}
