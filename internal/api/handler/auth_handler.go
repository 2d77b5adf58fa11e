package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vriksha/farmfund/internal/api/middleware"
	"github.com/vriksha/farmfund/internal/domain"
	"github.com/vriksha/farmfund/internal/service"
)

// AuthHandler serves signup, login, token refresh, and profile endpoints.
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Signup godoc
// POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req service.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	resp, err := h.authSvc.Signup(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			respondError(c, http.StatusConflict, "ERR_EMAIL_TAKEN", err.Error())
			return
		}
		respondDomainError(c, err, "could not create account")
		return
	}
	respondSuccess(c, http.StatusCreated, resp)
}

// Login godoc
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	resp, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondDomainError(c, err, "could not log in")
		return
	}
	respondSuccess(c, http.StatusOK, resp)
}

// Refresh godoc
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	access, refresh, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondDomainError(c, err, "could not refresh token")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

// Me godoc
// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	profile, err := h.authSvc.GetProfile(c.Request.Context(), middleware.GetEmail(c))
	if err != nil {
		respondDomainError(c, err, "could not fetch profile")
		return
	}
	respondSuccess(c, http.StatusOK, profile)
}

// UpdateMe godoc
// PATCH /api/me
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	profile, err := h.authSvc.UpdateProfile(c.Request.Context(), middleware.GetEmail(c), req)
	if err != nil {
		respondDomainError(c, err, "could not update profile")
		return
	}
	respondSuccess(c, http.StatusOK, profile)
}

// SubmitKYC godoc
// POST /api/verify/kyc
func (h *AuthHandler) SubmitKYC(c *gin.Context) {
	var req service.KYCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	profile, err := h.authSvc.SubmitKYC(c.Request.Context(), middleware.GetEmail(c), req)
	if err != nil {
		respondDomainError(c, err, "could not submit verification")
		return
	}
	respondSuccess(c, http.StatusOK, profile)
}
