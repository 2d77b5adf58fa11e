package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Validation errors
var (
	// ErrMissingFundID is returned when a mutation is attempted without a
	// target fund identifier.
	ErrMissingFundID = errors.New("fund_id is required")

	// ErrInvalidUnitCount is returned when an investment requests zero or
	// negative units.
	ErrInvalidUnitCount = errors.New("stock count must be positive")

	// ErrInvalidFundName is returned when fund creation is attempted with a
	// blank name.
	ErrInvalidFundName = errors.New("fund name is required")

	// ErrInvalidAmount is returned when a financial update carries a zero or
	// negative amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Lookup errors
var (
	// ErrFundNotFound is returned when no fund matches the given id or slug.
	ErrFundNotFound = errors.New("fund not found")

	// ErrProfileNotFound is returned when no profile matches the given email.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrSnapshotNotFound is returned when a fund has no stored metrics row.
	// Callers normally fall back to the zero-state defaults instead of
	// surfacing this.
	ErrSnapshotNotFound = errors.New("no metrics snapshot for fund")
)

// Authorization errors
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller is neither the administrator
	// nor the fund's assigned manager.
	ErrForbidden = errors.New("only the administrator or the assigned fund manager can perform this action")

	// ErrInvalidCredentials is returned when login credentials are wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned on signup when the email already exists.
	ErrEmailTaken = errors.New("email address is already registered")

	// ErrTokenExpired is returned when a JWT has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or its
	// signature does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// Storage errors
var (
	// ErrSchemaMismatch is returned when a write was rejected for an unknown
	// column and every fallback payload also failed. The schema probe handles
	// the common drift cases before this surfaces.
	ErrSchemaMismatch = errors.New("storage schema does not accept the write")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinels so IsNotFound
// stays in sync automatically.
var notFoundErrors = []error{
	ErrFundNotFound,
	ErrProfileNotFound,
	ErrSnapshotNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this when translating domain errors to
// HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for malformed-request errors (HTTP 400).
func IsValidation(err error) bool {
	validationErrors := []error{
		ErrMissingFundID,
		ErrInvalidUnitCount,
		ErrInvalidFundName,
		ErrInvalidAmount,
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	authErrors := []error{
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrInvalidCredentials,
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
