package service

import (
	"errors"

	"github.com/sifan077/ShortcutURL/internal/app/gate"
	"github.com/sifan077/ShortcutURL/internal/app/model"
)

// Validation errors.
var (
	ErrInvalidURL      = errors.New("destination must be an absolute http or https url")
	ErrInvalidAlias    = errors.New("alias must be 3-32 characters of letters, digits, '-' or '_'")
	ErrReservedAlias   = errors.New("alias is reserved")
	ErrInvalidExpiry   = errors.New("expiry must be between 1 and 3650 days")
	ErrInvalidPassword = errors.New("password must be at least 6 characters")
	ErrInvalidProfile  = errors.New("name and a valid email are required")
	ErrInvalidPlan     = errors.New("unknown subscription plan")
)

// Human verification errors.
var (
	ErrVerificationRequired = errors.New("human verification token required")
	ErrVerificationFailed   = errors.New("human verification failed")
)

// Authorization and state errors.
var (
	ErrQuotaExceeded      = errors.New("link quota reached for current plan")
	ErrAliasTaken         = errors.New("alias is already in use")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique short code")
	ErrLinkExpired        = errors.New("link has expired")
	ErrPasswordRequired   = errors.New("link is password protected")
	ErrPasswordMismatch   = errors.New("incorrect link password")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSubscription     = model.ErrNoActiveSubscription
)

// Provider errors.
var (
	ErrInvalidSignature    = errors.New("webhook signature verification failed")
	ErrProviderUnavailable = errors.New("upstream provider unavailable")
)

// IsUpsell reports whether err should route the client to an upgrade flow.
func IsUpsell(err error) bool {
	return errors.Is(err, gate.ErrPremiumRequired) || errors.Is(err, ErrQuotaExceeded)
}
