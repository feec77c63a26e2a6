// Package domain holds the sentinel errors shared across services.
// Handlers translate them to HTTP statuses with errors.Is; services
// wrap them with context using fmt.Errorf and %w.
package domain

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrListingNotFound = errors.New("listing not found")
	ErrClaimNotFound   = errors.New("claim not found")
)

var (
	ErrDuplicateEmail     = errors.New("email is already registered")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many login attempts")
)

var (
	ErrNotAGiver    = errors.New("account is not a giver")
	ErrNotAReceiver = errors.New("account is not a receiver")
	ErrNotOwner     = errors.New("requester does not own this listing")
	ErrNotClaimant  = errors.New("requester does not hold this claim")
)

var (
	ErrListingClosed  = errors.New("listing is closed")
	ErrSlotsExhausted = errors.New("no slots remaining")
	ErrDuplicateClaim = errors.New("claimant already holds a claim on this listing")
)

var (
	// ErrValidation is wrapped with detail about the offending field.
	ErrValidation = errors.New("validation error")

	// ErrTransient marks collaborator failures that are safe to retry
	// with backoff. The operation either fully committed or fully
	// rolled back, never partially.
	ErrTransient = errors.New("transient backend error")
)
