// Package identity defines the identity-provider port. The directory
// stores its own role/location record keyed by the provider ID this
// port returns; credentials never touch the rest of the system.
package identity

import "context"

// Provider creates and verifies credentialed identities.
type Provider interface {
	// CreateAccount registers new credentials and returns the provider
	// ID. Fails with domain.ErrDuplicateEmail if the email is taken.
	CreateAccount(ctx context.Context, email, password string) (string, error)

	// SignIn verifies credentials and returns the provider ID. Fails
	// with domain.ErrAccountNotFound for an unknown email and
	// domain.ErrInvalidCredentials on a password mismatch.
	SignIn(ctx context.Context, email, password string) (string, error)

	// DeleteAccount removes the identity. The directory uses it to
	// compensate when its own record cannot be written after a
	// CreateAccount, so the email stays registerable. Deleting an
	// unknown ID is not an error.
	DeleteAccount(ctx context.Context, providerID string) error
}
