// Package directory maps authenticated identities to accounts with a
// role and an optional registration location. It is the only package
// that talks to the identity provider.
package directory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mealbridge/mealbridge/internal/domain"
	"github.com/mealbridge/mealbridge/internal/identity"
	"github.com/mealbridge/mealbridge/internal/store"
	"github.com/mealbridge/mealbridge/pkg/geo"
	"github.com/mealbridge/mealbridge/pkg/models"
)

// Service is the account directory.
type Service struct {
	provider identity.Provider
	store    store.Store
	limiter  *loginLimiter
	now      func() time.Time
}

// Options tunes the defensive login rate limit.
type Options struct {
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

// New creates a directory service.
func New(provider identity.Provider, st store.Store, opts Options) *Service {
	if opts.LoginMaxAttempts <= 0 {
		opts.LoginMaxAttempts = 10
	}
	if opts.LoginWindow <= 0 {
		opts.LoginWindow = 15 * time.Minute
	}
	return &Service{
		provider: provider,
		store:    st,
		limiter:  newLoginLimiter(opts.LoginMaxAttempts, opts.LoginWindow),
		now:      time.Now,
	}
}

// Register creates an account with the given role. Location is
// best-effort and may be nil. The email is normalized before the
// duplicate check so Gmail aliases cannot register twice.
func (s *Service) Register(ctx context.Context, email, password string, role models.Role, location *geo.Point) (*models.Account, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	if location != nil && !location.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrValidation)
	}

	existing, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateEmail
	}

	providerID, err := s.provider.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}

	account := &models.Account{
		ID:                   providerID,
		Email:                email,
		Role:                 role,
		RegistrationLocation: location,
		CreatedAt:            s.now().UTC(),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		// Roll the identity back so the email does not end up owned by
		// an identity with no directory record, which would block both
		// re-registration and login.
		if delErr := s.provider.DeleteAccount(ctx, providerID); delErr != nil {
			log.Printf("Orphaned identity %s after store failure: %v", providerID, delErr)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// Authenticate verifies credentials against the identity provider and
// returns the directory account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	email = NormalizeEmail(email)

	if !s.limiter.allow(email) {
		return nil, domain.ErrRateLimited
	}

	providerID, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.limiter.fail(email)
		return nil, err
	}

	account, err := s.store.GetAccount(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if account == nil {
		// Identity exists but the directory record is missing.
		return nil, domain.ErrAccountNotFound
	}

	s.limiter.clear(email)
	return account, nil
}

// GetRole returns the role recorded for an account.
func (s *Service) GetRole(ctx context.Context, accountID string) (models.Role, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("lookup account: %w", err)
	}
	if account == nil {
		return "", domain.ErrAccountNotFound
	}
	return account.Role, nil
}

// Get returns the account for an ID.
func (s *Service) Get(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}
