// Package memstore is an in-memory Store adapter. It backs tests and
// the memory dev mode, and provides the same per-listing atomicity
// contract as the Firestore adapter: a listing's claim records are
// only ever mutated while that listing's lock is held.
package memstore

import (
	"context"
	"sync"

	"github.com/mealbridge/mealbridge/internal/domain"
	"github.com/mealbridge/mealbridge/internal/store"
	"github.com/mealbridge/mealbridge/pkg/models"
)

// Memstore implements store.Store with process-local maps.
type Memstore struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	listings map[string]models.Listing
	claims   map[string]models.Claim

	lockMu       sync.Mutex
	listingLocks map[string]*sync.Mutex
}

// New returns an empty Memstore.
func New() *Memstore {
	return &Memstore{
		accounts:     make(map[string]models.Account),
		listings:     make(map[string]models.Listing),
		claims:       make(map[string]models.Claim),
		listingLocks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding a single listing, creating it on
// first use. Lock granularity is per-listing, never global.
func (s *Memstore) lockFor(listingID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lk, ok := s.listingLocks[listingID]
	if !ok {
		lk = &sync.Mutex{}
		s.listingLocks[listingID] = lk
	}
	return lk
}

// --- Account operations ---

func (s *Memstore) CreateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = copyAccount(*account)
	return nil
}

func (s *Memstore) GetAccount(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	out := copyAccount(a)
	return &out, nil
}

func (s *Memstore) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Email == email {
			out := copyAccount(a)
			return &out, nil
		}
	}
	return nil, nil
}

// --- Listing operations ---

func (s *Memstore) CreateListing(_ context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[listing.ID] = *listing
	return nil
}

func (s *Memstore) GetListing(_ context.Context, id string) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, nil
	}
	out := l
	return &out, nil
}

func (s *Memstore) ListListings(_ context.Context, q store.ListingQuery) ([]models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Listing
	for _, l := range s.listings {
		if q.Status != "" && l.Status != q.Status {
			continue
		}
		if q.OwnerID != "" && l.OwnerID != q.OwnerID {
			continue
		}
		if q.City != "" && l.City != q.City {
			continue
		}
		if q.FoodType != "" && l.FoodType != q.FoodType {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Memstore) UpdateListing(_ context.Context, id string, mutate func(l *models.Listing, tx store.TxOps) error) error {
	lk := s.lockFor(id)
	lk.Lock()
	defer lk.Unlock()

	s.mu.RLock()
	current, ok := s.listings[id]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrListingNotFound
	}

	tx := &txOps{s: s, listingID: id}
	working := current

	if err := mutate(&working, tx); err != nil {
		return err
	}

	// Commit the listing and staged claim operations together so no
	// reader observes the slot count and status out of step.
	s.mu.Lock()
	defer s.mu.Unlock()

	working.Version = current.Version + 1
	s.listings[id] = working
	for _, c := range tx.created {
		s.claims[c.ID] = c
	}
	for _, claimID := range tx.deleted {
		delete(s.claims, claimID)
	}
	return nil
}

// --- Claim operations ---

func (s *Memstore) GetClaim(_ context.Context, id string) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.claims[id]
	if !ok {
		return nil, nil
	}
	out := c
	return &out, nil
}

func (s *Memstore) ListClaimsByListing(_ context.Context, listingID string) ([]models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Claim
	for _, c := range s.claims {
		if c.ListingID == listingID {
			out = append(out, c)
		}
	}
	return out, nil
}

// txOps stages claim mutations until the listing commit applies them.
type txOps struct {
	s         *Memstore
	listingID string
	created   []models.Claim
	deleted   []string
}

func (t *txOps) ClaimExists(listingID, claimantID string) (bool, error) {
	for _, c := range t.created {
		if c.ListingID == listingID && c.ClaimantID == claimantID {
			return true, nil
		}
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	for _, c := range t.s.claims {
		if t.isDeleted(c.ID) {
			continue
		}
		if c.ListingID == listingID && c.ClaimantID == claimantID {
			return true, nil
		}
	}
	return false, nil
}

func (t *txOps) GetClaim(claimID string) (*models.Claim, error) {
	if t.isDeleted(claimID) {
		return nil, nil
	}
	for _, c := range t.created {
		if c.ID == claimID {
			out := c
			return &out, nil
		}
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	c, ok := t.s.claims[claimID]
	if !ok {
		return nil, nil
	}
	out := c
	return &out, nil
}

// isDeleted reports whether the claim has been staged for deletion in
// this unit. Reads must not see claims the same unit already removed.
func (t *txOps) isDeleted(claimID string) bool {
	for _, id := range t.deleted {
		if id == claimID {
			return true
		}
	}
	return false
}

func (t *txOps) CreateClaim(claim *models.Claim) error {
	t.created = append(t.created, *claim)
	return nil
}

func (t *txOps) DeleteClaim(claimID string) error {
	t.deleted = append(t.deleted, claimID)
	return nil
}

func copyAccount(a models.Account) models.Account {
	if a.RegistrationLocation != nil {
		loc := *a.RegistrationLocation
		a.RegistrationLocation = &loc
	}
	return a
}
