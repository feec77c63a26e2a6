// Package claims mediates slot claims against listings. Every slot
// decrement, claim insert, and status transition happens inside one
// per-listing atomic unit provided by the store, so capacity can never
// go negative and the exhausted transition is never observable apart
// from the decrement that caused it.
package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mealbridge/mealbridge/internal/domain"
	"github.com/mealbridge/mealbridge/internal/store"
	"github.com/mealbridge/mealbridge/pkg/models"
)

// Coordinator serializes claim traffic per listing.
type Coordinator struct {
	store store.Store
	now   func() time.Time
}

// New creates a claim coordinator.
func New(st store.Store) *Coordinator {
	return &Coordinator{store: st, now: time.Now}
}

// ClaimSlot reserves one slot on a listing for a receiver. At most one
// claim per claimant per listing. When two calls race for the last
// slot, exactly one succeeds; the other fails with ErrSlotsExhausted.
func (c *Coordinator) ClaimSlot(ctx context.Context, listingID, claimantID string) (*models.Claim, error) {
	claimant, err := c.store.GetAccount(ctx, claimantID)
	if err != nil {
		return nil, fmt.Errorf("lookup claimant: %w", err)
	}
	if claimant == nil {
		return nil, domain.ErrAccountNotFound
	}
	if claimant.Role != models.RoleReceiver {
		return nil, domain.ErrNotAReceiver
	}

	var created *models.Claim
	err = c.store.UpdateListing(ctx, listingID, func(l *models.Listing, tx store.TxOps) error {
		switch l.Status {
		case models.ListingStatusClosed:
			return domain.ErrListingClosed
		case models.ListingStatusExhausted:
			return domain.ErrSlotsExhausted
		}

		exists, err := tx.ClaimExists(listingID, claimantID)
		if err != nil {
			return fmt.Errorf("check existing claim: %w", err)
		}
		if exists {
			return domain.ErrDuplicateClaim
		}

		if l.RemainingSlots <= 0 {
			return domain.ErrSlotsExhausted
		}
		l.RemainingSlots--
		if l.RemainingSlots == 0 {
			l.Status = models.ListingStatusExhausted
		}

		claim := &models.Claim{
			ID:         uuid.New().String(),
			ListingID:  listingID,
			ClaimantID: claimantID,
			ClaimedAt:  c.now().UTC(),
		}
		if err := tx.CreateClaim(claim); err != nil {
			return fmt.Errorf("create claim: %w", err)
		}
		created = claim
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CancelClaim removes a claim and restores exactly one slot. The
// restore reverts an exhausted listing to available; a closed listing
// stays closed. Cancelling an unknown or already-cancelled claim
// fails with ErrClaimNotFound rather than silently succeeding.
func (c *Coordinator) CancelClaim(ctx context.Context, claimID, requesterID string) error {
	claim, err := c.store.GetClaim(ctx, claimID)
	if err != nil {
		return fmt.Errorf("get claim: %w", err)
	}
	if claim == nil {
		return domain.ErrClaimNotFound
	}
	if claim.ClaimantID != requesterID {
		return domain.ErrNotClaimant
	}

	return c.store.UpdateListing(ctx, claim.ListingID, func(l *models.Listing, tx store.TxOps) error {
		// Re-check this exact claim ID inside the atomic unit. A
		// concurrent cancel may have removed it, and the claimant may
		// have already claimed again; that newer claim must not let a
		// stale cancel restore a second slot.
		current, err := tx.GetClaim(claim.ID)
		if err != nil {
			return fmt.Errorf("check claim: %w", err)
		}
		if current == nil {
			return domain.ErrClaimNotFound
		}

		if err := tx.DeleteClaim(claim.ID); err != nil {
			return fmt.Errorf("delete claim: %w", err)
		}

		if l.RemainingSlots < l.TotalSlots {
			l.RemainingSlots++
		}
		if l.Status == models.ListingStatusExhausted && l.RemainingSlots > 0 {
			l.Status = models.ListingStatusAvailable
		}
		return nil
	})
}

// ListForListing returns the claims held against a listing, for the
// owner's view.
func (c *Coordinator) ListForListing(ctx context.Context, listingID string) ([]models.Claim, error) {
	claims, err := c.store.ListClaimsByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}
