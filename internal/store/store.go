// Package store defines the document-store port the services depend
// on. Two adapters implement it: memstore (in-process, used by tests
// and dev mode) and firestore (Cloud Firestore).
package store

import (
	"context"

	"github.com/mealbridge/mealbridge/pkg/geo"
	"github.com/mealbridge/mealbridge/pkg/models"
)

// ListingQuery narrows ListListings. Zero values mean "no filter".
type ListingQuery struct {
	Status   models.ListingStatus
	OwnerID  string
	City     string
	FoodType models.FoodType
	// Near is used by callers to sort after fetching; adapters do not
	// order by distance themselves.
	Near *geo.Point
}

// TxOps is the claim-record surface available inside a listing
// transaction. Every call takes effect in the same atomic unit as the
// listing mutation it accompanies.
type TxOps interface {
	// ClaimExists reports whether the claimant already holds a claim
	// on the listing.
	ClaimExists(listingID, claimantID string) (bool, error)

	// GetClaim returns the claim with this ID, or (nil, nil) when no
	// such claim exists. Cancellation gates on the specific claim ID:
	// checking by claimant alone would let a stale cancel match a
	// newer claim and restore a slot that was never freed.
	GetClaim(claimID string) (*models.Claim, error)

	// CreateClaim stages a new claim record.
	CreateClaim(claim *models.Claim) error

	// DeleteClaim stages removal of a claim record.
	DeleteClaim(claimID string) error
}

// Store is the document-store port. Lookups return (nil, nil) when the
// record does not exist; adapters return domain.Err* for conditions
// they can observe (missing listing in UpdateListing, exhausted
// transient retries).
type Store interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)

	CreateListing(ctx context.Context, listing *models.Listing) error
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	ListListings(ctx context.Context, q ListingQuery) ([]models.Listing, error)

	// UpdateListing runs mutate inside an atomic unit scoped to the
	// listing: the read of the listing, the mutation, and any claim
	// operations staged through TxOps commit together or not at all.
	// Concurrent calls for the same listing serialize; calls for
	// different listings never block each other. Returns
	// domain.ErrListingNotFound if the listing does not exist, and
	// mutate's error unchanged if mutate fails.
	UpdateListing(ctx context.Context, id string, mutate func(l *models.Listing, tx TxOps) error) error

	GetClaim(ctx context.Context, id string) (*models.Claim, error)
	ListClaimsByListing(ctx context.Context, listingID string) ([]models.Claim, error)
}
