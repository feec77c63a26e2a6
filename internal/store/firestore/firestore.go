// Package firestore is the Cloud Firestore adapter for store.Store.
// Collection layout follows the product's original document shape:
// accounts live in "users" keyed by the identity provider UID,
// listings in "food_alerts", claims in "claims".
//
// The per-listing atomic unit maps onto a Firestore transaction: the
// listing read, the slot/status mutation, and any claim writes commit
// together. Firestore aborts and re-runs conflicting transactions, so
// two racing claims on the same listing serialize while claims on
// different listings proceed independently.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mealbridge/mealbridge/internal/domain"
	"github.com/mealbridge/mealbridge/internal/store"
	"github.com/mealbridge/mealbridge/pkg/models"
)

const (
	accountsCollection = "users"
	listingsCollection = "food_alerts"
	claimsCollection   = "claims"
)

// maxRetries bounds the transient-error retry loop on read paths.
const maxRetries = 3

// Store implements store.Store on Cloud Firestore.
type Store struct {
	client *firestore.Client
}

// Config selects the Firestore project and database.
type Config struct {
	ProjectID       string
	Database        string
	CredentialsPath string
}

// New connects to Firestore. Credentials fall back to application
// default credentials when no path is configured (and to the emulator
// when FIRESTORE_EMULATOR_HOST is set, which the client honors).
func New(ctx context.Context, cfg Config) (*Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	database := cfg.Database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, database, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect firestore: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// --- Account operations ---

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	_, err := s.client.Collection(accountsCollection).Doc(account.ID).Create(ctx, account)
	if err != nil {
		return classify("create account", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account *models.Account
	err := s.withRetry(ctx, func() error {
		snap, err := s.client.Collection(accountsCollection).Doc(id).Get(ctx)
		if status.Code(err) == codes.NotFound {
			account = nil
			return nil
		}
		if err != nil {
			return err
		}
		a := &models.Account{}
		if err := snap.DataTo(a); err != nil {
			return err
		}
		a.ID = snap.Ref.ID
		account = a
		return nil
	})
	if err != nil {
		return nil, classify("get account", err)
	}
	return account, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account *models.Account
	err := s.withRetry(ctx, func() error {
		iter := s.client.Collection(accountsCollection).
			Where("email", "==", email).Limit(1).Documents(ctx)
		defer iter.Stop()

		snap, err := iter.Next()
		if err == iterator.Done {
			account = nil
			return nil
		}
		if err != nil {
			return err
		}
		a := &models.Account{}
		if err := snap.DataTo(a); err != nil {
			return err
		}
		a.ID = snap.Ref.ID
		account = a
		return nil
	})
	if err != nil {
		return nil, classify("get account by email", err)
	}
	return account, nil
}

// --- Listing operations ---

func (s *Store) CreateListing(ctx context.Context, listing *models.Listing) error {
	_, err := s.client.Collection(listingsCollection).Doc(listing.ID).Create(ctx, listing)
	if err != nil {
		return classify("create listing", err)
	}
	return nil
}

func (s *Store) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	var listing *models.Listing
	err := s.withRetry(ctx, func() error {
		snap, err := s.client.Collection(listingsCollection).Doc(id).Get(ctx)
		if status.Code(err) == codes.NotFound {
			listing = nil
			return nil
		}
		if err != nil {
			return err
		}
		l := &models.Listing{}
		if err := snap.DataTo(l); err != nil {
			return err
		}
		l.ID = snap.Ref.ID
		listing = l
		return nil
	})
	if err != nil {
		return nil, classify("get listing", err)
	}
	return listing, nil
}

func (s *Store) ListListings(ctx context.Context, q store.ListingQuery) ([]models.Listing, error) {
	query := s.client.Collection(listingsCollection).Query
	if q.Status != "" {
		query = query.Where("status", "==", string(q.Status))
	}
	if q.OwnerID != "" {
		query = query.Where("ownerId", "==", q.OwnerID)
	}
	if q.City != "" {
		query = query.Where("city", "==", q.City)
	}
	if q.FoodType != "" {
		query = query.Where("foodType", "==", string(q.FoodType))
	}
	query = query.OrderBy("createdAt", firestore.Desc)

	var listings []models.Listing
	err := s.withRetry(ctx, func() error {
		listings = listings[:0]
		iter := query.Documents(ctx)
		defer iter.Stop()

		for {
			snap, err := iter.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			var l models.Listing
			if err := snap.DataTo(&l); err != nil {
				return err
			}
			l.ID = snap.Ref.ID
			listings = append(listings, l)
		}
	})
	if err != nil {
		return nil, classify("list listings", err)
	}
	return listings, nil
}

func (s *Store) UpdateListing(ctx context.Context, id string, mutate func(l *models.Listing, tx store.TxOps) error) error {
	ref := s.client.Collection(listingsCollection).Doc(id)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return domain.ErrListingNotFound
		}
		if err != nil {
			return err
		}

		var listing models.Listing
		if err := snap.DataTo(&listing); err != nil {
			return err
		}
		listing.ID = snap.Ref.ID

		ops := &txOps{s: s, tx: tx}
		if err := ops.run(&listing, mutate); err != nil {
			return err
		}

		listing.Version++
		return tx.Set(ref, &listing)
	})
	if err != nil {
		return classify("update listing", err)
	}
	return nil
}

// --- Claim operations ---

func (s *Store) GetClaim(ctx context.Context, id string) (*models.Claim, error) {
	var claim *models.Claim
	err := s.withRetry(ctx, func() error {
		snap, err := s.client.Collection(claimsCollection).Doc(id).Get(ctx)
		if status.Code(err) == codes.NotFound {
			claim = nil
			return nil
		}
		if err != nil {
			return err
		}
		c := &models.Claim{}
		if err := snap.DataTo(c); err != nil {
			return err
		}
		c.ID = snap.Ref.ID
		claim = c
		return nil
	})
	if err != nil {
		return nil, classify("get claim", err)
	}
	return claim, nil
}

func (s *Store) ListClaimsByListing(ctx context.Context, listingID string) ([]models.Claim, error) {
	var claims []models.Claim
	err := s.withRetry(ctx, func() error {
		claims = claims[:0]
		iter := s.client.Collection(claimsCollection).
			Where("listingId", "==", listingID).Documents(ctx)
		defer iter.Stop()

		for {
			snap, err := iter.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			var c models.Claim
			if err := snap.DataTo(&c); err != nil {
				return err
			}
			c.ID = snap.Ref.ID
			claims = append(claims, c)
		}
	})
	if err != nil {
		return nil, classify("list claims", err)
	}
	return claims, nil
}

// txOps exposes claim writes inside a listing transaction. Firestore
// requires all transaction reads before the first write, so ClaimExists
// is only valid before CreateClaim/DeleteClaim; the coordinator's
// check-then-write order satisfies this.
type txOps struct {
	s  *Store
	tx *firestore.Transaction
}

func (t *txOps) run(listing *models.Listing, mutate func(l *models.Listing, tx store.TxOps) error) error {
	return mutate(listing, t)
}

func (t *txOps) ClaimExists(listingID, claimantID string) (bool, error) {
	iter := t.tx.Documents(t.s.client.Collection(claimsCollection).
		Where("listingId", "==", listingID).
		Where("claimantId", "==", claimantID).
		Limit(1))
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *txOps) GetClaim(claimID string) (*models.Claim, error) {
	ref := t.s.client.Collection(claimsCollection).Doc(claimID)
	snap, err := t.tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c := &models.Claim{}
	if err := snap.DataTo(c); err != nil {
		return nil, err
	}
	c.ID = snap.Ref.ID
	return c, nil
}

func (t *txOps) CreateClaim(claim *models.Claim) error {
	ref := t.s.client.Collection(claimsCollection).Doc(claim.ID)
	return t.tx.Create(ref, claim)
}

func (t *txOps) DeleteClaim(claimID string) error {
	ref := t.s.client.Collection(claimsCollection).Doc(claimID)
	return t.tx.Delete(ref)
}

// withRetry runs fn with bounded exponential backoff on transient
// collaborator errors. Permanent errors return immediately.
func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponentialBackOff(), maxRetries), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func newExponentialBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// isTransient reports whether the gRPC status marks a retryable
// collaborator failure.
func isTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// classify wraps collaborator failures: transient gRPC codes surface
// as domain.ErrTransient so callers know a retry is safe, domain
// errors pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return fmt.Errorf("%s: %v: %w", op, err, domain.ErrTransient)
	}
	return fmt.Errorf("%s: %w", op, err)
}
