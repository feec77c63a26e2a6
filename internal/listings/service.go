// Package listings owns the giveaway listing store: creation by
// givers, browsing with filters, and the owner-initiated close.
package listings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mealbridge/mealbridge/internal/domain"
	"github.com/mealbridge/mealbridge/internal/store"
	"github.com/mealbridge/mealbridge/pkg/geo"
	"github.com/mealbridge/mealbridge/pkg/models"
)

// clockLayout is the wire format for the giveaway time window, as the
// giveaway form submits it.
const clockLayout = "15:04"

// Service is the listing store.
type Service struct {
	store store.Store
	now   func() time.Time
}

// New creates a listing service.
func New(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// Input carries the giveaway form fields for a new listing.
type Input struct {
	Name          string
	OrganizerName string
	City          string
	Address       string
	Description   string
	FoodType      models.FoodType
	StartTime     string // "HH:MM"
	EndTime       string // "HH:MM"
	TotalSlots    int
	Location      geo.Point
}

// Filter narrows ListAvailable. When Near is set and SortByDistance is
// true, results are ordered nearest first by great-circle distance;
// otherwise newest first.
type Filter struct {
	City           string
	FoodType       models.FoodType
	Near           *geo.Point
	SortByDistance bool
}

// Create validates the input and persists a new listing owned by a
// giver. RemainingSlots starts at TotalSlots and Status at available.
func (s *Service) Create(ctx context.Context, ownerID string, in Input) (*models.Listing, error) {
	owner, err := s.store.GetAccount(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("lookup owner: %w", err)
	}
	if owner == nil {
		return nil, domain.ErrAccountNotFound
	}
	if owner.Role != models.RoleGiver {
		return nil, domain.ErrNotAGiver
	}

	if err := validate(in); err != nil {
		return nil, err
	}

	listing := &models.Listing{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		Name:           in.Name,
		OrganizerName:  in.OrganizerName,
		City:           in.City,
		Address:        in.Address,
		Description:    in.Description,
		FoodType:       in.FoodType,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		TotalSlots:     in.TotalSlots,
		RemainingSlots: in.TotalSlots,
		Status:         models.ListingStatusAvailable,
		Location:       in.Location,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.CreateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	return listing, nil
}

func validate(in Input) error {
	required := []struct{ name, value string }{
		{"name", in.Name},
		{"organizer_name", in.OrganizerName},
		{"city", in.City},
		{"address", in.Address},
		{"description", in.Description},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrValidation, f.name)
		}
	}

	if !in.FoodType.Valid() {
		return fmt.Errorf("%w: food_type must be veg or nonVeg", domain.ErrValidation)
	}
	if in.TotalSlots < 1 {
		return fmt.Errorf("%w: total_slots must be at least 1", domain.ErrValidation)
	}

	start, err := time.Parse(clockLayout, in.StartTime)
	if err != nil {
		return fmt.Errorf("%w: start_time must be HH:MM", domain.ErrValidation)
	}
	end, err := time.Parse(clockLayout, in.EndTime)
	if err != nil {
		return fmt.Errorf("%w: end_time must be HH:MM", domain.ErrValidation)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end_time must be after start_time", domain.ErrValidation)
	}

	if !in.Location.Valid() {
		return fmt.Errorf("%w: location coordinates out of range", domain.ErrValidation)
	}
	return nil
}

// ListAvailable returns available listings matching the filter.
func (s *Service) ListAvailable(ctx context.Context, f Filter) ([]models.Listing, error) {
	results, err := s.store.ListListings(ctx, store.ListingQuery{
		Status:   models.ListingStatusAvailable,
		City:     f.City,
		FoodType: f.FoodType,
		Near:     f.Near,
	})
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}

	if f.Near != nil && f.SortByDistance {
		near := *f.Near
		sort.SliceStable(results, func(i, j int) bool {
			return geo.Distance(near, results[i].Location) < geo.Distance(near, results[j].Location)
		})
	} else {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		})
	}
	return results, nil
}

// ListByOwner returns all of an owner's listings regardless of status,
// for the giver dashboard.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	results, err := s.store.ListListings(ctx, store.ListingQuery{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

// Get returns a single listing.
func (s *Service) Get(ctx context.Context, listingID string) (*models.Listing, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if listing == nil {
		return nil, domain.ErrListingNotFound
	}
	return listing, nil
}

// Close marks a listing closed. Closing an already closed or exhausted
// listing succeeds without effect; closed is terminal. Remaining slots
// are left untouched.
func (s *Service) Close(ctx context.Context, listingID, requesterID string) error {
	listing, err := s.Get(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != requesterID {
		return domain.ErrNotOwner
	}
	if listing.Status == models.ListingStatusClosed {
		return nil
	}

	err = s.store.UpdateListing(ctx, listingID, func(l *models.Listing, _ store.TxOps) error {
		if l.OwnerID != requesterID {
			return domain.ErrNotOwner
		}
		l.Status = models.ListingStatusClosed
		return nil
	})
	if err != nil {
		return fmt.Errorf("close listing: %w", err)
	}
	return nil
}
