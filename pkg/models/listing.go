package models

import (
	"time"

	"github.com/mealbridge/mealbridge/pkg/geo"
)

// ListingStatus represents the availability state of a giveaway listing.
type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "available"
	ListingStatusExhausted ListingStatus = "exhausted"
	ListingStatusClosed    ListingStatus = "closed"
)

// FoodType classifies the food being given away.
type FoodType string

const (
	FoodTypeVeg    FoodType = "veg"
	FoodTypeNonVeg FoodType = "nonVeg"
)

// Valid reports whether the food type is one of the enumerated set.
func (f FoodType) Valid() bool {
	return f == FoodTypeVeg || f == FoodTypeNonVeg
}

// Listing is a single food giveaway posting with a finite slot
// capacity. RemainingSlots is the only mutable capacity field and is
// mutated exclusively inside a per-listing atomic unit, together with
// the status it derives.
type Listing struct {
	ID             string        `json:"id" firestore:"-"`
	OwnerID        string        `json:"owner_id" firestore:"ownerId"`
	Name           string        `json:"name" firestore:"giveawayName"`
	OrganizerName  string        `json:"organizer_name" firestore:"orgName"`
	City           string        `json:"city" firestore:"city"`
	Address        string        `json:"address" firestore:"address"`
	Description    string        `json:"description" firestore:"description"`
	FoodType       FoodType      `json:"food_type" firestore:"foodType"`
	StartTime      string        `json:"start_time" firestore:"startTime"` // "HH:MM"
	EndTime        string        `json:"end_time" firestore:"endTime"`     // "HH:MM"
	TotalSlots     int           `json:"total_slots" firestore:"slots"`
	RemainingSlots int           `json:"remaining_slots" firestore:"remainingSlots"`
	Status         ListingStatus `json:"status" firestore:"status"`
	Location       geo.Point     `json:"location" firestore:"location"`
	Version        int64         `json:"-" firestore:"version"`
	CreatedAt      time.Time     `json:"created_at" firestore:"createdAt"`
}

// Claim is a receiver's reservation of exactly one slot on a listing.
// Claims are immutable; cancellation deletes the record and restores
// the slot in the same atomic unit.
type Claim struct {
	ID         string    `json:"id" firestore:"-"`
	ListingID  string    `json:"listing_id" firestore:"listingId"`
	ClaimantID string    `json:"claimant_id" firestore:"claimantId"`
	ClaimedAt  time.Time `json:"claimed_at" firestore:"claimedAt"`
}
