package models

import (
	"time"

	"github.com/mealbridge/mealbridge/pkg/geo"
)

// Role determines what an account may do: givers create listings,
// receivers claim slots on them.
type Role string

const (
	RoleGiver    Role = "giver"
	RoleReceiver Role = "receiver"
)

// Valid reports whether the role is one of the enumerated set.
func (r Role) Valid() bool {
	return r == RoleGiver || r == RoleReceiver
}

// Account represents a registered user. The ID is the identity
// provider's UID and is immutable, as is the role after signup.
type Account struct {
	ID                   string     `json:"id" firestore:"-"`
	Email                string     `json:"email" firestore:"email"`
	Role                 Role       `json:"role" firestore:"role"`
	RegistrationLocation *geo.Point `json:"coordinates,omitempty" firestore:"coordinates"`
	CreatedAt            time.Time  `json:"created_at" firestore:"createdAt"`
}
