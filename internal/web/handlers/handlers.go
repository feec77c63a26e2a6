// Package handlers is the JSON HTTP surface over the directory,
// listing, and claim services. Handlers resolve validation and
// authorization failures at the boundary and never retry them;
// conflict outcomes from the claim coordinator come back as definitive
// failures the client must not blindly re-attempt.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mealbridge/mealbridge/config"
	"github.com/mealbridge/mealbridge/internal/claims"
	"github.com/mealbridge/mealbridge/internal/directory"
	"github.com/mealbridge/mealbridge/internal/domain"
	"github.com/mealbridge/mealbridge/internal/listings"
	"github.com/mealbridge/mealbridge/internal/places"
	"github.com/mealbridge/mealbridge/internal/token"
	"github.com/mealbridge/mealbridge/pkg/geo"
	"github.com/mealbridge/mealbridge/pkg/models"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	cfg       *config.Config
	directory *directory.Service
	listings  *listings.Service
	claims    *claims.Coordinator
	places    places.Autocompleter
	tokens    *token.Service
}

// New creates a new handler.
func New(cfg *config.Config, dir *directory.Service, ls *listings.Service, cc *claims.Coordinator, ac places.Autocompleter, tokens *token.Service) *Handler {
	return &Handler{
		cfg:       cfg,
		directory: dir,
		listings:  ls,
		claims:    cc,
		places:    ac,
		tokens:    tokens,
	}
}

// --- Accounts & sessions ---

type registerRequest struct {
	Email         string     `json:"email"`
	Password      string     `json:"password"`
	Role          string     `json:"role"`
	Coordinates   *geo.Point `json:"coordinates,omitempty"`
	LocationError string     `json:"location_error,omitempty"`
}

type sessionResponse struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"account"`
}

// Register handles signup: creates the identity and the directory
// record, then issues a session token so the client is logged in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Location is best-effort: a reported geolocation failure is noted
	// and signup continues without coordinates.
	if req.LocationError != "" {
		log.Printf("Signup without location (%s): %s", geo.ParseFailure(req.LocationError), req.Email)
	}

	account, err := h.directory.Register(r.Context(), req.Email, req.Password, models.Role(req.Role), req.Coordinates)
	if err != nil {
		h.writeError(w, err)
		return
	}

	tok, err := h.tokens.Generate(account)
	if err != nil {
		log.Printf("Error generating token for %s: %v", account.ID, err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	jsonResponse(w, sessionResponse{Token: tok, Account: account})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateSession handles login and returns a session token. The role in
// the response lets the client pick the giver or receiver landing page.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		jsonError(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	account, err := h.directory.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	tok, err := h.tokens.Generate(account)
	if err != nil {
		log.Printf("Error generating token for %s: %v", account.ID, err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, sessionResponse{Token: tok, Account: account})
}

// --- Listings ---

type createListingRequest struct {
	Name          string    `json:"name"`
	OrganizerName string    `json:"organizer_name"`
	City          string    `json:"city"`
	Address       string    `json:"address"`
	Description   string    `json:"description"`
	FoodType      string    `json:"food_type"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	TotalSlots    int       `json:"total_slots"`
	Location      geo.Point `json:"location"`
}

// CreateListing handles the giveaway form submission.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	listing, err := h.listings.Create(r.Context(), session.AccountID, listings.Input{
		Name:          req.Name,
		OrganizerName: req.OrganizerName,
		City:          req.City,
		Address:       req.Address,
		Description:   req.Description,
		FoodType:      models.FoodType(req.FoodType),
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		TotalSlots:    req.TotalSlots,
		Location:      req.Location,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	jsonResponse(w, listing)
}

// ListListings returns available listings, optionally filtered by
// city, food type, and proximity. With mine=1 and a session, it
// returns the caller's own listings regardless of status.
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("mine") == "1" {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			jsonError(w, "Login required for mine=1", http.StatusUnauthorized)
			return
		}
		results, err := h.listings.ListByOwner(r.Context(), session.AccountID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		jsonListings(w, results)
		return
	}

	filter := listings.Filter{
		City:     q.Get("city"),
		FoodType: models.FoodType(q.Get("food_type")),
	}

	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if latStr != "" && lngStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil {
			jsonError(w, "Invalid lat/lng parameters", http.StatusBadRequest)
			return
		}
		p := geo.Point{Lat: lat, Lng: lng}
		if !p.Valid() {
			jsonError(w, "Coordinates out of range", http.StatusBadRequest)
			return
		}
		filter.Near = &p
		filter.SortByDistance = q.Get("sort") == "distance"
	} else if q.Get("sort") == "distance" {
		jsonError(w, "sort=distance requires lat and lng", http.StatusBadRequest)
		return
	}

	results, err := h.listings.ListAvailable(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	jsonListings(w, results)
}

// GetListing returns a single listing.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	jsonResponse(w, listing)
}

// CloseListing marks a listing closed on behalf of its owner.
func (h *Handler) CloseListing(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.listings.Close(r.Context(), chi.URLParam(r, "id"), session.AccountID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListListingClaims returns the claims on a listing, owner only.
func (h *Handler) ListListingClaims(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	listing, err := h.listings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if listing.OwnerID != session.AccountID {
		h.writeError(w, domain.ErrNotOwner)
		return
	}

	result, err := h.claims.ListForListing(r.Context(), listing.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if result == nil {
		result = []models.Claim{}
	}
	jsonResponse(w, result)
}

// --- Claims ---

// ClaimSlot reserves one slot on a listing for the session's receiver.
func (h *Handler) ClaimSlot(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	claim, err := h.claims.ClaimSlot(r.Context(), chi.URLParam(r, "id"), session.AccountID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	jsonResponse(w, claim)
}

// CancelClaim releases a claim held by the session's account.
func (h *Handler) CancelClaim(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.claims.CancelClaim(r.Context(), chi.URLParam(r, "id"), session.AccountID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Places ---

// AutocompleteCity returns city predictions for a partial query. A
// failing places collaborator degrades to an empty list so the client
// falls back to manual city entry.
func (h *Handler) AutocompleteCity(w http.ResponseWriter, r *http.Request) {
	predictions, err := h.places.CompleteCity(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		log.Printf("Places autocomplete degraded: %v", err)
		predictions = nil
	}
	if predictions == nil {
		predictions = []places.Prediction{}
	}
	jsonResponse(w, predictions)
}

// --- helpers ---

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func jsonListings(w http.ResponseWriter, listings []models.Listing) {
	if listings == nil {
		listings = []models.Listing{}
	}
	jsonResponse(w, listings)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeError maps domain errors onto HTTP statuses. Each kind keeps a
// distinct message; unknown errors are logged and return 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidRole):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidCredentials):
		jsonError(w, "Invalid email or password", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrRateLimited):
		jsonError(w, "Too many login attempts, try again later", http.StatusTooManyRequests)
	case errors.Is(err, domain.ErrNotAGiver),
		errors.Is(err, domain.ErrNotAReceiver),
		errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrNotClaimant):
		jsonError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrListingNotFound),
		errors.Is(err, domain.ErrClaimNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrDuplicateClaim),
		errors.Is(err, domain.ErrSlotsExhausted),
		errors.Is(err, domain.ErrListingClosed):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrTransient):
		jsonError(w, "Service temporarily unavailable, retry shortly", http.StatusServiceUnavailable)
	default:
		log.Printf("Unhandled error: %v", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
	}
}
