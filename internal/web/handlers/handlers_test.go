package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealbridge/mealbridge/config"
	"github.com/mealbridge/mealbridge/internal/claims"
	"github.com/mealbridge/mealbridge/internal/directory"
	"github.com/mealbridge/mealbridge/internal/identity"
	"github.com/mealbridge/mealbridge/internal/listings"
	"github.com/mealbridge/mealbridge/internal/places"
	"github.com/mealbridge/mealbridge/internal/store/memstore"
	"github.com/mealbridge/mealbridge/internal/token"
	"github.com/mealbridge/mealbridge/internal/web/handlers"
	"github.com/mealbridge/mealbridge/pkg/models"
)

type testServer struct {
	router chi.Router
}

// newTestServer wires the handlers over the in-memory adapters with the
// same route layout the server binary uses.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st := memstore.New()
	provider := identity.NewMemory()
	dir := directory.New(provider, st, directory.Options{})
	listingSvc := listings.New(st)
	claimCoord := claims.New(st)
	tokens := token.New("test-signing-key", "mealbridge", time.Hour)

	h := handlers.New(&config.Config{}, dir, listingSvc, claimCoord, places.Disabled{}, tokens)

	r := chi.NewRouter()
	r.Post("/accounts", h.Register)
	r.Post("/sessions", h.CreateSession)
	r.Get("/places/autocomplete", h.AutocompleteCity)
	r.Group(func(r chi.Router) {
		r.Use(handlers.OptionalAuthMiddleware(tokens))
		r.Get("/listings", h.ListListings)
		r.Get("/listings/{id}", h.GetListing)
	})
	r.Group(func(r chi.Router) {
		r.Use(handlers.AuthMiddleware(tokens))
		r.Post("/listings", h.CreateListing)
		r.Post("/listings/{id}/close", h.CloseListing)
		r.Get("/listings/{id}/claims", h.ListListingClaims)
		r.Post("/listings/{id}/claims", h.ClaimSlot)
		r.Delete("/claims/{id}", h.CancelClaim)
	})

	return &testServer{router: r}
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

type sessionResponse struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"account"`
}

// register creates an account through the HTTP surface and returns its
// session token and account.
func (ts *testServer) register(t *testing.T, email, role string) sessionResponse {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/accounts", "", map[string]interface{}{
		"email":    email,
		"password": "hunter22",
		"role":     role,
		"coordinates": map[string]float64{
			"lat": 28.6139,
			"lng": 77.2090,
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp sessionResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.Account)
	return resp
}

func listingBody() map[string]interface{} {
	return map[string]interface{}{
		"name":           "Conference Catering Surplus",
		"organizer_name": "Tech Park Cafeteria",
		"city":           "Delhi",
		"address":        "Tower B, Sector 62",
		"description":    "Sealed sandwich boxes from an afternoon event",
		"food_type":      "veg",
		"start_time":     "16:00",
		"end_time":       "18:00",
		"total_slots":    2,
		"location":       map[string]float64{"lat": 28.62, "lng": 77.36},
	}
}

func (ts *testServer) createListing(t *testing.T, bearer string) models.Listing {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/listings", bearer, listingBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var listing models.Listing
	decode(t, rec, &listing)
	return listing
}

func TestRegisterEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.register(t, "giver@example.com", "giver")
	assert.Equal(t, models.RoleGiver, resp.Account.Role)
	assert.Equal(t, "giver@example.com", resp.Account.Email)
}

func TestRegisterEndpoint_BadRole(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/accounts", "", map[string]string{
		"email":    "giver@example.com",
		"password": "hunter22",
		"role":     "admin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterEndpoint_DuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "giver@example.com", "giver")

	rec := ts.do(t, http.MethodPost, "/accounts", "", map[string]string{
		"email":    "giver@example.com",
		"password": "hunter22",
		"role":     "receiver",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterEndpoint_LocationFailureStillRegisters(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/accounts", "", map[string]string{
		"email":          "receiver@example.com",
		"password":       "hunter22",
		"role":           "receiver",
		"location_error": "permission_denied",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp sessionResponse
	decode(t, rec, &resp)
	assert.Nil(t, resp.Account.RegistrationLocation)
}

func TestSessionEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "giver@example.com", "giver")

	rec := ts.do(t, http.MethodPost, "/sessions", "", map[string]string{
		"email":    "giver@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp sessionResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleGiver, resp.Account.Role)
}

func TestSessionEndpoint_WrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "giver@example.com", "giver")

	rec := ts.do(t, http.MethodPost, "/sessions", "", map[string]string{
		"email":    "giver@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionEndpoint_MissingFields(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/sessions", "", map[string]string{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateListingEndpoint(t *testing.T) {
	ts := newTestServer(t)
	giver := ts.register(t, "giver@example.com", "giver")

	listing := ts.createListing(t, giver.Token)
	assert.NotEmpty(t, listing.ID)
	assert.Equal(t, giver.Account.ID, listing.OwnerID)
	assert.Equal(t, 2, listing.RemainingSlots)
	assert.Equal(t, models.ListingStatusAvailable, listing.Status)
}

func TestCreateListingEndpoint_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/listings", "", listingBody())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateListingEndpoint_ReceiverForbidden(t *testing.T) {
	ts := newTestServer(t)
	receiver := ts.register(t, "receiver@example.com", "receiver")

	rec := ts.do(t, http.MethodPost, "/listings", receiver.Token, listingBody())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateListingEndpoint_Validation(t *testing.T) {
	ts := newTestServer(t)
	giver := ts.register(t, "giver@example.com", "giver")

	body := listingBody()
	body["total_slots"] = 0
	rec := ts.do(t, http.MethodPost, "/listings", giver.Token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListListingsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	giver := ts.register(t, "giver@example.com", "giver")
	ts.createListing(t, giver.Token)

	rec := ts.do(t, http.MethodGet, "/listings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []models.Listing
	decode(t, rec, &results)
	assert.Len(t, results, 1)
}

func TestListListingsEndpoint_Filters(t *testing.T) {
	ts := newTestServer(t)
	giver := ts.register(t, "giver@example.com", "giver")
	ts.createListing(t, giver.Token)

	rec := ts.do(t, http.MethodGet, "/listings?city=Mumbai", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []models.Listing
	decode(t, rec, &results)
	assert.Empty(t, results)

	rec = ts.do(t, http.MethodGet, "/listings?food_type=veg", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &results)
	assert.Len(t, results, 1)
}

func TestListListingsEndpoint_BadCoordinates(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/listings?lat=abc&lng=77.2", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/listings?lat=99&lng=77.2", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/listings?sort=distance", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListListingsEndpoint_Mine(t *testing.T) {
	ts := newTestServer(t)
	giver := ts.register(t, "giver@example.com", "giver")
	listing := ts.createListing(t, giver.Token)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/listings/%s/close", listing.ID), giver.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Closed listings disappear from the public browse view.
	rec = ts.do(t, http.MethodGet, "/listings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var public []models.Listing
	decode(t, rec, &public)
	assert.Empty(t, public)

	// But stay visible on the owner's own view.
	rec = ts.do(t, http.MethodGet, "/listings?mine=1", giver.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []models.Listing
	decode(t, rec, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, models.ListingStatusClosed, mine[0].Status)

	// mine=1 without a session is rejected.
	rec = ts.do(t, http.MethodGet, "/listings?mine=1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetListingEndpoint(t *testing.T) {
	ts := newTestServer(t)
	giver := ts.register(t, "giver@example.com", "giver")
	listing := ts.createListing(t, giver.Token)

	rec := ts.do(t, http.MethodGet, "/listings/"+listing.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Listing
	decode(t, rec, &got)
	assert.Equal(t, listing.ID, got.ID)

	rec = ts.do(t, http.MethodGet, "/listings/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCloseListingEndpoint_NotOwner(t *testing.T) {
	ts := newTestServer(t)
	giver := ts.register(t, "giver@example.com", "giver")
	other := ts.register(t, "other@example.com", "giver")
	listing := ts.createListing(t, giver.Token)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/listings/%s/close", listing.ID), other.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestClaimEndpoints(t *testing.T) {
	ts := newTestServer(t)
	giver := ts.register(t, "giver@example.com", "giver")
	receiver := ts.register(t, "receiver@example.com", "receiver")
	listing := ts.createListing(t, giver.Token)

	claimsPath := fmt.Sprintf("/listings/%s/claims", listing.ID)

	rec := ts.do(t, http.MethodPost, claimsPath, receiver.Token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var claim models.Claim
	decode(t, rec, &claim)
	assert.Equal(t, listing.ID, claim.ListingID)
	assert.Equal(t, receiver.Account.ID, claim.ClaimantID)

	// Duplicate claim by the same receiver conflicts.
	rec = ts.do(t, http.MethodPost, claimsPath, receiver.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A giver cannot claim.
	rec = ts.do(t, http.MethodPost, claimsPath, giver.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The owner sees the claim list; the claimant does not.
	rec = ts.do(t, http.MethodGet, claimsPath, giver.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var held []models.Claim
	decode(t, rec, &held)
	assert.Len(t, held, 1)

	rec = ts.do(t, http.MethodGet, claimsPath, receiver.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Cancel restores the slot.
	rec = ts.do(t, http.MethodDelete, "/claims/"+claim.ID, receiver.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/listings/"+listing.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Listing
	decode(t, rec, &got)
	assert.Equal(t, 2, got.RemainingSlots)
}

func TestClaimEndpoints_Exhaustion(t *testing.T) {
	ts := newTestServer(t)
	giver := ts.register(t, "giver@example.com", "giver")
	listing := ts.createListing(t, giver.Token) // 2 slots

	claimsPath := fmt.Sprintf("/listings/%s/claims", listing.ID)
	for i := 0; i < 2; i++ {
		receiver := ts.register(t, fmt.Sprintf("receiver%d@example.com", i), "receiver")
		rec := ts.do(t, http.MethodPost, claimsPath, receiver.Token, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	late := ts.register(t, "late@example.com", "receiver")
	rec := ts.do(t, http.MethodPost, claimsPath, late.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The exhausted listing leaves the browse feed.
	rec = ts.do(t, http.MethodGet, "/listings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []models.Listing
	decode(t, rec, &results)
	assert.Empty(t, results)
}

func TestCancelClaimEndpoint_NotClaimant(t *testing.T) {
	ts := newTestServer(t)
	giver := ts.register(t, "giver@example.com", "giver")
	receiver := ts.register(t, "receiver@example.com", "receiver")
	intruder := ts.register(t, "intruder@example.com", "receiver")
	listing := ts.createListing(t, giver.Token)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/listings/%s/claims", listing.ID), receiver.Token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var claim models.Claim
	decode(t, rec, &claim)

	rec = ts.do(t, http.MethodDelete, "/claims/"+claim.ID, intruder.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/claims/missing", receiver.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthMiddleware_BadToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/listings", "garbage", listingBody())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAutocompleteEndpoint_Disabled(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/places/autocomplete?q=Del", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var predictions []places.Prediction
	decode(t, rec, &predictions)
	assert.Empty(t, predictions)
}
