package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mealbridge/mealbridge/config"
	"github.com/mealbridge/mealbridge/internal/claims"
	"github.com/mealbridge/mealbridge/internal/directory"
	"github.com/mealbridge/mealbridge/internal/identity"
	"github.com/mealbridge/mealbridge/internal/listings"
	"github.com/mealbridge/mealbridge/internal/places"
	"github.com/mealbridge/mealbridge/internal/store"
	fsstore "github.com/mealbridge/mealbridge/internal/store/firestore"
	"github.com/mealbridge/mealbridge/internal/store/memstore"
	"github.com/mealbridge/mealbridge/internal/token"
	"github.com/mealbridge/mealbridge/internal/web/handlers"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mealbridge-server %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.JWT.SigningKey == "" {
		log.Println("WARNING: JWT_SIGNING_KEY is empty, using insecure default (set JWT_SIGNING_KEY in production)")
		cfg.JWT.SigningKey = "insecure-dev-secret-change-me"
	}

	ctx := context.Background()

	// Document store.
	var st store.Store
	switch cfg.Store.Backend {
	case "firestore":
		fs, err := fsstore.New(ctx, fsstore.Config{
			ProjectID:       cfg.Firebase.ProjectID,
			Database:        cfg.Firebase.FirestoreDatabase,
			CredentialsPath: cfg.Firebase.CredentialsPath,
		})
		if err != nil {
			log.Fatalf("Failed to initialize firestore: %v", err)
		}
		defer fs.Close()
		st = fs
	case "memory":
		st = memstore.New()
	}

	// Identity provider. The memory backend pairs with the memory
	// provider so dev mode needs no Firebase project.
	var provider identity.Provider
	if cfg.Store.Backend == "memory" {
		provider = identity.NewMemory()
	} else {
		emulatorHost := ""
		if cfg.Firebase.UseEmulator {
			emulatorHost = cfg.Firebase.EmulatorAuthHost
		}
		fb, err := identity.NewFirebase(ctx, identity.FirebaseConfig{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsPath: cfg.Firebase.CredentialsPath,
			APIKey:          cfg.Firebase.WebAPIKey,
			EmulatorHost:    emulatorHost,
		})
		if err != nil {
			log.Fatalf("Failed to initialize firebase auth: %v", err)
		}
		provider = fb
	}

	// Places autocomplete degrades to manual city entry without a key.
	var autocompleter places.Autocompleter = places.Disabled{}
	if cfg.Places.APIKey != "" {
		g, err := places.NewGoogle(cfg.Places.APIKey, cfg.Places.Country)
		if err != nil {
			log.Printf("Places autocomplete disabled: %v", err)
		} else {
			autocompleter = g
		}
	}

	// Services.
	dir := directory.New(provider, st, directory.Options{
		LoginMaxAttempts: cfg.Auth.LoginMaxAttempts,
		LoginWindow:      time.Duration(cfg.Auth.LoginWindowSeconds) * time.Second,
	})
	listingSvc := listings.New(st)
	claimCoord := claims.New(st)
	tokens := token.New(cfg.JWT.SigningKey, cfg.JWT.Issuer, time.Duration(cfg.JWT.TTLSeconds)*time.Second)

	// Initialize router.
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	h := handlers.New(cfg, dir, listingSvc, claimCoord, autocompleter, tokens)

	// Public routes.
	r.Post("/accounts", h.Register)
	r.Post("/sessions", h.CreateSession)
	r.Get("/places/autocomplete", h.AutocompleteCity)

	r.Group(func(r chi.Router) {
		r.Use(handlers.OptionalAuthMiddleware(tokens))
		r.Get("/listings", h.ListListings)
		r.Get("/listings/{id}", h.GetListing)
	})

	// Protected routes (session required).
	r.Group(func(r chi.Router) {
		r.Use(handlers.AuthMiddleware(tokens))
		r.Post("/listings", h.CreateListing)
		r.Post("/listings/{id}/close", h.CloseListing)
		r.Get("/listings/{id}/claims", h.ListListingClaims)
		r.Post("/listings/{id}/claims", h.ClaimSlot)
		r.Delete("/claims/{id}", h.CancelClaim)
	})

	// Start server.
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Mealbridge server starting on %s (env: %s, store: %s)", addr, cfg.Server.Env, cfg.Store.Backend)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}
