package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Firebase FirebaseConfig
	Places   PlacesConfig
	Auth     AuthConfig
	JWT      JWTConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type StoreConfig struct {
	// Backend selects the document store: "firestore" or "memory".
	Backend string
}

type FirebaseConfig struct {
	ProjectID         string
	CredentialsPath   string
	FirestoreDatabase string
	WebAPIKey         string
	// Emulator support for integration testing
	UseEmulator           bool
	EmulatorAuthHost      string
	EmulatorFirestoreHost string
}

type PlacesConfig struct {
	APIKey  string
	Country string // ISO 3166-1 alpha-2 restriction for city autocomplete
}

type AuthConfig struct {
	LoginMaxAttempts   int // failed attempts per email before rate limiting
	LoginWindowSeconds int // sliding window for the attempt counter
}

type JWTConfig struct {
	SigningKey string // Secret key for JWT signing
	Issuer     string // JWT issuer claim
	TTLSeconds int    // session token lifetime
}

// Load returns application configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "firestore"),
		},
		Firebase: FirebaseConfig{
			ProjectID:             getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath:       getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			FirestoreDatabase:     getEnv("FIRESTORE_DATABASE", "(default)"),
			WebAPIKey:             getEnv("FIREBASE_WEB_API_KEY", ""),
			UseEmulator:           getEnvBool("USE_FIREBASE_EMULATOR", false),
			EmulatorAuthHost:      getEnv("FIREBASE_AUTH_EMULATOR_HOST", "localhost:9099"),
			EmulatorFirestoreHost: getEnv("FIRESTORE_EMULATOR_HOST", "localhost:8080"),
		},
		Places: PlacesConfig{
			APIKey:  getEnv("GOOGLE_MAPS_API_KEY", ""),
			Country: getEnv("PLACES_COUNTRY", "in"),
		},
		Auth: AuthConfig{
			LoginMaxAttempts:   getEnvInt("LOGIN_MAX_ATTEMPTS", 10),
			LoginWindowSeconds: getEnvInt("LOGIN_WINDOW_SECONDS", 900), // 15 minutes
		},
		JWT: JWTConfig{
			SigningKey: getEnv("JWT_SIGNING_KEY", ""),
			Issuer:     getEnv("JWT_ISSUER", "mealbridge"),
			TTLSeconds: getEnvInt("JWT_TTL_SECONDS", 3600), // 1 hour
		},
	}
}

// Validate fails fast on configuration the server cannot run without.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "firestore":
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required with the firestore backend")
		}
		if c.Firebase.WebAPIKey == "" && !c.Firebase.UseEmulator {
			return fmt.Errorf("FIREBASE_WEB_API_KEY is required for password sign-in")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if c.Server.Env == "production" && c.JWT.SigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err == nil {
			return boolVal
		}
	}
	return defaultValue
}
