package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/mealbridge/mealbridge/internal/domain"
)

// FirebaseConfig carries the Firebase project wiring. When
// EmulatorHost is set, sign-in goes through the Auth emulator instead
// of the live Identity Toolkit endpoint.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
	APIKey          string
	EmulatorHost    string
}

// Firebase implements Provider on Firebase Authentication. Account
// creation uses the admin SDK; password verification goes through the
// Identity Toolkit REST endpoint, since the admin SDK deliberately has
// no password check.
type Firebase struct {
	auth       *auth.Client
	apiKey     string
	signInURL  string
	httpClient *http.Client
}

// NewFirebase builds the Firebase adapter.
func NewFirebase(ctx context.Context, cfg FirebaseConfig) (*Firebase, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}

	signInURL := "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"
	if cfg.EmulatorHost != "" {
		signInURL = fmt.Sprintf("http://%s/identitytoolkit.googleapis.com/v1/accounts:signInWithPassword", cfg.EmulatorHost)
	}

	return &Firebase{
		auth:       authClient,
		apiKey:     cfg.APIKey,
		signInURL:  signInURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (f *Firebase) CreateAccount(ctx context.Context, email, password string) (string, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)

	user, err := f.auth.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", domain.ErrDuplicateEmail
		}
		return "", fmt.Errorf("create firebase user: %v: %w", err, domain.ErrTransient)
	}
	return user.UID, nil
}

func (f *Firebase) DeleteAccount(ctx context.Context, providerID string) error {
	err := f.auth.DeleteUser(ctx, providerID)
	if err != nil && !auth.IsUserNotFound(err) {
		return fmt.Errorf("delete firebase user: %v: %w", err, domain.ErrTransient)
	}
	return nil
}

func (f *Firebase) SignIn(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return "", fmt.Errorf("encode sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.signInURL+"?key="+f.apiKey, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity toolkit: %v: %w", err, domain.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var ok struct {
			LocalID string `json:"localId"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
			return "", fmt.Errorf("decode sign-in response: %w", err)
		}
		return ok.LocalID, nil
	}

	var fail struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fail); err != nil {
		return "", fmt.Errorf("identity toolkit status %d: %w", resp.StatusCode, domain.ErrTransient)
	}

	switch {
	case fail.Error.Message == "EMAIL_NOT_FOUND":
		return "", domain.ErrAccountNotFound
	case strings.HasPrefix(fail.Error.Message, "INVALID_PASSWORD"),
		strings.HasPrefix(fail.Error.Message, "INVALID_LOGIN_CREDENTIALS"):
		return "", domain.ErrInvalidCredentials
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("identity toolkit: %s: %w", fail.Error.Message, domain.ErrTransient)
	default:
		return "", fmt.Errorf("identity toolkit: %s: %w", fail.Error.Message, domain.ErrInvalidCredentials)
	}
}
