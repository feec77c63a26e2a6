package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mealbridge/mealbridge/internal/domain"
)

const bcryptCost = 12

// Memory implements Provider in-process with bcrypt password hashes.
// It backs tests and the memory dev mode.
type Memory struct {
	mu    sync.RWMutex
	users map[string]memoryUser // keyed by email
}

type memoryUser struct {
	id           string
	passwordHash []byte
}

// NewMemory returns an empty in-process provider.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]memoryUser)}
}

func (m *Memory) CreateAccount(_ context.Context, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[email]; exists {
		return "", domain.ErrDuplicateEmail
	}

	id := uuid.New().String()
	m.users[email] = memoryUser{id: id, passwordHash: hash}
	return id, nil
}

func (m *Memory) DeleteAccount(_ context.Context, providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for email, user := range m.users {
		if user.id == providerID {
			delete(m.users, email)
			return nil
		}
	}
	return nil
}

func (m *Memory) SignIn(_ context.Context, email, password string) (string, error) {
	m.mu.RLock()
	user, exists := m.users[email]
	m.mu.RUnlock()

	if !exists {
		return "", domain.ErrAccountNotFound
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}
	return user.id, nil
}
