package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealbridge/mealbridge/pkg/models"
)

func testAccount() *models.Account {
	return &models.Account{
		ID:    "acc-1",
		Email: "receiver@example.com",
		Role:  models.RoleReceiver,
	}
}

func TestGenerateAndValidate(t *testing.T) {
	svc := New("test-signing-key", "mealbridge", time.Hour)

	tokenString, err := svc.Generate(testAccount())
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := svc.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "receiver@example.com", claims.Email)
	assert.Equal(t, models.RoleReceiver, claims.Role)
	assert.Equal(t, "mealbridge", claims.Issuer)
	assert.Equal(t, "acc-1", claims.Subject)
}

func TestValidate_Expired(t *testing.T) {
	svc := New("test-signing-key", "mealbridge", -time.Minute)

	tokenString, err := svc.Generate(testAccount())
	require.NoError(t, err)

	_, err = svc.Validate(tokenString)
	assert.Error(t, err)
}

func TestValidate_WrongKey(t *testing.T) {
	issuer := New("key-one", "mealbridge", time.Hour)
	verifier := New("key-two", "mealbridge", time.Hour)

	tokenString, err := issuer.Generate(testAccount())
	require.NoError(t, err)

	_, err = verifier.Validate(tokenString)
	assert.Error(t, err)
}

func TestValidate_Garbage(t *testing.T) {
	svc := New("test-signing-key", "mealbridge", time.Hour)

	_, err := svc.Validate("not.a.token")
	assert.Error(t, err)
}
