package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/medstock/internal/application/dto"
	"github.com/jhoicas/medstock/internal/domain"
	"github.com/jhoicas/medstock/pkg/jwt"
)

func newTestAuth(t *testing.T) *AuthUseCase {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3creta"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthUseCase(
		Operator{Username: "farmacia", PasswordHash: string(hash)},
		JWTConfig{Secret: "test-secret", ExpMinutes: 30, Issuer: "medstock-test"},
	)
}

func TestLogin_OK(t *testing.T) {
	uc := newTestAuth(t)
	out, err := uc.Login(context.Background(), dto.LoginRequest{Username: "farmacia", Password: "s3creta"})
	require.NoError(t, err)
	assert.Equal(t, 1800, out.ExpiresIn)

	user, err := jwt.Parse("test-secret", out.Token)
	require.NoError(t, err)
	assert.Equal(t, "farmacia", user)
}

func TestLogin_WrongPassword(t *testing.T) {
	uc := newTestAuth(t)
	_, err := uc.Login(context.Background(), dto.LoginRequest{Username: "farmacia", Password: "otra"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Login(context.Background(), dto.LoginRequest{Username: "otro", Password: "s3creta"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_Validation(t *testing.T) {
	uc := newTestAuth(t)
	_, err := uc.Login(context.Background(), dto.LoginRequest{Password: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLogin_NoHashConfigured(t *testing.T) {
	uc := NewAuthUseCase(Operator{Username: "farmacia"}, JWTConfig{Secret: "s"})
	_, err := uc.Login(context.Background(), dto.LoginRequest{Username: "farmacia", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
