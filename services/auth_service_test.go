package services

import (
	"context"
	"testing"

	"github.com/arenalink/tournament-platform/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService(t *testing.T) {
	ctx := context.Background()

	t.Run("register and login", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo())

		user, err := svc.Register(ctx, RegisterInput{
			Email:    " Player@Example.COM ",
			Password: "correct-horse",
			FullName: "Test Player",
		})
		require.NoError(t, err)
		assert.Equal(t, "player@example.com", user.Email)
		assert.Equal(t, models.RoleUser, user.Role)

		logged, err := svc.Login(ctx, LoginInput{Email: "player@example.com", Password: "correct-horse"})
		require.NoError(t, err)
		assert.Equal(t, user.ID, logged.ID)
		assert.Empty(t, logged.PasswordHash)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo())
		_, err := svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "correct-horse"})
		require.NoError(t, err)

		_, err = svc.Login(ctx, LoginInput{Email: "a@b.c", Password: "wrong"})
		assert.ErrorIs(t, err, ErrAuthInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo())
		_, err := svc.Login(ctx, LoginInput{Email: "nobody@b.c", Password: "whatever"})
		assert.ErrorIs(t, err, ErrAuthInvalidCredentials)
	})

	t.Run("short password", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo())
		_, err := svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "short"})
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo())
		_, err := svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "correct-horse"})
		require.NoError(t, err)
		_, err = svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "correct-horse"})
		assert.ErrorIs(t, err, ErrUserEmailConflict)
	})
}
