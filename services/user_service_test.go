package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/arenalink/tournament-platform/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture(t *testing.T) (*fakeUserRepo, UserService) {
	t.Helper()
	repo := newFakeUserRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Как в main.go при отсутствии конфигурации R2: uploader == nil.
	return repo, NewUserService(repo, nil, logger)
}

func seedUser(t *testing.T, repo *fakeUserRepo, email string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{Email: email, Role: role, PasswordHash: "x"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUploadAvatarWithoutStorage(t *testing.T) {
	ctx := context.Background()
	repo, svc := newUserFixture(t)
	u := seedUser(t, repo, "player@example.com", models.RoleUser)

	_, err := svc.UploadAvatar(ctx, Actor{UserID: u.ID, Role: u.Role}, u.ID,
		strings.NewReader("png-bytes"), "image/png")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()

	t.Run("admin promotes user", func(t *testing.T) {
		repo, svc := newUserFixture(t)
		admin := seedUser(t, repo, "admin@example.com", models.RoleAdmin)
		u := seedUser(t, repo, "player@example.com", models.RoleUser)

		err := svc.UpdateRole(ctx, Actor{UserID: admin.ID, Role: models.RoleAdmin}, u.ID, models.RoleModerator)
		require.NoError(t, err)

		updated, err := svc.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleModerator, updated.Role)
	})

	t.Run("admin cannot demote themselves", func(t *testing.T) {
		repo, svc := newUserFixture(t)
		admin := seedUser(t, repo, "admin@example.com", models.RoleAdmin)

		err := svc.UpdateRole(ctx, Actor{UserID: admin.ID, Role: models.RoleAdmin}, admin.ID, models.RoleUser)
		assert.ErrorIs(t, err, ErrForbiddenOperation)
	})

	t.Run("moderator cannot change roles", func(t *testing.T) {
		repo, svc := newUserFixture(t)
		mod := seedUser(t, repo, "mod@example.com", models.RoleModerator)
		u := seedUser(t, repo, "player@example.com", models.RoleUser)

		err := svc.UpdateRole(ctx, Actor{UserID: mod.ID, Role: models.RoleModerator}, u.ID, models.RoleModerator)
		assert.ErrorIs(t, err, ErrForbiddenOperation)
	})

	t.Run("invalid role", func(t *testing.T) {
		repo, svc := newUserFixture(t)
		admin := seedUser(t, repo, "admin@example.com", models.RoleAdmin)
		u := seedUser(t, repo, "player@example.com", models.RoleUser)

		err := svc.UpdateRole(ctx, Actor{UserID: admin.ID, Role: models.RoleAdmin}, u.ID, models.UserRole("owner"))
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}
