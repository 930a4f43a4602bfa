package services

import (
	"testing"

	"github.com/arenalink/tournament-platform/models"
	"github.com/stretchr/testify/assert"
)

func TestPolicy(t *testing.T) {
	assert.True(t, CanManageSlots(models.RoleAdmin))
	assert.True(t, CanManageSlots(models.RoleModerator))
	assert.False(t, CanManageSlots(models.RoleUser))

	assert.True(t, CanReviewRegistrations(models.RoleAdmin))
	assert.True(t, CanReviewRegistrations(models.RoleModerator))
	assert.False(t, CanReviewRegistrations(models.RoleUser))

	assert.True(t, CanManageTournaments(models.RoleModerator))
	assert.False(t, CanManageTournaments(models.RoleUser))

	assert.True(t, CanAdministrate(models.RoleAdmin))
	assert.False(t, CanAdministrate(models.RoleModerator))
	assert.False(t, CanAdministrate(models.RoleUser))
}
