package services

import (
	"testing"
	"time"

	"github.com/arenalink/tournament-platform/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeWhatsapp(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"+7 (777) 123-45-67", "+77771234567"},
		{"8 777 123 45 67", "87771234567"},
		{"whatsapp: +1-202-555-0134", "12025550134"},
		{"", ""},
		{"+", "+"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, normalizeWhatsapp(tc.raw), "raw=%q", tc.raw)
	}
}

func TestNextStatusByWindows(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name   string
		t      models.Tournament
		expect models.TournamentStatus
	}{
		{
			name:   "upcoming opens when window started",
			t:      models.Tournament{Status: models.StatusUpcoming, RegistrationStart: &past},
			expect: models.StatusRegistrationOpen,
		},
		{
			name:   "upcoming stays before window",
			t:      models.Tournament{Status: models.StatusUpcoming, RegistrationStart: &future},
			expect: models.StatusUpcoming,
		},
		{
			name:   "open closes after deadline",
			t:      models.Tournament{Status: models.StatusRegistrationOpen, RegistrationEnd: &past},
			expect: models.StatusRegistrationClosed,
		},
		{
			name:   "closed goes live at match start",
			t:      models.Tournament{Status: models.StatusRegistrationClosed, MatchStart: &past},
			expect: models.StatusLive,
		},
		{
			name:   "live completes at match end",
			t:      models.Tournament{Status: models.StatusLive, MatchEnd: &past},
			expect: models.StatusCompleted,
		},
		{
			name:   "completed is terminal",
			t:      models.Tournament{Status: models.StatusCompleted, MatchEnd: &past},
			expect: models.StatusCompleted,
		},
		{
			name:   "no windows no transitions",
			t:      models.Tournament{Status: models.StatusUpcoming},
			expect: models.StatusUpcoming,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, nextStatusByWindows(&tc.t, now))
		})
	}
}

func TestRegistrationTransitionAllowed(t *testing.T) {
	allowed := [][2]models.RegistrationStatus{
		{models.RegistrationPending, models.RegistrationApproved},
		{models.RegistrationPending, models.RegistrationRejected},
		{models.RegistrationApproved, models.RegistrationRejected},
		{models.RegistrationApproved, models.RegistrationAssignedSlot},
		{models.RegistrationAssignedSlot, models.RegistrationRejected},
	}
	for _, pair := range allowed {
		assert.True(t, registrationTransitionAllowed(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	forbidden := [][2]models.RegistrationStatus{
		{models.RegistrationRejected, models.RegistrationApproved},
		{models.RegistrationRejected, models.RegistrationRejected},
		{models.RegistrationPending, models.RegistrationAssignedSlot},
		{models.RegistrationAssignedSlot, models.RegistrationApproved},
		{models.RegistrationApproved, models.RegistrationApproved},
		{models.RegistrationRejected, models.RegistrationPending},
	}
	for _, pair := range forbidden {
		assert.False(t, registrationTransitionAllowed(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}
}

func TestValidateTournamentWindows(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)

	valid := &models.Tournament{
		RegistrationStart: &now,
		RegistrationEnd:   &later,
	}
	assert.NoError(t, validateTournamentWindows(valid))

	inverted := &models.Tournament{
		RegistrationStart: &later,
		RegistrationEnd:   &now,
	}
	assert.ErrorIs(t, validateTournamentWindows(inverted), ErrTournamentInvalidWindows)

	regAfterMatches := &models.Tournament{
		RegistrationEnd: &later,
		MatchEnd:        &now,
	}
	assert.ErrorIs(t, validateTournamentWindows(regAfterMatches), ErrTournamentInvalidWindows)
}
