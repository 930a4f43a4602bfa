package services

import (
	"strings"
	"time"
	"unicode"

	"github.com/arenalink/tournament-platform/models"
	"github.com/arenalink/tournament-platform/storage"
)

// --- Общие хелперы ---

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// normalizeWhatsapp оставляет только цифры, сохраняя ведущий "+".
func normalizeWhatsapp(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validateTournamentWindows(t *models.Tournament) error {
	if t.RegistrationStart != nil && t.RegistrationEnd != nil && !t.RegistrationStart.Before(*t.RegistrationEnd) {
		return ErrTournamentInvalidWindows
	}
	if t.MatchStart != nil && t.MatchEnd != nil && !t.MatchStart.Before(*t.MatchEnd) {
		return ErrTournamentInvalidWindows
	}
	if t.RegistrationEnd != nil && t.MatchEnd != nil && t.RegistrationEnd.After(*t.MatchEnd) {
		return ErrTournamentInvalidWindows
	}
	return nil
}

// nextStatusByWindows вычисляет статус турнира по временным окнам.
// Возвращает текущий статус, если переход ещё не наступил.
func nextStatusByWindows(t *models.Tournament, now time.Time) models.TournamentStatus {
	switch t.Status {
	case models.StatusUpcoming:
		if t.RegistrationStart != nil && !t.RegistrationStart.After(now) {
			return models.StatusRegistrationOpen
		}
	case models.StatusRegistrationOpen:
		if t.RegistrationEnd != nil && !t.RegistrationEnd.After(now) {
			return models.StatusRegistrationClosed
		}
	case models.StatusRegistrationClosed:
		if t.MatchStart != nil && !t.MatchStart.After(now) {
			return models.StatusLive
		}
	case models.StatusLive:
		if t.MatchEnd != nil && !t.MatchEnd.After(now) {
			return models.StatusCompleted
		}
	}
	return t.Status
}

func registrationTransitionAllowed(current, next models.RegistrationStatus) bool {
	switch next {
	case models.RegistrationApproved:
		return current == models.RegistrationPending
	case models.RegistrationRejected:
		return current == models.RegistrationPending ||
			current == models.RegistrationApproved ||
			current == models.RegistrationAssignedSlot
	case models.RegistrationAssignedSlot:
		return current == models.RegistrationApproved
	}
	return false
}

// --- Хелперы для заполнения публичных URL из ключей хранилища ---

func populateTournamentMediaURLs(t *models.Tournament, uploader storage.FileUploader) {
	if t == nil || uploader == nil {
		return
	}
	if t.PosterKey != nil && *t.PosterKey != "" {
		if url := uploader.GetPublicURL(*t.PosterKey); url != "" {
			t.PosterURL = &url
		}
	}
	if t.LogoKey != nil && *t.LogoKey != "" {
		if url := uploader.GetPublicURL(*t.LogoKey); url != "" {
			t.LogoURL = &url
		}
	}
}

func populateRegistrationLogoURL(reg *models.Registration, uploader storage.FileUploader) {
	if reg == nil || uploader == nil {
		return
	}
	if reg.TeamLogoKey != nil && *reg.TeamLogoKey != "" {
		if url := uploader.GetPublicURL(*reg.TeamLogoKey); url != "" {
			reg.TeamLogoURL = &url
		}
	}
}

func populateSlotOccupantURLs(slots []*models.Slot, uploader storage.FileUploader) {
	if uploader == nil {
		return
	}
	for _, s := range slots {
		if s == nil || s.Occupant == nil {
			continue
		}
		if s.Occupant.TeamLogoKey != nil && *s.Occupant.TeamLogoKey != "" {
			if url := uploader.GetPublicURL(*s.Occupant.TeamLogoKey); url != "" {
				s.Occupant.TeamLogoURL = &url
			}
		}
	}
}
