package models

import "time"

// Slot — единица рассадки. Номер слота уникален только внутри группы:
// пара (group_id, slot_number) уникальна, сам номер — нет.
// Занятость меняется только целиком: (registration_id, assigned_at,
// assigned_by) выставляются и сбрасываются как тройка.
type Slot struct {
	ID             int        `json:"id" db:"id"`
	TournamentID   int        `json:"tournament_id" db:"tournament_id"`
	GroupID        int        `json:"group_id" db:"group_id"`
	SlotNumber     int        `json:"slot_number" db:"slot_number"`
	RegistrationID *int       `json:"registration_id,omitempty" db:"registration_id"`
	AssignedAt     *time.Time `json:"assigned_at,omitempty" db:"assigned_at"`
	AssignedBy     *int       `json:"assigned_by,omitempty" db:"assigned_by"`

	// Сводка по занявшей слот команде (джойн, не колонка)
	Occupant *SlotOccupant `json:"occupant,omitempty" db:"-"`
}

// SlotOccupant — краткая сводка по команде в слоте для админской доски.
type SlotOccupant struct {
	RegistrationID int     `json:"registration_id"`
	TeamName       string  `json:"team_name"`
	TeamLogoKey    *string `json:"-"`
	TeamLogoURL    *string `json:"team_logo_url,omitempty"`
}

func (s *Slot) Occupied() bool {
	return s.RegistrationID != nil
}
