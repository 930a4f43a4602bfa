package models

import "time"

// RegistrationStatus соответствует ENUM registration_status в БД.
type RegistrationStatus string

const (
	RegistrationPending      RegistrationStatus = "pending"
	RegistrationApproved     RegistrationStatus = "approved"
	RegistrationRejected     RegistrationStatus = "rejected"
	RegistrationAssignedSlot RegistrationStatus = "assigned_slot"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationRejected, RegistrationAssignedSlot:
		return true
	}
	return false
}

// Registration — заявка команды на турнир. На пару (турнир, пользователь)
// допускается не больше одной неотклонённой заявки. group_id — производное
// зеркало группы занятого слота и меняется только вместе со слотом.
type Registration struct {
	ID                 int                `json:"id" db:"id"`
	TournamentID       int                `json:"tournament_id" db:"tournament_id"`
	UserID             int                `json:"user_id" db:"user_id"`
	TeamName           string             `json:"team_name" db:"team_name"`
	WhatsappRaw        string             `json:"whatsapp_raw" db:"whatsapp_raw"`
	WhatsappNormalized string             `json:"whatsapp_normalized" db:"whatsapp_normalized"`
	Discord            *string            `json:"discord,omitempty" db:"discord"`
	Status             RegistrationStatus `json:"status" db:"status"`
	GroupID            *int               `json:"group_id,omitempty" db:"group_id"`
	TeamLogoKey        *string            `json:"-" db:"team_logo_key"`
	TeamLogoURL        *string            `json:"team_logo_url,omitempty" db:"-"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Players []Player `json:"players,omitempty" db:"-"`
	User    *User    `json:"user,omitempty" db:"-"`
}
