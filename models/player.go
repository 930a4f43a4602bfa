package models

import "time"

// Player — участник состава команды в рамках одной заявки.
type Player struct {
	ID             int       `json:"id" db:"id"`
	RegistrationID int       `json:"registration_id" db:"registration_id"`
	IGN            string    `json:"ign" db:"ign"`
	CharacterID    string    `json:"character_id" db:"character_id"`
	Discord        *string   `json:"discord,omitempty" db:"discord"`
	IsCaptain      bool      `json:"is_captain" db:"is_captain"`
	SortOrder      int       `json:"sort_order" db:"sort_order"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
