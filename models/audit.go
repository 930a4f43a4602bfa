package models

import (
	"encoding/json"
	"time"
)

// Действия, которые пишутся в журнал аудита движком рассадки.
const (
	AuditActionAutoAssignSlot     = "auto_assign_slot"
	AuditActionAutoAssignAllSlots = "auto_assign_all_slots"
	AuditActionMoveSlot           = "move_slot"
	AuditActionInitializeSlots    = "initialize_slots"
	AuditActionReviewRegistration = "review_registration"
)

// AuditLog — неизменяемая запись административного действия.
type AuditLog struct {
	ID         int             `json:"id" db:"id"`
	UserID     *int            `json:"user_id,omitempty" db:"user_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   *int            `json:"entity_id,omitempty" db:"entity_id"`
	Details    json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}
