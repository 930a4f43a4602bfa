package models

import "time"

// TournamentGroup — именованный раздел пула слотов турнира ("Group A").
// Нумерация слотов начинается заново в каждой группе.
type TournamentGroup struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	SortOrder    int       `json:"sort_order" db:"sort_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
