package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusUpcoming           TournamentStatus = "upcoming"
	StatusRegistrationOpen   TournamentStatus = "registration_open"
	StatusRegistrationClosed TournamentStatus = "registration_closed"
	StatusLive               TournamentStatus = "live"
	StatusCompleted          TournamentStatus = "completed"
)

// Tournament — корневой агрегат: владеет группами, слотами и регистрациями.
type Tournament struct {
	ID                int              `json:"id" db:"id"`
	Name              string           `json:"name" db:"name"`
	Game              string           `json:"game" db:"game"`
	Description       *string          `json:"description,omitempty" db:"description"`
	PrizePool         *string          `json:"prize_pool,omitempty" db:"prize_pool"`
	ServerRegion      string           `json:"server_region" db:"server_region"`
	RegistrationStart *time.Time       `json:"registration_start,omitempty" db:"registration_start"`
	RegistrationEnd   *time.Time       `json:"registration_end,omitempty" db:"registration_end"`
	MatchStart        *time.Time       `json:"match_start,omitempty" db:"match_start"`
	MatchEnd          *time.Time       `json:"match_end,omitempty" db:"match_end"`
	TotalTeamCapacity int              `json:"total_team_capacity" db:"total_team_capacity"`
	TeamsPerGroup     int              `json:"teams_per_group" db:"teams_per_group"`
	MaxPlayersPerTeam int              `json:"max_players_per_team" db:"max_players_per_team"`
	IsPaid            bool             `json:"is_paid" db:"is_paid"`
	IsPublished       bool             `json:"is_published" db:"is_published"`
	Status            TournamentStatus `json:"status" db:"status"`
	CreatedBy         *int             `json:"created_by,omitempty" db:"created_by"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
	PosterKey         *string          `json:"-" db:"poster_key"`
	PosterURL         *string          `json:"poster_url,omitempty" db:"-"`
	LogoKey           *string          `json:"-" db:"logo_key"`
	LogoURL           *string          `json:"logo_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Groups []TournamentGroup `json:"groups,omitempty" db:"-"`
}
