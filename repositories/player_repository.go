package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenalink/tournament-platform/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerRegistrationInvalid = errors.New("player registration conflict or invalid")
)

type PlayerRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, players []*models.Player) error
	ListByRegistration(ctx context.Context, registrationID int) ([]*models.Player, error)
	DeleteByRegistration(ctx context.Context, exec SQLExecutor, registrationID int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerRepository) CreateBatch(ctx context.Context, exec SQLExecutor, players []*models.Player) error {
	executor := r.getExecutor(exec)
	if len(players) == 0 {
		return nil
	}

	query := `
		INSERT INTO players (registration_id, ign, character_id, discord, is_captain, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	for _, p := range players {
		err := executor.QueryRowContext(ctx, query,
			p.RegistrationID, p.IGN, p.CharacterID, p.Discord, p.IsCaptain, p.SortOrder,
		).Scan(&p.ID, &p.CreatedAt)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok {
				if pqErr.Code == "23503" && pqErr.Constraint == "players_registration_id_fkey" {
					return ErrPlayerRegistrationInvalid
				}
			}
			return fmt.Errorf("failed to create player roster entry: %w", err)
		}
	}
	return nil
}

func (r *postgresPlayerRepository) ListByRegistration(ctx context.Context, registrationID int) ([]*models.Player, error) {
	query := `
		SELECT id, registration_id, ign, character_id, discord, is_captain, sort_order, created_at
		FROM players
		WHERE registration_id = $1
		ORDER BY sort_order ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players by registration: %w", err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		p := &models.Player{}
		if err := rows.Scan(&p.ID, &p.RegistrationID, &p.IGN, &p.CharacterID, &p.Discord, &p.IsCaptain, &p.SortOrder, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}
	return players, nil
}

func (r *postgresPlayerRepository) DeleteByRegistration(ctx context.Context, exec SQLExecutor, registrationID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM players WHERE registration_id = $1`
	_, err := executor.ExecContext(ctx, query, registrationID)
	if err != nil {
		return fmt.Errorf("failed to delete players by registration %d: %w", registrationID, err)
	}
	return nil
}
