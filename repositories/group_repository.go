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
	ErrGroupNotFound          = errors.New("tournament group not found")
	ErrGroupNameConflict      = errors.New("group name already exists in this tournament")
	ErrGroupTournamentInvalid = errors.New("group tournament conflict or invalid")
)

type GroupRepository interface {
	Create(ctx context.Context, group *models.TournamentGroup) error
	GetByID(ctx context.Context, id int) (*models.TournamentGroup, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentGroup, error)
	Delete(ctx context.Context, id int) error
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) Create(ctx context.Context, g *models.TournamentGroup) error {
	query := `
		INSERT INTO tournament_groups (tournament_id, name, sort_order)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, g.TournamentID, g.Name, g.SortOrder).
		Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "tournament_groups_tournament_id_name_key" {
					return ErrGroupNameConflict
				}
			case "23503":
				if pqErr.Constraint == "tournament_groups_tournament_id_fkey" {
					return ErrGroupTournamentInvalid
				}
			}
		}
		return fmt.Errorf("failed to create tournament group: %w", err)
	}
	return nil
}

func (r *postgresGroupRepository) GetByID(ctx context.Context, id int) (*models.TournamentGroup, error) {
	query := `SELECT id, tournament_id, name, sort_order, created_at FROM tournament_groups WHERE id = $1`

	g := &models.TournamentGroup{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&g.ID, &g.TournamentID, &g.Name, &g.SortOrder, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get tournament group: %w", err)
	}
	return g, nil
}

func (r *postgresGroupRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentGroup, error) {
	query := `
		SELECT id, tournament_id, name, sort_order, created_at
		FROM tournament_groups
		WHERE tournament_id = $1
		ORDER BY sort_order ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*models.TournamentGroup, 0)
	for rows.Next() {
		g := &models.TournamentGroup{}
		if err := rows.Scan(&g.ID, &g.TournamentID, &g.Name, &g.SortOrder, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tournament group row: %w", err)
		}
		groups = append(groups, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament group rows: %w", err)
	}
	return groups, nil
}

func (r *postgresGroupRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournament_groups WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament group: %w", err)
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}
