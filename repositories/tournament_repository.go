package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arenalink/tournament-platform/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict")
	ErrTournamentInvalidOwner = errors.New("invalid tournament creator reference")
)

type ListTournamentsFilter struct {
	IsPublished *bool
	Status      *models.TournamentStatus
	Game        *string
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	Delete(ctx context.Context, id int) error
	GetTournamentsForStatusSync(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, game, description, prize_pool, server_region,
	registration_start, registration_end, match_start, match_end,
	total_team_capacity, teams_per_group, max_players_per_team,
	is_paid, is_published, status, created_by, created_at, updated_at,
	poster_key, logo_key`

func scanTournament(scanner interface{ Scan(dest ...interface{}) error }, t *models.Tournament) error {
	return scanner.Scan(
		&t.ID, &t.Name, &t.Game, &t.Description, &t.PrizePool, &t.ServerRegion,
		&t.RegistrationStart, &t.RegistrationEnd, &t.MatchStart, &t.MatchEnd,
		&t.TotalTeamCapacity, &t.TeamsPerGroup, &t.MaxPlayersPerTeam,
		&t.IsPaid, &t.IsPublished, &t.Status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
		&t.PosterKey, &t.LogoKey,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, game, description, prize_pool, server_region,
			registration_start, registration_end, match_start, match_end,
			total_team_capacity, teams_per_group, max_players_per_team,
			is_paid, is_published, status, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Game, t.Description, t.PrizePool, t.ServerRegion,
		t.RegistrationStart, t.RegistrationEnd, t.MatchStart, t.MatchEnd,
		t.TotalTeamCapacity, t.TeamsPerGroup, t.MaxPlayersPerTeam,
		t.IsPaid, t.IsPublished, t.Status, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := scanTournament(r.db.QueryRowContext(ctx, query, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.IsPublished != nil {
		query += fmt.Sprintf(" AND is_published = $%d", argID)
		args = append(args, *filter.IsPublished)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Game != nil {
		query += fmt.Sprintf(" AND game = $%d", argID)
		args = append(args, *filter.Game)
		argID++
	}

	query += " ORDER BY match_start ASC NULLS LAST, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	// poster_key/logo_key обновляются отдельными методами загрузки
	query := `
		UPDATE tournaments SET
			name = $1,
			game = $2,
			description = $3,
			prize_pool = $4,
			server_region = $5,
			registration_start = $6,
			registration_end = $7,
			match_start = $8,
			match_end = $9,
			total_team_capacity = $10,
			teams_per_group = $11,
			max_players_per_team = $12,
			is_paid = $13,
			is_published = $14,
			status = $15,
			updated_at = now()
		WHERE id = $16`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Game, t.Description, t.PrizePool, t.ServerRegion,
		t.RegistrationStart, t.RegistrationEnd, t.MatchStart, t.MatchEnd,
		t.TotalTeamCapacity, t.TeamsPerGroup, t.MaxPlayersPerTeam,
		t.IsPaid, t.IsPublished, t.Status,
		t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1, updated_at = now() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	// Группы, слоты и регистрации удаляются каскадом (FK ON DELETE CASCADE).
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) GetTournamentsForStatusSync(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status != $1
		AND (
			(status = $2 AND registration_start IS NOT NULL AND registration_start <= $6) OR
			(status = $3 AND registration_end IS NOT NULL AND registration_end <= $6) OR
			(status = $4 AND match_start IS NOT NULL AND match_start <= $6) OR
			(status = $5 AND match_end IS NOT NULL AND match_end <= $6)
		)`
	args := []interface{}{
		models.StatusCompleted,          // $1
		models.StatusUpcoming,           // $2
		models.StatusRegistrationOpen,   // $3
		models.StatusRegistrationClosed, // $4
		models.StatusLive,               // $5
		currentTime,                     // $6
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments for status sync: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament for status sync: %w", scanErr)
		}
		tournaments = append(tournaments, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration for status sync: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournaments_name_key" {
				return ErrTournamentNameConflict
			}
		case "23503":
			if pqErr.Constraint == "tournaments_created_by_fkey" {
				return ErrTournamentInvalidOwner
			}
		}
	}
	return err
}
