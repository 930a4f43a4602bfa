package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/arenalink/tournament-platform/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrRegistrationConflict: частичный уникальный индекс — не больше
	// одной неотклонённой заявки на пару (турнир, пользователь).
	ErrRegistrationConflict          = errors.New("user already has an active registration for this tournament")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament conflict or invalid")
	ErrRegistrationUserInvalid       = errors.New("registration user conflict or invalid")
	ErrRegistrationGroupInvalid      = errors.New("registration group conflict or invalid")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	FindByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error)
	// FindActiveByUserAndTournament ищет неотклонённую заявку пользователя.
	FindActiveByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error)
	// ListApprovedUnassigned возвращает одобренные заявки без слота в
	// порядке подачи (первым одобрен — первым рассажен).
	ListApprovedUnassigned(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Registration, error)
	// UpdateStatusAndGroup меняет статус и зеркальный group_id одной
	// операцией — они никогда не расходятся.
	UpdateStatusAndGroup(ctx context.Context, exec SQLExecutor, id int, status models.RegistrationStatus, groupID *int) error
	UpdateTeamLogoKey(ctx context.Context, id int, teamLogoKey *string) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const registrationColumns = `
	id, tournament_id, user_id, team_name, whatsapp_raw, whatsapp_normalized,
	discord, status, group_id, team_logo_key, created_at, updated_at`

func scanRegistration(scanner interface{ Scan(dest ...interface{}) error }, reg *models.Registration) error {
	return scanner.Scan(
		&reg.ID, &reg.TournamentID, &reg.UserID, &reg.TeamName,
		&reg.WhatsappRaw, &reg.WhatsappNormalized, &reg.Discord,
		&reg.Status, &reg.GroupID, &reg.TeamLogoKey,
		&reg.CreatedAt, &reg.UpdatedAt,
	)
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO registrations (
			tournament_id, user_id, team_name, whatsapp_raw, whatsapp_normalized,
			discord, status, team_logo_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		reg.TournamentID, reg.UserID, reg.TeamName,
		reg.WhatsappRaw, reg.WhatsappNormalized,
		reg.Discord, reg.Status, reg.TeamLogoKey,
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "registrations_one_active_per_user" {
					return ErrRegistrationConflict
				}
			case "23503":
				switch pqErr.Constraint {
				case "registrations_tournament_id_fkey":
					return ErrRegistrationTournamentInvalid
				case "registrations_user_id_fkey":
					return ErrRegistrationUserInvalid
				}
			}
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) FindByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return r.findOne(ctx, executor, query, id)
}

func (r *postgresRegistrationRepository) FindActiveByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + `
		FROM registrations
		WHERE user_id = $1 AND tournament_id = $2 AND status != $3`
	return r.findOne(ctx, r.db, query, userID, tournamentID, models.RegistrationRejected)
}

func (r *postgresRegistrationRepository) findOne(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) (*models.Registration, error) {
	reg := &models.Registration{}
	err := scanRegistration(executor.QueryRowContext(ctx, query, args...), reg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + registrationColumns + ` FROM registrations WHERE tournament_id = $1`)
	args := []interface{}{tournamentID}

	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $2")
		args = append(args, *statusFilter)
	}
	queryBuilder.WriteString(" ORDER BY created_at ASC")

	return r.list(ctx, r.db, queryBuilder.String(), args...)
}

func (r *postgresRegistrationRepository) ListApprovedUnassigned(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Registration, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations reg
		WHERE reg.tournament_id = $1
		AND reg.status = $2
		AND NOT EXISTS (SELECT 1 FROM slots s WHERE s.registration_id = reg.id)
		ORDER BY reg.created_at ASC`

	return r.list(ctx, executor, query, tournamentID, models.RegistrationApproved)
}

func (r *postgresRegistrationRepository) list(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]*models.Registration, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		reg := &models.Registration{}
		if err := scanRegistration(rows, reg); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		registrations = append(registrations, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return registrations, nil
}

func (r *postgresRegistrationRepository) UpdateStatusAndGroup(ctx context.Context, exec SQLExecutor, id int, status models.RegistrationStatus, groupID *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE registrations SET status = $1, group_id = $2, updated_at = now() WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, status, groupID, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23503" && pqErr.Constraint == "registrations_group_id_fkey" {
				return ErrRegistrationGroupInvalid
			}
		}
		return fmt.Errorf("failed to update registration status: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) UpdateTeamLogoKey(ctx context.Context, id int, teamLogoKey *string) error {
	query := `UPDATE registrations SET team_logo_key = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, teamLogoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update registration team logo key: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}
