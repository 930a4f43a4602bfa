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
	ErrSlotNotFound = errors.New("slot not found")

	// ErrSlotTaken: условный апдейт не прошёл — слот уже занят другой
	// заявкой (проигран гонка за слот). Вызывающий код пробует следующий
	// свободный слот.
	ErrSlotTaken = errors.New("slot is already taken")

	// ErrSlotRegistrationConflict: заявка уже занимает какой-то слот —
	// частичный уникальный индекс по (tournament_id, registration_id).
	ErrSlotRegistrationConflict = errors.New("registration already occupies a slot in this tournament")

	ErrSlotNumberConflict = errors.New("slot number already exists in this group")
	ErrSlotGroupInvalid   = errors.New("slot group conflict or invalid")
)

type SlotRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, slots []*models.Slot) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Slot, error)
	// LockByID читает слот с блокировкой строки (FOR UPDATE); использовать
	// только внутри транзакции.
	LockByID(ctx context.Context, exec SQLExecutor, id int) (*models.Slot, error)
	FindByRegistration(ctx context.Context, exec SQLExecutor, registrationID int) (*models.Slot, error)
	// ListByTournament возвращает слоты со сводкой по занявшим их командам,
	// в порядке (sort_order группы, номер слота).
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Slot, error)
	ListVacantByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Slot, error)
	CountByTournament(ctx context.Context, tournamentID int) (int, error)
	// Assign занимает слот условным апдейтом: проходит только если слот
	// всё ещё свободен. Тройка (registration_id, assigned_by, assigned_at)
	// выставляется атомарно.
	Assign(ctx context.Context, exec SQLExecutor, slotID, registrationID, assignedBy int, at time.Time) error
	// SetOccupant перезаписывает тройку занятости без условия на
	// свободность; для move/swap под блокировкой строк.
	SetOccupant(ctx context.Context, exec SQLExecutor, slotID int, registrationID *int, assignedBy *int, at *time.Time) error
	// ClearByRegistration освобождает слот, занятый заявкой. Возвращает
	// количество освобождённых слотов (0 или 1).
	ClearByRegistration(ctx context.Context, exec SQLExecutor, registrationID int) (int, error)
}

type postgresSlotRepository struct {
	db *sql.DB
}

func NewPostgresSlotRepository(db *sql.DB) SlotRepository {
	return &postgresSlotRepository{db: db}
}

func (r *postgresSlotRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const slotColumns = `id, tournament_id, group_id, slot_number, registration_id, assigned_at, assigned_by`

func scanSlot(scanner interface{ Scan(dest ...interface{}) error }, s *models.Slot) error {
	return scanner.Scan(
		&s.ID, &s.TournamentID, &s.GroupID, &s.SlotNumber,
		&s.RegistrationID, &s.AssignedAt, &s.AssignedBy,
	)
}

func (r *postgresSlotRepository) CreateBatch(ctx context.Context, exec SQLExecutor, slots []*models.Slot) error {
	executor := r.getExecutor(exec)
	if len(slots) == 0 {
		return nil
	}

	query := `
		INSERT INTO slots (tournament_id, group_id, slot_number)
		VALUES ($1, $2, $3)
		RETURNING id`

	for _, s := range slots {
		err := executor.QueryRowContext(ctx, query, s.TournamentID, s.GroupID, s.SlotNumber).Scan(&s.ID)
		if err != nil {
			return r.handleSlotError(err)
		}
	}
	return nil
}

func (r *postgresSlotRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Slot, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`
	return r.findOne(ctx, executor, query, id)
}

func (r *postgresSlotRepository) LockByID(ctx context.Context, exec SQLExecutor, id int) (*models.Slot, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, executor, query, id)
}

func (r *postgresSlotRepository) FindByRegistration(ctx context.Context, exec SQLExecutor, registrationID int) (*models.Slot, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + slotColumns + ` FROM slots WHERE registration_id = $1`
	return r.findOne(ctx, executor, query, registrationID)
}

func (r *postgresSlotRepository) findOne(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) (*models.Slot, error) {
	s := &models.Slot{}
	err := scanSlot(executor.QueryRowContext(ctx, query, args...), s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}
	return s, nil
}

func (r *postgresSlotRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Slot, error) {
	query := `
		SELECT
			s.id, s.tournament_id, s.group_id, s.slot_number,
			s.registration_id, s.assigned_at, s.assigned_by,
			COALESCE(reg.team_name, '') AS occupant_team_name,
			reg.team_logo_key AS occupant_team_logo_key
		FROM slots s
		JOIN tournament_groups g ON s.group_id = g.id
		LEFT JOIN registrations reg ON s.registration_id = reg.id
		WHERE s.tournament_id = $1
		ORDER BY g.sort_order ASC, g.id ASC, s.slot_number ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots by tournament: %w", err)
	}
	defer rows.Close()

	slots := make([]*models.Slot, 0)
	for rows.Next() {
		s := &models.Slot{}
		var occupantName string
		var occupantLogoKey *string
		if err := rows.Scan(
			&s.ID, &s.TournamentID, &s.GroupID, &s.SlotNumber,
			&s.RegistrationID, &s.AssignedAt, &s.AssignedBy,
			&occupantName, &occupantLogoKey,
		); err != nil {
			return nil, fmt.Errorf("failed to scan slot row: %w", err)
		}
		if s.RegistrationID != nil {
			s.Occupant = &models.SlotOccupant{
				RegistrationID: *s.RegistrationID,
				TeamName:       occupantName,
				TeamLogoKey:    occupantLogoKey,
			}
		}
		slots = append(slots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slot rows: %w", err)
	}
	return slots, nil
}

func (r *postgresSlotRepository) ListVacantByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Slot, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT s.id, s.tournament_id, s.group_id, s.slot_number,
			s.registration_id, s.assigned_at, s.assigned_by
		FROM slots s
		JOIN tournament_groups g ON s.group_id = g.id
		WHERE s.tournament_id = $1 AND s.registration_id IS NULL
		ORDER BY g.sort_order ASC, g.id ASC, s.slot_number ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vacant slots: %w", err)
	}
	defer rows.Close()

	slots := make([]*models.Slot, 0)
	for rows.Next() {
		s := &models.Slot{}
		if err := scanSlot(rows, s); err != nil {
			return nil, fmt.Errorf("failed to scan vacant slot row: %w", err)
		}
		slots = append(slots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vacant slot rows: %w", err)
	}
	return slots, nil
}

func (r *postgresSlotRepository) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM slots WHERE tournament_id = $1`, tournamentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}
	return count, nil
}

func (r *postgresSlotRepository) Assign(ctx context.Context, exec SQLExecutor, slotID, registrationID, assignedBy int, at time.Time) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE slots
		SET registration_id = $1, assigned_by = $2, assigned_at = $3
		WHERE id = $4 AND registration_id IS NULL`

	result, err := executor.ExecContext(ctx, query, registrationID, assignedBy, at, slotID)
	if err != nil {
		return r.handleSlotError(err)
	}
	// 0 строк: либо слот исчез, либо его успели занять. Для вызывающего
	// кода это одно и то же — этот слот больше не кандидат.
	return checkAffectedRows(result, ErrSlotTaken)
}

func (r *postgresSlotRepository) SetOccupant(ctx context.Context, exec SQLExecutor, slotID int, registrationID *int, assignedBy *int, at *time.Time) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE slots
		SET registration_id = $1, assigned_by = $2, assigned_at = $3
		WHERE id = $4`

	result, err := executor.ExecContext(ctx, query, registrationID, assignedBy, at, slotID)
	if err != nil {
		return r.handleSlotError(err)
	}
	return checkAffectedRows(result, ErrSlotNotFound)
}

func (r *postgresSlotRepository) ClearByRegistration(ctx context.Context, exec SQLExecutor, registrationID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE slots
		SET registration_id = NULL, assigned_by = NULL, assigned_at = NULL
		WHERE registration_id = $1`

	result, err := executor.ExecContext(ctx, query, registrationID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear slot by registration: %w", err)
	}
	cleared, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check cleared slot rows: %w", err)
	}
	return int(cleared), nil
}

func (r *postgresSlotRepository) handleSlotError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			switch pqErr.Constraint {
			case "slots_group_id_slot_number_key":
				return ErrSlotNumberConflict
			case "slots_one_slot_per_registration":
				return ErrSlotRegistrationConflict
			}
		case "23503": // foreign_key_violation
			if pqErr.Constraint == "slots_group_id_fkey" {
				return ErrSlotGroupInvalid
			}
		}
	}
	return fmt.Errorf("slot repository error: %w", err)
}
