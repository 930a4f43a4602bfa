package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/arenalink/tournament-platform/models"
)

type ListAuditLogsFilter struct {
	UserID     *int
	EntityType *string
	Action     *string
	Limit      int
	Offset     int
}

// AuditRepository — журнал только на дозапись; записи никогда не меняются
// и не удаляются этим кодом.
type AuditRepository interface {
	Record(ctx context.Context, exec SQLExecutor, entry *models.AuditLog) error
	List(ctx context.Context, filter ListAuditLogsFilter) ([]*models.AuditLog, error)
}

type postgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) AuditRepository {
	return &postgresAuditRepository{db: db}
}

func (r *postgresAuditRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAuditRepository) Record(ctx context.Context, exec SQLExecutor, entry *models.AuditLog) error {
	executor := r.getExecutor(exec)
	details := entry.Details
	if details == nil {
		details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		entry.UserID, entry.Action, entry.EntityType, entry.EntityID, details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

func (r *postgresAuditRepository) List(ctx context.Context, filter ListAuditLogsFilter) ([]*models.AuditLog, error) {
	query := `
		SELECT a.id, a.user_id, a.action, a.entity_type, a.entity_id, a.details, a.created_at,
			u.email, u.full_name
		FROM audit_logs a
		LEFT JOIN users u ON a.user_id = u.id
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND a.user_id = $%d", argID)
		args = append(args, *filter.UserID)
		argID++
	}
	if filter.EntityType != nil {
		query += fmt.Sprintf(" AND a.entity_type = $%d", argID)
		args = append(args, *filter.EntityType)
		argID++
	}
	if filter.Action != nil {
		query += fmt.Sprintf(" AND a.action = $%d", argID)
		args = append(args, *filter.Action)
		argID++
	}

	query += " ORDER BY a.created_at DESC"

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
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditLog, 0)
	for rows.Next() {
		entry := &models.AuditLog{}
		var userEmail, userFullName sql.NullString
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Action, &entry.EntityType,
			&entry.EntityID, &entry.Details, &entry.CreatedAt,
			&userEmail, &userFullName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log row: %w", err)
		}
		if entry.UserID != nil && userEmail.Valid {
			u := &models.User{ID: *entry.UserID, Email: userEmail.String}
			if userFullName.Valid {
				u.FullName = &userFullName.String
			}
			entry.User = u
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}
	return entries, nil
}
