package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/library-loans/internal/models"
)

// ListAdminLogs возвращает записи журнала действий, новые первыми.
func (s *Storage) ListAdminLogs(ctx context.Context) ([]models.AdminLog, error) {
	const op = "storage.ListAdminLogs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, admin_uid, admin_name, action, entity_type, entity_id,
				  entity_name, time
			  FROM admin_logs ORDER BY id DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []models.AdminLog
	for rows.Next() {
		var entry models.AdminLog
		if err := rows.Scan(&entry.ID, &entry.AdminUID, &entry.AdminName, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.EntityName, &entry.Time); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreateAdminLog добавляет запись в журнал действий. Журнал только пополняется.
func (t *sqlTx) CreateAdminLog(ctx context.Context, entry models.AdminLog) error {
	const op = "storage.tx.CreateAdminLog"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO admin_logs (admin_uid, admin_name, action, entity_type,
				  entity_id, entity_name)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := t.tx.ExecContext(ctx, query, entry.AdminUID, entry.AdminName,
		entry.Action, entry.EntityType, entry.EntityID, entry.EntityName)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
