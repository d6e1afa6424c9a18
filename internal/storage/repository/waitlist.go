package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/library-loans/internal/models"
)

// ListWaitListPositions возвращает позиции пользователя во всех очередях ожидания.
func (s *Storage) ListWaitListPositions(ctx context.Context, userUID string) ([]models.WaitListPosition, error) {
	const op = "storage.ListWaitListPositions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT book_id, book_title, position
			  FROM wait_list WHERE user_uid = $1 ORDER BY book_title`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []models.WaitListPosition
	for rows.Next() {
		var position models.WaitListPosition
		if err := rows.Scan(&position.BookID, &position.BookTitle, &position.Position); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, position)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// HeadOfWaitList возвращает запись с позицией 1 в очереди книги.
// ErrNotFound означает пустую очередь.
func (t *sqlTx) HeadOfWaitList(ctx context.Context, bookID int) (*models.WaitListEntry, error) {
	const op = "storage.tx.HeadOfWaitList"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_name, user_uid, book_title, book_id, position
			  FROM wait_list
			  WHERE book_id = $1
			  ORDER BY position
			  LIMIT 1
			  FOR UPDATE`
	var result models.WaitListEntry
	err := t.tx.QueryRowContext(ctx, query, bookID).Scan(&result.ID, &result.UserName,
		&result.UserUID, &result.BookTitle, &result.BookID, &result.Position)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}

// CountWaitListForBook возвращает длину очереди ожидания книги.
func (t *sqlTx) CountWaitListForBook(ctx context.Context, bookID int) (int, error) {
	const op = "storage.tx.CountWaitListForBook"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM wait_list WHERE book_id = $1`
	var count int
	if err := t.tx.QueryRowContext(ctx, query, bookID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// CountWaitListByUser возвращает количество очередей, в которых состоит
// пользователь, по всем книгам.
func (t *sqlTx) CountWaitListByUser(ctx context.Context, userUID string) (int, error) {
	const op = "storage.tx.CountWaitListByUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM wait_list WHERE user_uid = $1`
	var count int
	if err := t.tx.QueryRowContext(ctx, query, userUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// GetWaitListEntry возвращает запись пользователя в очереди книги.
func (t *sqlTx) GetWaitListEntry(ctx context.Context, userUID string, bookID int) (*models.WaitListEntry, error) {
	const op = "storage.tx.GetWaitListEntry"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_name, user_uid, book_title, book_id, position
			  FROM wait_list WHERE user_uid = $1 AND book_id = $2`
	var result models.WaitListEntry
	err := t.tx.QueryRowContext(ctx, query, userUID, bookID).Scan(&result.ID,
		&result.UserName, &result.UserUID, &result.BookTitle, &result.BookID, &result.Position)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}

// CreateWaitListEntry вставляет запись в хвост очереди и возвращает её ID.
func (t *sqlTx) CreateWaitListEntry(ctx context.Context, entry models.WaitListEntry) (int, error) {
	const op = "storage.tx.CreateWaitListEntry"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO wait_list (user_name, user_uid, book_title, book_id, position)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var newID int
	err := t.tx.QueryRowContext(ctx, query, entry.UserName, entry.UserUID,
		entry.BookTitle, entry.BookID, entry.Position).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// DeleteWaitListEntry удаляет запись очереди по ID.
func (t *sqlTx) DeleteWaitListEntry(ctx context.Context, entryID int) error {
	const op = "storage.tx.DeleteWaitListEntry"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM wait_list WHERE id = $1`
	result, err := t.tx.ExecContext(ctx, query, entryID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// ShiftWaitListPositions уменьшает на единицу позиции выше abovePosition,
// сохраняя плотную нумерацию 1..N после удаления записи.
func (t *sqlTx) ShiftWaitListPositions(ctx context.Context, bookID, abovePosition int) error {
	const op = "storage.tx.ShiftWaitListPositions"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE wait_list SET position = position - 1
			  WHERE book_id = $1 AND position > $2`
	if _, err := t.tx.ExecContext(ctx, query, bookID, abovePosition); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
