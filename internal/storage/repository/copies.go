package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/library-loans/internal/models"
)

// GetCopy возвращает экземпляр по ID.
func (s *Storage) GetCopy(ctx context.Context, id int) (*models.Copy, error) {
	const op = "storage.GetCopy"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, book_id, isbn, condition, is_loaned
			  FROM copies WHERE id = $1`
	var result models.Copy
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&result.ID, &result.BookID,
		&result.ISBN, &result.Condition, &result.IsLoaned)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}

// FindCopyByISBN возвращает экземпляр по ISBN без учёта регистра контрольного символа.
func (s *Storage) FindCopyByISBN(ctx context.Context, isbn string) (*models.Copy, error) {
	const op = "storage.FindCopyByISBN"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, book_id, isbn, condition, is_loaned
			  FROM copies WHERE UPPER(isbn) = UPPER($1)`
	var result models.Copy
	err := s.DB.QueryRowContext(ctx, query, isbn).Scan(&result.ID, &result.BookID,
		&result.ISBN, &result.Condition, &result.IsLoaned)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}

// ListCopiesForBook возвращает все экземпляры книги.
func (s *Storage) ListCopiesForBook(ctx context.Context, bookID int) ([]models.Copy, error) {
	const op = "storage.ListCopiesForBook"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, book_id, isbn, condition, is_loaned
			  FROM copies WHERE book_id = $1 ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []models.Copy
	for rows.Next() {
		var copy models.Copy
		if err := rows.Scan(&copy.ID, &copy.BookID, &copy.ISBN,
			&copy.Condition, &copy.IsLoaned); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, copy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreateCopy вставляет новый экземпляр книги и возвращает его ID.
func (t *sqlTx) CreateCopy(ctx context.Context, copy models.Copy) (int, error) {
	const op = "storage.tx.CreateCopy"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO copies (book_id, isbn, condition)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var newID int
	err := t.tx.QueryRowContext(ctx, query, copy.BookID, copy.ISBN, copy.Condition).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// DeleteCopy удаляет экземпляр по ID.
func (t *sqlTx) DeleteCopy(ctx context.Context, copyID int) error {
	const op = "storage.tx.DeleteCopy"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM copies WHERE id = $1`
	result, err := t.tx.ExecContext(ctx, query, copyID)
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

// SetCopyLoaned выставляет флаг is_loaned экземпляра.
func (t *sqlTx) SetCopyLoaned(ctx context.Context, copyID int, loaned bool) error {
	const op = "storage.tx.SetCopyLoaned"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE copies SET is_loaned = $2 WHERE id = $1`
	result, err := t.tx.ExecContext(ctx, query, copyID, loaned)
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

// FindAvailableCopy возвращает произвольный свободный экземпляр книги
// под блокировкой FOR UPDATE. ErrNotFound означает отсутствие свободных экземпляров.
func (t *sqlTx) FindAvailableCopy(ctx context.Context, bookID int) (*models.Copy, error) {
	const op = "storage.tx.FindAvailableCopy"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, book_id, isbn, condition, is_loaned
			  FROM copies
			  WHERE book_id = $1 AND is_loaned = FALSE
			  ORDER BY id
			  LIMIT 1
			  FOR UPDATE`
	var result models.Copy
	err := t.tx.QueryRowContext(ctx, query, bookID).Scan(&result.ID, &result.BookID,
		&result.ISBN, &result.Condition, &result.IsLoaned)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}
