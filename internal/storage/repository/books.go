package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/library-loans/internal/models"
)

// CreateBook вставляет новую книгу с нулевыми счётчиками и возвращает её ID.
func (s *Storage) CreateBook(ctx context.Context, book models.Book) (int, error) {
	const op = "storage.CreateBook"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO books (title, author, category_id)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query, book.Title, book.Author, book.CategoryID).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetBook возвращает книгу по ID.
func (s *Storage) GetBook(ctx context.Context, id int) (*models.Book, error) {
	const op = "storage.GetBook"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, title, author, category_id, copies, copies_available
			  FROM books WHERE id = $1`
	var result models.Book
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&result.ID, &result.Title,
		&result.Author, &result.CategoryID, &result.Copies, &result.CopiesAvailable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}

// GetBookByTitle возвращает книгу по названию без учёта регистра.
func (s *Storage) GetBookByTitle(ctx context.Context, title string) (*models.Book, error) {
	const op = "storage.GetBookByTitle"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, title, author, category_id, copies, copies_available
			  FROM books WHERE LOWER(title) = LOWER($1)`
	var result models.Book
	err := s.DB.QueryRowContext(ctx, query, title).Scan(&result.ID, &result.Title,
		&result.Author, &result.CategoryID, &result.Copies, &result.CopiesAvailable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}

// ListBooks возвращает все книги каталога.
func (s *Storage) ListBooks(ctx context.Context) ([]models.Book, error) {
	const op = "storage.ListBooks"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, title, author, category_id, copies, copies_available
			  FROM books ORDER BY title`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []models.Book
	for rows.Next() {
		var book models.Book
		if err := rows.Scan(&book.ID, &book.Title, &book.Author,
			&book.CategoryID, &book.Copies, &book.CopiesAvailable); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteBook удаляет книгу по ID и возвращает количество удалённых строк.
func (s *Storage) DeleteBook(ctx context.Context, id int) (int, error) {
	const op = "storage.DeleteBook"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM books WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// CountOngoingLoansForBook возвращает количество незавершённых займов книги.
// Используется при проверке возможности удалить книгу из каталога.
func (s *Storage) CountOngoingLoansForBook(ctx context.Context, bookID int) (int, error) {
	const op = "storage.CountOngoingLoansForBook"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM loans
			  WHERE book_id = $1 AND status IN ($2, $3, $4)`
	var count int
	err := s.DB.QueryRowContext(ctx, query, bookID,
		models.LoanStatusRequested, models.LoanStatusOngoing, models.LoanStatusOverdue).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// CreateCategory вставляет новую категорию книг и возвращает её ID.
func (s *Storage) CreateCategory(ctx context.Context, name string) (int, error) {
	const op = "storage.CreateCategory"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO categories (name) VALUES ($1) RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query, name).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListCategories возвращает все категории книг.
func (s *Storage) ListCategories(ctx context.Context) ([]models.Category, error) {
	const op = "storage.ListCategories"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name FROM categories ORDER BY name`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// LockBook читает книгу под блокировкой FOR UPDATE. Блокировка строки книги
// сериализует конкурирующие операции над её экземплярами и счётчиками.
func (t *sqlTx) LockBook(ctx context.Context, bookID int) (*models.Book, error) {
	const op = "storage.tx.LockBook"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, title, author, category_id, copies, copies_available
			  FROM books WHERE id = $1 FOR UPDATE`
	var result models.Book
	err := t.tx.QueryRowContext(ctx, query, bookID).Scan(&result.ID, &result.Title,
		&result.Author, &result.CategoryID, &result.Copies, &result.CopiesAvailable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}

// AdjustBookCopiesAvailable изменяет copies_available книги на delta.
// Ограничение copies_available_range в схеме не даст выйти за границы.
func (t *sqlTx) AdjustBookCopiesAvailable(ctx context.Context, bookID, delta int) error {
	const op = "storage.tx.AdjustBookCopiesAvailable"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE books SET copies_available = copies_available + $2 WHERE id = $1`
	result, err := t.tx.ExecContext(ctx, query, bookID, delta)
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

// DecrementBookCopies уменьшает общее количество экземпляров книги на единицу,
// не трогая copies_available. Используется при списании экземпляра начатого займа.
func (t *sqlTx) DecrementBookCopies(ctx context.Context, bookID int) error {
	const op = "storage.tx.DecrementBookCopies"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE books SET copies = copies - 1 WHERE id = $1`
	result, err := t.tx.ExecContext(ctx, query, bookID)
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

// AddBookInventory увеличивает copies и copies_available книги на единицу.
// Вызывается при добавлении экземпляра в каталог.
func (t *sqlTx) AddBookInventory(ctx context.Context, bookID int) error {
	const op = "storage.tx.AddBookInventory"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE books SET copies = copies + 1, copies_available = copies_available + 1
			  WHERE id = $1`
	result, err := t.tx.ExecContext(ctx, query, bookID)
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

// RemoveBookInventory уменьшает copies и copies_available книги на единицу.
// Вызывается при удалении свободного экземпляра из каталога.
func (t *sqlTx) RemoveBookInventory(ctx context.Context, bookID int) error {
	const op = "storage.tx.RemoveBookInventory"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE books SET copies = copies - 1, copies_available = copies_available - 1
			  WHERE id = $1`
	result, err := t.tx.ExecContext(ctx, query, bookID)
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
