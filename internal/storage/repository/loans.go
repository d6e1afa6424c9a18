package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/library-loans/internal/models"
)

const loanColumns = `id, user_name, user_uid, book_title, book_id, isbn, copy_id,
			  status, loan_date, expiration_date, return_date, postponed, archived`

func scanLoan(row interface{ Scan(dest ...any) error }) (*models.Loan, error) {
	var result models.Loan
	err := row.Scan(&result.ID, &result.UserName, &result.UserUID, &result.BookTitle,
		&result.BookID, &result.ISBN, &result.CopyID, &result.Status, &result.LoanDate,
		&result.ExpirationDate, &result.ReturnDate, &result.Postponed, &result.Archived)
	if err != nil {
		return nil, notFound(err)
	}
	return &result, nil
}

// GetLoan возвращает займ по ID.
func (s *Storage) GetLoan(ctx context.Context, id int) (*models.Loan, error) {
	const op = "storage.GetLoan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	result, err := scanLoan(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListLoansByUser возвращает все займы пользователя, новые первыми.
func (s *Storage) ListLoansByUser(ctx context.Context, userUID string) ([]models.Loan, error) {
	const op = "storage.ListLoansByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + loanColumns + ` FROM loans
			  WHERE user_uid = $1 ORDER BY id DESC`
	return s.listLoans(ctx, op, query, userUID)
}

// ListLoansByArchived возвращает активные либо архивные займы всей библиотеки.
func (s *Storage) ListLoansByArchived(ctx context.Context, archived bool) ([]models.Loan, error) {
	const op = "storage.ListLoansByArchived"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + loanColumns + ` FROM loans
			  WHERE archived = $1 ORDER BY id DESC`
	return s.listLoans(ctx, op, query, archived)
}

func (s *Storage) listLoans(ctx context.Context, op, query string, args ...any) ([]models.Loan, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountOpenLoansByUser возвращает количество незавершённых займов пользователя.
func (s *Storage) CountOpenLoansByUser(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountOpenLoansByUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM loans
			  WHERE user_uid = $1 AND status IN ($2, $3, $4)`
	var count int
	err := s.DB.QueryRowContext(ctx, query, userUID,
		models.LoanStatusRequested, models.LoanStatusOngoing, models.LoanStatusOverdue).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// CreateLoan вставляет новый займ со статусом REQUESTED и возвращает его ID.
func (t *sqlTx) CreateLoan(ctx context.Context, loan models.Loan) (int, error) {
	const op = "storage.tx.CreateLoan"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO loans (user_name, user_uid, book_title, book_id, isbn,
				  copy_id, status, expiration_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id`
	var newID int
	err := t.tx.QueryRowContext(ctx, query, loan.UserName, loan.UserUID, loan.BookTitle,
		loan.BookID, loan.ISBN, loan.CopyID, models.LoanStatusRequested,
		loan.ExpirationDate).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// LockLoan читает займ под блокировкой FOR UPDATE.
func (t *sqlTx) LockLoan(ctx context.Context, loanID int) (*models.Loan, error) {
	const op = "storage.tx.LockLoan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`
	result, err := scanLoan(t.tx.QueryRowContext(ctx, query, loanID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkLoanStarted переводит займ в статус ONGOING и выставляет даты.
func (t *sqlTx) MarkLoanStarted(ctx context.Context, loanID int, loanDate, expirationDate time.Time) error {
	const op = "storage.tx.MarkLoanStarted"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE loans SET status = $2, loan_date = $3, expiration_date = $4
			  WHERE id = $1`
	result, err := t.tx.ExecContext(ctx, query, loanID, models.LoanStatusOngoing,
		loanDate, expirationDate)
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

// MarkLoanClosed переводит займ в терминальный статус RETURNED или TERMINATED:
// запись архивируется и становится неизменяемой для бизнес-логики.
func (t *sqlTx) MarkLoanClosed(ctx context.Context, loanID int, status string, returnDate time.Time) error {
	const op = "storage.tx.MarkLoanClosed"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE loans SET status = $2, return_date = $3, archived = TRUE
			  WHERE id = $1`
	result, err := t.tx.ExecContext(ctx, query, loanID, status, returnDate)
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

// PostponeLoan продлевает займ до новой даты и помечает его продлённым.
func (t *sqlTx) PostponeLoan(ctx context.Context, loanID int, expirationDate time.Time) error {
	const op = "storage.tx.PostponeLoan"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE loans SET expiration_date = $2, postponed = TRUE WHERE id = $1`
	result, err := t.tx.ExecContext(ctx, query, loanID, expirationDate)
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

// CountOpenLoansForUser возвращает количество незавершённых займов пользователя.
func (t *sqlTx) CountOpenLoansForUser(ctx context.Context, userUID string) (int, error) {
	const op = "storage.tx.CountOpenLoansForUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM loans
			  WHERE user_uid = $1 AND status IN ($2, $3, $4)`
	var count int
	err := t.tx.QueryRowContext(ctx, query, userUID,
		models.LoanStatusRequested, models.LoanStatusOngoing, models.LoanStatusOverdue).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// HasOpenLoanForBook сообщает, есть ли у пользователя незавершённый займ этой книги.
func (t *sqlTx) HasOpenLoanForBook(ctx context.Context, userUID string, bookID int) (bool, error) {
	const op = "storage.tx.HasOpenLoanForBook"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
				SELECT 1 FROM loans
				WHERE user_uid = $1 AND book_id = $2 AND status IN ($3, $4, $5))`
	var exists bool
	err := t.tx.QueryRowContext(ctx, query, userUID, bookID,
		models.LoanStatusRequested, models.LoanStatusOngoing, models.LoanStatusOverdue).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// HasExpiredOngoingLoan сообщает, есть ли у пользователя начатый займ
// с истёкшим сроком, ещё не переведённый задачей в OVERDUE.
func (t *sqlTx) HasExpiredOngoingLoan(ctx context.Context, userUID string, now time.Time) (bool, error) {
	const op = "storage.tx.HasExpiredOngoingLoan"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
				SELECT 1 FROM loans
				WHERE user_uid = $1 AND expiration_date <= $2 AND status IN ($3, $4))`
	var exists bool
	err := t.tx.QueryRowContext(ctx, query, userUID, now,
		models.LoanStatusOngoing, models.LoanStatusOverdue).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ReturnedBookRecently сообщает, возвращал ли пользователь эту книгу после since.
func (t *sqlTx) ReturnedBookRecently(ctx context.Context, userUID string, bookID int, since time.Time) (bool, error) {
	const op = "storage.tx.ReturnedBookRecently"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
				SELECT 1 FROM loans
				WHERE user_uid = $1 AND book_id = $2 AND status = $3
				  AND return_date >= $4)`
	var exists bool
	err := t.tx.QueryRowContext(ctx, query, userUID, bookID,
		models.LoanStatusReturned, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// FreeCopiesOfExpiredRequests освобождает экземпляры, зарезервированные
// просроченными запросами: их займы ещё в REQUESTED, но срок получения истёк.
func (t *sqlTx) FreeCopiesOfExpiredRequests(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.tx.FreeCopiesOfExpiredRequests"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE copies SET is_loaned = FALSE
			  WHERE is_loaned = TRUE AND id IN (
				SELECT copy_id FROM loans
				WHERE status = $1 AND expiration_date <= $2)`
	result, err := t.tx.ExecContext(ctx, query, models.LoanStatusRequested, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// TerminateExpiredRequests архивирует просроченные запросы со статусом TERMINATED
// и возвращает количество затронутых займов.
func (t *sqlTx) TerminateExpiredRequests(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.tx.TerminateExpiredRequests"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE loans SET status = $1, return_date = $2, archived = TRUE
			  WHERE status = $3 AND expiration_date <= $2`
	result, err := t.tx.ExecContext(ctx, query,
		models.LoanStatusTerminated, now, models.LoanStatusRequested)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// MarkOverdueLoans переводит начатые займы с истёкшим сроком в статус OVERDUE.
func (t *sqlTx) MarkOverdueLoans(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.tx.MarkOverdueLoans"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE loans SET status = $1
			  WHERE status = $2 AND expiration_date <= $3`
	result, err := t.tx.ExecContext(ctx, query,
		models.LoanStatusOverdue, models.LoanStatusOngoing, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}
