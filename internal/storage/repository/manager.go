package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/library-loans/internal/models"
)

const managerColumns = `loan_duration, postpone_loan_duration, max_books_limit,
			  start_loan_limit, main_email_interval, retry_email_interval,
			  daily_email_limit, email_date, email_count, last_verify_run, status`

// GetManagerState возвращает строку состояния менеджера без блокировки.
// Для чтения с последующей записью используется Tx.ManagerState.
func (s *Storage) GetManagerState(ctx context.Context) (*models.ManagerState, error) {
	const op = "storage.GetManagerState"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + managerColumns + ` FROM manager_state WHERE id = 1`
	var result models.ManagerState
	err := s.DB.QueryRowContext(ctx, query).Scan(
		&result.LoanDuration, &result.PostponeLoanDuration, &result.MaxBooksLimit,
		&result.StartLoanLimit, &result.MainEmailInterval, &result.RetryEmailInterval,
		&result.DailyEmailLimit, &result.EmailDate, &result.EmailCount,
		&result.LastVerifyRun, &result.Status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}

// ManagerState читает единственную строку состояния под блокировкой FOR UPDATE.
// Блокировка сериализует конкурирующие инкременты счётчика писем между процессами.
func (t *sqlTx) ManagerState(ctx context.Context) (*models.ManagerState, error) {
	const op = "storage.tx.ManagerState"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + managerColumns + ` FROM manager_state WHERE id = 1 FOR UPDATE`
	var result models.ManagerState
	err := t.tx.QueryRowContext(ctx, query).Scan(
		&result.LoanDuration, &result.PostponeLoanDuration, &result.MaxBooksLimit,
		&result.StartLoanLimit, &result.MainEmailInterval, &result.RetryEmailInterval,
		&result.DailyEmailLimit, &result.EmailDate, &result.EmailCount,
		&result.LastVerifyRun, &result.Status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}

// SaveManagerState записывает состояние менеджера целиком.
func (t *sqlTx) SaveManagerState(ctx context.Context, state models.ManagerState) error {
	const op = "storage.tx.SaveManagerState"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE manager_state SET
				loan_duration = $1, postpone_loan_duration = $2, max_books_limit = $3,
				start_loan_limit = $4, main_email_interval = $5, retry_email_interval = $6,
				daily_email_limit = $7, email_date = $8, email_count = $9,
				last_verify_run = $10, status = $11
			  WHERE id = 1`
	result, err := t.tx.ExecContext(ctx, query,
		state.LoanDuration, state.PostponeLoanDuration, state.MaxBooksLimit,
		state.StartLoanLimit, state.MainEmailInterval, state.RetryEmailInterval,
		state.DailyEmailLimit, state.EmailDate, state.EmailCount,
		state.LastVerifyRun, state.Status)
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
