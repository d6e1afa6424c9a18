package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/library-loans/internal/models"
)

// CreateUser вставляет нового пользователя.
func (s *Storage) CreateUser(ctx context.Context, user models.User) error {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (uid, name, email, password_hash, role)
			  VALUES ($1, $2, $3, $4, $5)`
	_, err := s.DB.ExecContext(ctx, query,
		user.UID, user.Name, user.Email, user.PasswordHash, user.Role)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает пользователя по UID.
func (s *Storage) GetUser(ctx context.Context, uid string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, email, password_hash, role, is_blocked, created_at
			  FROM users WHERE uid = $1`
	var result models.User
	err := s.DB.QueryRowContext(ctx, query, uid).Scan(&result.UID, &result.Name,
		&result.Email, &result.PasswordHash, &result.Role, &result.IsBlocked, &result.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}

// GetUserByEmail возвращает пользователя по электронной почте.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, email, password_hash, role, is_blocked, created_at
			  FROM users WHERE email = $1`
	var result models.User
	err := s.DB.QueryRowContext(ctx, query, email).Scan(&result.UID, &result.Name,
		&result.Email, &result.PasswordHash, &result.Role, &result.IsBlocked, &result.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}

// DeleteUser удаляет пользователя по UID и возвращает количество удалённых строк.
func (s *Storage) DeleteUser(ctx context.Context, uid string) (int, error) {
	const op = "storage.DeleteUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM users WHERE uid = $1`
	result, err := s.DB.ExecContext(ctx, query, uid)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListUsersWithOverdueLoans возвращает пользователей, у которых есть займы
// в статусе OVERDUE, с их просроченными займами.
func (s *Storage) ListUsersWithOverdueLoans(ctx context.Context) ([]models.OverdueEmailInfo, error) {
	const op = "storage.ListUsersWithOverdueLoans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.email, u.name, l.book_title, l.expiration_date
			  FROM loans l
			  JOIN users u ON u.uid = l.user_uid
			  WHERE l.status = $1
			  ORDER BY u.email, l.expiration_date`
	rows, err := s.DB.QueryContext(ctx, query, models.LoanStatusOverdue)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []models.OverdueEmailInfo
	for rows.Next() {
		var email, name string
		var loan models.OverdueLoanInfo
		if err := rows.Scan(&email, &name, &loan.BookTitle, &loan.ExpirationDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if len(result) > 0 && result[len(result)-1].Email == email {
			last := &result[len(result)-1]
			last.Loans = append(last.Loans, loan)
			continue
		}
		result = append(result, models.OverdueEmailInfo{
			Email: email,
			Name:  name,
			Loans: []models.OverdueLoanInfo{loan},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UserByUID возвращает пользователя внутри транзакции.
func (t *sqlTx) UserByUID(ctx context.Context, uid string) (*models.User, error) {
	const op = "storage.tx.UserByUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, email, password_hash, role, is_blocked, created_at
			  FROM users WHERE uid = $1`
	var result models.User
	err := t.tx.QueryRowContext(ctx, query, uid).Scan(&result.UID, &result.Name,
		&result.Email, &result.PasswordHash, &result.Role, &result.IsBlocked, &result.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &result, nil
}

// BlockUsersWithOverdueLoans блокирует всех пользователей, у которых есть
// займы в статусе OVERDUE, и возвращает количество заблокированных.
func (t *sqlTx) BlockUsersWithOverdueLoans(ctx context.Context) (int64, error) {
	const op = "storage.tx.BlockUsersWithOverdueLoans"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET is_blocked = TRUE
			  WHERE is_blocked = FALSE
			    AND uid IN (SELECT user_uid FROM loans WHERE status = $1)`
	result, err := t.tx.ExecContext(ctx, query, models.LoanStatusOverdue)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}
