package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/library-loans/internal/migrations"
	"github.com/magabrotheeeer/library-loans/internal/models"
)

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL
// и накатывает миграции проекта.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(3*time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(dsn)
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "Failed to create storage after retries")

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath), "Failed to run migrations")

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
	}

	return storage, cleanup
}

func createTestUser(t *testing.T, storage *Storage, name string) models.User {
	user := models.User{
		UID:          uuid.NewString(),
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "hashedpassword",
		Role:         models.RoleUser,
	}
	require.NoError(t, storage.CreateUser(context.Background(), user))
	return user
}

func createTestBookWithCopy(t *testing.T, storage *Storage, title, isbn string) (int, int) {
	ctx := context.Background()

	bookID, err := storage.CreateBook(ctx, models.Book{Title: title, Author: "Test Author"})
	require.NoError(t, err)

	var copyID int
	err = storage.WithTx(ctx, func(tx Tx) error {
		var txErr error
		copyID, txErr = tx.CreateCopy(ctx, models.Copy{
			BookID:    bookID,
			ISBN:      isbn,
			Condition: models.CopyConditionGood,
		})
		if txErr != nil {
			return txErr
		}
		return tx.AddBookInventory(ctx, bookID)
	})
	require.NoError(t, err)

	return bookID, copyID
}

func TestStorage_LoanLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, storage, "reader1")
	bookID, copyID := createTestBookWithCopy(t, storage, "Test Book", "0-306-40615-2")

	book, err := storage.GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.Copies)
	assert.Equal(t, 1, book.CopiesAvailable)

	// Запрос займа: экземпляр помечается занятым, счётчик доступных не меняется
	var loanID int
	err = storage.WithTx(ctx, func(tx Tx) error {
		if err := tx.SetCopyLoaned(ctx, copyID, true); err != nil {
			return err
		}
		var txErr error
		loanID, txErr = tx.CreateLoan(ctx, models.Loan{
			UserName:       user.Name,
			UserUID:        user.UID,
			BookTitle:      "Test Book",
			BookID:         bookID,
			ISBN:           "0-306-40615-2",
			CopyID:         copyID,
			ExpirationDate: time.Now().Add(72 * time.Hour),
		})
		return txErr
	})
	require.NoError(t, err)

	loan, err := storage.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusRequested, loan.Status)
	assert.False(t, loan.Archived)
	assert.Nil(t, loan.LoanDate)

	book, err = storage.GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.CopiesAvailable, "requesting a loan must not change copies_available")

	// Начало займа: copies_available уменьшается
	now := time.Now()
	err = storage.WithTx(ctx, func(tx Tx) error {
		if err := tx.MarkLoanStarted(ctx, loanID, now, now.AddDate(0, 0, 7)); err != nil {
			return err
		}
		return tx.AdjustBookCopiesAvailable(ctx, bookID, -1)
	})
	require.NoError(t, err)

	loan, err = storage.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusOngoing, loan.Status)
	require.NotNil(t, loan.LoanDate)

	book, err = storage.GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 0, book.CopiesAvailable)

	count, err := storage.CountOpenLoansByUser(ctx, user.UID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Возврат: займ закрывается и архивируется, экземпляр и счётчик освобождаются
	err = storage.WithTx(ctx, func(tx Tx) error {
		if err := tx.MarkLoanClosed(ctx, loanID, models.LoanStatusReturned, time.Now()); err != nil {
			return err
		}
		if err := tx.SetCopyLoaned(ctx, copyID, false); err != nil {
			return err
		}
		return tx.AdjustBookCopiesAvailable(ctx, bookID, 1)
	})
	require.NoError(t, err)

	loan, err = storage.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusReturned, loan.Status)
	assert.True(t, loan.Archived)
	require.NotNil(t, loan.ReturnDate)

	book, err = storage.GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.Copies)
	assert.Equal(t, 1, book.CopiesAvailable)

	archived, err := storage.ListLoansByArchived(ctx, true)
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestStorage_ExpireAndSweep(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, storage, "reader2")
	bookID, copyID := createTestBookWithCopy(t, storage, "Expiring Book", "978-0-306-40615-7")

	// Просроченный запрос: expiration в прошлом, статус REQUESTED
	err := storage.WithTx(ctx, func(tx Tx) error {
		if err := tx.SetCopyLoaned(ctx, copyID, true); err != nil {
			return err
		}
		_, txErr := tx.CreateLoan(ctx, models.Loan{
			UserName:       user.Name,
			UserUID:        user.UID,
			BookTitle:      "Expiring Book",
			BookID:         bookID,
			ISBN:           "978-0-306-40615-7",
			CopyID:         copyID,
			ExpirationDate: time.Now().Add(-24 * time.Hour),
		})
		return txErr
	})
	require.NoError(t, err)

	var freed, terminated int64
	err = storage.WithTx(ctx, func(tx Tx) error {
		var txErr error
		freed, txErr = tx.FreeCopiesOfExpiredRequests(ctx, time.Now())
		if txErr != nil {
			return txErr
		}
		terminated, txErr = tx.TerminateExpiredRequests(ctx, time.Now())
		return txErr
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), freed)
	assert.Equal(t, int64(1), terminated)

	cp, err := storage.GetCopy(ctx, copyID)
	require.NoError(t, err)
	assert.False(t, cp.IsLoaned, "expired request must free the copy")

	loans, err := storage.ListLoansByUser(ctx, user.UID)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, models.LoanStatusTerminated, loans[0].Status)
	assert.True(t, loans[0].Archived)

	// Просроченный ONGOING займ переводится в OVERDUE, пользователь блокируется
	err = storage.WithTx(ctx, func(tx Tx) error {
		if err := tx.SetCopyLoaned(ctx, copyID, true); err != nil {
			return err
		}
		loanID, txErr := tx.CreateLoan(ctx, models.Loan{
			UserName:       user.Name,
			UserUID:        user.UID,
			BookTitle:      "Expiring Book",
			BookID:         bookID,
			ISBN:           "978-0-306-40615-7",
			CopyID:         copyID,
			ExpirationDate: time.Now().Add(-time.Hour),
		})
		if txErr != nil {
			return txErr
		}
		return tx.MarkLoanStarted(ctx, loanID, time.Now().Add(-48*time.Hour), time.Now().Add(-time.Hour))
	})
	require.NoError(t, err)

	var marked, blocked int64
	err = storage.WithTx(ctx, func(tx Tx) error {
		var txErr error
		marked, txErr = tx.MarkOverdueLoans(ctx, time.Now())
		if txErr != nil {
			return txErr
		}
		blocked, txErr = tx.BlockUsersWithOverdueLoans(ctx)
		return txErr
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)
	assert.Equal(t, int64(1), blocked)

	got, err := storage.GetUser(ctx, user.UID)
	require.NoError(t, err)
	assert.True(t, got.IsBlocked)

	overdue, err := storage.ListUsersWithOverdueLoans(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, user.Email, overdue[0].Email)
	assert.Len(t, overdue[0].Loans, 1)
}

func TestStorage_WaitListPositions(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	first := createTestUser(t, storage, "waiting1")
	second := createTestUser(t, storage, "waiting2")
	bookID, _ := createTestBookWithCopy(t, storage, "Popular Book", "0-19-852663-6")

	err := storage.WithTx(ctx, func(tx Tx) error {
		for i, u := range []models.User{first, second} {
			_, txErr := tx.CreateWaitListEntry(ctx, models.WaitListEntry{
				UserName:  u.Name,
				UserUID:   u.UID,
				BookTitle: "Popular Book",
				BookID:    bookID,
				Position:  i + 1,
			})
			if txErr != nil {
				return txErr
			}
		}
		return nil
	})
	require.NoError(t, err)

	// Голова очереди уходит, позиции остальных уплотняются
	err = storage.WithTx(ctx, func(tx Tx) error {
		head, txErr := tx.HeadOfWaitList(ctx, bookID)
		if txErr != nil {
			return txErr
		}
		assert.Equal(t, first.UID, head.UserUID)
		if txErr = tx.DeleteWaitListEntry(ctx, head.ID); txErr != nil {
			return txErr
		}
		return tx.ShiftWaitListPositions(ctx, bookID, head.Position)
	})
	require.NoError(t, err)

	positions, err := storage.ListWaitListPositions(ctx, second.UID)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 1, positions[0].Position)

	err = storage.WithTx(ctx, func(tx Tx) error {
		n, txErr := tx.CountWaitListForBook(ctx, bookID)
		if txErr != nil {
			return txErr
		}
		assert.Equal(t, 1, n)
		return nil
	})
	require.NoError(t, err)
}

func TestStorage_ManagerState(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	state, err := storage.GetManagerState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, state.LoanDuration)
	assert.Equal(t, 0, state.EmailCount)

	err = storage.WithTx(ctx, func(tx Tx) error {
		locked, txErr := tx.ManagerState(ctx)
		if txErr != nil {
			return txErr
		}
		locked.EmailCount = 5
		locked.Status = models.TaskStatusSuccess
		locked.LastVerifyRun = time.Now()
		return tx.SaveManagerState(ctx, *locked)
	})
	require.NoError(t, err)

	state, err = storage.GetManagerState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, state.EmailCount)
	assert.Equal(t, models.TaskStatusSuccess, state.Status)
}
