package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/library-loans/internal/models"
)

// Tx описывает операции, доступные внутри одной транзакции хранилища.
// Все изменения счётчиков книг, экземпляров, займов и очередей ожидания
// проходят только через этот интерфейс: одна бизнес-операция — одна транзакция.
type Tx interface {
	// Пользователи.
	UserByUID(ctx context.Context, uid string) (*models.User, error)
	BlockUsersWithOverdueLoans(ctx context.Context) (int64, error)

	// Книги и экземпляры.
	LockBook(ctx context.Context, bookID int) (*models.Book, error)
	AdjustBookCopiesAvailable(ctx context.Context, bookID, delta int) error
	DecrementBookCopies(ctx context.Context, bookID int) error
	AddBookInventory(ctx context.Context, bookID int) error
	RemoveBookInventory(ctx context.Context, bookID int) error
	CreateCopy(ctx context.Context, copy models.Copy) (int, error)
	DeleteCopy(ctx context.Context, copyID int) error
	SetCopyLoaned(ctx context.Context, copyID int, loaned bool) error
	FindAvailableCopy(ctx context.Context, bookID int) (*models.Copy, error)

	// Займы.
	CreateLoan(ctx context.Context, loan models.Loan) (int, error)
	LockLoan(ctx context.Context, loanID int) (*models.Loan, error)
	MarkLoanStarted(ctx context.Context, loanID int, loanDate, expirationDate time.Time) error
	MarkLoanClosed(ctx context.Context, loanID int, status string, returnDate time.Time) error
	PostponeLoan(ctx context.Context, loanID int, expirationDate time.Time) error
	CountOpenLoansForUser(ctx context.Context, userUID string) (int, error)
	HasOpenLoanForBook(ctx context.Context, userUID string, bookID int) (bool, error)
	HasExpiredOngoingLoan(ctx context.Context, userUID string, now time.Time) (bool, error)
	ReturnedBookRecently(ctx context.Context, userUID string, bookID int, since time.Time) (bool, error)

	// Очередь ожидания.
	HeadOfWaitList(ctx context.Context, bookID int) (*models.WaitListEntry, error)
	CountWaitListForBook(ctx context.Context, bookID int) (int, error)
	CountWaitListByUser(ctx context.Context, userUID string) (int, error)
	GetWaitListEntry(ctx context.Context, userUID string, bookID int) (*models.WaitListEntry, error)
	CreateWaitListEntry(ctx context.Context, entry models.WaitListEntry) (int, error)
	DeleteWaitListEntry(ctx context.Context, entryID int) error
	ShiftWaitListPositions(ctx context.Context, bookID, abovePosition int) error

	// Журнал действий.
	CreateAdminLog(ctx context.Context, entry models.AdminLog) error

	// Регулярные задачи.
	FreeCopiesOfExpiredRequests(ctx context.Context, now time.Time) (int64, error)
	TerminateExpiredRequests(ctx context.Context, now time.Time) (int64, error)
	MarkOverdueLoans(ctx context.Context, now time.Time) (int64, error)

	// Состояние менеджера уведомлений, строка блокируется FOR UPDATE.
	ManagerState(ctx context.Context) (*models.ManagerState, error)
	SaveManagerState(ctx context.Context, state models.ManagerState) error
}

// sqlTx реализует Tx поверх открытой транзакции database/sql.
type sqlTx struct {
	tx *sql.Tx
}

// WithTx выполняет fn внутри одной транзакции. При ошибке fn транзакция
// откатывается, при успехе фиксируется.
func (s *Storage) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	const op = "storage.WithTx"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = fn(&sqlTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
