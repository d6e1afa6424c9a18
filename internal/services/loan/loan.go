// Package services содержит бизнес-логику жизненного цикла займов:
// запрос, выдачу, продление, возврат и принудительное завершение.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/library-loans/internal/lib/sl"
	"github.com/magabrotheeeer/library-loans/internal/lib/workday"
	"github.com/magabrotheeeer/library-loans/internal/models"
	"github.com/magabrotheeeer/library-loans/internal/rabbitmq"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

// Ошибки бизнес-правил жизненного цикла займов.
var (
	ErrUserBlocked        = errors.New("user is blocked")
	ErrUserHasExpiredLoan = errors.New("user has an expired ongoing loan")
	ErrNoAvailableCopies  = errors.New("no available copies")
	ErrTooManyLoans       = errors.New("user reached the loan limit")
	ErrOpenLoanForBook    = errors.New("user already has an open loan for this book")
	ErrRecentlyReturned   = errors.New("book was returned by this user recently")
	ErrLoanNotRequested   = errors.New("loan is not in requested status")
	ErrLoanNotStarted     = errors.New("loan has not been started")
	ErrLoanClosed         = errors.New("loan is already closed")
	ErrAlreadyPostponed   = errors.New("loan has already been postponed")
	ErrWaitListNotEmpty   = errors.New("book has a non-empty wait list")
	ErrNotOwner           = errors.New("loan belongs to another user")
	ErrPromotionFailed    = errors.New("wait list promotion failed")
)

// Количество дней, в течение которых нельзя повторно запросить возвращённую книгу.
const cooldownDays = 7

// LoanRepository определяет методы хранилища, используемые сервисом займов.
type LoanRepository interface {
	// WithTx выполняет fn внутри одной транзакции.
	WithTx(ctx context.Context, fn func(tx repository.Tx) error) error
	// GetLoan возвращает займ по ID.
	GetLoan(ctx context.Context, id int) (*models.Loan, error)
	// ListLoansByUser возвращает все займы пользователя.
	ListLoansByUser(ctx context.Context, userUID string) ([]models.Loan, error)
	// ListLoansByArchived возвращает активные либо архивные займы.
	ListLoansByArchived(ctx context.Context, archived bool) ([]models.Loan, error)
}

// PolicyProvider отдаёт текущую политику займов.
type PolicyProvider interface {
	Policy(ctx context.Context) (models.LoanPolicy, error)
}

// Publisher публикует сообщения для отправки писем после коммита транзакции.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// LoanService реализует операции жизненного цикла займов.
type LoanService struct {
	repo      LoanRepository
	policy    PolicyProvider
	publisher Publisher
	log       *slog.Logger
}

// NewLoanService создает новый экземпляр LoanService.
func NewLoanService(repo LoanRepository, policy PolicyProvider, publisher Publisher, log *slog.Logger) *LoanService {
	return &LoanService{
		repo:      repo,
		policy:    policy,
		publisher: publisher,
		log:       log,
	}
}

// RequestLoan создает займ REQUESTED: резервирует произвольный свободный
// экземпляр книги и выставляет срок получения в рабочих днях.
func (s *LoanService) RequestLoan(ctx context.Context, userUID string, bookID int) (int, error) {
	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now()

	var loanID int
	err = s.repo.WithTx(ctx, func(tx repository.Tx) error {
		user, err := tx.UserByUID(ctx, userUID)
		if err != nil {
			return err
		}
		if user.IsBlocked {
			return ErrUserBlocked
		}
		expired, err := tx.HasExpiredOngoingLoan(ctx, userUID, now)
		if err != nil {
			return err
		}
		if expired {
			return ErrUserHasExpiredLoan
		}

		book, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		openLoans, err := tx.CountOpenLoansForUser(ctx, userUID)
		if err != nil {
			return err
		}
		if openLoans >= policy.MaxBooksLimit {
			return ErrTooManyLoans
		}
		hasOpen, err := tx.HasOpenLoanForBook(ctx, userUID, bookID)
		if err != nil {
			return err
		}
		if hasOpen {
			return ErrOpenLoanForBook
		}
		recent, err := tx.ReturnedBookRecently(ctx, userUID, bookID, now.AddDate(0, 0, -cooldownDays))
		if err != nil {
			return err
		}
		if recent {
			return ErrRecentlyReturned
		}

		copy, err := tx.FindAvailableCopy(ctx, bookID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoAvailableCopies
			}
			return err
		}
		if err = tx.SetCopyLoaned(ctx, copy.ID, true); err != nil {
			return err
		}

		loanID, err = tx.CreateLoan(ctx, models.Loan{
			UserName:       user.Name,
			UserUID:        user.UID,
			BookTitle:      book.Title,
			BookID:         book.ID,
			ISBN:           copy.ISBN,
			CopyID:         copy.ID,
			ExpirationDate: workday.EndOfDay(workday.AdjustExpiration(now, policy.StartLoanLimit)),
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("loan requested",
		slog.Int("loan_id", loanID),
		slog.String("user_uid", userUID),
		slog.Int("book_id", bookID))
	return loanID, nil
}

// StartLoan переводит займ REQUESTED в ONGOING: книга выдана читателю.
// После коммита публикуется письмо о начале займа, ошибки публикации не фатальны.
func (s *LoanService) StartLoan(ctx context.Context, loanID int, actor models.Actor) error {
	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return err
	}
	now := time.Now()

	var email models.LoanEmailInfo
	err = s.repo.WithTx(ctx, func(tx repository.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanStatusRequested {
			return ErrLoanNotRequested
		}
		if _, err = tx.LockBook(ctx, loan.BookID); err != nil {
			return err
		}

		expiration := workday.EndOfDay(now.AddDate(0, 0, policy.LoanDuration))
		if err = tx.MarkLoanStarted(ctx, loanID, now, expiration); err != nil {
			return err
		}
		if err = tx.AdjustBookCopiesAvailable(ctx, loan.BookID, -1); err != nil {
			return err
		}
		if err = tx.CreateAdminLog(ctx, adminLog(actor, models.AdminActionStart, loan)); err != nil {
			return err
		}

		user, err := tx.UserByUID(ctx, loan.UserUID)
		if err != nil {
			return err
		}
		email = models.LoanEmailInfo{
			Email:          user.Email,
			Name:           user.Name,
			BookTitle:      loan.BookTitle,
			ExpirationDate: expiration,
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("loan started", slog.Int("loan_id", loanID))
	if err := s.publisher.Publish(rabbitmq.RouteLoanStarted, email); err != nil {
		s.log.Warn("failed to publish loan started notification",
			slog.Int("loan_id", loanID), sl.Err(err))
	}
	return nil
}

// PostponeLoan продлевает начатый займ один раз при пустой очереди ожидания.
func (s *LoanService) PostponeLoan(ctx context.Context, loanID int, userUID string) error {
	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(tx repository.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.UserUID != userUID {
			return ErrNotOwner
		}
		if loan.Terminal() {
			return ErrLoanClosed
		}
		if loan.Status == models.LoanStatusRequested {
			return ErrLoanNotStarted
		}
		if loan.Postponed {
			return ErrAlreadyPostponed
		}
		waiting, err := tx.CountWaitListForBook(ctx, loan.BookID)
		if err != nil {
			return err
		}
		if waiting > 0 {
			return ErrWaitListNotEmpty
		}

		expiration := workday.EndOfDay(loan.ExpirationDate.AddDate(0, 0, policy.PostponeLoanDuration))
		return tx.PostponeLoan(ctx, loanID, expiration)
	})
	if err != nil {
		return err
	}

	s.log.Info("loan postponed", slog.Int("loan_id", loanID))
	return nil
}

// ReturnLoan закрывает начатый займ статусом RETURNED и освобождает экземпляр.
// Если очередь ожидания книги не пуста, её голова получает новый займ REQUESTED
// на освободившийся экземпляр в той же транзакции. Неудача продвижения не
// откатывает возврат: она возвращается вызывающему после коммита.
func (s *LoanService) ReturnLoan(ctx context.Context, loanID int, actor models.Actor) error {
	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return err
	}
	now := time.Now()

	var promotionErr error
	var promotionEmail *models.LoanEmailInfo
	err = s.repo.WithTx(ctx, func(tx repository.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Terminal() {
			return ErrLoanClosed
		}
		if loan.Status == models.LoanStatusRequested {
			return ErrLoanNotStarted
		}
		if _, err = tx.LockBook(ctx, loan.BookID); err != nil {
			return err
		}

		if err = tx.AdjustBookCopiesAvailable(ctx, loan.BookID, 1); err != nil {
			return err
		}
		if err = tx.SetCopyLoaned(ctx, loan.CopyID, false); err != nil {
			return err
		}
		if err = tx.MarkLoanClosed(ctx, loanID, models.LoanStatusReturned, now); err != nil {
			return err
		}
		if err = tx.CreateAdminLog(ctx, adminLog(actor, models.AdminActionReturn, loan)); err != nil {
			return err
		}

		promotionEmail, promotionErr = s.promoteWaitListHead(ctx, tx, loan.BookID, policy, now)
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("loan returned", slog.Int("loan_id", loanID))
	if promotionEmail != nil {
		if err := s.publisher.Publish(rabbitmq.RouteWaitlistPromoted, *promotionEmail); err != nil {
			s.log.Warn("failed to publish wait list promotion notification",
				slog.Int("loan_id", loanID), sl.Err(err))
		}
	}
	if promotionErr != nil {
		return fmt.Errorf("%w: %w", ErrPromotionFailed, promotionErr)
	}
	return nil
}

// promoteWaitListHead создает займ REQUESTED для головы очереди ожидания
// и уплотняет позиции. Пустая очередь не считается ошибкой.
func (s *LoanService) promoteWaitListHead(ctx context.Context, tx repository.Tx,
	bookID int, policy models.LoanPolicy, now time.Time) (*models.LoanEmailInfo, error) {
	head, err := tx.HeadOfWaitList(ctx, bookID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	copy, err := tx.FindAvailableCopy(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if err = tx.SetCopyLoaned(ctx, copy.ID, true); err != nil {
		return nil, err
	}
	expiration := workday.EndOfDay(workday.AdjustExpiration(now, policy.StartLoanLimit))
	_, err = tx.CreateLoan(ctx, models.Loan{
		UserName:       head.UserName,
		UserUID:        head.UserUID,
		BookTitle:      head.BookTitle,
		BookID:         head.BookID,
		ISBN:           copy.ISBN,
		CopyID:         copy.ID,
		ExpirationDate: expiration,
	})
	if err != nil {
		return nil, err
	}
	if err = tx.DeleteWaitListEntry(ctx, head.ID); err != nil {
		return nil, err
	}
	if err = tx.ShiftWaitListPositions(ctx, bookID, head.Position); err != nil {
		return nil, err
	}

	user, err := tx.UserByUID(ctx, head.UserUID)
	if err != nil {
		return nil, err
	}
	s.log.Info("wait list head promoted",
		slog.Int("book_id", bookID),
		slog.String("user_uid", head.UserUID))
	return &models.LoanEmailInfo{
		Email:          user.Email,
		Name:           user.Name,
		BookTitle:      head.BookTitle,
		ExpirationDate: expiration,
	}, nil
}

// TerminateLoan принудительно завершает займ: экземпляр списывается из каталога,
// займ архивируется статусом TERMINATED. Очередь ожидания не продвигается,
// поскольку экземпляр уничтожен и ничего не освобождается.
func (s *LoanService) TerminateLoan(ctx context.Context, loanID int, actor models.Actor) error {
	now := time.Now()

	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Terminal() {
			return ErrLoanClosed
		}
		if _, err = tx.LockBook(ctx, loan.BookID); err != nil {
			return err
		}

		if err = tx.DeleteCopy(ctx, loan.CopyID); err != nil {
			return err
		}
		// Для займа REQUESTED copies_available ещё не уменьшался при выдаче,
		// поэтому списание экземпляра уменьшает оба счётчика.
		if loan.Status == models.LoanStatusRequested {
			err = tx.RemoveBookInventory(ctx, loan.BookID)
		} else {
			err = tx.DecrementBookCopies(ctx, loan.BookID)
		}
		if err != nil {
			return err
		}
		if err = tx.MarkLoanClosed(ctx, loanID, models.LoanStatusTerminated, now); err != nil {
			return err
		}
		return tx.CreateAdminLog(ctx, adminLog(actor, models.AdminActionTerminate, loan))
	})
	if err != nil {
		return err
	}

	s.log.Info("loan terminated", slog.Int("loan_id", loanID))
	return nil
}

// ListOwn возвращает все займы пользователя.
func (s *LoanService) ListOwn(ctx context.Context, userUID string) ([]models.Loan, error) {
	return s.repo.ListLoansByUser(ctx, userUID)
}

// ListByArchived возвращает активные либо архивные займы всей библиотеки.
func (s *LoanService) ListByArchived(ctx context.Context, archived bool) ([]models.Loan, error) {
	return s.repo.ListLoansByArchived(ctx, archived)
}

func adminLog(actor models.Actor, action string, loan *models.Loan) models.AdminLog {
	return models.AdminLog{
		AdminUID:   actor.UID,
		AdminName:  actor.Name,
		Action:     action,
		EntityType: "loan",
		EntityID:   strconv.Itoa(loan.ID),
		EntityName: loan.BookTitle,
	}
}
