// Package services содержит бизнес-логику очередей ожидания книг.
package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/magabrotheeeer/library-loans/internal/models"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

// Ошибки бизнес-правил очередей ожидания.
var (
	ErrBookAvailable    = errors.New("book has an available copy")
	ErrAlreadyWaiting   = errors.New("user is already on the wait list for this book")
	ErrTooManyWaitLists = errors.New("user reached the wait list limit")
)

// Максимальное количество очередей, в которых может состоять один пользователь.
const maxWaitListsPerUser = 3

// WaitListRepository определяет методы хранилища, используемые сервисом очередей.
type WaitListRepository interface {
	// WithTx выполняет fn внутри одной транзакции.
	WithTx(ctx context.Context, fn func(tx repository.Tx) error) error
	// ListWaitListPositions возвращает позиции пользователя во всех очередях.
	ListWaitListPositions(ctx context.Context, userUID string) ([]models.WaitListPosition, error)
}

// WaitListService реализует вход, выход и просмотр очередей ожидания.
type WaitListService struct {
	repo WaitListRepository
	log  *slog.Logger
}

// NewWaitListService создает новый экземпляр WaitListService.
func NewWaitListService(repo WaitListRepository, log *slog.Logger) *WaitListService {
	return &WaitListService{
		repo: repo,
		log:  log,
	}
}

// Enter ставит пользователя в хвост очереди ожидания книги.
// Очередь доступна только для книг без свободных экземпляров.
func (s *WaitListService) Enter(ctx context.Context, userUID string, bookID int) (int, error) {
	var position int
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		user, err := tx.UserByUID(ctx, userUID)
		if err != nil {
			return err
		}
		book, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}

		if _, err = tx.FindAvailableCopy(ctx, bookID); err == nil {
			return ErrBookAvailable
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if _, err = tx.GetWaitListEntry(ctx, userUID, bookID); err == nil {
			return ErrAlreadyWaiting
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		total, err := tx.CountWaitListByUser(ctx, userUID)
		if err != nil {
			return err
		}
		if total >= maxWaitListsPerUser {
			return ErrTooManyWaitLists
		}

		waiting, err := tx.CountWaitListForBook(ctx, bookID)
		if err != nil {
			return err
		}
		position = waiting + 1
		_, err = tx.CreateWaitListEntry(ctx, models.WaitListEntry{
			UserName:  user.Name,
			UserUID:   user.UID,
			BookTitle: book.Title,
			BookID:    book.ID,
			Position:  position,
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("user entered wait list",
		slog.String("user_uid", userUID),
		slog.Int("book_id", bookID),
		slog.Int("position", position))
	return position, nil
}

// Exit убирает пользователя из очереди ожидания книги и уплотняет позиции,
// сохраняя нумерацию 1..N без пропусков.
func (s *WaitListService) Exit(ctx context.Context, userUID string, bookID int) error {
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockBook(ctx, bookID); err != nil {
			return err
		}
		entry, err := tx.GetWaitListEntry(ctx, userUID, bookID)
		if err != nil {
			return err
		}
		if err = tx.DeleteWaitListEntry(ctx, entry.ID); err != nil {
			return err
		}
		return tx.ShiftWaitListPositions(ctx, bookID, entry.Position)
	})
	if err != nil {
		return err
	}

	s.log.Info("user left wait list",
		slog.String("user_uid", userUID),
		slog.Int("book_id", bookID))
	return nil
}

// Positions возвращает позиции пользователя во всех очередях ожидания.
func (s *WaitListService) Positions(ctx context.Context, userUID string) ([]models.WaitListPosition, error) {
	return s.repo.ListWaitListPositions(ctx, userUID)
}
