// Package services содержит логику менеджера уведомлений: политику займов,
// дневной лимит писем и расписание задачи рассылки. Состояние хранится
// в единственной строке таблицы manager_state и изменяется только
// под блокировкой FOR UPDATE, что делает его безопасным для трёх процессов.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/library-loans/internal/lib/workday"
	"github.com/magabrotheeeer/library-loans/internal/models"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

// ErrInvalidPolicy возвращается при попытке сохранить политику
// с отрицательными значениями.
var ErrInvalidPolicy = errors.New("policy values must be non-negative")

// ManagerRepository определяет методы хранилища, используемые менеджером.
type ManagerRepository interface {
	// WithTx выполняет fn внутри одной транзакции.
	WithTx(ctx context.Context, fn func(tx repository.Tx) error) error
	// GetManagerState возвращает состояние менеджера без блокировки.
	GetManagerState(ctx context.Context) (*models.ManagerState, error)
}

// ManagerService реализует чтение и изменение состояния менеджера уведомлений.
type ManagerService struct {
	repo ManagerRepository
	log  *slog.Logger
}

// NewManagerService создает новый экземпляр ManagerService.
func NewManagerService(repo ManagerRepository, log *slog.Logger) *ManagerService {
	return &ManagerService{
		repo: repo,
		log:  log,
	}
}

// Policy возвращает текущую политику займов.
func (s *ManagerService) Policy(ctx context.Context) (models.LoanPolicy, error) {
	state, err := s.repo.GetManagerState(ctx)
	if err != nil {
		return models.LoanPolicy{}, err
	}
	return state.LoanPolicy, nil
}

// SetPolicy сохраняет новую политику займов, не трогая счётчики писем.
func (s *ManagerService) SetPolicy(ctx context.Context, policy models.LoanPolicy) error {
	if !policy.Valid() {
		return ErrInvalidPolicy
	}
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		state, err := tx.ManagerState(ctx)
		if err != nil {
			return err
		}
		state.LoanPolicy = policy
		return tx.SaveManagerState(ctx, *state)
	})
	if err != nil {
		return err
	}
	s.log.Info("loan policy updated")
	return nil
}

// RemainingEmails возвращает остаток дневного лимита писем.
// Если дата счётчика не сегодняшняя, счётчик считается нулевым.
func (s *ManagerService) RemainingEmails(ctx context.Context) (int, error) {
	state, err := s.repo.GetManagerState(ctx)
	if err != nil {
		return 0, err
	}
	count := state.EmailCount
	if !workday.SameDate(state.EmailDate, time.Now()) {
		count = 0
	}
	remaining := state.DailyEmailLimit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// IncrementEmailCount увеличивает дневной счётчик писем на единицу.
// Возвращает false без изменения состояния, если лимит исчерпан.
// При смене календарного дня счётчик сбрасывается перед инкрементом.
func (s *ManagerService) IncrementEmailCount(ctx context.Context) (bool, error) {
	allowed := false
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		state, err := tx.ManagerState(ctx)
		if err != nil {
			return err
		}
		now := time.Now()
		if !workday.SameDate(state.EmailDate, now) {
			state.EmailDate = now
			state.EmailCount = 0
		}
		if state.EmailCount >= state.DailyEmailLimit {
			return nil
		}
		state.EmailCount++
		allowed = true
		return tx.SaveManagerState(ctx, *state)
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// ShouldNotifyUsers сообщает, пора ли запускать рассылку напоминаний:
// прошло main_email_interval дней с последнего запуска, либо прошлый запуск
// завершился неудачей и прошло retry_email_interval дней.
func (s *ManagerService) ShouldNotifyUsers(ctx context.Context) (bool, error) {
	state, err := s.repo.GetManagerState(ctx)
	if err != nil {
		return false, err
	}
	days := workday.DaysSince(state.LastVerifyRun, time.Now())
	if days >= state.MainEmailInterval {
		return true, nil
	}
	if state.Status == models.TaskStatusFailed && days >= state.RetryEmailInterval {
		return true, nil
	}
	return false, nil
}

// UpdateTaskStatus фиксирует сегодняшнюю дату и исход запуска задачи рассылки.
// Вызывается ровно один раз на каждом пути выхода из задачи.
func (s *ManagerService) UpdateTaskStatus(ctx context.Context, success bool) error {
	status := models.TaskStatusFailed
	if success {
		status = models.TaskStatusSuccess
	}
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		state, err := tx.ManagerState(ctx)
		if err != nil {
			return err
		}
		state.LastVerifyRun = time.Now()
		state.Status = status
		return tx.SaveManagerState(ctx, *state)
	})
	if err != nil {
		return err
	}
	s.log.Info("notification task status updated", slog.String("status", status))
	return nil
}

// State возвращает полное состояние менеджера для административного просмотра.
func (s *ManagerService) State(ctx context.Context) (*models.ManagerState, error) {
	return s.repo.GetManagerState(ctx)
}
