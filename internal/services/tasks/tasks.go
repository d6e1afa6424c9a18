// Package services содержит регулярные задачи обслуживания библиотеки:
// завершение просроченных запросов, перевод займов в OVERDUE и рассылку
// напоминаний должникам.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/library-loans/internal/lib/sl"
	"github.com/magabrotheeeer/library-loans/internal/models"
	"github.com/magabrotheeeer/library-loans/internal/rabbitmq"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

// TaskRepository определяет методы хранилища, используемые задачами.
type TaskRepository interface {
	// WithTx выполняет fn внутри одной транзакции.
	WithTx(ctx context.Context, fn func(tx repository.Tx) error) error
	// ListUsersWithOverdueLoans возвращает должников с их просроченными займами.
	ListUsersWithOverdueLoans(ctx context.Context) ([]models.OverdueEmailInfo, error)
}

// Manager определяет методы менеджера уведомлений, используемые задачей рассылки.
type Manager interface {
	// ShouldNotifyUsers сообщает, пора ли запускать рассылку.
	ShouldNotifyUsers(ctx context.Context) (bool, error)
	// RemainingEmails возвращает остаток дневного лимита писем.
	RemainingEmails(ctx context.Context) (int, error)
	// UpdateTaskStatus фиксирует исход запуска задачи рассылки.
	UpdateTaskStatus(ctx context.Context, success bool) error
}

// Publisher публикует сообщения для отправки писем.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// TaskService запускает задачи обслуживания по собственным таймерам.
// Все задачи идемпотентны: повторный запуск не меняет результат.
type TaskService struct {
	repo      TaskRepository
	manager   Manager
	publisher Publisher
	log       *slog.Logger
}

// NewTaskService создает новый экземпляр TaskService.
func NewTaskService(repo TaskRepository, manager Manager, publisher Publisher, log *slog.Logger) *TaskService {
	return &TaskService{
		repo:      repo,
		manager:   manager,
		publisher: publisher,
		log:       log,
	}
}

// RunExpireStaleRequests запускает завершение просроченных запросов
// раз в сутки до отмены контекста.
func (s *TaskService) RunExpireStaleRequests(ctx context.Context) {
	s.runTask(ctx, s.ExpireStaleRequests)
}

// RunSweepOverdueLoans запускает перевод займов в OVERDUE раз в сутки
// до отмены контекста.
func (s *TaskService) RunSweepOverdueLoans(ctx context.Context) {
	s.runTask(ctx, s.SweepOverdueLoans)
}

// RunNotifyOverdueUsers запускает рассылку напоминаний раз в сутки
// до отмены контекста.
func (s *TaskService) RunNotifyOverdueUsers(ctx context.Context) {
	s.runTask(ctx, s.NotifyOverdueUsers)
}

func (s *TaskService) runTask(ctx context.Context, task func(ctx context.Context)) {
	task(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task(ctx)
		}
	}
}

// ExpireStaleRequests освобождает экземпляры невостребованных запросов
// и архивирует такие займы статусом TERMINATED. Счётчик copies_available
// не меняется: он уменьшается только при выдаче книги.
func (s *TaskService) ExpireStaleRequests(ctx context.Context) {
	s.log.Info("starting task to expire stale loan requests")
	now := time.Now()

	var freed, terminated int64
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		if freed, err = tx.FreeCopiesOfExpiredRequests(ctx, now); err != nil {
			return err
		}
		terminated, err = tx.TerminateExpiredRequests(ctx, now)
		return err
	})
	if err != nil {
		s.log.Error("failed to expire stale loan requests", sl.Err(err))
		return
	}
	s.log.Info("expired stale loan requests",
		slog.Int64("terminated", terminated),
		slog.Int64("freed_copies", freed))
}

// SweepOverdueLoans переводит начатые займы с истёкшим сроком в OVERDUE
// и блокирует их владельцев.
func (s *TaskService) SweepOverdueLoans(ctx context.Context) {
	s.log.Info("starting task to sweep overdue loans")
	now := time.Now()

	var marked, blocked int64
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		if marked, err = tx.MarkOverdueLoans(ctx, now); err != nil {
			return err
		}
		blocked, err = tx.BlockUsersWithOverdueLoans(ctx)
		return err
	})
	if err != nil {
		s.log.Error("failed to sweep overdue loans", sl.Err(err))
		return
	}
	s.log.Info("swept overdue loans",
		slog.Int64("marked", marked),
		slog.Int64("blocked_users", blocked))
}

// NotifyOverdueUsers публикует по одному письму на должника со списком его
// просроченных займов. Запуск пропускается, если расписание менеджера не
// требует рассылки. Исход фиксируется на каждом пути выхода после проверки
// расписания: FAILED при отсутствии должников, нехватке дневного лимита
// писем или ошибке инфраструктуры.
func (s *TaskService) NotifyOverdueUsers(ctx context.Context) {
	due, err := s.manager.ShouldNotifyUsers(ctx)
	if err != nil {
		s.log.Error("failed to check notification schedule", sl.Err(err))
		return
	}
	if !due {
		s.log.Info("notification task is not due yet")
		return
	}
	s.log.Info("starting task to notify overdue users")

	users, err := s.repo.ListUsersWithOverdueLoans(ctx)
	if err != nil {
		s.log.Error("failed to list overdue users", sl.Err(err))
		s.updateStatus(ctx, false)
		return
	}
	if len(users) == 0 {
		s.log.Info("no overdue users found")
		s.updateStatus(ctx, false)
		return
	}
	remaining, err := s.manager.RemainingEmails(ctx)
	if err != nil {
		s.log.Error("failed to read email quota", sl.Err(err))
		s.updateStatus(ctx, false)
		return
	}
	if len(users) >= remaining {
		s.log.Warn("not enough email quota for overdue notifications",
			slog.Int("users", len(users)),
			slog.Int("remaining", remaining))
		s.updateStatus(ctx, false)
		return
	}

	for _, user := range users {
		if err := s.publisher.Publish(rabbitmq.RouteLoansOverdue, user); err != nil {
			s.log.Error("failed to publish overdue notification",
				slog.String("email", user.Email), sl.Err(err))
		}
	}
	s.log.Info("published overdue notifications", slog.Int("count", len(users)))
	s.updateStatus(ctx, true)
}

func (s *TaskService) updateStatus(ctx context.Context, success bool) {
	if err := s.manager.UpdateTaskStatus(ctx, success); err != nil {
		s.log.Error("failed to update notification task status", sl.Err(err))
	}
}
