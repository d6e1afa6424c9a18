// Package taskrunner содержит приложение фоновых задач библиотеки:
// истечение неначатых займов, пометка просрочек и рассылка напоминаний.
package taskrunner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/library-loans/internal/config"
	"github.com/magabrotheeeer/library-loans/internal/rabbitmq"
	managerservice "github.com/magabrotheeeer/library-loans/internal/services/manager"
	taskservice "github.com/magabrotheeeer/library-loans/internal/services/tasks"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

// App представляет приложение фоновых задач.
type App struct {
	taskService *taskservice.TaskService
	conn        *amqp.Connection
	ch          *amqp.Channel
	logger      *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range 10 {
		err := db.CheckDatabaseReady(ctx)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения фоновых задач.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	queues := rabbitmq.GetNotificationQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(ctx, db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	managerService := managerservice.NewManagerService(db, logger)
	publisher := rabbitmq.NewPublisher(ch)
	taskService := taskservice.NewTaskService(db, managerService, publisher, logger)

	return &App{
		taskService: taskService,
		conn:        conn,
		ch:          ch,
		logger:      logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает фоновые задачи и ждет отмены контекста.
func (a *App) Run(ctx context.Context) error {
	go a.taskService.RunExpireStaleRequests(ctx)
	go a.taskService.RunSweepOverdueLoans(ctx)
	go a.taskService.RunNotifyOverdueUsers(ctx)

	<-ctx.Done()

	a.logger.Info("shutting down task runner")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
