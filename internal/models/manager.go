package models

import "time"

// Статусы последнего запуска задачи уведомлений.
const (
	TaskStatusSuccess = "SUCCESS"
	TaskStatusFailed  = "FAILED"
)

// LoanPolicy содержит правила займов, редактируемые администратором.
// Значения читаются бизнес-логикой, но не вычисляются ею.
type LoanPolicy struct {
	LoanDuration         int // Длительность займа в днях
	PostponeLoanDuration int // Длительность продления в днях
	MaxBooksLimit        int // Максимум одновременных займов на пользователя
	StartLoanLimit       int // Рабочие дни на то, чтобы забрать книгу и начать займ
	MainEmailInterval    int // Основной интервал задачи уведомлений в днях
	RetryEmailInterval   int // Интервал повтора после неудачи в днях
	DailyEmailLimit      int // Дневной лимит писем
}

// Valid проверяет неотрицательность всех значений политики.
func (p LoanPolicy) Valid() bool {
	return p.LoanDuration >= 0 && p.PostponeLoanDuration >= 0 &&
		p.MaxBooksLimit >= 0 && p.StartLoanLimit >= 0 &&
		p.MainEmailInterval >= 0 && p.RetryEmailInterval >= 0 &&
		p.DailyEmailLimit >= 0
}

// ManagerState представляет единственную строку таблицы manager_state:
// дневной счётчик писем и отметку последнего запуска задачи уведомлений.
// Строка читается и изменяется только под SELECT ... FOR UPDATE.
type ManagerState struct {
	LoanPolicy
	EmailDate     time.Time // Дата, к которой относится счётчик
	EmailCount    int       // Количество писем, отправленных за день
	LastVerifyRun time.Time // Дата последнего запуска задачи уведомлений
	Status        string    // SUCCESS или FAILED
}

// DummyPolicy используется для приёма политики займов из JSON-запроса.
type DummyPolicy struct {
	LoanDuration         int `json:"loan_duration" validate:"min=0"`
	PostponeLoanDuration int `json:"postpone_loan_duration" validate:"min=0"`
	MaxBooksLimit        int `json:"max_books_limit" validate:"min=0"`
	StartLoanLimit       int `json:"start_loan_limit" validate:"min=0"`
	MainEmailInterval    int `json:"main_email_interval" validate:"min=0"`
	RetryEmailInterval   int `json:"retry_email_interval" validate:"min=0"`
	DailyEmailLimit      int `json:"daily_email_limit" validate:"min=0"`
}
