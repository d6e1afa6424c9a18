package models

import "time"

// Статусы займа. REQUESTED — начальный, RETURNED и TERMINATED — терминальные.
const (
	LoanStatusRequested  = "REQUESTED"
	LoanStatusOngoing    = "ONGOING"
	LoanStatusOverdue    = "OVERDUE"
	LoanStatusReturned   = "RETURNED"
	LoanStatusTerminated = "TERMINATED"
)

// Loan представляет займ одного экземпляра книги одним пользователем.
// UserName, BookTitle и ISBN — денормализованный снимок на момент создания:
// запись переживает переименование и удаление исходных сущностей.
// После перехода в терминальный статус займ становится архивной записью,
// внешние связи не навязываются ограничениями БД.
type Loan struct {
	ID             int
	UserName       string
	UserUID        string
	BookTitle      string
	BookID         int
	ISBN           string
	CopyID         int
	Status         string
	LoanDate       *time.Time // Заполняется только при переходе в ONGOING
	ExpirationDate time.Time
	ReturnDate     *time.Time
	Postponed      bool // Займ можно продлить не более одного раза
	Archived       bool // Истинно для терминальных статусов
}

// Terminal сообщает, достиг ли займ терминального статуса.
func (l *Loan) Terminal() bool {
	return l.Status == LoanStatusReturned || l.Status == LoanStatusTerminated
}

// WaitListEntry представляет место пользователя в очереди ожидания книги.
// Позиции каждой книги образуют плотную последовательность 1..N без пропусков.
type WaitListEntry struct {
	ID        int
	UserName  string
	UserUID   string
	BookTitle string
	BookID    int
	Position  int
}

// DummyLoan используется для приёма ID книги из JSON-запроса на займ.
type DummyLoan struct {
	BookID int `json:"book_id" validate:"required"`
}

// DummyLoanID используется для приёма ID займа из JSON-запроса.
type DummyLoanID struct {
	ID int `json:"id" validate:"required"`
}

// DummyWaitList используется для приёма ID книги из JSON-запроса очереди ожидания.
type DummyWaitList struct {
	BookID int `json:"book_id" validate:"required"`
}

// WaitListPosition описывает позицию пользователя в очереди одной книги.
type WaitListPosition struct {
	BookID    int    `json:"book_id"`
	BookTitle string `json:"book_title"`
	Position  int    `json:"position"`
}
