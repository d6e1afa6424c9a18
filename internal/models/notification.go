package models

import "time"

// LoanEmailInfo описывает сообщение о начатом займе или продвижении
// в очереди ожидания, публикуемое в RabbitMQ после коммита транзакции.
type LoanEmailInfo struct {
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	BookTitle      string    `json:"book_title"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// OverdueLoanInfo описывает один просроченный займ в письме-напоминании.
type OverdueLoanInfo struct {
	BookTitle      string    `json:"book_title"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// OverdueEmailInfo описывает письмо пользователю со списком его просроченных займов.
type OverdueEmailInfo struct {
	Email string            `json:"email"`
	Name  string            `json:"name"`
	Loans []OverdueLoanInfo `json:"loans"`
}
