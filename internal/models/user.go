// Package models содержит доменные структуры библиотеки:
// пользователей, книги, экземпляры, займы, очереди ожидания и журнал действий.
// Структуры используются в бизнес-логике и при работе с хранилищем.
package models

import "time"

// Роли пользователей системы.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет зарегистрированного читателя или администратора.
type User struct {
	UID          string // Уникальный идентификатор пользователя
	Name         string // Полное имя
	Email        string // Электронная почта (уникальная)
	PasswordHash string // Хэш пароля
	Role         string // Роль пользователя, admin или user
	IsBlocked    bool   // Выставляется задачей проверки просроченных займов
	CreatedAt    time.Time
}

// Actor описывает пользователя, выполняющего привилегированную операцию.
// Данные попадают в журнал действий.
type Actor struct {
	UID  string
	Name string
}

// DummyRegister используется для приёма данных регистрации из JSON-запроса.
type DummyRegister struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// DummyLogin используется для приёма данных входа из JSON-запроса.
type DummyLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
