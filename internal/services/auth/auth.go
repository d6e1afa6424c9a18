// Package services содержит логику регистрации, авторизации и удаления читателей.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/library-loans/internal/lib/jwt"
	"github.com/magabrotheeeer/library-loans/internal/lib/password"
	"github.com/magabrotheeeer/library-loans/internal/models"
)

// Ошибки бизнес-правил аутентификации.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserHasOpenLoans   = errors.New("user has open loans")
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя.
	CreateUser(ctx context.Context, user models.User) error
	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, uid string) (*models.User, error)
	// GetUserByEmail возвращает пользователя по электронной почте.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// DeleteUser удаляет пользователя и возвращает количество удалённых строк.
	DeleteUser(ctx context.Context, uid string) (int, error)
	// CountOpenLoansByUser возвращает количество незавершённых займов пользователя.
	CountOpenLoansByUser(ctx context.Context, userUID string) (int, error)
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register создает нового читателя с хэшированием пароля и ролью "user".
// Возвращает UID нового пользователя.
func (s *AuthService) Register(ctx context.Context, req models.DummyRegister) (string, error) {
	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return "", err
	}
	user := models.User{
		UID:          uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashed,
		Role:         models.RoleUser,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return "", err
	}
	return user.UID, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", "", ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", ErrInvalidCredentials
	}
	token, err = s.jwtMaker.GenerateToken(user.UID, user.Name, user.Role)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ValidateToken проверяет JWT и возвращает данные пользователя из claims.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.User, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, err
	}
	return &models.User{
		UID:  claims.UID,
		Name: claims.Name,
		Role: claims.Role,
	}, nil
}

// DeleteUser удаляет читателя. Отказывает, пока у него есть незавершённые займы:
// архивные записи при этом сохраняются благодаря денормализованному снимку.
func (s *AuthService) DeleteUser(ctx context.Context, uid string) error {
	open, err := s.users.CountOpenLoansByUser(ctx, uid)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrUserHasOpenLoans
	}
	_, err = s.users.DeleteUser(ctx, uid)
	return err
}
