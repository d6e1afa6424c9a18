package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/library-loans/internal/models"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

type txMock struct {
	mock.Mock
	repository.Tx
}

func (m *txMock) LockBook(ctx context.Context, bookID int) (*models.Book, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}
func (m *txMock) CreateCopy(ctx context.Context, copy models.Copy) (int, error) {
	args := m.Called(ctx, copy)
	return args.Int(0), args.Error(1)
}
func (m *txMock) DeleteCopy(ctx context.Context, copyID int) error {
	return m.Called(ctx, copyID).Error(0)
}
func (m *txMock) AddBookInventory(ctx context.Context, bookID int) error {
	return m.Called(ctx, bookID).Error(0)
}
func (m *txMock) RemoveBookInventory(ctx context.Context, bookID int) error {
	return m.Called(ctx, bookID).Error(0)
}

type repoMock struct {
	mock.Mock
	tx *txMock
}

func (m *repoMock) WithTx(_ context.Context, fn func(tx repository.Tx) error) error {
	return fn(m.tx)
}
func (m *repoMock) CreateBook(ctx context.Context, book models.Book) (int, error) {
	args := m.Called(ctx, book)
	return args.Int(0), args.Error(1)
}
func (m *repoMock) GetBook(ctx context.Context, id int) (*models.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}
func (m *repoMock) GetBookByTitle(ctx context.Context, title string) (*models.Book, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}
func (m *repoMock) ListBooks(ctx context.Context) ([]models.Book, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}
func (m *repoMock) DeleteBook(ctx context.Context, id int) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}
func (m *repoMock) CountOngoingLoansForBook(ctx context.Context, bookID int) (int, error) {
	args := m.Called(ctx, bookID)
	return args.Int(0), args.Error(1)
}
func (m *repoMock) CreateCategory(ctx context.Context, name string) (int, error) {
	args := m.Called(ctx, name)
	return args.Int(0), args.Error(1)
}
func (m *repoMock) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}
func (m *repoMock) GetCopy(ctx context.Context, id int) (*models.Copy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Copy), args.Error(1)
}
func (m *repoMock) FindCopyByISBN(ctx context.Context, isbn string) (*models.Copy, error) {
	args := m.Called(ctx, isbn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Copy), args.Error(1)
}
func (m *repoMock) ListCopiesForBook(ctx context.Context, bookID int) ([]models.Copy, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Copy), args.Error(1)
}

type cacheMock struct{ mock.Mock }

func (m *cacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *cacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}
func (m *cacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func permissiveCache() *cacheMock {
	cache := &cacheMock{}
	cache.On("Get", mock.Anything, mock.Anything).Return(false, nil)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	cache.On("Invalidate", mock.Anything).Return(nil)
	return cache
}

func TestCatalogService_AddCopy(t *testing.T) {
	tests := []struct {
		name     string
		isbn     string
		wantISBN string
		wantErr  error
	}{
		{name: "valid isbn-10", isbn: "0306406152", wantISBN: "0-306-40615-2"},
		{name: "valid isbn-13", isbn: "978-0-306-40615-7", wantISBN: "978-0-306-40615-7"},
		{name: "bad check digit", isbn: "0-306-40615-3", wantErr: ErrInvalidISBN},
		{name: "garbage", isbn: "not-an-isbn", wantErr: ErrInvalidISBN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &txMock{}
			if tt.wantErr == nil {
				tx.On("LockBook", mock.Anything, 10).Return(&models.Book{ID: 10}, nil)
				tx.On("CreateCopy", mock.Anything, mock.MatchedBy(func(copy models.Copy) bool {
					return copy.ISBN == tt.wantISBN && copy.BookID == 10
				})).Return(100, nil)
				tx.On("AddBookInventory", mock.Anything, 10).Return(nil)
			}

			service := NewCatalogService(&repoMock{tx: tx}, permissiveCache(), newNoopLogger())
			id, err := service.AddCopy(context.Background(), models.DummyCopy{
				BookID:    10,
				ISBN:      tt.isbn,
				Condition: models.CopyConditionGood,
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 100, id)
			}
			tx.AssertExpectations(t)
		})
	}
}

func TestCatalogService_RemoveCopy(t *testing.T) {
	t.Run("refused while loaned", func(t *testing.T) {
		repo := &repoMock{}
		repo.On("GetCopy", mock.Anything, 100).Return(&models.Copy{
			ID: 100, BookID: 10, IsLoaned: true,
		}, nil)

		service := NewCatalogService(repo, permissiveCache(), newNoopLogger())
		err := service.RemoveCopy(context.Background(), 100)
		require.ErrorIs(t, err, ErrCopyLoaned)
	})

	t.Run("removes free copy and shrinks counters", func(t *testing.T) {
		tx := &txMock{}
		tx.On("LockBook", mock.Anything, 10).Return(&models.Book{ID: 10}, nil)
		tx.On("DeleteCopy", mock.Anything, 100).Return(nil)
		tx.On("RemoveBookInventory", mock.Anything, 10).Return(nil)
		repo := &repoMock{tx: tx}
		repo.On("GetCopy", mock.Anything, 100).Return(&models.Copy{ID: 100, BookID: 10}, nil)

		service := NewCatalogService(repo, permissiveCache(), newNoopLogger())
		require.NoError(t, service.RemoveCopy(context.Background(), 100))
		tx.AssertExpectations(t)
	})
}

func TestCatalogService_DeleteBook(t *testing.T) {
	t.Run("refused with open loans", func(t *testing.T) {
		repo := &repoMock{}
		repo.On("CountOngoingLoansForBook", mock.Anything, 10).Return(1, nil)

		service := NewCatalogService(repo, permissiveCache(), newNoopLogger())
		require.ErrorIs(t, service.DeleteBook(context.Background(), 10), ErrBookHasLoans)
	})

	t.Run("missing book", func(t *testing.T) {
		repo := &repoMock{}
		repo.On("CountOngoingLoansForBook", mock.Anything, 10).Return(0, nil)
		repo.On("DeleteBook", mock.Anything, 10).Return(0, nil)

		service := NewCatalogService(repo, permissiveCache(), newNoopLogger())
		require.ErrorIs(t, service.DeleteBook(context.Background(), 10), repository.ErrNotFound)
	})
}

func TestCatalogService_GetBook_UsesCache(t *testing.T) {
	book := &models.Book{ID: 10, Title: "Мастер и Маргарита"}
	cache := &cacheMock{}
	cache.On("Get", "book:10", mock.Anything).Run(func(args mock.Arguments) {
		ptr := args.Get(1).(**models.Book)
		*ptr = book
	}).Return(true, nil)

	repo := &repoMock{}
	service := NewCatalogService(repo, cache, newNoopLogger())
	got, err := service.GetBook(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "Мастер и Маргарита", got.Title)
	repo.AssertNotCalled(t, "GetBook", mock.Anything, mock.Anything)
}
