package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

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

func (m *txMock) UserByUID(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *txMock) LockBook(ctx context.Context, bookID int) (*models.Book, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}
func (m *txMock) FindAvailableCopy(ctx context.Context, bookID int) (*models.Copy, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Copy), args.Error(1)
}
func (m *txMock) GetWaitListEntry(ctx context.Context, uid string, bookID int) (*models.WaitListEntry, error) {
	args := m.Called(ctx, uid, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WaitListEntry), args.Error(1)
}
func (m *txMock) CountWaitListByUser(ctx context.Context, uid string) (int, error) {
	args := m.Called(ctx, uid)
	return args.Int(0), args.Error(1)
}
func (m *txMock) CountWaitListForBook(ctx context.Context, bookID int) (int, error) {
	args := m.Called(ctx, bookID)
	return args.Int(0), args.Error(1)
}
func (m *txMock) CreateWaitListEntry(ctx context.Context, entry models.WaitListEntry) (int, error) {
	args := m.Called(ctx, entry)
	return args.Int(0), args.Error(1)
}
func (m *txMock) DeleteWaitListEntry(ctx context.Context, entryID int) error {
	return m.Called(ctx, entryID).Error(0)
}
func (m *txMock) ShiftWaitListPositions(ctx context.Context, bookID, abovePosition int) error {
	return m.Called(ctx, bookID, abovePosition).Error(0)
}

type repoMock struct {
	mock.Mock
	tx *txMock
}

func (m *repoMock) WithTx(_ context.Context, fn func(tx repository.Tx) error) error {
	return fn(m.tx)
}
func (m *repoMock) ListWaitListPositions(ctx context.Context, uid string) ([]models.WaitListPosition, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WaitListPosition), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestWaitListService_Enter(t *testing.T) {
	user := &models.User{UID: "uid-1", Name: "Иван Иванов"}
	book := &models.Book{ID: 10, Title: "Мастер и Маргарита"}

	tests := []struct {
		name         string
		setupMocks   func(tx *txMock)
		wantPosition int
		wantErr      error
	}{
		{
			name: "appends to tail",
			setupMocks: func(tx *txMock) {
				tx.On("UserByUID", mock.Anything, "uid-1").Return(user, nil)
				tx.On("LockBook", mock.Anything, 10).Return(book, nil)
				tx.On("FindAvailableCopy", mock.Anything, 10).Return(nil, repository.ErrNotFound)
				tx.On("GetWaitListEntry", mock.Anything, "uid-1", 10).Return(nil, repository.ErrNotFound)
				tx.On("CountWaitListByUser", mock.Anything, "uid-1").Return(1, nil)
				tx.On("CountWaitListForBook", mock.Anything, 10).Return(2, nil)
				tx.On("CreateWaitListEntry", mock.Anything, mock.MatchedBy(func(entry models.WaitListEntry) bool {
					return entry.Position == 3 && entry.UserUID == "uid-1" && entry.BookID == 10
				})).Return(5, nil)
			},
			wantPosition: 3,
		},
		{
			name: "book has available copy",
			setupMocks: func(tx *txMock) {
				tx.On("UserByUID", mock.Anything, "uid-1").Return(user, nil)
				tx.On("LockBook", mock.Anything, 10).Return(book, nil)
				tx.On("FindAvailableCopy", mock.Anything, 10).Return(&models.Copy{ID: 100}, nil)
			},
			wantErr: ErrBookAvailable,
		},
		{
			name: "already waiting",
			setupMocks: func(tx *txMock) {
				tx.On("UserByUID", mock.Anything, "uid-1").Return(user, nil)
				tx.On("LockBook", mock.Anything, 10).Return(book, nil)
				tx.On("FindAvailableCopy", mock.Anything, 10).Return(nil, repository.ErrNotFound)
				tx.On("GetWaitListEntry", mock.Anything, "uid-1", 10).Return(&models.WaitListEntry{ID: 5}, nil)
			},
			wantErr: ErrAlreadyWaiting,
		},
		{
			name: "wait list limit is global across books",
			setupMocks: func(tx *txMock) {
				tx.On("UserByUID", mock.Anything, "uid-1").Return(user, nil)
				tx.On("LockBook", mock.Anything, 10).Return(book, nil)
				tx.On("FindAvailableCopy", mock.Anything, 10).Return(nil, repository.ErrNotFound)
				tx.On("GetWaitListEntry", mock.Anything, "uid-1", 10).Return(nil, repository.ErrNotFound)
				tx.On("CountWaitListByUser", mock.Anything, "uid-1").Return(3, nil)
			},
			wantErr: ErrTooManyWaitLists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &txMock{}
			tt.setupMocks(tx)
			service := NewWaitListService(&repoMock{tx: tx}, newNoopLogger())

			position, err := service.Enter(context.Background(), "uid-1", 10)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantPosition, position)
			}
			tx.AssertExpectations(t)
		})
	}
}

func TestWaitListService_Exit(t *testing.T) {
	tx := &txMock{}
	tx.On("LockBook", mock.Anything, 10).Return(&models.Book{ID: 10}, nil)
	tx.On("GetWaitListEntry", mock.Anything, "uid-1", 10).Return(&models.WaitListEntry{
		ID: 5, UserUID: "uid-1", BookID: 10, Position: 2,
	}, nil)
	tx.On("DeleteWaitListEntry", mock.Anything, 5).Return(nil)
	tx.On("ShiftWaitListPositions", mock.Anything, 10, 2).Return(nil)

	service := NewWaitListService(&repoMock{tx: tx}, newNoopLogger())
	err := service.Exit(context.Background(), "uid-1", 10)
	require.NoError(t, err)
	tx.AssertExpectations(t)
}

func TestWaitListService_Exit_NotWaiting(t *testing.T) {
	tx := &txMock{}
	tx.On("LockBook", mock.Anything, 10).Return(&models.Book{ID: 10}, nil)
	tx.On("GetWaitListEntry", mock.Anything, "uid-1", 10).Return(nil, repository.ErrNotFound)

	service := NewWaitListService(&repoMock{tx: tx}, newNoopLogger())
	err := service.Exit(context.Background(), "uid-1", 10)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWaitListService_Positions(t *testing.T) {
	repo := &repoMock{}
	repo.On("ListWaitListPositions", mock.Anything, "uid-1").Return([]models.WaitListPosition{
		{BookID: 10, BookTitle: "Мастер и Маргарита", Position: 2},
		{BookID: 11, BookTitle: "Собачье сердце", Position: 1},
	}, nil)

	service := NewWaitListService(repo, newNoopLogger())
	positions, err := service.Positions(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Len(t, positions, 2)
	repo.AssertExpectations(t)
}
