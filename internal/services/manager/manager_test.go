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

func (m *txMock) ManagerState(ctx context.Context) (*models.ManagerState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ManagerState), args.Error(1)
}
func (m *txMock) SaveManagerState(ctx context.Context, state models.ManagerState) error {
	return m.Called(ctx, state).Error(0)
}

type repoMock struct {
	mock.Mock
	tx *txMock
}

func (m *repoMock) WithTx(_ context.Context, fn func(tx repository.Tx) error) error {
	return fn(m.tx)
}
func (m *repoMock) GetManagerState(ctx context.Context) (*models.ManagerState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ManagerState), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testState() models.ManagerState {
	return models.ManagerState{
		LoanPolicy: models.LoanPolicy{
			LoanDuration:         7,
			PostponeLoanDuration: 7,
			MaxBooksLimit:        3,
			StartLoanLimit:       3,
			MainEmailInterval:    5,
			RetryEmailInterval:   1,
			DailyEmailLimit:      10,
		},
		EmailDate:     time.Now(),
		EmailCount:    4,
		LastVerifyRun: time.Now().AddDate(0, 0, -2),
		Status:        models.TaskStatusSuccess,
	}
}

func TestManagerService_SetPolicy_Invalid(t *testing.T) {
	service := NewManagerService(&repoMock{}, newNoopLogger())
	err := service.SetPolicy(context.Background(), models.LoanPolicy{LoanDuration: -1})
	require.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestManagerService_SetPolicy_KeepsCounters(t *testing.T) {
	state := testState()
	newPolicy := state.LoanPolicy
	newPolicy.DailyEmailLimit = 50

	tx := &txMock{}
	tx.On("ManagerState", mock.Anything).Return(&state, nil)
	tx.On("SaveManagerState", mock.Anything, mock.MatchedBy(func(saved models.ManagerState) bool {
		return saved.DailyEmailLimit == 50 && saved.EmailCount == 4
	})).Return(nil)

	service := NewManagerService(&repoMock{tx: tx}, newNoopLogger())
	require.NoError(t, service.SetPolicy(context.Background(), newPolicy))
	tx.AssertExpectations(t)
}

func TestManagerService_RemainingEmails(t *testing.T) {
	tests := []struct {
		name  string
		state func() models.ManagerState
		want  int
	}{
		{
			name:  "counts today",
			state: testState,
			want:  6,
		},
		{
			name: "stale date resets counter",
			state: func() models.ManagerState {
				s := testState()
				s.EmailDate = time.Now().AddDate(0, 0, -1)
				s.EmailCount = 9
				return s
			},
			want: 10,
		},
		{
			name: "never negative",
			state: func() models.ManagerState {
				s := testState()
				s.EmailCount = 15
				return s
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := tt.state()
			repo := &repoMock{}
			repo.On("GetManagerState", mock.Anything).Return(&state, nil)

			service := NewManagerService(repo, newNoopLogger())
			remaining, err := service.RemainingEmails(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, remaining)
		})
	}
}

func TestManagerService_IncrementEmailCount(t *testing.T) {
	t.Run("increments below limit", func(t *testing.T) {
		state := testState()
		tx := &txMock{}
		tx.On("ManagerState", mock.Anything).Return(&state, nil)
		tx.On("SaveManagerState", mock.Anything, mock.MatchedBy(func(saved models.ManagerState) bool {
			return saved.EmailCount == 5
		})).Return(nil)

		service := NewManagerService(&repoMock{tx: tx}, newNoopLogger())
		allowed, err := service.IncrementEmailCount(context.Background())
		require.NoError(t, err)
		assert.True(t, allowed)
		tx.AssertExpectations(t)
	})

	t.Run("refuses at limit without mutation", func(t *testing.T) {
		state := testState()
		state.EmailCount = state.DailyEmailLimit
		tx := &txMock{}
		tx.On("ManagerState", mock.Anything).Return(&state, nil)

		service := NewManagerService(&repoMock{tx: tx}, newNoopLogger())
		allowed, err := service.IncrementEmailCount(context.Background())
		require.NoError(t, err)
		assert.False(t, allowed)
		tx.AssertNotCalled(t, "SaveManagerState", mock.Anything, mock.Anything)
	})

	t.Run("rolls the counter over on a new day", func(t *testing.T) {
		state := testState()
		state.EmailDate = time.Now().AddDate(0, 0, -3)
		state.EmailCount = state.DailyEmailLimit
		tx := &txMock{}
		tx.On("ManagerState", mock.Anything).Return(&state, nil)
		tx.On("SaveManagerState", mock.Anything, mock.MatchedBy(func(saved models.ManagerState) bool {
			return saved.EmailCount == 1 && saved.EmailDate.Day() == time.Now().Day()
		})).Return(nil)

		service := NewManagerService(&repoMock{tx: tx}, newNoopLogger())
		allowed, err := service.IncrementEmailCount(context.Background())
		require.NoError(t, err)
		assert.True(t, allowed)
		tx.AssertExpectations(t)
	})
}

func TestManagerService_ShouldNotifyUsers(t *testing.T) {
	tests := []struct {
		name  string
		state func() models.ManagerState
		want  bool
	}{
		{
			name: "main interval elapsed",
			state: func() models.ManagerState {
				s := testState()
				s.LastVerifyRun = time.Now().AddDate(0, 0, -5)
				return s
			},
			want: true,
		},
		{
			name:  "main interval not elapsed",
			state: testState,
			want:  false,
		},
		{
			name: "failed run retries sooner",
			state: func() models.ManagerState {
				s := testState()
				s.Status = models.TaskStatusFailed
				s.LastVerifyRun = time.Now().AddDate(0, 0, -1)
				return s
			},
			want: true,
		},
		{
			name: "failed run same day does not retry",
			state: func() models.ManagerState {
				s := testState()
				s.Status = models.TaskStatusFailed
				s.LastVerifyRun = time.Now()
				return s
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := tt.state()
			repo := &repoMock{}
			repo.On("GetManagerState", mock.Anything).Return(&state, nil)

			service := NewManagerService(repo, newNoopLogger())
			due, err := service.ShouldNotifyUsers(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, due)
		})
	}
}

func TestManagerService_UpdateTaskStatus(t *testing.T) {
	state := testState()
	state.Status = models.TaskStatusFailed
	tx := &txMock{}
	tx.On("ManagerState", mock.Anything).Return(&state, nil)
	tx.On("SaveManagerState", mock.Anything, mock.MatchedBy(func(saved models.ManagerState) bool {
		return saved.Status == models.TaskStatusSuccess &&
			saved.LastVerifyRun.Day() == time.Now().Day()
	})).Return(nil)

	service := NewManagerService(&repoMock{tx: tx}, newNoopLogger())
	require.NoError(t, service.UpdateTaskStatus(context.Background(), true))
	tx.AssertExpectations(t)
}
