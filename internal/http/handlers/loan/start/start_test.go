package start

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/library-loans/internal/http/middlewarectx"
	"github.com/magabrotheeeer/library-loans/internal/models"
	loanservice "github.com/magabrotheeeer/library-loans/internal/services/loan"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

// Мок сервиса с методом StartLoan
type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) StartLoan(ctx context.Context, loanID int, actor models.Actor) error {
	args := m.Called(ctx, loanID, actor)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestStartHandler_ServeHTTP(t *testing.T) {
	logger := newNoopLogger()
	admin := models.Actor{UID: "admin-uid", Name: "librarian"}

	tests := []struct {
		name           string
		url            string
		setupMock      func(m *ServiceMock)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешный старт займа",
			url:  "/admin/loans/5/start",
			setupMock: func(m *ServiceMock) {
				m.On("StartLoan", mock.Anything, 5, admin).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name:           "некорректный id",
			url:            "/admin/loans/abc/start",
			setupMock:      func(_ *ServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid loan id"`,
		},
		{
			name: "займ не найден",
			url:  "/admin/loans/99/start",
			setupMock: func(m *ServiceMock) {
				m.On("StartLoan", mock.Anything, 99, admin).Return(repository.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"loan not found"`,
		},
		{
			name: "займ не в статусе REQUESTED",
			url:  "/admin/loans/5/start",
			setupMock: func(m *ServiceMock) {
				m.On("StartLoan", mock.Anything, 5, admin).Return(loanservice.ErrLoanNotRequested)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"status":"Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(ServiceMock)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, tt.url, nil)
			// Устанавливаем URL param для ID
			rctx := chi.NewRouteContext()
			id := strings.TrimPrefix(strings.TrimSuffix(tt.url, "/start"), "/admin/loans/")
			rctx.URLParams.Add("id", id)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middlewarectx.UserUID, admin.UID)
			ctx = context.WithValue(ctx, middlewarectx.User, admin.Name)
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
