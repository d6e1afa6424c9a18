// Package create реализует HTTP-обработчик запроса займа.
//
// Handler принимает JSON с ID книги, извлекает UID читателя из контекста,
// вызывает бизнес-логику запроса займа и возвращает ID созданной записи.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/library-loans/internal/http/middlewarectx"
	"github.com/magabrotheeeer/library-loans/internal/http/response"
	"github.com/magabrotheeeer/library-loans/internal/lib/sl"
	"github.com/magabrotheeeer/library-loans/internal/models"
	loanservice "github.com/magabrotheeeer/library-loans/internal/services/loan"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики запроса займа.
type Service interface {
	RequestLoan(ctx context.Context, userUID string, bookID int) (int, error)
}

// Handler управляет HTTP-запросами на создание займа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Запросить займ книги
// @Description Резервирует свободный экземпляр книги для текущего читателя. Возвращает ID займа.
// @Tags Loans
// @Accept  json
// @Produce  json
// @Param request body models.DummyLoan true "ID книги"
// @Success 200 {object} map[string]any "Успешное создание займа"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Книга не найдена"
// @Failure 409 {object} response.ErrorResponse "Нарушено бизнес-правило займов"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /loans [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.loan.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyLoan
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	id, err := h.service.RequestLoan(r.Context(), userUID, req.BookID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			log.Error("book not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("book not found"))
		case errors.Is(err, loanservice.ErrUserBlocked),
			errors.Is(err, loanservice.ErrUserHasExpiredLoan),
			errors.Is(err, loanservice.ErrNoAvailableCopies),
			errors.Is(err, loanservice.ErrTooManyLoans),
			errors.Is(err, loanservice.ErrOpenLoanForBook),
			errors.Is(err, loanservice.ErrRecentlyReturned):
			log.Error("loan request rejected", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to request loan", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not request loan"))
		}
		return
	}

	log.Info("loan requested", slog.Int("loan_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"loan_id": id,
	}))
}
