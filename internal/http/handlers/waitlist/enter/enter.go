// Package enter реализует HTTP-обработчик постановки в очередь ожидания книги.
package enter

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
	waitlistservice "github.com/magabrotheeeer/library-loans/internal/services/waitlist"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики очереди ожидания.
type Service interface {
	Enter(ctx context.Context, userUID string, bookID int) (int, error)
}

// Handler управляет HTTP-запросами на вход в очередь ожидания.
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
// @Summary Встать в очередь ожидания
// @Description Добавляет текущего читателя в конец очереди ожидания книги. Возвращает позицию.
// @Tags WaitList
// @Accept  json
// @Produce  json
// @Param request body models.DummyWaitList true "ID книги"
// @Success 200 {object} map[string]any "Позиция в очереди"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Книга не найдена"
// @Failure 409 {object} response.ErrorResponse "Нарушено правило очереди"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /waitlist [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.waitlist.enter"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyWaitList
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

	position, err := h.service.Enter(r.Context(), userUID, req.BookID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			log.Error("book not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("book not found"))
		case errors.Is(err, waitlistservice.ErrBookAvailable),
			errors.Is(err, waitlistservice.ErrAlreadyWaiting),
			errors.Is(err, waitlistservice.ErrTooManyWaitLists):
			log.Error("wait list entry rejected", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to enter wait list", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not enter wait list"))
		}
		return
	}

	log.Info("entered wait list",
		slog.Int("book_id", req.BookID),
		slog.Int("position", position))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"book_id":  req.BookID,
		"position": position,
	}))
}
