// Package remove реализует HTTP-обработчик списания экземпляра книги.
package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/library-loans/internal/http/response"
	"github.com/magabrotheeeer/library-loans/internal/lib/sl"
	catalogservice "github.com/magabrotheeeer/library-loans/internal/services/catalog"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики каталога.
type Service interface {
	RemoveCopy(ctx context.Context, copyID int) error
}

// Handler управляет HTTP-запросами на списание экземпляра.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Списать экземпляр
// @Description Удаляет свободный экземпляр из фонда и уменьшает счётчики книги.
// @Tags Copies
// @Produce  json
// @Param id path int true "ID экземпляра"
// @Success 200 {object} response.Response "Экземпляр списан"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Экземпляр не найден"
// @Failure 409 {object} response.ErrorResponse "Экземпляр находится в займе"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /admin/copies/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.copy.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("invalid copy id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid copy id"))
		return
	}

	if err := h.service.RemoveCopy(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			log.Error("copy not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("copy not found"))
		case errors.Is(err, catalogservice.ErrCopyLoaned):
			log.Error("copy is loaned", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to remove copy", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not remove copy"))
		}
		return
	}

	log.Info("copy removed", slog.Int("copy_id", id))
	render.JSON(w, r, response.OK())
}
