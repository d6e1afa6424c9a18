// Package remove реализует HTTP-обработчик удаления книги из каталога.
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
	DeleteBook(ctx context.Context, id int) error
}

// Handler управляет HTTP-запросами на удаление книги.
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
// @Summary Удалить книгу
// @Description Удаляет книгу из каталога, если по ней нет открытых займов. Архивные займы сохраняются.
// @Tags Books
// @Produce  json
// @Param id path int true "ID книги"
// @Success 200 {object} response.Response "Книга удалена"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Книга не найдена"
// @Failure 409 {object} response.ErrorResponse "По книге есть открытые займы"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /admin/books/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.book.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("invalid book id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid book id"))
		return
	}

	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			log.Error("book not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("book not found"))
		case errors.Is(err, catalogservice.ErrBookHasLoans):
			log.Error("book has open loans", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to delete book", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not delete book"))
		}
		return
	}

	log.Info("book deleted", slog.Int("book_id", id))
	render.JSON(w, r, response.OK())
}
