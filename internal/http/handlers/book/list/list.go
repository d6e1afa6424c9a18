// Package list реализует HTTP-обработчик списка книг каталога.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/library-loans/internal/http/response"
	"github.com/magabrotheeeer/library-loans/internal/lib/sl"
	"github.com/magabrotheeeer/library-loans/internal/models"
)

// Service описывает интерфейс бизнес-логики каталога.
type Service interface {
	ListBooks(ctx context.Context) ([]models.Book, error)
	FindBookByTitle(ctx context.Context, title string) (*models.Book, error)
}

// Handler управляет HTTP-запросами на получение списка книг.
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
// @Summary Список книг
// @Description Возвращает каталог книг. При параметре title ищет одну книгу по названию.
// @Tags Books
// @Produce  json
// @Param title query string false "Точное название книги"
// @Success 200 {object} map[string]any "Список книг"
// @Failure 404 {object} response.ErrorResponse "Книга не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /books [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.book.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if title := r.URL.Query().Get("title"); title != "" {
		book, err := h.service.FindBookByTitle(r.Context(), title)
		if err != nil {
			log.Error("book not found by title", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("book not found"))
			return
		}
		log.Info("book found by title", slog.Int("book_id", book.ID))
		render.JSON(w, r, response.OKWithData(map[string]any{
			"books": []models.Book{*book},
		}))
		return
	}

	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		log.Error("failed to list books", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list books"))
		return
	}

	log.Info("books listed", slog.Int("count", len(books)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"books": books,
	}))
}
