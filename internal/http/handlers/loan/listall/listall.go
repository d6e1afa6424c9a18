// Package listall реализует HTTP-обработчик списка займов для библиотекаря.
package listall

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

// Service описывает интерфейс бизнес-логики списка займов.
type Service interface {
	ListByArchived(ctx context.Context, archived bool) ([]models.Loan, error)
}

// Handler управляет HTTP-запросами на получение списка займов.
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
// @Summary Список займов
// @Description Возвращает активные займы, либо архивные при archived=true.
// @Tags Loans
// @Produce  json
// @Param archived query bool false "Показать архивные займы"
// @Success 200 {object} map[string]any "Список займов"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /admin/loans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.loan.listall"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	archived := r.URL.Query().Get("archived") == "true"

	loans, err := h.service.ListByArchived(r.Context(), archived)
	if err != nil {
		log.Error("failed to list loans", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list loans"))
		return
	}

	log.Info("loans listed",
		slog.Bool("archived", archived),
		slog.Int("count", len(loans)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"loans": loans,
	}))
}
