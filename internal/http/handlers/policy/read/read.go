// Package read реализует HTTP-обработчик просмотра политики займов.
package read

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

// Service описывает интерфейс бизнес-логики управления политикой.
type Service interface {
	State(ctx context.Context) (*models.ManagerState, error)
}

// Handler управляет HTTP-запросами на просмотр политики займов.
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
// @Summary Текущая политика займов
// @Description Возвращает правила займов, дневной счётчик писем и состояние задачи уведомлений.
// @Tags Policy
// @Produce  json
// @Success 200 {object} map[string]any "Состояние политики"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /admin/policy [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.policy.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	state, err := h.service.State(r.Context())
	if err != nil {
		log.Error("failed to read policy state", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read policy"))
		return
	}

	log.Info("policy state read")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"state": state,
	}))
}
