// Package position реализует HTTP-обработчик просмотра позиций в очередях ожидания.
package position

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/library-loans/internal/http/middlewarectx"
	"github.com/magabrotheeeer/library-loans/internal/http/response"
	"github.com/magabrotheeeer/library-loans/internal/lib/sl"
	"github.com/magabrotheeeer/library-loans/internal/models"
)

// Service описывает интерфейс бизнес-логики очереди ожидания.
type Service interface {
	Positions(ctx context.Context, userUID string) ([]models.WaitListPosition, error)
}

// Handler управляет HTTP-запросами на просмотр позиций в очередях.
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
// @Summary Позиции в очередях ожидания
// @Description Возвращает все книги, которые ждет текущий читатель, с позициями в очередях.
// @Tags WaitList
// @Produce  json
// @Success 200 {object} map[string]any "Список позиций"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /waitlist [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.waitlist.position"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	positions, err := h.service.Positions(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list wait list positions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list wait list positions"))
		return
	}

	log.Info("wait list positions listed", slog.Int("count", len(positions)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"positions": positions,
	}))
}
