// Package list реализует HTTP-обработчик просмотра журнала действий библиотекарей.
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

// Service описывает доступ к журналу действий.
type Service interface {
	ListAdminLogs(ctx context.Context) ([]models.AdminLog, error)
}

// Handler управляет HTTP-запросами на просмотр журнала действий.
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
// @Summary Журнал действий
// @Description Возвращает записи журнала привилегированных операций над займами.
// @Tags AdminLog
// @Produce  json
// @Success 200 {object} map[string]any "Записи журнала"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /admin/logs [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.adminlog.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	logs, err := h.service.ListAdminLogs(r.Context())
	if err != nil {
		log.Error("failed to list admin logs", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list admin logs"))
		return
	}

	log.Info("admin logs listed", slog.Int("count", len(logs)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"logs": logs,
	}))
}
