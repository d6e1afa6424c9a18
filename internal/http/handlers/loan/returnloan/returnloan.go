// Package returnloan реализует HTTP-обработчик приема книги библиотекарем.
package returnloan

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/library-loans/internal/http/middlewarectx"
	"github.com/magabrotheeeer/library-loans/internal/http/response"
	"github.com/magabrotheeeer/library-loans/internal/lib/sl"
	"github.com/magabrotheeeer/library-loans/internal/models"
	loanservice "github.com/magabrotheeeer/library-loans/internal/services/loan"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики возврата книги.
type Service interface {
	ReturnLoan(ctx context.Context, loanID int, actor models.Actor) error
}

// Handler управляет HTTP-запросами на возврат книги.
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
// @Summary Принять книгу
// @Description Закрывает займ, возвращает экземпляр в фонд и продвигает очередь ожидания.
// @Tags Loans
// @Produce  json
// @Param id path int true "ID займа"
// @Success 200 {object} map[string]any "Займ закрыт"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Займ не найден"
// @Failure 409 {object} response.ErrorResponse "Займ уже закрыт или не начат"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /admin/loans/{id}/return [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.loan.returnloan"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("invalid loan id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid loan id"))
		return
	}

	actor, ok := middlewarectx.Actor(r.Context())
	if !ok {
		log.Error("actor not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.ReturnLoan(r.Context(), id, actor); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			log.Error("loan not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("loan not found"))
		case errors.Is(err, loanservice.ErrLoanClosed),
			errors.Is(err, loanservice.ErrLoanNotStarted):
			log.Error("return rejected", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, loanservice.ErrPromotionFailed):
			// Возврат зафиксирован, но продвижение очереди не удалось.
			log.Error("wait list promotion failed", sl.Err(err))
			render.JSON(w, r, response.OKWithData(map[string]any{
				"loan_id": id,
				"warning": "wait list promotion failed",
			}))
		default:
			log.Error("failed to return loan", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not return loan"))
		}
		return
	}

	log.Info("loan returned", slog.Int("loan_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"loan_id": id,
	}))
}
