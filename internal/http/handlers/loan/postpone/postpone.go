// Package postpone реализует HTTP-обработчик продления займа читателем.
package postpone

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
	loanservice "github.com/magabrotheeeer/library-loans/internal/services/loan"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики продления займа.
type Service interface {
	PostponeLoan(ctx context.Context, loanID int, userUID string) error
}

// Handler управляет HTTP-запросами на продление займа.
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
// @Summary Продлить займ
// @Description Продлевает собственный начатый займ один раз при пустой очереди ожидания.
// @Tags Loans
// @Produce  json
// @Param id path int true "ID займа"
// @Success 200 {object} map[string]any "Займ продлён"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 403 {object} response.ErrorResponse "Займ принадлежит другому читателю"
// @Failure 404 {object} response.ErrorResponse "Займ не найден"
// @Failure 409 {object} response.ErrorResponse "Продление недоступно"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /loans/{id}/postpone [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.loan.postpone"
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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.PostponeLoan(r.Context(), id, userUID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			log.Error("loan not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("loan not found"))
		case errors.Is(err, loanservice.ErrNotOwner):
			log.Error("loan belongs to another user", sl.Err(err))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("loan belongs to another user"))
		case errors.Is(err, loanservice.ErrAlreadyPostponed),
			errors.Is(err, loanservice.ErrLoanNotStarted),
			errors.Is(err, loanservice.ErrLoanClosed),
			errors.Is(err, loanservice.ErrWaitListNotEmpty):
			log.Error("postpone rejected", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to postpone loan", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not postpone loan"))
		}
		return
	}

	log.Info("loan postponed", slog.Int("loan_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"loan_id": id,
	}))
}
