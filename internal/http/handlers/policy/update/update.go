// Package update реализует HTTP-обработчик изменения политики займов.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/library-loans/internal/http/response"
	"github.com/magabrotheeeer/library-loans/internal/lib/sl"
	"github.com/magabrotheeeer/library-loans/internal/models"
	managerservice "github.com/magabrotheeeer/library-loans/internal/services/manager"
)

// Service описывает интерфейс бизнес-логики управления политикой.
type Service interface {
	SetPolicy(ctx context.Context, policy models.LoanPolicy) error
}

// Handler управляет HTTP-запросами на изменение политики займов.
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
// @Summary Изменить политику займов
// @Description Перезаписывает правила займов. Счётчик писем и состояние задачи уведомлений сохраняются.
// @Tags Policy
// @Accept  json
// @Produce  json
// @Param request body models.DummyPolicy true "Новая политика"
// @Success 200 {object} response.Response "Политика обновлена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Недопустимые значения политики"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /admin/policy [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.policy.update"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyPolicy
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

	policy := models.LoanPolicy{
		LoanDuration:         req.LoanDuration,
		PostponeLoanDuration: req.PostponeLoanDuration,
		MaxBooksLimit:        req.MaxBooksLimit,
		StartLoanLimit:       req.StartLoanLimit,
		MainEmailInterval:    req.MainEmailInterval,
		RetryEmailInterval:   req.RetryEmailInterval,
		DailyEmailLimit:      req.DailyEmailLimit,
	}

	if err := h.service.SetPolicy(r.Context(), policy); err != nil {
		if errors.Is(err, managerservice.ErrInvalidPolicy) {
			log.Error("invalid policy", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		log.Error("failed to update policy", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update policy"))
		return
	}

	log.Info("policy updated")
	render.JSON(w, r, response.OK())
}
