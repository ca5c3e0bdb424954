package handler

import (
	"context"
	"net/http"

	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/middleware"
	"github.com/aidar/challenge-portal/internal/service"
)

// RegistrationFlow шаги мастера регистрации
type RegistrationFlow interface {
	NextStep(ctx context.Context, session *domain.Session) domain.Step
	Draft(ctx context.Context, session *domain.Session) (domain.Draft, error)
	ResetDraft(ctx context.Context, session *domain.Session) error
	SubmitPersonal(ctx context.Context, session *domain.Session, in service.PersonalInput) (*service.StepResult, error)
	SelectTeam(ctx context.Context, session *domain.Session, in service.TeamInput) (*service.StepResult, error)
	SelectRoute(ctx context.Context, session *domain.Session, in service.RouteInput) (*service.StepResult, error)
	SubmitLogistics(ctx context.Context, session *domain.Session, in service.LogisticsInput) (*service.StepResult, error)
	Review(ctx context.Context, session *domain.Session) *service.Review
	FinalSubmit(ctx context.Context, session *domain.Session) (*domain.Member, error)
}

// RegistrationDetailsProvider данные сохраненной регистрации
type RegistrationDetailsProvider interface {
	Details(ctx context.Context, email string) (*service.RegistrationDetails, error)
}

// DefaultRouteProvider выбирает маршрут по умолчанию для шага маршрута
type DefaultRouteProvider interface {
	DefaultRoute(draft domain.Draft) domain.Route
}

// RegistrationHandler обрабатывает эндпоинты мастера регистрации
type RegistrationHandler struct {
	registration RegistrationFlow
	details      RegistrationDetailsProvider
	routes       DefaultRouteProvider
}

// NewRegistrationHandler создает новый RegistrationHandler
func NewRegistrationHandler(
	registration RegistrationFlow,
	details RegistrationDetailsProvider,
	routes DefaultRouteProvider,
) *RegistrationHandler {
	return &RegistrationHandler{
		registration: registration,
		details:      details,
		routes:       routes,
	}
}

// NextStepResponse ответ с шагом, на котором нужно продолжить
type NextStepResponse struct {
	NextStep domain.Step `json:"next_step"`
}

// DraftResponse черновик с маршрутом по умолчанию
type DraftResponse struct {
	Draft        domain.Draft `json:"draft"`
	DefaultRoute domain.Route `json:"default_route"`
}

// SubmitResponse ответ на финальную отправку
type SubmitResponse struct {
	Member   *domain.Member `json:"member"`
	NextStep domain.Step    `json:"next_step"`
}

// Next обрабатывает GET /registration/next
func (h *RegistrationHandler) Next(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	RespondWithJSON(w, r, http.StatusOK, NextStepResponse{NextStep: h.registration.NextStep(r.Context(), session)})
}

// GetDraft обрабатывает GET /registration/draft
func (h *RegistrationHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())

	draft, err := h.registration.Draft(r.Context(), session)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, DraftResponse{Draft: draft, DefaultRoute: h.routes.DefaultRoute(draft)})
}

// ResetDraft обрабатывает DELETE /registration/draft
func (h *RegistrationHandler) ResetDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.registration.ResetDraft(r.Context(), middleware.GetSession(r.Context())); err != nil {
		HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Personal обрабатывает POST /registration/personal
func (h *RegistrationHandler) Personal(w http.ResponseWriter, r *http.Request) {
	var req service.PersonalInput
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.registration.SubmitPersonal(r.Context(), middleware.GetSession(r.Context()), req)
	h.respondStep(w, r, result, err)
}

// Team обрабатывает POST /registration/team
func (h *RegistrationHandler) Team(w http.ResponseWriter, r *http.Request) {
	var req service.TeamInput
	if !decodeBody(w, r, &req) {
		return
	}

	switch req.Choice {
	case domain.TeamChoiceIndependent, domain.TeamChoiceJoined, domain.TeamChoiceCreated:
	default:
		RespondWithError(w, r, http.StatusBadRequest, "BAD_REQUEST", "choice must be one of independent, joined, created")
		return
	}

	result, err := h.registration.SelectTeam(r.Context(), middleware.GetSession(r.Context()), req)
	h.respondStep(w, r, result, err)
}

// Route обрабатывает POST /registration/route
func (h *RegistrationHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req service.RouteInput
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.registration.SelectRoute(r.Context(), middleware.GetSession(r.Context()), req)
	h.respondStep(w, r, result, err)
}

// Logistics обрабатывает POST /registration/logistics
func (h *RegistrationHandler) Logistics(w http.ResponseWriter, r *http.Request) {
	var req service.LogisticsInput
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.registration.SubmitLogistics(r.Context(), middleware.GetSession(r.Context()), req)
	h.respondStep(w, r, result, err)
}

// Review обрабатывает GET /registration/review
func (h *RegistrationHandler) Review(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, r, http.StatusOK, h.registration.Review(r.Context(), middleware.GetSession(r.Context())))
}

// Submit обрабатывает POST /registration/submit
func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	member, err := h.registration.FinalSubmit(r.Context(), middleware.GetSession(r.Context()))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, SubmitResponse{Member: member, NextStep: domain.StepThanks})
}

// Details обрабатывает GET /registration/details
func (h *RegistrationHandler) Details(w http.ResponseWriter, r *http.Request) {
	details, err := h.details.Details(r.Context(), middleware.GetSession(r.Context()).Email)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, details)
}

func (h *RegistrationHandler) respondStep(w http.ResponseWriter, r *http.Request, result *service.StepResult, err error) {
	if err != nil {
		HandleError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, result)
}
