package handlers

import (
	"errors"
	"net/http"

	"github.com/courtside/matchplay/middleware"
	"github.com/courtside/matchplay/models"
	"github.com/courtside/matchplay/services"
	"github.com/go-chi/chi/v5"
)

type InviteHandler struct {
	inviteService services.InviteService
	registration  services.RegistrationService
}

func NewInviteHandler(is services.InviteService, rs services.RegistrationService) *InviteHandler {
	return &InviteHandler{
		inviteService: is,
		registration:  rs,
	}
}

type createInvitePayload struct {
	TournamentID  *int    `json:"tournament_id"`
	LeagueID      *int    `json:"league_id"`
	DivisionID    *int    `json:"division_id"`
	InviteeUserID *int    `json:"invitee_user_id"`
	InviteeEmail  *string `json:"invitee_email"`
	TeamName      *string `json:"team_name"`
	Message       *string `json:"message"`
}

func (h *InviteHandler) CreateInviteHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var payload createInvitePayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := eventRefFromIDs(payload.TournamentID, payload.LeagueID, payload.DivisionID)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var invitee models.InviteeRef
	switch {
	case payload.InviteeUserID != nil && payload.InviteeEmail != nil:
		badRequestResponse(w, r, errors.New("invitee_user_id and invitee_email are mutually exclusive"))
		return
	case payload.InviteeUserID != nil:
		invitee = models.InviteeUser(*payload.InviteeUserID)
	case payload.InviteeEmail != nil:
		invitee = models.InviteeEmail(*payload.InviteeEmail)
	default:
		badRequestResponse(w, r, errors.New("either invitee_user_id or invitee_email is required"))
		return
	}

	invite, err := h.inviteService.Create(r.Context(), services.CreateInviteInput{
		InviterID: currentUserID,
		Event:     event,
		Invitee:   invitee,
		TeamName:  payload.TeamName,
		Message:   payload.Message,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	// Код отдаётся только создателю, в теле ответа; в сериализацию модели
	// он не входит.
	response := jsonResponse{
		"invite":      invite,
		"invite_code": invite.Code,
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// LookupInviteHandler - публичный просмотр приглашения по коду. Доступен без
// аутентификации: по ссылке из письма приходят и люди без аккаунта.
func (h *InviteHandler) LookupInviteHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		badRequestResponse(w, r, errors.New("missing invite code in URL path"))
		return
	}

	invite, err := h.inviteService.Lookup(r.Context(), code)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"invite": invite}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InviteHandler) AcceptInviteHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		badRequestResponse(w, r, errors.New("missing invite code in URL path"))
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	result, err := h.registration.AcceptInvite(r.Context(), code, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"invite": result.Invite}
	if result.Registration != nil {
		response["registration"] = result.Registration
	}
	if result.Participant != nil {
		response["participant"] = result.Participant
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InviteHandler) DeclineInviteHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		badRequestResponse(w, r, errors.New("missing invite code in URL path"))
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.inviteService.Decline(r.Context(), code, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InviteHandler) CancelInviteHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		badRequestResponse(w, r, errors.New("missing invite code in URL path"))
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.inviteService.Cancel(r.Context(), code, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InviteHandler) ListSentHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	invites, err := h.inviteService.ListSent(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"invites": invites}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InviteHandler) ListReceivedHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	invites, err := h.inviteService.ListReceived(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"invites": invites}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
