package handlers

import (
	"net/http"
	"time"

	"github.com/courtside/matchplay/middleware"
	"github.com/courtside/matchplay/models"
	"github.com/courtside/matchplay/services"
)

type MatchHandler struct {
	matchmaking services.MatchmakingService
}

func NewMatchHandler(matchmaking services.MatchmakingService) *MatchHandler {
	return &MatchHandler{matchmaking: matchmaking}
}

type createMatchRequestPayload struct {
	Format        models.GameFormat  `json:"format"`
	SkillMin      *models.SkillLevel `json:"skill_min"`
	SkillMax      *models.SkillLevel `json:"skill_max"`
	Lat           *float64           `json:"lat"`
	Lon           *float64           `json:"lon"`
	MaxDistanceKm *float64           `json:"max_distance_km"`
	TTLHours      *int               `json:"ttl_hours"`
}

func (h *MatchHandler) CreateRequestHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var payload createMatchRequestPayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.CreateMatchRequestInput{
		RequesterID:   currentUserID,
		Format:        payload.Format,
		SkillMin:      payload.SkillMin,
		SkillMax:      payload.SkillMax,
		MaxDistanceKm: payload.MaxDistanceKm,
	}
	if payload.Lat != nil && payload.Lon != nil {
		input.Location = &models.GeoPoint{Lat: *payload.Lat, Lon: *payload.Lon}
	}
	if payload.TTLHours != nil {
		input.TTL = time.Duration(*payload.TTLHours) * time.Hour
	}

	request, err := h.matchmaking.CreateRequest(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"request": request}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) CancelRequestHandler(w http.ResponseWriter, r *http.Request) {
	requestID, err := getIDFromURL(r, "requestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.matchmaking.CancelRequest(r.Context(), requestID, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchHandler) ListCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	requestID, err := getIDFromURL(r, "requestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	candidates, err := h.matchmaking.FindCandidates(r.Context(), requestID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"candidates": candidates}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) SuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	limit := 0
	if raw, err := intFromQuery(r, "limit"); err != nil {
		badRequestResponse(w, r, err)
		return
	} else if raw != nil {
		limit = *raw
	}

	candidates, err := h.matchmaking.SuggestionsFor(r.Context(), currentUserID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"suggestions": candidates}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type commitMatchPayload struct {
	CandidateRequestID int `json:"candidate_request_id"`
}

func (h *MatchHandler) CommitMatchHandler(w http.ResponseWriter, r *http.Request) {
	requestID, err := getIDFromURL(r, "requestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var payload commitMatchPayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.matchmaking.Commit(r.Context(), requestID, payload.CandidateRequestID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"game": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
