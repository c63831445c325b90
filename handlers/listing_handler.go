package handlers

import (
	"net/http"

	"github.com/courtside/matchplay/middleware"
	"github.com/courtside/matchplay/models"
	"github.com/courtside/matchplay/services"
)

type ListingHandler struct {
	listingService services.ListingService
}

func NewListingHandler(ls services.ListingService) *ListingHandler {
	return &ListingHandler{listingService: ls}
}

type createListingPayload struct {
	TournamentID *int               `json:"tournament_id"`
	LeagueID     *int               `json:"league_id"`
	DivisionID   *int               `json:"division_id"`
	SkillMin     *models.SkillLevel `json:"skill_min"`
	SkillMax     *models.SkillLevel `json:"skill_max"`
	Message      *string            `json:"message"`
}

func (h *ListingHandler) CreateListingHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var payload createListingPayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := eventRefFromIDs(payload.TournamentID, payload.LeagueID, payload.DivisionID)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	listing, err := h.listingService.Create(r.Context(), services.CreateListingInput{
		UserID:   currentUserID,
		Event:    event,
		SkillMin: payload.SkillMin,
		SkillMax: payload.SkillMax,
		Message:  payload.Message,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"listing": listing}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ListingHandler) DeleteListingHandler(w http.ResponseWriter, r *http.Request) {
	listingID, err := getIDFromURL(r, "listingID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.listingService.Delete(r.Context(), listingID, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListListingsHandler отдаёт активные объявления по событию, опционально
// суженные диапазоном уровней: ?tournament_id=5&skill_min=intermediate
func (h *ListingHandler) ListListingsHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := intFromQuery(r, "tournament_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	leagueID, err := intFromQuery(r, "league_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := eventRefFromIDs(tournamentID, leagueID, nil)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	skillMin, err := skillFromQuery(r, "skill_min")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	skillMax, err := skillFromQuery(r, "skill_max")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	listings, err := h.listingService.ListByEvent(r.Context(), services.ListingFilter{
		Event:    event,
		SkillMin: skillMin,
		SkillMax: skillMax,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"listings": listings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type contactListingPayload struct {
	Message string `json:"message"`
}

func (h *ListingHandler) ContactListingHandler(w http.ResponseWriter, r *http.Request) {
	listingID, err := getIDFromURL(r, "listingID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var payload contactListingPayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.listingService.Contact(r.Context(), listingID, currentUserID, payload.Message); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
