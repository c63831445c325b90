package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/courtside/matchplay/models"
	"github.com/courtside/matchplay/services" // Импортируем для маппинга ошибок сервисов
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Ошибка программиста: передан не указатель
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	if err != nil {
		return err
	}

	return nil
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func goneResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusGone, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Не найдено
	case errors.Is(err, services.ErrInviteNotFound),
		errors.Is(err, services.ErrMatchRequestNotFound),
		errors.Is(err, services.ErrListingNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrLeagueNotFound):
		notFoundResponse(w, r)

	// Протухло: ресурс существовал, но срок действия вышел
	case errors.Is(err, services.ErrInviteExpired),
		errors.Is(err, services.ErrMatchRequestExpired):
		goneResponse(w, r, err.Error())

	// Конфликты: гонки и дубликаты
	case errors.Is(err, services.ErrInviteNotPending),
		errors.Is(err, services.ErrMatchRequestNotPending),
		errors.Is(err, services.ErrDuplicatePendingInvite),
		errors.Is(err, services.ErrDuplicateActiveListing),
		errors.Is(err, services.ErrTournamentFull):
		conflictResponse(w, r, err.Error())

	// Доступ
	case errors.Is(err, services.ErrInviteeMismatch),
		errors.Is(err, services.ErrNotInviteOwner),
		errors.Is(err, services.ErrNotRequestOwner),
		errors.Is(err, services.ErrNotListingOwner):
		forbiddenResponse(w, r, err.Error())

	// Бизнес-правила и невалидные данные
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrSelfAccept),
		errors.Is(err, services.ErrSelfDecline),
		errors.Is(err, services.ErrSelfMatch),
		errors.Is(err, services.ErrSelfInvite),
		errors.Is(err, services.ErrFormatMismatch):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrNoCurrentSeason),
		errors.Is(err, services.ErrRegistrationNotOpen):
		// Событие есть, но регистрация в нём сейчас невозможна.
		conflictResponse(w, r, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}

func getIDFromURL(r *http.Request, paramName string) (int, error) {
	idStr := chi.URLParam(r, paramName)
	if idStr == "" {
		idStr = chi.URLParam(r, "id")
		if idStr == "" {
			return 0, fmt.Errorf("missing %s or id in URL path", paramName)
		}
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %q", paramName, idStr)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", paramName, id)
	}
	return id, nil
}

// eventRefFromIDs собирает ссылку на событие из пары опциональных id.
// Ровно одно из двух полей должно быть задано.
func eventRefFromIDs(tournamentID, leagueID, divisionID *int) (models.EventRef, error) {
	switch {
	case tournamentID != nil && leagueID != nil:
		return models.EventRef{}, errors.New("tournament_id and league_id are mutually exclusive")
	case tournamentID != nil:
		ref := models.TournamentRef(*tournamentID)
		ref.DivisionID = divisionID
		return ref, nil
	case leagueID != nil:
		ref := models.LeagueRef(*leagueID)
		ref.DivisionID = divisionID
		return ref, nil
	default:
		return models.EventRef{}, errors.New("either tournament_id or league_id is required")
	}
}

func skillFromQuery(r *http.Request, key string) (*models.SkillLevel, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	lvl := models.SkillLevel(raw)
	if !lvl.Valid() {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &lvl, nil
}

func intFromQuery(r *http.Request, key string) (*int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &value, nil
}
