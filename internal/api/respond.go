package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"ai-travel-planner/internal/app"
	"ai-travel-planner/internal/clipper"
	"ai-travel-planner/internal/llm"
	"ai-travel-planner/internal/notes"
	"ai-travel-planner/internal/travelplan"
)

const (
	msgNoteNotFound    = "Note not found or you don't have access to it"
	msgPlanNotFound    = "Travel plan not found for this note"
	msgInvalidNoteID   = "Invalid note ID format. Must be a valid UUID"
	msgInvalidJSON     = "Invalid JSON in request body"
	msgMalformedReply  = "Otrzymano plan w nieprawidłowym formacie. Spróbuj ponownie."
	msgGenerationTimed = "Przekroczono limit czasu oczekiwania. Spróbuj ponownie."
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Error: http.StatusText(status), Message: message})
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

// respondAppError translates errors from the app layer. Provider failures get
// their localized message; malformed model replies get a generic one so the
// raw payload never reaches the client.
func respondAppError(w http.ResponseWriter, err error, action string) {
	var llmErr *llm.Error
	switch {
	case errors.Is(err, notes.ErrNotFound):
		respondError(w, http.StatusNotFound, msgNoteNotFound)
	case errors.Is(err, travelplan.ErrPlanNotFound):
		respondError(w, http.StatusNotFound, msgPlanNotFound)
	case errors.Is(err, app.ErrNoteTooShort):
		respondError(w, http.StatusBadRequest, "Note content must contain at least 10 words to generate a travel plan")
	case errors.Is(err, notes.ErrTooManyPreferences):
		respondError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
	case errors.Is(err, clipper.ErrInvalidURL):
		respondError(w, http.StatusBadRequest, "Validation failed: "+clipper.ErrInvalidURL.Error())
	case errors.Is(err, app.ErrGenerationTimeout):
		respondError(w, http.StatusGatewayTimeout, msgGenerationTimed)
	case errors.As(err, &llmErr):
		log.Printf("Model error while %s: %v", action, err)
		switch llmErr.Kind {
		case llm.KindRateLimit:
			respondError(w, http.StatusTooManyRequests, llmErr.Message)
		case llm.KindInvalidJSONResponse, llm.KindSchemaValidation:
			respondError(w, http.StatusBadGateway, msgMalformedReply)
		case llm.KindServer:
			respondError(w, http.StatusServiceUnavailable, llmErr.Message)
		default:
			respondError(w, http.StatusBadGateway, llmErr.Message)
		}
	default:
		log.Printf("Unexpected error while %s: %v", action, err)
		respondError(w, http.StatusInternalServerError, "An unexpected error occurred while "+action)
	}
}
