package api

import (
	"fmt"
	"net/http"
	"strings"

	"ai-travel-planner/internal/notes"

	"github.com/julienschmidt/httprouter"
)

type profileRequest struct {
	Name string `json:"name"`
	// Preferences is left unchanged when omitted.
	Preferences *[]string `json:"preferences"`
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	profile, err := s.svc.GetProfile(r.Context(), userID(r))
	if err != nil {
		respondAppError(w, err, "retrieving the profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req profileRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "Validation failed: Name cannot be empty")
		return
	}

	uid := userID(r)
	var prefs []string
	if req.Preferences != nil {
		prefs = *req.Preferences
		if len(prefs) > notes.MaxPreferences {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("Validation failed: Maximum %d preferences allowed", notes.MaxPreferences))
			return
		}
	} else {
		current, err := s.svc.GetProfile(r.Context(), uid)
		if err != nil {
			respondAppError(w, err, "updating the profile")
			return
		}
		prefs = current.Preferences
	}

	profile, err := s.svc.SaveProfile(r.Context(), uid, req.Name, prefs)
	if err != nil {
		respondAppError(w, err, "updating the profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
