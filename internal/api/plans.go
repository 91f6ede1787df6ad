package api

import (
	"errors"
	"net/http"
	"strings"

	"ai-travel-planner/internal/app"
	"ai-travel-planner/internal/planner"
	"ai-travel-planner/internal/travelplan"

	"github.com/julienschmidt/httprouter"
)

type generatePlanRequest struct {
	Options *planner.Options `json:"options"`
}

type replacePlanRequest struct {
	Confirm *bool            `json:"confirm"`
	Options *planner.Options `json:"options"`
}

type travelPlanResponse struct {
	TravelPlan travelplan.Plan `json:"travel_plan"`
}

func validOptions(w http.ResponseWriter, opts *planner.Options) bool {
	if opts == nil {
		return true
	}
	if err := opts.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// generatePlan creates the note's plan, or replaces it when one exists.
// 201 for a new plan, 200 for a replaced one. The body is optional.
func (s *Server) generatePlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := noteID(w, ps)
	if !ok {
		return
	}

	var req generatePlanRequest
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req, true); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body format")
			return
		}
	}
	if !validOptions(w, req.Options) {
		return
	}

	out, err := s.svc.GeneratePlanForNote(r.Context(), userID(r), id, req.Options, app.ModeCreate)
	if err != nil {
		respondAppError(w, err, "generating the travel plan")
		return
	}

	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	respondJSON(w, status, travelPlanResponse{TravelPlan: out.Plan})
}

func (s *Server) getTravelPlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := noteID(w, ps)
	if !ok {
		return
	}
	plan, err := s.svc.GetPlan(r.Context(), userID(r), id)
	if err != nil {
		respondAppError(w, err, "retrieving the travel plan")
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// replaceTravelPlan regenerates an existing plan. The caller must confirm
// the overwrite explicitly.
func (s *Server) replaceTravelPlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := noteID(w, ps)
	if !ok {
		return
	}

	var req replacePlanRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if req.Confirm == nil {
		respondError(w, http.StatusBadRequest, "Validation failed: confirm is required")
		return
	}
	if !*req.Confirm {
		respondError(w, http.StatusBadRequest, "Confirmation required to overwrite existing travel plan. Set 'confirm' to true.")
		return
	}
	if !validOptions(w, req.Options) {
		return
	}

	out, err := s.svc.GeneratePlanForNote(r.Context(), userID(r), id, req.Options, app.ModeReplace)
	if errors.Is(err, travelplan.ErrPlanNotFound) {
		respondError(w, http.StatusNotFound,
			"Travel plan not found for this note. Use POST /api/notes/{noteId}/generate-plan to create one.")
		return
	}
	if err != nil {
		respondAppError(w, err, "updating the travel plan")
		return
	}
	respondJSON(w, http.StatusOK, out.Plan)
}
