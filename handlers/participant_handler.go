package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bracketforge/tourney-server/middleware"
	"github.com/bracketforge/tourney-server/models"
	"github.com/bracketforge/tourney-server/services"
)

type ParticipantHandler struct {
	entryService services.EntryService
}

func NewParticipantHandler(entryService services.EntryService) *ParticipantHandler {
	return &ParticipantHandler{entryService: entryService}
}

// GET /api/tournaments/{tournamentID}/fixtures/teams?event_id=
func (h *ParticipantHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	eventID, err := requiredQueryInt(r, "event_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := h.entryService.ResolveParticipants(r.Context(), tournamentID, eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"success": true, "participants": participants}, nil)
}

// DELETE /api/tournaments/{tournamentID}/entries/{kind}/{entryID}
func (h *ParticipantHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	kind := models.ParticipantKind(chi.URLParam(r, "kind"))
	if kind != models.ParticipantSolo && kind != models.ParticipantGroup {
		badRequestResponse(w, r, errors.New("kind must be solo or group"))
		return
	}
	entryID, err := urlParamInt(r, "entryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	removed, err := h.entryService.DeleteEntry(r.Context(), actor, models.ParticipantRef{Kind: kind, ID: entryID})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{
		"success":          true,
		"message":          "entry deleted",
		"fixtures_removed": removed,
	}, nil)
}
