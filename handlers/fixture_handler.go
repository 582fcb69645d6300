package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bracketforge/tourney-server/middleware"
	"github.com/bracketforge/tourney-server/models"
	"github.com/bracketforge/tourney-server/services"
)

type FixtureHandler struct {
	fixtureService   services.FixtureService
	matchService     services.MatchService
	standingsService services.StandingsService
	exportService    services.ExportService
}

func NewFixtureHandler(
	fixtureService services.FixtureService,
	matchService services.MatchService,
	standingsService services.StandingsService,
	exportService services.ExportService,
) *FixtureHandler {
	return &FixtureHandler{
		fixtureService:   fixtureService,
		matchService:     matchService,
		standingsService: standingsService,
		exportService:    exportService,
	}
}

// GET /api/tournaments/{tournamentID}/fixtures?event_id=
func (h *FixtureHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	eventID, err := optionalQueryInt(r, "event_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.fixtureService.List(r.Context(), tournamentID, eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{
		"success":      true,
		"fixtures":     result.Fixtures,
		"participants": result.Participants,
	}, nil)
}

// GET /api/tournaments/{tournamentID}/fixtures/{fixtureID}
func (h *FixtureHandler) Get(w http.ResponseWriter, r *http.Request) {
	fixtureID, err := urlParamInt(r, "fixtureID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	fixture, err := h.fixtureService.Get(r.Context(), fixtureID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"success": true, "fixture": fixture}, nil)
}

type generateRequest struct {
	EventID int   `json:"event_id"`
	Force   bool  `json:"force"`
	Seed    int64 `json:"seed"`
}

// POST /api/tournaments/{tournamentID}/fixtures/generate
func (h *FixtureHandler) Generate(w http.ResponseWriter, r *http.Request) {
	tournamentID, actor, err := h.mutationScope(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input generateRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.fixtureService.Generate(r.Context(), actor, tournamentID, input.EventID, services.GenerateOptions{
		Force: input.Force,
		Seed:  input.Seed,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, jsonResponse{
		"success":  true,
		"message":  result.Message,
		"fixtures": result.Fixtures,
	}, nil)
}

// POST /api/tournaments/{tournamentID}/fixtures/create
func (h *FixtureHandler) Create(w http.ResponseWriter, r *http.Request) {
	tournamentID, actor, err := h.mutationScope(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateFixtureInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	fixture, err := h.fixtureService.CreateManual(r.Context(), actor, tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, jsonResponse{"success": true, "fixture": fixture}, nil)
}

// PUT /api/tournaments/{tournamentID}/fixtures/{fixtureID}
func (h *FixtureHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, actor, err := h.mutationScope(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	fixtureID, err := urlParamInt(r, "fixtureID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateFixtureInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.Update(r.Context(), actor, fixtureID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{
		"success": true,
		"message": result.Message,
		"fixture": result.Fixture,
	}, nil)
}

type pointRequest struct {
	Side  models.SetSide `json:"side"`
	Delta int            `json:"delta"`
}

// POST /api/tournaments/{tournamentID}/fixtures/{fixtureID}/point
func (h *FixtureHandler) ApplyPoint(w http.ResponseWriter, r *http.Request) {
	_, actor, err := h.mutationScope(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	fixtureID, err := urlParamInt(r, "fixtureID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input pointRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.ApplyPoint(r.Context(), actor, fixtureID, input.Side, input.Delta)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{
		"success": true,
		"message": result.Message,
		"fixture": result.Fixture,
	}, nil)
}

// POST /api/tournaments/{tournamentID}/fixtures/{fixtureID}/reset
func (h *FixtureHandler) Reset(w http.ResponseWriter, r *http.Request) {
	_, actor, err := h.mutationScope(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	fixtureID, err := urlParamInt(r, "fixtureID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.Reset(r.Context(), actor, fixtureID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{
		"success": true,
		"message": result.Message,
		"fixture": result.Fixture,
	}, nil)
}

// GET /api/tournaments/{tournamentID}/fixtures/standings?event_id=
func (h *FixtureHandler) Standings(w http.ResponseWriter, r *http.Request) {
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

	standings, err := h.standingsService.GetStandings(r.Context(), tournamentID, eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"success": true, "standings": standings}, nil)
}

type promoteRequest struct {
	EventID    int `json:"event_id"`
	Qualifiers int `json:"qualifiers"`
}

// POST /api/tournaments/{tournamentID}/fixtures/promote
func (h *FixtureHandler) Promote(w http.ResponseWriter, r *http.Request) {
	tournamentID, actor, err := h.mutationScope(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input promoteRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.fixtureService.PromoteToKnockout(r.Context(), actor, tournamentID, input.EventID, input.Qualifiers)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, jsonResponse{
		"success":  true,
		"message":  result.Message,
		"fixtures": result.Fixtures,
	}, nil)
}

type exportRequest struct {
	EventID int `json:"event_id"`
}

// POST /api/tournaments/{tournamentID}/fixtures/export
func (h *FixtureHandler) Export(w http.ResponseWriter, r *http.Request) {
	tournamentID, actor, err := h.mutationScope(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input exportRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.exportService.ExportEvent(r.Context(), actor, tournamentID, input.EventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, jsonResponse{"success": true, "export": result}, nil)
}

func (h *FixtureHandler) mutationScope(r *http.Request) (int, models.ActorContext, error) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		return 0, models.ActorContext{}, err
	}
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		return 0, models.ActorContext{}, err
	}
	return tournamentID, actor, nil
}

func optionalQueryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return nil, errors.New("invalid " + name + " query parameter")
	}
	return &value, nil
}

func requiredQueryInt(r *http.Request, name string) (int, error) {
	value, err := optionalQueryInt(r, name)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, errors.New(name + " query parameter is required")
	}
	return *value, nil
}
