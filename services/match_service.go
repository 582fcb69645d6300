package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bracketforge/tourney-server/models"
	"github.com/bracketforge/tourney-server/realtime"
	"github.com/bracketforge/tourney-server/repositories"
)

// UpdateFixtureInput carries a partial fixture update. Nil fields are left
// untouched. Score-bearing fields (Sets, ScoreA/B, WinnerID, Status) are
// rejected on a completed fixture until it is explicitly reset; metadata
// fields may be changed at any time.
type UpdateFixtureInput struct {
	Status *models.MatchStatus `json:"status"`

	// Aggregate scores, used by the round-robin single-score format.
	ScoreA *int `json:"score_a"`
	ScoreB *int `json:"score_b"`

	// Explicit winner entry id. When absent and both aggregate scores are
	// set and unequal, the higher side is derived as winner.
	WinnerID *int `json:"winner_id"`

	// Full sets replacement; per-set completion and winners are
	// recomputed from the scores, never trusted from the caller.
	Sets []models.SetScore `json:"sets"`

	MaxSets       *int  `json:"max_sets"`
	PointsToWin   *int  `json:"points_to_win"`
	IsDeuce       *bool `json:"is_deuce"`
	DecidingPoint *int  `json:"deciding_point"`

	CourtNumber *int       `json:"court_number"`
	Notes       *string    `json:"notes"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// UpdateResult reports the updated fixture plus a message distinguishing
// partial outcomes, e.g. a committed score whose winner propagation failed.
type UpdateResult struct {
	Fixture *models.Fixture `json:"fixture"`
	Message string          `json:"message"`
}

type MatchService interface {
	Update(ctx context.Context, actor models.ActorContext, fixtureID int, input UpdateFixtureInput) (*UpdateResult, error)
	ApplyPoint(ctx context.Context, actor models.ActorContext, fixtureID int, side models.SetSide, delta int) (*UpdateResult, error)
	Reset(ctx context.Context, actor models.ActorContext, fixtureID int) (*UpdateResult, error)
}

type matchService struct {
	db          *sql.DB
	fixtureRepo repositories.FixtureRepository
	hub         Broadcaster
}

func NewMatchService(db *sql.DB, fixtureRepo repositories.FixtureRepository, hub Broadcaster) MatchService {
	return &matchService{db: db, fixtureRepo: fixtureRepo, hub: hub}
}

func (s *matchService) Update(ctx context.Context, actor models.ActorContext, fixtureID int, input UpdateFixtureInput) (*UpdateResult, error) {
	fixture, err := s.loadFixture(ctx, fixtureID)
	if err != nil {
		return nil, err
	}

	previousWinner := fixture.Winner

	touchesScore := input.Sets != nil || input.ScoreA != nil || input.ScoreB != nil ||
		input.WinnerID != nil || input.Status != nil
	if fixture.Status == models.StatusCompleted && touchesScore {
		return nil, ErrFixtureCompleted
	}

	applyMatchConfig(fixture, input)
	applyMetadata(fixture, input)

	if input.Status != nil {
		fixture.Status = *input.Status
	}

	if input.Sets != nil {
		if err := s.applySets(fixture, input.Sets); err != nil {
			return nil, err
		}
	}

	if input.ScoreA != nil || input.ScoreB != nil {
		if input.ScoreA != nil {
			fixture.ScoreA = clampScore(input.ScoreA)
		}
		if input.ScoreB != nil {
			fixture.ScoreB = clampScore(input.ScoreB)
		}
		applyAggregateResult(fixture, input.WinnerID == nil)
	}

	if input.WinnerID != nil {
		winner, err := sideRefByID(fixture, *input.WinnerID)
		if err != nil {
			return nil, err
		}
		fixture.Winner = winner
		fixture.Status = models.StatusCompleted
	}

	if err := s.fixtureRepo.Update(ctx, s.db, fixture); err != nil {
		return nil, fmt.Errorf("failed to update fixture %d: %w", fixtureID, err)
	}

	result := &UpdateResult{Fixture: fixture, Message: "fixture updated"}
	s.finishWinnerChange(ctx, fixture, previousWinner, result)

	log.Printf("organizer %d updated fixture %d: %s", actor.OrganizerID, fixtureID, result.Message)
	return result, nil
}

// ApplyPoint applies a single point delta to one side of the current set and
// runs the set/match completion rules.
func (s *matchService) ApplyPoint(ctx context.Context, actor models.ActorContext, fixtureID int, side models.SetSide, delta int) (*UpdateResult, error) {
	if side != models.SideTeamA && side != models.SideTeamB {
		return nil, ErrInvalidSide
	}
	if delta != 1 && delta != -1 {
		return nil, ErrInvalidPointDelta
	}

	fixture, err := s.loadFixture(ctx, fixtureID)
	if err != nil {
		return nil, err
	}
	switch fixture.Status {
	case models.StatusCompleted:
		return nil, ErrFixtureCompleted
	case models.StatusCancelled:
		return nil, ErrFixtureCancelled
	}
	if fixture.SideRef(side) == nil {
		return nil, ErrFixtureSidesUnassigned
	}

	previousWinner := fixture.Winner

	// Materialize sets up to the current one; generation leaves the array
	// empty until the first point lands.
	for len(fixture.Sets) < fixture.CurrentSet {
		fixture.Sets = append(fixture.Sets, models.SetScore{SetNumber: len(fixture.Sets) + 1})
	}

	current := &fixture.Sets[fixture.CurrentSet-1]
	if current.Completed {
		return nil, fmt.Errorf("%w: set %d is already completed", ErrValidationFailed, current.SetNumber)
	}

	if side == models.SideTeamA {
		current.TeamAScore = maxInt(0, current.TeamAScore+delta)
	} else {
		current.TeamBScore = maxInt(0, current.TeamBScore+delta)
	}

	winner, err := evaluateSet(current.TeamAScore, current.TeamBScore, fixture.PointsToWin, fixture.IsDeuce, fixture.DecidingPoint)
	if err != nil {
		return nil, err
	}

	fixture.Status = models.StatusOngoing
	if winner != nil {
		current.Completed = true
		current.Winner = winner
		if err := s.settleSets(fixture); err != nil {
			return nil, err
		}
	}

	if err := s.fixtureRepo.Update(ctx, s.db, fixture); err != nil {
		return nil, fmt.Errorf("failed to update fixture %d: %w", fixtureID, err)
	}

	result := &UpdateResult{Fixture: fixture, Message: "point applied"}
	if fixture.Status == models.StatusCompleted {
		result.Message = "match completed"
	}
	s.finishWinnerChange(ctx, fixture, previousWinner, result)

	return result, nil
}

// Reset is the explicit administrative action that returns a fixture to an
// editable state: sets, scores, winner and status are cleared, and any
// winner previously propagated into later rounds is withdrawn.
func (s *matchService) Reset(ctx context.Context, actor models.ActorContext, fixtureID int) (*UpdateResult, error) {
	fixture, err := s.loadFixture(ctx, fixtureID)
	if err != nil {
		return nil, err
	}

	previousWinner := fixture.Winner

	fixture.Sets = []models.SetScore{}
	fixture.CurrentSet = 1
	fixture.ScoreA = nil
	fixture.ScoreB = nil
	fixture.Winner = nil
	fixture.Status = models.StatusScheduled

	if err := s.fixtureRepo.Update(ctx, s.db, fixture); err != nil {
		return nil, fmt.Errorf("failed to reset fixture %d: %w", fixtureID, err)
	}

	result := &UpdateResult{Fixture: fixture, Message: "fixture reset"}
	s.finishWinnerChange(ctx, fixture, previousWinner, result)

	log.Printf("organizer %d reset fixture %d", actor.OrganizerID, fixtureID)
	return result, nil
}

// --- scoring rules ---

// evaluateSet decides whether a set score is winning. A set is won on
// reaching pointsToWin with a two-point margin. Under deuce rules a tight
// finish extends the set: once the opponent is within two of the target the
// winner must also clear the target by an extra point, and reaching the
// deciding point ends the set outright regardless of margin. Both sides
// satisfying a winning condition at once cannot result from correctly
// applied single-point deltas and is rejected as a data-integrity fault.
func evaluateSet(scoreA, scoreB, pointsToWin int, isDeuce bool, decidingPoint int) (*models.SetSide, error) {
	aWins := sideWins(scoreA, scoreB, pointsToWin, isDeuce, decidingPoint)
	bWins := sideWins(scoreB, scoreA, pointsToWin, isDeuce, decidingPoint)

	switch {
	case aWins && bWins:
		return nil, ErrScoreConflict
	case aWins:
		side := models.SideTeamA
		return &side, nil
	case bWins:
		side := models.SideTeamB
		return &side, nil
	default:
		return nil, nil
	}
}

func sideWins(score, opponent, pointsToWin int, isDeuce bool, decidingPoint int) bool {
	if isDeuce && decidingPoint > 0 && score >= decidingPoint {
		return true
	}
	target := pointsToWin
	if isDeuce && opponent >= pointsToWin-2 {
		target = pointsToWin + 1
	}
	return score >= target && score-opponent >= 2
}

// settleSets recomputes the match outcome from completed sets: a side
// taking ceil(maxSets/2) sets completes the match; otherwise the next set
// opens if any remain.
func (s *matchService) settleSets(fixture *models.Fixture) error {
	winsA, winsB, completed := 0, 0, 0
	for _, set := range fixture.Sets {
		if !set.Completed || set.Winner == nil {
			continue
		}
		completed++
		if *set.Winner == models.SideTeamA {
			winsA++
		} else {
			winsB++
		}
	}

	needed := (fixture.MaxSets + 1) / 2

	switch {
	case winsA >= needed || winsB >= needed:
		side := models.SideTeamA
		if winsB >= needed {
			side = models.SideTeamB
		}
		winner := fixture.SideRef(side)
		if winner == nil {
			return ErrFixtureSidesUnassigned
		}
		fixture.Winner = winner
		fixture.Status = models.StatusCompleted
	case completed > 0:
		fixture.Status = models.StatusOngoing
		if fixture.CurrentSet <= completed && len(fixture.Sets) < fixture.MaxSets {
			fixture.Sets = append(fixture.Sets, models.SetScore{SetNumber: len(fixture.Sets) + 1})
		}
		if fixture.CurrentSet <= completed {
			fixture.CurrentSet = completed + 1
		}
	}

	return nil
}

// applySets replaces the whole sets array, clamping scores and recomputing
// per-set winners from the fixture's scoring configuration.
func (s *matchService) applySets(fixture *models.Fixture, sets []models.SetScore) error {
	sanitized := make([]models.SetScore, len(sets))
	for i, set := range sets {
		entry := models.SetScore{
			SetNumber:  set.SetNumber,
			TeamAScore: maxInt(0, set.TeamAScore),
			TeamBScore: maxInt(0, set.TeamBScore),
		}
		if entry.SetNumber == 0 {
			entry.SetNumber = i + 1
		}

		winner, err := evaluateSet(entry.TeamAScore, entry.TeamBScore, fixture.PointsToWin, fixture.IsDeuce, fixture.DecidingPoint)
		if err != nil {
			return err
		}
		if winner != nil {
			entry.Completed = true
			entry.Winner = winner
		}
		sanitized[i] = entry
	}

	fixture.Sets = sanitized
	return s.settleSets(fixture)
}

// applyAggregateResult derives status and winner from the single-score
// fields. Equal scores are a valid draw: no winner, but the fixture counts
// as played once both scores are in.
func applyAggregateResult(fixture *models.Fixture, deriveWinner bool) {
	if !fixture.HasBothScores() {
		fixture.Status = models.StatusOngoing
		return
	}

	fixture.Status = models.StatusCompleted
	if !deriveWinner {
		return
	}

	switch {
	case *fixture.ScoreA > *fixture.ScoreB:
		fixture.Winner = fixture.TeamA
	case *fixture.ScoreB > *fixture.ScoreA:
		fixture.Winner = fixture.TeamB
	default:
		fixture.Winner = nil // draw
	}
}

func applyMatchConfig(fixture *models.Fixture, input UpdateFixtureInput) {
	if input.MaxSets != nil && *input.MaxSets >= 1 {
		fixture.MaxSets = *input.MaxSets
	}
	if input.PointsToWin != nil && *input.PointsToWin >= 1 {
		fixture.PointsToWin = *input.PointsToWin
	}
	if input.IsDeuce != nil {
		fixture.IsDeuce = *input.IsDeuce
	}
	if input.DecidingPoint != nil && *input.DecidingPoint >= 1 {
		fixture.DecidingPoint = *input.DecidingPoint
	}
}

func applyMetadata(fixture *models.Fixture, input UpdateFixtureInput) {
	if input.CourtNumber != nil && *input.CourtNumber >= 1 {
		fixture.CourtNumber = *input.CourtNumber
	}
	if input.Notes != nil {
		fixture.Notes = input.Notes
	}
	if input.ScheduledAt != nil {
		fixture.ScheduledAt = input.ScheduledAt
	}
}

// --- winner propagation ---

// finishWinnerChange runs best-effort propagation after the primary update
// has committed. Propagation failures are reported in the result message
// and never unwind the committed update.
func (s *matchService) finishWinnerChange(ctx context.Context, fixture *models.Fixture, previousWinner *models.ParticipantRef, result *UpdateResult) {
	if err := s.propagate(ctx, fixture, previousWinner); err != nil {
		result.Message = fmt.Sprintf("%s, but winner propagation failed: %v", result.Message, err)
		log.Printf("winner propagation failed for fixture %d: %v", fixture.ID, err)
	}
	s.broadcastUpdate(fixture)
}

// propagate writes the fixture's winner into the correct slot of the
// next-round fixture: even match indexes feed teamA, odd feed teamB. It is
// idempotent, and a corrected winner first withdraws the previous one from
// every descendant round so no stale participant lingers in the bracket.
func (s *matchService) propagate(ctx context.Context, fixture *models.Fixture, previousWinner *models.ParticipantRef) error {
	if fixture.Phase != models.PhaseKnockout {
		return nil
	}

	if previousWinner != nil && !previousWinner.Equal(fixture.Winner) {
		if err := s.clearDownstream(ctx, fixture, *previousWinner); err != nil {
			return err
		}
	}

	if fixture.Winner == nil {
		return nil
	}

	next, err := s.fixtureRepo.FindBySlot(ctx, fixture.TournamentID, fixture.EventID,
		models.PhaseKnockout, fixture.Round+1, fixture.MatchIndex/2)
	if err != nil {
		if errors.Is(err, repositories.ErrFixtureNotFound) {
			return nil // this was the final
		}
		return err
	}

	teamA, teamB := next.TeamA, next.TeamB
	if fixture.MatchIndex%2 == 0 {
		if teamA != nil && teamA.Equal(fixture.Winner) {
			return nil
		}
		teamA = fixture.Winner
	} else {
		if teamB != nil && teamB.Equal(fixture.Winner) {
			return nil
		}
		teamB = fixture.Winner
	}

	return s.fixtureRepo.UpdateTeams(ctx, s.db, next.ID, teamA, teamB)
}

// clearDownstream removes a participant from the slot it was propagated
// into, and recursively from every later round it may have advanced to.
// A cleared fixture loses its result, and whoever it had recorded as winner
// loses the advance earned from it, whichever side that was: the remaining
// participant has nobody to have beaten.
func (s *matchService) clearDownstream(ctx context.Context, fixture *models.Fixture, ref models.ParticipantRef) error {
	next, err := s.fixtureRepo.FindBySlot(ctx, fixture.TournamentID, fixture.EventID,
		models.PhaseKnockout, fixture.Round+1, fixture.MatchIndex/2)
	if err != nil {
		if errors.Is(err, repositories.ErrFixtureNotFound) {
			return nil
		}
		return err
	}

	occupied := false
	if next.TeamA != nil && next.TeamA.Equal(&ref) {
		next.TeamA = nil
		occupied = true
	}
	if next.TeamB != nil && next.TeamB.Equal(&ref) {
		next.TeamB = nil
		occupied = true
	}
	if !occupied {
		return nil
	}

	if next.Winner != nil {
		if err := s.clearDownstream(ctx, next, *next.Winner); err != nil {
			return err
		}
	}

	// The downstream result is void either way once a participant is
	// withdrawn from it.
	next.Winner = nil
	next.Sets = []models.SetScore{}
	next.CurrentSet = 1
	next.ScoreA = nil
	next.ScoreB = nil
	next.Status = models.StatusScheduled

	return s.fixtureRepo.Update(ctx, s.db, next)
}

// --- helpers ---

func (s *matchService) loadFixture(ctx context.Context, fixtureID int) (*models.Fixture, error) {
	fixture, err := s.fixtureRepo.GetByID(ctx, fixtureID)
	if err != nil {
		if errors.Is(err, repositories.ErrFixtureNotFound) {
			return nil, ErrFixtureNotFound
		}
		return nil, fmt.Errorf("failed to load fixture %d: %w", fixtureID, err)
	}
	return fixture, nil
}

func (s *matchService) broadcastUpdate(fixture *models.Fixture) {
	if s.hub == nil {
		return
	}
	room := realtime.TournamentRoom(fixture.TournamentID)
	s.hub.BroadcastToRoom(room, realtime.Message{
		Type:    realtime.EventFixtureUpdated,
		Payload: fixture,
	})
	// Group-phase results feed the standings table, so viewers get a nudge
	// to re-fetch it.
	if fixture.Phase == models.PhaseRoundRobin {
		s.hub.BroadcastToRoom(room, realtime.Message{
			Type: realtime.EventStandingsUpdated,
			Payload: map[string]int{
				"tournament_id": fixture.TournamentID,
				"event_id":      fixture.EventID,
			},
		})
	}
}

func sideRefByID(fixture *models.Fixture, id int) (*models.ParticipantRef, error) {
	if fixture.TeamA != nil && fixture.TeamA.ID == id {
		return fixture.TeamA, nil
	}
	if fixture.TeamB != nil && fixture.TeamB.ID == id {
		return fixture.TeamB, nil
	}
	return nil, ErrWinnerNotInFixture
}

func clampScore(p *int) *int {
	v := maxInt(0, *p)
	return &v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
