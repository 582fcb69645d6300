package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bracketforge/tourney-server/brackets"
	"github.com/bracketforge/tourney-server/models"
	"github.com/bracketforge/tourney-server/realtime"
	"github.com/bracketforge/tourney-server/repositories"
	"golang.org/x/sync/errgroup"
)

// Per-match defaults applied at generation time. Organizers can override
// them fixture by fixture afterwards.
const (
	defaultMaxSets       = 3
	defaultPointsToWin   = 30
	defaultDecidingPoint = 50
	defaultCourtNumber   = 1
)

// Broadcaster pushes engine events to live bracket viewers. Satisfied by
// *realtime.Hub; faked in tests.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type GenerateOptions struct {
	// Force also clears the other phase's fixtures of a hybrid event
	// before regenerating.
	Force bool

	// Seed fixes the knockout draw; zero draws randomly.
	Seed int64
}

// GenerateResult carries the created fixtures plus a message that
// distinguishes partial outcomes (stale-phase cleanup, byes resolved, ...).
type GenerateResult struct {
	Fixtures []*models.Fixture `json:"fixtures"`
	Message  string            `json:"message"`
}

type ListResult struct {
	Fixtures     []*models.Fixture     `json:"fixtures"`
	Participants []*models.Participant `json:"participants,omitempty"`
}

type CreateFixtureInput struct {
	EventID     int        `json:"event_id"`
	Round       int        `json:"round"`
	MatchNumber int        `json:"match_number"` // 1-based; stored match index is MatchNumber-1
	TeamA       *int       `json:"team_a_id"`
	TeamB       *int       `json:"team_b_id"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	MaxSets     int        `json:"max_sets"`
}

type FixtureService interface {
	Generate(ctx context.Context, actor models.ActorContext, tournamentID, eventID int, opts GenerateOptions) (*GenerateResult, error)
	List(ctx context.Context, tournamentID int, eventID *int) (*ListResult, error)
	Get(ctx context.Context, fixtureID int) (*models.Fixture, error)
	CreateManual(ctx context.Context, actor models.ActorContext, tournamentID int, input CreateFixtureInput) (*models.Fixture, error)
	PromoteToKnockout(ctx context.Context, actor models.ActorContext, tournamentID, eventID, qualifiers int) (*GenerateResult, error)
	DeleteForParticipant(ctx context.Context, ref models.ParticipantRef) (int64, error)
}

type fixtureService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	eventRepo      repositories.EventRepository
	entryRepo      repositories.EntryRepository
	fixtureRepo    repositories.FixtureRepository
	hub            Broadcaster

	// runTx sequences a delete-then-insert inside one transaction. It is a
	// field so tests can substitute a pass-through over fake repositories.
	runTx func(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

func NewFixtureService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	eventRepo repositories.EventRepository,
	entryRepo repositories.EntryRepository,
	fixtureRepo repositories.FixtureRepository,
	hub Broadcaster,
) FixtureService {
	s := &fixtureService{
		db:             db,
		tournamentRepo: tournamentRepo,
		eventRepo:      eventRepo,
		entryRepo:      entryRepo,
		fixtureRepo:    fixtureRepo,
		hub:            hub,
	}
	s.runTx = s.runInTransaction
	return s
}

func (s *fixtureService) runInTransaction(ctx context.Context, fn func(exec repositories.SQLExecutor) error) (err error) {
	tx, beginErr := s.db.BeginTx(ctx, nil)
	if beginErr != nil {
		return fmt.Errorf("failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("rollback failed: %v (original: %v)", rbErr, err)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Generate rebuilds the fixture set for one event. Identifiers are validated
// before anything is deleted, so a bad request can never destroy an existing
// bracket. The delete and the insert run sequenced inside one transaction:
// readers observe either the old bracket or the new one, never a half.
func (s *fixtureService) Generate(ctx context.Context, actor models.ActorContext, tournamentID, eventID int, opts GenerateOptions) (*GenerateResult, error) {
	event, err := s.loadEvent(ctx, tournamentID, eventID)
	if err != nil {
		return nil, err
	}

	entries, err := s.entryRepo.ListByEvent(ctx, event.EntryKind, tournamentID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for event %d: %w", eventID, err)
	}
	if len(entries) < 2 {
		return nil, fmt.Errorf("%w (found %d)", ErrNotEnoughParticipants, len(entries))
	}

	refs := make([]*models.ParticipantRef, len(entries))
	for i, e := range entries {
		ref := e.Ref()
		refs[i] = &ref
	}

	var (
		slots       []brackets.Slot
		deletePhase *models.Phase // nil clears both phases
	)

	switch {
	case event.MatchType == models.MatchTypeRoundRobin || event.MatchType.IsHybrid():
		generator := brackets.NewRoundRobinGenerator()
		slots, err = generator.Build(brackets.BuildParams{Entries: refs})
		if err != nil {
			return nil, mapGeneratorError(err)
		}
		if !opts.Force {
			phase := models.PhaseRoundRobin
			deletePhase = &phase
		}
	case event.MatchType == models.MatchTypeKnockout:
		generator := brackets.NewKnockoutGenerator()
		slots, err = generator.Build(brackets.BuildParams{Entries: brackets.Shuffle(refs, opts.Seed)})
		if err != nil {
			return nil, mapGeneratorError(err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMatchType, event.MatchType)
	}

	var (
		created []*models.Fixture
		removed int64
	)
	err = s.runTx(ctx, func(exec repositories.SQLExecutor) error {
		var txErr error
		removed, txErr = s.fixtureRepo.DeleteByEventPhase(ctx, exec, tournamentID, eventID, deletePhase)
		if txErr != nil {
			return fmt.Errorf("failed to clear existing fixtures for event %d: %w", eventID, txErr)
		}
		created, txErr = s.insertSlots(ctx, exec, event, slots)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	attachRoundNames(created)

	message := fmt.Sprintf("generated %d fixtures", len(created))
	if removed > 0 {
		message = fmt.Sprintf("%s, replaced %d existing", message, removed)
	}
	if byes := countByes(created); byes > 0 {
		message = fmt.Sprintf("%s, %d byes auto-resolved", message, byes)
	}

	s.broadcast(tournamentID, realtime.EventFixturesGenerated, created)
	log.Printf("organizer %d regenerated fixtures for event %d: %s", actor.OrganizerID, eventID, message)

	return &GenerateResult{Fixtures: created, Message: message}, nil
}

// List returns fixtures ordered by (round, match_index) with display round
// names attached. When scoped to an event the event's participants are
// fetched concurrently so the caller can label slots in one round trip.
func (s *fixtureService) List(ctx context.Context, tournamentID int, eventID *int) (*ListResult, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	result := &ListResult{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fixtures, err := s.fixtureRepo.List(gCtx, tournamentID, eventID, nil)
		if err != nil {
			return err
		}
		attachRoundNames(fixtures)
		result.Fixtures = fixtures
		return nil
	})

	if eventID != nil {
		g.Go(func() error {
			event, err := s.eventRepo.GetByID(gCtx, *eventID)
			if err != nil {
				if errors.Is(err, repositories.ErrEventNotFound) {
					return ErrEventNotFound
				}
				return err
			}
			participants, err := s.entryRepo.ListByEvent(gCtx, event.EntryKind, tournamentID, *eventID)
			if err != nil {
				return err
			}
			result.Participants = participants
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *fixtureService) Get(ctx context.Context, fixtureID int) (*models.Fixture, error) {
	fixture, err := s.fixtureRepo.GetByID(ctx, fixtureID)
	if err != nil {
		if errors.Is(err, repositories.ErrFixtureNotFound) {
			return nil, ErrFixtureNotFound
		}
		return nil, fmt.Errorf("failed to load fixture %d: %w", fixtureID, err)
	}

	// Round labels depend on the phase's full round span, so name the
	// fixture against its event siblings rather than in isolation.
	siblings, err := s.fixtureRepo.List(ctx, fixture.TournamentID, &fixture.EventID, &fixture.Phase)
	if err == nil {
		attachRoundNames(siblings)
		for _, sibling := range siblings {
			if sibling.ID == fixture.ID {
				fixture.RoundName = sibling.RoundName
			}
		}
	}
	return fixture, nil
}

// CreateManual adds a single fixture outside of generation, e.g. when an
// organizer schedules an extra match by hand.
func (s *fixtureService) CreateManual(ctx context.Context, actor models.ActorContext, tournamentID int, input CreateFixtureInput) (*models.Fixture, error) {
	event, err := s.loadEvent(ctx, tournamentID, input.EventID)
	if err != nil {
		return nil, err
	}

	matchIndex := 0
	if input.MatchNumber > 0 {
		matchIndex = input.MatchNumber - 1
	}
	maxSets := input.MaxSets
	if maxSets < 1 {
		maxSets = defaultMaxSets
	}

	fixture := &models.Fixture{
		TournamentID:  tournamentID,
		EventID:       input.EventID,
		Phase:         models.PhaseKnockout,
		Round:         input.Round,
		MatchIndex:    matchIndex,
		EntryKind:     event.EntryKind,
		TeamA:         refFromID(event.EntryKind, input.TeamA),
		TeamB:         refFromID(event.EntryKind, input.TeamB),
		Status:        models.StatusScheduled,
		Sets:          []models.SetScore{},
		MaxSets:       maxSets,
		CurrentSet:    1,
		PointsToWin:   defaultPointsToWin,
		IsDeuce:       true,
		DecidingPoint: defaultDecidingPoint,
		CourtNumber:   defaultCourtNumber,
		ScheduledAt:   input.ScheduledAt,
	}

	if err := s.fixtureRepo.Create(ctx, s.db, fixture); err != nil {
		if errors.Is(err, repositories.ErrFixtureSlotConflict) {
			return nil, ErrSlotOccupied
		}
		return nil, fmt.Errorf("failed to create fixture: %w", err)
	}

	s.broadcast(tournamentID, realtime.EventFixtureUpdated, fixture)
	log.Printf("organizer %d created fixture %d manually in event %d", actor.OrganizerID, fixture.ID, input.EventID)
	return fixture, nil
}

// PromoteToKnockout seeds the knockout phase of a hybrid event from the
// current round-robin table. Knockout round numbers continue after the last
// matchday so the event keeps a single monotonic round axis.
func (s *fixtureService) PromoteToKnockout(ctx context.Context, actor models.ActorContext, tournamentID, eventID, qualifiers int) (*GenerateResult, error) {
	event, err := s.loadEvent(ctx, tournamentID, eventID)
	if err != nil {
		return nil, err
	}
	if !event.MatchType.IsHybrid() {
		return nil, ErrEventNotHybrid
	}

	rrPhase := models.PhaseRoundRobin
	rrFixtures, err := s.fixtureRepo.List(ctx, tournamentID, &eventID, &rrPhase)
	if err != nil {
		return nil, fmt.Errorf("failed to list round-robin fixtures for event %d: %w", eventID, err)
	}
	if len(rrFixtures) == 0 {
		return nil, ErrNoRoundRobinFixtures
	}

	standings := brackets.ComputeStandings(rrFixtures)
	if qualifiers > len(standings) {
		qualifiers = len(standings)
	}
	if qualifiers < 2 {
		return nil, fmt.Errorf("%w (got %d)", ErrNotEnoughQualifiers, qualifiers)
	}

	ranked := make([]*models.ParticipantRef, qualifiers)
	for i := 0; i < qualifiers; i++ {
		team := standings[i].Team
		ranked[i] = &team
	}

	lastRR, err := s.fixtureRepo.LastRound(ctx, tournamentID, eventID, models.PhaseRoundRobin)
	if err != nil {
		return nil, err
	}
	startRound := 0
	if lastRR != nil {
		startRound = *lastRR + 1
	}

	generator := brackets.NewKnockoutGenerator()
	slots, err := generator.Build(brackets.BuildParams{
		Entries:    brackets.SnakeSeed(ranked),
		StartRound: startRound,
	})
	if err != nil {
		return nil, mapGeneratorError(err)
	}

	var (
		created []*models.Fixture
		removed int64
	)
	err = s.runTx(ctx, func(exec repositories.SQLExecutor) error {
		var txErr error
		removed, txErr = s.fixtureRepo.DeleteKnockoutFromRound(ctx, exec, tournamentID, eventID, startRound)
		if txErr != nil {
			return fmt.Errorf("failed to clear previous knockout fixtures for event %d: %w", eventID, txErr)
		}
		created, txErr = s.insertSlots(ctx, exec, event, slots)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	attachRoundNames(created)

	message := fmt.Sprintf("knockout stage created with %d qualifiers", qualifiers)
	if removed > 0 {
		message = fmt.Sprintf("%s, replaced %d previous knockout fixtures", message, removed)
	}

	s.broadcast(tournamentID, realtime.EventFixturesGenerated, created)
	log.Printf("organizer %d promoted event %d to knockout: %s", actor.OrganizerID, eventID, message)

	return &GenerateResult{Fixtures: created, Message: message}, nil
}

func (s *fixtureService) DeleteForParticipant(ctx context.Context, ref models.ParticipantRef) (int64, error) {
	removed, err := s.fixtureRepo.DeleteByParticipant(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("failed to delete fixtures for participant %s: %w", ref, err)
	}
	return removed, nil
}

// --- internals ---

func (s *fixtureService) loadEvent(ctx context.Context, tournamentID, eventID int) (*models.Event, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event %d: %w", eventID, err)
	}
	if event.TournamentID != tournamentID {
		return nil, ErrEventNotFound
	}
	return event, nil
}

func (s *fixtureService) insertSlots(ctx context.Context, exec repositories.SQLExecutor, event *models.Event, slots []brackets.Slot) ([]*models.Fixture, error) {
	created := make([]*models.Fixture, 0, len(slots))
	for _, slot := range slots {
		fixture := &models.Fixture{
			TournamentID:  event.TournamentID,
			EventID:       event.ID,
			Phase:         slot.Phase,
			Round:         slot.Round,
			MatchIndex:    slot.MatchIndex,
			EntryKind:     event.EntryKind,
			TeamA:         slot.TeamA,
			TeamB:         slot.TeamB,
			Status:        slot.Status,
			Winner:        slot.Winner,
			Sets:          []models.SetScore{},
			MaxSets:       defaultMaxSets,
			CurrentSet:    1,
			PointsToWin:   defaultPointsToWin,
			IsDeuce:       true,
			DecidingPoint: defaultDecidingPoint,
			CourtNumber:   defaultCourtNumber,
		}
		if err := s.fixtureRepo.Create(ctx, exec, fixture); err != nil {
			return nil, fmt.Errorf("failed to insert fixture (round %d, match %d): %w", slot.Round, slot.MatchIndex, err)
		}
		created = append(created, fixture)
	}
	return created, nil
}

func (s *fixtureService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(realtime.TournamentRoom(tournamentID), realtime.Message{
		Type:    eventType,
		Payload: payload,
	})
}

func mapGeneratorError(err error) error {
	if errors.Is(err, brackets.ErrNotEnoughParticipants) {
		return ErrNotEnoughParticipants
	}
	return err
}

func refFromID(kind models.ParticipantKind, id *int) *models.ParticipantRef {
	if id == nil {
		return nil
	}
	return &models.ParticipantRef{Kind: kind, ID: *id}
}

func countByes(fixtures []*models.Fixture) int {
	byes := 0
	for _, f := range fixtures {
		if f.IsBye() {
			byes++
		}
	}
	return byes
}

// attachRoundNames recomputes display labels from round numbers. Knockout
// labels are relative to the phase's own first round so hybrid events name
// their final "Final" even though its absolute round number continues after
// the matchdays.
func attachRoundNames(fixtures []*models.Fixture) {
	koMin, koMax := -1, -1
	for _, f := range fixtures {
		if f.Phase != models.PhaseKnockout {
			continue
		}
		if koMin == -1 || f.Round < koMin {
			koMin = f.Round
		}
		if f.Round > koMax {
			koMax = f.Round
		}
	}
	koTotal := koMax - koMin + 1

	for _, f := range fixtures {
		switch f.Phase {
		case models.PhaseRoundRobin:
			f.RoundName = brackets.RoundRobinRoundName(f.Round)
		case models.PhaseKnockout:
			if koMin >= 0 {
				f.RoundName = brackets.KnockoutRoundName(f.Round-koMin, koTotal)
			}
		}
	}
}
