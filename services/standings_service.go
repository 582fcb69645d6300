package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracketforge/tourney-server/brackets"
	"github.com/bracketforge/tourney-server/models"
	"github.com/bracketforge/tourney-server/repositories"
)

// StandingsService derives round-robin tables on demand. Tables are never
// persisted, they are recomputed from fixtures on every call.
type StandingsService interface {
	GetStandings(ctx context.Context, tournamentID, eventID int) ([]models.StandingsRow, error)
}

type standingsService struct {
	eventRepo   repositories.EventRepository
	entryRepo   repositories.EntryRepository
	fixtureRepo repositories.FixtureRepository
}

func NewStandingsService(
	eventRepo repositories.EventRepository,
	entryRepo repositories.EntryRepository,
	fixtureRepo repositories.FixtureRepository,
) StandingsService {
	return &standingsService{
		eventRepo:   eventRepo,
		entryRepo:   entryRepo,
		fixtureRepo: fixtureRepo,
	}
}

// GetStandings computes the table over the event's round-robin fixtures.
// For a hybrid event only the group phase counts, knockout results never
// feed the table. Rows carry resolved display names where the entry still
// exists.
func (s *standingsService) GetStandings(ctx context.Context, tournamentID, eventID int) ([]models.StandingsRow, error) {
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
	if event.MatchType == models.MatchTypeKnockout {
		return nil, ErrUnsupportedMatchType
	}

	phase := models.PhaseRoundRobin
	fixtures, err := s.fixtureRepo.List(ctx, tournamentID, &eventID, &phase)
	if err != nil {
		return nil, fmt.Errorf("failed to list round-robin fixtures for event %d: %w", eventID, err)
	}

	rows := brackets.ComputeStandings(fixtures)
	s.resolveNames(ctx, rows)
	return rows, nil
}

func (s *standingsService) resolveNames(ctx context.Context, rows []models.StandingsRow) {
	for i := range rows {
		entry, err := s.entryRepo.GetByRef(ctx, rows[i].Team)
		if err != nil {
			// A withdrawn entry can still hold historical results; the
			// row stays with an empty name.
			continue
		}
		rows[i].TeamName = entry.DisplayName()
	}
}
