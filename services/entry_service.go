package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bracketforge/tourney-server/models"
	"github.com/bracketforge/tourney-server/repositories"
)

// EntryService resolves the competing entities of an event (the participant
// resolver) and owns entry removal with its fixture cascade.
type EntryService interface {
	ResolveParticipants(ctx context.Context, tournamentID, eventID int) ([]*models.Participant, error)
	GetParticipant(ctx context.Context, ref models.ParticipantRef) (*models.Participant, error)
	DeleteEntry(ctx context.Context, actor models.ActorContext, ref models.ParticipantRef) (int64, error)
}

type entryService struct {
	entryRepo      repositories.EntryRepository
	eventRepo      repositories.EventRepository
	tournamentRepo repositories.TournamentRepository
	fixtureRepo    repositories.FixtureRepository
}

func NewEntryService(
	entryRepo repositories.EntryRepository,
	eventRepo repositories.EventRepository,
	tournamentRepo repositories.TournamentRepository,
	fixtureRepo repositories.FixtureRepository,
) EntryService {
	return &entryService{
		entryRepo:      entryRepo,
		eventRepo:      eventRepo,
		tournamentRepo: tournamentRepo,
		fixtureRepo:    fixtureRepo,
	}
}

// ResolveParticipants returns the ordered entries of the event's declared
// kind. The engine treats the result as opaque ordered ids plus display
// names.
func (s *entryService) ResolveParticipants(ctx context.Context, tournamentID, eventID int) ([]*models.Participant, error) {
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

	entries, err := s.entryRepo.ListByEvent(ctx, event.EntryKind, tournamentID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s entries for event %d: %w", event.EntryKind, eventID, err)
	}
	return entries, nil
}

func (s *entryService) GetParticipant(ctx context.Context, ref models.ParticipantRef) (*models.Participant, error) {
	entry, err := s.entryRepo.GetByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to load participant %s: %w", ref, err)
	}
	return entry, nil
}

// DeleteEntry removes an entry and cascades the cleanup of every fixture the
// entry occupies a slot in. Returns the number of fixtures removed.
func (s *entryService) DeleteEntry(ctx context.Context, actor models.ActorContext, ref models.ParticipantRef) (int64, error) {
	if err := s.entryRepo.Delete(ctx, ref); err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return 0, ErrParticipantNotFound
		}
		return 0, fmt.Errorf("failed to delete entry %s: %w", ref, err)
	}

	removed, err := s.fixtureRepo.DeleteByParticipant(ctx, ref)
	if err != nil {
		// The entry itself is gone; report the cascade failure without
		// pretending the delete did not happen.
		return 0, fmt.Errorf("entry %s deleted, but fixture cleanup failed: %w", ref, err)
	}

	log.Printf("organizer %d deleted entry %s, removed %d fixtures", actor.OrganizerID, ref, removed)
	return removed, nil
}
