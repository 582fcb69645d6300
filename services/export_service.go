package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bracketforge/tourney-server/brackets"
	"github.com/bracketforge/tourney-server/models"
	"github.com/bracketforge/tourney-server/repositories"
	"github.com/bracketforge/tourney-server/storage"
)

// ExportSnapshot is the published document: the event's full fixture set
// plus, where the format has a group phase, the derived table.
type ExportSnapshot struct {
	TournamentID int                   `json:"tournament_id"`
	EventID      int                   `json:"event_id"`
	EventName    string                `json:"event_name"`
	MatchType    models.MatchType      `json:"match_type"`
	GeneratedAt  time.Time             `json:"generated_at"`
	Fixtures     []*models.Fixture     `json:"fixtures"`
	Standings    []models.StandingsRow `json:"standings,omitempty"`
}

// ExportResult points at the uploaded snapshot object.
type ExportResult struct {
	Key        string    `json:"key"`
	PublicURL  string    `json:"public_url"`
	ExportedAt time.Time `json:"exported_at"`
}

// ExportService publishes read-only JSON snapshots of an event's bracket
// state to object storage, for embedding or archival outside the API.
type ExportService interface {
	ExportEvent(ctx context.Context, actor models.ActorContext, tournamentID, eventID int) (*ExportResult, error)
}

type exportService struct {
	eventRepo   repositories.EventRepository
	fixtureRepo repositories.FixtureRepository
	uploader    storage.ObjectUploader
}

// NewExportService wires the exporter. A nil uploader disables the feature:
// ExportEvent then fails with ErrExportDisabled instead of at startup, so
// deployments without object storage keep the rest of the API.
func NewExportService(
	eventRepo repositories.EventRepository,
	fixtureRepo repositories.FixtureRepository,
	uploader storage.ObjectUploader,
) ExportService {
	return &exportService{
		eventRepo:   eventRepo,
		fixtureRepo: fixtureRepo,
		uploader:    uploader,
	}
}

func (s *exportService) ExportEvent(ctx context.Context, actor models.ActorContext, tournamentID, eventID int) (*ExportResult, error) {
	if s.uploader == nil {
		return nil, ErrExportDisabled
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

	var (
		fixtures []*models.Fixture
		rrOnly   []*models.Fixture
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fixtures, err = s.fixtureRepo.List(gctx, tournamentID, &eventID, nil)
		return err
	})
	if event.MatchType != models.MatchTypeKnockout {
		g.Go(func() error {
			phase := models.PhaseRoundRobin
			var err error
			rrOnly, err = s.fixtureRepo.List(gctx, tournamentID, &eventID, &phase)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to assemble snapshot for event %d: %w", eventID, err)
	}

	snapshot := ExportSnapshot{
		TournamentID: tournamentID,
		EventID:      eventID,
		EventName:    event.Name,
		MatchType:    event.MatchType,
		GeneratedAt:  time.Now().UTC(),
		Fixtures:     fixtures,
	}
	if event.MatchType != models.MatchTypeKnockout {
		snapshot.Standings = brackets.ComputeStandings(rrOnly)
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot for event %d: %w", eventID, err)
	}

	key := fmt.Sprintf("snapshots/tournament_%d/event_%d/%s.json", tournamentID, eventID, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to upload snapshot for event %d: %w", eventID, err)
	}

	log.Printf("organizer %d exported snapshot for event %d: %s", actor.OrganizerID, eventID, result.Key)
	return &ExportResult{
		Key:        result.Key,
		PublicURL:  result.Location,
		ExportedAt: snapshot.GeneratedAt,
	}, nil
}
