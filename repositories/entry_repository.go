package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bracketforge/tourney-server/models"
)

var ErrEntryNotFound = errors.New("entry not found")

// EntryRepository is the single lookup abstraction over the two entry
// tables. Callers address entries through a ParticipantRef and never care
// which table the row lives in.
type EntryRepository interface {
	ListByEvent(ctx context.Context, kind models.ParticipantKind, tournamentID, eventID int) ([]*models.Participant, error)
	GetByRef(ctx context.Context, ref models.ParticipantRef) (*models.Participant, error)
	Delete(ctx context.Context, ref models.ParticipantRef) error
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) ListByEvent(ctx context.Context, kind models.ParticipantKind, tournamentID, eventID int) ([]*models.Participant, error) {
	var query string
	switch kind {
	case models.ParticipantSolo:
		query = `SELECT id, tournament_id, event_id, name, NULL, NULL, created_at
			FROM solo_entries WHERE tournament_id = $1 AND event_id = $2 ORDER BY id ASC`
	case models.ParticipantGroup:
		query = `SELECT id, tournament_id, event_id, '', team_name, members, created_at
			FROM group_entries WHERE tournament_id = $1 AND event_id = $2 ORDER BY id ASC`
	default:
		return nil, fmt.Errorf("unknown participant kind %q", kind)
	}

	rows, err := r.db.QueryContext(ctx, query, tournamentID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s entries for event %d: %w", kind, eventID, err)
	}
	defer rows.Close()

	entries := make([]*models.Participant, 0)
	for rows.Next() {
		entry, scanErr := scanEntry(rows, kind)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan %s entry row: %w", kind, scanErr)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during entry rows iteration: %w", err)
	}
	return entries, nil
}

func (r *postgresEntryRepository) GetByRef(ctx context.Context, ref models.ParticipantRef) (*models.Participant, error) {
	var query string
	switch ref.Kind {
	case models.ParticipantSolo:
		query = `SELECT id, tournament_id, event_id, name, NULL, NULL, created_at
			FROM solo_entries WHERE id = $1`
	case models.ParticipantGroup:
		query = `SELECT id, tournament_id, event_id, '', team_name, members, created_at
			FROM group_entries WHERE id = $1`
	default:
		return nil, fmt.Errorf("unknown participant kind %q", ref.Kind)
	}

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, ref.ID), ref.Kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to scan entry %s: %w", ref, err)
	}
	return entry, nil
}

func (r *postgresEntryRepository) Delete(ctx context.Context, ref models.ParticipantRef) error {
	var query string
	switch ref.Kind {
	case models.ParticipantSolo:
		query = `DELETE FROM solo_entries WHERE id = $1`
	case models.ParticipantGroup:
		query = `DELETE FROM group_entries WHERE id = $1`
	default:
		return fmt.Errorf("unknown participant kind %q", ref.Kind)
	}

	result, err := r.db.ExecContext(ctx, query, ref.ID)
	if err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", ref, err)
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}

func scanEntry(row rowScanner, kind models.ParticipantKind) (*models.Participant, error) {
	entry := &models.Participant{Kind: kind}
	var (
		teamName    sql.NullString
		membersJSON []byte
	)

	err := row.Scan(
		&entry.ID,
		&entry.TournamentID,
		&entry.EventID,
		&entry.Name,
		&teamName,
		&membersJSON,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if teamName.Valid {
		entry.TeamName = &teamName.String
	}
	if len(membersJSON) > 0 {
		if err := json.Unmarshal(membersJSON, &entry.Members); err != nil {
			return nil, fmt.Errorf("failed to decode members for entry %d: %w", entry.ID, err)
		}
	}

	return entry, nil
}
