package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bracketforge/tourney-server/models"
	"github.com/lib/pq"
)

var (
	ErrFixtureNotFound          = errors.New("fixture not found")
	ErrFixtureSlotConflict      = errors.New("fixture slot already occupied")
	ErrFixtureTournamentInvalid = errors.New("fixture tournament conflict or invalid")
	ErrFixtureEventInvalid      = errors.New("fixture event conflict or invalid")
)

type FixtureRepository interface {
	Create(ctx context.Context, exec SQLExecutor, fixture *models.Fixture) error
	GetByID(ctx context.Context, id int) (*models.Fixture, error)
	List(ctx context.Context, tournamentID int, eventID *int, phase *models.Phase) ([]*models.Fixture, error)
	FindBySlot(ctx context.Context, tournamentID, eventID int, phase models.Phase, round, matchIndex int) (*models.Fixture, error)
	Update(ctx context.Context, exec SQLExecutor, fixture *models.Fixture) error
	UpdateTeams(ctx context.Context, exec SQLExecutor, id int, teamA, teamB *models.ParticipantRef) error
	DeleteByEventPhase(ctx context.Context, exec SQLExecutor, tournamentID, eventID int, phase *models.Phase) (int64, error)
	DeleteKnockoutFromRound(ctx context.Context, exec SQLExecutor, tournamentID, eventID, fromRound int) (int64, error)
	DeleteByParticipant(ctx context.Context, ref models.ParticipantRef) (int64, error)
	LastRound(ctx context.Context, tournamentID, eventID int, phase models.Phase) (*int, error)
}

type postgresFixtureRepository struct {
	db *sql.DB
}

func NewPostgresFixtureRepository(db *sql.DB) FixtureRepository {
	return &postgresFixtureRepository{db: db}
}

const fixtureColumns = `id, tournament_id, event_id, phase, round, match_index, entry_kind,
	team_a_id, team_b_id, status, sets, max_sets, current_set,
	points_to_win, is_deuce, deciding_point, court_number,
	score_a, score_b, winner_id, notes, scheduled_at, created_at, updated_at`

func (r *postgresFixtureRepository) Create(ctx context.Context, exec SQLExecutor, fixture *models.Fixture) error {
	setsJSON, err := marshalSets(fixture.Sets)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO fixtures
			(tournament_id, event_id, phase, round, match_index, entry_kind,
			 team_a_id, team_b_id, status, sets, max_sets, current_set,
			 points_to_win, is_deuce, deciding_point, court_number,
			 score_a, score_b, winner_id, notes, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id, created_at, updated_at`

	err = exec.QueryRowContext(ctx, query,
		fixture.TournamentID,
		fixture.EventID,
		fixture.Phase,
		fixture.Round,
		fixture.MatchIndex,
		fixture.EntryKind,
		refID(fixture.TeamA),
		refID(fixture.TeamB),
		fixture.Status,
		setsJSON,
		fixture.MaxSets,
		fixture.CurrentSet,
		fixture.PointsToWin,
		fixture.IsDeuce,
		fixture.DecidingPoint,
		fixture.CourtNumber,
		nullableInt(fixture.ScoreA),
		nullableInt(fixture.ScoreB),
		refID(fixture.Winner),
		fixture.Notes,
		fixture.ScheduledAt,
	).Scan(&fixture.ID, &fixture.CreatedAt, &fixture.UpdatedAt)

	return r.handleFixtureError(err)
}

func (r *postgresFixtureRepository) GetByID(ctx context.Context, id int) (*models.Fixture, error) {
	query := `SELECT ` + fixtureColumns + ` FROM fixtures WHERE id = $1`

	fixture, err := scanFixture(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFixtureNotFound
		}
		return nil, fmt.Errorf("failed to scan fixture by id %d: %w", id, err)
	}
	return fixture, nil
}

func (r *postgresFixtureRepository) List(ctx context.Context, tournamentID int, eventID *int, phase *models.Phase) ([]*models.Fixture, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + fixtureColumns + ` FROM fixtures WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholder := 2

	if eventID != nil {
		queryBuilder.WriteString(" AND event_id = $")
		queryBuilder.WriteString(strconv.Itoa(placeholder))
		args = append(args, *eventID)
		placeholder++
	}
	if phase != nil {
		queryBuilder.WriteString(" AND phase = $")
		queryBuilder.WriteString(strconv.Itoa(placeholder))
		args = append(args, *phase)
	}

	queryBuilder.WriteString(" ORDER BY round ASC, match_index ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fixtures for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	fixtures := make([]*models.Fixture, 0)
	for rows.Next() {
		fixture, scanErr := scanFixture(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan fixture row: %w", scanErr)
		}
		fixtures = append(fixtures, fixture)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during fixture rows iteration: %w", err)
	}
	return fixtures, nil
}

func (r *postgresFixtureRepository) FindBySlot(ctx context.Context, tournamentID, eventID int, phase models.Phase, round, matchIndex int) (*models.Fixture, error) {
	query := `SELECT ` + fixtureColumns + ` FROM fixtures
		WHERE tournament_id = $1 AND event_id = $2 AND phase = $3 AND round = $4 AND match_index = $5`

	fixture, err := scanFixture(r.db.QueryRowContext(ctx, query, tournamentID, eventID, phase, round, matchIndex))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFixtureNotFound
		}
		return nil, fmt.Errorf("failed to scan fixture at slot (%d, %d): %w", round, matchIndex, err)
	}
	return fixture, nil
}

func (r *postgresFixtureRepository) Update(ctx context.Context, exec SQLExecutor, fixture *models.Fixture) error {
	setsJSON, err := marshalSets(fixture.Sets)
	if err != nil {
		return err
	}

	query := `
		UPDATE fixtures
		SET team_a_id = $1, team_b_id = $2, status = $3, sets = $4, max_sets = $5,
		    current_set = $6, points_to_win = $7, is_deuce = $8, deciding_point = $9,
		    court_number = $10, score_a = $11, score_b = $12, winner_id = $13,
		    notes = $14, scheduled_at = $15, updated_at = now()
		WHERE id = $16`

	result, err := exec.ExecContext(ctx, query,
		refID(fixture.TeamA),
		refID(fixture.TeamB),
		fixture.Status,
		setsJSON,
		fixture.MaxSets,
		fixture.CurrentSet,
		fixture.PointsToWin,
		fixture.IsDeuce,
		fixture.DecidingPoint,
		fixture.CourtNumber,
		nullableInt(fixture.ScoreA),
		nullableInt(fixture.ScoreB),
		refID(fixture.Winner),
		fixture.Notes,
		fixture.ScheduledAt,
		fixture.ID,
	)
	if err != nil {
		return r.handleFixtureError(err)
	}
	return checkAffectedRows(result, ErrFixtureNotFound)
}

func (r *postgresFixtureRepository) UpdateTeams(ctx context.Context, exec SQLExecutor, id int, teamA, teamB *models.ParticipantRef) error {
	query := `UPDATE fixtures SET team_a_id = $1, team_b_id = $2, updated_at = now() WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, refID(teamA), refID(teamB), id)
	if err != nil {
		return fmt.Errorf("UpdateTeams: failed to execute query for fixture %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrFixtureNotFound)
}

func (r *postgresFixtureRepository) DeleteByEventPhase(ctx context.Context, exec SQLExecutor, tournamentID, eventID int, phase *models.Phase) (int64, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`DELETE FROM fixtures WHERE tournament_id = $1 AND event_id = $2`)

	args := []interface{}{tournamentID, eventID}
	if phase != nil {
		queryBuilder.WriteString(" AND phase = $3")
		args = append(args, *phase)
	}

	result, err := exec.ExecContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete fixtures for event %d: %w", eventID, err)
	}
	return result.RowsAffected()
}

func (r *postgresFixtureRepository) DeleteKnockoutFromRound(ctx context.Context, exec SQLExecutor, tournamentID, eventID, fromRound int) (int64, error) {
	query := `DELETE FROM fixtures
		WHERE tournament_id = $1 AND event_id = $2 AND phase = $3 AND round >= $4`

	result, err := exec.ExecContext(ctx, query, tournamentID, eventID, models.PhaseKnockout, fromRound)
	if err != nil {
		return 0, fmt.Errorf("failed to delete knockout fixtures from round %d: %w", fromRound, err)
	}
	return result.RowsAffected()
}

func (r *postgresFixtureRepository) DeleteByParticipant(ctx context.Context, ref models.ParticipantRef) (int64, error) {
	query := `DELETE FROM fixtures
		WHERE entry_kind = $1 AND (team_a_id = $2 OR team_b_id = $2)`

	result, err := r.db.ExecContext(ctx, query, ref.Kind, ref.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete fixtures for participant %s: %w", ref, err)
	}
	return result.RowsAffected()
}

func (r *postgresFixtureRepository) LastRound(ctx context.Context, tournamentID, eventID int, phase models.Phase) (*int, error) {
	query := `SELECT MAX(round) FROM fixtures
		WHERE tournament_id = $1 AND event_id = $2 AND phase = $3`

	var last sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, tournamentID, eventID, phase).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to query last %s round for event %d: %w", phase, eventID, err)
	}
	if !last.Valid {
		return nil, nil
	}
	round := int(last.Int64)
	return &round, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFixture(row rowScanner) (*models.Fixture, error) {
	fixture := &models.Fixture{}
	var (
		teamA, teamB, winner sql.NullInt64
		scoreA, scoreB       sql.NullInt64
		setsJSON             []byte
	)

	err := row.Scan(
		&fixture.ID,
		&fixture.TournamentID,
		&fixture.EventID,
		&fixture.Phase,
		&fixture.Round,
		&fixture.MatchIndex,
		&fixture.EntryKind,
		&teamA,
		&teamB,
		&fixture.Status,
		&setsJSON,
		&fixture.MaxSets,
		&fixture.CurrentSet,
		&fixture.PointsToWin,
		&fixture.IsDeuce,
		&fixture.DecidingPoint,
		&fixture.CourtNumber,
		&scoreA,
		&scoreB,
		&winner,
		&fixture.Notes,
		&fixture.ScheduledAt,
		&fixture.CreatedAt,
		&fixture.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fixture.TeamA = refFromNull(fixture.EntryKind, teamA)
	fixture.TeamB = refFromNull(fixture.EntryKind, teamB)
	fixture.Winner = refFromNull(fixture.EntryKind, winner)
	fixture.ScoreA = intFromNull(scoreA)
	fixture.ScoreB = intFromNull(scoreB)

	if len(setsJSON) > 0 {
		if err := json.Unmarshal(setsJSON, &fixture.Sets); err != nil {
			return nil, fmt.Errorf("failed to decode sets for fixture %d: %w", fixture.ID, err)
		}
	}
	if fixture.Sets == nil {
		fixture.Sets = []models.SetScore{}
	}

	return fixture, nil
}

func marshalSets(sets []models.SetScore) ([]byte, error) {
	if sets == nil {
		sets = []models.SetScore{}
	}
	data, err := json.Marshal(sets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sets: %w", err)
	}
	return data, nil
}

func refID(ref *models.ParticipantRef) interface{} {
	if ref == nil {
		return nil
	}
	return ref.ID
}

func refFromNull(kind models.ParticipantKind, id sql.NullInt64) *models.ParticipantRef {
	if !id.Valid {
		return nil
	}
	return &models.ParticipantRef{Kind: kind, ID: int(id.Int64)}
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func (r *postgresFixtureRepository) handleFixtureError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "fixtures_tournament_id_fkey":
			return ErrFixtureTournamentInvalid
		case "fixtures_event_id_fkey":
			return ErrFixtureEventInvalid
		case "fixtures_slot_key":
			return ErrFixtureSlotConflict
		}
	}
	return err
}
