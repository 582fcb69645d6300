package brackets

import (
	"testing"

	"github.com/bracketforge/tourney-server/models"
)

func scoredFixture(aID, bID int, scoreA, scoreB int) *models.Fixture {
	return &models.Fixture{
		Phase:  models.PhaseRoundRobin,
		TeamA:  &models.ParticipantRef{Kind: models.ParticipantSolo, ID: aID},
		TeamB:  &models.ParticipantRef{Kind: models.ParticipantSolo, ID: bID},
		ScoreA: &scoreA,
		ScoreB: &scoreB,
	}
}

func unscoredFixture(aID, bID int) *models.Fixture {
	return &models.Fixture{
		Phase: models.PhaseRoundRobin,
		TeamA: &models.ParticipantRef{Kind: models.ParticipantSolo, ID: aID},
		TeamB: &models.ParticipantRef{Kind: models.ParticipantSolo, ID: bID},
	}
}

func TestComputeStandingsPoints(t *testing.T) {
	// 1 beats 2, 2 draws 3, 3 beats 1.
	fixtures := []*models.Fixture{
		scoredFixture(1, 2, 21, 15),
		scoredFixture(2, 3, 18, 18),
		scoredFixture(3, 1, 21, 10),
	}

	rows := ComputeStandings(fixtures)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	byID := map[int]models.StandingsRow{}
	for _, row := range rows {
		byID[row.Team.ID] = row
	}

	tests := []struct {
		id                       int
		played, won, drawn, lost int
		points                   int
	}{
		{1, 2, 1, 0, 1, 3},
		{2, 2, 0, 1, 1, 1},
		{3, 2, 1, 1, 0, 4},
	}
	for _, tt := range tests {
		row := byID[tt.id]
		if row.Played != tt.played || row.Won != tt.won || row.Drawn != tt.drawn || row.Lost != tt.lost {
			t.Errorf("participant %d: P%d W%d D%d L%d, want P%d W%d D%d L%d",
				tt.id, row.Played, row.Won, row.Drawn, row.Lost, tt.played, tt.won, tt.drawn, tt.lost)
		}
		if row.Points != tt.points {
			t.Errorf("participant %d: %d points, want %d", tt.id, row.Points, tt.points)
		}
	}

	if rows[0].Team.ID != 3 {
		t.Errorf("table leader is participant %d, want 3", rows[0].Team.ID)
	}
}

func TestComputeStandingsScoreDifferenceTieBreak(t *testing.T) {
	// 1 and 2 both win once, but 1 wins big and loses narrow.
	fixtures := []*models.Fixture{
		scoredFixture(1, 3, 21, 5),
		scoredFixture(2, 3, 21, 19),
		scoredFixture(1, 2, 19, 21),
		scoredFixture(2, 1, 10, 21),
	}

	rows := ComputeStandings(fixtures)
	if rows[0].Team.ID != 1 {
		t.Errorf("leader is participant %d, want 1 on score difference", rows[0].Team.ID)
	}
	if rows[0].Points != rows[1].Points {
		t.Fatalf("test premise broken: expected a points tie, got %d vs %d", rows[0].Points, rows[1].Points)
	}
	if rows[0].ScoreDifference() <= rows[1].ScoreDifference() {
		t.Errorf("tie not broken by score difference: %d vs %d", rows[0].ScoreDifference(), rows[1].ScoreDifference())
	}
}

func TestComputeStandingsSkipsUnscoredFixtures(t *testing.T) {
	fixtures := []*models.Fixture{
		scoredFixture(1, 2, 21, 15),
		unscoredFixture(1, 3),
		unscoredFixture(2, 3),
	}

	rows := ComputeStandings(fixtures)
	// Participant 3 has no scored fixture, so it has no row yet.
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (unscored fixtures must not count)", len(rows))
	}
	for _, row := range rows {
		if row.Played != 1 {
			t.Errorf("participant %d played %d, want 1", row.Team.ID, row.Played)
		}
	}
}

func TestComputeStandingsDeterministic(t *testing.T) {
	fixtures := []*models.Fixture{
		scoredFixture(1, 2, 21, 21),
		scoredFixture(3, 4, 15, 15),
		scoredFixture(1, 3, 18, 18),
		scoredFixture(2, 4, 12, 12),
	}

	first := ComputeStandings(fixtures)
	second := ComputeStandings(fixtures)

	if len(first) != len(second) {
		t.Fatalf("row counts differ: %d vs %d", len(first), len(second))
	}
	// All-draw table: everything ties, order must still be stable across
	// calls.
	for i := range first {
		if first[i].Team != second[i].Team {
			t.Errorf("row %d differs between identical computations: %v vs %v", i, first[i].Team, second[i].Team)
		}
	}
}

func TestComputeStandingsEmpty(t *testing.T) {
	if rows := ComputeStandings(nil); len(rows) != 0 {
		t.Errorf("got %d rows from no fixtures", len(rows))
	}
}
