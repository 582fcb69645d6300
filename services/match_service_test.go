package services

import (
	"context"
	"errors"
	"testing"

	"github.com/bracketforge/tourney-server/models"
	"github.com/bracketforge/tourney-server/realtime"
	"github.com/bracketforge/tourney-server/repositories"
)

// fakeHub records broadcast messages for assertion.
type fakeHub struct {
	messages []realtime.Message
}

func (f *fakeHub) BroadcastToRoom(roomID string, message interface{}) {
	if msg, ok := message.(realtime.Message); ok {
		f.messages = append(f.messages, msg)
	}
}

func (f *fakeHub) sent(eventType string) bool {
	for _, msg := range f.messages {
		if msg.Type == eventType {
			return true
		}
	}
	return false
}

// fakeFixtureRepo is an in-memory FixtureRepository for service tests.
type fakeFixtureRepo struct {
	fixtures map[int]*models.Fixture
	nextID   int
}

func newFakeFixtureRepo() *fakeFixtureRepo {
	return &fakeFixtureRepo{fixtures: map[int]*models.Fixture{}, nextID: 1}
}

func (f *fakeFixtureRepo) add(fx *models.Fixture) *models.Fixture {
	if fx.ID == 0 {
		fx.ID = f.nextID
		f.nextID++
	}
	f.fixtures[fx.ID] = cloneFixture(fx)
	return fx
}

func cloneFixture(fx *models.Fixture) *models.Fixture {
	c := *fx
	c.Sets = append([]models.SetScore(nil), fx.Sets...)
	return &c
}

func (f *fakeFixtureRepo) Create(ctx context.Context, exec repositories.SQLExecutor, fixture *models.Fixture) error {
	f.add(fixture)
	return nil
}

func (f *fakeFixtureRepo) GetByID(ctx context.Context, id int) (*models.Fixture, error) {
	fx, ok := f.fixtures[id]
	if !ok {
		return nil, repositories.ErrFixtureNotFound
	}
	return cloneFixture(fx), nil
}

func (f *fakeFixtureRepo) List(ctx context.Context, tournamentID int, eventID *int, phase *models.Phase) ([]*models.Fixture, error) {
	var out []*models.Fixture
	for _, fx := range f.fixtures {
		if fx.TournamentID != tournamentID {
			continue
		}
		if eventID != nil && fx.EventID != *eventID {
			continue
		}
		if phase != nil && fx.Phase != *phase {
			continue
		}
		out = append(out, cloneFixture(fx))
	}
	return out, nil
}

func (f *fakeFixtureRepo) FindBySlot(ctx context.Context, tournamentID, eventID int, phase models.Phase, round, matchIndex int) (*models.Fixture, error) {
	for _, fx := range f.fixtures {
		if fx.TournamentID == tournamentID && fx.EventID == eventID &&
			fx.Phase == phase && fx.Round == round && fx.MatchIndex == matchIndex {
			return cloneFixture(fx), nil
		}
	}
	return nil, repositories.ErrFixtureNotFound
}

func (f *fakeFixtureRepo) Update(ctx context.Context, exec repositories.SQLExecutor, fixture *models.Fixture) error {
	if _, ok := f.fixtures[fixture.ID]; !ok {
		return repositories.ErrFixtureNotFound
	}
	f.fixtures[fixture.ID] = cloneFixture(fixture)
	return nil
}

func (f *fakeFixtureRepo) UpdateTeams(ctx context.Context, exec repositories.SQLExecutor, id int, teamA, teamB *models.ParticipantRef) error {
	fx, ok := f.fixtures[id]
	if !ok {
		return repositories.ErrFixtureNotFound
	}
	fx.TeamA = teamA
	fx.TeamB = teamB
	return nil
}

func (f *fakeFixtureRepo) DeleteByEventPhase(ctx context.Context, exec repositories.SQLExecutor, tournamentID, eventID int, phase *models.Phase) (int64, error) {
	var removed int64
	for id, fx := range f.fixtures {
		if fx.TournamentID == tournamentID && fx.EventID == eventID &&
			(phase == nil || fx.Phase == *phase) {
			delete(f.fixtures, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeFixtureRepo) DeleteKnockoutFromRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, eventID, fromRound int) (int64, error) {
	var removed int64
	for id, fx := range f.fixtures {
		if fx.TournamentID == tournamentID && fx.EventID == eventID &&
			fx.Phase == models.PhaseKnockout && fx.Round >= fromRound {
			delete(f.fixtures, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeFixtureRepo) DeleteByParticipant(ctx context.Context, ref models.ParticipantRef) (int64, error) {
	var removed int64
	for id, fx := range f.fixtures {
		if fx.EntryKind == ref.Kind &&
			((fx.TeamA != nil && fx.TeamA.ID == ref.ID) || (fx.TeamB != nil && fx.TeamB.ID == ref.ID)) {
			delete(f.fixtures, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeFixtureRepo) LastRound(ctx context.Context, tournamentID, eventID int, phase models.Phase) (*int, error) {
	var last *int
	for _, fx := range f.fixtures {
		if fx.TournamentID == tournamentID && fx.EventID == eventID && fx.Phase == phase {
			if last == nil || fx.Round > *last {
				r := fx.Round
				last = &r
			}
		}
	}
	return last, nil
}

func soloRef(id int) *models.ParticipantRef {
	return &models.ParticipantRef{Kind: models.ParticipantSolo, ID: id}
}

func setFixture(round, matchIndex int, teamA, teamB *models.ParticipantRef) *models.Fixture {
	return &models.Fixture{
		TournamentID:  1,
		EventID:       1,
		Phase:         models.PhaseKnockout,
		Round:         round,
		MatchIndex:    matchIndex,
		EntryKind:     models.ParticipantSolo,
		TeamA:         teamA,
		TeamB:         teamB,
		Status:        models.StatusScheduled,
		Sets:          []models.SetScore{},
		MaxSets:       3,
		CurrentSet:    1,
		PointsToWin:   21,
		IsDeuce:       true,
		DecidingPoint: 30,
		CourtNumber:   1,
	}
}

var testActor = models.ActorContext{OrganizerID: 7}

func TestApplyPointSetCompletionRules(t *testing.T) {
	tests := []struct {
		name          string
		startA, startB int
		side          models.SetSide
		wantCompleted bool
		wantWinner    models.SetSide
	}{
		{"below target", 15, 10, models.SideTeamA, false, ""},
		{"21-19 deuce extends the set", 20, 19, models.SideTeamA, false, ""},
		{"22-20 wins after deuce", 21, 20, models.SideTeamA, true, models.SideTeamA},
		{"21-15 clean win at target", 20, 15, models.SideTeamA, true, models.SideTeamA},
		{"30-29 deciding point wins outright", 29, 29, models.SideTeamA, true, models.SideTeamA},
		{"teamB side symmetric", 15, 20, models.SideTeamB, true, models.SideTeamB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeFixtureRepo()
			fx := setFixture(0, 0, soloRef(1), soloRef(2))
			fx.Sets = []models.SetScore{{SetNumber: 1, TeamAScore: tt.startA, TeamBScore: tt.startB}}
			repo.add(fx)

			svc := NewMatchService(nil, repo, nil)
			result, err := svc.ApplyPoint(context.Background(), testActor, fx.ID, tt.side, 1)
			if err != nil {
				t.Fatalf("ApplyPoint: %v", err)
			}

			set := result.Fixture.Sets[0]
			if set.Completed != tt.wantCompleted {
				t.Fatalf("set completed = %v, want %v (score %d-%d)",
					set.Completed, tt.wantCompleted, set.TeamAScore, set.TeamBScore)
			}
			if tt.wantCompleted {
				if set.Winner == nil || *set.Winner != tt.wantWinner {
					t.Errorf("set winner = %v, want %s", set.Winner, tt.wantWinner)
				}
				if result.Fixture.CurrentSet != 2 {
					t.Errorf("currentSet = %d, want 2 after set completion", result.Fixture.CurrentSet)
				}
			}
		})
	}
}

func TestApplyPointCompletesMatch(t *testing.T) {
	repo := newFakeFixtureRepo()
	winA := models.SideTeamA
	fx := setFixture(0, 0, soloRef(1), soloRef(2))
	fx.Status = models.StatusOngoing
	fx.CurrentSet = 2
	fx.Sets = []models.SetScore{
		{SetNumber: 1, TeamAScore: 21, TeamBScore: 15, Completed: true, Winner: &winA},
		{SetNumber: 2, TeamAScore: 20, TeamBScore: 15},
	}
	repo.add(fx)

	svc := NewMatchService(nil, repo, nil)
	result, err := svc.ApplyPoint(context.Background(), testActor, fx.ID, models.SideTeamA, 1)
	if err != nil {
		t.Fatalf("ApplyPoint: %v", err)
	}

	if result.Fixture.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed at 2 set wins of maxSets 3", result.Fixture.Status)
	}
	if result.Fixture.Winner == nil || !result.Fixture.Winner.Equal(soloRef(1)) {
		t.Errorf("match winner = %v, want participant 1", result.Fixture.Winner)
	}
}

func TestApplyPointMidMatchStaysOngoing(t *testing.T) {
	// maxSets=3: one set each, third in progress.
	repo := newFakeFixtureRepo()
	winA, winB := models.SideTeamA, models.SideTeamB
	fx := setFixture(0, 0, soloRef(1), soloRef(2))
	fx.Status = models.StatusOngoing
	fx.CurrentSet = 3
	fx.Sets = []models.SetScore{
		{SetNumber: 1, TeamAScore: 21, TeamBScore: 15, Completed: true, Winner: &winA},
		{SetNumber: 2, TeamAScore: 18, TeamBScore: 21, Completed: true, Winner: &winB},
		{SetNumber: 3, TeamAScore: 9, TeamBScore: 8},
	}
	repo.add(fx)

	svc := NewMatchService(nil, repo, nil)
	result, err := svc.ApplyPoint(context.Background(), testActor, fx.ID, models.SideTeamA, 1)
	if err != nil {
		t.Fatalf("ApplyPoint: %v", err)
	}

	if result.Fixture.Status != models.StatusOngoing {
		t.Errorf("status = %s, want ongoing at one set apiece", result.Fixture.Status)
	}
	if result.Fixture.Winner != nil {
		t.Errorf("winner = %v, want none", result.Fixture.Winner)
	}
	if got := result.Fixture.Sets[2].TeamAScore; got != 10 {
		t.Errorf("third set teamA score = %d, want 10", got)
	}
}

func TestApplyPointValidation(t *testing.T) {
	repo := newFakeFixtureRepo()
	fx := repo.add(setFixture(0, 0, soloRef(1), soloRef(2)))
	completed := repo.add(func() *models.Fixture {
		f := setFixture(0, 1, soloRef(3), soloRef(4))
		f.Status = models.StatusCompleted
		return f
	}())
	cancelled := repo.add(func() *models.Fixture {
		f := setFixture(0, 2, soloRef(5), soloRef(6))
		f.Status = models.StatusCancelled
		return f
	}())
	unassigned := repo.add(setFixture(1, 0, nil, nil))

	svc := NewMatchService(nil, repo, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		fixtureID int
		side      models.SetSide
		delta     int
		wantErr   error
	}{
		{"invalid side", fx.ID, "left", 1, ErrInvalidSide},
		{"delta too large", fx.ID, models.SideTeamA, 2, ErrInvalidPointDelta},
		{"zero delta", fx.ID, models.SideTeamA, 0, ErrInvalidPointDelta},
		{"completed fixture", completed.ID, models.SideTeamA, 1, ErrFixtureCompleted},
		{"cancelled fixture", cancelled.ID, models.SideTeamA, 1, ErrFixtureCancelled},
		{"unassigned sides", unassigned.ID, models.SideTeamA, 1, ErrFixtureSidesUnassigned},
		{"missing fixture", 999, models.SideTeamA, 1, ErrFixtureNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ApplyPoint(ctx, testActor, tt.fixtureID, tt.side, tt.delta); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyPointClampsAtZero(t *testing.T) {
	repo := newFakeFixtureRepo()
	fx := repo.add(setFixture(0, 0, soloRef(1), soloRef(2)))

	svc := NewMatchService(nil, repo, nil)
	result, err := svc.ApplyPoint(context.Background(), testActor, fx.ID, models.SideTeamA, -1)
	if err != nil {
		t.Fatalf("ApplyPoint: %v", err)
	}
	if got := result.Fixture.Sets[0].TeamAScore; got != 0 {
		t.Errorf("score = %d, want clamp at 0", got)
	}
}

func TestUpdateCompletedFixtureRequiresReset(t *testing.T) {
	repo := newFakeFixtureRepo()
	fx := setFixture(0, 0, soloRef(1), soloRef(2))
	fx.Status = models.StatusCompleted
	fx.Winner = soloRef(1)
	repo.add(fx)

	svc := NewMatchService(nil, repo, nil)
	ctx := context.Background()

	score := 21
	if _, err := svc.Update(ctx, testActor, fx.ID, UpdateFixtureInput{ScoreA: &score}); !errors.Is(err, ErrFixtureCompleted) {
		t.Errorf("score update on completed fixture: got %v, want ErrFixtureCompleted", err)
	}

	// Metadata edits stay allowed.
	notes := "court changed"
	court := 4
	result, err := svc.Update(ctx, testActor, fx.ID, UpdateFixtureInput{Notes: &notes, CourtNumber: &court})
	if err != nil {
		t.Fatalf("metadata update on completed fixture: %v", err)
	}
	if result.Fixture.Notes == nil || *result.Fixture.Notes != notes {
		t.Errorf("notes not applied")
	}
	if result.Fixture.CourtNumber != 4 {
		t.Errorf("court number = %d, want 4", result.Fixture.CourtNumber)
	}
}

func TestUpdateRecomputesSetWinners(t *testing.T) {
	repo := newFakeFixtureRepo()
	fx := repo.add(setFixture(0, 0, soloRef(1), soloRef(2)))
	svc := NewMatchService(nil, repo, nil)

	// Client-claimed winners are ignored; the scores decide.
	bogus := models.SideTeamB
	result, err := svc.Update(context.Background(), testActor, fx.ID, UpdateFixtureInput{
		Sets: []models.SetScore{
			{TeamAScore: 21, TeamBScore: 15, Completed: true, Winner: &bogus},
			{TeamAScore: 18, TeamBScore: 21},
			{TeamAScore: 10, TeamBScore: 8},
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	sets := result.Fixture.Sets
	if sets[0].Winner == nil || *sets[0].Winner != models.SideTeamA {
		t.Errorf("set 1 winner = %v, want teamA from 21-15", sets[0].Winner)
	}
	if sets[1].Winner == nil || *sets[1].Winner != models.SideTeamB {
		t.Errorf("set 2 winner = %v, want teamB from 18-21", sets[1].Winner)
	}
	if sets[2].Completed {
		t.Errorf("set 3 at 10-8 must stay open")
	}
	if result.Fixture.Status != models.StatusOngoing || result.Fixture.Winner != nil {
		t.Errorf("one set apiece must leave the match ongoing with no winner, got %s / %v",
			result.Fixture.Status, result.Fixture.Winner)
	}
}

func TestUpdateSetsCompleteMatch(t *testing.T) {
	repo := newFakeFixtureRepo()
	fx := repo.add(setFixture(0, 0, soloRef(1), soloRef(2)))
	svc := NewMatchService(nil, repo, nil)

	result, err := svc.Update(context.Background(), testActor, fx.ID, UpdateFixtureInput{
		Sets: []models.SetScore{
			{TeamAScore: 21, TeamBScore: 15},
			{TeamAScore: 21, TeamBScore: 18},
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.Fixture.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", result.Fixture.Status)
	}
	if result.Fixture.Winner == nil || !result.Fixture.Winner.Equal(soloRef(1)) {
		t.Errorf("winner = %v, want participant 1", result.Fixture.Winner)
	}
}

func TestUpdateAggregateScores(t *testing.T) {
	repo := newFakeFixtureRepo()
	svc := NewMatchService(nil, repo, nil)
	ctx := context.Background()

	rrFixture := func(matchIndex int) *models.Fixture {
		f := setFixture(0, matchIndex, soloRef(1), soloRef(2))
		f.Phase = models.PhaseRoundRobin
		return f
	}

	t.Run("higher score derives winner", func(t *testing.T) {
		fx := repo.add(rrFixture(0))
		a, b := 21, 15
		result, err := svc.Update(ctx, testActor, fx.ID, UpdateFixtureInput{ScoreA: &a, ScoreB: &b})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if result.Fixture.Status != models.StatusCompleted {
			t.Errorf("status = %s, want completed with both scores in", result.Fixture.Status)
		}
		if result.Fixture.Winner == nil || !result.Fixture.Winner.Equal(soloRef(1)) {
			t.Errorf("winner = %v, want participant 1", result.Fixture.Winner)
		}
	})

	t.Run("equal scores are a draw", func(t *testing.T) {
		fx := repo.add(rrFixture(1))
		a, b := 18, 18
		result, err := svc.Update(ctx, testActor, fx.ID, UpdateFixtureInput{ScoreA: &a, ScoreB: &b})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if result.Fixture.Status != models.StatusCompleted {
			t.Errorf("status = %s, want completed", result.Fixture.Status)
		}
		if result.Fixture.Winner != nil {
			t.Errorf("winner = %v, want none for a draw", result.Fixture.Winner)
		}
	})

	t.Run("one score keeps fixture ongoing", func(t *testing.T) {
		fx := repo.add(rrFixture(2))
		a := 12
		result, err := svc.Update(ctx, testActor, fx.ID, UpdateFixtureInput{ScoreA: &a})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if result.Fixture.Status != models.StatusOngoing {
			t.Errorf("status = %s, want ongoing with one score", result.Fixture.Status)
		}
	})
}

func TestUpdateExplicitWinnerMustBeInFixture(t *testing.T) {
	repo := newFakeFixtureRepo()
	fx := repo.add(setFixture(0, 0, soloRef(1), soloRef(2)))
	svc := NewMatchService(nil, repo, nil)

	outsider := 99
	if _, err := svc.Update(context.Background(), testActor, fx.ID, UpdateFixtureInput{WinnerID: &outsider}); !errors.Is(err, ErrWinnerNotInFixture) {
		t.Errorf("got %v, want ErrWinnerNotInFixture", err)
	}
}

func TestUpdateRejectsInconsistentSetScores(t *testing.T) {
	repo := newFakeFixtureRepo()
	fx := repo.add(setFixture(0, 0, soloRef(1), soloRef(2)))
	svc := NewMatchService(nil, repo, nil)

	// Both sides at the deciding point cannot come from single-point
	// increments.
	_, err := svc.Update(context.Background(), testActor, fx.ID, UpdateFixtureInput{
		Sets: []models.SetScore{{TeamAScore: 30, TeamBScore: 30}},
	})
	if !errors.Is(err, ErrScoreConflict) {
		t.Errorf("got %v, want ErrScoreConflict", err)
	}
}

func TestWinnerPropagatesToNextRound(t *testing.T) {
	repo := newFakeFixtureRepo()
	left := repo.add(setFixture(0, 0, soloRef(1), soloRef(2)))
	right := repo.add(setFixture(0, 1, soloRef(3), soloRef(4)))
	final := repo.add(setFixture(1, 0, nil, nil))

	svc := NewMatchService(nil, repo, nil)
	ctx := context.Background()

	winnerID := 1
	if _, err := svc.Update(ctx, testActor, left.ID, UpdateFixtureInput{WinnerID: &winnerID}); err != nil {
		t.Fatalf("Update left: %v", err)
	}
	winnerID = 4
	if _, err := svc.Update(ctx, testActor, right.ID, UpdateFixtureInput{WinnerID: &winnerID}); err != nil {
		t.Fatalf("Update right: %v", err)
	}

	got, _ := repo.GetByID(ctx, final.ID)
	// Even match index feeds teamA, odd feeds teamB.
	if got.TeamA == nil || !got.TeamA.Equal(soloRef(1)) {
		t.Errorf("final teamA = %v, want participant 1", got.TeamA)
	}
	if got.TeamB == nil || !got.TeamB.Equal(soloRef(4)) {
		t.Errorf("final teamB = %v, want participant 4", got.TeamB)
	}
}

func TestWinnerPropagationIsIdempotent(t *testing.T) {
	repo := newFakeFixtureRepo()
	opener := repo.add(setFixture(0, 0, soloRef(1), soloRef(2)))
	final := repo.add(setFixture(1, 0, nil, nil))

	svc := NewMatchService(nil, repo, nil)
	ctx := context.Background()

	winnerID := 1
	if _, err := svc.Update(ctx, testActor, opener.ID, UpdateFixtureInput{WinnerID: &winnerID}); err != nil {
		t.Fatalf("first update: %v", err)
	}
	// Reset and re-complete with the same winner: the final must end up
	// identical.
	if _, err := svc.Reset(ctx, testActor, opener.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := svc.Update(ctx, testActor, opener.ID, UpdateFixtureInput{WinnerID: &winnerID}); err != nil {
		t.Fatalf("second update: %v", err)
	}

	got, _ := repo.GetByID(ctx, final.ID)
	if got.TeamA == nil || !got.TeamA.Equal(soloRef(1)) {
		t.Errorf("final teamA = %v, want participant 1", got.TeamA)
	}
}

func TestResetWithdrawsPropagatedWinner(t *testing.T) {
	repo := newFakeFixtureRepo()
	opener := repo.add(setFixture(0, 0, soloRef(1), soloRef(2)))
	final := repo.add(setFixture(1, 0, nil, nil))

	svc := NewMatchService(nil, repo, nil)
	ctx := context.Background()

	winnerID := 2
	if _, err := svc.Update(ctx, testActor, opener.ID, UpdateFixtureInput{WinnerID: &winnerID}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	result, err := svc.Reset(ctx, testActor, opener.ID)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}

	fx := result.Fixture
	if fx.Status != models.StatusScheduled || fx.Winner != nil || len(fx.Sets) != 0 ||
		fx.ScoreA != nil || fx.ScoreB != nil || fx.CurrentSet != 1 {
		t.Errorf("reset left residual state: %+v", fx)
	}

	got, _ := repo.GetByID(ctx, final.ID)
	if got.TeamA != nil {
		t.Errorf("final teamA = %v, want cleared after reset", got.TeamA)
	}
}

func TestWinnerCorrectionClearsDescendants(t *testing.T) {
	repo := newFakeFixtureRepo()
	opener := repo.add(setFixture(0, 0, soloRef(1), soloRef(2)))
	repo.add(setFixture(0, 1, soloRef(3), soloRef(4)))

	// Participant 1 already advanced to the semi and won it too.
	semi := setFixture(1, 0, soloRef(1), soloRef(3))
	semi.Status = models.StatusCompleted
	semi.Winner = soloRef(1)
	repo.add(semi)

	final := setFixture(2, 0, soloRef(1), nil)
	repo.add(final)

	// The opener's recorded winner turns out to be wrong: participant 2
	// actually won.
	opener.Winner = soloRef(1)
	opener.Status = models.StatusOngoing
	repo.fixtures[opener.ID] = opener

	svc := NewMatchService(nil, repo, nil)
	ctx := context.Background()

	winnerID := 2
	if _, err := svc.Update(ctx, testActor, opener.ID, UpdateFixtureInput{WinnerID: &winnerID}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	gotSemi, _ := repo.GetByID(ctx, semi.ID)
	if gotSemi.TeamA == nil || !gotSemi.TeamA.Equal(soloRef(2)) {
		t.Errorf("semi teamA = %v, want corrected to participant 2", gotSemi.TeamA)
	}
	if gotSemi.Winner != nil || gotSemi.Status != models.StatusScheduled {
		t.Errorf("semi result must be voided, got winner %v status %s", gotSemi.Winner, gotSemi.Status)
	}
	if gotSemi.TeamB == nil || !gotSemi.TeamB.Equal(soloRef(3)) {
		t.Errorf("semi teamB = %v, the untouched side must survive", gotSemi.TeamB)
	}

	gotFinal, _ := repo.GetByID(ctx, final.ID)
	if gotFinal.TeamA != nil {
		t.Errorf("final teamA = %v, want stale participant cleared recursively", gotFinal.TeamA)
	}
}

// A correction must also withdraw the voided match's own winner from later
// rounds, even when that winner was the other side of the voided match.
func TestWinnerCorrectionWithdrawsVoidedMatchWinner(t *testing.T) {
	repo := newFakeFixtureRepo()
	opener := repo.add(setFixture(0, 0, soloRef(1), soloRef(2)))
	repo.add(setFixture(0, 1, soloRef(3), soloRef(4)))

	// Participant 1 advanced to the semi, lost it to participant 3, and 3
	// already sits in the final.
	semi := setFixture(1, 0, soloRef(1), soloRef(3))
	semi.Status = models.StatusCompleted
	semi.Winner = soloRef(3)
	repo.add(semi)

	final := setFixture(2, 0, soloRef(3), nil)
	repo.add(final)

	opener.Winner = soloRef(1)
	opener.Status = models.StatusOngoing
	repo.fixtures[opener.ID] = opener

	svc := NewMatchService(nil, repo, nil)
	ctx := context.Background()

	winnerID := 2
	if _, err := svc.Update(ctx, testActor, opener.ID, UpdateFixtureInput{WinnerID: &winnerID}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	gotSemi, _ := repo.GetByID(ctx, semi.ID)
	if gotSemi.TeamA == nil || !gotSemi.TeamA.Equal(soloRef(2)) {
		t.Errorf("semi teamA = %v, want corrected to participant 2", gotSemi.TeamA)
	}
	if gotSemi.TeamB == nil || !gotSemi.TeamB.Equal(soloRef(3)) {
		t.Errorf("semi teamB = %v, the untouched side must survive", gotSemi.TeamB)
	}
	if gotSemi.Winner != nil || gotSemi.Status != models.StatusScheduled {
		t.Errorf("semi result must be voided, got winner %v status %s", gotSemi.Winner, gotSemi.Status)
	}

	// Participant 3's win was voided with the semi, so its final slot is no
	// longer earned.
	gotFinal, _ := repo.GetByID(ctx, final.ID)
	if gotFinal.TeamA != nil {
		t.Errorf("final teamA = %v, want stale qualifier cleared after the semi was voided", gotFinal.TeamA)
	}
	if gotFinal.Winner != nil || gotFinal.Status != models.StatusScheduled {
		t.Errorf("final must hold no result, got winner %v status %s", gotFinal.Winner, gotFinal.Status)
	}
}

func TestRoundRobinUpdateBroadcastsStandings(t *testing.T) {
	repo := newFakeFixtureRepo()
	hub := &fakeHub{}

	rr := setFixture(0, 0, soloRef(1), soloRef(2))
	rr.Phase = models.PhaseRoundRobin
	repo.add(rr)
	ko := repo.add(setFixture(1, 0, soloRef(3), soloRef(4)))

	svc := NewMatchService(nil, repo, hub)
	ctx := context.Background()

	a, b := 21, 15
	if _, err := svc.Update(ctx, testActor, rr.ID, UpdateFixtureInput{ScoreA: &a, ScoreB: &b}); err != nil {
		t.Fatalf("Update rr fixture: %v", err)
	}
	if !hub.sent(realtime.EventFixtureUpdated) {
		t.Errorf("fixture update not broadcast")
	}
	if !hub.sent(realtime.EventStandingsUpdated) {
		t.Errorf("group-phase result must trigger a standings broadcast")
	}

	hub.messages = nil
	winnerID := 3
	if _, err := svc.Update(ctx, testActor, ko.ID, UpdateFixtureInput{WinnerID: &winnerID}); err != nil {
		t.Fatalf("Update ko fixture: %v", err)
	}
	if hub.sent(realtime.EventStandingsUpdated) {
		t.Errorf("knockout result must not trigger a standings broadcast")
	}
}

func TestPropagationOnFinalIsNoOp(t *testing.T) {
	repo := newFakeFixtureRepo()
	final := repo.add(setFixture(0, 0, soloRef(1), soloRef(2)))

	svc := NewMatchService(nil, repo, nil)

	winnerID := 1
	result, err := svc.Update(context.Background(), testActor, final.ID, UpdateFixtureInput{WinnerID: &winnerID})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.Message != "fixture updated" {
		t.Errorf("message = %q, propagation past the final must not report a failure", result.Message)
	}
}
