package models

import "time"

type MatchStatus string

const (
	StatusScheduled MatchStatus = "scheduled"
	StatusOngoing   MatchStatus = "ongoing"
	StatusCompleted MatchStatus = "completed"
	StatusCancelled MatchStatus = "cancelled"
)

// Phase partitions fixtures of a hybrid (round-robin into knockout) event.
type Phase string

const (
	PhaseRoundRobin Phase = "rr"
	PhaseKnockout   Phase = "ko"
)

// SetSide names a side of a fixture in set records and point updates.
type SetSide string

const (
	SideTeamA SetSide = "teamA"
	SideTeamB SetSide = "teamB"
)

// SetScore is one scoring unit inside a set-based match.
type SetScore struct {
	SetNumber  int      `json:"set_number"`
	TeamAScore int      `json:"team_a_score"`
	TeamBScore int      `json:"team_b_score"`
	Completed  bool     `json:"completed"`
	Winner     *SetSide `json:"winner"`
}

// Fixture is one scheduled match. The slot key is
// (tournament_id, event_id, phase, round, match_index) and is unique.
// RoundName is presentation only: it is recomputed from Round and the round
// count of the phase, never trusted from storage.
type Fixture struct {
	ID           int             `json:"id" db:"id"`
	TournamentID int             `json:"tournament_id" db:"tournament_id"`
	EventID      int             `json:"event_id" db:"event_id"`
	Phase        Phase           `json:"phase" db:"phase"`
	Round        int             `json:"round" db:"round"`
	MatchIndex   int             `json:"match_index" db:"match_index"`
	RoundName    string          `json:"round_name,omitempty" db:"-"`
	EntryKind    ParticipantKind `json:"entry_kind" db:"entry_kind"`

	TeamA *ParticipantRef `json:"team_a" db:"team_a_id"`
	TeamB *ParticipantRef `json:"team_b" db:"team_b_id"`

	Status MatchStatus `json:"status" db:"status"`

	Sets          []SetScore `json:"sets" db:"sets"`
	MaxSets       int        `json:"max_sets" db:"max_sets"`
	CurrentSet    int        `json:"current_set" db:"current_set"`
	PointsToWin   int        `json:"points_to_win" db:"points_to_win"`
	IsDeuce       bool       `json:"is_deuce" db:"is_deuce"`
	DecidingPoint int        `json:"deciding_point" db:"deciding_point"`
	CourtNumber   int        `json:"court_number" db:"court_number"`

	// Aggregate scores used by the round-robin (single score) format.
	ScoreA *int `json:"score_a,omitempty" db:"score_a"`
	ScoreB *int `json:"score_b,omitempty" db:"score_b"`

	Winner *ParticipantRef `json:"winner" db:"winner_id"`

	Notes       *string    `json:"notes,omitempty" db:"notes"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// SideRef returns the participant currently occupying the given side.
func (f *Fixture) SideRef(side SetSide) *ParticipantRef {
	if side == SideTeamA {
		return f.TeamA
	}
	return f.TeamB
}

// IsBye reports whether exactly one side of the fixture is filled. Byes only
// occur in knockout brackets padded to a power of two.
func (f *Fixture) IsBye() bool {
	return f.Phase == PhaseKnockout && (f.TeamA == nil) != (f.TeamB == nil)
}

// HasBothScores reports whether the aggregate result has been entered.
// Fixtures without both scores contribute nothing to standings.
func (f *Fixture) HasBothScores() bool {
	return f.ScoreA != nil && f.ScoreB != nil
}
