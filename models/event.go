package models

import "time"

// MatchType is the competition format of an event.
type MatchType string

const (
	MatchTypeKnockout           MatchType = "knockout"
	MatchTypeRoundRobin         MatchType = "round-robin"
	MatchTypeRoundRobinKnockout MatchType = "round-robin-knockout"
)

// IsHybrid reports whether the event runs a round-robin pool followed by a
// knockout phase.
func (m MatchType) IsHybrid() bool {
	return m == MatchTypeRoundRobinKnockout
}

// Event is one competition inside a tournament (e.g. "Men's Singles").
// EntryKind declares which participant shape the event takes.
type Event struct {
	ID           int             `json:"id" db:"id"`
	TournamentID int             `json:"tournament_id" db:"tournament_id"`
	Name         string          `json:"name" db:"name"`
	EntryKind    ParticipantKind `json:"entry_kind" db:"entry_kind"`
	MatchType    MatchType       `json:"match_type" db:"match_type"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
