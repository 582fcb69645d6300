package models

import (
	"fmt"
	"time"
)

// ParticipantKind discriminates the two entry shapes an event can take:
// solo entries (one named individual) and group entries (a named team with
// one or more members).
type ParticipantKind string

const (
	ParticipantSolo  ParticipantKind = "solo"
	ParticipantGroup ParticipantKind = "group"
)

// ParticipantRef is a sum-typed reference to an entry in either the solo or
// the group table. Fixture slots, winners and cascade deletes all go through
// this reference instead of probing collections by shape.
type ParticipantRef struct {
	Kind ParticipantKind `json:"kind" db:"kind"`
	ID   int             `json:"id" db:"id"`
}

func (r ParticipantRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

func (r ParticipantRef) Equal(other *ParticipantRef) bool {
	return other != nil && r.Kind == other.Kind && r.ID == other.ID
}

// Member is one player inside a group entry.
type Member struct {
	Name  string  `json:"name" db:"name"`
	Email *string `json:"email,omitempty" db:"email"`
}

// Participant is an entity occupying a bracket slot, resolved per event.
// Solo entries carry Name; group entries carry TeamName plus Members.
type Participant struct {
	ID           int             `json:"id" db:"id"`
	Kind         ParticipantKind `json:"kind" db:"-"`
	TournamentID int             `json:"tournament_id" db:"tournament_id"`
	EventID      int             `json:"event_id" db:"event_id"`
	Name         string          `json:"name" db:"name"`
	TeamName     *string         `json:"team_name,omitempty" db:"team_name"`
	Members      []Member        `json:"members,omitempty" db:"-"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

func (p *Participant) Ref() ParticipantRef {
	return ParticipantRef{Kind: p.Kind, ID: p.ID}
}

// DisplayName returns the label shown in brackets. Two-member groups are
// rendered as a pair ("Anna & Maria"), matching how doubles entries are
// presented everywhere else in the product.
func (p *Participant) DisplayName() string {
	if p == nil {
		return "Unknown Participant"
	}
	if p.Kind == ParticipantGroup {
		if len(p.Members) >= 2 && p.Members[0].Name != "" && p.Members[1].Name != "" {
			return p.Members[0].Name + " & " + p.Members[1].Name
		}
		if p.TeamName != nil && *p.TeamName != "" {
			return *p.TeamName
		}
	}
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("Participant (ID: %d)", p.ID)
}
