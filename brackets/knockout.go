package brackets

import (
	"github.com/bracketforge/tourney-server/models"
)

type KnockoutGenerator struct{}

func NewKnockoutGenerator() Generator {
	return &KnockoutGenerator{}
}

func (g *KnockoutGenerator) Name() string {
	return "Knockout"
}

// Build produces a full single-elimination bracket. The field is padded to
// the next power of two with nil byes; round r holds size/2^(r+1) fixtures.
// Later-round slots stay nil until winner propagation fills them, except
// where a bye resolves at generation time: the bye fixture is emitted
// completed with the lone side as winner, and that side is written straight
// into its next-round slot.
func (g *KnockoutGenerator) Build(params BuildParams) ([]Slot, error) {
	entries := params.Entries
	n := len(entries)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}

	size := nextPowerOfTwo(n)

	// Lay the field out so every bye pairs a participant against nil.
	// The first 2n-size entries fill whole pairs; each remaining entry
	// takes a trailing pair alone. Appending all byes at the tail instead
	// would let two byes meet and leave a slot nobody can ever win.
	current := make([]*models.ParticipantRef, size)
	paired := 2*n - size
	copy(current, entries[:paired])
	for i, e := range entries[paired:] {
		current[paired+2*i] = e
	}

	slots := make([]Slot, 0, size-1)

	for round := 0; len(current) > 1; round++ {
		next := make([]*models.ParticipantRef, len(current)/2)

		for i := 0; i+1 < len(current); i += 2 {
			slot := Slot{
				Phase:      models.PhaseKnockout,
				Round:      params.StartRound + round,
				MatchIndex: i / 2,
				TeamA:      current[i],
				TeamB:      current[i+1],
				Status:     models.StatusScheduled,
			}

			if round == 0 {
				if bye := byeWinner(current[i], current[i+1]); bye != nil {
					slot.Winner = bye
					slot.Status = models.StatusCompleted
					next[i/2] = bye
				}
			}

			slots = append(slots, slot)
		}

		current = next
	}

	return slots, nil
}

// byeWinner returns the side that advances automatically, or nil when the
// pair is a real match.
func byeWinner(a, b *models.ParticipantRef) *models.ParticipantRef {
	if a != nil && b == nil {
		return a
	}
	if a == nil && b != nil {
		return b
	}
	return nil
}
