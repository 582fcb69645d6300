package brackets

import (
	"errors"
	"fmt"
	"math"

	"github.com/bracketforge/tourney-server/models"
)

var ErrNotEnoughParticipants = errors.New("not enough participants to generate fixtures (minimum 2)")

// Slot is one fixture-creation record. Builders emit slots only; persistence
// is the caller's concern.
type Slot struct {
	Phase      models.Phase
	Round      int
	MatchIndex int

	TeamA *models.ParticipantRef
	TeamB *models.ParticipantRef

	// Winner and Status are pre-filled only for byes, which resolve at
	// generation time without any scoring action.
	Winner *models.ParticipantRef
	Status models.MatchStatus
}

type BuildParams struct {
	Entries []*models.ParticipantRef

	// StartRound offsets round numbering, used by the knockout phase of
	// hybrid events so rounds continue after the last round-robin matchday.
	StartRound int
}

type Generator interface {
	Build(params BuildParams) ([]Slot, error)

	Name() string
}

// KnockoutRoundName maps a phase-relative round index to its display label.
// Labels count backwards from the final.
func KnockoutRoundName(round, totalRounds int) string {
	switch totalRounds - 1 - round {
	case 0:
		return "Final"
	case 1:
		return "Semi-Final"
	case 2:
		return "Quarter-Final"
	case 3:
		return "Round of 16"
	default:
		return fmt.Sprintf("Round %d", round+1)
	}
}

func RoundRobinRoundName(round int) string {
	return fmt.Sprintf("Matchday %d", round+1)
}

// nextPowerOfTwo returns the smallest power of two >= n, the bracket size a
// field of n participants is padded to.
func nextPowerOfTwo(n int) int {
	if n < 1 {
		return 1
	}
	return 1 << uint(math.Ceil(math.Log2(float64(n))))
}
