package brackets

import (
	"github.com/bracketforge/tourney-server/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() string {
	return "RoundRobin"
}

// Build schedules a single round-robin with the circle method. An odd field
// gets a nil placeholder so the array length is even; each round pairs
// arr[i] with arr[len-1-i], pairs touching the placeholder are skipped, and
// the array rotates between rounds with index 0 held fixed. N participants
// always yield N*(N-1)/2 fixtures across len-1 rounds.
func (g *RoundRobinGenerator) Build(params BuildParams) ([]Slot, error) {
	entries := params.Entries
	n := len(entries)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}

	arr := make([]*models.ParticipantRef, n)
	copy(arr, entries)
	if len(arr)%2 == 1 {
		arr = append(arr, nil)
	}

	totalRounds := len(arr) - 1
	matchesPerRound := len(arr) / 2

	slots := make([]Slot, 0, n*(n-1)/2)

	for round := 0; round < totalRounds; round++ {
		for i := 0; i < matchesPerRound; i++ {
			teamA := arr[i]
			teamB := arr[len(arr)-1-i]
			if teamA == nil || teamB == nil {
				continue // placeholder pair, one side sits this round out
			}

			slots = append(slots, Slot{
				Phase:      models.PhaseRoundRobin,
				Round:      params.StartRound + round,
				MatchIndex: i,
				TeamA:      teamA,
				TeamB:      teamB,
				Status:     models.StatusScheduled,
			})
		}

		// Rotate: keep arr[0] fixed, move the last element to index 1.
		last := arr[len(arr)-1]
		copy(arr[2:], arr[1:len(arr)-1])
		arr[1] = last
	}

	return slots, nil
}
