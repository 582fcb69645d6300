package brackets

import (
	"math/rand"

	"github.com/bracketforge/tourney-server/models"
)

// SnakeSeed orders a ranked qualifier list so bracket strength balances out:
// rank 1, rank Q, rank 2, rank Q-1, ... With adjacent pairing this sends the
// top seed against the bottom seed in round one.
func SnakeSeed(ranked []*models.ParticipantRef) []*models.ParticipantRef {
	seeded := make([]*models.ParticipantRef, 0, len(ranked))
	l, r := 0, len(ranked)-1
	for l <= r {
		seeded = append(seeded, ranked[l])
		if l != r {
			seeded = append(seeded, ranked[r])
		}
		l++
		r--
	}
	return seeded
}

// Shuffle returns a randomly drawn copy of the entries. A non-zero seed
// makes the draw reproducible; zero draws from the global source.
func Shuffle(entries []*models.ParticipantRef, seed int64) []*models.ParticipantRef {
	shuffled := make([]*models.ParticipantRef, len(entries))
	copy(shuffled, entries)

	swap := func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] }
	if seed != 0 {
		rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), swap)
	} else {
		rand.Shuffle(len(shuffled), swap)
	}
	return shuffled
}
