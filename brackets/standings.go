package brackets

import (
	"sort"

	"github.com/bracketforge/tourney-server/models"
)

const (
	pointsForWin  = 3
	pointsForDraw = 1
)

// ComputeStandings derives a ranked table from round-robin fixtures. Only
// fixtures with both aggregate scores entered count, so a half-played pool
// yields a partial but valid table. Rows sort by points, then score
// difference; true ties keep first-appearance order so repeated calls over
// the same fixtures return identical output.
func ComputeStandings(fixtures []*models.Fixture) []models.StandingsRow {
	index := make(map[models.ParticipantRef]int)
	rows := make([]models.StandingsRow, 0)

	rowFor := func(ref models.ParticipantRef) int {
		if i, ok := index[ref]; ok {
			return i
		}
		index[ref] = len(rows)
		rows = append(rows, models.StandingsRow{Team: ref})
		return len(rows) - 1
	}

	for _, fx := range fixtures {
		if !fx.HasBothScores() || fx.TeamA == nil || fx.TeamB == nil {
			continue
		}

		// Resolve both indices before taking pointers: the second rowFor
		// call can grow the slice.
		ai := rowFor(*fx.TeamA)
		bi := rowFor(*fx.TeamB)
		a, b := &rows[ai], &rows[bi]
		sA, sB := *fx.ScoreA, *fx.ScoreB

		a.Played++
		b.Played++
		a.ScoreFor += sA
		a.ScoreAgainst += sB
		b.ScoreFor += sB
		b.ScoreAgainst += sA

		switch {
		case sA == sB:
			a.Drawn++
			b.Drawn++
			a.Points += pointsForDraw
			b.Points += pointsForDraw
		case sA > sB:
			a.Won++
			b.Lost++
			a.Points += pointsForWin
		default:
			b.Won++
			a.Lost++
			b.Points += pointsForWin
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].ScoreDifference() > rows[j].ScoreDifference()
	})

	return rows
}
