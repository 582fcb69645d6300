package models

// StandingsRow is one line of a round-robin table. Rows are derived from the
// current fixture set on every request and never persisted, so they cannot
// drift from fixture data.
type StandingsRow struct {
	Team         ParticipantRef `json:"team"`
	TeamName     string         `json:"team_name,omitempty"`
	Played       int            `json:"played"`
	Won          int            `json:"won"`
	Drawn        int            `json:"drawn"`
	Lost         int            `json:"lost"`
	ScoreFor     int            `json:"score_for"`
	ScoreAgainst int            `json:"score_against"`
	Points       int            `json:"points"`
}

func (r StandingsRow) ScoreDifference() int {
	return r.ScoreFor - r.ScoreAgainst
}
