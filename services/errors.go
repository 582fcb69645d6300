package services

import "errors"

// Shared sentinel errors, mapped to HTTP statuses in the handlers package.
var (
	// Not-found
	ErrNotFound            = errors.New("requested resource not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrFixtureNotFound     = errors.New("fixture not found")
	ErrParticipantNotFound = errors.New("participant not found")

	// Validation and business rules
	ErrValidationFailed       = errors.New("validation failed")
	ErrNotEnoughParticipants  = errors.New("need at least 2 participants to generate fixtures")
	ErrNotEnoughQualifiers    = errors.New("need at least 2 qualified teams for the knockout stage")
	ErrUnsupportedMatchType   = errors.New("unsupported match type for this operation")
	ErrEventNotHybrid         = errors.New("event is not a round-robin plus knockout event")
	ErrNoRoundRobinFixtures   = errors.New("no round-robin fixtures found")
	ErrInvalidPointDelta      = errors.New("point delta must be +1 or -1")
	ErrInvalidSide            = errors.New("side must be teamA or teamB")
	ErrWinnerNotInFixture     = errors.New("winner must be one of the fixture's sides")
	ErrFixtureSidesUnassigned = errors.New("fixture sides are not assigned yet")

	// Integrity conflicts
	ErrFixtureCompleted = errors.New("fixture is completed; reset it before scoring again")
	ErrFixtureCancelled = errors.New("fixture is cancelled")
	ErrScoreConflict    = errors.New("both sides satisfy a winning condition; rejecting inconsistent score update")
	ErrSlotOccupied     = errors.New("fixture slot is already occupied")

	// Feature availability
	ErrExportDisabled = errors.New("snapshot export is not configured")
)
