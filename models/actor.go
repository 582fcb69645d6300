package models

// ActorContext identifies who is performing a mutating engine operation.
// It is always passed explicitly; the engine never reads identity from
// ambient state, so it stays usable without any session machinery.
type ActorContext struct {
	OrganizerID int `json:"organizer_id"`
}
