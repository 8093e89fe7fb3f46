package model

import "time"

// ChangeKind identifies the type of row change carried by the feed
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// Valid reports whether k is one of the known change kinds
func (k ChangeKind) Valid() bool {
	switch k {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
		return true
	}
	return false
}

// ChangeEvent is a single row change on the players table.
// New holds the full row for inserts and updates; Old holds the key for deletes.
type ChangeEvent struct {
	Kind            ChangeKind `json:"kind"`
	New             *Player    `json:"new,omitempty"`
	Old             *PlayerRef `json:"old,omitempty"`
	CommitTimestamp time.Time  `json:"commit_timestamp"`
}

// InsertEvent builds an INSERT event for p
func InsertEvent(p Player, at time.Time) ChangeEvent {
	return ChangeEvent{Kind: ChangeInsert, New: &p, CommitTimestamp: at}
}

// UpdateEvent builds an UPDATE event carrying the full new row
func UpdateEvent(p Player, at time.Time) ChangeEvent {
	return ChangeEvent{Kind: ChangeUpdate, New: &p, CommitTimestamp: at}
}

// DeleteEvent builds a DELETE event for id
func DeleteEvent(id PlayerID, at time.Time) ChangeEvent {
	return ChangeEvent{Kind: ChangeDelete, Old: &PlayerRef{ID: id}, CommitTimestamp: at}
}

// PlayerID returns the ID of the row the event refers to
func (e ChangeEvent) PlayerID() PlayerID {
	switch {
	case e.New != nil:
		return e.New.ID
	case e.Old != nil:
		return e.Old.ID
	}
	return ""
}

// Validate checks the payload matches the kind
func (e ChangeEvent) Validate() error {
	switch e.Kind {
	case ChangeInsert, ChangeUpdate:
		if e.New == nil || e.New.ID == "" {
			return ErrInvalidEvent
		}
	case ChangeDelete:
		if e.Old == nil || e.Old.ID == "" {
			return ErrInvalidEvent
		}
	default:
		return ErrInvalidEvent
	}
	return nil
}
