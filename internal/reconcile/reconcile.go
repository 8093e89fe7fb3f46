// Package reconcile decides, per frame, where each player is drawn.
package reconcile

import "github.com/mcoot/playfield/internal/model"

// Source names where a sprite's position came from
type Source int

const (
	SourceRoster Source = iota
	SourceLocal
)

func (s Source) String() string {
	if s == SourceLocal {
		return "local"
	}
	return "roster"
}

// Self is the local player's identity and predicted position.
// Until Joined is true the self row renders from the roster like any other.
type Self struct {
	ID       model.PlayerID
	Position model.Position
	Joined   bool
}

// Sprite is one player as it should be displayed this frame
type Sprite struct {
	model.Player
	IsSelf bool
	Source Source
}

// Frame resolves every player's display position in roster order
func Frame(players []model.Player, self Self) []Sprite {
	sprites := make([]Sprite, len(players))
	for i, p := range players {
		if self.Joined && p.ID == self.ID {
			sprites[i] = Sprite{Player: p.WithPosition(self.Position), IsSelf: true, Source: SourceLocal}
			continue
		}
		sprites[i] = Sprite{Player: p, Source: SourceRoster}
	}
	return sprites
}

// RosterReader provides the merged roster
type RosterReader interface {
	Snapshot() []model.Player
}

// PositionReader provides the locally predicted position
type PositionReader interface {
	Position() model.Position
}

// SelfReader reports the acknowledged self ID, if any
type SelfReader interface {
	SelfID() (model.PlayerID, bool)
}

// Reconciler reads its inputs and never writes to any of them
type Reconciler struct {
	roster RosterReader
	motion PositionReader
	self   SelfReader
}

// New creates a Reconciler
func New(roster RosterReader, motion PositionReader, self SelfReader) *Reconciler {
	return &Reconciler{roster: roster, motion: motion, self: self}
}

// Frame computes the sprites for the current instant
func (r *Reconciler) Frame() []Sprite {
	id, joined := r.self.SelfID()
	return Frame(r.roster.Snapshot(), Self{
		ID:       id,
		Position: r.motion.Position(),
		Joined:   joined,
	})
}
