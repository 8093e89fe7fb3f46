package model

import "strings"

// PlayerID uniquely identifies a player across the roster
type PlayerID string

// Position is a point on the playfield
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player is one participant on the shared playfield
type Player struct {
	ID    PlayerID `json:"id"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Color string   `json:"color"`
	Name  string   `json:"name"`
}

// Position returns the player's coordinates
func (p Player) Position() Position {
	return Position{X: p.X, Y: p.Y}
}

// WithPosition returns a copy of the player moved to pos
func (p Player) WithPosition(pos Position) Player {
	p.X = pos.X
	p.Y = pos.Y
	return p
}

// Validate checks the fields every stored player must carry
func (p Player) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return ErrInvalidPlayer
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidPlayer
	}
	return nil
}

// PlayerRef identifies a removed row (the "old" record of a delete)
type PlayerRef struct {
	ID PlayerID `json:"id"`
}

// PositionUpdate is the partial payload a player's owner writes back
type PositionUpdate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position returns the update as a Position
func (u PositionUpdate) Position() Position {
	return Position{X: u.X, Y: u.Y}
}
