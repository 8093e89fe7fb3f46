package request

import "github.com/mcoot/playfield/internal/model"

// CreatePlayerRequest is the request body for inserting a player.
// The client owns the row, so it supplies the ID.
type CreatePlayerRequest struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
	Name  string  `json:"name"`
}

// ToModel converts the request into the row to insert
func (r CreatePlayerRequest) ToModel() model.Player {
	return model.Player{
		ID:    model.PlayerID(r.ID),
		X:     r.X,
		Y:     r.Y,
		Color: r.Color,
		Name:  r.Name,
	}
}

// UpdatePositionRequest is the request body for moving a player.
// Both coordinates are required.
type UpdatePositionRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}
