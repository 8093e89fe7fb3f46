package response

import "github.com/mcoot/playfield/internal/model"

// Player represents a player in API responses
type Player struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
	Name  string  `json:"name"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:    string(p.ID),
		X:     p.X,
		Y:     p.Y,
		Color: p.Color,
		Name:  p.Name,
	}
}

// ToModel converts a response Player back to a model.Player
func (p Player) ToModel() model.Player {
	return model.Player{
		ID:    model.PlayerID(p.ID),
		X:     p.X,
		Y:     p.Y,
		Color: p.Color,
		Name:  p.Name,
	}
}

// PlayerList is the response for listing players
type PlayerList struct {
	Players []Player `json:"players"`
}

// PlayerListFromModel converts a roster snapshot
func PlayerListFromModel(players []model.Player) PlayerList {
	out := make([]Player, len(players))
	for i := range players {
		out[i] = PlayerFromModel(&players[i])
	}
	return PlayerList{Players: out}
}

// Health is the response for the health endpoint
type Health struct {
	Status      string `json:"status"`
	Storage     string `json:"storage"`
	FeedClients int    `json:"feed_clients"`
}
