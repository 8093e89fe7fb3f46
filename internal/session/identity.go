package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mcoot/playfield/internal/dependencies/random"
	"github.com/mcoot/playfield/internal/model"
)

const (
	// NameSuffixLength is the length of the random part of a default name
	NameSuffixLength = 5
	// DefaultNamePrefix precedes the random suffix when no name is given
	DefaultNamePrefix = "Player_"
)

// Identity is everything about the local player except its position
type Identity struct {
	Name  string
	Color string
}

// NewIdentity picks a display name and color. A blank name gets a random
// Player_xxxxx name.
func NewIdentity(name string, rnd random.Random) Identity {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultNamePrefix + rnd.String(NameSuffixLength, random.Base36Alphabet)
	}
	return Identity{
		Name:  name,
		Color: fmt.Sprintf("hsl(%d, 70%%, 50%%)", rnd.Intn(360)),
	}
}

// NewPlayerID generates a fresh row ID
func NewPlayerID() model.PlayerID {
	return model.PlayerID(uuid.NewString())
}

// Player builds the row to insert for id at pos
func (i Identity) Player(id model.PlayerID, pos model.Position) model.Player {
	return model.Player{
		ID:    id,
		X:     pos.X,
		Y:     pos.Y,
		Color: i.Color,
		Name:  i.Name,
	}
}
