// Package roster holds the merged, de-duplicated view of every known player.
package roster

import "github.com/mcoot/playfield/internal/model"

// MissingUpdatePolicy decides what an UPDATE for an unknown ID does
type MissingUpdatePolicy int

const (
	// UpsertMissing appends the row, healing an INSERT missed while the
	// snapshot was loading
	UpsertMissing MissingUpdatePolicy = iota
	// DropMissing ignores the event
	DropMissing
)

// Outcome reports what applying an event did to the roster
type Outcome int

const (
	Ignored Outcome = iota
	Inserted
	Updated
	Deleted
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	}
	return "ignored"
}

// State is an immutable roster value. Reduce never modifies its input.
type State struct {
	players []model.Player
	index   map[model.PlayerID]int
}

// NewState builds a state from a snapshot in its given order.
// A repeated ID keeps its first position and its last payload.
func NewState(players []model.Player) State {
	s := State{
		players: make([]model.Player, 0, len(players)),
		index:   make(map[model.PlayerID]int, len(players)),
	}
	for _, p := range players {
		if i, ok := s.index[p.ID]; ok {
			s.players[i] = p
			continue
		}
		s.index[p.ID] = len(s.players)
		s.players = append(s.players, p)
	}
	return s
}

// Len returns the number of players
func (s State) Len() int {
	return len(s.players)
}

// Get looks up a player by ID
func (s State) Get(id model.PlayerID) (model.Player, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.Player{}, false
	}
	return s.players[i], true
}

// Players returns a copy of the roster in arrival order
func (s State) Players() []model.Player {
	out := make([]model.Player, len(s.players))
	copy(out, s.players)
	return out
}

// Reduce applies one change event and returns the resulting state.
// Events for rows not in the roster (other than a healed UPDATE) are no-ops.
func Reduce(s State, event model.ChangeEvent, policy MissingUpdatePolicy) (State, Outcome) {
	if event.Validate() != nil {
		return s, Ignored
	}

	switch event.Kind {
	case model.ChangeInsert:
		if _, ok := s.index[event.New.ID]; ok {
			return s, Ignored
		}
		return s.appended(*event.New), Inserted

	case model.ChangeUpdate:
		i, ok := s.index[event.New.ID]
		if !ok {
			if policy == DropMissing {
				return s, Ignored
			}
			return s.appended(*event.New), Inserted
		}
		return s.replaced(i, *event.New), Updated

	case model.ChangeDelete:
		i, ok := s.index[event.Old.ID]
		if !ok {
			return s, Ignored
		}
		return s.removed(i), Deleted
	}

	return s, Ignored
}

func (s State) appended(p model.Player) State {
	players := make([]model.Player, len(s.players), len(s.players)+1)
	copy(players, s.players)
	index := make(map[model.PlayerID]int, len(s.index)+1)
	for id, i := range s.index {
		index[id] = i
	}
	index[p.ID] = len(players)
	return State{players: append(players, p), index: index}
}

func (s State) replaced(i int, p model.Player) State {
	players := make([]model.Player, len(s.players))
	copy(players, s.players)
	players[i] = p
	// IDs and positions are unchanged, so the index is shared
	return State{players: players, index: s.index}
}

func (s State) removed(i int) State {
	players := make([]model.Player, 0, len(s.players)-1)
	players = append(players, s.players[:i]...)
	players = append(players, s.players[i+1:]...)
	index := make(map[model.PlayerID]int, len(players))
	for j, p := range players {
		index[p.ID] = j
	}
	return State{players: players, index: index}
}
