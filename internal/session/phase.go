package session

// Phase is the local player's position in the join/leave lifecycle
type Phase int

const (
	PhaseUnjoined Phase = iota
	PhaseJoining
	PhaseJoined
	PhaseLeaving
	PhaseLeft
)

func (p Phase) String() string {
	switch p {
	case PhaseUnjoined:
		return "unjoined"
	case PhaseJoining:
		return "joining"
	case PhaseJoined:
		return "joined"
	case PhaseLeaving:
		return "leaving"
	case PhaseLeft:
		return "left"
	}
	return "unknown"
}
