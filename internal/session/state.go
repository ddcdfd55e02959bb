package session

// State is the channel state of a streaming session.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateStreaming
	StateClosed
	StateErrored
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateConnecting: "connecting",
	StateOpen:       "open",
	StateStreaming:  "streaming",
	StateClosed:     "closed",
	StateErrored:    "errored",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateErrored
}
