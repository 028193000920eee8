package indexer

// State is the pipeline driver state.
type State int32

const (
	StateListening State = iota
	StateDecoding
	StatePersisting
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateDecoding:
		return "decoding"
	case StatePersisting:
		return "persisting"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the pipeline has exited.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}
