package pipeline

// State is the session lifecycle state.
type State int32

const (
	// StateIdle: not capturing, or waiting for the device to recover.
	StateIdle State = iota

	// StateListening: capturing and classifying, mood is Neutral.
	StateListening

	// StateReactive: capturing with a non-Neutral mood driving motion.
	StateReactive

	// StateStopped: shut down; terminal.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateReactive:
		return "reactive"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
