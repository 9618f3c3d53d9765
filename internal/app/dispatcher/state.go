// Package dispatcher serializes track changes and interactive commands.
package dispatcher

// State represents what the dispatcher is doing.
type State int

const (
	StateIdle                  State = iota // Waiting for the next event
	StateProcessingTrackChange              // Evaluating a new track
	StateProcessingCommand                  // Running a command line
	StateShuttingDown                       // Terminal; events are ignored
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessingTrackChange:
		return "processing_track_change"
	case StateProcessingCommand:
		return "processing_command"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}
