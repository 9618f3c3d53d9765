package notification

import (
	"github.com/osa030/autoskip/internal/app/command"
	"github.com/osa030/autoskip/internal/app/decision"
	"github.com/osa030/autoskip/internal/domain/track"
)

// EventType represents a notification event type.
type EventType int

const (
	EventTrackChanged EventType = iota // A new track was evaluated
	EventFeedback                      // An interactive command produced output
	EventStatus                        // Startup and state messages
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventFeedback:
		return "feedback"
	case EventStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Event is what the dispatcher publishes for presentation.
type Event struct {
	SequenceNo uint64
	Type       EventType
	Track      track.Track
	Decision   decision.Decision // Set for EventTrackChanged
	Skipped    bool              // A skip was issued for Track
	Feedback   command.Feedback  // Set for EventFeedback
	Message    string            // Set for EventStatus
	Enabled    bool              // Set for EventStatus

	// NotificationsEnabled mirrors the setting at publish time so sinks
	// never read the settings store themselves.
	NotificationsEnabled bool
}

// TrackChanged builds an EventTrackChanged event.
func TrackChanged(t track.Track, d decision.Decision, skipped bool) Event {
	return Event{Type: EventTrackChanged, Track: t, Decision: d, Skipped: skipped}
}

// FeedbackEvent builds an EventFeedback event.
func FeedbackEvent(f command.Feedback) Event {
	return Event{Type: EventFeedback, Track: f.Track, Feedback: f}
}

// Status builds an EventStatus event.
func Status(message string, enabled bool) Event {
	return Event{Type: EventStatus, Message: message, Enabled: enabled}
}
