package notify

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType identifies what happened.
type EventType string

const (
	EventEnrolled        EventType = "enrolled"
	EventCourseCompleted EventType = "course_completed"
)

// Event is a fire-and-forget notification. Producers never depend on
// delivery: a sink failure must not fail the operation that emitted it.
type Event struct {
	Type     EventType
	UserID   primitive.ObjectID
	CourseID primitive.ObjectID
	At       time.Time
}

// Notifier is the event sink collaborator.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// logNotifier writes events to the server log. It stands in for the real
// notification infrastructure (websocket broadcast in the frontend-facing
// deployment).
type logNotifier struct{}

// NewLogNotifier returns a Notifier that logs events.
func NewLogNotifier() Notifier {
	return &logNotifier{}
}

func (n *logNotifier) Notify(ctx context.Context, event Event) error {
	log.Printf("event: %s user=%s course=%s", event.Type, event.UserID.Hex(), event.CourseID.Hex())
	return nil
}
