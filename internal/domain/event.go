package domain

const (
	EventTaskCreated = "task:created"
	EventTaskUpdated = "task:updated"
	EventTaskDeleted = "task:deleted"
)

// TaskEvent is a task mutation announced to the owner's realtime connections.
type TaskEvent struct {
	Type    string   `json:"type"`
	Payload any      `json:"payload"`
	UserIDs []string `json:"userIds"`
}

// DeletedPayload is the body of a task:deleted event.
type DeletedPayload struct {
	ID string `json:"id"`
}

// TaskEventFor builds an event addressed to the task's creator and assignee.
func TaskEventFor(eventType string, t *Task, payload any) TaskEvent {
	recipients := []string{t.CreatedByID}
	if t.AssignedToID != "" && t.AssignedToID != t.CreatedByID {
		recipients = append(recipients, t.AssignedToID)
	}
	return TaskEvent{Type: eventType, Payload: payload, UserIDs: recipients}
}
