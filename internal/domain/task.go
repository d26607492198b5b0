package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidDueDate = errors.New("invalid due date")

type TaskStatus string

const (
	StatusOpen       TaskStatus = "OPEN"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

type Task struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  *string      `json:"description"`
	Status       TaskStatus   `json:"status"`
	Priority     TaskPriority `json:"priority"`
	DueDate      *time.Time   `json:"dueDate"`
	CreatedByID  string       `json:"createdById"`
	AssignedToID string       `json:"assignedToId"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// OwnedBy reports whether userID is the task's creator or assignee.
func (t *Task) OwnedBy(userID string) bool {
	return userID != "" && (t.CreatedByID == userID || t.AssignedToID == userID)
}

// IsOverdue is the single source of the derived overdue flag. A completed task
// is never overdue.
func IsOverdue(dueDate *time.Time, status TaskStatus, now time.Time) bool {
	if dueDate == nil || status == StatusCompleted {
		return false
	}
	return dueDate.Before(now)
}

// TaskView is a task as returned to callers, with derived fields filled in.
type TaskView struct {
	Task
	IsOverdue bool `json:"isOverdue"`
}

func NewTaskView(t *Task, now time.Time) TaskView {
	return TaskView{
		Task:      *t,
		IsOverdue: IsOverdue(t.DueDate, t.Status, now),
	}
}

// zone-less layouts sent by datetime-local inputs; read as UTC
var localDueLayouts = []string{time.DateOnly, "2006-01-02T15:04", "2006-01-02T15:04:05"}

// ParseDueDate accepts a calendar date (read as UTC midnight), a zone-less
// date and time (read as UTC) or an RFC 3339 timestamp. An empty value means
// no due date.
func ParseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range localDueLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return &d, nil
		}
	}
	d, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, ErrInvalidDueDate
	}
	d = d.UTC()
	return &d, nil
}

// TaskStats are the per-owner counters shown on the dashboard.
type TaskStats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Overdue    int `json:"overdue"`
}
