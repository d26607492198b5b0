package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"task_manager/internal/domain"
	"task_manager/internal/logger"
	"task_manager/internal/repository"

	"github.com/google/uuid"
)

// Publisher receives task events once the store write has committed.
// Delivery is best effort; Publish must not block.
type Publisher interface {
	Publish(ev domain.TaskEvent)
}

// TaskInput is the body of create and update requests. A nil field was not
// sent by the caller.
type TaskInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"dueDate"`
}

type StatusInput struct {
	Status string `json:"status" validate:"required,taskstatus"`
}

type SortOrder string

const (
	SortNewest  SortOrder = "NEWEST"
	SortOldest  SortOrder = "OLDEST"
	SortDueSoon SortOrder = "DUE_SOON"
	SortDueLate SortOrder = "DUE_LATE"
)

// ListQuery narrows and orders the caller's task list. Zero value lists all
// tasks newest first.
type ListQuery struct {
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	OverdueOnly bool
	Sort        SortOrder
}

// ParseListQuery validates raw query string values.
func ParseListQuery(status, priority, overdue, sortBy string) (ListQuery, error) {
	var q ListQuery

	if status != "" && status != "ALL" {
		q.Status = domain.TaskStatus(strings.ToUpper(status))
		if !q.Status.IsValid() {
			return q, invalid("Invalid status filter")
		}
	}
	if priority != "" && priority != "ALL" {
		q.Priority = domain.TaskPriority(strings.ToUpper(priority))
		if !q.Priority.IsValid() {
			return q, invalid("Invalid priority filter")
		}
	}
	if overdue != "" {
		b, err := strconv.ParseBool(overdue)
		if err != nil {
			return q, invalid("Invalid overdue filter")
		}
		q.OverdueOnly = b
	}

	switch SortOrder(strings.ToUpper(sortBy)) {
	case "", SortNewest:
		q.Sort = SortNewest
	case SortOldest, SortDueSoon, SortDueLate:
		q.Sort = SortOrder(strings.ToUpper(sortBy))
	default:
		return q, invalid("Invalid sort order")
	}
	return q, nil
}

type TaskService struct {
	tasks     repository.TaskStore
	publisher Publisher
	now       func() time.Time
}

func NewTaskService(tasks repository.TaskStore, publisher Publisher) *TaskService {
	return NewTaskServiceWithClock(tasks, publisher, time.Now)
}

func NewTaskServiceWithClock(tasks repository.TaskStore, publisher Publisher, now func() time.Time) *TaskService {
	return &TaskService{tasks: tasks, publisher: publisher, now: now}
}

func (s *TaskService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *TaskService) publish(ctx context.Context, eventType string, t *domain.Task, payload any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(domain.TaskEventFor(eventType, t, payload))
	logger.WithContext(ctx).Debug("task event published", "type", eventType, "task_id", t.ID)
}

func (s *TaskService) Create(ctx context.Context, ownerID string, in TaskInput) (domain.TaskView, error) {
	if ownerID == "" {
		return domain.TaskView{}, ErrUnauthorized
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return domain.TaskView{}, invalid("Title is required")
	}

	priority := domain.PriorityMedium
	if in.Priority != nil && *in.Priority != "" {
		priority = domain.TaskPriority(*in.Priority)
		if !priority.IsValid() {
			return domain.TaskView{}, invalid("Invalid priority")
		}
	}

	var due *time.Time
	if in.DueDate != nil {
		d, err := domain.ParseDueDate(*in.DueDate)
		if err != nil {
			return domain.TaskView{}, invalid("Invalid due date")
		}
		due = d
	}

	now := s.clock()
	t := &domain.Task{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(*in.Title),
		Description:  normalizeDescription(in.Description),
		Status:       domain.StatusOpen,
		Priority:     priority,
		DueDate:      due,
		CreatedByID:  ownerID,
		AssignedToID: ownerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return domain.TaskView{}, fmt.Errorf("create task: %w", err)
	}

	view := domain.NewTaskView(t, s.now())
	s.publish(ctx, domain.EventTaskCreated, t, view)
	return view, nil
}

func (s *TaskService) ListMine(ctx context.Context, ownerID string, q ListQuery) ([]domain.TaskView, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	tasks, err := s.tasks.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	now := s.now()
	views := make([]domain.TaskView, 0, len(tasks))
	for _, t := range tasks {
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.Priority != "" && t.Priority != q.Priority {
			continue
		}
		v := domain.NewTaskView(t, now)
		if q.OverdueOnly && !v.IsOverdue {
			continue
		}
		views = append(views, v)
	}

	sortViews(views, q.Sort)
	return views, nil
}

// sortViews reorders views, which arrive newest first. Tasks without a due
// date count as due at infinity.
func sortViews(views []domain.TaskView, order SortOrder) {
	switch order {
	case SortOldest:
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].CreatedAt.Before(views[j].CreatedAt)
		})
	case SortDueSoon:
		sort.SliceStable(views, func(i, j int) bool {
			return dueBefore(views[i].DueDate, views[j].DueDate)
		})
	case SortDueLate:
		sort.SliceStable(views, func(i, j int) bool {
			return dueBefore(views[j].DueDate, views[i].DueDate)
		})
	}
}

func dueBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}

func (s *TaskService) Update(ctx context.Context, callerID, taskID string, in TaskInput) (domain.TaskView, error) {
	t, err := s.ownedTask(ctx, callerID, taskID)
	if err != nil {
		return domain.TaskView{}, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return domain.TaskView{}, invalid("Title is required")
		}
		t.Title = title
	}
	if in.Description != nil {
		t.Description = normalizeDescription(in.Description)
	}
	if in.Priority != nil && *in.Priority != "" {
		p := domain.TaskPriority(*in.Priority)
		if !p.IsValid() {
			return domain.TaskView{}, invalid("Invalid priority")
		}
		t.Priority = p
	}

	// the due date is replaced on every update; omitting it clears it
	t.DueDate = nil
	if in.DueDate != nil {
		d, err := domain.ParseDueDate(*in.DueDate)
		if err != nil {
			return domain.TaskView{}, invalid("Invalid due date")
		}
		t.DueDate = d
	}

	t.UpdatedAt = s.clock()
	if err := s.tasks.UpdateDetails(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TaskView{}, ErrNotFound
		}
		return domain.TaskView{}, fmt.Errorf("update task: %w", err)
	}

	view := domain.NewTaskView(t, s.now())
	s.publish(ctx, domain.EventTaskUpdated, t, view)
	return view, nil
}

func (s *TaskService) UpdateStatus(ctx context.Context, callerID, taskID string, in StatusInput) (domain.TaskView, error) {
	if err := validateStruct(in); err != nil {
		return domain.TaskView{}, err
	}
	if _, err := s.ownedTask(ctx, callerID, taskID); err != nil {
		return domain.TaskView{}, err
	}

	t, err := s.tasks.UpdateStatus(ctx, taskID, domain.TaskStatus(in.Status), s.clock())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TaskView{}, ErrNotFound
		}
		return domain.TaskView{}, fmt.Errorf("update task status: %w", err)
	}

	view := domain.NewTaskView(t, s.now())
	s.publish(ctx, domain.EventTaskUpdated, t, view)
	return view, nil
}

func (s *TaskService) Delete(ctx context.Context, callerID, taskID string) error {
	t, err := s.ownedTask(ctx, callerID, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}

	s.publish(ctx, domain.EventTaskDeleted, t, domain.DeletedPayload{ID: t.ID})
	return nil
}

func (s *TaskService) Stats(ctx context.Context, ownerID string) (domain.TaskStats, error) {
	views, err := s.ListMine(ctx, ownerID, ListQuery{})
	if err != nil {
		return domain.TaskStats{}, err
	}

	var st domain.TaskStats
	for _, v := range views {
		st.Total++
		switch v.Status {
		case domain.StatusOpen:
			st.Open++
		case domain.StatusInProgress:
			st.InProgress++
		case domain.StatusCompleted:
			st.Completed++
		}
		if v.IsOverdue {
			st.Overdue++
		}
	}
	return st, nil
}

// ownedTask loads a task and checks that callerID is its creator or assignee.
func (s *TaskService) ownedTask(ctx context.Context, callerID, taskID string) (*domain.Task, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load task: %w", err)
	}
	if !t.OwnedBy(callerID) {
		logger.WithContext(ctx).Warn("task access denied", "task_id", taskID, "user_id", callerID)
		return nil, ErrForbidden
	}
	return t, nil
}

func normalizeDescription(d *string) *string {
	if d == nil {
		return nil
	}
	v := strings.TrimSpace(*d)
	if v == "" {
		return nil
	}
	return &v
}
