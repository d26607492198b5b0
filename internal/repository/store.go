package repository

import (
	"context"
	"errors"
	"time"

	"task_manager/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type TaskStore interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// ListByOwner returns tasks the user created or is assigned to, newest
	// first. Tasks sharing a creation time are ordered by descending id, which
	// keeps repeated calls consistent but says nothing about insertion order.
	ListByOwner(ctx context.Context, userID string) ([]*domain.Task, error)
	// UpdateDetails writes title, description, priority, due date and updated_at,
	// then refreshes t from the stored row.
	UpdateDetails(ctx context.Context, t *domain.Task) error
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, at time.Time) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
}
