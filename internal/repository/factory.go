package repository

import (
	"task_manager/internal/db"
)

// New returns the user and task stores backed by the engine h was opened on.
func New(h *db.Handle) (UserStore, TaskStore) {
	if h.Pool != nil {
		return NewUserRepository(h.Pool), NewTaskRepository(h.Pool)
	}
	return NewSQLiteUserRepository(h.SQL), NewSQLiteTaskRepository(h.SQL)
}
