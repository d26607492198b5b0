package ws

import "task_manager/internal/domain"

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady       = "ready"
	MsgPong        = "pong"
	MsgError       = "error"
	MsgTaskCreated = domain.EventTaskCreated
	MsgTaskUpdated = domain.EventTaskUpdated
	MsgTaskDeleted = domain.EventTaskDeleted
)
