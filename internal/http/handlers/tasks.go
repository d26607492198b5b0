package handlers

import (
	"net/http"

	"task_manager/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(c *gin.Context) {
	userID, _ := getUserID(c)

	var req service.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	task, err := h.Tasks.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "Task creation failed")
		return
	}

	c.JSON(http.StatusCreated, task)
}

// MyTasks handles GET /api/tasks/my.
func (h *Handler) MyTasks(c *gin.Context) {
	userID, _ := getUserID(c)

	q, err := service.ParseListQuery(c.Query("status"), c.Query("priority"), c.Query("overdue"), c.Query("sort"))
	if err != nil {
		respondError(c, err, "Failed to fetch tasks")
		return
	}

	tasks, err := h.Tasks.ListMine(c.Request.Context(), userID, q)
	if err != nil {
		respondError(c, err, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, tasks)
}

func (h *Handler) TaskStats(c *gin.Context) {
	userID, _ := getUserID(c)

	stats, err := h.Tasks.Stats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch task stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// UpdateTask handles PUT /api/tasks/:id.
func (h *Handler) UpdateTask(c *gin.Context) {
	userID, _ := getUserID(c)

	var req service.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	task, err := h.Tasks.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Task update failed")
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTaskStatus handles PATCH /api/tasks/:id/status.
func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	userID, _ := getUserID(c)

	var req service.StatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	task, err := h.Tasks.UpdateStatus(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Status update failed")
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/:id.
func (h *Handler) DeleteTask(c *gin.Context) {
	userID, _ := getUserID(c)

	if err := h.Tasks.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err, "Task deletion failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
