package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/beerhive/fulfillment/internal/application"
	"github.com/beerhive/fulfillment/internal/domain"
	"github.com/beerhive/fulfillment/pkg/errors"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/middleware"
)

// TaskLifecycleService drives prep task state transitions and queries
type TaskLifecycleService interface {
	Transition(ctx context.Context, cmd application.TransitionTaskCommand) (*application.TaskDTO, error)
	SetPriority(ctx context.Context, cmd application.SetTaskPriorityCommand) (*application.TaskDTO, error)
	GetTask(ctx context.Context, query application.GetTaskQuery) (*application.TaskDTO, error)
}

// TaskRemovalService removes terminal tasks from their station display
type TaskRemovalService interface {
	RemoveTask(ctx context.Context, cmd application.RemoveTaskCommand) error
}

// TaskHandlers contains handlers for prep task operations
type TaskHandlers struct {
	lifecycle TaskLifecycleService
	removal   TaskRemovalService
	logger    *logging.Logger
}

// NewTaskHandlers creates a new TaskHandlers
func NewTaskHandlers(lifecycle TaskLifecycleService, removal TaskRemovalService, logger *logging.Logger) *TaskHandlers {
	return &TaskHandlers{
		lifecycle: lifecycle,
		removal:   removal,
		logger:    logger,
	}
}

// RegisterRoutes registers task routes on the router
func (h *TaskHandlers) RegisterRoutes(router *gin.RouterGroup) {
	tasks := router.Group("/tasks")
	{
		tasks.GET("/:taskId", h.GetTask)
		tasks.POST("/:taskId/start", h.StartTask)
		tasks.POST("/:taskId/ready", h.MarkTaskReady)
		tasks.POST("/:taskId/serve", h.ServeTask)
		tasks.POST("/:taskId/cancel", h.CancelTask)
		tasks.PUT("/:taskId/priority", h.SetPriority)
		tasks.DELETE("/:taskId", h.RemoveTask)
	}
}

// GetTask handles getting a task by ID
func (h *TaskHandlers) GetTask(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	taskID := c.Param("taskId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"task.id": taskID,
	})

	query := application.GetTaskQuery{TaskID: taskID}

	task, err := h.lifecycle.GetTask(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, task)
}

// StartTask handles moving a pending task into preparation
func (h *TaskHandlers) StartTask(c *gin.Context) {
	h.transition(c, domain.TaskStatePreparing)
}

// MarkTaskReady handles marking a task as ready for pickup
func (h *TaskHandlers) MarkTaskReady(c *gin.Context) {
	h.transition(c, domain.TaskStateReady)
}

// ServeTask handles marking a ready task as served
func (h *TaskHandlers) ServeTask(c *gin.Context) {
	h.transition(c, domain.TaskStateServed)
}

// CancelTask handles cancelling a pending or preparing task
func (h *TaskHandlers) CancelTask(c *gin.Context) {
	h.transition(c, domain.TaskStateCancelled)
}

// transition runs one lifecycle transition. The request body is optional;
// it carries the acting staff member and, for cancellations, a reason.
func (h *TaskHandlers) transition(c *gin.Context, target domain.TaskState) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	taskID := c.Param("taskId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"task.id":           taskID,
		"task.target_state": string(target),
	})

	var req struct {
		Actor  string `json:"actor"`
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	cmd := application.TransitionTaskCommand{
		TaskID:      taskID,
		TargetState: string(target),
		Actor:       req.Actor,
		Reason:      req.Reason,
	}

	task, err := h.lifecycle.Transition(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, task)
}

// SetPriority handles setting the urgent flag on a task
func (h *TaskHandlers) SetPriority(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	taskID := c.Param("taskId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"task.id": taskID,
	})

	var req struct {
		Priority *bool `json:"priority" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := application.SetTaskPriorityCommand{
		TaskID:   taskID,
		Priority: *req.Priority,
	}

	task, err := h.lifecycle.SetPriority(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, task)
}

// RemoveTask handles removing a terminal task from its station display
func (h *TaskHandlers) RemoveTask(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	taskID := c.Param("taskId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"task.id": taskID,
	})

	cmd := application.RemoveTaskCommand{TaskID: taskID}

	if err := h.removal.RemoveTask(c.Request.Context(), cmd); err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
