package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/beerhive/fulfillment/internal/domain"
	apperrors "github.com/beerhive/fulfillment/pkg/errors"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/metrics"
)

// LifecycleService handles staff-initiated task state transitions
type LifecycleService struct {
	repo    domain.TaskRepository
	feed    FeedPublisher
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	repo domain.TaskRepository,
	feed FeedPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *LifecycleService {
	return &LifecycleService{
		repo:    repo,
		feed:    feed,
		logger:  logger,
		metrics: m,
	}
}

// Transition moves a task to the requested state. Requesting the state the
// task is already in is treated as a retry and returns the current task
// without error; illegal transitions come back as conflicts with the exact
// rejection reason for UI display.
func (s *LifecycleService) Transition(ctx context.Context, cmd TransitionTaskCommand) (*TaskDTO, error) {
	target := domain.TaskState(cmd.TargetState)
	if !target.IsValid() {
		return nil, apperrors.ErrValidation(fmt.Sprintf("invalid target state: %s", cmd.TargetState))
	}

	task, err := s.repo.FindByID(ctx, cmd.TaskID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get task", "taskId", cmd.TaskID)
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, apperrors.ErrNotFound("task")
	}

	expectedState := task.State

	var transitionErr error
	if target == domain.TaskStateCancelled {
		transitionErr = task.Cancel(cmd.Reason)
	} else {
		transitionErr = task.ApplyTransition(target, cmd.Actor)
	}

	if transitionErr != nil {
		if errors.Is(transitionErr, domain.ErrSameState) {
			s.logger.Info("Same-state transition retry ignored", "taskId", task.ID, "state", task.State)
			return ToTaskDTO(task), nil
		}
		if tErr, ok := domain.AsTransitionError(transitionErr); ok {
			return nil, apperrors.ErrConflict(tErr.Error())
		}
		return nil, apperrors.ErrValidation(transitionErr.Error())
	}

	if err := s.repo.Update(ctx, task, expectedState); err != nil {
		if errors.Is(err, domain.ErrConcurrentTransition) {
			return s.resolveLostRace(ctx, cmd.TaskID, target)
		}
		s.logger.WithError(err).Error("Failed to save task transition", "taskId", task.ID)
		return nil, fmt.Errorf("failed to save task transition: %w", err)
	}

	s.metrics.RecordTaskTransition(string(task.Station), string(expectedState), string(task.State))
	s.feed.PublishTask(task.Station, task, "task."+transitionEventSuffix(task.State))

	s.logger.Info("Task transitioned",
		"taskId", task.ID,
		"orderId", task.OrderID,
		"station", task.Station,
		"from", expectedState,
		"to", task.State,
		"actor", cmd.Actor)

	return ToTaskDTO(task), nil
}

// resolveLostRace handles a transition whose write lost the per-task race.
// If the winning request already applied the same target state, this request
// is a duplicate and resolves like a same-state retry: the current task comes
// back without error. Any other stored state is a genuine conflict.
func (s *LifecycleService) resolveLostRace(ctx context.Context, taskID string, target domain.TaskState) (*TaskDTO, error) {
	current, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get task after lost transition race", "taskId", taskID)
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if current == nil {
		return nil, apperrors.ErrNotFound("task")
	}

	if current.State == target {
		s.logger.Info("Concurrent transition already applied, treating as retry",
			"taskId", taskID,
			"state", current.State)
		return ToTaskDTO(current), nil
	}

	return nil, apperrors.ErrConflict("task was modified by a concurrent transition, retry with current state")
}

// SetPriority toggles the urgent flag on a task
func (s *LifecycleService) SetPriority(ctx context.Context, cmd SetTaskPriorityCommand) (*TaskDTO, error) {
	task, err := s.repo.FindByID(ctx, cmd.TaskID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get task", "taskId", cmd.TaskID)
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, apperrors.ErrNotFound("task")
	}

	expectedState := task.State
	task.SetPriority(cmd.Priority)
	if len(task.GetDomainEvents()) == 0 {
		return ToTaskDTO(task), nil
	}

	if err := s.repo.Update(ctx, task, expectedState); err != nil {
		if errors.Is(err, domain.ErrConcurrentTransition) {
			return nil, apperrors.ErrConflict("task was modified by a concurrent transition, retry with current state")
		}
		s.logger.WithError(err).Error("Failed to save task priority", "taskId", task.ID)
		return nil, fmt.Errorf("failed to save task priority: %w", err)
	}

	s.feed.PublishTask(task.Station, task, "task.priority.changed")

	return ToTaskDTO(task), nil
}

// GetTask retrieves a task by id, including those in terminal states
func (s *LifecycleService) GetTask(ctx context.Context, query GetTaskQuery) (*TaskDTO, error) {
	task, err := s.repo.FindByID(ctx, query.TaskID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get task", "taskId", query.TaskID)
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, apperrors.ErrNotFound("task")
	}

	return ToTaskDTO(task), nil
}

func transitionEventSuffix(state domain.TaskState) string {
	switch state {
	case domain.TaskStatePreparing:
		return "started"
	case domain.TaskStateReady:
		return "ready"
	case domain.TaskStateServed:
		return "served"
	case domain.TaskStateCancelled:
		return "cancelled"
	default:
		return "updated"
	}
}
