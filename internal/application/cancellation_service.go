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

// CancellationService reacts to order-line removals and handles explicit
// cleanup of finished tasks from station displays
type CancellationService struct {
	repo    domain.TaskRepository
	feed    FeedPublisher
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewCancellationService creates a new CancellationService
func NewCancellationService(
	repo domain.TaskRepository,
	feed FeedPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *CancellationService {
	return &CancellationService{
		repo:    repo,
		feed:    feed,
		logger:  logger,
		metrics: m,
	}
}

// CancelForOrderLine cancels every task belonging to the removed order line,
// including tasks derived from a bundle on that line. Only pending and
// preparing tasks are cancelled; tasks already ready or served are left
// untouched and reported back so staff can follow up in person.
func (s *CancellationService) CancelForOrderLine(ctx context.Context, cmd CancelOrderLineCommand) (*CancellationResultDTO, error) {
	tasks, err := s.repo.FindByOrderLine(ctx, cmd.OrderLineID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to find tasks for order line", "orderLineId", cmd.OrderLineID)
		return nil, fmt.Errorf("failed to find tasks for order line: %w", err)
	}

	result := &CancellationResultDTO{OrderLineID: cmd.OrderLineID}

	for _, task := range tasks {
		expectedState := task.State
		if err := task.Cancel(cmd.Reason); err != nil {
			if errors.Is(err, domain.ErrSameState) {
				continue
			}
			// ready or served: preparation already completed
			result.SkippedTasks = append(result.SkippedTasks, *ToTaskDTO(task))
			continue
		}

		if err := s.repo.Update(ctx, task, expectedState); err != nil {
			if errors.Is(err, domain.ErrConcurrentTransition) {
				s.logger.Warn("Task raced during line cancellation, skipping", "taskId", task.ID)
				continue
			}
			s.logger.WithError(err).Error("Failed to cancel task", "taskId", task.ID)
			return nil, fmt.Errorf("failed to cancel task %s: %w", task.ID, err)
		}

		s.metrics.RecordTaskCancelled(string(task.Station), "order_line_removed")
		s.feed.PublishTask(task.Station, task, "task.cancelled")
		result.CancelledTasks = append(result.CancelledTasks, *ToTaskDTO(task))
	}

	s.logger.Info("Order line cancellation processed",
		"orderLineId", cmd.OrderLineID,
		"cancelled", len(result.CancelledTasks),
		"skipped", len(result.SkippedTasks))

	return result, nil
}

// ClearCancelled removes all cancelled tasks from one station display
func (s *CancellationService) ClearCancelled(ctx context.Context, cmd ClearCancelledCommand) (int64, error) {
	station := domain.Station(cmd.Station)
	if !station.IsValid() {
		return 0, apperrors.ErrValidation(fmt.Sprintf("invalid station: %s", cmd.Station))
	}

	cancelled, err := s.repo.FindByStation(ctx, station, domain.TaskFilter{States: []domain.TaskState{domain.TaskStateCancelled}})
	if err != nil {
		s.logger.WithError(err).Error("Failed to list cancelled tasks", "station", station)
		return 0, fmt.Errorf("failed to list cancelled tasks: %w", err)
	}

	if len(cancelled) == 0 {
		return 0, nil
	}

	// Delete only the tasks just listed, so every deleted task also gets a
	// removal pushed to the display. A task cancelled after the listing stays
	// until the next clear.
	ids := make([]string, 0, len(cancelled))
	for _, task := range cancelled {
		ids = append(ids, task.ID)
	}

	removed, err := s.repo.DeleteCancelled(ctx, ids)
	if err != nil {
		s.logger.WithError(err).Error("Failed to clear cancelled tasks", "station", station)
		return 0, fmt.Errorf("failed to clear cancelled tasks: %w", err)
	}

	for _, task := range cancelled {
		s.feed.PublishRemoval(task.Station, task.ID)
	}

	s.logger.Info("Cancelled tasks cleared", "station", station, "removed", removed)

	return removed, nil
}

// RemoveTask removes a single terminal task from its station display
func (s *CancellationService) RemoveTask(ctx context.Context, cmd RemoveTaskCommand) error {
	task, err := s.repo.FindByID(ctx, cmd.TaskID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get task", "taskId", cmd.TaskID)
		return fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return apperrors.ErrNotFound("task")
	}

	if !task.State.IsTerminal() {
		return apperrors.ErrConflict(domain.ErrTaskNotTerminal.Error())
	}

	if err := s.repo.DeleteTask(ctx, task); err != nil {
		s.logger.WithError(err).Error("Failed to remove task", "taskId", task.ID)
		return fmt.Errorf("failed to remove task: %w", err)
	}

	s.feed.PublishRemoval(task.Station, task.ID)

	s.logger.Info("Task removed", "taskId", task.ID, "station", task.Station, "state", task.State)

	return nil
}
