package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/beerhive/fulfillment/internal/domain"
	apperrors "github.com/beerhive/fulfillment/pkg/errors"
	"github.com/beerhive/fulfillment/pkg/logging"
)

// FeedService answers station display queries
type FeedService struct {
	repo   domain.TaskRepository
	logger *logging.Logger
}

// NewFeedService creates a new FeedService
func NewFeedService(repo domain.TaskRepository, logger *logging.Logger) *FeedService {
	return &FeedService{
		repo:   repo,
		logger: logger,
	}
}

// List returns the tasks for one station. The default filter is the active
// set (pending, preparing, cancelled) so finished work drops off the display
// while cancellations stay visible until cleared. "all" includes served
// tasks; a comma-separated state list selects exact states.
func (s *FeedService) List(ctx context.Context, query ListStationTasksQuery) ([]TaskDTO, error) {
	station := domain.Station(query.Station)
	if !station.IsValid() {
		return nil, apperrors.ErrValidation(fmt.Sprintf("invalid station: %s", query.Station))
	}

	filter, err := parseTaskFilter(query.Filter)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	tasks, err := s.repo.FindByStation(ctx, station, filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list station tasks", "station", station)
		return nil, fmt.Errorf("failed to list station tasks: %w", err)
	}

	return ToTaskDTOs(tasks), nil
}

func parseTaskFilter(raw string) (domain.TaskFilter, error) {
	switch raw {
	case "", "active":
		return domain.TaskFilter{}, nil
	case "all":
		return domain.TaskFilter{IncludeDone: true}, nil
	}

	parts := strings.Split(raw, ",")
	states := make([]domain.TaskState, 0, len(parts))
	for _, part := range parts {
		state := domain.TaskState(strings.TrimSpace(part))
		if !state.IsValid() {
			return domain.TaskFilter{}, fmt.Errorf("invalid state in filter: %s", part)
		}
		states = append(states, state)
	}
	return domain.TaskFilter{States: states}, nil
}
