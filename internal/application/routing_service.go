package application

import (
	"context"
	"fmt"

	"github.com/beerhive/fulfillment/internal/domain"
	"github.com/beerhive/fulfillment/pkg/errors"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/metrics"
)

// RoutingService turns a confirmed order into persisted preparation tasks,
// one per (resolved item, station) pair
type RoutingService struct {
	repo    domain.TaskRepository
	catalog CatalogLookup
	orders  OrderStore
	feed    FeedPublisher
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewRoutingService creates a new RoutingService
func NewRoutingService(
	repo domain.TaskRepository,
	catalog CatalogLookup,
	orders OrderStore,
	feed FeedPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *RoutingService {
	return &RoutingService{
		repo:    repo,
		catalog: catalog,
		orders:  orders,
		feed:    feed,
		logger:  logger,
		metrics: m,
	}
}

// RouteOrder fetches a confirmed order and routes it. Entry point for the
// direct re-route endpoint; the confirmation coordinator calls Route with an
// order it already holds.
func (s *RoutingService) RouteOrder(ctx context.Context, cmd RouteOrderCommand) (*RoutingResultDTO, error) {
	order, err := s.orders.GetConfirmedOrder(ctx, cmd.OrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch order", "orderId", cmd.OrderID)
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil {
		return nil, errors.ErrNotFound("order")
	}
	return s.Route(ctx, order)
}

// Route classifies and expands every line of the order and persists all
// resulting tasks in one batch, so no station display ever observes a partial
// order. Idempotent on order id: a re-route of an already-routed order
// returns the existing tasks untouched.
func (s *RoutingService) Route(ctx context.Context, order *domain.ConfirmedOrder) (*RoutingResultDTO, error) {
	count, err := s.repo.CountByOrder(ctx, order.OrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to check routing state", "orderId", order.OrderID)
		return nil, fmt.Errorf("failed to check routing state: %w", err)
	}
	if count > 0 {
		existing, err := s.repo.FindByOrder(ctx, order.OrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to load routed tasks: %w", err)
		}
		s.logger.Info("Order already routed", "orderId", order.OrderID, "taskCount", len(existing))
		return buildRoutingResult(order.OrderID, existing, nil, nil, true), nil
	}

	var (
		tasks    []*domain.PrepTask
		outcomes []LineOutcomeDTO
		warnings []string
	)

	for _, line := range order.Lines {
		lineTasks, outcome, lineWarnings := s.routeLine(ctx, order.OrderID, line)
		tasks = append(tasks, lineTasks...)
		outcomes = append(outcomes, outcome)
		warnings = append(warnings, lineWarnings...)
	}

	if len(tasks) > 0 {
		if err := s.repo.SaveBatch(ctx, tasks); err != nil {
			s.logger.WithError(err).Error("Failed to persist routed tasks", "orderId", order.OrderID)
			return nil, fmt.Errorf("failed to persist routed tasks: %w", err)
		}
	}

	for _, task := range tasks {
		s.metrics.RecordTaskRouted(string(task.Station), task.InferredStation)
		s.feed.PublishTask(task.Station, task, "task.created")
	}

	s.logger.Info("Order routed", "orderId", order.OrderID, "taskCount", len(tasks), "warnings", len(warnings))

	return buildRoutingResult(order.OrderID, tasks, outcomes, warnings, false), nil
}

// routeLine produces the tasks for one order line. Anomalies never fail the
// order: they produce a skipped outcome and a warning instead.
func (s *RoutingService) routeLine(ctx context.Context, orderID string, line domain.OrderLine) ([]*domain.PrepTask, LineOutcomeDTO, []string) {
	outcome := LineOutcomeDTO{OrderLineID: line.LineID}

	if line.Removed {
		outcome.Skipped = true
		outcome.Reason = "line removed before routing"
		return nil, outcome, nil
	}

	item, err := s.catalog.GetItem(ctx, line.ItemID)
	if err != nil || item == nil {
		s.logger.WithError(err).Warn("Catalog lookup failed, skipping line", "orderId", orderID, "lineId", line.LineID, "itemId", line.ItemID)
		s.metrics.RecordRoutingLineError("catalog_lookup")
		outcome.Skipped = true
		outcome.Reason = "catalog item unavailable"
		return nil, outcome, []string{fmt.Sprintf("line %s: catalog item %s unavailable", line.LineID, line.ItemID)}
	}

	expanded := domain.ExpandLine(line, *item)
	if len(expanded) == 0 {
		s.logger.Warn("Bundle has no constituents, skipping line", "orderId", orderID, "lineId", line.LineID, "itemId", line.ItemID)
		s.metrics.RecordRoutingLineError("empty_bundle")
		outcome.Skipped = true
		outcome.Reason = "bundle has no constituents"
		return nil, outcome, []string{fmt.Sprintf("line %s: bundle %s has no constituents", line.LineID, item.ID)}
	}

	var (
		tasks    []*domain.PrepTask
		warnings []string
	)
	for _, entry := range expanded {
		classification := domain.ClassifyItem(entry.Item)
		if classification.Inferred {
			s.logger.Warn("Station inferred by default", "orderId", orderID, "lineId", entry.LineID, "itemName", entry.Item.Name)
		}
		for _, station := range classification.Stations {
			task, err := domain.NewPrepTask(orderID, entry.LineID, entry.BundleLineID, station, entry.Item.Name, entry.Quantity, entry.Notes, classification.Inferred)
			if err != nil {
				s.logger.WithError(err).Warn("Skipping invalid task", "orderId", orderID, "lineId", entry.LineID)
				s.metrics.RecordRoutingLineError("invalid_task")
				warnings = append(warnings, fmt.Sprintf("line %s: %v", entry.LineID, err))
				continue
			}
			tasks = append(tasks, task)
			outcome.TaskIDs = append(outcome.TaskIDs, task.ID)
		}
	}

	if len(tasks) == 0 {
		outcome.Skipped = true
		outcome.Reason = "no routable tasks"
	}

	return tasks, outcome, warnings
}

func buildRoutingResult(orderID string, tasks []*domain.PrepTask, outcomes []LineOutcomeDTO, warnings []string, alreadyRouted bool) *RoutingResultDTO {
	perStation := make(map[string]int)
	for _, task := range tasks {
		perStation[string(task.Station)]++
	}

	return &RoutingResultDTO{
		OrderID:         orderID,
		TaskCount:       len(tasks),
		TasksPerStation: perStation,
		Lines:           outcomes,
		AlreadyRouted:   alreadyRouted,
		Warnings:        warnings,
	}
}
