package application

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/beerhive/fulfillment/pkg/errors"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/metrics"
)

// ConfirmationService coordinates the order confirmation flow: inventory
// check, stock deduction, order store confirmation, then routing. Routing
// failure is deliberately non-fatal: the order stays confirmed and the
// failure surfaces as a warning for staff to re-route.
type ConfirmationService struct {
	inventory InventoryService
	orders    OrderStore
	routing   *RoutingService
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewConfirmationService creates a new ConfirmationService
func NewConfirmationService(
	inventory InventoryService,
	orders OrderStore,
	routing *RoutingService,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ConfirmationService {
	return &ConfirmationService{
		inventory: inventory,
		orders:    orders,
		routing:   routing,
		logger:    logger,
		metrics:   m,
	}
}

// Confirm runs the full confirmation flow for an order
func (s *ConfirmationService) Confirm(ctx context.Context, cmd ConfirmOrderCommand) (*ConfirmationResultDTO, error) {
	order, err := s.orders.GetConfirmedOrder(ctx, cmd.OrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch order", "orderId", cmd.OrderID)
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil {
		return nil, apperrors.ErrNotFound("order")
	}

	availability, err := s.inventory.CheckAvailability(ctx, order)
	if err != nil {
		s.logger.WithError(err).Error("Inventory availability check failed", "orderId", order.OrderID)
		return nil, fmt.Errorf("inventory availability check failed: %w", err)
	}
	if !availability.Available {
		s.metrics.RecordOrderConfirmed("rejected_stock")
		return nil, apperrors.ErrUnprocessable(fmt.Sprintf(
			"insufficient stock for items: %s", strings.Join(availability.InsufficientItems, ", ")))
	}

	if err := s.inventory.Deduct(ctx, order); err != nil {
		s.logger.WithError(err).Error("Inventory deduction failed", "orderId", order.OrderID)
		return nil, fmt.Errorf("inventory deduction failed: %w", err)
	}

	if err := s.orders.MarkConfirmed(ctx, order.OrderID); err != nil {
		s.logger.WithError(err).Error("Failed to mark order confirmed", "orderId", order.OrderID)
		return nil, fmt.Errorf("failed to mark order confirmed: %w", err)
	}

	result := &ConfirmationResultDTO{
		OrderID:         order.OrderID,
		Confirmed:       true,
		TasksPerStation: map[string]int{},
	}

	// routing failure must never unwind the confirmation above
	routingResult, err := s.routing.Route(ctx, order)
	if err != nil {
		s.logger.WithError(err).Error("Routing failed after confirmation, order needs re-route", "orderId", order.OrderID)
		s.metrics.RecordOrderConfirmed("routing_failed")
		result.RoutingWarnings = append(result.RoutingWarnings,
			fmt.Sprintf("routing failed, re-route required: %v", err))
		return result, nil
	}

	result.TaskCount = routingResult.TaskCount
	result.TasksPerStation = routingResult.TasksPerStation
	result.RoutingWarnings = routingResult.Warnings

	status := "routed"
	if len(routingResult.Warnings) > 0 {
		status = "routed_with_warnings"
	}
	s.metrics.RecordOrderConfirmed(status)

	s.logger.Info("Order confirmed",
		"orderId", order.OrderID,
		"taskCount", result.TaskCount,
		"warnings", len(result.RoutingWarnings))

	return result, nil
}
