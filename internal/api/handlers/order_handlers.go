package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/beerhive/fulfillment/internal/application"
	"github.com/beerhive/fulfillment/pkg/errors"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/middleware"
)

// ConfirmationService confirms orders and triggers routing
type ConfirmationService interface {
	Confirm(ctx context.Context, cmd application.ConfirmOrderCommand) (*application.ConfirmationResultDTO, error)
}

// RoutingService routes confirmed orders into prep tasks
type RoutingService interface {
	RouteOrder(ctx context.Context, cmd application.RouteOrderCommand) (*application.RoutingResultDTO, error)
}

// LineCancellationService propagates order line removals to routed tasks
type LineCancellationService interface {
	CancelForOrderLine(ctx context.Context, cmd application.CancelOrderLineCommand) (*application.CancellationResultDTO, error)
}

// OrderHandlers contains handlers for order confirmation and routing
type OrderHandlers struct {
	confirmation ConfirmationService
	routing      RoutingService
	cancellation LineCancellationService
	logger       *logging.Logger
}

// NewOrderHandlers creates a new OrderHandlers
func NewOrderHandlers(confirmation ConfirmationService, routing RoutingService, cancellation LineCancellationService, logger *logging.Logger) *OrderHandlers {
	return &OrderHandlers{
		confirmation: confirmation,
		routing:      routing,
		cancellation: cancellation,
		logger:       logger,
	}
}

// RegisterRoutes registers order routes on the router
func (h *OrderHandlers) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/orders")
	{
		orders.POST("/:orderId/confirm", h.ConfirmOrder)
		orders.POST("/:orderId/route", h.RouteOrder)
	}
	router.POST("/order-lines/:lineId/cancel", h.CancelOrderLine)
}

// ConfirmOrder handles the full confirmation flow for a sales order
func (h *OrderHandlers) ConfirmOrder(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	orderID := c.Param("orderId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"order.id": orderID,
	})

	cmd := application.ConfirmOrderCommand{OrderID: orderID}

	result, err := h.confirmation.Confirm(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// RouteOrder handles routing a confirmed order without the confirmation flow
func (h *OrderHandlers) RouteOrder(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	orderID := c.Param("orderId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"order.id": orderID,
	})

	cmd := application.RouteOrderCommand{OrderID: orderID}

	result, err := h.routing.RouteOrder(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelOrderLine handles cancelling all tasks routed from an order line
func (h *OrderHandlers) CancelOrderLine(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	lineID := c.Param("lineId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"orderLine.id": lineID,
	})

	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	cmd := application.CancelOrderLineCommand{
		OrderLineID: lineID,
		Reason:      req.Reason,
	}

	result, err := h.cancellation.CancelForOrderLine(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
