package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/beerhive/fulfillment/internal/application"
	"github.com/beerhive/fulfillment/pkg/errors"
	"github.com/beerhive/fulfillment/pkg/logging"
)

type mockConfirmationService struct {
	confirmFn func(ctx context.Context, cmd application.ConfirmOrderCommand) (*application.ConfirmationResultDTO, error)
}

func (m *mockConfirmationService) Confirm(ctx context.Context, cmd application.ConfirmOrderCommand) (*application.ConfirmationResultDTO, error) {
	if m.confirmFn == nil {
		panic("Confirm not implemented")
	}
	return m.confirmFn(ctx, cmd)
}

type mockRoutingService struct {
	routeOrderFn func(ctx context.Context, cmd application.RouteOrderCommand) (*application.RoutingResultDTO, error)
}

func (m *mockRoutingService) RouteOrder(ctx context.Context, cmd application.RouteOrderCommand) (*application.RoutingResultDTO, error) {
	if m.routeOrderFn == nil {
		panic("RouteOrder not implemented")
	}
	return m.routeOrderFn(ctx, cmd)
}

type mockLineCancellationService struct {
	cancelForOrderLineFn func(ctx context.Context, cmd application.CancelOrderLineCommand) (*application.CancellationResultDTO, error)
}

func (m *mockLineCancellationService) CancelForOrderLine(ctx context.Context, cmd application.CancelOrderLineCommand) (*application.CancellationResultDTO, error) {
	if m.cancelForOrderLineFn == nil {
		panic("CancelForOrderLine not implemented")
	}
	return m.cancelForOrderLineFn(ctx, cmd)
}

func newOrderRouter(confirmation ConfirmationService, routing RoutingService, cancellation LineCancellationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logging.New(logging.DefaultConfig("test"))
	handlers := NewOrderHandlers(confirmation, routing, cancellation, logger)
	handlers.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func performRequest(router *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOrderHandlers_ConfirmOrder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		confirmation := &mockConfirmationService{
			confirmFn: func(ctx context.Context, cmd application.ConfirmOrderCommand) (*application.ConfirmationResultDTO, error) {
				if cmd.OrderID != "ord-1" {
					t.Fatalf("OrderID = %s", cmd.OrderID)
				}
				return &application.ConfirmationResultDTO{OrderID: cmd.OrderID, Confirmed: true, TaskCount: 2}, nil
			},
		}
		router := newOrderRouter(confirmation, nil, nil)
		rec := performRequest(router, http.MethodPost, "/api/v1/orders/ord-1/confirm", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"confirmed":true`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("insufficient stock", func(t *testing.T) {
		confirmation := &mockConfirmationService{
			confirmFn: func(ctx context.Context, cmd application.ConfirmOrderCommand) (*application.ConfirmationResultDTO, error) {
				return nil, errors.ErrUnprocessable("insufficient stock for items: beer-keg")
			},
		}
		router := newOrderRouter(confirmation, nil, nil)
		rec := performRequest(router, http.MethodPost, "/api/v1/orders/ord-2/confirm", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("order not found", func(t *testing.T) {
		confirmation := &mockConfirmationService{
			confirmFn: func(ctx context.Context, cmd application.ConfirmOrderCommand) (*application.ConfirmationResultDTO, error) {
				return nil, errors.ErrNotFound("order")
			},
		}
		router := newOrderRouter(confirmation, nil, nil)
		rec := performRequest(router, http.MethodPost, "/api/v1/orders/ord-404/confirm", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("internal error", func(t *testing.T) {
		confirmation := &mockConfirmationService{
			confirmFn: func(ctx context.Context, cmd application.ConfirmOrderCommand) (*application.ConfirmationResultDTO, error) {
				return nil, fmt.Errorf("boom")
			},
		}
		router := newOrderRouter(confirmation, nil, nil)
		rec := performRequest(router, http.MethodPost, "/api/v1/orders/ord-3/confirm", "")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestOrderHandlers_RouteOrder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		routing := &mockRoutingService{
			routeOrderFn: func(ctx context.Context, cmd application.RouteOrderCommand) (*application.RoutingResultDTO, error) {
				if cmd.OrderID != "ord-4" {
					t.Fatalf("OrderID = %s", cmd.OrderID)
				}
				return &application.RoutingResultDTO{OrderID: cmd.OrderID, TaskCount: 3}, nil
			},
		}
		router := newOrderRouter(nil, routing, nil)
		rec := performRequest(router, http.MethodPost, "/api/v1/orders/ord-4/route", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"taskCount":3`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("already routed is still ok", func(t *testing.T) {
		routing := &mockRoutingService{
			routeOrderFn: func(ctx context.Context, cmd application.RouteOrderCommand) (*application.RoutingResultDTO, error) {
				return &application.RoutingResultDTO{OrderID: cmd.OrderID, TaskCount: 3, AlreadyRouted: true}, nil
			},
		}
		router := newOrderRouter(nil, routing, nil)
		rec := performRequest(router, http.MethodPost, "/api/v1/orders/ord-4/route", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"alreadyRouted":true`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("order not found", func(t *testing.T) {
		routing := &mockRoutingService{
			routeOrderFn: func(ctx context.Context, cmd application.RouteOrderCommand) (*application.RoutingResultDTO, error) {
				return nil, errors.ErrNotFound("order")
			},
		}
		router := newOrderRouter(nil, routing, nil)
		rec := performRequest(router, http.MethodPost, "/api/v1/orders/ord-404/route", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestOrderHandlers_CancelOrderLine(t *testing.T) {
	t.Run("success with reason", func(t *testing.T) {
		cancellation := &mockLineCancellationService{
			cancelForOrderLineFn: func(ctx context.Context, cmd application.CancelOrderLineCommand) (*application.CancellationResultDTO, error) {
				if cmd.OrderLineID != "line-1" || cmd.Reason != "customer walked out" {
					t.Fatalf("unexpected command: %+v", cmd)
				}
				return &application.CancellationResultDTO{OrderLineID: cmd.OrderLineID}, nil
			},
		}
		router := newOrderRouter(nil, nil, cancellation)
		rec := performRequest(router, http.MethodPost, "/api/v1/order-lines/line-1/cancel", `{"reason":"customer walked out"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("empty body is accepted", func(t *testing.T) {
		cancellation := &mockLineCancellationService{
			cancelForOrderLineFn: func(ctx context.Context, cmd application.CancelOrderLineCommand) (*application.CancellationResultDTO, error) {
				if cmd.Reason != "" {
					t.Fatalf("Reason = %s", cmd.Reason)
				}
				return &application.CancellationResultDTO{OrderLineID: cmd.OrderLineID}, nil
			},
		}
		router := newOrderRouter(nil, nil, cancellation)
		rec := performRequest(router, http.MethodPost, "/api/v1/order-lines/line-2/cancel", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("bad json", func(t *testing.T) {
		cancellation := &mockLineCancellationService{
			cancelForOrderLineFn: func(ctx context.Context, cmd application.CancelOrderLineCommand) (*application.CancellationResultDTO, error) {
				return nil, nil
			},
		}
		router := newOrderRouter(nil, nil, cancellation)
		rec := performRequest(router, http.MethodPost, "/api/v1/order-lines/line-3/cancel", `{"reason":}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}
