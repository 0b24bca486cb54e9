package application

import (
	"context"

	"github.com/beerhive/fulfillment/internal/domain"
)

// CatalogLookup resolves catalog items, including bundle constituents and
// category metadata. Backed by the external catalog service.
type CatalogLookup interface {
	GetItem(ctx context.Context, itemID string) (*domain.CatalogItem, error)
}

// InventoryService is the external stock bookkeeping boundary
type InventoryService interface {
	// CheckAvailability reports whether all lines can be fulfilled. A
	// non-nil InsufficientItems means the order must not be confirmed.
	CheckAvailability(ctx context.Context, order *domain.ConfirmedOrder) (*AvailabilityResult, error)
	// Deduct commits the stock deduction for a confirmed order
	Deduct(ctx context.Context, order *domain.ConfirmedOrder) error
}

// AvailabilityResult is the inventory check outcome
type AvailabilityResult struct {
	Available         bool     `json:"available"`
	InsufficientItems []string `json:"insufficientItems,omitempty"`
}

// OrderStore is the external sales order system boundary
type OrderStore interface {
	// GetConfirmedOrder fetches the order payload to route; returns
	// (nil, nil) when the order does not exist
	GetConfirmedOrder(ctx context.Context, orderID string) (*domain.ConfirmedOrder, error)
	// MarkConfirmed records the confirmation in the order store
	MarkConfirmed(ctx context.Context, orderID string) error
}

// FeedPublisher pushes task notifications to station display subscribers
type FeedPublisher interface {
	PublishTask(station domain.Station, task *domain.PrepTask, eventType string)
	PublishRemoval(station domain.Station, taskID string)
}
