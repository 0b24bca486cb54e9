package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for fulfillment domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new FulfillmentCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *FulfillmentCloudEvent {
	return &FulfillmentCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// CreateEventWithCorrelation creates an event with correlation tracking
func (f *EventFactory) CreateEventWithCorrelation(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	correlationID string,
) *FulfillmentCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.CorrelationID = correlationID
	return event
}

// CreateTaskEvent creates a task lifecycle event with the order and station
// extensions populated
func (f *EventFactory) CreateTaskEvent(
	ctx context.Context,
	eventType string,
	taskID string,
	orderID string,
	station string,
	data interface{},
) *FulfillmentCloudEvent {
	event := f.CreateEvent(ctx, eventType, "task/"+taskID, data)
	event.OrderID = orderID
	event.Station = station
	return event
}

// CreateOrderRoutedEvent creates an OrderRouted event
func (f *EventFactory) CreateOrderRoutedEvent(
	ctx context.Context,
	orderID string,
	taskCount int,
	tasksPerStation map[string]int,
	failedLines []string,
) *FulfillmentCloudEvent {
	data := OrderRoutedData{
		OrderID:         orderID,
		TaskCount:       taskCount,
		TasksPerStation: tasksPerStation,
		FailedLines:     failedLines,
	}
	event := f.CreateEvent(ctx, OrderRouted, "order/"+orderID, data)
	event.OrderID = orderID
	return event
}
