package cloudevents

import (
	"time"
)

// EventType constants for fulfillment domain events
const (
	// Task lifecycle events
	TaskCreated         = "fulfillment.task.created"
	TaskStarted         = "fulfillment.task.started"
	TaskReady           = "fulfillment.task.ready"
	TaskServed          = "fulfillment.task.served"
	TaskCancelled       = "fulfillment.task.cancelled"
	TaskPriorityChanged = "fulfillment.task.priority-changed"
	TaskRemoved         = "fulfillment.task.removed"

	// Routing events
	OrderRouted = "fulfillment.order.routed"

	// Order events
	OrderConfirmed = "fulfillment.order.confirmed"
)

// Source constants for event sources
const (
	SourceFulfillment = "/beerhive/fulfillment-service"
)

// FulfillmentCloudEvent represents a CloudEvents v1.0 compliant event
type FulfillmentCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Fulfillment-specific extensions
	CorrelationID string `json:"fulfillmentcorrelationid,omitempty"`
	OrderID       string `json:"fulfillmentorderid,omitempty"`
	Station       string `json:"fulfillmentstation,omitempty"`

	// W3C Trace Context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// TaskCreatedData represents the data payload for TaskCreated events
type TaskCreatedData struct {
	TaskID       string `json:"taskId"`
	OrderID      string `json:"orderId"`
	OrderLineID  string `json:"orderLineId"`
	BundleLineID string `json:"bundleLineId,omitempty"`
	Station      string `json:"station"`
	ItemName     string `json:"itemName"`
	Quantity     int    `json:"quantity"`
	Priority     bool   `json:"priority"`
	Inferred     bool   `json:"inferredStation"`
}

// TaskTransitionData represents the data payload for task lifecycle events
type TaskTransitionData struct {
	TaskID    string    `json:"taskId"`
	OrderID   string    `json:"orderId"`
	Station   string    `json:"station"`
	FromState string    `json:"fromState"`
	ToState   string    `json:"toState"`
	At        time.Time `json:"at"`
}

// TaskPriorityChangedData represents the data payload for TaskPriorityChanged events
type TaskPriorityChangedData struct {
	TaskID      string `json:"taskId"`
	Station     string `json:"station"`
	OldPriority bool   `json:"oldPriority"`
	NewPriority bool   `json:"newPriority"`
}

// OrderRoutedData represents the data payload for OrderRouted events
type OrderRoutedData struct {
	OrderID         string         `json:"orderId"`
	TaskCount       int            `json:"taskCount"`
	TasksPerStation map[string]int `json:"tasksPerStation"`
	FailedLines     []string       `json:"failedLines,omitempty"`
}
