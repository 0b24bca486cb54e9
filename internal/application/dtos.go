package application

import "time"

// TaskDTO represents a preparation task data transfer object
type TaskDTO struct {
	TaskID          string     `json:"taskId"`
	OrderID         string     `json:"orderId"`
	OrderLineID     string     `json:"orderLineId"`
	BundleLineID    string     `json:"bundleLineId,omitempty"`
	Station         string     `json:"station"`
	ItemName        string     `json:"itemName"`
	Quantity        int        `json:"quantity"`
	Notes           string     `json:"notes,omitempty"`
	State           string     `json:"state"`
	Priority        bool       `json:"priority"`
	AssignedTo      string     `json:"assignedTo,omitempty"`
	InferredStation bool       `json:"inferredStation"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	ReadyAt         *time.Time `json:"readyAt,omitempty"`
	ServedAt        *time.Time `json:"servedAt,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
}

// LineOutcomeDTO reports the routing result for one order line
type LineOutcomeDTO struct {
	OrderLineID string   `json:"orderLineId"`
	TaskIDs     []string `json:"taskIds"`
	Skipped     bool     `json:"skipped"`
	Reason      string   `json:"reason,omitempty"`
}

// RoutingResultDTO is the outcome of routing one confirmed order
type RoutingResultDTO struct {
	OrderID         string           `json:"orderId"`
	TaskCount       int              `json:"taskCount"`
	TasksPerStation map[string]int   `json:"tasksPerStation"`
	Lines           []LineOutcomeDTO `json:"lines"`
	AlreadyRouted   bool             `json:"alreadyRouted"`
	Warnings        []string         `json:"warnings,omitempty"`
}

// ConfirmationResultDTO is the outcome of the full order confirmation flow
type ConfirmationResultDTO struct {
	OrderID         string         `json:"orderId"`
	Confirmed       bool           `json:"confirmed"`
	TaskCount       int            `json:"taskCount"`
	TasksPerStation map[string]int `json:"tasksPerStation"`
	RoutingWarnings []string       `json:"routingWarnings,omitempty"`
}

// CancellationResultDTO reports which tasks a line cancellation touched
type CancellationResultDTO struct {
	OrderLineID    string    `json:"orderLineId"`
	CancelledTasks []TaskDTO `json:"cancelledTasks"`
	SkippedTasks   []TaskDTO `json:"skippedTasks"`
}
