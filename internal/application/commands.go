package application

// ConfirmOrderCommand triggers the full confirmation flow for an order
type ConfirmOrderCommand struct {
	OrderID string `json:"orderId"`
}

// RouteOrderCommand triggers routing for an already-confirmed order
type RouteOrderCommand struct {
	OrderID string `json:"orderId"`
}

// TransitionTaskCommand requests a lifecycle transition for one task
type TransitionTaskCommand struct {
	TaskID      string `json:"taskId"`
	TargetState string `json:"targetState"`
	Actor       string `json:"actor"`
	Reason      string `json:"reason,omitempty"`
}

// SetTaskPriorityCommand toggles the urgent flag on one task
type SetTaskPriorityCommand struct {
	TaskID   string `json:"taskId"`
	Priority bool   `json:"priority"`
}

// CancelOrderLineCommand reports that an order line was removed after routing
type CancelOrderLineCommand struct {
	OrderLineID string `json:"orderLineId"`
	Reason      string `json:"reason,omitempty"`
}

// GetTaskQuery fetches a single task
type GetTaskQuery struct {
	TaskID string `json:"taskId"`
}

// ListStationTasksQuery lists the feed for one station.
// Filter accepts "active" (default), "all", or a comma-separated state list.
type ListStationTasksQuery struct {
	Station string `json:"station"`
	Filter  string `json:"filter,omitempty"`
}

// ClearCancelledCommand removes all cancelled tasks from one station display
type ClearCancelledCommand struct {
	Station string `json:"station"`
}

// RemoveTaskCommand removes a single terminal task from its station display
type RemoveTaskCommand struct {
	TaskID string `json:"taskId"`
}
