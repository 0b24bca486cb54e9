package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task errors
var (
	ErrSameState            = errors.New("task is already in the requested state")
	ErrInvalidStation       = errors.New("invalid station")
	ErrInvalidTaskState     = errors.New("invalid task state")
	ErrTaskNotTerminal      = errors.New("task is not in a terminal state and cannot be deleted")
	ErrInvalidQuantity      = errors.New("task quantity must be positive")
	ErrConcurrentTransition = errors.New("task was modified by a concurrent transition")
)

// TaskState represents the lifecycle state of a preparation task
type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStatePreparing TaskState = "preparing"
	TaskStateReady     TaskState = "ready"
	TaskStateServed    TaskState = "served"
	TaskStateCancelled TaskState = "cancelled"
)

// IsValid checks if the task state is valid
func (s TaskState) IsValid() bool {
	switch s {
	case TaskStatePending, TaskStatePreparing, TaskStateReady, TaskStateServed, TaskStateCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are accepted from this state
func (s TaskState) IsTerminal() bool {
	return s == TaskStateServed || s == TaskStateCancelled
}

// legalTransitions is the single enforcement point for the task state machine
var legalTransitions = map[TaskState][]TaskState{
	TaskStatePending:   {TaskStatePreparing, TaskStateCancelled},
	TaskStatePreparing: {TaskStateReady, TaskStateCancelled},
	TaskStateReady:     {TaskStateServed},
	TaskStateServed:    {},
	TaskStateCancelled: {},
}

// CanTransition reports whether from → to is in the legal transition table
func CanTransition(from, to TaskState) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionReason classifies why a transition was rejected
type TransitionReason string

const (
	// TransitionReasonTerminal means the task already reached served or cancelled
	TransitionReasonTerminal TransitionReason = "terminal"
	// TransitionReasonOutOfOrder means the target skips or reverses the lifecycle order
	TransitionReasonOutOfOrder TransitionReason = "out_of_order"
)

// TransitionError is returned for transitions outside the legal table
type TransitionError struct {
	TaskID string
	From   TaskState
	To     TaskState
	Reason TransitionReason
}

// Error implements the error interface
func (e *TransitionError) Error() string {
	if e.Reason == TransitionReasonTerminal {
		return fmt.Sprintf("task %s is in terminal state %s and cannot transition to %s", e.TaskID, e.From, e.To)
	}
	return fmt.Sprintf("task %s cannot transition from %s to %s", e.TaskID, e.From, e.To)
}

// AsTransitionError extracts a TransitionError from an error chain
func AsTransitionError(err error) (*TransitionError, bool) {
	var tErr *TransitionError
	if errors.As(err, &tErr) {
		return tErr, true
	}
	return nil, false
}

// PrepTask is the preparation task aggregate. One task is the unit of work a
// single station performs for one (expanded) order line.
type PrepTask struct {
	ID              string        `bson:"_id"`
	OrderID         string        `bson:"orderId"`
	OrderLineID     string        `bson:"orderLineId"`
	BundleLineID    string        `bson:"bundleLineId,omitempty"`
	Station         Station       `bson:"station"`
	ItemName        string        `bson:"itemName"`
	Quantity        int           `bson:"quantity"`
	Notes           string        `bson:"notes,omitempty"`
	State           TaskState     `bson:"state"`
	Priority        bool          `bson:"priority"`
	AssignedTo      string        `bson:"assignedTo,omitempty"`
	InferredStation bool          `bson:"inferredStation"`
	CreatedAt       time.Time     `bson:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt"`
	StartedAt       *time.Time    `bson:"startedAt,omitempty"`
	ReadyAt         *time.Time    `bson:"readyAt,omitempty"`
	ServedAt        *time.Time    `bson:"servedAt,omitempty"`
	CancelledAt     *time.Time    `bson:"cancelledAt,omitempty"`
	DomainEvents    []DomainEvent `bson:"-"`
}

// NewPrepTask creates a new PrepTask aggregate in the pending state
func NewPrepTask(orderID, orderLineID, bundleLineID string, station Station, itemName string, quantity int, notes string, inferred bool) (*PrepTask, error) {
	if !station.IsValid() {
		return nil, ErrInvalidStation
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	now := time.Now()
	task := &PrepTask{
		ID:              "task-" + uuid.New().String(),
		OrderID:         orderID,
		OrderLineID:     orderLineID,
		BundleLineID:    bundleLineID,
		Station:         station,
		ItemName:        itemName,
		Quantity:        quantity,
		Notes:           notes,
		State:           TaskStatePending,
		InferredStation: inferred,
		CreatedAt:       now,
		UpdatedAt:       now,
		DomainEvents:    make([]DomainEvent, 0),
	}

	task.AddDomainEvent(&TaskCreatedEvent{
		TaskID:       task.ID,
		OrderID:      orderID,
		OrderLineID:  orderLineID,
		BundleLineID: bundleLineID,
		Station:      string(station),
		ItemName:     itemName,
		Quantity:     quantity,
		Inferred:     inferred,
		CreatedAt:    now,
	})

	return task, nil
}

// IsBundleDerived reports whether this task was produced by bundle expansion
func (t *PrepTask) IsBundleDerived() bool {
	return t.BundleLineID != ""
}

// guard validates a requested transition against the legal table
func (t *PrepTask) guard(target TaskState) error {
	if t.State == target {
		return ErrSameState
	}
	if t.State.IsTerminal() {
		return &TransitionError{TaskID: t.ID, From: t.State, To: target, Reason: TransitionReasonTerminal}
	}
	if !CanTransition(t.State, target) {
		return &TransitionError{TaskID: t.ID, From: t.State, To: target, Reason: TransitionReasonOutOfOrder}
	}
	return nil
}

// Start moves the task from pending to preparing
func (t *PrepTask) Start(actor string) error {
	if err := t.guard(TaskStatePreparing); err != nil {
		return err
	}

	now := time.Now()
	t.State = TaskStatePreparing
	t.AssignedTo = actor
	t.StartedAt = &now
	t.UpdatedAt = now

	t.AddDomainEvent(&TaskStartedEvent{
		TaskID:    t.ID,
		OrderID:   t.OrderID,
		Station:   string(t.Station),
		Actor:     actor,
		StartedAt: now,
	})

	return nil
}

// MarkReady moves the task from preparing to ready
func (t *PrepTask) MarkReady(actor string) error {
	if err := t.guard(TaskStateReady); err != nil {
		return err
	}

	now := time.Now()
	t.State = TaskStateReady
	t.AssignedTo = actor
	t.ReadyAt = &now
	t.UpdatedAt = now

	t.AddDomainEvent(&TaskReadyEvent{
		TaskID:  t.ID,
		OrderID: t.OrderID,
		Station: string(t.Station),
		Actor:   actor,
		ReadyAt: now,
	})

	return nil
}

// Serve moves the task from ready to served. Served is terminal.
func (t *PrepTask) Serve(actor string) error {
	if err := t.guard(TaskStateServed); err != nil {
		return err
	}

	now := time.Now()
	t.State = TaskStateServed
	t.AssignedTo = actor
	t.ServedAt = &now
	t.UpdatedAt = now

	t.AddDomainEvent(&TaskServedEvent{
		TaskID:   t.ID,
		OrderID:  t.OrderID,
		Station:  string(t.Station),
		Actor:    actor,
		ServedAt: now,
	})

	return nil
}

// Cancel moves the task to the terminal cancelled state. Only pending and
// preparing tasks can be cancelled; the task stays visible on the station
// display until explicitly cleared.
func (t *PrepTask) Cancel(reason string) error {
	if err := t.guard(TaskStateCancelled); err != nil {
		return err
	}

	now := time.Now()
	fromState := t.State
	t.State = TaskStateCancelled
	t.CancelledAt = &now
	t.UpdatedAt = now

	t.AddDomainEvent(&TaskCancelledEvent{
		TaskID:      t.ID,
		OrderID:     t.OrderID,
		Station:     string(t.Station),
		FromState:   string(fromState),
		Reason:      reason,
		CancelledAt: now,
	})

	return nil
}

// ApplyTransition dispatches to the transition method for the target state
func (t *PrepTask) ApplyTransition(target TaskState, actor string) error {
	switch target {
	case TaskStatePreparing:
		return t.Start(actor)
	case TaskStateReady:
		return t.MarkReady(actor)
	case TaskStateServed:
		return t.Serve(actor)
	case TaskStateCancelled:
		return t.Cancel("staff")
	default:
		return ErrInvalidTaskState
	}
}

// SetPriority updates the urgent flag
func (t *PrepTask) SetPriority(priority bool) {
	if t.Priority == priority {
		return
	}

	old := t.Priority
	t.Priority = priority
	t.UpdatedAt = time.Now()

	t.AddDomainEvent(&TaskPriorityChangedEvent{
		TaskID:      t.ID,
		Station:     string(t.Station),
		OldPriority: old,
		NewPriority: priority,
		ChangedAt:   t.UpdatedAt,
	})
}

// AddDomainEvent adds a domain event
func (t *PrepTask) AddDomainEvent(event DomainEvent) {
	t.DomainEvents = append(t.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (t *PrepTask) ClearDomainEvents() {
	t.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (t *PrepTask) GetDomainEvents() []DomainEvent {
	return t.DomainEvents
}

// PrepTask Domain Events

// TaskCreatedEvent is emitted when a task is routed to a station
type TaskCreatedEvent struct {
	TaskID       string    `json:"taskId"`
	OrderID      string    `json:"orderId"`
	OrderLineID  string    `json:"orderLineId"`
	BundleLineID string    `json:"bundleLineId,omitempty"`
	Station      string    `json:"station"`
	ItemName     string    `json:"itemName"`
	Quantity     int       `json:"quantity"`
	Inferred     bool      `json:"inferredStation"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (e *TaskCreatedEvent) EventType() string     { return "task.created" }
func (e *TaskCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// TaskStartedEvent is emitted when preparation begins
type TaskStartedEvent struct {
	TaskID    string    `json:"taskId"`
	OrderID   string    `json:"orderId"`
	Station   string    `json:"station"`
	Actor     string    `json:"actor"`
	StartedAt time.Time `json:"startedAt"`
}

func (e *TaskStartedEvent) EventType() string     { return "task.started" }
func (e *TaskStartedEvent) OccurredAt() time.Time { return e.StartedAt }

// TaskReadyEvent is emitted when preparation completes
type TaskReadyEvent struct {
	TaskID  string    `json:"taskId"`
	OrderID string    `json:"orderId"`
	Station string    `json:"station"`
	Actor   string    `json:"actor"`
	ReadyAt time.Time `json:"readyAt"`
}

func (e *TaskReadyEvent) EventType() string     { return "task.ready" }
func (e *TaskReadyEvent) OccurredAt() time.Time { return e.ReadyAt }

// TaskServedEvent is emitted when the prepared item is handed off
type TaskServedEvent struct {
	TaskID   string    `json:"taskId"`
	OrderID  string    `json:"orderId"`
	Station  string    `json:"station"`
	Actor    string    `json:"actor"`
	ServedAt time.Time `json:"servedAt"`
}

func (e *TaskServedEvent) EventType() string     { return "task.served" }
func (e *TaskServedEvent) OccurredAt() time.Time { return e.ServedAt }

// TaskCancelledEvent is emitted when a task is cancelled
type TaskCancelledEvent struct {
	TaskID      string    `json:"taskId"`
	OrderID     string    `json:"orderId"`
	Station     string    `json:"station"`
	FromState   string    `json:"fromState"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *TaskCancelledEvent) EventType() string     { return "task.cancelled" }
func (e *TaskCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// TaskPriorityChangedEvent is emitted when the urgent flag changes
type TaskPriorityChangedEvent struct {
	TaskID      string    `json:"taskId"`
	Station     string    `json:"station"`
	OldPriority bool      `json:"oldPriority"`
	NewPriority bool      `json:"newPriority"`
	ChangedAt   time.Time `json:"changedAt"`
}

func (e *TaskPriorityChangedEvent) EventType() string     { return "task.priority.changed" }
func (e *TaskPriorityChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// TaskRemovedEvent is emitted when a terminal task is physically deleted
type TaskRemovedEvent struct {
	TaskID    string    `json:"taskId"`
	OrderID   string    `json:"orderId"`
	Station   string    `json:"station"`
	State     string    `json:"state"`
	RemovedAt time.Time `json:"removedAt"`
}

func (e *TaskRemovedEvent) EventType() string     { return "task.removed" }
func (e *TaskRemovedEvent) OccurredAt() time.Time { return e.RemovedAt }
