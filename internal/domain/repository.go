package domain

import "context"

// TaskFilter narrows station feed queries
type TaskFilter struct {
	// States restricts the result to the given states; empty means the
	// default active set (pending, preparing, cancelled)
	States []TaskState
	// IncludeDone widens the default set with served tasks
	IncludeDone bool
}

// TaskRepository defines the persistence interface for preparation tasks
type TaskRepository interface {
	// SaveBatch persists all tasks atomically together with their domain
	// events so station displays never observe a partial order
	SaveBatch(ctx context.Context, tasks []*PrepTask) error

	// Update persists a task mutation. expectedState guards against
	// concurrent transitions: the write only applies if the stored state
	// still matches, otherwise ErrConcurrentTransition is returned.
	Update(ctx context.Context, task *PrepTask, expectedState TaskState) error

	FindByID(ctx context.Context, id string) (*PrepTask, error)
	FindByOrder(ctx context.Context, orderID string) ([]*PrepTask, error)

	// FindByOrderLine matches tasks by order-line id or bundle-line id
	FindByOrderLine(ctx context.Context, orderLineID string) ([]*PrepTask, error)

	// FindByStation lists tasks for one station, priority first then
	// oldest first
	FindByStation(ctx context.Context, station Station, filter TaskFilter) ([]*PrepTask, error)

	// CountByOrder reports how many tasks exist for an order, used as the
	// routing idempotency guard
	CountByOrder(ctx context.Context, orderID string) (int64, error)

	// DeleteCancelled physically removes the given tasks, skipping any
	// whose state is no longer cancelled, and returns how many were removed
	DeleteCancelled(ctx context.Context, taskIDs []string) (int64, error)

	// DeleteTask physically removes a single terminal task
	DeleteTask(ctx context.Context, task *PrepTask) error
}
