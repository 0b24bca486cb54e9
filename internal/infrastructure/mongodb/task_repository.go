package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beerhive/fulfillment/internal/domain"
	"github.com/beerhive/fulfillment/pkg/cloudevents"
	"github.com/beerhive/fulfillment/pkg/kafka"
	"github.com/beerhive/fulfillment/pkg/metrics"
	"github.com/beerhive/fulfillment/pkg/outbox"
	outboxMongo "github.com/beerhive/fulfillment/pkg/outbox/mongodb"
)

// TaskRepository implements domain.TaskRepository using MongoDB
type TaskRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	metrics      *metrics.Metrics
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, m *metrics.Metrics) *TaskRepository {
	collection := db.Collection("prep_tasks")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := &TaskRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
		metrics:      m,
	}
	repo.ensureIndexes(context.Background())

	_ = outboxRepo.EnsureIndexes(context.Background())

	return repo
}

// ensureIndexes creates the necessary indexes. The unique compound index on
// (orderId, orderLineId, station) is the storage-level backstop for routing
// idempotency.
func (r *TaskRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "orderId", Value: 1},
				{Key: "orderLineId", Value: 1},
				{Key: "station", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "station", Value: 1}, {Key: "state", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "orderId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "orderLineId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "bundleLineId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
		},
	}

	r.collection.Indexes().CreateMany(ctx, indexes)
}

// SaveBatch persists all tasks of one order in a single transaction together
// with their outbox events and an order-level routing summary event, so
// station displays never observe a partial order
func (r *TaskRepository) SaveBatch(ctx context.Context, tasks []*domain.PrepTask) error {
	if len(tasks) == 0 {
		return nil
	}

	start := time.Now()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		docs := make([]interface{}, len(tasks))
		for i, task := range tasks {
			docs[i] = task
		}
		if _, err := r.collection.InsertMany(sessCtx, docs); err != nil {
			return nil, fmt.Errorf("failed to insert tasks: %w", err)
		}

		outboxEvents := make([]*outbox.OutboxEvent, 0, len(tasks)+1)
		for _, task := range tasks {
			events, err := r.outboxEventsFor(sessCtx, task)
			if err != nil {
				return nil, err
			}
			outboxEvents = append(outboxEvents, events...)
		}

		routedEvent, err := r.orderRoutedOutboxEvent(sessCtx, tasks)
		if err != nil {
			return nil, err
		}
		outboxEvents = append(outboxEvents, routedEvent)

		if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
			return nil, fmt.Errorf("failed to save outbox events: %w", err)
		}

		for _, task := range tasks {
			task.ClearDomainEvents()
		}

		return nil, nil
	})

	r.metrics.RecordMongoDBOperation("prep_tasks", "insert_many", err == nil, time.Since(start))

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// Update persists a task mutation guarded by compare-and-swap on the stored
// state, serializing concurrent transitions on the same task
func (r *TaskRepository) Update(ctx context.Context, task *domain.PrepTask, expectedState domain.TaskState) error {
	start := time.Now()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		filter := bson.M{"_id": task.ID, "state": expectedState}
		result, err := r.collection.ReplaceOne(sessCtx, filter, task)
		if err != nil {
			return nil, fmt.Errorf("failed to update task: %w", err)
		}
		if result.MatchedCount == 0 {
			return nil, domain.ErrConcurrentTransition
		}

		events, err := r.outboxEventsFor(sessCtx, task)
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			if err := r.outboxRepo.SaveAll(sessCtx, events); err != nil {
				return nil, fmt.Errorf("failed to save outbox events: %w", err)
			}
		}

		task.ClearDomainEvents()

		return nil, nil
	})

	r.metrics.RecordMongoDBOperation("prep_tasks", "replace_one", err == nil, time.Since(start))

	return err
}

// FindByID retrieves a task by its id
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*domain.PrepTask, error) {
	var task domain.PrepTask
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}

	return &task, nil
}

// FindByOrder retrieves all tasks for an order
func (r *TaskRepository) FindByOrder(ctx context.Context, orderID string) ([]*domain.PrepTask, error) {
	return r.find(ctx, bson.M{"orderId": orderID})
}

// FindByOrderLine retrieves tasks by order-line id or bundle-line id, so a
// line cancellation reaches the tasks produced by bundle expansion too
func (r *TaskRepository) FindByOrderLine(ctx context.Context, orderLineID string) ([]*domain.PrepTask, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"orderLineId": orderLineID},
			{"bundleLineId": orderLineID},
		},
	}
	return r.find(ctx, filter)
}

// FindByStation retrieves one station's tasks, urgent first then oldest
// first. The default filter is the active display set.
func (r *TaskRepository) FindByStation(ctx context.Context, station domain.Station, filter domain.TaskFilter) ([]*domain.PrepTask, error) {
	states := filter.States
	if len(states) == 0 {
		states = []domain.TaskState{domain.TaskStatePending, domain.TaskStatePreparing, domain.TaskStateCancelled}
		if filter.IncludeDone {
			states = append(states, domain.TaskStateReady, domain.TaskStateServed)
		}
	}

	query := bson.M{
		"station": station,
		"state":   bson.M{"$in": states},
	}
	return r.find(ctx, query)
}

func (r *TaskRepository) find(ctx context.Context, filter bson.M) ([]*domain.PrepTask, error) {
	start := time.Now()
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	r.metrics.RecordMongoDBOperation("prep_tasks", "find", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []*domain.PrepTask
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// CountByOrder reports how many tasks exist for an order
func (r *TaskRepository) CountByOrder(ctx context.Context, orderID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"orderId": orderID})
}

// DeleteCancelled removes the given cancelled tasks by id and returns how
// many were removed.
func (r *TaskRepository) DeleteCancelled(ctx context.Context, taskIDs []string) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	start := time.Now()
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"_id":   bson.M{"$in": taskIDs},
		"state": domain.TaskStateCancelled,
	})
	r.metrics.RecordMongoDBOperation("prep_tasks", "delete_many", err == nil, time.Since(start))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// DeleteTask removes a single task and writes a task.removed outbox event in
// the same transaction
func (r *TaskRepository) DeleteTask(ctx context.Context, task *domain.PrepTask) error {
	start := time.Now()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.collection.DeleteOne(sessCtx, bson.M{"_id": task.ID}); err != nil {
			return nil, fmt.Errorf("failed to delete task: %w", err)
		}

		removed := &domain.TaskRemovedEvent{
			TaskID:    task.ID,
			OrderID:   task.OrderID,
			Station:   string(task.Station),
			State:     string(task.State),
			RemovedAt: time.Now(),
		}
		cloudEvent := r.eventFactory.CreateTaskEvent(sessCtx, cloudevents.TaskRemoved, task.ID, task.OrderID, string(task.Station), removed)
		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(task.ID, "PrepTask", kafka.Topics.TaskEvents, cloudEvent)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		if err := r.outboxRepo.Save(sessCtx, outboxEvent); err != nil {
			return nil, fmt.Errorf("failed to save outbox event: %w", err)
		}

		return nil, nil
	})

	r.metrics.RecordMongoDBOperation("prep_tasks", "delete_one", err == nil, time.Since(start))

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetOutboxRepository returns the outbox repository backing this service
func (r *TaskRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}

// outboxEventsFor converts a task's pending domain events into outbox events
func (r *TaskRepository) outboxEventsFor(ctx context.Context, task *domain.PrepTask) ([]*outbox.OutboxEvent, error) {
	domainEvents := task.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil, nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		var cloudEvent *cloudevents.FulfillmentCloudEvent
		switch e := event.(type) {
		case *domain.TaskCreatedEvent:
			cloudEvent = r.eventFactory.CreateTaskEvent(ctx, cloudevents.TaskCreated, e.TaskID, e.OrderID, e.Station, e)
		case *domain.TaskStartedEvent:
			cloudEvent = r.eventFactory.CreateTaskEvent(ctx, cloudevents.TaskStarted, e.TaskID, e.OrderID, e.Station, e)
		case *domain.TaskReadyEvent:
			cloudEvent = r.eventFactory.CreateTaskEvent(ctx, cloudevents.TaskReady, e.TaskID, e.OrderID, e.Station, e)
		case *domain.TaskServedEvent:
			cloudEvent = r.eventFactory.CreateTaskEvent(ctx, cloudevents.TaskServed, e.TaskID, e.OrderID, e.Station, e)
		case *domain.TaskCancelledEvent:
			cloudEvent = r.eventFactory.CreateTaskEvent(ctx, cloudevents.TaskCancelled, e.TaskID, e.OrderID, e.Station, e)
		case *domain.TaskPriorityChangedEvent:
			cloudEvent = r.eventFactory.CreateTaskEvent(ctx, cloudevents.TaskPriorityChanged, e.TaskID, task.OrderID, e.Station, e)
		case *domain.TaskRemovedEvent:
			cloudEvent = r.eventFactory.CreateTaskEvent(ctx, cloudevents.TaskRemoved, e.TaskID, e.OrderID, e.Station, e)
		default:
			continue
		}

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(task.ID, "PrepTask", kafka.Topics.TaskEvents, cloudEvent)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	return outboxEvents, nil
}

// orderRoutedOutboxEvent builds the order-level routing summary event from a
// freshly routed batch. All tasks in a batch belong to the same order.
func (r *TaskRepository) orderRoutedOutboxEvent(ctx context.Context, tasks []*domain.PrepTask) (*outbox.OutboxEvent, error) {
	orderID := tasks[0].OrderID
	perStation := make(map[string]int)
	for _, task := range tasks {
		perStation[string(task.Station)]++
	}

	cloudEvent := r.eventFactory.CreateOrderRoutedEvent(ctx, orderID, len(tasks), perStation, nil)
	outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(orderID, "Order", kafka.Topics.OrderEvents, cloudEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to create order routed outbox event: %w", err)
	}
	return outboxEvent, nil
}
