package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beerhive/fulfillment/internal/domain"
	"github.com/beerhive/fulfillment/pkg/cloudevents"
	"github.com/beerhive/fulfillment/pkg/metrics"
)

type TaskRepositoryIntegrationTestSuite struct {
	suite.Suite
	mongoContainer *mongodb.MongoDBContainer
	client         *mongo.Client
	db             *mongo.Database
	repo           *TaskRepository
	ctx            context.Context
}

func (s *TaskRepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	// Single-node replica set so transactions work
	container, err := mongodb.Run(s.ctx, "mongo:6",
		mongodb.WithReplicaSet("rs"),
	)
	s.Require().NoError(err)
	s.mongoContainer = container

	connStr, err := container.ConnectionString(s.ctx)
	s.Require().NoError(err)

	clientOpts := options.Client().ApplyURI(connStr).SetDirect(true)
	client, err := mongo.Connect(s.ctx, clientOpts)
	s.Require().NoError(err)
	s.client = client

	err = client.Ping(s.ctx, nil)
	s.Require().NoError(err)

	s.db = client.Database("fulfillment_test")

	eventFactory := cloudevents.NewEventFactory("fulfillment-service-test")
	s.repo = NewTaskRepository(s.db, eventFactory, metrics.New(metrics.DefaultConfig("test")))
}

func (s *TaskRepositoryIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Disconnect(s.ctx)
	}
	if s.mongoContainer != nil {
		s.Require().NoError(s.mongoContainer.Terminate(s.ctx))
	}
}

func (s *TaskRepositoryIntegrationTestSuite) TearDownTest() {
	s.db.Collection("prep_tasks").DeleteMany(s.ctx, bson.M{})
	s.db.Collection("outbox_events").DeleteMany(s.ctx, bson.M{})
}

func TestTaskRepositoryIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	suite.Run(t, new(TaskRepositoryIntegrationTestSuite))
}

func (s *TaskRepositoryIntegrationTestSuite) newTask(orderID, lineID string, station domain.Station) *domain.PrepTask {
	task, err := domain.NewPrepTask(orderID, lineID, "", station, "Sisig", 1, "", false)
	s.Require().NoError(err)
	return task
}

func (s *TaskRepositoryIntegrationTestSuite) TestSaveBatch_PersistsTasksAndOutboxEvents() {
	tasks := []*domain.PrepTask{
		s.newTask("order-1", "line-1", domain.StationFood),
		s.newTask("order-1", "line-2", domain.StationBeverage),
	}

	err := s.repo.SaveBatch(s.ctx, tasks)
	s.Require().NoError(err)

	count, err := s.repo.CountByOrder(s.ctx, "order-1")
	s.Require().NoError(err)
	s.Equal(int64(2), count)

	// domain events must be cleared after a successful save
	s.Empty(tasks[0].GetDomainEvents())

	// two task.created events plus one order.routed summary
	outboxCount, err := s.db.Collection("outbox_events").CountDocuments(s.ctx, bson.M{})
	s.Require().NoError(err)
	s.Equal(int64(3), outboxCount)
}

func (s *TaskRepositoryIntegrationTestSuite) TestSaveBatch_UniqueIndexRejectsDuplicateRouting() {
	first := []*domain.PrepTask{s.newTask("order-2", "line-1", domain.StationFood)}
	s.Require().NoError(s.repo.SaveBatch(s.ctx, first))

	duplicate := []*domain.PrepTask{s.newTask("order-2", "line-1", domain.StationFood)}
	err := s.repo.SaveBatch(s.ctx, duplicate)
	s.Error(err)

	count, err := s.repo.CountByOrder(s.ctx, "order-2")
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *TaskRepositoryIntegrationTestSuite) TestUpdate_CASOnState() {
	task := s.newTask("order-3", "line-1", domain.StationFood)
	s.Require().NoError(s.repo.SaveBatch(s.ctx, []*domain.PrepTask{task}))

	s.Require().NoError(task.Start("staff-1"))
	err := s.repo.Update(s.ctx, task, domain.TaskStatePending)
	s.Require().NoError(err)

	stored, err := s.repo.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatePreparing, stored.State)
	s.Equal("staff-1", stored.AssignedTo)
	s.NotNil(stored.StartedAt)

	// stale expected state loses the swap
	s.Require().NoError(task.MarkReady("staff-1"))
	err = s.repo.Update(s.ctx, task, domain.TaskStatePending)
	s.ErrorIs(err, domain.ErrConcurrentTransition)
}

func (s *TaskRepositoryIntegrationTestSuite) TestFindByStation_DefaultFilterAndOrdering() {
	pending := s.newTask("order-4", "line-1", domain.StationFood)
	urgent := s.newTask("order-4", "line-2", domain.StationFood)
	urgent.Priority = true
	beverage := s.newTask("order-4", "line-3", domain.StationBeverage)
	served := s.newTask("order-4", "line-4", domain.StationFood)
	s.Require().NoError(served.Start("staff-1"))
	s.Require().NoError(served.MarkReady("staff-1"))
	s.Require().NoError(served.Serve("staff-1"))

	s.Require().NoError(s.repo.SaveBatch(s.ctx, []*domain.PrepTask{pending, urgent, beverage, served}))

	tasks, err := s.repo.FindByStation(s.ctx, domain.StationFood, domain.TaskFilter{})
	s.Require().NoError(err)
	s.Require().Len(tasks, 2)
	s.Equal(urgent.ID, tasks[0].ID, "urgent task should come first")
	s.Equal(pending.ID, tasks[1].ID)

	all, err := s.repo.FindByStation(s.ctx, domain.StationFood, domain.TaskFilter{IncludeDone: true})
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *TaskRepositoryIntegrationTestSuite) TestFindByOrderLine_MatchesBundleLine() {
	direct := s.newTask("order-5", "line-1", domain.StationFood)
	derived, err := domain.NewPrepTask("order-5", "line-2#0", "line-2", domain.StationBeverage, "Pale Pilsen", 5, "", false)
	s.Require().NoError(err)
	s.Require().NoError(s.repo.SaveBatch(s.ctx, []*domain.PrepTask{direct, derived}))

	tasks, err := s.repo.FindByOrderLine(s.ctx, "line-2")
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal(derived.ID, tasks[0].ID)
}

func (s *TaskRepositoryIntegrationTestSuite) TestDeleteCancelled() {
	cancelled := s.newTask("order-6", "line-1", domain.StationFood)
	s.Require().NoError(cancelled.Cancel("voided"))
	active := s.newTask("order-6", "line-2", domain.StationFood)
	unlisted := s.newTask("order-6", "line-3", domain.StationFood)
	s.Require().NoError(unlisted.Cancel("voided"))

	s.Require().NoError(s.repo.SaveBatch(s.ctx, []*domain.PrepTask{cancelled, active, unlisted}))

	// only ids in the list are deleted; active is listed but not cancelled
	removed, err := s.repo.DeleteCancelled(s.ctx, []string{cancelled.ID, active.ID})
	s.Require().NoError(err)
	s.Equal(int64(1), removed)

	remaining, err := s.repo.FindByID(s.ctx, active.ID)
	s.Require().NoError(err)
	s.NotNil(remaining)

	untouched, err := s.repo.FindByID(s.ctx, unlisted.ID)
	s.Require().NoError(err)
	s.NotNil(untouched)
}

func (s *TaskRepositoryIntegrationTestSuite) TestDeleteCancelled_EmptyIDs() {
	removed, err := s.repo.DeleteCancelled(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal(int64(0), removed)
}

func (s *TaskRepositoryIntegrationTestSuite) TestDeleteTask_WritesRemovalOutboxEvent() {
	task := s.newTask("order-7", "line-1", domain.StationFood)
	s.Require().NoError(task.Start("staff-1"))
	s.Require().NoError(task.MarkReady("staff-1"))
	s.Require().NoError(task.Serve("staff-1"))
	s.Require().NoError(s.repo.SaveBatch(s.ctx, []*domain.PrepTask{task}))

	before, err := s.db.Collection("outbox_events").CountDocuments(s.ctx, bson.M{})
	s.Require().NoError(err)

	s.Require().NoError(s.repo.DeleteTask(s.ctx, task))

	gone, err := s.repo.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Nil(gone)

	after, err := s.db.Collection("outbox_events").CountDocuments(s.ctx, bson.M{})
	s.Require().NoError(err)
	s.Equal(before+1, after)
}
