package application

import (
	"context"
	"sort"

	"github.com/beerhive/fulfillment/internal/domain"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/metrics"
)

// MockTaskRepository is an in-memory TaskRepository for testing
type MockTaskRepository struct {
	tasks      map[string]*domain.PrepTask
	saveErr    error
	findErr    error
	updateErr  error
	raceWinner *domain.PrepTask
	lateTask   *domain.PrepTask
}

func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{
		tasks: make(map[string]*domain.PrepTask),
	}
}

func (m *MockTaskRepository) SaveBatch(ctx context.Context, tasks []*domain.PrepTask) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	for _, task := range tasks {
		m.tasks[task.ID] = task
	}
	return nil
}

func (m *MockTaskRepository) Update(ctx context.Context, task *domain.PrepTask, expectedState domain.TaskState) error {
	if m.raceWinner != nil {
		m.tasks[m.raceWinner.ID] = m.raceWinner
		m.raceWinner = nil
		return domain.ErrConcurrentTransition
	}
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.tasks[task.ID]
	if !ok {
		return domain.ErrConcurrentTransition
	}
	if stored != task && stored.State != expectedState {
		return domain.ErrConcurrentTransition
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *MockTaskRepository) FindByID(ctx context.Context, id string) (*domain.PrepTask, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.tasks[id], nil
}

func (m *MockTaskRepository) FindByOrder(ctx context.Context, orderID string) ([]*domain.PrepTask, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var result []*domain.PrepTask
	for _, task := range m.tasks {
		if task.OrderID == orderID {
			result = append(result, task)
		}
	}
	sortTasks(result)
	return result, nil
}

func (m *MockTaskRepository) FindByOrderLine(ctx context.Context, orderLineID string) ([]*domain.PrepTask, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var result []*domain.PrepTask
	for _, task := range m.tasks {
		if task.OrderLineID == orderLineID || task.BundleLineID == orderLineID {
			result = append(result, task)
		}
	}
	sortTasks(result)
	return result, nil
}

func (m *MockTaskRepository) FindByStation(ctx context.Context, station domain.Station, filter domain.TaskFilter) ([]*domain.PrepTask, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	states := filter.States
	if len(states) == 0 {
		states = []domain.TaskState{domain.TaskStatePending, domain.TaskStatePreparing, domain.TaskStateCancelled}
		if filter.IncludeDone {
			states = append(states, domain.TaskStateReady, domain.TaskStateServed)
		}
	}
	allowed := make(map[domain.TaskState]bool, len(states))
	for _, state := range states {
		allowed[state] = true
	}

	var result []*domain.PrepTask
	for _, task := range m.tasks {
		if task.Station == station && allowed[task.State] {
			result = append(result, task)
		}
	}
	sortTasks(result)

	if m.lateTask != nil {
		m.tasks[m.lateTask.ID] = m.lateTask
		m.lateTask = nil
	}
	return result, nil
}

func (m *MockTaskRepository) CountByOrder(ctx context.Context, orderID string) (int64, error) {
	if m.findErr != nil {
		return 0, m.findErr
	}
	var count int64
	for _, task := range m.tasks {
		if task.OrderID == orderID {
			count++
		}
	}
	return count, nil
}

func (m *MockTaskRepository) DeleteCancelled(ctx context.Context, taskIDs []string) (int64, error) {
	if m.findErr != nil {
		return 0, m.findErr
	}
	var removed int64
	for _, id := range taskIDs {
		task, ok := m.tasks[id]
		if !ok || task.State != domain.TaskStateCancelled {
			continue
		}
		delete(m.tasks, id)
		removed++
	}
	return removed, nil
}

func (m *MockTaskRepository) DeleteTask(ctx context.Context, task *domain.PrepTask) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	delete(m.tasks, task.ID)
	return nil
}

// LoseNextUpdateTo makes the next Update lose the per-task write race: the
// winner's version lands in the store and the caller gets
// ErrConcurrentTransition.
func (m *MockTaskRepository) LoseNextUpdateTo(winner *domain.PrepTask) { m.raceWinner = winner }

// AddTaskAfterNextFind slips a task into the store right after the next
// FindByStation returns, simulating a write between listing and a follow-up
// operation.
func (m *MockTaskRepository) AddTaskAfterNextFind(task *domain.PrepTask) { m.lateTask = task }

func (m *MockTaskRepository) SetSaveError(err error)   { m.saveErr = err }
func (m *MockTaskRepository) SetFindError(err error)   { m.findErr = err }
func (m *MockTaskRepository) SetUpdateError(err error) { m.updateErr = err }

// AddTask adds a task directly to the mock (for test setup)
func (m *MockTaskRepository) AddTask(task *domain.PrepTask) {
	m.tasks[task.ID] = task
}

func (m *MockTaskRepository) TaskCount() int {
	return len(m.tasks)
}

func sortTasks(tasks []*domain.PrepTask) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority
		}
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// MockCatalogLookup serves catalog items from a map
type MockCatalogLookup struct {
	items     map[string]*domain.CatalogItem
	lookupErr error
}

func NewMockCatalogLookup() *MockCatalogLookup {
	return &MockCatalogLookup{
		items: make(map[string]*domain.CatalogItem),
	}
}

func (m *MockCatalogLookup) GetItem(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.items[itemID], nil
}

func (m *MockCatalogLookup) AddItem(item *domain.CatalogItem) {
	m.items[item.ID] = item
}

func (m *MockCatalogLookup) SetLookupError(err error) { m.lookupErr = err }

// MockInventoryService is a configurable InventoryService stub
type MockInventoryService struct {
	availability *AvailabilityResult
	checkErr     error
	deductErr    error
	deductCalls  int
}

func NewMockInventoryService() *MockInventoryService {
	return &MockInventoryService{
		availability: &AvailabilityResult{Available: true},
	}
}

func (m *MockInventoryService) CheckAvailability(ctx context.Context, order *domain.ConfirmedOrder) (*AvailabilityResult, error) {
	if m.checkErr != nil {
		return nil, m.checkErr
	}
	return m.availability, nil
}

func (m *MockInventoryService) Deduct(ctx context.Context, order *domain.ConfirmedOrder) error {
	if m.deductErr != nil {
		return m.deductErr
	}
	m.deductCalls++
	return nil
}

func (m *MockInventoryService) SetAvailability(result *AvailabilityResult) { m.availability = result }
func (m *MockInventoryService) SetCheckError(err error)                    { m.checkErr = err }
func (m *MockInventoryService) SetDeductError(err error)                   { m.deductErr = err }

// MockOrderStore serves confirmed orders from a map
type MockOrderStore struct {
	orders       map[string]*domain.ConfirmedOrder
	getErr       error
	confirmErr   error
	confirmedIDs []string
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders: make(map[string]*domain.ConfirmedOrder),
	}
}

func (m *MockOrderStore) GetConfirmedOrder(ctx context.Context, orderID string) (*domain.ConfirmedOrder, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.orders[orderID], nil
}

func (m *MockOrderStore) MarkConfirmed(ctx context.Context, orderID string) error {
	if m.confirmErr != nil {
		return m.confirmErr
	}
	m.confirmedIDs = append(m.confirmedIDs, orderID)
	return nil
}

func (m *MockOrderStore) AddOrder(order *domain.ConfirmedOrder) {
	m.orders[order.OrderID] = order
}

func (m *MockOrderStore) SetGetError(err error)     { m.getErr = err }
func (m *MockOrderStore) SetConfirmError(err error) { m.confirmErr = err }

// publishedNotification captures one feed push for assertions
type publishedNotification struct {
	Station   domain.Station
	TaskID    string
	EventType string
	Removed   bool
}

// MockFeedPublisher records notifications instead of delivering them
type MockFeedPublisher struct {
	published []publishedNotification
}

func NewMockFeedPublisher() *MockFeedPublisher {
	return &MockFeedPublisher{}
}

func (m *MockFeedPublisher) PublishTask(station domain.Station, task *domain.PrepTask, eventType string) {
	m.published = append(m.published, publishedNotification{
		Station:   station,
		TaskID:    task.ID,
		EventType: eventType,
	})
}

func (m *MockFeedPublisher) PublishRemoval(station domain.Station, taskID string) {
	m.published = append(m.published, publishedNotification{
		Station: station,
		TaskID:  taskID,
		Removed: true,
	})
}

// ForStation returns the notifications delivered to one station
func (m *MockFeedPublisher) ForStation(station domain.Station) []publishedNotification {
	var result []publishedNotification
	for _, n := range m.published {
		if n.Station == station {
			result = append(result, n)
		}
	}
	return result
}

func testLogger() *logging.Logger {
	return logging.New(logging.DefaultConfig("test"))
}

func testMetrics() *metrics.Metrics {
	return metrics.New(metrics.DefaultConfig("test"))
}
