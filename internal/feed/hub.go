package feed

import (
	"strconv"
	"sync"
	"time"

	"github.com/beerhive/fulfillment/internal/domain"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/metrics"
)

// TaskNotification is one station feed message. Payloads are state snapshots
// keyed by task id, so duplicate delivery is harmless to the display.
type TaskNotification struct {
	EventType string    `json:"eventType"`
	TaskID    string    `json:"taskId"`
	OrderID   string    `json:"orderId,omitempty"`
	Station   string    `json:"station"`
	State     string    `json:"state,omitempty"`
	ItemName  string    `json:"itemName,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
	Priority  bool      `json:"priority,omitempty"`
	Removed   bool      `json:"removed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// subscriberBufferSize bounds a slow display's backlog before drops begin
const subscriberBufferSize = 64

// Subscription is one station display's live feed
type Subscription struct {
	ID      string
	Station domain.Station
	C       <-chan TaskNotification

	ch  chan TaskNotification
	hub *Hub
}

// Close detaches the subscription from the hub
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

// Hub fans task notifications out to station display subscribers. Each
// station has its own subscriber registry; a notification for one station is
// never delivered to another station's subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[domain.Station]map[string]*Subscription
	nextID      int
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewHub creates a new Hub
func NewHub(logger *logging.Logger, m *metrics.Metrics) *Hub {
	subscribers := make(map[domain.Station]map[string]*Subscription)
	for _, station := range domain.AllStations() {
		subscribers[station] = make(map[string]*Subscription)
	}

	return &Hub{
		subscribers: subscribers,
		logger:      logger,
		metrics:     m,
	}
}

// Subscribe registers a new subscriber for one station's feed
func (h *Hub) Subscribe(station domain.Station) (*Subscription, error) {
	if !station.IsValid() {
		return nil, domain.ErrInvalidStation
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	ch := make(chan TaskNotification, subscriberBufferSize)
	sub := &Subscription{
		ID:      formatSubscriptionID(station, h.nextID),
		Station: station,
		C:       ch,
		ch:      ch,
		hub:     h,
	}
	h.subscribers[station][sub.ID] = sub
	h.metrics.SetFeedSubscribers(string(station), len(h.subscribers[station]))

	h.logger.Info("Feed subscriber attached", "station", station, "subscriptionId", sub.ID)

	return sub, nil
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub.Station][sub.ID]; !ok {
		return
	}
	delete(h.subscribers[sub.Station], sub.ID)
	close(sub.ch)
	h.metrics.SetFeedSubscribers(string(sub.Station), len(h.subscribers[sub.Station]))

	h.logger.Info("Feed subscriber detached", "station", sub.Station, "subscriptionId", sub.ID)
}

// PublishTask pushes a task snapshot to the task's station subscribers
func (h *Hub) PublishTask(station domain.Station, task *domain.PrepTask, eventType string) {
	h.publish(station, TaskNotification{
		EventType: eventType,
		TaskID:    task.ID,
		OrderID:   task.OrderID,
		Station:   string(station),
		State:     string(task.State),
		ItemName:  task.ItemName,
		Quantity:  task.Quantity,
		Priority:  task.Priority,
		Timestamp: time.Now(),
	})
}

// PublishRemoval tells a station's subscribers to drop a task from display
func (h *Hub) PublishRemoval(station domain.Station, taskID string) {
	h.publish(station, TaskNotification{
		EventType: "task.removed",
		TaskID:    taskID,
		Station:   string(station),
		Removed:   true,
		Timestamp: time.Now(),
	})
}

// publish delivers to exactly one station's registry. Delivery is best
// effort: a subscriber with a full buffer is skipped rather than blocking
// the publisher, and the display resyncs through the list endpoint.
func (h *Hub) publish(station domain.Station, notification TaskNotification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers[station] {
		select {
		case sub.ch <- notification:
		default:
			h.logger.Warn("Feed subscriber buffer full, dropping notification",
				"station", station,
				"subscriptionId", sub.ID,
				"taskId", notification.TaskID)
		}
	}
}

// SubscriberCount reports how many displays are attached to a station
func (h *Hub) SubscriberCount(station domain.Station) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[station])
}

func formatSubscriptionID(station domain.Station, id int) string {
	return string(station) + "-" + strconv.Itoa(id)
}
