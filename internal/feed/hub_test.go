package feed

import (
	"testing"

	"github.com/beerhive/fulfillment/internal/domain"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/metrics"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	return NewHub(logging.New(logging.DefaultConfig("feed-test")), metrics.New(metrics.DefaultConfig("feed-test")))
}

func newFoodTask(t *testing.T) *domain.PrepTask {
	t.Helper()
	task, err := domain.NewPrepTask("order-1", "line-1", "", domain.StationFood, "Sisig", 1, "", false)
	if err != nil {
		t.Fatalf("NewPrepTask() error = %v", err)
	}
	return task
}

func TestHub_Subscribe(t *testing.T) {
	t.Run("rejects invalid station", func(t *testing.T) {
		hub := newTestHub(t)
		if _, err := hub.Subscribe(domain.Station("bar2")); err != domain.ErrInvalidStation {
			t.Errorf("Subscribe() error = %v, want %v", err, domain.ErrInvalidStation)
		}
	})

	t.Run("tracks subscriber counts per station", func(t *testing.T) {
		hub := newTestHub(t)

		subFood, err := hub.Subscribe(domain.StationFood)
		if err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
		if _, err := hub.Subscribe(domain.StationBeverage); err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}

		if got := hub.SubscriberCount(domain.StationFood); got != 1 {
			t.Errorf("food SubscriberCount = %d, want 1", got)
		}
		if got := hub.SubscriberCount(domain.StationBeverage); got != 1 {
			t.Errorf("beverage SubscriberCount = %d, want 1", got)
		}

		subFood.Close()
		if got := hub.SubscriberCount(domain.StationFood); got != 0 {
			t.Errorf("food SubscriberCount after close = %d, want 0", got)
		}
	})

	t.Run("close drains and closes the channel", func(t *testing.T) {
		hub := newTestHub(t)
		sub, _ := hub.Subscribe(domain.StationFood)
		sub.Close()

		if _, open := <-sub.C; open {
			t.Error("channel should be closed after Close()")
		}

		// double close is safe
		sub.Close()
	})
}

func TestHub_StationIsolation(t *testing.T) {
	hub := newTestHub(t)

	foodSub, _ := hub.Subscribe(domain.StationFood)
	beverageSub, _ := hub.Subscribe(domain.StationBeverage)

	task := newFoodTask(t)
	hub.PublishTask(domain.StationFood, task, "task.created")

	select {
	case notification := <-foodSub.C:
		if notification.TaskID != task.ID {
			t.Errorf("TaskID = %v, want %v", notification.TaskID, task.ID)
		}
		if notification.Station != string(domain.StationFood) {
			t.Errorf("Station = %v, want food", notification.Station)
		}
		if notification.EventType != "task.created" {
			t.Errorf("EventType = %v, want task.created", notification.EventType)
		}
	default:
		t.Fatal("food subscriber should have received the notification")
	}

	select {
	case notification := <-beverageSub.C:
		t.Fatalf("beverage subscriber must not see food notifications, got %+v", notification)
	default:
	}
}

func TestHub_PublishRemoval(t *testing.T) {
	hub := newTestHub(t)
	sub, _ := hub.Subscribe(domain.StationBeverage)

	hub.PublishRemoval(domain.StationBeverage, "task-123")

	notification := <-sub.C
	if !notification.Removed {
		t.Error("Removed should be true")
	}
	if notification.TaskID != "task-123" {
		t.Errorf("TaskID = %v, want task-123", notification.TaskID)
	}
	if notification.EventType != "task.removed" {
		t.Errorf("EventType = %v, want task.removed", notification.EventType)
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := newTestHub(t)
	sub, _ := hub.Subscribe(domain.StationFood)

	task := newFoodTask(t)
	// overflow the buffer; publish must not block
	for i := 0; i < subscriberBufferSize+10; i++ {
		hub.PublishTask(domain.StationFood, task, "task.created")
	}

	received := 0
	for {
		select {
		case <-sub.C:
			received++
			continue
		default:
		}
		break
	}
	if received != subscriberBufferSize {
		t.Errorf("received = %d, want %d buffered notifications", received, subscriberBufferSize)
	}
}
