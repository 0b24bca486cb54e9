package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/beerhive/fulfillment/internal/application"
	"github.com/beerhive/fulfillment/internal/domain"
	"github.com/beerhive/fulfillment/internal/feed"
	"github.com/beerhive/fulfillment/pkg/errors"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/middleware"
)

// StationFeedService lists the task feed for one station
type StationFeedService interface {
	List(ctx context.Context, query application.ListStationTasksQuery) ([]application.TaskDTO, error)
}

// CancelledTaskClearer clears cancelled tasks from a station display
type CancelledTaskClearer interface {
	ClearCancelled(ctx context.Context, cmd application.ClearCancelledCommand) (int64, error)
}

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Station displays run on the venue LAN behind the gateway.
		return true
	},
}

// StationHandlers contains handlers for station feed operations
type StationHandlers struct {
	feedService StationFeedService
	clearer     CancelledTaskClearer
	hub         *feed.Hub
	logger      *logging.Logger
}

// NewStationHandlers creates a new StationHandlers
func NewStationHandlers(feedService StationFeedService, clearer CancelledTaskClearer, hub *feed.Hub, logger *logging.Logger) *StationHandlers {
	return &StationHandlers{
		feedService: feedService,
		clearer:     clearer,
		hub:         hub,
		logger:      logger,
	}
}

// RegisterRoutes registers station routes on the router
func (h *StationHandlers) RegisterRoutes(router *gin.RouterGroup) {
	stations := router.Group("/stations")
	{
		stations.GET("/:station/tasks", h.ListTasks)
		stations.GET("/:station/feed", h.Feed)
		stations.DELETE("/:station/cancelled", h.ClearCancelled)
	}
}

// ListTasks handles listing the task feed for one station
func (h *StationHandlers) ListTasks(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	station := c.Param("station")
	filter := c.Query("filter")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"station":     station,
		"feed.filter": filter,
	})

	query := application.ListStationTasksQuery{
		Station: station,
		Filter:  filter,
	}

	tasks, err := h.feedService.List(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// ClearCancelled handles clearing all cancelled tasks from a station display
func (h *StationHandlers) ClearCancelled(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	station := c.Param("station")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"station": station,
	})

	cmd := application.ClearCancelledCommand{Station: station}

	cleared, err := h.clearer.ClearCancelled(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"station": station, "cleared": cleared})
}

// Feed handles the live WebSocket feed for one station display. The
// subscription is taken before the upgrade so an unknown station still gets
// a plain HTTP error.
func (h *StationHandlers) Feed(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	station := domain.Station(c.Param("station"))
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"station": string(station),
	})

	sub, err := h.hub.Subscribe(station)
	if err != nil {
		responder.RespondBadRequest(err.Error())
		return
	}

	conn, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		h.logger.Warn("Feed upgrade failed", "station", station, "error", err)
		return
	}
	defer conn.Close()
	defer sub.Close()

	h.logger.Info("Feed connected", "station", station, "subscriptionId", sub.ID)

	// The client only sends control frames; the read loop exists to notice
	// the disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case notification, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(notification); err != nil {
				h.logger.Warn("Feed write failed",
					"station", station,
					"subscriptionId", sub.ID,
					"error", err)
				return
			}
		case <-done:
			h.logger.Info("Feed disconnected", "station", station, "subscriptionId", sub.ID)
			return
		}
	}
}
