package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/beerhive/fulfillment/internal/application"
	"github.com/beerhive/fulfillment/pkg/errors"
	"github.com/beerhive/fulfillment/pkg/logging"
)

type mockLifecycleService struct {
	transitionFn  func(ctx context.Context, cmd application.TransitionTaskCommand) (*application.TaskDTO, error)
	setPriorityFn func(ctx context.Context, cmd application.SetTaskPriorityCommand) (*application.TaskDTO, error)
	getTaskFn     func(ctx context.Context, query application.GetTaskQuery) (*application.TaskDTO, error)
}

func (m *mockLifecycleService) Transition(ctx context.Context, cmd application.TransitionTaskCommand) (*application.TaskDTO, error) {
	if m.transitionFn == nil {
		panic("Transition not implemented")
	}
	return m.transitionFn(ctx, cmd)
}

func (m *mockLifecycleService) SetPriority(ctx context.Context, cmd application.SetTaskPriorityCommand) (*application.TaskDTO, error) {
	if m.setPriorityFn == nil {
		panic("SetPriority not implemented")
	}
	return m.setPriorityFn(ctx, cmd)
}

func (m *mockLifecycleService) GetTask(ctx context.Context, query application.GetTaskQuery) (*application.TaskDTO, error) {
	if m.getTaskFn == nil {
		panic("GetTask not implemented")
	}
	return m.getTaskFn(ctx, query)
}

type mockRemovalService struct {
	removeTaskFn func(ctx context.Context, cmd application.RemoveTaskCommand) error
}

func (m *mockRemovalService) RemoveTask(ctx context.Context, cmd application.RemoveTaskCommand) error {
	if m.removeTaskFn == nil {
		panic("RemoveTask not implemented")
	}
	return m.removeTaskFn(ctx, cmd)
}

func newTaskRouter(lifecycle TaskLifecycleService, removal TaskRemovalService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logging.New(logging.DefaultConfig("test"))
	handlers := NewTaskHandlers(lifecycle, removal, logger)
	handlers.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestTaskHandlers_Transitions(t *testing.T) {
	targets := []struct {
		path   string
		target string
	}{
		{"start", "preparing"},
		{"ready", "ready"},
		{"serve", "served"},
		{"cancel", "cancelled"},
	}

	for _, tc := range targets {
		t.Run(tc.path, func(t *testing.T) {
			lifecycle := &mockLifecycleService{
				transitionFn: func(ctx context.Context, cmd application.TransitionTaskCommand) (*application.TaskDTO, error) {
					if cmd.TaskID != "task-1" {
						t.Fatalf("TaskID = %s", cmd.TaskID)
					}
					if cmd.TargetState != tc.target {
						t.Fatalf("TargetState = %s, want %s", cmd.TargetState, tc.target)
					}
					return &application.TaskDTO{TaskID: cmd.TaskID, State: cmd.TargetState}, nil
				},
			}
			router := newTaskRouter(lifecycle, nil)
			rec := performRequest(router, http.MethodPost, "/api/v1/tasks/task-1/"+tc.path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
		})
	}

	t.Run("actor and reason forwarded", func(t *testing.T) {
		lifecycle := &mockLifecycleService{
			transitionFn: func(ctx context.Context, cmd application.TransitionTaskCommand) (*application.TaskDTO, error) {
				if cmd.Actor != "bartender-3" || cmd.Reason != "spilled" {
					t.Fatalf("unexpected command: %+v", cmd)
				}
				return &application.TaskDTO{TaskID: cmd.TaskID, State: cmd.TargetState}, nil
			},
		}
		router := newTaskRouter(lifecycle, nil)
		rec := performRequest(router, http.MethodPost, "/api/v1/tasks/task-2/cancel", `{"actor":"bartender-3","reason":"spilled"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("illegal transition conflicts", func(t *testing.T) {
		lifecycle := &mockLifecycleService{
			transitionFn: func(ctx context.Context, cmd application.TransitionTaskCommand) (*application.TaskDTO, error) {
				return nil, errors.ErrConflict("task task-3 cannot transition from pending to served")
			},
		}
		router := newTaskRouter(lifecycle, nil)
		rec := performRequest(router, http.MethodPost, "/api/v1/tasks/task-3/serve", "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("task not found", func(t *testing.T) {
		lifecycle := &mockLifecycleService{
			transitionFn: func(ctx context.Context, cmd application.TransitionTaskCommand) (*application.TaskDTO, error) {
				return nil, errors.ErrNotFound("task")
			},
		}
		router := newTaskRouter(lifecycle, nil)
		rec := performRequest(router, http.MethodPost, "/api/v1/tasks/task-404/start", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("bad json", func(t *testing.T) {
		lifecycle := &mockLifecycleService{
			transitionFn: func(ctx context.Context, cmd application.TransitionTaskCommand) (*application.TaskDTO, error) {
				return nil, nil
			},
		}
		router := newTaskRouter(lifecycle, nil)
		rec := performRequest(router, http.MethodPost, "/api/v1/tasks/task-4/start", `{"actor":}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestTaskHandlers_SetPriority(t *testing.T) {
	t.Run("raise", func(t *testing.T) {
		lifecycle := &mockLifecycleService{
			setPriorityFn: func(ctx context.Context, cmd application.SetTaskPriorityCommand) (*application.TaskDTO, error) {
				if cmd.TaskID != "task-5" || !cmd.Priority {
					t.Fatalf("unexpected command: %+v", cmd)
				}
				return &application.TaskDTO{TaskID: cmd.TaskID, Priority: true}, nil
			},
		}
		router := newTaskRouter(lifecycle, nil)
		rec := performRequest(router, http.MethodPut, "/api/v1/tasks/task-5/priority", `{"priority":true}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("explicit false is forwarded", func(t *testing.T) {
		lifecycle := &mockLifecycleService{
			setPriorityFn: func(ctx context.Context, cmd application.SetTaskPriorityCommand) (*application.TaskDTO, error) {
				if cmd.Priority {
					t.Fatalf("Priority = true")
				}
				return &application.TaskDTO{TaskID: cmd.TaskID}, nil
			},
		}
		router := newTaskRouter(lifecycle, nil)
		rec := performRequest(router, http.MethodPut, "/api/v1/tasks/task-5/priority", `{"priority":false}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("missing priority field", func(t *testing.T) {
		lifecycle := &mockLifecycleService{
			setPriorityFn: func(ctx context.Context, cmd application.SetTaskPriorityCommand) (*application.TaskDTO, error) {
				return nil, nil
			},
		}
		router := newTaskRouter(lifecycle, nil)
		rec := performRequest(router, http.MethodPut, "/api/v1/tasks/task-5/priority", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestTaskHandlers_GetTask(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		lifecycle := &mockLifecycleService{
			getTaskFn: func(ctx context.Context, query application.GetTaskQuery) (*application.TaskDTO, error) {
				if query.TaskID != "task-6" {
					t.Fatalf("TaskID = %s", query.TaskID)
				}
				return &application.TaskDTO{TaskID: query.TaskID, State: "served"}, nil
			},
		}
		router := newTaskRouter(lifecycle, nil)
		rec := performRequest(router, http.MethodGet, "/api/v1/tasks/task-6", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"state":"served"`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("not found", func(t *testing.T) {
		lifecycle := &mockLifecycleService{
			getTaskFn: func(ctx context.Context, query application.GetTaskQuery) (*application.TaskDTO, error) {
				return nil, errors.ErrNotFound("task")
			},
		}
		router := newTaskRouter(lifecycle, nil)
		rec := performRequest(router, http.MethodGet, "/api/v1/tasks/task-404", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestTaskHandlers_RemoveTask(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		removal := &mockRemovalService{
			removeTaskFn: func(ctx context.Context, cmd application.RemoveTaskCommand) error {
				if cmd.TaskID != "task-7" {
					t.Fatalf("TaskID = %s", cmd.TaskID)
				}
				return nil
			},
		}
		router := newTaskRouter(nil, removal)
		rec := performRequest(router, http.MethodDelete, "/api/v1/tasks/task-7", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("non-terminal task conflicts", func(t *testing.T) {
		removal := &mockRemovalService{
			removeTaskFn: func(ctx context.Context, cmd application.RemoveTaskCommand) error {
				return errors.ErrConflict("task is not in a terminal state")
			},
		}
		router := newTaskRouter(nil, removal)
		rec := performRequest(router, http.MethodDelete, "/api/v1/tasks/task-8", "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}
