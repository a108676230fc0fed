package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/internal/domain/jsoncfg"
	"github.com/XIAOke8698/GRAS-Manager/internal/middleware"
)

type submitRequest struct {
	domain.Submission
	Region string `json:"region"`
}

type taskListResponse struct {
	Items []domain.Task `json:"items"`
	Total int           `json:"total"`
}

func (a *App) ListTasks(w http.ResponseWriter, r *http.Request) {
	var filter domain.TaskFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		kind, err := domain.ParseTaskType(raw)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown task type")
			return
		}
		filter.Type = kind
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := domain.TaskStatus(strings.ToLower(raw))
		switch status {
		case domain.TaskStatusSubmitted, domain.TaskStatusRunning, domain.TaskStatusSucceeded, domain.TaskStatusFailed:
			filter.Status = status
		default:
			a.error(w, http.StatusBadRequest, "bad_request", "unknown status")
			return
		}
	}
	tasks, err := a.Tasks.List(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	a.json(w, http.StatusOK, taskListResponse{Items: tasks, Total: len(tasks)})
}

func (a *App) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	sub := req.Submission
	if strings.TrimSpace(sub.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "empty_prompt", domain.ErrEmptyPrompt.Error())
		return
	}
	jsoncfg.Normalize(&sub)
	if err := jsoncfg.ValidateOptions(sub); err != nil {
		a.fail(w, r, err)
		return
	}
	task, err := a.Tasks.Submit(r.Context(), a.requestRegion(r, req.Region), sub)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, task)
}

func (a *App) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.Tasks.Get(r.Context(), chi.URLParam(r, "task_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, task)
}

func (a *App) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	removed, err := a.Tasks.Delete(r.Context(), taskID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"task_id": taskID, "deleted": removed})
}

func (a *App) RefreshTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.Tasks.Refresh(r.Context(), chi.URLParam(r, "task_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, task)
}

func (a *App) RefreshAll(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Tasks.RefreshAll(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, summary)
}

func (a *App) RegenerateTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.Tasks.Regenerate(r.Context(), chi.URLParam(r, "task_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, task)
}

// requestRegion prefers the body, then the region middleware, then the
// service default.
func (a *App) requestRegion(r *http.Request, raw string) domain.Region {
	if region, ok := domain.ParseRegion(raw); ok {
		return region
	}
	if region := middleware.RegionFromContext(r.Context()); region != "" {
		return region
	}
	return a.Tasks.DefaultRegion()
}
