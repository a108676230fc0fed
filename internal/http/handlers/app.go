package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/internal/download"
	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
	"github.com/XIAOke8698/GRAS-Manager/internal/lifecycle"
	"github.com/XIAOke8698/GRAS-Manager/internal/providers/prompt"
	"github.com/XIAOke8698/GRAS-Manager/internal/storage"
)

// TaskService is the lifecycle surface the HTTP API exposes.
type TaskService interface {
	Submit(ctx context.Context, region domain.Region, sub domain.Submission) (*domain.Task, error)
	Regenerate(ctx context.Context, taskID string) (*domain.Task, error)
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	List(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)
	Refresh(ctx context.Context, taskID string) (*domain.Task, error)
	RefreshAll(ctx context.Context) (lifecycle.RefreshSummary, error)
	Delete(ctx context.Context, taskID string) (bool, error)
	Stats(ctx context.Context) (lifecycle.Stats, error)
	DefaultRegion() domain.Region
}

// Downloader materializes finished media locally.
type Downloader interface {
	Materialize(ctx context.Context, taskID string, index int) (*domain.Task, error)
	MaterializeAll(ctx context.Context, taskID string) (*domain.Task, error)
	Files() *storage.FileStore
}

// PromptGate previews what submission would do with a prompt.
type PromptGate interface {
	Normalize(ctx context.Context, text string) (prompt.Result, error)
}

type App struct {
	Config    *infra.Config
	Tasks     TaskService
	Downloads Downloader
	Gate      PromptGate
	Logger    zerolog.Logger
}

func NewApp(cfg *infra.Config, tasks TaskService, downloads Downloader, gate PromptGate, logger zerolog.Logger) *App {
	return &App{Config: cfg, Tasks: tasks, Downloads: downloads, Gate: gate, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// fail maps service errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		submitErr   *lifecycle.SubmitError
		translation *prompt.TranslationError
		downloadErr *download.Error
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "task not found")
	case errors.Is(err, domain.ErrEmptyPrompt):
		a.error(w, http.StatusBadRequest, "empty_prompt", err.Error())
	case errors.Is(err, domain.ErrInvalidSubmission):
		a.error(w, http.StatusBadRequest, "invalid_submission", err.Error())
	case errors.Is(err, domain.ErrNotDownloadable):
		a.error(w, http.StatusConflict, "not_downloadable", err.Error())
	case errors.As(err, &submitErr):
		a.error(w, http.StatusBadGateway, "submit_rejected", submitErr.Message)
	case errors.As(err, &translation):
		a.error(w, http.StatusBadGateway, "translation_failed", translation.Error())
	case errors.As(err, &downloadErr):
		a.error(w, http.StatusBadGateway, "download_failed", downloadErr.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		a.error(w, http.StatusGatewayTimeout, "timeout", "request cancelled")
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("handlers: unexpected error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
