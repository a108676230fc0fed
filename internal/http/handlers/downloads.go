package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/pkg/zip"
)

// DownloadTask materializes media locally. Without ?index every pending item
// is fetched.
func (a *App) DownloadTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	raw := strings.TrimSpace(r.URL.Query().Get("index"))
	var (
		task *domain.Task
		err  error
	)
	if raw == "" || raw == "all" {
		task, err = a.Downloads.MaterializeAll(r.Context(), taskID)
	} else {
		index, convErr := strconv.Atoi(raw)
		if convErr != nil || index < 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "index must be a non-negative integer")
			return
		}
		task, err = a.Downloads.Materialize(r.Context(), taskID, index)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, task)
}

// ImagesZip streams the downloaded images of a task as one archive.
func (a *App) ImagesZip(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	task, err := a.Tasks.Get(r.Context(), taskID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if task.TaskType != domain.TaskTypeImage {
		a.error(w, http.StatusConflict, "not_downloadable", "task has no images")
		return
	}
	var assets []zip.Asset
	for i := range task.Results {
		path, ok := task.LocalImagePath(i)
		if !ok {
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: filepath.Base(path),
			Path:     path,
			Modified: task.DownloadTime.Time,
		})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusConflict, "not_downloadable", "no images downloaded yet")
		return
	}
	files := a.Downloads.Files()
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=images_%s.zip", taskID))
	w.WriteHeader(http.StatusOK)
	err = zip.WriteArchive(w, assets, func(path string) (io.ReadCloser, error) {
		return files.Open(path)
	})
	if err != nil {
		a.Logger.Error().Err(err).Str("task_id", taskID).Msg("handlers: write images archive")
	}
}
