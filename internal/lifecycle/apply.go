package lifecycle

import (
	"time"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/internal/providers/grsai"
)

const (
	fallbackFailureReason = "error"
	fallbackFailureError  = "unknown error"
)

// Apply merges one poll result into task and reports whether the status
// changed. It is the only place remote state is written into a record.
//
// Terminal tasks are never touched. A poll that failed at the transport or
// application level only updates the bookkeeping fields. A successful poll
// overwrites progress and status, sets the media fields it carries and
// replaces the result set wholesale, after which progress 100 on a task that
// has not failed forces the succeeded status.
func Apply(task *domain.Task, res grsai.StatusResult, now time.Time) bool {
	if task.Status.Terminal() {
		return false
	}
	ts := domain.NewTimestamp(now)
	task.LastCheck = ts

	if !res.OK() {
		task.LastError = res.Msg
		task.LastAPIResponse = &domain.APIResponseLog{
			Timestamp: ts,
			Data:      map[string]any{"code": float64(res.Code), "msg": res.Msg},
		}
		return false
	}

	before := task.Status
	p := res.Payload
	if p.Progress != nil {
		task.Progress = clampProgress(*p.Progress)
	}
	if p.Status != "" {
		task.Status = domain.ParseRemoteStatus(p.Status)
	}
	if p.URL != "" {
		task.VideoURL = p.URL
	}
	if p.FailureReason != "" {
		task.FailureReason = p.FailureReason
	}
	if p.Error != "" {
		task.Error = p.Error
	}
	if len(p.Results) > 0 {
		task.Results = append([]domain.ImageResult(nil), p.Results...)
	}

	if task.Progress == 100 && task.Status != domain.TaskStatusFailed {
		task.Status = domain.TaskStatusSucceeded
	}
	switch task.Status {
	case domain.TaskStatusSucceeded:
		task.Completed = true
	case domain.TaskStatusFailed:
		if task.FailureReason == "" {
			task.FailureReason = fallbackFailureReason
		}
		if task.Error == "" {
			task.Error = fallbackFailureError
		}
	case domain.TaskStatusSubmitted, domain.TaskStatusRunning:
	}

	task.LastAPIResponse = &domain.APIResponseLog{Timestamp: ts, Data: res.Data}
	return task.Status != before
}

func clampProgress(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
