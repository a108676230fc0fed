package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"
)

// TaskType enumerates supported generation job categories.
type TaskType string

const (
	TaskTypeVideo      TaskType = "video_generation"
	TaskTypeImage      TaskType = "image_generation"
	TaskTypeSora2Video TaskType = "sora2_video_generation"
)

// legacyTaskTypes maps the labels written by the first version of the tool.
var legacyTaskTypes = map[string]TaskType{
	"视频生成":      TaskTypeVideo,
	"图片生成":      TaskTypeImage,
	"Sora2视频生成": TaskTypeSora2Video,
}

// TaskTypes lists every known task type in display order.
func TaskTypes() []TaskType {
	return []TaskType{TaskTypeVideo, TaskTypeImage, TaskTypeSora2Video}
}

// ParseTaskType resolves canonical names, short aliases and legacy labels.
func ParseTaskType(raw string) (TaskType, error) {
	value := strings.TrimSpace(raw)
	if t, ok := legacyTaskTypes[value]; ok {
		return t, nil
	}
	switch strings.ToLower(value) {
	case string(TaskTypeVideo), "video", "veo":
		return TaskTypeVideo, nil
	case string(TaskTypeImage), "image", "nano-banana", "nanobanana":
		return TaskTypeImage, nil
	case string(TaskTypeSora2Video), "sora2", "sora-video", "sora":
		return TaskTypeSora2Video, nil
	}
	return "", fmt.Errorf("%w: unknown task type %q", ErrInvalidSubmission, raw)
}

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeVideo, TaskTypeImage, TaskTypeSora2Video:
		return true
	}
	return false
}

// IsVideo reports whether the task produces a single video_url.
func (t TaskType) IsVideo() bool {
	switch t {
	case TaskTypeVideo, TaskTypeSora2Video:
		return true
	case TaskTypeImage:
		return false
	}
	return false
}

func (t *TaskType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTaskType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TaskStatus enumerates task lifecycle states.
type TaskStatus string

const (
	TaskStatusSubmitted TaskStatus = "submitted"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// Terminal reports whether no further polling may happen for the status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusFailed:
		return true
	case TaskStatusSubmitted, TaskStatusRunning:
		return false
	}
	return false
}

// ParseRemoteStatus maps a status string reported by the generation API onto
// the local state machine. Unknown values are treated as still running.
func ParseRemoteStatus(raw string) TaskStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "submitted":
		return TaskStatusSubmitted
	case "succeeded", "success", "completed":
		return TaskStatusSucceeded
	case "failed", "failure", "error":
		return TaskStatusFailed
	default:
		return TaskStatusRunning
	}
}

// Region selects one of the generation API deployments.
type Region string

const (
	RegionDomestic Region = "domestic"
	RegionOverseas Region = "overseas"
)

// ParseRegion accepts region names and the labels used by the old UI.
func ParseRegion(raw string) (Region, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RegionDomestic), "cn", "china", "国内直连":
		return RegionDomestic, true
	case string(RegionOverseas), "global", "intl", "海外":
		return RegionOverseas, true
	}
	return "", false
}

// ImageResult is one generated image of a multi-image job.
type ImageResult struct {
	URL         string `json:"url"`
	Content     string `json:"content,omitempty"`
	OriginalURL string `json:"original_url,omitempty"`
}

// APIResponseLog keeps the last normalized poll payload for diagnostics.
type APIResponseLog struct {
	Timestamp Timestamp      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Task is the persisted record of one remote generation job.
type Task struct {
	TaskID   string     `json:"task_id"`
	TaskType TaskType   `json:"task_type"`
	Status   TaskStatus `json:"status"`
	Progress int        `json:"progress"`
	Region   Region     `json:"region,omitempty"`

	Model              string `json:"model"`
	Prompt             string `json:"prompt"`
	OriginalPrompt     string `json:"original_prompt,omitempty"`
	TranslationEnabled bool   `json:"translation_enabled"`

	ReferenceImages   []string `json:"reference_images,omitempty"`
	ReferenceImageURL string   `json:"reference_image_url,omitempty"`
	URLs              []string `json:"urls,omitempty"`

	AspectRatio   string `json:"aspect_ratio,omitempty"`
	Duration      int    `json:"duration,omitempty"`
	Size          string `json:"size,omitempty"`
	FirstFrameURL string `json:"first_frame_url,omitempty"`
	WebhookURL    string `json:"webhook_url,omitempty"`
	ShutProgress  bool   `json:"shut_progress"`

	VideoURL      string        `json:"video_url,omitempty"`
	Results       []ImageResult `json:"results,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	Error         string        `json:"error,omitempty"`
	Completed     bool          `json:"completed"`

	Downloaded       bool      `json:"downloaded"`
	DownloadTime     Timestamp `json:"download_time,omitzero"`
	LocalVideoPath   string    `json:"local_video_path,omitempty"`
	OriginalVideoURL string    `json:"original_video_url,omitempty"`
	LocalImagePaths  []*string `json:"local_image_paths,omitempty"`

	SubmitTime      Timestamp       `json:"submit_time"`
	LastCheck       Timestamp       `json:"last_check,omitzero"`
	LastAPIResponse *APIResponseLog `json:"last_api_response,omitempty"`
	LastError       string          `json:"last_error,omitempty"`
}

// NewTask builds the record for a freshly accepted submission.
func NewTask(taskID string, sub Submission, region Region, now time.Time) (Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return Task{}, fmt.Errorf("%w: task id is required", ErrInvalidSubmission)
	}
	if err := sub.Validate(); err != nil {
		return Task{}, err
	}
	ts := NewTimestamp(now)
	task := Task{
		TaskID:             taskID,
		TaskType:           sub.Kind,
		Status:             TaskStatusSubmitted,
		Progress:           0,
		Region:             region,
		Model:              sub.ResolvedModel(),
		Prompt:             sub.Prompt,
		OriginalPrompt:     sub.OriginalPrompt,
		TranslationEnabled: sub.TranslationEnabled,
		ReferenceImages:    cloneStrings(sub.ReferenceImages),
		ReferenceImageURL:  sub.ReferenceImageURL,
		URLs:               cloneStrings(sub.URLs),
		AspectRatio:        sub.AspectRatio,
		Duration:           sub.Duration,
		Size:               sub.Size,
		FirstFrameURL:      sub.FirstFrameURL,
		WebhookURL:         sub.WebhookURL,
		ShutProgress:       sub.ShutProgress,
		SubmitTime:         ts,
		LastCheck:          ts,
	}
	if sub.Kind == TaskTypeImage {
		task.Results = []ImageResult{}
	}
	return task, nil
}

// Submission returns the immutable submission parameters of the task so the
// job can be sent again.
func (t Task) Submission() Submission {
	return Submission{
		Kind:               t.TaskType,
		Model:              t.Model,
		Prompt:             t.Prompt,
		OriginalPrompt:     t.OriginalPrompt,
		TranslationEnabled: t.TranslationEnabled,
		AspectRatio:        t.AspectRatio,
		Duration:           t.Duration,
		Size:               t.Size,
		FirstFrameURL:      t.FirstFrameURL,
		ReferenceImageURL:  t.ReferenceImageURL,
		ReferenceImages:    cloneStrings(t.ReferenceImages),
		URLs:               cloneStrings(t.URLs),
		WebhookURL:         t.WebhookURL,
		ShutProgress:       t.ShutProgress,
	}
}

// Clone returns a deep copy so callers cannot alias store-owned slices.
func (t Task) Clone() Task {
	out := t
	out.ReferenceImages = cloneStrings(t.ReferenceImages)
	out.URLs = cloneStrings(t.URLs)
	if t.Results != nil {
		out.Results = append([]ImageResult(nil), t.Results...)
	}
	if t.LocalImagePaths != nil {
		out.LocalImagePaths = make([]*string, len(t.LocalImagePaths))
		for i, p := range t.LocalImagePaths {
			if p != nil {
				v := *p
				out.LocalImagePaths[i] = &v
			}
		}
	}
	if t.LastAPIResponse != nil {
		log := *t.LastAPIResponse
		log.Data = maps.Clone(t.LastAPIResponse.Data)
		out.LastAPIResponse = &log
	}
	return out
}

// LocalImagePath returns the downloaded path of image i, if any.
func (t Task) LocalImagePath(i int) (string, bool) {
	if i < 0 || i >= len(t.LocalImagePaths) || t.LocalImagePaths[i] == nil {
		return "", false
	}
	return *t.LocalImagePaths[i], true
}

// SetLocalImagePath fills index i of the sparse local path list.
func (t *Task) SetLocalImagePath(i int, path string) {
	for len(t.LocalImagePaths) <= i {
		t.LocalImagePaths = append(t.LocalImagePaths, nil)
	}
	p := path
	t.LocalImagePaths[i] = &p
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
