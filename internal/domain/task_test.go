package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskTypeAcceptsLegacyLabels(t *testing.T) {
	cases := map[string]TaskType{
		"视频生成":                   TaskTypeVideo,
		"图片生成":                   TaskTypeImage,
		"Sora2视频生成":              TaskTypeSora2Video,
		"veo":                    TaskTypeVideo,
		"nano-banana":            TaskTypeImage,
		"SORA2":                  TaskTypeSora2Video,
		"image_generation":       TaskTypeImage,
		"sora2_video_generation": TaskTypeSora2Video,
	}
	for raw, want := range cases {
		got, err := ParseTaskType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseTaskType("audio")
	require.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestParseRemoteStatus(t *testing.T) {
	assert.Equal(t, TaskStatusSubmitted, ParseRemoteStatus("submitted"))
	assert.Equal(t, TaskStatusRunning, ParseRemoteStatus("running"))
	assert.Equal(t, TaskStatusRunning, ParseRemoteStatus("processing"))
	assert.Equal(t, TaskStatusRunning, ParseRemoteStatus(""))
	assert.Equal(t, TaskStatusSucceeded, ParseRemoteStatus("Succeeded"))
	assert.Equal(t, TaskStatusFailed, ParseRemoteStatus("failed"))

	assert.True(t, TaskStatusSucceeded.Terminal())
	assert.True(t, TaskStatusFailed.Terminal())
	assert.False(t, TaskStatusSubmitted.Terminal())
	assert.False(t, TaskStatusRunning.Terminal())
}

func TestDecodeLegacyRecord(t *testing.T) {
	raw := `{
		"task_type": "图片生成",
		"model": "nano-banana-fast",
		"prompt": "a cat",
		"urls": [],
		"task_id": "img-1",
		"status": "succeeded",
		"progress": 100,
		"submit_time": "2025-01-02 03:04:05",
		"last_check": "2025-01-02 03:05:00",
		"results": [{"url": "https://cdn.example.com/1.png", "content": "done"}],
		"local_image_paths": [null, "/tmp/image_img-1_1.png"],
		"completed": true
	}`
	var task Task
	require.NoError(t, json.Unmarshal([]byte(raw), &task))

	assert.Equal(t, TaskTypeImage, task.TaskType)
	assert.Equal(t, TaskStatusSucceeded, task.Status)
	assert.Equal(t, 2025, task.SubmitTime.Year())
	assert.Equal(t, 5, task.LastCheck.Minute())

	_, ok := task.LocalImagePath(0)
	assert.False(t, ok)
	path, ok := task.LocalImagePath(1)
	require.True(t, ok)
	assert.Equal(t, "/tmp/image_img-1_1.png", path)
}

func TestSubmissionValidate(t *testing.T) {
	cases := []struct {
		name string
		sub  Submission
		want error
	}{
		{name: "empty prompt", sub: Submission{Kind: TaskTypeVideo, Model: "veo3-fast", AspectRatio: "16:9", Prompt: "  "}, want: ErrEmptyPrompt},
		{name: "video ok", sub: Submission{Kind: TaskTypeVideo, Model: "veo3-fast", AspectRatio: "16:9", Prompt: "a cat"}},
		{name: "video missing aspect", sub: Submission{Kind: TaskTypeVideo, Model: "veo3-fast", Prompt: "a cat"}, want: ErrInvalidSubmission},
		{name: "image ok", sub: Submission{Kind: TaskTypeImage, Model: "nano-banana", Prompt: "a cat"}},
		{name: "sora2 missing size", sub: Submission{Kind: TaskTypeSora2Video, AspectRatio: "9:16", Duration: 10, Prompt: "a cat"}, want: ErrInvalidSubmission},
		{name: "sora2 ok", sub: Submission{Kind: TaskTypeSora2Video, AspectRatio: "9:16", Duration: 10, Size: "small", Prompt: "a cat"}},
		{name: "unknown kind", sub: Submission{Kind: "audio", Prompt: "a cat"}, want: ErrInvalidSubmission},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sub.Validate()
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, tc.want), "got %v, want %v", err, tc.want)
		})
	}
}

func TestNewTaskInitialState(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	sub := Submission{Kind: TaskTypeSora2Video, Model: "ignored", Prompt: "a cat", AspectRatio: "9:16", Duration: 15, Size: "large"}

	task, err := NewTask("sora-1", sub, RegionOverseas, now)
	require.NoError(t, err)

	assert.Equal(t, TaskStatusSubmitted, task.Status)
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, Sora2Model, task.Model)
	assert.Equal(t, RegionOverseas, task.Region)
	assert.False(t, task.Completed)
	assert.True(t, task.SubmitTime.Equal(now))
	assert.Empty(t, task.VideoURL)

	_, err = NewTask("", sub, RegionOverseas, now)
	require.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestCloneDoesNotAlias(t *testing.T) {
	task := Task{TaskID: "a", Results: []ImageResult{{URL: "u"}}, URLs: []string{"x"}}
	task.SetLocalImagePath(1, "/p")

	clone := task.Clone()
	clone.Results[0].URL = "changed"
	clone.URLs[0] = "changed"
	*clone.LocalImagePaths[1] = "changed"

	assert.Equal(t, "u", task.Results[0].URL)
	assert.Equal(t, "x", task.URLs[0])
	path, _ := task.LocalImagePath(1)
	assert.Equal(t, "/p", path)
}
