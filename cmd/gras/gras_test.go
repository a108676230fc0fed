package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
)

func TestSubmissionDefaultsPerKind(t *testing.T) {
	sub, err := submitFlags{prompt: "a cat"}.submission("veo")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskTypeVideo, sub.Kind)
	assert.Equal(t, "veo3-fast", sub.Model)
	assert.Equal(t, "16:9", sub.AspectRatio)

	sub, err = submitFlags{prompt: "a cat", references: []string{"https://r/1.png", " "}}.submission("image")
	require.NoError(t, err)
	assert.Equal(t, "nano-banana-fast", sub.Model)
	assert.Equal(t, []string{"https://r/1.png"}, sub.URLs)

	sub, err = submitFlags{prompt: "a cat", references: []string{"https://r/ref.png"}}.submission("sora2")
	require.NoError(t, err)
	assert.Equal(t, domain.Sora2Model, sub.Model)
	assert.Equal(t, 10, sub.Duration)
	assert.Equal(t, "small", sub.Size)
	assert.Equal(t, "https://r/ref.png", sub.ReferenceImageURL)
}

func TestSubmissionRejectsBadInput(t *testing.T) {
	_, err := submitFlags{prompt: "   "}.submission("veo")
	assert.ErrorIs(t, err, domain.ErrEmptyPrompt)

	_, err = submitFlags{prompt: "x"}.submission("hologram")
	assert.ErrorIs(t, err, domain.ErrInvalidSubmission)

	_, err = submitFlags{prompt: "x", duration: 12}.submission("sora2")
	assert.ErrorIs(t, err, domain.ErrInvalidSubmission)
}

func TestParseFilter(t *testing.T) {
	filter, err := parseFilter("image", "Succeeded")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskFilter{Type: domain.TaskTypeImage, Status: domain.TaskStatusSucceeded}, filter)

	_, err = parseFilter("", "done")
	assert.Error(t, err)
}

func TestWriteTaskTable(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, writeTaskTable(&buf, nil))
	assert.Equal(t, "no tasks\n", buf.String())

	buf.Reset()
	require.NoError(t, writeTaskTable(&buf, []domain.Task{
		{TaskID: "t-1", TaskType: domain.TaskTypeVideo, Status: domain.TaskStatusRunning, Progress: 40, Prompt: strings.Repeat("x", 60)},
	}))
	out := buf.String()
	assert.Contains(t, out, "t-1")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "40%")
	assert.Contains(t, out, strings.Repeat("x", 39)+"…")
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "月亮", truncate("月亮", 2))
	assert.Equal(t, "月…", truncate("月亮上", 2))
}

func TestProgressBarPassesBytesThrough(t *testing.T) {
	var sink bytes.Buffer
	wrap := progressBar(&sink)
	r, done := wrap("video_t1.mp4", 5, strings.NewReader("hello"))
	got, err := io.ReadAll(r)
	done()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	r, done = wrap("image_t1_0.png", -1, strings.NewReader("abc"))
	got, err = io.ReadAll(r)
	done()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestCommandsAreRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range GetRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"submit", "list", "refresh", "regenerate", "download", "delete", "stats"} {
		assert.True(t, names[want], want)
	}
}
