package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
)

var statusColors = map[domain.TaskStatus]*color.Color{
	domain.TaskStatusSubmitted: color.New(color.FgCyan),
	domain.TaskStatusRunning:   color.New(color.FgYellow),
	domain.TaskStatusSucceeded: color.New(color.FgGreen),
	domain.TaskStatusFailed:    color.New(color.FgRed, color.Bold),
}

func statusLabel(status domain.TaskStatus) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(string(status))
	}
	return string(status)
}

func writeTaskTable(w io.Writer, tasks []domain.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "no tasks")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK ID\tTYPE\tSTATUS\tPROGRESS\tSUBMITTED\tLOCAL\tPROMPT")
	for _, t := range tasks {
		local := "-"
		if t.Downloaded {
			local = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\t%s\t%s\n",
			t.TaskID, t.TaskType, statusLabel(t.Status), t.Progress,
			submitted(t), local, truncate(t.Prompt, 40))
	}
	return tw.Flush()
}

func writeTaskDetail(w io.Writer, t domain.Task) {
	fmt.Fprintf(w, "%s  %s  %s  %d%%\n", t.TaskID, t.TaskType, statusLabel(t.Status), t.Progress)
	if t.VideoURL != "" {
		fmt.Fprintf(w, "video: %s\n", t.VideoURL)
	}
	for i, r := range t.Results {
		fmt.Fprintf(w, "image %d: %s\n", i, r.URL)
	}
	if t.Status == domain.TaskStatusFailed {
		fmt.Fprintf(w, "failure: %s: %s\n", t.FailureReason, t.Error)
	}
	if t.LastError != "" {
		fmt.Fprintf(w, "last poll error: %s\n", t.LastError)
	}
}

func writeLocalFiles(w io.Writer, t domain.Task) {
	if t.LocalVideoPath != "" {
		fmt.Fprintln(w, t.LocalVideoPath)
	}
	for i := range t.LocalImagePaths {
		if path, ok := t.LocalImagePath(i); ok {
			fmt.Fprintln(w, path)
		}
	}
}

func submitted(t domain.Task) string {
	if t.SubmitTime.IsZero() {
		return "-"
	}
	return t.SubmitTime.Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
