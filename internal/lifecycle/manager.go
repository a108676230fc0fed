// Package lifecycle owns the task state machine: it turns submissions into
// tracked records and reconciles records with the remote job status.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
	"github.com/XIAOke8698/GRAS-Manager/internal/metrics"
	"github.com/XIAOke8698/GRAS-Manager/internal/providers/grsai"
	"github.com/XIAOke8698/GRAS-Manager/internal/providers/prompt"
)

const defaultConcurrency = 4

// RemoteClient is the subset of the generation API the manager needs.
type RemoteClient interface {
	Submit(ctx context.Context, region domain.Region, sub domain.Submission) grsai.SubmitResult
	Poll(ctx context.Context, region domain.Region, taskID string) grsai.StatusResult
}

// PromptGate normalizes prompts before they are submitted.
type PromptGate interface {
	Normalize(ctx context.Context, text string) (prompt.Result, error)
}

type Options struct {
	Store         domain.TaskRepository
	Client        RemoteClient
	Gate          PromptGate
	DefaultRegion domain.Region
	Concurrency   int
	Now           func() time.Time
	Logger        *infra.Logger
}

type Manager struct {
	store         domain.TaskRepository
	client        RemoteClient
	gate          PromptGate
	defaultRegion domain.Region
	concurrency   int
	now           func() time.Time
	logger        infra.Logger
}

// RefreshSummary describes one sweep over the pending tasks.
type RefreshSummary struct {
	Polled      int `json:"polled"`
	PollErrors  int `json:"poll_errors"`
	Transitions int `json:"transitions"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
}

// Stats counts stored tasks.
type Stats struct {
	Total      int                       `json:"total"`
	ByStatus   map[domain.TaskStatus]int `json:"by_status"`
	ByType     map[domain.TaskType]int   `json:"by_type"`
	Downloaded int                       `json:"downloaded"`
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("lifecycle: store is required")
	}
	if opts.Client == nil {
		return nil, errors.New("lifecycle: client is required")
	}
	region := opts.DefaultRegion
	if region == "" {
		region = domain.RegionDomestic
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store:         opts.Store,
		client:        opts.Client,
		gate:          opts.Gate,
		defaultRegion: region,
		concurrency:   concurrency,
		now:           now,
		logger:        infra.LoggerOrNop(opts.Logger),
	}, nil
}

// DefaultRegion returns the region used when a caller does not pick one.
func (m *Manager) DefaultRegion() domain.Region {
	return m.defaultRegion
}

// Submit sends a new job and records it. An empty prompt is rejected before
// anything else happens. When translation is enabled the prompt goes through
// the gate first and a translation failure aborts the submission.
func (m *Manager) Submit(ctx context.Context, region domain.Region, sub domain.Submission) (*domain.Task, error) {
	sub.CleanReferences()
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if sub.OriginalPrompt == "" {
		sub.OriginalPrompt = sub.Prompt
	}
	if sub.TranslationEnabled {
		if m.gate == nil {
			metrics.RecordSubmission(string(sub.Kind), metrics.OutcomeTranslationFailed)
			return nil, &prompt.TranslationError{Provider: "none", Reason: "not_configured"}
		}
		res, err := m.gate.Normalize(ctx, sub.Prompt)
		if err != nil {
			metrics.RecordSubmission(string(sub.Kind), metrics.OutcomeTranslationFailed)
			return nil, fmt.Errorf("lifecycle: translate prompt: %w", err)
		}
		sub.Prompt = res.Text
	}
	return m.submit(ctx, region, sub)
}

// Regenerate submits the stored parameters of taskID again. The stored
// prompt is already translated, so the gate is skipped. The old task is not
// modified.
func (m *Manager) Regenerate(ctx context.Context, taskID string) (*domain.Task, error) {
	prior, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, prior.Region, prior.Submission())
}

func (m *Manager) submit(ctx context.Context, region domain.Region, sub domain.Submission) (*domain.Task, error) {
	region = m.region(region)
	res := m.client.Submit(ctx, region, sub)
	if !res.OK {
		metrics.RecordSubmission(string(sub.Kind), metrics.OutcomeRejected)
		m.logger.Warn().
			Str("task_type", string(sub.Kind)).
			Str("region", string(region)).
			Str("message", res.Message).
			Msg("lifecycle: submission rejected")
		return nil, &SubmitError{Kind: sub.Kind, Region: region, Message: res.Message}
	}
	task, err := domain.NewTask(res.TaskID, sub, region, m.now())
	if err != nil {
		metrics.RecordSubmission(string(sub.Kind), metrics.OutcomeError)
		return nil, fmt.Errorf("lifecycle: build task: %w", err)
	}
	if err := m.store.Add(ctx, task); err != nil {
		metrics.RecordSubmission(string(sub.Kind), metrics.OutcomeError)
		return nil, err
	}
	metrics.RecordSubmission(string(sub.Kind), metrics.OutcomeOK)
	m.logger.Info().
		Str("task_id", task.TaskID).
		Str("task_type", string(task.TaskType)).
		Str("region", string(region)).
		Msg("lifecycle: task submitted")
	return &task, nil
}

// Get returns one task.
func (m *Manager) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	return m.store.Get(ctx, taskID)
}

// List returns matching tasks, newest first.
func (m *Manager) List(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	tasks, err := m.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	slices.Reverse(tasks)
	return tasks, nil
}

// Refresh polls one task and merges the result. Terminal tasks are returned
// unchanged without a network call.
func (m *Manager) Refresh(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return task, nil
	}
	res := m.poll(ctx, *task)
	var changed bool
	updated, err := m.store.Update(ctx, taskID, func(t *domain.Task) error {
		changed = Apply(t, res, m.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		m.recordTransition(*updated)
	}
	return updated, nil
}

// RefreshAll polls every pending task in parallel and persists once.
// Tasks deleted during the sweep are skipped.
func (m *Manager) RefreshAll(ctx context.Context) (RefreshSummary, error) {
	var summary RefreshSummary
	tasks, err := m.store.List(ctx, domain.TaskFilter{})
	if err != nil {
		return summary, err
	}
	pending := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Status.Terminal() {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return summary, nil
	}

	results := make([]grsai.StatusResult, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i := range pending {
		i := i
		g.Go(func() error {
			results[i] = m.poll(gctx, pending[i])
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	byID := make(map[string]grsai.StatusResult, len(pending))
	ids := make([]string, len(pending))
	for i := range pending {
		ids[i] = pending[i].TaskID
		byID[ids[i]] = results[i]
		summary.Polled++
		if !results[i].OK() {
			summary.PollErrors++
		}
	}

	// Results are applied to the stored record as it is now, not to the
	// copies taken before polling: a task may have finished or been
	// downloaded by another process while the sweep was in flight.
	now := m.now()
	var transitioned []domain.Task
	updated, err := m.store.UpdateMany(ctx, ids, func(t *domain.Task) error {
		if Apply(t, byID[t.TaskID], now) {
			transitioned = append(transitioned, t.Clone())
		}
		return nil
	})
	if err != nil {
		return summary, err
	}
	for _, t := range transitioned {
		summary.Transitions++
		m.recordTransition(t)
	}
	for _, t := range updated {
		switch t.Status {
		case domain.TaskStatusSucceeded:
			summary.Succeeded++
		case domain.TaskStatusFailed:
			summary.Failed++
		case domain.TaskStatusSubmitted, domain.TaskStatusRunning:
		}
	}
	m.logger.Info().
		Int("polled", summary.Polled).
		Int("poll_errors", summary.PollErrors).
		Int("transitions", summary.Transitions).
		Msg("lifecycle: refresh sweep")
	return summary, nil
}

// Delete removes one task. Unknown ids report false.
func (m *Manager) Delete(ctx context.Context, taskID string) (bool, error) {
	removed, err := m.store.Delete(ctx, taskID)
	if err != nil {
		return false, err
	}
	if removed {
		m.logger.Info().Str("task_id", taskID).Msg("lifecycle: task deleted")
	}
	return removed, nil
}

// Stats counts the stored tasks and publishes the per-status gauge.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	tasks, err := m.store.List(ctx, domain.TaskFilter{})
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Total:    len(tasks),
		ByStatus: make(map[domain.TaskStatus]int),
		ByType:   make(map[domain.TaskType]int),
	}
	for _, t := range tasks {
		st.ByStatus[t.Status]++
		st.ByType[t.TaskType]++
		if t.Downloaded {
			st.Downloaded++
		}
	}
	statuses := []string{
		string(domain.TaskStatusSubmitted),
		string(domain.TaskStatusRunning),
		string(domain.TaskStatusSucceeded),
		string(domain.TaskStatusFailed),
	}
	counts := make(map[string]int, len(st.ByStatus))
	for s, n := range st.ByStatus {
		counts[string(s)] = n
	}
	metrics.SetTasksByStatus(statuses, counts)
	return st, nil
}

func (m *Manager) poll(ctx context.Context, task domain.Task) grsai.StatusResult {
	res := m.client.Poll(ctx, m.region(task.Region), task.TaskID)
	switch {
	case res.OK():
		metrics.RecordPoll(metrics.PollOK)
	case res.Code == grsai.CodeTransport:
		metrics.RecordPoll(metrics.PollTransport)
	default:
		metrics.RecordPoll(metrics.PollApplication)
	}
	if !res.OK() {
		m.logger.Warn().
			Str("task_id", task.TaskID).
			Int("code", res.Code).
			Str("msg", res.Msg).
			Msg("lifecycle: poll failed")
	}
	return res
}

func (m *Manager) recordTransition(task domain.Task) {
	metrics.RecordTransition(string(task.Status))
	ev := m.logger.Info()
	if task.Status == domain.TaskStatusFailed {
		ev = m.logger.Warn().Str("failure_reason", task.FailureReason).Str("error", task.Error)
	}
	ev.Str("task_id", task.TaskID).
		Str("task_type", string(task.TaskType)).
		Str("status", string(task.Status)).
		Int("progress", task.Progress).
		Msg("lifecycle: status changed")
}

func (m *Manager) region(r domain.Region) domain.Region {
	if parsed, ok := domain.ParseRegion(strings.TrimSpace(string(r))); ok {
		return parsed
	}
	return m.defaultRegion
}
