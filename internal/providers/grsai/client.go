// Package grsai talks to the grsai generation API: three submission endpoints
// and one shared status endpoint behind a {code, msg, data} envelope.
package grsai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
)

const (
	DefaultDomesticURL = "https://grsai.dakka.com.cn"
	DefaultOverseasURL = "https://api.grsai.com"

	defaultSubmitTimeout = 30 * time.Second
	defaultPollTimeout   = 15 * time.Second

	// CodeTransport marks a poll that never produced a decodable envelope.
	CodeTransport = -1

	defaultFailureReason = "error"
	defaultFailureError  = "unknown error"

	resultPath = "/v1/draw/result"
)

var endpoints = map[domain.TaskType]string{
	domain.TaskTypeVideo:      "/v1/video/veo",
	domain.TaskTypeImage:      "/v1/draw/nano-banana",
	domain.TaskTypeSora2Video: "/v1/video/sora-video",
}

type Options struct {
	APIKey        string
	DomesticURL   string
	OverseasURL   string
	HTTPClient    *http.Client
	SubmitTimeout time.Duration
	PollTimeout   time.Duration
	Logger        *infra.Logger
}

// Client is stateless apart from its configuration and safe for concurrent use.
type Client struct {
	apiKey        string
	baseURLs      map[domain.Region]string
	http          *http.Client
	submitTimeout time.Duration
	pollTimeout   time.Duration
	logger        infra.Logger
}

// SubmitResult reports the outcome of a submission. Message is human readable
// in both cases.
type SubmitResult struct {
	TaskID  string
	OK      bool
	Message string
}

// StatusResult is the normalized outcome of a poll. Code is 0 on success,
// CodeTransport for network or HTTP failures and the remote code otherwise.
type StatusResult struct {
	Code    int
	Msg     string
	Payload StatusPayload
	// Data is the normalized payload as a generic document, kept for
	// diagnostics.
	Data map[string]any
}

// OK reports whether the poll itself succeeded. The job may still have failed.
func (r StatusResult) OK() bool {
	return r.Code == 0
}

// StatusPayload is the typed view of a successful poll.
type StatusPayload struct {
	ID            string
	Status        string
	Progress      *int
	URL           string
	Results       []domain.ImageResult
	FailureReason string
	Error         string
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("grsai: api key is required")
	}
	domestic := strings.TrimRight(strings.TrimSpace(opts.DomesticURL), "/")
	if domestic == "" {
		domestic = DefaultDomesticURL
	}
	overseas := strings.TrimRight(strings.TrimSpace(opts.OverseasURL), "/")
	if overseas == "" {
		overseas = DefaultOverseasURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	submitTimeout := opts.SubmitTimeout
	if submitTimeout <= 0 {
		submitTimeout = defaultSubmitTimeout
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	return &Client{
		apiKey: apiKey,
		baseURLs: map[domain.Region]string{
			domain.RegionDomestic: domestic,
			domain.RegionOverseas: overseas,
		},
		http:          client,
		submitTimeout: submitTimeout,
		pollTimeout:   pollTimeout,
		logger:        infra.LoggerOrNop(opts.Logger),
	}, nil
}

// BaseURL returns the API root for region. Unknown regions use the domestic
// deployment.
func (c *Client) BaseURL(region domain.Region) string {
	if u, ok := c.baseURLs[region]; ok {
		return u
	}
	return c.baseURLs[domain.RegionDomestic]
}

// Submit posts a new generation job. It never returns an error; failures are
// reported through SubmitResult.OK and Message.
func (c *Client) Submit(ctx context.Context, region domain.Region, sub domain.Submission) SubmitResult {
	path, ok := endpoints[sub.Kind]
	if !ok {
		return SubmitResult{Message: fmt.Sprintf("unsupported task type %q", sub.Kind)}
	}
	body, err := json.Marshal(buildPayload(sub))
	if err != nil {
		return SubmitResult{Message: fmt.Sprintf("encode request: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	log := c.logger.With().Str("region", string(region)).Str("task_type", string(sub.Kind)).Logger()
	status, env, err := c.post(ctx, c.BaseURL(region)+path, body)
	if err != nil {
		log.Warn().Err(err).Msg("grsai: submit request failed")
		return SubmitResult{Message: fmt.Sprintf("request failed: %v", err)}
	}
	if status != http.StatusOK {
		log.Warn().Int("status", status).Msg("grsai: submit rejected")
		return SubmitResult{Message: fmt.Sprintf("HTTP %d", status)}
	}
	if env.Code != 0 {
		msg := coalesce(env.Msg, defaultFailureError)
		log.Warn().Int("code", env.Code).Str("msg", msg).Msg("grsai: submit refused")
		return SubmitResult{Message: msg}
	}
	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || strings.TrimSpace(data.ID) == "" {
		log.Warn().Err(err).Msg("grsai: submit response without id")
		return SubmitResult{Message: "response did not contain a task id"}
	}
	log.Info().Str("task_id", data.ID).Msg("grsai: job submitted")
	return SubmitResult{TaskID: data.ID, OK: true, Message: "submitted"}
}

// Poll fetches the remote status of taskID. A job the remote reports as
// failed always carries a non-empty failure reason and error.
func (c *Client) Poll(ctx context.Context, region domain.Region, taskID string) StatusResult {
	body, err := json.Marshal(map[string]string{"id": taskID})
	if err != nil {
		return StatusResult{Code: CodeTransport, Msg: fmt.Sprintf("encode request: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	status, env, err := c.post(ctx, c.BaseURL(region)+resultPath, body)
	if err != nil {
		return StatusResult{Code: CodeTransport, Msg: fmt.Sprintf("request failed: %v", err)}
	}
	if status != http.StatusOK {
		return StatusResult{Code: CodeTransport, Msg: fmt.Sprintf("HTTP %d", status)}
	}
	if env.Code != 0 {
		return StatusResult{Code: env.Code, Msg: coalesce(env.Msg, "request failed")}
	}

	data := map[string]any{}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return StatusResult{Code: CodeTransport, Msg: fmt.Sprintf("decode status payload: %v", err)}
		}
	}
	payload := parsePayload(data)
	if domain.ParseRemoteStatus(payload.Status) == domain.TaskStatusFailed {
		payload, data = normalizeFailure(taskID, payload)
	}
	return StatusResult{Code: 0, Msg: coalesce(env.Msg, "success"), Payload: payload, Data: data}
}

func (c *Client) post(ctx context.Context, url string, body []byte) (int, envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, envelope{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, envelope{}, nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, envelope{}, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, env, nil
}

// normalizeFailure reshapes a failed job so both failure fields are present.
func normalizeFailure(taskID string, p StatusPayload) (StatusPayload, map[string]any) {
	p.FailureReason = coalesce(p.FailureReason, defaultFailureReason)
	p.Error = coalesce(p.Error, defaultFailureError)
	p.ID = coalesce(p.ID, taskID)
	progress := 0
	if p.Progress != nil {
		progress = *p.Progress
	}
	data := map[string]any{
		"id":             p.ID,
		"status":         "failed",
		"progress":       float64(progress),
		"failure_reason": p.FailureReason,
		"error":          p.Error,
	}
	return p, data
}

func parsePayload(data map[string]any) StatusPayload {
	p := StatusPayload{
		ID:            stringField(data, "id"),
		Status:        stringField(data, "status"),
		URL:           stringField(data, "url"),
		FailureReason: stringField(data, "failure_reason"),
		Error:         stringField(data, "error"),
	}
	if v, ok := data["progress"]; ok {
		switch n := v.(type) {
		case float64:
			progress := int(n)
			p.Progress = &progress
		case string:
			var progress int
			if _, err := fmt.Sscanf(n, "%d", &progress); err == nil {
				p.Progress = &progress
			}
		}
	}
	if items, ok := data["results"].([]any); ok {
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			p.Results = append(p.Results, domain.ImageResult{
				URL:     stringField(m, "url"),
				Content: stringField(m, "content"),
			})
		}
	}
	return p
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
