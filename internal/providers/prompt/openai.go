package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Temperature  float64
	MaxTokens    int
}

// OpenAITranslator calls an OpenAI compatible chat completions endpoint.
// The defaults point at DeepSeek.
type OpenAITranslator struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
	temperature  float64
	maxTokens    int
}

const (
	openAIDefaultTimeout  = 30 * time.Second
	openAIProviderName    = "openai"
	defaultOpenAIModel    = "deepseek-chat"
	defaultOpenAIBaseURL  = "https://api.deepseek.com/v1"
	defaultOpenAITemp     = 0.7
	defaultOpenAIMaxToken = 1000
)

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewOpenAITranslator(opts OpenAIOptions) (*OpenAITranslator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = defaultOpenAITemp
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultOpenAIMaxToken
	}
	return &OpenAITranslator{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        coalesce(opts.Model, defaultOpenAIModel),
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
		temperature:  temperature,
		maxTokens:    maxTokens,
	}, nil
}

func (o *OpenAITranslator) Name() string {
	return openAIProviderName
}

func (o *OpenAITranslator) Translate(ctx context.Context, text string) (string, error) {
	payload := openAIChatRequest{
		Model:       o.model,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
		Messages: []openAIMessage{
			{Role: "system", Content: translateInstruction},
			{Role: "user", Content: translateUserMessage(text)},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", o.fail("encode_request", err)
	}
	endpoint := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", o.fail("build_request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", o.organization)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", o.fail("http_request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return "", o.fail(fmt.Sprintf("http_%d", resp.StatusCode), fmt.Errorf("openai status %d", resp.StatusCode))
	}
	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", o.fail("decode_response", err)
	}
	if len(out.Choices) == 0 {
		return "", o.fail("empty_choices", errors.New("no choices"))
	}
	translated := cleanTranslation(out.Choices[0].Message.Content)
	if translated == "" {
		return "", o.fail("empty_response", errors.New("empty response"))
	}
	return translated, nil
}

func (o *OpenAITranslator) fail(reason string, err error) error {
	return &TranslationError{Provider: openAIProviderName, Reason: reason, Err: err}
}

var _ Translator = (*OpenAITranslator)(nil)
