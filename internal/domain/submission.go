package domain

import (
	"fmt"
	"strings"
)

// Sora2Model is the only model accepted by the sora-video endpoint.
const Sora2Model = "sora-2"

// NoWebhook tells the generation API not to push callbacks; the caller polls.
const NoWebhook = "-1"

// Submission captures the user intent for one generation job.
type Submission struct {
	Kind               TaskType `json:"kind"`
	Model              string   `json:"model"`
	Prompt             string   `json:"prompt"`
	OriginalPrompt     string   `json:"original_prompt,omitempty"`
	TranslationEnabled bool     `json:"translation_enabled"`
	AspectRatio        string   `json:"aspect_ratio,omitempty"`
	Duration           int      `json:"duration,omitempty"`
	Size               string   `json:"size,omitempty"`
	FirstFrameURL      string   `json:"first_frame_url,omitempty"`
	ReferenceImageURL  string   `json:"reference_image_url,omitempty"`
	ReferenceImages    []string `json:"reference_images,omitempty"`
	URLs               []string `json:"urls,omitempty"`
	WebhookURL         string   `json:"webhook_url,omitempty"`
	ShutProgress       bool     `json:"shut_progress"`
}

// Validate checks the fields every job of the given kind needs. Option values
// themselves are checked by the caller (see jsoncfg.ValidateOptions).
func (s Submission) Validate() error {
	if strings.TrimSpace(s.Prompt) == "" {
		return ErrEmptyPrompt
	}
	switch s.Kind {
	case TaskTypeVideo:
		if strings.TrimSpace(s.Model) == "" {
			return fmt.Errorf("%w: model is required", ErrInvalidSubmission)
		}
		if strings.TrimSpace(s.AspectRatio) == "" {
			return fmt.Errorf("%w: aspect_ratio is required", ErrInvalidSubmission)
		}
	case TaskTypeImage:
		if strings.TrimSpace(s.Model) == "" {
			return fmt.Errorf("%w: model is required", ErrInvalidSubmission)
		}
	case TaskTypeSora2Video:
		if strings.TrimSpace(s.AspectRatio) == "" {
			return fmt.Errorf("%w: aspect_ratio is required", ErrInvalidSubmission)
		}
		if s.Duration <= 0 {
			return fmt.Errorf("%w: duration is required", ErrInvalidSubmission)
		}
		if strings.TrimSpace(s.Size) == "" {
			return fmt.Errorf("%w: size is required", ErrInvalidSubmission)
		}
	default:
		return fmt.Errorf("%w: unknown task type %q", ErrInvalidSubmission, s.Kind)
	}
	return nil
}

// ResolvedModel returns the model that is actually sent upstream.
func (s Submission) ResolvedModel() string {
	if s.Kind == TaskTypeSora2Video {
		return Sora2Model
	}
	return strings.TrimSpace(s.Model)
}

// Webhook returns the callback URL, defaulting to NoWebhook.
func (s Submission) Webhook() string {
	hook := strings.TrimSpace(s.WebhookURL)
	if hook == "" {
		return NoWebhook
	}
	return hook
}

// CleanReferences drops blank entries from the reference URL lists.
func (s *Submission) CleanReferences() {
	s.ReferenceImages = nonBlank(s.ReferenceImages)
	s.URLs = nonBlank(s.URLs)
	s.ReferenceImageURL = strings.TrimSpace(s.ReferenceImageURL)
	s.FirstFrameURL = strings.TrimSpace(s.FirstFrameURL)
}

func nonBlank(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
