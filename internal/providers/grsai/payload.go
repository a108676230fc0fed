package grsai

import "github.com/XIAOke8698/GRAS-Manager/internal/domain"

// submitRequest is the wire shape shared by the three submission endpoints.
type submitRequest struct {
	Model         string   `json:"model"`
	Prompt        string   `json:"prompt"`
	AspectRatio   string   `json:"aspectRatio,omitempty"`
	Duration      int      `json:"duration,omitempty"`
	Size          string   `json:"size,omitempty"`
	FirstFrameURL string   `json:"firstFrameUrl,omitempty"`
	URLs          []string `json:"urls,omitempty"`
	URL           string   `json:"url,omitempty"`
	WebHook       string   `json:"webHook"`
	ShutProgress  bool     `json:"shutProgress"`
}

func buildPayload(sub domain.Submission) submitRequest {
	req := submitRequest{
		Model:        sub.ResolvedModel(),
		Prompt:       sub.Prompt,
		WebHook:      sub.Webhook(),
		ShutProgress: sub.ShutProgress,
	}
	switch sub.Kind {
	case domain.TaskTypeVideo:
		req.AspectRatio = sub.AspectRatio
		req.FirstFrameURL = sub.FirstFrameURL
	case domain.TaskTypeImage:
		req.URLs = imageReferences(sub)
	case domain.TaskTypeSora2Video:
		req.AspectRatio = sub.AspectRatio
		req.Duration = sub.Duration
		req.Size = sub.Size
		req.URL = sub.ReferenceImageURL
	}
	return req
}

// imageReferences merges the two places an image job can carry references.
func imageReferences(sub domain.Submission) []string {
	if len(sub.URLs) > 0 {
		return sub.URLs
	}
	return sub.ReferenceImages
}
