package jsoncfg

import (
	"errors"
	"testing"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
)

func TestNormalizeDefaults(t *testing.T) {
	s := &domain.Submission{Kind: domain.TaskTypeSora2Video, Model: "whatever", Prompt: "a cat", URLs: []string{" ", "https://x/y.png"}}
	Normalize(s)

	if s.Model != domain.Sora2Model {
		t.Fatalf("Model = %q, want %q", s.Model, domain.Sora2Model)
	}
	if s.AspectRatio != DefaultSora2AspectRatio {
		t.Fatalf("AspectRatio = %q, want %q", s.AspectRatio, DefaultSora2AspectRatio)
	}
	if s.Duration != DefaultSora2Duration {
		t.Fatalf("Duration = %d, want %d", s.Duration, DefaultSora2Duration)
	}
	if s.Size != DefaultSora2Size {
		t.Fatalf("Size = %q, want %q", s.Size, DefaultSora2Size)
	}
	if len(s.URLs) != 1 || s.URLs[0] != "https://x/y.png" {
		t.Fatalf("URLs = %v, want blank entries dropped", s.URLs)
	}

	v := &domain.Submission{Kind: domain.TaskTypeVideo, Prompt: "a cat"}
	Normalize(v)
	if v.Model != DefaultVideoModel || v.AspectRatio != DefaultVideoAspectRatio {
		t.Fatalf("video defaults = %q/%q", v.Model, v.AspectRatio)
	}
}

func TestValidateOptions(t *testing.T) {
	cases := []struct {
		name    string
		sub     domain.Submission
		wantErr bool
	}{
		{name: "veo ok", sub: domain.Submission{Kind: domain.TaskTypeVideo, Model: "veo3-pro", AspectRatio: "auto"}},
		{name: "veo bad model", sub: domain.Submission{Kind: domain.TaskTypeVideo, Model: "veo2", AspectRatio: "16:9"}, wantErr: true},
		{name: "veo bad ratio", sub: domain.Submission{Kind: domain.TaskTypeVideo, Model: "veo3-fast", AspectRatio: "2:1"}, wantErr: true},
		{name: "image ok", sub: domain.Submission{Kind: domain.TaskTypeImage, Model: "nano-banana"}},
		{name: "sora ok", sub: domain.Submission{Kind: domain.TaskTypeSora2Video, AspectRatio: "16:9", Duration: 15, Size: "large"}},
		{name: "sora bad duration", sub: domain.Submission{Kind: domain.TaskTypeSora2Video, AspectRatio: "16:9", Duration: 20, Size: "large"}, wantErr: true},
		{name: "sora bad size", sub: domain.Submission{Kind: domain.TaskTypeSora2Video, AspectRatio: "16:9", Duration: 10, Size: "huge"}, wantErr: true},
		{name: "unknown kind", sub: domain.Submission{Kind: "audio"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateOptions(tc.sub)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidSubmission) {
					t.Fatalf("ValidateOptions() error = %v, want ErrInvalidSubmission", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateOptions() unexpected error: %v", err)
			}
		})
	}
}

func TestAllOptionsOrder(t *testing.T) {
	sets := AllOptions()
	if len(sets) != 3 {
		t.Fatalf("len(AllOptions()) = %d, want 3", len(sets))
	}
	if sets[0].Kind != domain.TaskTypeVideo || sets[2].Kind != domain.TaskTypeSora2Video {
		t.Fatalf("unexpected order: %v, %v", sets[0].Kind, sets[2].Kind)
	}
}
