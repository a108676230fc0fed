package jsoncfg

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
)

// OptionSet lists the values the generation API accepts for one job kind.
type OptionSet struct {
	Kind         domain.TaskType `json:"kind"`
	Models       []string        `json:"models,omitempty"`
	AspectRatios []string        `json:"aspect_ratios,omitempty"`
	Durations    []int           `json:"durations,omitempty"`
	Sizes        []string        `json:"sizes,omitempty"`
}

var optionSets = map[domain.TaskType]OptionSet{
	domain.TaskTypeVideo: {
		Kind:         domain.TaskTypeVideo,
		Models:       []string{"veo3-fast", "veo3-pro"},
		AspectRatios: []string{"16:9", "9:16", "1:1", "4:3", "auto"},
	},
	domain.TaskTypeImage: {
		Kind:   domain.TaskTypeImage,
		Models: []string{"nano-banana-fast", "nano-banana"},
	},
	domain.TaskTypeSora2Video: {
		Kind:         domain.TaskTypeSora2Video,
		Models:       []string{domain.Sora2Model},
		AspectRatios: []string{"9:16", "16:9"},
		Durations:    []int{10, 15},
		Sizes:        []string{"small", "large"},
	},
}

const (
	// DefaultVideoModel is used when a veo submission omits the model.
	DefaultVideoModel = "veo3-fast"
	// DefaultImageModel is used when an image submission omits the model.
	DefaultImageModel = "nano-banana-fast"
	// DefaultVideoAspectRatio applies to veo jobs without an aspect ratio.
	DefaultVideoAspectRatio = "16:9"
	// DefaultSora2AspectRatio matches the portrait default of the sora endpoint.
	DefaultSora2AspectRatio = "9:16"
	// DefaultSora2Duration is in seconds.
	DefaultSora2Duration = 10
	// DefaultSora2Size is the cheaper render size.
	DefaultSora2Size = "small"
)

// Options returns the accepted values for kind.
func Options(kind domain.TaskType) (OptionSet, bool) {
	set, ok := optionSets[kind]
	return set, ok
}

// AllOptions returns every option set in display order.
func AllOptions() []OptionSet {
	out := make([]OptionSet, 0, len(optionSets))
	for _, kind := range domain.TaskTypes() {
		out = append(out, optionSets[kind])
	}
	return out
}

// Normalize fills omitted fields of the submission with server defaults.
func Normalize(s *domain.Submission) {
	if s == nil {
		return
	}
	s.Model = strings.TrimSpace(s.Model)
	s.AspectRatio = strings.TrimSpace(s.AspectRatio)
	s.Size = strings.ToLower(strings.TrimSpace(s.Size))
	switch s.Kind {
	case domain.TaskTypeVideo:
		if s.Model == "" {
			s.Model = DefaultVideoModel
		}
		if s.AspectRatio == "" {
			s.AspectRatio = DefaultVideoAspectRatio
		}
	case domain.TaskTypeImage:
		if s.Model == "" {
			s.Model = DefaultImageModel
		}
	case domain.TaskTypeSora2Video:
		s.Model = domain.Sora2Model
		if s.AspectRatio == "" {
			s.AspectRatio = DefaultSora2AspectRatio
		}
		if s.Duration <= 0 {
			s.Duration = DefaultSora2Duration
		}
		if s.Size == "" {
			s.Size = DefaultSora2Size
		}
	}
	s.CleanReferences()
}

// ValidateOptions ensures the submission only uses values the remote accepts.
func ValidateOptions(s domain.Submission) error {
	set, ok := optionSets[s.Kind]
	if !ok {
		return fmt.Errorf("%w: unknown task type %q", domain.ErrInvalidSubmission, s.Kind)
	}
	if len(set.Models) > 0 && s.Kind != domain.TaskTypeSora2Video && !slices.Contains(set.Models, s.Model) {
		return fmt.Errorf("%w: model must be one of %s", domain.ErrInvalidSubmission, strings.Join(set.Models, ", "))
	}
	if len(set.AspectRatios) > 0 && s.AspectRatio != "" && !slices.Contains(set.AspectRatios, s.AspectRatio) {
		return fmt.Errorf("%w: aspect_ratio must be one of %s", domain.ErrInvalidSubmission, strings.Join(set.AspectRatios, ", "))
	}
	if len(set.Durations) > 0 && !slices.Contains(set.Durations, s.Duration) {
		return fmt.Errorf("%w: duration must be one of %s", domain.ErrInvalidSubmission, joinInts(set.Durations))
	}
	if len(set.Sizes) > 0 && !slices.Contains(set.Sizes, s.Size) {
		return fmt.Errorf("%w: size must be one of %s", domain.ErrInvalidSubmission, strings.Join(set.Sizes, ", "))
	}
	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
