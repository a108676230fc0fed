package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/XIAOke8698/GRAS-Manager/internal/bootstrap"
	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/internal/domain/jsoncfg"
)

type submitFlags struct {
	prompt      string
	model       string
	aspectRatio string
	duration    int
	size        string
	firstFrame  string
	references  []string
	region      string
	translate   bool
	webhook     string
}

var submitOpts submitFlags

var submitCmd = &cobra.Command{
	Use:   "submit <veo|image|sora2>",
	Short: "Submit a new generation job",
	Long: `Submit a new generation job and record it.

Omitted options fall back to the server defaults: veo3-fast at 16:9 for veo,
nano-banana-fast for images and a 10 second small 9:16 render for sora2.
With --translate a mostly Chinese prompt is translated to English first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := submitOpts.submission(args[0])
		if err != nil {
			return err
		}
		region, _ := domain.ParseRegion(submitOpts.region)
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
			task, err := svc.Tasks.Submit(ctx, region, sub)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "submitted %s (%s, %s)\n", task.TaskID, task.TaskType, task.Region)
			if task.OriginalPrompt != "" && task.OriginalPrompt != task.Prompt {
				fmt.Fprintf(out, "prompt translated: %s\n", task.Prompt)
			}
			return nil
		})
	},
}

// submission turns the flags into a normalized, validated submission.
func (f submitFlags) submission(kindArg string) (domain.Submission, error) {
	kind, err := domain.ParseTaskType(kindArg)
	if err != nil {
		return domain.Submission{}, err
	}
	sub := domain.Submission{
		Kind:               kind,
		Model:              f.model,
		Prompt:             strings.TrimSpace(f.prompt),
		TranslationEnabled: f.translate,
		AspectRatio:        f.aspectRatio,
		Duration:           f.duration,
		Size:               f.size,
		FirstFrameURL:      f.firstFrame,
		WebhookURL:         f.webhook,
	}
	switch kind {
	case domain.TaskTypeImage:
		sub.URLs = f.references
	case domain.TaskTypeSora2Video:
		if len(f.references) > 0 {
			sub.ReferenceImageURL = f.references[0]
		}
	}
	if sub.Prompt == "" {
		return domain.Submission{}, domain.ErrEmptyPrompt
	}
	jsoncfg.Normalize(&sub)
	if err := jsoncfg.ValidateOptions(sub); err != nil {
		return domain.Submission{}, err
	}
	return sub, nil
}

func init() {
	rootCmd.AddCommand(submitCmd)

	flags := submitCmd.Flags()
	flags.StringVarP(&submitOpts.prompt, "prompt", "p", "", "prompt text (required)")
	flags.StringVarP(&submitOpts.model, "model", "m", "", "model name")
	flags.StringVar(&submitOpts.aspectRatio, "aspect-ratio", "", "aspect ratio, e.g. 16:9")
	flags.IntVar(&submitOpts.duration, "duration", 0, "sora2 duration in seconds (10 or 15)")
	flags.StringVar(&submitOpts.size, "size", "", "sora2 render size (small or large)")
	flags.StringVar(&submitOpts.firstFrame, "first-frame", "", "veo first frame image URL")
	flags.StringSliceVar(&submitOpts.references, "ref", nil, "reference image URL (repeatable)")
	flags.StringVar(&submitOpts.region, "region", "", "API region (domestic or overseas)")
	flags.BoolVar(&submitOpts.translate, "translate", false, "translate mostly Chinese prompts to English")
	flags.StringVar(&submitOpts.webhook, "webhook", "", "callback URL")
	_ = submitCmd.MarkFlagRequired("prompt")
}
