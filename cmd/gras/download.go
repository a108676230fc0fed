package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/XIAOke8698/GRAS-Manager/internal/bootstrap"
	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
)

var (
	downloadIndex int
	downloadAll   bool
	noProgress    bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <task_id>",
	Short: "Download the media of a finished task",
	Long: `Download the video of a finished video task, or the images of an image
task. Use --index to fetch a single image; without it every image that is
not local yet is fetched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		single := cmd.Flags().Changed("index") && !downloadAll
		if single && downloadIndex < 0 {
			return fmt.Errorf("--index must not be negative")
		}
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
			downloads := svc.Downloads
			if !noProgress {
				downloads = downloads.WithProgress(progressBar(os.Stderr))
			}
			var (
				task *domain.Task
				err  error
			)
			if single {
				task, err = downloads.Materialize(ctx, args[0], downloadIndex)
			} else {
				task, err = downloads.MaterializeAll(ctx, args[0])
			}
			if task != nil {
				writeLocalFiles(cmd.OutOrStdout(), *task)
			}
			return err
		})
	},
}

// progressBar renders one pb bar per fetched file.
func progressBar(w io.Writer) func(label string, size int64, body io.Reader) (io.Reader, func()) {
	return func(label string, size int64, body io.Reader) (io.Reader, func()) {
		tmpl := pb.Full
		if size <= 0 {
			tmpl = pb.Simple
			size = 0
		}
		bar := pb.New64(size).SetTemplate(tmpl)
		bar.SetWriter(w)
		bar.Set(pb.Bytes, true)
		bar.Set("prefix", label+" ")
		bar.Start()
		return bar.NewProxyReader(body), func() { bar.Finish() }
	}
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().IntVar(&downloadIndex, "index", 0, "image index to download")
	downloadCmd.Flags().BoolVar(&downloadAll, "all", false, "download every pending item (default without --index)")
	downloadCmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the progress bar")
	downloadCmd.MarkFlagsMutuallyExclusive("index", "all")
}
