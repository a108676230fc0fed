package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/XIAOke8698/GRAS-Manager/internal/bootstrap"
	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
)

var (
	listType   string
	listStatus string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tasks, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter, err := parseFilter(listType, listStatus)
		if err != nil {
			return err
		}
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
			tasks, err := svc.Tasks.List(ctx, filter)
			if err != nil {
				return err
			}
			return writeTaskTable(cmd.OutOrStdout(), tasks)
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [task_id]",
	Short: "Poll one task, or every unfinished task",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				task, err := svc.Tasks.Refresh(ctx, args[0])
				if err != nil {
					return err
				}
				writeTaskDetail(out, *task)
				return nil
			}
			summary, err := svc.Tasks.RefreshAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "polled %d, errors %d, changed %d (%s %d, %s %d)\n",
				summary.Polled, summary.PollErrors, summary.Transitions,
				statusLabel(domain.TaskStatusSucceeded), summary.Succeeded,
				statusLabel(domain.TaskStatusFailed), summary.Failed)
			return nil
		})
	},
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate <task_id>",
	Short: "Submit a stored task again with the same parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
			task, err := svc.Tasks.Regenerate(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "submitted %s (from %s)\n", task.TaskID, args[0])
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <task_id>",
	Short: "Remove a task record. Downloaded files are kept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
			removed, err := svc.Tasks.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%w: %s", domain.ErrNotFound, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task counts by status and type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
			st, err := svc.Tasks.Stats(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total       %d\n", st.Total)
			fmt.Fprintf(out, "downloaded  %d\n", st.Downloaded)
			for _, status := range []domain.TaskStatus{
				domain.TaskStatusSubmitted, domain.TaskStatusRunning,
				domain.TaskStatusSucceeded, domain.TaskStatusFailed,
			} {
				fmt.Fprintf(out, "%-11s %d\n", statusLabel(status), st.ByStatus[status])
			}
			kinds := make([]string, 0, len(st.ByType))
			for kind := range st.ByType {
				kinds = append(kinds, string(kind))
			}
			sort.Strings(kinds)
			for _, kind := range kinds {
				fmt.Fprintf(out, "%-24s %d\n", kind, st.ByType[domain.TaskType(kind)])
			}
			return nil
		})
	},
}

func parseFilter(kind, status string) (domain.TaskFilter, error) {
	var filter domain.TaskFilter
	if strings.TrimSpace(kind) != "" {
		parsed, err := domain.ParseTaskType(kind)
		if err != nil {
			return filter, err
		}
		filter.Type = parsed
	}
	if raw := strings.ToLower(strings.TrimSpace(status)); raw != "" {
		parsed := domain.TaskStatus(raw)
		switch parsed {
		case domain.TaskStatusSubmitted, domain.TaskStatusRunning, domain.TaskStatusSucceeded, domain.TaskStatusFailed:
			filter.Status = parsed
		default:
			return filter, fmt.Errorf("unknown status %q", status)
		}
	}
	return filter, nil
}

func init() {
	rootCmd.AddCommand(listCmd, refreshCmd, regenerateCmd, deleteCmd, statsCmd)

	listCmd.Flags().StringVar(&listType, "type", "", "filter by task type (veo, image, sora2)")
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
}
