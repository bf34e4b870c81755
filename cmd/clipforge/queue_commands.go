package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/daemonctl"
	"clipforge/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the content job queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *daemonctl.Client, store *queue.Store) error {
				stats := make(map[string]int)
				if client != nil {
					resp, err := client.Status(cmd.Context())
					if err != nil {
						return err
					}
					stats = resp.QueueStats
				} else {
					raw, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					for status, count := range raw {
						stats[string(status)] = count
					}
				}

				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List content jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, status := range listStatuses {
				if _, ok := queue.ParseStatus(status); !ok {
					return fmt.Errorf("unknown status %q", status)
				}
			}
			return ctx.withQueue(func(client *daemonctl.Client, store *queue.Store) error {
				var rows []jobRow
				if client != nil {
					views, err := client.Queue(cmd.Context(), listStatuses...)
					if err != nil {
						return err
					}
					for _, view := range views {
						rows = append(rows, rowFromView(view))
					}
				} else {
					statuses := make([]queue.Status, 0, len(listStatuses))
					for _, status := range listStatuses {
						parsed, _ := queue.ParseStatus(status)
						statuses = append(statuses, parsed)
					}
					jobs, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					for _, job := range jobs {
						rows = append(rows, rowFromJob(job))
					}
				}

				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Score", "Created"},
					buildQueueListRows(rows),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show details for one content job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]

			return ctx.withQueue(func(client *daemonctl.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if client != nil {
					view, err := client.QueueJob(cmd.Context(), id)
					if err != nil {
						return err
					}
					printJobView(out, view)
					return nil
				}

				job, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}
				printJob(out, job)
				return nil
			})
		},
	}
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var addTitle string
	var addLanguage string

	cmd := &cobra.Command{
		Use:   "add <sourceURL>",
		Short: "Enqueue a source video manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceURL := strings.TrimSpace(args[0])
			sourceID, err := extractSourceID(sourceURL)
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addLanguage == "" && len(cfg.Pipeline.TargetLanguages) > 0 {
				addLanguage = cfg.Pipeline.TargetLanguages[0]
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			existing, err := store.FindBySourceID(cmd.Context(), sourceID)
			if err != nil {
				return err
			}
			if existing != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Source %s already queued as job %d (%s)\n", sourceID, existing.ID, existing.Status)
				return nil
			}

			title := strings.TrimSpace(addTitle)
			if title == "" {
				title = sourceID
			}
			job, err := store.NewJob(cmd.Context(), sourceURL, sourceID, title, addLanguage)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d for source %s\n", job.ID, sourceID)
			return nil
		},
	}

	cmd.Flags().StringVar(&addTitle, "title", "", "Title for the queued job")
	cmd.Flags().StringVar(&addLanguage, "language", "", "Source language (defaults to first target language)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Retry failed content jobs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			// Retry mutates the store directly; the daemon notices retried
			// jobs on its next poll, so no API round trip is needed.
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				updated, err := store.RetryFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Retried %d failed jobs\n", updated)
				return nil
			}

			for _, id := range ids {
				job, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					fmt.Fprintf(out, "Job %d not found\n", id)
					continue
				}
				if job.Status != queue.StatusFailed {
					fmt.Fprintf(out, "Job %d is not in failed state\n", id)
					continue
				}
				updated, err := store.RetryFailed(cmd.Context(), id)
				if err != nil {
					return err
				}
				if updated > 0 {
					fmt.Fprintf(out, "Job %d reset for retry\n", id)
				} else {
					fmt.Fprintf(out, "Job %d is not in failed state\n", id)
				}
			}
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove content jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			switch {
			case clearCompleted:
				removed, err := store.ClearCompleted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d completed jobs\n", removed)
			case clearFailed:
				removed, err := store.ClearFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d failed jobs\n", removed)
			default:
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d jobs\n", removed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only published and rejected jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed jobs")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nProcessing: %d\nAwaiting review: %d\nPublished: %d\nRejected: %d\nFailed: %d\n",
				health.Total,
				health.Pending,
				health.Processing,
				health.AwaitingReview,
				health.Published,
				health.Rejected,
				health.Failed,
			)
			return nil
		},
	}
}

// extractSourceID pulls a stable source identifier out of a watch URL. The
// v query parameter wins when present; otherwise the last path segment is
// used (youtu.be style short links).
func extractSourceID(sourceURL string) (string, error) {
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid source URL %q", sourceURL)
	}
	if id := strings.TrimSpace(parsed.Query().Get("v")); id != "" {
		return id, nil
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if last := segments[len(segments)-1]; last != "" {
		return last, nil
	}
	return "", fmt.Errorf("no video id in source URL %q", sourceURL)
}
