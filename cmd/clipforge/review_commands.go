package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/daemonctl"
	"clipforge/internal/review"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Work the human review gate",
	}

	reviewCmd.AddCommand(newReviewListCommand(ctx))
	reviewCmd.AddCommand(newReviewShowCommand(ctx))
	reviewCmd.AddCommand(newReviewApproveCommand(ctx))
	reviewCmd.AddCommand(newReviewRejectCommand(ctx))
	reviewCmd.AddCommand(newReviewRequestEditCommand(ctx))

	return reviewCmd
}

func newReviewListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs awaiting approval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withReview(func(client *daemonctl.Client, svc *review.Service) error {
				var rows []jobRow
				if client != nil {
					views, err := client.Review(cmd.Context())
					if err != nil {
						return err
					}
					for _, view := range views {
						rows = append(rows, rowFromPendingView(view))
					}
				} else {
					pending, err := svc.List(cmd.Context())
					if err != nil {
						return err
					}
					for _, pc := range pending {
						rows = append(rows, rowFromPending(pc))
					}
				}

				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Review queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Score", "Priority", "Status"},
					buildReviewListRows(rows),
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newReviewShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show one job awaiting approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]

			return ctx.withReview(func(client *daemonctl.Client, svc *review.Service) error {
				out := cmd.OutOrStdout()
				if client != nil {
					view, err := client.ReviewJob(cmd.Context(), id)
					if err != nil {
						return err
					}
					printJobView(out, view)
					if view.MetadataJSON != "" {
						fmt.Fprintf(out, "%-16s %s\n", "Metadata:", view.MetadataJSON)
					}
					return nil
				}

				job, err := svc.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				printJob(out, job)
				if job.MetadataJSON != "" {
					fmt.Fprintf(out, "%-16s %s\n", "Metadata:", job.MetadataJSON)
				}
				return nil
			})
		},
	}
}

func newReviewApproveCommand(ctx *commandContext) *cobra.Command {
	var edits review.Edits

	cmd := &cobra.Command{
		Use:   "approve <jobID>",
		Short: "Approve a job for publishing, optionally with edits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]

			return ctx.withReview(func(client *daemonctl.Client, svc *review.Service) error {
				out := cmd.OutOrStdout()
				if client != nil {
					if _, err := client.Approve(cmd.Context(), id, edits); err != nil {
						return err
					}
					fmt.Fprintf(out, "Job %d approved\n", id)
					return nil
				}

				if _, err := svc.Approve(cmd.Context(), id, edits); err != nil {
					return err
				}
				fmt.Fprintf(out, "Job %d approved (publishes on next daemon run)\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&edits.Title, "title", "", "Replace the published title")
	cmd.Flags().StringVar(&edits.Description, "description", "", "Replace the published description")
	cmd.Flags().StringVar(&edits.Category, "category", "", "Replace the published category")
	cmd.Flags().StringSliceVar(&edits.Tags, "tags", nil, "Replace the published tags (repeatable)")
	return cmd
}

func newReviewRejectCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <jobID>",
		Short: "Reject a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]
			if strings.TrimSpace(reason) == "" {
				return errors.New("--reason is required")
			}

			return ctx.withReview(func(client *daemonctl.Client, svc *review.Service) error {
				if client != nil {
					if _, err := client.Reject(cmd.Context(), id, reason); err != nil {
						return err
					}
				} else if _, err := svc.Reject(cmd.Context(), id, reason); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d rejected\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the job was rejected (required)")
	return cmd
}

func newReviewRequestEditCommand(ctx *commandContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:     "request-edit <jobID>",
		Aliases: []string{"edit"},
		Short:   "Send a job back to the editor with a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]
			if strings.TrimSpace(note) == "" {
				return errors.New("--note is required")
			}

			return ctx.withReview(func(client *daemonctl.Client, svc *review.Service) error {
				if client != nil {
					if _, err := client.RequestEdit(cmd.Context(), id, note); err != nil {
						return err
					}
				} else if _, err := svc.RequestEdit(cmd.Context(), id, note); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d sent back for editing\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "What the editor should change (required)")
	return cmd
}
