package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"clipforge/internal/daemon"
	"clipforge/internal/queue"
)

// jobRow is the common display projection for queue and review tables,
// regardless of whether the data came over the API or from the store.
type jobRow struct {
	ID       int64
	Title    string
	Status   string
	Score    int
	Priority int
	Created  string
}

func rowFromView(view daemon.JobView) jobRow {
	return jobRow{
		ID:       view.ID,
		Title:    view.Title,
		Status:   view.Status,
		Score:    view.QualityScore,
		Priority: view.ReviewPriority,
		Created:  view.CreatedAt,
	}
}

func rowFromJob(job *queue.Job) jobRow {
	return jobRow{
		ID:       job.ID,
		Title:    job.Title,
		Status:   string(job.Status),
		Score:    job.QualityScore,
		Priority: job.ReviewPriority,
		Created:  job.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func rowFromPendingView(view daemon.PendingView) jobRow {
	return jobRow{
		ID:       view.JobID,
		Title:    view.Title,
		Status:   view.Status,
		Score:    view.QualityScore,
		Priority: view.ReviewPriority,
		Created:  view.CreatedAt,
	}
}

func rowFromPending(pc *queue.PendingContent) jobRow {
	return jobRow{
		ID:       pc.JobID,
		Title:    pc.Title,
		Status:   string(pc.Status),
		Score:    pc.QualityScore,
		Priority: pc.ReviewPriority,
		Created:  pc.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func buildQueueListRows(rows []jobRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, []string{
			strconv.FormatInt(row.ID, 10),
			truncateTitle(row.Title, 48),
			formatStatusLabel(row.Status),
			strconv.Itoa(row.Score),
			row.Created,
		})
	}
	return out
}

func buildReviewListRows(rows []jobRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, []string{
			strconv.FormatInt(row.ID, 10),
			truncateTitle(row.Title, 48),
			strconv.Itoa(row.Score),
			priorityLabel(row.Priority),
			formatStatusLabel(row.Status),
		})
	}
	return out
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count, ok := stats[string(status)]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(string(status)), strconv.Itoa(count)})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return "Unknown"
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func priorityLabel(priority int) string {
	if priority > 0 {
		return "high"
	}
	return "normal"
}

func truncateTitle(title string, max int) string {
	title = strings.TrimSpace(title)
	if max <= 3 || len(title) <= max {
		return title
	}
	return title[:max-3] + "..."
}

func printJobView(out io.Writer, view *daemon.JobView) {
	printJobDetails(out, []jobDetail{
		{"ID", strconv.FormatInt(view.ID, 10)},
		{"Title", view.Title},
		{"Source", view.SourceURL},
		{"Source ID", view.SourceID},
		{"Language", view.Language},
		{"Status", formatStatusLabel(view.Status)},
		{"Quality score", strconv.Itoa(view.QualityScore)},
		{"Review priority", priorityLabel(view.ReviewPriority)},
		{"Review note", view.ReviewNote},
		{"Content ID", view.ContentID},
		{"Error", view.ErrorMessage},
		{"Retries", strconv.Itoa(view.RetryCount)},
		{"Progress", formatProgress(view.ProgressStage, view.ProgressMessage, view.ProgressPercent)},
		{"Created", view.CreatedAt},
		{"Updated", view.UpdatedAt},
	})
}

func printJob(out io.Writer, job *queue.Job) {
	printJobDetails(out, []jobDetail{
		{"ID", strconv.FormatInt(job.ID, 10)},
		{"Title", job.Title},
		{"Source", job.SourceURL},
		{"Source ID", job.SourceID},
		{"Language", job.Language},
		{"Status", formatStatusLabel(string(job.Status))},
		{"Quality score", strconv.Itoa(job.QualityScore)},
		{"Review priority", priorityLabel(job.ReviewPriority)},
		{"Review note", job.ReviewNote},
		{"Content ID", job.ContentID},
		{"Error", job.ErrorMessage},
		{"Retries", strconv.Itoa(job.RetryCount)},
		{"Progress", formatProgress(job.ProgressStage, job.ProgressMessage, job.ProgressPercent)},
		{"Created", job.CreatedAt.UTC().Format(time.RFC3339)},
		{"Updated", job.UpdatedAt.UTC().Format(time.RFC3339)},
	})
}

type jobDetail struct {
	Label string
	Value string
}

func printJobDetails(out io.Writer, details []jobDetail) {
	for _, detail := range details {
		if strings.TrimSpace(detail.Value) == "" {
			continue
		}
		fmt.Fprintf(out, "%-16s %s\n", detail.Label+":", detail.Value)
	}
}

func formatProgress(stage, message string, percent float64) string {
	if stage == "" && message == "" {
		return ""
	}
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if percent > 0 {
		parts = append(parts, fmt.Sprintf("%.0f%%", percent))
	}
	return strings.Join(parts, " / ")
}

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid job id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
