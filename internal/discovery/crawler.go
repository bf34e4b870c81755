package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
)

// Crawler downloads the source video for a pending job into the staging
// area.
type Crawler struct {
	cfg    *config.Config
	media  *media.Service
	logger *slog.Logger
}

// NewCrawler constructs the crawl stage handler.
func NewCrawler(cfg *config.Config, mediaSvc *media.Service, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{cfg: cfg, media: mediaSvc, logger: logger}
}

// Prepare validates that the job carries a fetchable source.
func (c *Crawler) Prepare(_ context.Context, job *queue.Job) error {
	if strings.TrimSpace(job.SourceURL) == "" {
		return services.Wrap(services.ErrValidation, "crawl", "prepare",
			fmt.Sprintf("job %d has no source url", job.ID), nil)
	}
	job.InitProgress("Crawling", "Downloading source video")
	return nil
}

// Execute downloads the source video and records its local path.
func (c *Crawler) Execute(ctx context.Context, job *queue.Job) error {
	log := logging.WithContext(ctx, c.logger)
	destDir := filepath.Join(c.cfg.Paths.StagingDir, fmt.Sprintf("job-%d", job.ID))

	path, err := c.media.Fetch(ctx, job.SourceURL, destDir, "source")
	if err != nil {
		return err
	}
	job.VideoPath = path
	job.SetProgressComplete("Crawled", "Source video downloaded")
	log.Info("source video downloaded",
		slog.String("source_id", job.SourceID), slog.String("path", path))
	return nil
}

// HealthCheck reports whether the fetch tooling is available.
func (c *Crawler) HealthCheck(ctx context.Context) stage.Health {
	if err := c.media.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("crawl", err.Error())
	}
	return stage.Healthy("crawl")
}
