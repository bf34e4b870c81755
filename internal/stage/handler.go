// Package stage defines the contract the workflow manager needs from each
// pipeline stage.
package stage

import (
	"context"

	"clipforge/internal/queue"
)

// Handler describes one pipeline stage. Prepare validates inputs and stages
// any fast bookkeeping; Execute does the long-running work under heartbeat
// cover; HealthCheck reports readiness for preflight.
type Handler interface {
	Prepare(context.Context, *queue.Job) error
	Execute(context.Context, *queue.Job) error
	HealthCheck(context.Context) Health
}
