// Package stage defines the contract between the workflow manager and the
// pipeline stages it drives.
package stage

import (
	"context"

	"clipmill/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
// Prepare runs before the item enters its processing status and may seed
// fields on the item; Execute performs the work and sets the outcome status.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
