package notifier

import (
	"context"

	"github.com/newthinker/tradermood/internal/config"
)

// Notifier publishes a run digest to an external channel.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init applies configuration and validates required fields
	Init(cfg config.NotifierConfig) error

	// Send delivers one digest
	Send(ctx context.Context, d Digest) error
}
