package dispatcher

import (
	"context"

	"github.com/flowbooks/docflow/internal/application/port"
)

// Handler processes status-change notifications
type Handler func(ctx context.Context, change port.StatusChange) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	Handler     Handler
	Description string
}
