package tools

import (
	"context"
	"encoding/json"

	"todochat/internal/chat"
)

type Tool interface {
	Name() string
	Definition() chat.ToolDef
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// DestructiveAware marks tools whose calls modify or remove existing data
// and may require confirmation before running.
type DestructiveAware interface {
	Destructive() bool
}
