package agent

import (
	"context"
	"encoding/json"
)

// Confirmer decides whether a destructive tool call may run. The transport
// has no way to pause mid-request and ask the user, so deployments plug in
// their own policy here.
type Confirmer interface {
	Confirm(ctx context.Context, tool string, args json.RawMessage) bool
}

// AutoApprove approves every call. It is the default policy and matches the
// behavior of confirmation prompts being disabled.
type AutoApprove struct{}

func (AutoApprove) Confirm(context.Context, string, json.RawMessage) bool { return true }

// DenyAll declines every destructive call. Useful for read-only deployments
// and tests.
type DenyAll struct{}

func (DenyAll) Confirm(context.Context, string, json.RawMessage) bool { return false }
