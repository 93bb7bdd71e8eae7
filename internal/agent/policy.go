package agent

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
)

// Decision 是单个工具的策略决策。
// Decision is the policy decision for a single tool.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionAsk   Decision = "ask"
	DecisionDeny  Decision = "deny"
)

// ToolPolicy maps tool names to decisions. "allow" runs the call, "deny"
// always skips it, and "ask" skips it only when confirmation prompts are
// enabled, since the HTTP surface has nobody to ask.
type ToolPolicy struct {
	rules           map[string]Decision
	fallback        Decision
	confirmRequired bool
}

// NewToolPolicy 解析形如 "delete_task=ask,update_task=deny,*=allow" 的策略串。
// NewToolPolicy parses a policy spec like "delete_task=ask,update_task=deny,*=allow".
// Unknown decisions and empty entries are ignored; the default is allow.
func NewToolPolicy(spec string, confirmRequired bool) *ToolPolicy {
	p := &ToolPolicy{
		rules:           make(map[string]Decision),
		fallback:        DecisionAllow,
		confirmRequired: confirmRequired,
	}
	for _, entry := range strings.Split(spec, ",") {
		name, raw, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		decision := normalizeDecision(raw, "")
		if name == "" || decision == "" {
			continue
		}
		if name == "*" {
			p.fallback = decision
			continue
		}
		p.rules[name] = decision
	}
	return p
}

// Decide returns the configured decision for the given tool.
func (p *ToolPolicy) Decide(tool string) Decision {
	tool = strings.ToLower(strings.TrimSpace(tool))
	if tool == "" {
		return DecisionDeny
	}
	if d, ok := p.rules[tool]; ok {
		return d
	}
	return p.fallback
}

// Confirm implements Confirmer.
func (p *ToolPolicy) Confirm(_ context.Context, tool string, _ json.RawMessage) bool {
	switch p.Decide(tool) {
	case DecisionAllow:
		return true
	case DecisionDeny:
		return false
	default:
		return !p.confirmRequired
	}
}

// Summary 返回策略矩阵的简短描述，便于启动日志排查。
// Summary returns a short description of the policy matrix for startup logs.
func (p *ToolPolicy) Summary() string {
	names := make([]string, 0, len(p.rules))
	for name := range p.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names)+1)
	parts = append(parts, "default: "+string(p.fallback))
	for _, name := range names {
		parts = append(parts, name+": "+string(p.rules[name]))
	}
	return strings.Join(parts, ", ")
}

func normalizeDecision(raw string, fallback Decision) Decision {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(DecisionAllow):
		return DecisionAllow
	case string(DecisionAsk):
		return DecisionAsk
	case string(DecisionDeny):
		return DecisionDeny
	default:
		return fallback
	}
}
