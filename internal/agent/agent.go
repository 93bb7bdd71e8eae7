// Package agent runs the chat orchestration loop: assemble bounded history,
// call the model with the tool schema, execute requested tool calls, and
// shape the reply envelope.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"todochat/internal/apperr"
	"todochat/internal/chat"
	"todochat/internal/history"
	"todochat/internal/provider"
	"todochat/internal/tools"
)

// FallbackResponse is returned when no completion service is configured.
// Chat stays available in degraded mode instead of hard-failing.
const FallbackResponse = "AI service is not configured. Please set OPENAI_API_KEY to enable chat."

const defaultToolReply = "I processed your request."

// ErrorInfo is the typed error tag carried in error envelopes and per-tool
// results.
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ToolResult is the outcome of one executed (or skipped) tool call.
type ToolResult struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorInfo      `json:"error,omitempty"`
	Status string          `json:"status"`
}

// ToolCallReport echoes one model-requested tool call with its outcome. The
// arguments are the raw string exactly as the model produced them.
type ToolCallReport struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
	Result   *ToolResult      `json:"result,omitempty"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Reply is the envelope every chat turn produces, success or not.
type Reply struct {
	Response       string           `json:"response"`
	ConversationID string           `json:"conversation_id"`
	MessageID      string           `json:"message_id,omitempty"`
	Timestamp      string           `json:"timestamp"`
	Status         string           `json:"status"`
	ToolCalls      []ToolCallReport `json:"tool_calls,omitempty"`
	Error          *ErrorInfo       `json:"error,omitempty"`
}

// Agent 聊天编排器：历史装配、模型调用、工具执行
// Agent is the chat orchestrator: history assembly, model calls, tool execution
type Agent struct {
	provider     provider.Provider
	registry     *tools.Registry
	history      *history.History
	limiter      *RateLimiter
	confirmer    Confirmer
	logger       *slog.Logger
	instructions string
	temperature  float64
}

// Options configures an Agent. Provider may be nil, which puts the agent in
// degraded fallback mode.
type Options struct {
	Provider     provider.Provider
	Registry     *tools.Registry
	History      *history.History
	Limiter      *RateLimiter
	Confirmer    Confirmer
	Logger       *slog.Logger
	Instructions string
	Temperature  float64
}

func New(opts Options) *Agent {
	if opts.Confirmer == nil {
		opts.Confirmer = AutoApprove{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Agent{
		provider:     opts.Provider,
		registry:     opts.Registry,
		history:      opts.History,
		limiter:      opts.Limiter,
		confirmer:    opts.Confirmer,
		logger:       opts.Logger,
		instructions: opts.Instructions,
		temperature:  opts.Temperature,
	}
}

// ProcessMessage runs one chat turn. The returned error is non-nil only for
// pre-flight rejections (blank message, rate limit); once a conversation is
// in play every failure is absorbed into an error envelope so already
// persisted messages stay persisted.
func (a *Agent) ProcessMessage(ctx context.Context, userID, message, conversationHandle string) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Validation("message cannot be empty")
	}
	if a.limiter != nil && !a.limiter.Allow(userID) {
		return nil, apperr.RateLimit("too many chat requests, slow down")
	}

	conv, err := a.history.GetOrCreate(ctx, userID, conversationHandle)
	if err != nil {
		a.logger.Error("resolve conversation failed", "user_id", userID, "error", err)
		return a.errorReply("", "InternalServerError", err), nil
	}

	// Durable before the model is ever involved.
	if _, err := a.history.Append(ctx, conv.ID, userID, chat.RoleUser, message); err != nil {
		a.logger.Error("persist user message failed", "conversation_id", conv.ID, "error", err)
		return a.errorReply(conv.ID, "InternalServerError", err), nil
	}

	if a.provider == nil {
		if _, err := a.history.Append(ctx, conv.ID, userID, chat.RoleAssistant, FallbackResponse); err != nil {
			a.logger.Error("persist fallback reply failed", "conversation_id", conv.ID, "error", err)
			return a.errorReply(conv.ID, "InternalServerError", err), nil
		}
		return &Reply{
			Response:       FallbackResponse,
			ConversationID: conv.ID,
			Timestamp:      nowStamp(),
			Status:         "success",
		}, nil
	}

	messages, err := a.history.Context(ctx, conv.ID, a.instructions)
	if err != nil {
		a.logger.Error("assemble context failed", "conversation_id", conv.ID, "error", err)
		return a.errorReply(conv.ID, "InternalServerError", err), nil
	}

	temperature := a.temperature
	resp, err := a.provider.Chat(ctx, provider.ChatRequest{
		Messages:    messages,
		Tools:       a.registry.Definitions(),
		Temperature: &temperature,
	})
	if err != nil {
		a.logger.Error("model call failed", "conversation_id", conv.ID, "error", err)
		return a.errorReply(conv.ID, "APIError", err), nil
	}

	// The textual reply persists even when empty and even if tool execution
	// fails afterwards.
	assistantMsg, err := a.history.Append(ctx, conv.ID, userID, chat.RoleAssistant, resp.Content)
	if err != nil {
		a.logger.Error("persist assistant reply failed", "conversation_id", conv.ID, "error", err)
		return a.errorReply(conv.ID, "InternalServerError", err), nil
	}

	reports := a.runToolCalls(ctx, userID, resp.ToolCalls)

	text := resp.Content
	if text == "" {
		text = defaultToolReply
	}
	return &Reply{
		Response:       text,
		ConversationID: conv.ID,
		MessageID:      assistantMsg.ID,
		Timestamp:      nowStamp(),
		Status:         "success",
		ToolCalls:      reports,
	}, nil
}

func (a *Agent) runToolCalls(ctx context.Context, userID string, calls []chat.ToolCall) []ToolCallReport {
	if len(calls) == 0 {
		return nil
	}
	reports := make([]ToolCallReport, 0, len(calls))
	for _, call := range calls {
		report := ToolCallReport{
			ID:   call.ID,
			Type: call.Type,
			Function: ToolCallFunction{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		}
		report.Result = a.runToolCall(ctx, userID, call)
		reports = append(reports, report)
	}
	return reports
}

func (a *Agent) runToolCall(ctx context.Context, userID string, call chat.ToolCall) *ToolResult {
	name := call.Function.Name
	if !a.registry.Has(name) {
		return &ToolResult{
			Status: "error",
			Error:  &ErrorInfo{Type: "FunctionNotFoundError", Message: "function " + name + " not found"},
		}
	}

	args, err := injectUserID(call.Function.Arguments, userID)
	if err != nil {
		return &ToolResult{
			Status: "error",
			Error:  &ErrorInfo{Type: apperr.KindValidation.String(), Message: "malformed tool arguments: " + err.Error()},
		}
	}

	if a.registry.IsDestructive(name) && !a.confirmer.Confirm(ctx, name, args) {
		a.logger.Info("tool call declined", "tool", name, "user_id", userID)
		return &ToolResult{Status: "skipped"}
	}

	out, err := a.registry.Execute(ctx, name, args)
	if err != nil {
		a.logger.Warn("tool call failed", "tool", name, "user_id", userID, "error", err)
		return &ToolResult{
			Status: "error",
			Error:  &ErrorInfo{Type: apperr.KindOf(err).String(), Message: apperr.MessageOf(err)},
		}
	}
	return &ToolResult{Status: "success", Result: json.RawMessage(out)}
}

// injectUserID forces the authenticated user into the tool arguments. Models
// sometimes omit it, and a model must never act for a different user.
func injectUserID(rawArgs, userID string) (json.RawMessage, error) {
	var m map[string]any
	if strings.TrimSpace(rawArgs) == "" {
		m = map[string]any{}
	} else if err := json.Unmarshal([]byte(rawArgs), &m); err != nil {
		return nil, err
	}
	m["user_id"] = userID
	return json.Marshal(m)
}

func (a *Agent) errorReply(conversationID, errType string, err error) *Reply {
	text := "Sorry, an error occurred while processing your request."
	if errType == "APIError" {
		text = "Sorry, I'm having trouble connecting to my services right now."
	}
	return &Reply{
		Response:       text,
		ConversationID: conversationID,
		Timestamp:      nowStamp(),
		Status:         "error",
		Error:          &ErrorInfo{Type: errType, Message: apperr.MessageOf(err)},
	}
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
