// Package transform defines the four-hook transformer contract (spec.md
// §4.3) and chain composition. A Transformer is configuration-only: it must
// hold no per-request mutable state on itself (spec.md §3 "Lifecycles",
// §9 "Shared mutable transformer state in the source is an anti-pattern").
// Any state scoped to one response stream lives in the closure a response
// hook returns, never on the struct.
package transform

import (
	"context"
	"net/http"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// RequestIn converts an upstream-dialect body into the unified request.
type RequestIn func(ctx context.Context, body []byte) (*unified.UnifiedChatRequest, error)

// RequestOut converts the unified request into a provider-specific body.
// Implementations must treat req as read-only and return a new value
// (spec.md §9 "Immutable requests").
type RequestOut func(ctx context.Context, req *unified.UnifiedChatRequest) (*unified.UnifiedChatRequest, error)

// ResponseIn converts a provider response into the unified representation.
// For streaming responses it returns a StreamConsumer instead of populating
// resp; exactly one of the two return values is used, selected by the
// caller's knowledge of whether the upstream call was streaming.
type ResponseIn func(ctx context.Context, body []byte) (*unified.UnifiedResponse, error)

// StreamConsumer processes one decoded upstream SSE event and returns zero
// or more unified StreamEvents. It is created fresh per response stream by
// a StreamResponseIn hook, so all of its state lives in its closure.
type StreamConsumer func(eventJSON []byte) ([]unified.StreamEvent, error)

// StreamResponseIn builds a per-stream StreamConsumer closure.
type StreamResponseIn func(ctx context.Context) StreamConsumer

// ResponseOut converts the unified response into a client-dialect response
// body.
type ResponseOut func(ctx context.Context, resp *unified.UnifiedResponse) ([]byte, error)

// StreamResponseOut builds a per-stream closure that converts unified
// StreamEvents into client-dialect wire bytes (SSE frames).
type StreamResponseOut func(ctx context.Context) func(ev unified.StreamEvent) []byte

// AuthFunc augments outbound headers with provider authentication.
// It may perform I/O (e.g. a Vertex service-account token exchange) so it
// takes a context.
type AuthFunc func(ctx context.Context, req *http.Request, providerName string) error

// WireRequestOut adjusts a provider's already-rendered upstream wire body
// after the shared unified->wire render step (GPT-5's key renames,
// OpenRouter's provider-order array, Deepseek's reasoning_content
// round-trip). Distinct from RequestOut: that hook reshapes the unified
// request itself, this one reshapes the rendered map[string]any body a
// single bridge stage produced from it.
type WireRequestOut func(model string, body map[string]any) map[string]any

// WireResponseIn adjusts a parsed unified response for provider-specific
// wire quirks after the shared wire->unified parse step (GPT-5's
// reasoning-tag rule, Deepseek's reasoning_content annotation).
type WireResponseIn func(resp *unified.UnifiedResponse)

// ToolCallPostProcess runs a non-streaming C7 tool-call subsystem (Kimi
// manual marker parsing + id repair, MiniMax XML extraction) over a parsed
// response message.
type ToolCallPostProcess func(msg *unified.UnifiedMessage, history []unified.UnifiedMessage)

// StreamToolCallRepairer lets a C7 streaming subsystem (Kimi's Assembler,
// MiniMax's Buffer) take over tool-call or content-delta handling for one
// stream, buffering fragments itself and contributing a repaired message
// fragment once the stream ends. Anthropic's SSE framing has no affordance
// for revising an already-opened content block, so unlike the raw-relay
// assemblers this wraps, the owning bridge withholds emission entirely for
// whichever of (tool calls, text) the repairer claims via HandlesToolCalls/
// BuffersText, replaying the repaired fragment as new blocks on Finish.
type StreamToolCallRepairer interface {
	HandlesToolCalls() bool
	BuffersText() bool
	ObserveToolCall(index int, id, name, arguments string)
	ObserveText(text string)
	// Finish returns the repaired message fragment (Text/Content/ToolCalls)
	// to emit once the upstream stream ends, or nil if nothing was buffered.
	Finish() *unified.UnifiedMessage
}

// NewStreamToolCallRepairer builds this stage's per-stream repairer
// (fresh state per request), or nil if the stage has none.
type NewStreamToolCallRepairer func() StreamToolCallRepairer

// StreamEventFilter post-processes one chunk's already-bridged StreamEvents
// (OpenRouter's numeric tool-call id remap and finish_reason relabel).
type StreamEventFilter func(events []unified.StreamEvent) []unified.StreamEvent

// NewStreamEventFilter builds this stage's per-stream filter (stateful
// across chunks via its closure), or nil if the stage has none.
type NewStreamEventFilter func() StreamEventFilter

// Transformer is one named stage in a provider's chain. Every hook is
// optional (nil means "this stage does not participate in that phase");
// Name and EndPoint are metadata, not hooks.
type Transformer struct {
	Name string

	// EndPoint is metadata reported by Chain.EndPoint; the gateway does not
	// read it when building the upstream URL.
	EndPoint string

	RequestIn  RequestIn
	RequestOut RequestOut

	ResponseIn       ResponseIn
	StreamResponseIn StreamResponseIn

	ResponseOut       ResponseOut
	StreamResponseOut StreamResponseOut

	Auth AuthFunc

	WireRequestOut            WireRequestOut
	WireResponseIn            WireResponseIn
	ToolCallPostProcess       ToolCallPostProcess
	NewStreamToolCallRepairer NewStreamToolCallRepairer
	NewStreamEventFilter      NewStreamEventFilter
}

// Chain is the ordered list of transformers bound to a provider (optionally
// scoped to one model). Stages run left-to-right for requestIn/requestOut
// and left-to-right for responseIn/responseOut (spec.md §4.3).
type Chain struct {
	Stages []Transformer
}

// NewChain builds a chain from an ordered stage list.
func NewChain(stages ...Transformer) Chain {
	return Chain{Stages: stages}
}

// RunRequestIn runs every stage's RequestIn hook in order, feeding each
// stage's output to the next. The first stage typically does the actual
// dialect parsing; later stages usually have no RequestIn and pass through.
func (c Chain) RunRequestIn(ctx context.Context, body []byte) (*unified.UnifiedChatRequest, error) {
	var req *unified.UnifiedChatRequest
	for _, stage := range c.Stages {
		if stage.RequestIn == nil {
			continue
		}
		parsed, err := stage.RequestIn(ctx, body)
		if err != nil {
			return nil, err
		}
		req = parsed
	}
	return req, nil
}

// RunRequestOut runs every stage's RequestOut hook in order, threading the
// (possibly mutated-by-copy) request through the chain.
func (c Chain) RunRequestOut(ctx context.Context, req *unified.UnifiedChatRequest) (*unified.UnifiedChatRequest, error) {
	cur := req
	for _, stage := range c.Stages {
		if stage.RequestOut == nil {
			continue
		}
		next, err := stage.RequestOut(ctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// RunResponseIn runs every stage's ResponseIn hook in order for a
// non-streaming response. Later stages receive the prior stage's unified
// response re-marshalled is not meaningful here; in practice exactly one
// stage in a well-formed chain owns ResponseIn (the dialect bridge) and the
// rest are no-ops, mirroring RunRequestIn.
func (c Chain) RunResponseIn(ctx context.Context, body []byte) (*unified.UnifiedResponse, error) {
	var resp *unified.UnifiedResponse
	for _, stage := range c.Stages {
		if stage.ResponseIn == nil {
			continue
		}
		r, err := stage.ResponseIn(ctx, body)
		if err != nil {
			return nil, err
		}
		resp = r
	}
	return resp, nil
}

// BuildStreamConsumer builds every stage's StreamResponseIn consumer for
// one stream, but only the first one is run: each upstream event goes to
// that consumer alone, and the consumers of later stages are never called.
func (c Chain) BuildStreamConsumer(ctx context.Context) StreamConsumer {
	var consumers []StreamConsumer
	for _, stage := range c.Stages {
		if stage.StreamResponseIn == nil {
			continue
		}
		consumers = append(consumers, stage.StreamResponseIn(ctx))
	}

	return func(eventJSON []byte) ([]unified.StreamEvent, error) {
		if len(consumers) == 0 {
			return nil, nil
		}
		// The first consumer with a StreamResponseIn owns parsing the raw
		// upstream event into unified StreamEvents; any subsequent stages
		// with StreamResponseIn would need unified-event input, which is a
		// different shape, so in practice only one stage supplies this hook.
		// Supporting >1 is a future extension point; document the rule here
		// rather than silently misbehaving.
		return consumers[0](eventJSON)
	}
}

// RunResponseOut runs every stage's ResponseOut hook in order for a
// non-streaming response, each stage re-rendering from the unified value.
// As with ResponseIn, exactly one stage in a well-formed chain should set
// this; later stages run only if they choose to re-derive from resp.
func (c Chain) RunResponseOut(ctx context.Context, resp *unified.UnifiedResponse) ([]byte, error) {
	var out []byte
	for _, stage := range c.Stages {
		if stage.ResponseOut == nil {
			continue
		}
		b, err := stage.ResponseOut(ctx, resp)
		if err != nil {
			return nil, err
		}
		out = b
	}
	return out, nil
}

// BuildStreamEmitter composes the chain's egress-side streaming hook. As
// with BuildStreamConsumer, exactly one stage in a well-formed chain should
// supply StreamResponseOut (the client-dialect bridge).
func (c Chain) BuildStreamEmitter(ctx context.Context) func(ev unified.StreamEvent) []byte {
	for _, stage := range c.Stages {
		if stage.StreamResponseOut == nil {
			continue
		}
		return stage.StreamResponseOut(ctx)
	}
	return func(unified.StreamEvent) []byte { return nil }
}

// ApplyAuth runs every stage's Auth hook on req in chain order, so later
// stages may override headers set by earlier ones. It stops at the first
// hook that returns an error.
func (c Chain) ApplyAuth(ctx context.Context, req *http.Request, providerName string) error {
	for _, stage := range c.Stages {
		if stage.Auth == nil {
			continue
		}
		if err := stage.Auth(ctx, req, providerName); err != nil {
			return err
		}
	}
	return nil
}

// EndPoint returns the first non-empty EndPoint declared by any stage.
func (c Chain) EndPoint() string {
	for _, stage := range c.Stages {
		if stage.EndPoint != "" {
			return stage.EndPoint
		}
	}
	return ""
}

// ApplyWireRequestOut runs every stage's WireRequestOut hook in order,
// threading the rendered body through each quirk in chain order.
func (c Chain) ApplyWireRequestOut(model string, body map[string]any) map[string]any {
	for _, stage := range c.Stages {
		if stage.WireRequestOut == nil {
			continue
		}
		body = stage.WireRequestOut(model, body)
	}
	return body
}

// ApplyWireResponseIn runs every stage's WireResponseIn hook in order.
func (c Chain) ApplyWireResponseIn(resp *unified.UnifiedResponse) {
	for _, stage := range c.Stages {
		if stage.WireResponseIn == nil {
			continue
		}
		stage.WireResponseIn(resp)
	}
}

// ApplyToolCallPostProcess runs every stage's ToolCallPostProcess hook in
// order over a non-streaming response message.
func (c Chain) ApplyToolCallPostProcess(msg *unified.UnifiedMessage, history []unified.UnifiedMessage) {
	for _, stage := range c.Stages {
		if stage.ToolCallPostProcess == nil {
			continue
		}
		stage.ToolCallPostProcess(msg, history)
	}
}

// BuildStreamToolCallRepairer returns the first stage's repairer, if any
// stage declares one. As with BuildStreamConsumer, a well-formed chain has
// at most one stage that claims this hook.
func (c Chain) BuildStreamToolCallRepairer() StreamToolCallRepairer {
	for _, stage := range c.Stages {
		if stage.NewStreamToolCallRepairer == nil {
			continue
		}
		return stage.NewStreamToolCallRepairer()
	}
	return nil
}

// BuildStreamEventFilter composes every stage's StreamEventFilter into one
// per-stream filter, run in chain order over each chunk's events.
func (c Chain) BuildStreamEventFilter() StreamEventFilter {
	var filters []StreamEventFilter
	for _, stage := range c.Stages {
		if stage.NewStreamEventFilter == nil {
			continue
		}
		filters = append(filters, stage.NewStreamEventFilter())
	}
	return func(events []unified.StreamEvent) []unified.StreamEvent {
		for _, f := range filters {
			events = f(events)
		}
		return events
	}
}
