// Package unified defines the dialect-neutral request/response/event types
// that every transformer in the pipeline reads and writes. Nothing in this
// package talks to the network; it is a pure value-type library plus a
// handful of well-defined conversion helpers (image encoding, stop-reason
// mapping).
package unified

// Role is the speaker of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentPartType tags the variant held by a ContentPart.
type ContentPartType string

const (
	ContentText            ContentPartType = "text"
	ContentImage           ContentPartType = "image"
	ContentToolUse         ContentPartType = "tool_use"
	ContentToolResult      ContentPartType = "tool_result"
	ContentThinking        ContentPartType = "thinking"
	ContentWebSearchResult ContentPartType = "web_search_result"
)

// ImageSource holds either a raw URL or base64-encoded bytes with a media type.
type ImageSource struct {
	URL       string
	MediaType string
	Data      string // base64, only set when URL is empty
}

// ContentPart is one element of a message's ordered content sequence.
type ContentPart struct {
	Type ContentPartType

	// ContentText
	Text string

	// ContentImage
	Image *ImageSource

	// ContentToolUse
	ToolUseID   string
	ToolName    string
	ToolInput   map[string]any
	RawToolArgs string // JSON-stringified input, kept verbatim when round-tripping

	// ContentToolResult
	ToolResultFor string // referent tool_use id
	ToolResult    any    // string or structured content
	ToolIsError   bool

	// ContentThinking
	Thinking          string
	ThinkingSignature string

	// ContentWebSearchResult
	SearchURL   string
	SearchTitle string
}

// ToolCall is an assistant-issued function call, in the OpenAI-shaped
// tool_calls representation that most provider wires use on the way out.
type ToolCall struct {
	ID        string
	Type      string // "function"
	Name      string
	Arguments string // JSON-stringified
}

// UnifiedMessage is a dialect-neutral chat message.
type UnifiedMessage struct {
	Role Role

	// Exactly one of Text/Content is meaningful at a time; Content, when
	// non-nil, is authoritative (a plain string is just a single text part).
	Text    string
	Content []ContentPart

	ToolCalls  []ToolCall // assistant-only
	ToolCallID string     // tool-only

	// Annotations carries provider-specific extras a stage does not own
	// (e.g. OpenRouter web-search annotations) untouched through the chain.
	Annotations map[string]any
}

// HasStructuredContent reports whether Content should be preferred over Text.
func (m UnifiedMessage) HasStructuredContent() bool {
	return len(m.Content) > 0
}

// ToolChoiceKind enumerates the normalised tool_choice shapes.
type ToolChoiceKind string

const (
	ToolChoiceAuto     ToolChoiceKind = "auto"
	ToolChoiceNone     ToolChoiceKind = "none"
	ToolChoiceRequired ToolChoiceKind = "required"
	ToolChoiceFunction ToolChoiceKind = "function"
)

// ToolChoice is the normalised tool_choice control.
type ToolChoice struct {
	Kind         ToolChoiceKind
	FunctionName string // set iff Kind == ToolChoiceFunction
}

// UnifiedTool is a callable function definition offered to the model.
type UnifiedTool struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema

	// Custom carries an opaque plaintext schema for {type:"custom"} tools;
	// when set, Name/Description/Parameters are still populated for display
	// but Parameters must not be schema-cleaned by any adapter.
	Custom       bool
	CustomFormat string
}

// ReasoningEffort is the coarse reasoning-depth control.
type ReasoningEffort string

const (
	ReasoningMinimal ReasoningEffort = "minimal"
	ReasoningLow     ReasoningEffort = "low"
	ReasoningMedium  ReasoningEffort = "medium"
	ReasoningHigh    ReasoningEffort = "high"
)

// Verbosity is the coarse output-length control accompanying reasoning tokens.
type Verbosity string

const (
	VerbosityLow    Verbosity = "low"
	VerbosityMedium Verbosity = "medium"
	VerbosityHigh   Verbosity = "high"
)

// UnifiedChatRequest is the dialect-neutral request every transformer chain
// is built from and transformed back into a provider body.
type UnifiedChatRequest struct {
	Model    string
	Messages []UnifiedMessage

	Tools      []UnifiedTool
	ToolChoice *ToolChoice

	Stream bool

	Temperature *float64
	TopP        *float64
	TopK        *int
	MaxTokens   *int
	Stop        []string

	// Exactly one of these survives normalisation (invariant I5).
	ReasoningEffort *ReasoningEffort
	Verbosity       *Verbosity

	// Extra carries fields no stage recognises, preserved verbatim.
	Extra map[string]any
}

// Clone returns a deep-enough copy for stages that must not mutate their
// input (§9 "Immutable requests"). Extra/Tools/Messages are copied at the
// slice/map level; leaf ContentPart values are copied by value.
func (r *UnifiedChatRequest) Clone() *UnifiedChatRequest {
	if r == nil {
		return nil
	}
	out := *r
	out.Messages = make([]UnifiedMessage, len(r.Messages))
	for i, m := range r.Messages {
		out.Messages[i] = m.clone()
	}
	if r.Tools != nil {
		out.Tools = append([]UnifiedTool(nil), r.Tools...)
	}
	if r.Stop != nil {
		out.Stop = append([]string(nil), r.Stop...)
	}
	if r.Extra != nil {
		out.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	if r.ToolChoice != nil {
		tc := *r.ToolChoice
		out.ToolChoice = &tc
	}
	return &out
}

func (m UnifiedMessage) clone() UnifiedMessage {
	out := m
	if m.Content != nil {
		out.Content = append([]ContentPart(nil), m.Content...)
	}
	if m.ToolCalls != nil {
		out.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	if m.Annotations != nil {
		out.Annotations = make(map[string]any, len(m.Annotations))
		for k, v := range m.Annotations {
			out.Annotations[k] = v
		}
	}
	return out
}

// FinishReason is the normalised stop reason on a UnifiedResponse.
type FinishReason string

const (
	FinishEndTurn      FinishReason = "end_turn"
	FinishMaxTokens    FinishReason = "max_tokens"
	FinishToolUse      FinishReason = "tool_use"
	FinishStopSequence FinishReason = "stop_sequence"
)

// Usage holds token accounting shared across dialects.
type Usage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
	ReasoningTokens  int
}

// UnifiedResponse is the non-streaming dialect-neutral response.
type UnifiedResponse struct {
	ID    string
	Model string

	Message      UnifiedMessage
	FinishReason FinishReason
	Usage        Usage
}

// StopReasonFromUpstream maps a provider-native finish/stop reason string to
// the unified FinishReason per §4.1's table.
func StopReasonFromUpstream(reason string) FinishReason {
	switch reason {
	case "stop", "end_turn", "", "null":
		return FinishEndTurn
	case "length", "max_tokens":
		return FinishMaxTokens
	case "tool_calls", "tool_use", "function_call":
		return FinishToolUse
	case "content_filter":
		return FinishStopSequence
	default:
		return FinishEndTurn
	}
}
