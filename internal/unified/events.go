package unified

// EventType tags the variant held by a StreamEvent (the internal streaming
// tagged union described in spec.md §3).
type EventType string

const (
	EventMessageStart     EventType = "message_start"
	EventContentBlockStart EventType = "content_block_start"
	EventContentBlockDelta EventType = "content_block_delta"
	EventContentBlockStop  EventType = "content_block_stop"
	EventMessageDelta      EventType = "message_delta"
	EventMessageStop       EventType = "message_stop"
	EventError             EventType = "error"
)

// BlockKind tags the content-block variant opened by content_block_start.
type BlockKind string

const (
	BlockText            BlockKind = "text"
	BlockThinking        BlockKind = "thinking"
	BlockToolUse         BlockKind = "tool_use"
	BlockWebSearchResult BlockKind = "web_search_result"
)

// DeltaKind tags the payload variant carried by a content_block_delta.
type DeltaKind string

const (
	DeltaText             DeltaKind = "text"
	DeltaThinkingText      DeltaKind = "thinking_text"
	DeltaThinkingSignature DeltaKind = "thinking_signature"
	DeltaInputJSON         DeltaKind = "input_json"
	DeltaToolCallFragment  DeltaKind = "tool_call_fragment"
	DeltaAnnotation        DeltaKind = "annotation"
)

// ToolCallFragment is a partial delta.tool_calls[i] entry: some subset of
// id, name, or an incremental slice of arguments.
type ToolCallFragment struct {
	Index      int
	ID         string
	Name       string
	ArgsDelta  string
	Annotation map[string]any
}

// StreamEvent is the internal tagged union every streaming dialect bridge
// consumes and produces. Exactly one payload field is meaningful, selected
// by Type (and, for content_block_delta, by Delta).
type StreamEvent struct {
	Type EventType

	// message_start
	MessageID string
	Model     string

	// content_block_start / content_block_stop / content_block_delta
	Index     int
	Block     BlockKind
	ToolID    string
	ToolName  string
	Delta     DeltaKind
	Text      string // DeltaText / DeltaThinkingText
	Signature string // DeltaThinkingSignature
	PartialJSON string // DeltaInputJSON / DeltaToolCallFragment (arguments slice)
	Annotation  map[string]any

	// message_delta / message_stop
	FinishReason FinishReason
	Usage        Usage

	// error
	ErrorKind    string
	ErrorMessage string
}
