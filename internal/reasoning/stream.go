package reasoning

import (
	"strconv"
	"strings"
	"time"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// Accumulator implements the streaming half of §4.8: upstream adapters feed
// it every delta.reasoning_content fragment via Observe, and call Finish
// once a non-reasoning delta arrives. It holds no transformer-instance
// state; callers keep one Accumulator per in-flight response stream.
type Accumulator struct {
	index   int
	started bool
	buf     strings.Builder
}

// NewAccumulator returns an Accumulator that will open its thinking block
// at the given content-block index.
func NewAccumulator(index int) *Accumulator {
	return &Accumulator{index: index}
}

// Observe records one reasoning_content fragment and returns the stream
// events it produces: a block-start on the first call, then a thinking
// delta for every call.
func (a *Accumulator) Observe(fragment string) []unified.StreamEvent {
	var events []unified.StreamEvent

	if !a.started {
		a.started = true
		events = append(events, unified.StreamEvent{
			Type:  unified.EventContentBlockStart,
			Index: a.index,
			Block: unified.BlockThinking,
		})
	}

	a.buf.WriteString(fragment)
	events = append(events, unified.StreamEvent{
		Type:  unified.EventContentBlockDelta,
		Index: a.index,
		Delta: unified.DeltaThinkingText,
		Text:  fragment,
	})

	return events
}

// Finish is called on the first non-reasoning delta after reasoning began.
// It emits one final thinking delta carrying a synthesised signature and
// closes the thinking block. Returns nil if Observe was never called.
func (a *Accumulator) Finish() []unified.StreamEvent {
	if !a.started {
		return nil
	}

	signature := "ts_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	events := []unified.StreamEvent{
		{
			Type:      unified.EventContentBlockDelta,
			Index:     a.index,
			Delta:     unified.DeltaThinkingSignature,
			Signature: signature,
		},
		{
			Type:  unified.EventContentBlockStop,
			Index: a.index,
		},
	}
	a.started = false
	return events
}

// Active reports whether reasoning has begun and not yet been closed by
// Finish.
func (a *Accumulator) Active() bool {
	return a.started
}
