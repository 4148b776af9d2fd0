package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, chunks []string) []Event {
	t.Helper()
	d := NewDecoder()
	var events []Event
	for _, c := range chunks {
		events = append(events, d.Feed([]byte(c))...)
	}
	events = append(events, d.Close()...)
	return events
}

func TestDecoder_BasicDataEvents(t *testing.T) {
	stream := "data: {\"a\":1}\n\ndata: {\"a\":2}\n\ndata: [DONE]\n\n"
	events := decodeAll(t, []string{stream})

	require.Len(t, events, 3)
	assert.Equal(t, `{"a":1}`, events[0].Data)
	assert.Equal(t, `{"a":2}`, events[1].Data)
	assert.True(t, events[2].Done)
}

func TestDecoder_NamedEvents(t *testing.T) {
	stream := "event: message_start\ndata: {\"x\":1}\n\n"
	events := decodeAll(t, []string{stream})

	require.Len(t, events, 1)
	assert.Equal(t, "message_start", events[0].Name)
	assert.Equal(t, `{"x":1}`, events[0].Data)
}

func TestDecoder_CRLF(t *testing.T) {
	stream := "data: {\"a\":1}\r\n\r\n"
	events := decodeAll(t, []string{stream})
	require.Len(t, events, 1)
	assert.Equal(t, `{"a":1}`, events[0].Data)
}

func TestDecoder_MultilineData(t *testing.T) {
	stream := "data: line1\ndata: line2\n\n"
	events := decodeAll(t, []string{stream})
	require.Len(t, events, 1)
	assert.Equal(t, "line1\nline2", events[0].Data)
}

// TestDecoder_ArbitraryByteSplits is the P7 property: splitting the same
// valid SSE bytestream at arbitrary offsets must not change the parsed
// event sequence.
func TestDecoder_ArbitraryByteSplits(t *testing.T) {
	stream := "event: message_start\ndata: {\"a\":1}\n\ndata: {\"b\":2}\n\ndata: [DONE]\n\n"

	whole := decodeAll(t, []string{stream})

	splitPoints := [][]int{
		{1}, {5}, {10}, {20}, {30}, {1, 5, 10, 20, 30, 40},
	}

	for _, points := range splitPoints {
		chunks := splitAt(stream, points)
		got := decodeAll(t, chunks)
		require.Equal(t, whole, got, "split at %v", points)
	}
}

func splitAt(s string, points []int) []string {
	var chunks []string
	last := 0
	for _, p := range points {
		if p <= last || p >= len(s) {
			continue
		}
		chunks = append(chunks, s[last:p])
		last = p
	}
	chunks = append(chunks, s[last:])
	return chunks
}

func TestDecoder_CommentLinesIgnored(t *testing.T) {
	stream := ": keep-alive\ndata: {\"a\":1}\n\n"
	events := decodeAll(t, []string{stream})
	require.Len(t, events, 1)
	assert.Equal(t, `{"a":1}`, events[0].Data)
}

func TestDecoder_BufferCapFlushesTail(t *testing.T) {
	d := NewDecoder()
	big := make([]byte, 0, maxBufferBytes+1024)
	// One giant incomplete line (no newline yet) forces the cap logic, then
	// we complete it.
	big = append(big, []byte("data: ")...)
	for len(big) < maxBufferBytes+100 {
		big = append(big, 'x')
	}
	events := d.Feed(big)
	assert.Empty(t, events) // nothing complete yet, still buffered

	final := d.Feed([]byte("\n\n"))
	require.Len(t, final, 1)
}

func TestEncoder_RoundTrip(t *testing.T) {
	enc := NewEncoder()
	data := enc.EncodeNamed("message_start", []byte(`{"a":1}`))
	assert.Equal(t, "event: message_start\ndata: {\"a\":1}\n\n", string(data))

	bare := enc.EncodeData([]byte(`{"a":1}`))
	assert.Equal(t, "data: {\"a\":1}\n\n", string(bare))

	assert.Equal(t, "data: [DONE]\n\n", string(enc.EncodeDone()))
}
