// Package sse implements the incremental Server-Sent-Events codec used on
// both the upstream-reading and client-writing sides of the gateway
// (spec.md §4.2). The Decoder consumes arbitrary byte chunks — it never
// assumes they align with line or event boundaries — and yields complete
// Events. The Encoder formats Events back into wire bytes.
package sse

import (
	"bytes"
	"unicode/utf8"
)

// Event is one decoded SSE event. Name is empty for bare `data: ...` events
// (the OpenAI-dialect shape); Anthropic-dialect egress sets Name to the
// Anthropic event type.
type Event struct {
	Name string
	Data string

	// Raw holds the original Data verbatim when JSON-decoding it failed
	// downstream and the caller chose to forward it unparsed (§4.2 fail soft).
	Raw bool

	// Done marks the `data: [DONE]` sentinel terminator.
	Done bool
}

// maxBufferBytes bounds unbounded growth of the decoder's internal buffer
// (§4.2 "cap internal buffer growth ... 1 MiB threshold"). Once exceeded,
// Decoder flushes every complete line parsed so far and retains only the
// trailing incomplete fragment.
const maxBufferBytes = 1 << 20

// Decoder incrementally parses an SSE byte stream. It is not safe for
// concurrent use; each response stream owns exactly one Decoder in its
// closure (per §5's "per-stream state" rule).
type Decoder struct {
	buf        []byte
	eventName  string
	dataLines  []string
	sawAnyData bool
}

// NewDecoder returns a fresh decoder with no retained bytes.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk of upstream bytes and returns every complete event
// that chunk completed. Incomplete trailing bytes (a partial line, or a
// multi-byte UTF-8 sequence cut mid-rune) are retained for the next Feed.
func (d *Decoder) Feed(chunk []byte) []Event {
	d.buf = append(d.buf, chunk...)
	return d.drain(false)
}

// Close flushes any residual buffered line as a final event (§4.2 "On EOF,
// any residual non-empty line is flushed").
func (d *Decoder) Close() []Event {
	events := d.drain(true)
	if len(d.buf) > 0 {
		line := d.trimValidUTF8(d.buf)
		if len(line) > 0 {
			events = append(events, d.handleLine(string(line))...)
		}
		d.buf = nil
	}
	// A trailing event with no blank-line terminator still counts.
	if ev, ok := d.flushEvent(); ok {
		events = append(events, ev)
	}
	return events
}

func (d *Decoder) drain(final bool) []Event {
	var events []Event

	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx == -1 {
			break
		}

		line := d.buf[:idx]
		d.buf = d.buf[idx+1:]

		// Tolerate CRLF. Splitting on '\n' never cuts a multi-byte UTF-8
		// sequence in half: 0x0A cannot appear as a continuation byte of a
		// valid sequence, so line boundaries are always rune boundaries.
		line = bytes.TrimSuffix(line, []byte{'\r'})

		events = append(events, d.handleLine(string(line))...)
	}

	if len(d.buf) > maxBufferBytes {
		// Controlled flush: treat everything parsed so far as final and keep
		// only the unterminated tail.
		if ev, ok := d.flushEvent(); ok {
			events = append(events, ev)
		}
	}

	return events
}

// trimValidUTF8 drops a trailing partial rune so Close() never emits
// mangled text.
func (d *Decoder) trimValidUTF8(b []byte) []byte {
	for i := 0; i < 4 && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

func (d *Decoder) handleLine(line string) []Event {
	if line == "" {
		// Blank line: event boundary.
		if ev, ok := d.flushEvent(); ok {
			return []Event{ev}
		}
		return nil
	}

	if len(line) >= 1 && line[0] == ':' {
		// Comment line, ignored.
		return nil
	}

	const dataPrefix = "data:"
	if len(line) >= len(dataPrefix) && line[:len(dataPrefix)] == dataPrefix {
		data := line[len(dataPrefix):]
		if len(data) > 0 && data[0] == ' ' {
			data = data[1:]
		}
		if data == "[DONE]" {
			// [DONE] terminates immediately; flush whatever was pending first.
			var events []Event
			if ev, ok := d.flushEvent(); ok {
				events = append(events, ev)
			}
			events = append(events, Event{Done: true})
			return events
		}
		d.dataLines = append(d.dataLines, data)
		d.sawAnyData = true
		return nil
	}

	const eventPrefix = "event:"
	if len(line) >= len(eventPrefix) && line[:len(eventPrefix)] == eventPrefix {
		name := line[len(eventPrefix):]
		if len(name) > 0 && name[0] == ' ' {
			name = name[1:]
		}
		d.eventName = name
		return nil
	}

	// Unrecognised field (id:, retry:, ...): ignored, but still counts as
	// activity within the current event.
	return nil
}

func (d *Decoder) flushEvent() (Event, bool) {
	if !d.sawAnyData && d.eventName == "" {
		return Event{}, false
	}

	ev := Event{
		Name: d.eventName,
		Data: joinLines(d.dataLines),
	}
	d.eventName = ""
	d.dataLines = nil
	d.sawAnyData = false

	return ev, true
}

func joinLines(lines []string) string {
	switch len(lines) {
	case 0:
		return ""
	case 1:
		return lines[0]
	}
	var b bytes.Buffer
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l)
	}
	return b.String()
}

// Encoder formats StreamEvents back into wire bytes.
type Encoder struct{}

// NewEncoder returns a stateless SSE encoder.
func NewEncoder() Encoder { return Encoder{} }

// EncodeData formats a bare `data: <json>\n\n` event (OpenAI-dialect egress).
func (Encoder) EncodeData(jsonData []byte) []byte {
	var b bytes.Buffer
	b.WriteString("data: ")
	b.Write(jsonData)
	b.WriteString("\n\n")
	return b.Bytes()
}

// EncodeNamed formats an `event: <name>\ndata: <json>\n\n` event
// (Anthropic-dialect egress).
func (Encoder) EncodeNamed(name string, jsonData []byte) []byte {
	var b bytes.Buffer
	b.WriteString("event: ")
	b.WriteString(name)
	b.WriteString("\ndata: ")
	b.Write(jsonData)
	b.WriteString("\n\n")
	return b.Bytes()
}

// EncodeDone formats the OpenAI-dialect terminator.
func (Encoder) EncodeDone() []byte {
	return []byte("data: [DONE]\n\n")
}
