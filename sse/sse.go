// Package sse decodes Server-Sent-Events style byte streams into frames.
//
// The decoder is forward-only and non-restartable: it consumes the reader
// once, splitting it into blank-line-delimited frames. It makes no
// assumptions about how the underlying transport chunks its reads; a frame
// boundary may fall anywhere, including mid-line.
package sse

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
)

// DoneSentinel is the literal payload that terminates a stream without
// emitting a frame.
const DoneSentinel = "[DONE]"

// Frame is one decoded unit of the event stream: a kind tag (the "event:"
// field, empty when absent) and the joined payload of its "data:" lines.
type Frame struct {
	Kind string
	Data []byte
}

// Decoder splits a byte stream into frames.
//
// Decoder is not safe for concurrent use; one stream has one reader.
type Decoder struct {
	r    *bufio.Reader
	done bool
}

// NewDecoder creates a decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next frame from the stream.
//
// It returns io.EOF when the underlying stream closes or the terminator
// sentinel is seen; the sentinel itself is never surfaced as a frame.
// Cancellation is checked before each physical read.
func (d *Decoder) Next(ctx context.Context) (*Frame, error) {
	if d.done {
		return nil, io.EOF
	}

	var (
		kind      string
		data      []string
		sawData   bool
		streamEOF bool
	)

	dispatch := func() (*Frame, error) {
		payload := strings.Join(data, "\n")
		if payload == DoneSentinel {
			d.done = true
			return nil, io.EOF
		}
		return &Frame{Kind: kind, Data: []byte(payload)}, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, err := d.r.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			// A final line without a trailing newline still counts.
			streamEOF = true
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		switch {
		case line == "":
			// Blank line ends the pending frame, if any.
			if sawData {
				return dispatch()
			}
			kind = ""

		case strings.HasPrefix(line, ":"):
			// Comment line, ignored.

		case strings.HasPrefix(line, "event:"):
			kind = trimFieldValue(line, "event:")

		case strings.HasPrefix(line, "data:"):
			data = append(data, trimFieldValue(line, "data:"))
			sawData = true

		default:
			// Unknown field, ignored for forward compatibility.
		}

		if streamEOF {
			if sawData {
				return dispatch()
			}
			d.done = true
			return nil, io.EOF
		}
	}
}

// trimFieldValue strips the field prefix and the single optional leading
// space the SSE format allows. Payload bytes beyond that are preserved
// exactly; deltas are byte-significant.
func trimFieldValue(line, prefix string) string {
	v := strings.TrimPrefix(line, prefix)
	return strings.TrimPrefix(v, " ")
}

// IsDataJSON reports whether the frame payload looks like a JSON document
// rather than a bare sentinel or empty keepalive.
func (f *Frame) IsDataJSON() bool {
	trimmed := bytes.TrimSpace(f.Data)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
