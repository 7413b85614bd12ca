package sse

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oneByteReader delivers the stream a single byte per Read call, the most
// hostile chunking a transport could produce.
type oneByteReader struct {
	s   string
	pos int
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.s) {
		return 0, io.EOF
	}
	p[0] = r.s[r.pos]
	r.pos++
	return 1, nil
}

func collect(t *testing.T, d *Decoder) []Frame {
	t.Helper()
	var frames []Frame
	for {
		f, err := d.Next(context.Background())
		if err == io.EOF {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, *f)
	}
}

func TestDecoderSingleFrame(t *testing.T) {
	d := NewDecoder(strings.NewReader("event: response.created\ndata: {\"id\":\"r1\"}\n\n"))

	frames := collect(t, d)
	require.Len(t, frames, 1)
	assert.Equal(t, "response.created", frames[0].Kind)
	assert.Equal(t, `{"id":"r1"}`, string(frames[0].Data))
}

func TestDecoderMultiDataJoin(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: first\ndata: second\ndata: third\n\n"))

	frames := collect(t, d)
	require.Len(t, frames, 1)
	assert.Equal(t, "first\nsecond\nthird", string(frames[0].Data))
	assert.Empty(t, frames[0].Kind)
}

func TestDecoderDoneSentinel(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: hello\n\ndata: [DONE]\n\ndata: after\n\n"))

	frames := collect(t, d)
	require.Len(t, frames, 1, "nothing after the sentinel is surfaced")
	assert.Equal(t, "hello", string(frames[0].Data))

	// The decoder stays terminated.
	_, err := d.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestDecoderIgnoresUnknownFieldsAndComments(t *testing.T) {
	input := ": keepalive comment\n" +
		"id: 42\n" +
		"retry: 1000\n" +
		"event: ping\n" +
		"data: payload\n" +
		"\n"
	d := NewDecoder(strings.NewReader(input))

	frames := collect(t, d)
	require.Len(t, frames, 1)
	assert.Equal(t, "ping", frames[0].Kind)
	assert.Equal(t, "payload", string(frames[0].Data))
}

func TestDecoderCRLF(t *testing.T) {
	d := NewDecoder(strings.NewReader("event: e\r\ndata: body\r\n\r\n"))

	frames := collect(t, d)
	require.Len(t, frames, 1)
	assert.Equal(t, "e", frames[0].Kind)
	assert.Equal(t, "body", string(frames[0].Data))
}

func TestDecoderChunkingIndependence(t *testing.T) {
	input := "event: a\ndata: one\n\nevent: b\ndata: two\ndata: three\n\ndata: [DONE]\n\n"

	whole := collect(t, NewDecoder(strings.NewReader(input)))
	byByte := collect(t, NewDecoder(&oneByteReader{s: input}))

	require.Equal(t, whole, byByte)
	require.Len(t, whole, 2)
	assert.Equal(t, "a", whole[0].Kind)
	assert.Equal(t, "one", string(whole[0].Data))
	assert.Equal(t, "b", whole[1].Kind)
	assert.Equal(t, "two\nthree", string(whole[1].Data))
}

func TestDecoderUnterminatedFinalFrame(t *testing.T) {
	// Stream ends without the trailing blank line; the pending frame still
	// dispatches.
	d := NewDecoder(strings.NewReader("event: last\ndata: tail"))

	frames := collect(t, d)
	require.Len(t, frames, 1)
	assert.Equal(t, "last", frames[0].Kind)
	assert.Equal(t, "tail", string(frames[0].Data))
}

func TestDecoderEmptyStream(t *testing.T) {
	d := NewDecoder(strings.NewReader(""))
	_, err := d.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestDecoderNoSpaceAfterColon(t *testing.T) {
	d := NewDecoder(strings.NewReader("data:tight\n\n"))

	frames := collect(t, d)
	require.Len(t, frames, 1)
	assert.Equal(t, "tight", string(frames[0].Data))
}

func TestDecoderPreservesPayloadSpace(t *testing.T) {
	// Only the single space after the colon is stripped.
	d := NewDecoder(strings.NewReader("data:  two spaces\n\n"))

	frames := collect(t, d)
	require.Len(t, frames, 1)
	assert.Equal(t, " two spaces", string(frames[0].Data))
}

func TestDecoderContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDecoder(strings.NewReader("data: x\n\n"))
	_, err := d.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrameIsDataJSON(t *testing.T) {
	tests := []struct {
		data string
		want bool
	}{
		{`{"a":1}`, true},
		{`[1,2]`, true},
		{`  {"a":1}`, true},
		{"", false},
		{"[DONE]", true}, // looks like an array prefix; callers check the sentinel first
		{"plain text", false},
	}
	for _, tt := range tests {
		f := Frame{Data: []byte(tt.data)}
		assert.Equal(t, tt.want, f.IsDataJSON(), "data=%q", tt.data)
	}
}
