package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/petrel-labs/petrel/sse"
)

// lineAdapter folds a toy frame dialect: "start <id>", "text <id> <delta>",
// "finish <id>", anything else fails decode.
type lineAdapter struct{}

func (lineAdapter) Apply(acc *Accumulator, frame *sse.Frame) (bool, error) {
	fields := strings.SplitN(string(frame.Data), " ", 3)
	switch fields[0] {
	case "start":
		return true, acc.StartItem(fields[1], ItemTypeMessage)
	case "text":
		return true, acc.AppendText(fields[1], fields[2])
	case "finish":
		return true, acc.FinishItem(fields[1])
	case "noop":
		return false, nil
	default:
		return false, NewDecodeError(fmt.Errorf("unrecognized frame %q", frame.Data))
	}
}

func (lineAdapter) Finalize(acc *Accumulator) error { return nil }

func frames(lines ...string) io.ReadCloser {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("data: " + l + "\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return io.NopCloser(strings.NewReader(b.String()))
}

func TestRunStreamEmitsSnapshots(t *testing.T) {
	stream := RunStream(context.Background(), frames(
		"start i1",
		"text i1 Hel",
		"text i1 lo",
		"finish i1",
	), lineAdapter{}, StreamOptions{})

	var snaps []Result
	for snap := range stream.Ch {
		snaps = append(snaps, snap)
	}
	if err, ok := <-stream.Err; ok && err != nil {
		t.Fatalf("stream error: %v", err)
	}
	final, ok := <-stream.Final
	if !ok || final == nil {
		t.Fatal("no final result")
	}

	// start, two deltas, finish, terminal.
	if len(snaps) != 5 {
		t.Fatalf("snapshots = %d, want 5", len(snaps))
	}
	if got := snaps[1].Text(); got != "Hel" {
		t.Errorf("snapshot 1 text = %q", got)
	}
	if got := snaps[2].Text(); got != "Hello" {
		t.Errorf("snapshot 2 text = %q", got)
	}
	if !snaps[4].Done {
		t.Error("last snapshot should be terminal")
	}
	if got := final.Text(); got != "Hello" || !final.Done {
		t.Errorf("final = %q done=%v", got, final.Done)
	}
}

func TestRunStreamProtocolViolationFails(t *testing.T) {
	stream := RunStream(context.Background(), frames(
		"start i1",
		"start i1",
	), lineAdapter{}, StreamOptions{Lenient: true})

	for range stream.Ch {
	}
	err, ok := <-stream.Err
	if !ok || err == nil {
		t.Fatal("expected an error")
	}
	ce, _ := AsClassified(err)
	if ce == nil || ce.Kind != KindDecodingFailed {
		t.Errorf("err = %v", err)
	}
	if !errors.Is(err, ErrDuplicateItem) {
		t.Errorf("err should wrap the duplicate-id violation: %v", err)
	}
	if _, ok := <-stream.Final; ok {
		t.Error("failed session should not produce a final result")
	}
}

func TestRunStreamLenientSkipsBadFrames(t *testing.T) {
	stream := RunStream(context.Background(), frames(
		"start i1",
		"garbage frame",
		"text i1 ok",
		"finish i1",
	), lineAdapter{}, StreamOptions{Lenient: true})

	final, err := Drain(context.Background(), stream)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if got := final.Text(); got != "ok" {
		t.Errorf("Text() = %q", got)
	}
}

func TestRunStreamStrictFailsOnBadFrame(t *testing.T) {
	stream := RunStream(context.Background(), frames(
		"start i1",
		"garbage frame",
	), lineAdapter{}, StreamOptions{})

	_, err := Drain(context.Background(), stream)
	ce, ok := AsClassified(err)
	if !ok || ce.Kind != KindDecodingFailed {
		t.Errorf("err = %v", err)
	}
}

func TestRunStreamOnEnd(t *testing.T) {
	var mu sync.Mutex
	var endFinal *Result
	var endErr error
	calls := 0

	stream := RunStream(context.Background(), frames(
		"start i1", "finish i1",
	), lineAdapter{}, StreamOptions{
		OnEnd: func(final *Result, err error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			endFinal, endErr = final, err
		},
	})

	if _, err := Drain(context.Background(), stream); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("OnEnd calls = %d", calls)
	}
	if endErr != nil || endFinal == nil || !endFinal.Done {
		t.Errorf("OnEnd final=%+v err=%v", endFinal, endErr)
	}
}

// blockingBody blocks reads until closed, standing in for an idle network
// connection.
type blockingBody struct {
	closed    chan struct{}
	closeOnce sync.Once
}

func newBlockingBody() *blockingBody {
	return &blockingBody{closed: make(chan struct{})}
}

func (b *blockingBody) Read(p []byte) (int, error) {
	<-b.closed
	return 0, errors.New("use of closed connection")
}

func (b *blockingBody) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

func TestStreamCloseUnblocksRead(t *testing.T) {
	body := newBlockingBody()
	stream := RunStream(context.Background(), body, lineAdapter{}, StreamOptions{})

	done := make(chan error, 1)
	go func() {
		_, err := Drain(context.Background(), stream)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	stream.Close()

	select {
	case err := <-done:
		ce, ok := AsClassified(err)
		if !ok || ce.Kind != KindCancelled {
			t.Errorf("err after Close = %v, want cancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock the session")
	}
}

func TestRunStreamParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	body := newBlockingBody()
	stream := RunStream(ctx, body, lineAdapter{}, StreamOptions{})

	done := make(chan error, 1)
	go func() {
		_, err := Drain(context.Background(), stream)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	// The blocked read holds the goroutine; Close is what releases the
	// connection, but a cancelled parent also stops the session once the
	// read returns.
	body.Close()

	select {
	case err := <-done:
		ce, ok := AsClassified(err)
		if !ok || ce.Kind != KindCancelled {
			t.Errorf("err after cancel = %v, want cancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancel did not stop the session")
	}
}

func TestDrainNilStream(t *testing.T) {
	if _, err := Drain(context.Background(), nil); err == nil {
		t.Error("Drain(nil) should fail")
	}
}

func TestStreamCloseIdempotent(t *testing.T) {
	stream := RunStream(context.Background(), frames("start i1", "finish i1"), lineAdapter{}, StreamOptions{})
	stream.Close()
	stream.Close()
	for range stream.Ch {
	}
}
