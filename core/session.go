package core

import (
	"context"
	"io"
	"log/slog"

	"github.com/petrel-labs/petrel/sse"
)

// StreamAdapter interprets one endpoint family's frame payloads. The
// session runner owns framing, ordering, cancellation, and snapshot
// emission; adapters own only the kind-tag routing and payload shapes.
//
// Apply folds one frame into the accumulator and reports whether
// externally visible state changed. Finalize runs once after the last
// frame, before the terminal snapshot.
type StreamAdapter interface {
	Apply(acc *Accumulator, frame *sse.Frame) (changed bool, err error)
	Finalize(acc *Accumulator) error
}

// StreamOptions configures one streaming session.
type StreamOptions struct {
	// Lenient skips frames whose payload fails to decode instead of
	// failing the session. Protocol violations remain fatal either way.
	Lenient bool

	// OnEnd, when non-nil, runs once as the session exits, before the
	// channels close. Exactly one of final and err is non-nil.
	OnEnd func(final *Result, err error)
}

// RunStream drives one streaming session: frames are decoded from body,
// folded through adapter in strict arrival order, and emitted as Result
// snapshots. The body is closed on every exit path.
//
// Cancellation is cooperative: ctx is checked before each frame read, and
// closing the returned stream unblocks an in-flight read by closing the
// body.
func RunStream(ctx context.Context, body io.ReadCloser, adapter StreamAdapter, opts StreamOptions) *ResultStream {
	sessionCtx, cancel := context.WithCancel(ctx)

	snapCh := make(chan Result, 16)
	errCh := make(chan error, 1)
	finalCh := make(chan *Result, 1)

	stream := &ResultStream{
		Ch:     snapCh,
		Err:    errCh,
		Final:  finalCh,
		cancel: cancel,
		body:   body,
	}

	go func() {
		defer body.Close()
		defer cancel()
		defer close(snapCh)
		defer close(errCh)
		defer close(finalCh)

		fail := func(err error) {
			cerr := Classify(err)
			if opts.OnEnd != nil {
				opts.OnEnd(nil, cerr)
			}
			errCh <- cerr
		}

		dec := sse.NewDecoder(body)
		acc := NewAccumulator()

		for {
			frame, err := dec.Next(sessionCtx)
			if err != nil {
				if err == io.EOF {
					break
				}
				// A read error after Close or cancellation surfaces as
				// cancelled, not as a transport fault.
				if cerr := sessionCtx.Err(); cerr != nil {
					fail(cerr)
					return
				}
				fail(err)
				return
			}

			changed, aerr := adapter.Apply(acc, frame)
			if aerr != nil {
				if opts.Lenient && isSkippable(aerr) {
					slog.Warn("skipping malformed frame",
						"kind", frame.Kind, "error", aerr)
					continue
				}
				fail(aerr)
				return
			}
			if !changed {
				continue
			}

			select {
			case snapCh <- acc.Snapshot():
			case <-sessionCtx.Done():
				fail(sessionCtx.Err())
				return
			}
		}

		if err := adapter.Finalize(acc); err != nil {
			fail(err)
			return
		}
		acc.Finish()
		final := acc.Snapshot()

		// The terminal snapshot is never skipped, on either channel.
		select {
		case snapCh <- final:
		case <-sessionCtx.Done():
			fail(sessionCtx.Err())
			return
		}
		if opts.OnEnd != nil {
			opts.OnEnd(&final, nil)
		}
		finalCh <- &final
	}()

	return stream
}

// isSkippable reports whether a frame-level failure may be dropped under
// lenient decoding. Protocol violations never are.
func isSkippable(err error) bool {
	if IsProtocolViolation(err) {
		return false
	}
	if ce, ok := AsClassified(err); ok {
		return ce.Kind == KindDecodingFailed && !IsProtocolViolation(ce.Err)
	}
	return false
}
