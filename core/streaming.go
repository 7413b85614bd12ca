package core

import (
	"context"
	"io"
	"sync"
)

// ResultStream is a lazy, finite, forward-only sequence of Result
// snapshots for one streaming call.
//
// Channel rules:
//   - Ch emits snapshots in fold order and is closed when the session ends.
//   - Err emits at most one classified error, then all channels close.
//   - Final emits the terminal Result exactly once on success.
//
// A consumer that stops early must call Close, which releases the
// underlying connection; reading every channel to completion makes Close
// optional but still safe.
type ResultStream struct {
	Ch    <-chan Result
	Err   <-chan error
	Final <-chan *Result

	cancel    context.CancelFunc
	body      io.Closer
	closeOnce sync.Once
}

// Close terminates the session early and releases the underlying
// connection. Safe to call multiple times and concurrently with channel
// reads.
func (s *ResultStream) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.body != nil {
			_ = s.body.Close()
		}
	})
}

// Drain consumes the stream to completion and returns the terminal Result.
// It blocks until the session ends or ctx is done; cancellation releases
// the connection before returning.
func Drain(ctx context.Context, s *ResultStream) (*Result, error) {
	if s == nil {
		return nil, newError(KindDecodingFailed, io.ErrUnexpectedEOF)
	}
	defer s.Close()

	var last Result
	var seen bool

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return nil, Classify(ctx.Err())
		case snap, ok := <-s.Ch:
			if !ok {
				// Session goroutine has exited; Err and Final are
				// settled and closed.
				if err, ok := <-s.Err; ok && err != nil {
					return nil, Classify(err)
				}
				if final, ok := <-s.Final; ok {
					return final, nil
				}
				if seen {
					return &last, nil
				}
				return nil, newError(KindDecodingFailed, io.ErrUnexpectedEOF)
			}
			last = snap
			seen = true
		}
	}
}
