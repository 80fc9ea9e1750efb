package service

import (
	"context"
	"iter"
	"sync"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/cloo-solutions/docchat/internal/metrics"
	"github.com/cloo-solutions/docchat/internal/openai"
)

// DeltaStream is a finite, single-use sequence of text fragments from one
// model response.
type DeltaStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	stream openai.ChatStream

	mu        sync.Mutex
	consumed  bool
	closeOnce sync.Once
	closeErr  error
}

func newDeltaStream(ctx context.Context, cancel context.CancelFunc, stream openai.ChatStream) *DeltaStream {
	return &DeltaStream{ctx: ctx, cancel: cancel, stream: stream}
}

// All yields fragments in emission order and ends when the response is
// complete. Stopping early closes the upstream stream. A failure before the
// first fragment yields domain.ErrCompletionFailed; a failure after it
// yields domain.ErrCompletionInterrupted and fragments already yielded stay
// valid. The sequence can be ranged over once; later calls yield
// domain.ErrStreamConsumed.
func (s *DeltaStream) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.mu.Lock()
		if s.consumed {
			s.mu.Unlock()
			yield("", domain.ErrStreamConsumed)
			return
		}
		s.consumed = true
		s.mu.Unlock()

		defer s.Close()

		delivered := 0
		for {
			delta, err := s.stream.Recv()
			if openai.IsEndOfStream(err) {
				metrics.CompletionResults.WithLabelValues("success").Inc()
				return
			}
			if err != nil {
				yield("", s.failure(delivered, err))
				return
			}

			delivered++
			metrics.CompletionDeltas.Inc()
			if !yield(delta, nil) {
				metrics.CompletionResults.WithLabelValues("cancelled").Inc()
				return
			}
		}
	}
}

func (s *DeltaStream) failure(delivered int, err error) error {
	result := "failed"
	if delivered > 0 {
		result = "interrupted"
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		result = "cancelled"
		err = ctxErr
	}
	metrics.CompletionResults.WithLabelValues(result).Inc()

	if delivered == 0 {
		return domain.ErrCompletionFailed.WithCause(err)
	}
	return domain.ErrCompletionInterrupted.WithCause(err)
}

// Close aborts the upstream response. It is safe to call more than once and
// without iterating.
func (s *DeltaStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.stream.Close()
		s.cancel()
	})
	return s.closeErr
}
