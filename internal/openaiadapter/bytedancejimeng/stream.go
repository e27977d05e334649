package bytedancejimeng

import (
	"context"
	"sync"

	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
)

// chunkQueue is an unbounded FIFO between the generation task and the
// stream consumer. Pushes never block, so a slow consumer cannot stall
// polling.
type chunkQueue struct {
	mu     sync.Mutex
	items  []*openaiadapter.CreateChatCompletionChunk
	closed bool
	signal chan struct{}
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{signal: make(chan struct{}, 1)}
}

// push appends a chunk. Pushing to a closed queue is a no-op.
func (q *chunkQueue) push(chunk *openaiadapter.CreateChatCompletionChunk) {
	q.mu.Lock()
	if !q.closed {
		q.items = append(q.items, chunk)
	}
	q.mu.Unlock()
	q.notify()
}

// close marks the end of the stream. Queued chunks remain readable.
func (q *chunkQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notify()
}

func (q *chunkQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// pop blocks until a chunk is available. It returns false once the queue
// is closed and drained, or as soon as ctx is done.
func (q *chunkQueue) pop(ctx context.Context) (*openaiadapter.CreateChatCompletionChunk, bool) {
	for {
		if ctx.Err() != nil {
			return nil, false
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			chunk := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return chunk, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-q.signal:
		case <-ctx.Done():
			return nil, false
		}
	}
}
