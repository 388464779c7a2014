package reconcile

import (
	"context"
	"sync"
)

type request struct {
	guildID string
	userID  string
}

// queue is a FIFO of user passes that coalesces duplicates: a request that is
// already pending is not queued twice. A request added while its previous
// copy is being processed is queued again.
type queue struct {
	mu      sync.Mutex
	items   []request
	pending map[request]struct{}
	signal  chan struct{}
}

func newQueue() *queue {
	return &queue{
		pending: make(map[request]struct{}),
		signal:  make(chan struct{}, 1),
	}
}

// add never blocks.
func (q *queue) add(r request) {
	q.mu.Lock()
	if _, ok := q.pending[r]; !ok {
		q.pending[r] = struct{}{}
		q.items = append(q.items, r)
	}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// get blocks until a request is available or ctx is done.
func (q *queue) get(ctx context.Context) (request, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			r := q.items[0]
			q.items = q.items[1:]
			delete(q.pending, r)
			q.mu.Unlock()
			return r, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return request{}, false
		case <-q.signal:
		}
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
