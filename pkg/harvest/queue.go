package harvest

// Queue is a drain-only work queue of product IDs. It is fully populated at
// construction and closed; workers take from it until empty. Each ID is
// delivered to at most one consumer.
type Queue struct {
	ch   chan string
	size int
}

// NewQueue builds the queue from the input IDs minus the already-processed
// set, preserving input order. Duplicate input IDs are enqueued once.
func NewQueue(ids []string, processed map[string]struct{}) *Queue {
	seen := make(map[string]struct{}, len(ids))
	pending := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, done := processed[id]; done {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		pending = append(pending, id)
	}

	ch := make(chan string, len(pending))
	for _, id := range pending {
		ch <- id
	}
	close(ch)

	return &Queue{ch: ch, size: len(pending)}
}

// Take removes the next ID. It never blocks on producers: the queue is
// closed at construction, so ok is false exactly when the queue is drained.
func (q *Queue) Take() (id string, ok bool) {
	id, ok = <-q.ch
	return id, ok
}

// Size returns the number of IDs the queue started with.
func (q *Queue) Size() int {
	return q.size
}
