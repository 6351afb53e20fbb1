package harvest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimgongju/DE-Project2/pkg/fetch"
)

// fakeFetcher serves canned records and failures, counting calls per ID.
type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newFakeFetcher(failIDs ...string) *fakeFetcher {
	fail := make(map[string]bool, len(failIDs))
	for _, id := range failIDs {
		fail[id] = true
	}
	return &fakeFetcher{calls: make(map[string]int), fail: fail}
}

func (f *fakeFetcher) Fetch(_ context.Context, id string) (*fetch.Record, error) {
	f.mu.Lock()
	f.calls[id]++
	f.mu.Unlock()

	if f.fail[id] {
		return nil, fmt.Errorf("%w after 3 attempts: injected failure", fetch.ErrRetryExhausted)
	}
	return &fetch.Record{ID: id, Name: "Product " + id, Slug: "product-" + id, Price: 1000}, nil
}

func (f *fakeFetcher) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// memSink captures failure records in memory.
type memSink struct {
	mu       sync.Mutex
	failures []string
	failErr  error
}

func (s *memSink) Record(productID string, _ error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.failures = append(s.failures, productID)
	return nil
}

func (s *memSink) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.failures...)
}

func idRange(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = strconv.Itoa(i + 1)
	}
	return ids
}

func flushedIDs(w *memWriter) []string {
	var ids []string
	for _, r := range w.records() {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestNew_Validation(t *testing.T) {
	fetcher := newFakeFetcher()
	store := &memStore{}
	writer := newMemWriter()
	sink := &memSink{}

	_, err := New(Config{}, nil, store, writer, sink)
	assert.Error(t, err, "nil fetcher must be rejected")

	_, err = New(Config{}, fetcher, nil, writer, sink)
	assert.Error(t, err, "nil store must be rejected")

	_, err = New(Config{}, fetcher, store, nil, sink)
	assert.Error(t, err, "nil writer must be rejected")

	_, err = New(Config{}, fetcher, store, writer, nil)
	assert.Error(t, err, "nil sink must be rejected")

	h, err := New(Config{}, fetcher, store, writer, sink)
	require.NoError(t, err)
	assert.Equal(t, 20, h.config.Workers, "zero workers defaults to 20")
	assert.Equal(t, 1000, h.config.BatchSize, "zero batch size defaults to 1000")
}

// The canonical scenario: IDs [1,2,3], batch size 2, ID 2 always fails.
func TestRun_Scenario(t *testing.T) {
	fetcher := newFakeFetcher("2")
	store := &memStore{}
	writer := newMemWriter()
	sink := &memSink{}

	h, err := New(Config{Workers: 3, BatchSize: 2}, fetcher, store, writer, sink)
	require.NoError(t, err)

	summary, err := h.Run(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Queued)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)

	assert.Equal(t, []string{"1", "3"}, flushedIDs(writer), "records for 1 and 3 in some order")
	assert.Equal(t, []string{"2"}, sink.recorded(), "one error entry for ID 2")

	final, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"1": {}, "3": {}}, final, "checkpoint contains exactly {1,3}")
}

func TestRun_BatchThreshold(t *testing.T) {
	const m, n = 10, 3

	fetcher := newFakeFetcher()
	store := &memStore{}
	writer := newMemWriter()
	sink := &memSink{}

	h, err := New(Config{Workers: 5, BatchSize: n}, fetcher, store, writer, sink)
	require.NoError(t, err)

	summary, err := h.Run(context.Background(), idRange(m))
	require.NoError(t, err)

	assert.Equal(t, m, summary.Processed)
	// floor(10/3) = 3 full batches plus one remainder file of 1.
	assert.Equal(t, 4, summary.Batches)

	writer.mu.Lock()
	sizes := make([]int, 0, len(writer.batches))
	for _, batch := range writer.batches {
		sizes = append(sizes, len(batch))
	}
	writer.mu.Unlock()
	sort.Ints(sizes)
	assert.Equal(t, []int{1, n, n, n}, sizes)

	assert.Equal(t, idRange(m), flushedIDs(writer), "union of batches equals the input set, no duplicates")
}

func TestRun_ExactMultipleNoRemainderFile(t *testing.T) {
	fetcher := newFakeFetcher()
	store := &memStore{}
	writer := newMemWriter()
	sink := &memSink{}

	h, err := New(Config{Workers: 4, BatchSize: 3}, fetcher, store, writer, sink)
	require.NoError(t, err)

	summary, err := h.Run(context.Background(), idRange(6))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Batches, "6 records at batch size 3 produce exactly 2 files")
}

func TestRun_SkipsCheckpointedIDs(t *testing.T) {
	fetcher := newFakeFetcher()
	store := &memStore{}
	require.NoError(t, store.Save(context.Background(), map[string]struct{}{"1": {}, "3": {}}))
	writer := newMemWriter()
	sink := &memSink{}

	h, err := New(Config{Workers: 2, BatchSize: 10}, fetcher, store, writer, sink)
	require.NoError(t, err)

	summary, err := h.Run(context.Background(), []string{"1", "2", "3", "4"})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Queued)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, fetcher.callCount("1"), "checkpointed ID must not be re-fetched")
	assert.Equal(t, 0, fetcher.callCount("3"), "checkpointed ID must not be re-fetched")
	assert.Equal(t, []string{"2", "4"}, flushedIDs(writer))

	final, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, final, 4, "checkpoint keeps prior-run IDs")
}

func TestRun_IdempotentRestart(t *testing.T) {
	store := &memStore{}
	ids := idRange(50)

	first := newFakeFetcher()
	h1, err := New(Config{Workers: 8, BatchSize: 7}, first, store, newMemWriter(), &memSink{})
	require.NoError(t, err)
	summary1, err := h1.Run(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, 50, summary1.Processed)

	second := newFakeFetcher()
	h2, err := New(Config{Workers: 8, BatchSize: 7}, second, store, newMemWriter(), &memSink{})
	require.NoError(t, err)
	summary2, err := h2.Run(context.Background(), ids)
	require.NoError(t, err)

	assert.Equal(t, 0, summary2.Processed, "second run has nothing left to process")
	assert.Equal(t, 50, summary2.Skipped)
	for _, id := range ids {
		assert.Zero(t, second.callCount(id), "ID %s was re-fetched after restart", id)
	}
}

func TestRun_FailuresDoNotStopTheRun(t *testing.T) {
	fetcher := newFakeFetcher("5", "17", "23")
	store := &memStore{}
	writer := newMemWriter()
	sink := &memSink{}

	h, err := New(Config{Workers: 6, BatchSize: 4}, fetcher, store, writer, sink)
	require.NoError(t, err)

	summary, err := h.Run(context.Background(), idRange(30))
	require.NoError(t, err)

	assert.Equal(t, 27, summary.Processed)
	assert.Equal(t, 3, summary.Failed)

	failed := sink.recorded()
	sort.Strings(failed)
	assert.Equal(t, []string{"17", "23", "5"}, failed)

	final, err := store.Load(context.Background())
	require.NoError(t, err)
	for _, id := range []string{"5", "17", "23"} {
		_, ok := final[id]
		assert.False(t, ok, "failed ID %s must not enter the checkpoint", id)
	}
}

func TestRun_ConcurrencySafety(t *testing.T) {
	ids := idRange(200)
	failing := []string{"13", "77", "154"}

	run := func(workers int) (map[string]struct{}, []string) {
		fetcher := newFakeFetcher(failing...)
		store := &memStore{}
		writer := newMemWriter()

		h, err := New(Config{Workers: workers, BatchSize: 16}, fetcher, store, writer, &memSink{})
		require.NoError(t, err)

		_, err = h.Run(context.Background(), ids)
		require.NoError(t, err)

		final, err := store.Load(context.Background())
		require.NoError(t, err)
		return final, flushedIDs(writer)
	}

	setSerial, recordsSerial := run(1)
	setParallel, recordsParallel := run(20)

	assert.Equal(t, setSerial, setParallel, "final processed set must not depend on pool size")
	assert.Equal(t, recordsSerial, recordsParallel, "record multiset must not depend on pool size")
}

func TestRun_FlushErrorAbortsRun(t *testing.T) {
	fetcher := newFakeFetcher()
	writer := newMemWriter()
	writer.failErr = errors.New("disk full")

	h, err := New(Config{Workers: 4, BatchSize: 2}, fetcher, &memStore{}, writer, &memSink{})
	require.NoError(t, err)

	_, err = h.Run(context.Background(), idRange(20))
	require.Error(t, err, "batch I/O errors must abort the run, not be swallowed")
	assert.ErrorContains(t, err, "disk full")
}

func TestRun_SinkErrorAbortsRun(t *testing.T) {
	fetcher := newFakeFetcher("1")
	sink := &memSink{failErr: errors.New("permission denied")}

	h, err := New(Config{Workers: 2, BatchSize: 5}, fetcher, &memStore{}, newMemWriter(), sink)
	require.NoError(t, err)

	_, err = h.Run(context.Background(), []string{"1", "2"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "permission denied")
}

func TestRun_EmptyInput(t *testing.T) {
	h, err := New(Config{Workers: 4, BatchSize: 2}, newFakeFetcher(), &memStore{}, newMemWriter(), &memSink{})
	require.NoError(t, err)

	summary, err := h.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Zero(t, summary.Batches)
}
