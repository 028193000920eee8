package indexer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ethLogs/internal/metrics"
	"ethLogs/internal/model"
	"ethLogs/internal/storage"
	"ethLogs/internal/stream"
)

// memStore keeps committed rows in memory. A transaction's rows become visible
// only if its function returns nil and commitErr is unset.
type memStore struct {
	mu        sync.Mutex
	nextID    model.EnvelopeID
	envelopes map[model.EnvelopeID]model.LogEnvelope
	payloads  map[model.EnvelopeID]model.Event

	envelopeErr error
	payloadErr  error
	commitErr   error
}

func newMemStore() *memStore {
	return &memStore{
		envelopes: make(map[model.EnvelopeID]model.LogEnvelope),
		payloads:  make(map[model.EnvelopeID]model.Event),
	}
}

func (s *memStore) WithTx(ctx context.Context, fn func(storage.LogWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, envelopes: map[model.EnvelopeID]model.LogEnvelope{}, payloads: map[model.EnvelopeID]model.Event{}}
	if err := fn(tx); err != nil {
		return err
	}
	if s.commitErr != nil {
		return s.commitErr
	}
	for id, env := range tx.envelopes {
		s.envelopes[id] = env
	}
	for id, ev := range tx.payloads {
		s.payloads[id] = ev
	}
	return nil
}

func (s *memStore) counts() (int, map[model.EventKind]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKind := make(map[model.EventKind]int)
	for _, ev := range s.payloads {
		byKind[ev.Kind()]++
	}
	return len(s.envelopes), byKind
}

type memTx struct {
	store     *memStore
	envelopes map[model.EnvelopeID]model.LogEnvelope
	payloads  map[model.EnvelopeID]model.Event
}

func (t *memTx) InsertEnvelope(_ context.Context, env model.LogEnvelope) (model.EnvelopeID, error) {
	if t.store.envelopeErr != nil {
		return 0, t.store.envelopeErr
	}
	t.store.nextID++
	t.envelopes[t.store.nextID] = env
	return t.store.nextID, nil
}

func (t *memTx) insert(id model.EnvelopeID, ev model.Event) error {
	if t.store.payloadErr != nil {
		return t.store.payloadErr
	}
	if _, ok := t.envelopes[id]; !ok {
		return fmt.Errorf("envelope %d does not exist", id)
	}
	if _, ok := t.payloads[id]; ok {
		return fmt.Errorf("envelope %d already has a payload", id)
	}
	t.payloads[id] = ev
	return nil
}

func (t *memTx) InsertSwap(_ context.Context, id model.EnvelopeID, ev model.SwapEvent) error {
	return t.insert(id, ev)
}

func (t *memTx) InsertMint(_ context.Context, id model.EnvelopeID, ev model.MintEvent) error {
	return t.insert(id, ev)
}

func (t *memTx) InsertBurn(_ context.Context, id model.EnvelopeID, ev model.BurnEvent) error {
	return t.insert(id, ev)
}

func (t *memTx) InsertFlash(_ context.Context, id model.EnvelopeID, ev model.FlashEvent) error {
	return t.insert(id, ev)
}

type errSource struct {
	err error
}

func (s errSource) Next(context.Context) (model.LogItem, error) {
	return model.LogItem{}, s.err
}

// blockingSource never yields; Next returns when ctx is done.
type blockingSource struct{}

func (blockingSource) Next(ctx context.Context) (model.LogItem, error) {
	<-ctx.Done()
	return model.LogItem{}, ctx.Err()
}

type watcherFunc func(ctx context.Context) error

func (f watcherFunc) Watch(ctx context.Context) error { return f(ctx) }

func item(i int, ev model.Event) model.LogItem {
	return model.LogItem{
		Envelope: model.LogEnvelope{
			TxHash:      common.BigToHash(big.NewInt(int64(i + 1))),
			BlockNumber: uint64(19000000 + i),
			LogIndex:    uint(i),
		},
		Event: ev,
	}
}

func mixedItems() []model.LogItem {
	return []model.LogItem{
		item(0, model.SwapEvent{Amount0: big.NewInt(-5), Amount1: big.NewInt(5), SqrtPriceX96: uint256.NewInt(1)}),
		item(1, model.OtherEvent{Name: "Collect"}),
		item(2, model.MintEvent{Amount0: uint256.NewInt(1)}),
		item(3, model.BurnEvent{}),
		item(4, model.FlashEvent{}),
		item(5, model.OtherEvent{}),
		item(6, model.SwapEvent{}),
	}
}

func newTestMetrics(t *testing.T) *metrics.Metrics {
	t.Helper()
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestRunnerPersistsEveryLog(t *testing.T) {
	store := newMemStore()
	m := newTestMetrics(t)
	runner := NewRunner(stream.NewSliceSource(mixedItems()...), store, m, zaptest.NewLogger(t))

	require.NoError(t, runner.Run(context.Background()))
	assert.Equal(t, StateStopped, runner.State())
	assert.Equal(t, uint64(7), runner.Persisted())

	envelopes, byKind := store.counts()
	assert.Equal(t, 7, envelopes)
	assert.Equal(t, 2, byKind[model.KindSwap])
	assert.Equal(t, 1, byKind[model.KindMint])
	assert.Equal(t, 1, byKind[model.KindBurn])
	assert.Equal(t, 1, byKind[model.KindFlash])
	assert.Zero(t, byKind[model.KindOther])

	for id := range store.payloads {
		_, ok := store.envelopes[id]
		assert.True(t, ok, "payload %d has no envelope", id)
	}
}

func TestRunnerCountsSkippedEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	runner := NewRunner(stream.NewSliceSource(mixedItems()...), newMemStore(), m, nil)
	require.NoError(t, runner.Run(context.Background()))

	skipped, err := testutil.GatherAndCount(reg, "ethlogs_events_skipped_total")
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)

	families, err := reg.Gather()
	require.NoError(t, err)
	var received float64
	for _, mf := range families {
		if mf.GetName() == "ethlogs_logs_received_total" {
			received = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(7), received)
}

func TestRunnerEmptyStream(t *testing.T) {
	store := newMemStore()
	runner := NewRunner(stream.NewSliceSource(), store, nil, nil)

	require.NoError(t, runner.Run(context.Background()))
	assert.Equal(t, StateStopped, runner.State())

	envelopes, _ := store.counts()
	assert.Zero(t, envelopes)
}

func TestRunnerStageErrors(t *testing.T) {
	dbErr := errors.New("connection reset")

	tests := []struct {
		name   string
		source stream.Source
		setup  func(*memStore)
		stage  Stage
		cause  error
	}{
		{
			name:   "stream read",
			source: errSource{err: dbErr},
			stage:  StageStreamRead,
			cause:  dbErr,
		},
		{
			name:   "decode",
			source: errSource{err: fmt.Errorf("%w: bad data", stream.ErrDecode)},
			stage:  StageDecode,
			cause:  stream.ErrDecode,
		},
		{
			name:   "missing event",
			source: stream.NewSliceSource(item(0, nil)),
			stage:  StageDecode,
		},
		{
			name:   "envelope insert",
			source: stream.NewSliceSource(item(0, model.SwapEvent{})),
			setup:  func(s *memStore) { s.envelopeErr = dbErr },
			stage:  StageEnvelopeInsert,
			cause:  dbErr,
		},
		{
			name:   "payload insert",
			source: stream.NewSliceSource(item(0, model.MintEvent{})),
			setup:  func(s *memStore) { s.payloadErr = dbErr },
			stage:  StagePayloadInsert,
			cause:  dbErr,
		},
		{
			name:   "commit",
			source: stream.NewSliceSource(item(0, model.BurnEvent{})),
			setup:  func(s *memStore) { s.commitErr = dbErr },
			stage:  StageCommit,
			cause:  dbErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			if tt.setup != nil {
				tt.setup(store)
			}
			runner := NewRunner(tt.source, store, newTestMetrics(t), zaptest.NewLogger(t))

			err := runner.Run(context.Background())
			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.stage, stageErr.Stage)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
			assert.Equal(t, StateFailed, runner.State())

			envelopes, _ := store.counts()
			assert.Zero(t, envelopes, "failed logs must not leave envelopes behind")
		})
	}
}

func TestRunnerStopsAtFirstFailure(t *testing.T) {
	store := newMemStore()
	items := []model.LogItem{
		item(0, model.SwapEvent{}),
		item(1, model.SwapEvent{Amount0: new(big.Int).Lsh(big.NewInt(1), 300)}),
		item(2, model.SwapEvent{}),
	}
	src := stream.NewSliceSource(items...)
	runner := NewRunner(src, &encodingStore{memStore: store}, nil, nil)

	err := runner.Run(context.Background())
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StagePayloadInsert, stageErr.Stage)
	assert.Equal(t, uint64(1), runner.Persisted())

	envelopes, _ := store.counts()
	assert.Equal(t, 1, envelopes)

	next, err := src.Next(context.Background())
	require.NoError(t, err, "the item after the failure must not be consumed")
	assert.Equal(t, uint(2), next.Envelope.LogIndex)
}

// encodingStore rejects swaps whose amounts do not fit in 256 bits.
type encodingStore struct {
	*memStore
}

func (s *encodingStore) WithTx(ctx context.Context, fn func(storage.LogWriter) error) error {
	return s.memStore.WithTx(ctx, func(w storage.LogWriter) error {
		return fn(encodingWriter{LogWriter: w})
	})
}

type encodingWriter struct {
	storage.LogWriter
}

func (w encodingWriter) InsertSwap(ctx context.Context, id model.EnvelopeID, ev model.SwapEvent) error {
	if ev.Amount0 != nil && ev.Amount0.BitLen() > 255 {
		return errors.New("amount0 out of range")
	}
	return w.LogWriter.InsertSwap(ctx, id, ev)
}

func TestRunnerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunner(blockingSource{}, newMemStore(), nil, nil)

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, StateStopped, runner.State())
}

func TestRunSupervisedWatcherFailureHaltsPipeline(t *testing.T) {
	lost := errors.New("postgres connection lost")
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	runner := NewRunner(blockingSource{}, newMemStore(), m, zaptest.NewLogger(t))

	failing := watcherFunc(func(ctx context.Context) error {
		select {
		case <-time.After(20 * time.Millisecond):
			return lost
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	var stoppedCleanly bool
	idle := watcherFunc(func(ctx context.Context) error {
		<-ctx.Done()
		stoppedCleanly = true
		return ctx.Err()
	})

	done := make(chan error, 1)
	go func() { done <- runner.RunSupervised(context.Background(), failing, idle) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, lost)
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageWatcher, stageErr.Stage)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline kept running after watcher failure")
	}
	assert.Equal(t, StateFailed, runner.State())
	assert.True(t, stoppedCleanly)

	expected := `
# HELP ethlogs_failures_total Total pipeline failures by stage
# TYPE ethlogs_failures_total counter
ethlogs_failures_total{stage="watcher"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ethlogs_failures_total"))
}

func TestRunSupervisedStopsWatchersAtEndOfStream(t *testing.T) {
	store := newMemStore()
	runner := NewRunner(stream.NewSliceSource(mixedItems()...), store, nil, nil)

	idle := watcherFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	require.NoError(t, runner.RunSupervised(context.Background(), idle, idle))
	assert.Equal(t, StateStopped, runner.State())

	envelopes, _ := store.counts()
	assert.Equal(t, 7, envelopes)
}

func TestRunnerRequiresDependencies(t *testing.T) {
	assert.Error(t, NewRunner(nil, newMemStore(), nil, nil).Run(context.Background()))
	assert.Error(t, NewRunner(stream.NewSliceSource(), nil, nil, nil).Run(context.Background()))
}
