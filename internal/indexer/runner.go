package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ethLogs/internal/metrics"
	"ethLogs/internal/model"
	"ethLogs/internal/storage"
	"ethLogs/internal/stream"
)

// Runner pulls decoded logs from a source and persists them one at a time.
type Runner struct {
	source  stream.Source
	store   storage.Store
	metrics *metrics.Metrics
	logger  *zap.Logger

	state     atomic.Int32
	persisted atomic.Uint64
}

// NewRunner builds a Runner with its dependencies. metrics may be nil.
func NewRunner(source stream.Source, store storage.Store, m *metrics.Metrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		source:  source,
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// State returns the current pipeline state.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Persisted returns how many logs have been committed.
func (r *Runner) Persisted() uint64 {
	return r.persisted.Load()
}

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
}

// Run executes the pipeline until the source is exhausted, ctx is done, or a step fails.
// End of stream returns nil. A failing step returns a *StageError; nothing is retried.
// If ctx is cancelled with a cause other than context.Canceled, that cause is returned
// as a StageError tagged StageWatcher.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("stream source is nil")
	}
	if r.store == nil {
		return fmt.Errorf("store is nil")
	}

	r.logger.Info("pipeline started")
	for {
		r.setState(StateListening)
		item, err := r.source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.setState(StateStopped)
				r.logger.Info("stream ended", zap.Uint64("persisted", r.Persisted()))
				return nil
			}
			if ctx.Err() != nil {
				return r.interrupted(ctx)
			}
			if errors.Is(err, stream.ErrDecode) {
				r.setState(StateDecoding)
				return r.fail(&StageError{Stage: StageDecode, Err: err})
			}
			return r.fail(&StageError{Stage: StageStreamRead, Err: err})
		}
		r.metrics.IncLogsReceived()

		r.setState(StateDecoding)
		if item.Event == nil {
			return r.fail(&StageError{Stage: StageDecode, Err: fmt.Errorf("tx %s index %d: no event", item.Envelope.TxHash.Hex(), item.Envelope.LogIndex)})
		}

		r.setState(StatePersisting)
		if err := r.persist(ctx, item); err != nil {
			if ctx.Err() != nil {
				return r.interrupted(ctx)
			}
			return r.fail(err.(*StageError))
		}
	}
}

func (r *Runner) persist(ctx context.Context, item model.LogItem) error {
	start := time.Now()
	stage := StageEnvelopeInsert

	err := r.store.WithTx(ctx, func(w storage.LogWriter) error {
		id, err := w.InsertEnvelope(ctx, item.Envelope)
		if err != nil {
			return err
		}
		stage = StagePayloadInsert
		if err := r.insertPayload(ctx, w, id, item.Event); err != nil {
			return err
		}
		stage = StageCommit
		return nil
	})
	if err != nil {
		return &StageError{Stage: stage, Err: fmt.Errorf("tx %s index %d: %w", item.Envelope.TxHash.Hex(), item.Envelope.LogIndex, err)}
	}

	kind := item.Event.Kind()
	if other, ok := item.Event.(model.OtherEvent); ok {
		r.metrics.IncSkipped(other.Name)
	}
	r.metrics.RecordPersisted(string(kind), time.Since(start).Seconds())
	r.persisted.Add(1)

	r.logger.Debug("log persisted",
		zap.String("event", string(kind)),
		zap.String("tx", item.Envelope.TxHash.Hex()),
		zap.Uint64("block", item.Envelope.BlockNumber),
		zap.Uint("index", item.Envelope.LogIndex),
	)
	return nil
}

// insertPayload writes the payload row for the event's variant. OtherEvent has no
// payload table; its envelope alone records the log.
func (r *Runner) insertPayload(ctx context.Context, w storage.LogWriter, id model.EnvelopeID, event model.Event) error {
	switch ev := event.(type) {
	case model.SwapEvent:
		return w.InsertSwap(ctx, id, ev)
	case model.MintEvent:
		return w.InsertMint(ctx, id, ev)
	case model.BurnEvent:
		return w.InsertBurn(ctx, id, ev)
	case model.FlashEvent:
		return w.InsertFlash(ctx, id, ev)
	case model.OtherEvent:
		r.logger.Debug("no payload for event",
			zap.String("name", ev.Name),
			zap.String("topic0", ev.Topic0.Hex()),
		)
		return nil
	default:
		return fmt.Errorf("unsupported event type %T", event)
	}
}

func (r *Runner) fail(err *StageError) error {
	r.setState(StateFailed)
	r.metrics.IncFailure(string(err.Stage))
	return err
}

func (r *Runner) interrupted(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		r.setState(StateStopped)
		r.logger.Info("pipeline stopped", zap.Uint64("persisted", r.Persisted()))
		return ctx.Err()
	}
	return r.fail(&StageError{Stage: StageWatcher, Err: cause})
}
