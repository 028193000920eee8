package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"ethLogs/internal/dex"
	"ethLogs/internal/model"
)

// ErrDecode marks a log that arrived but could not be decoded.
var ErrDecode = errors.New("decode log")

// Source yields decoded pool logs in arrival order. Next returns io.EOF once the
// source is exhausted or closed.
type Source interface {
	Next(ctx context.Context) (model.LogItem, error)
}

// LogSubscriber opens a push subscription for one contract's logs.
type LogSubscriber interface {
	SubscribePoolLogs(ctx context.Context, pool common.Address, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Subscription is a Source backed by a live log subscription.
type Subscription struct {
	logger  *zap.Logger
	decoder dex.Decoder
	logs    chan types.Log
	sub     ethereum.Subscription

	closeOnce sync.Once
}

// Subscribe starts streaming pool logs. capacity bounds how many undelivered logs are buffered.
func Subscribe(ctx context.Context, subscriber LogSubscriber, pool common.Address, decoder dex.Decoder, capacity int, logger *zap.Logger) (*Subscription, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = 1
	}
	logs := make(chan types.Log, capacity)
	sub, err := subscriber.SubscribePoolLogs(ctx, pool, logs)
	if err != nil {
		return nil, fmt.Errorf("subscribe pool logs: %w", err)
	}
	return &Subscription{
		logger:  logger,
		decoder: decoder,
		logs:    logs,
		sub:     sub,
	}, nil
}

// Next blocks until the next log arrives. Logs removed by a reorg are skipped.
func (s *Subscription) Next(ctx context.Context) (model.LogItem, error) {
	for {
		select {
		case <-ctx.Done():
			return model.LogItem{}, ctx.Err()
		case log := <-s.logs:
			if log.Removed {
				s.logger.Debug("skipping removed log",
					zap.String("tx", log.TxHash.Hex()),
					zap.Uint("index", log.Index),
				)
				continue
			}
			return decodeItem(s.decoder, log)
		case err, ok := <-s.sub.Err():
			if !ok || err == nil {
				return model.LogItem{}, io.EOF
			}
			return model.LogItem{}, fmt.Errorf("log subscription: %w", err)
		}
	}
}

// Close unsubscribes. Subsequent calls to Next return io.EOF.
func (s *Subscription) Close() {
	s.closeOnce.Do(s.sub.Unsubscribe)
}

func decodeItem(decoder dex.Decoder, log types.Log) (model.LogItem, error) {
	item := model.LogItem{Envelope: model.EnvelopeFromLog(log)}
	event, err := decoder.Decode(log)
	if err != nil {
		return item, fmt.Errorf("%w: tx %s index %d: %w", ErrDecode, log.TxHash.Hex(), log.Index, err)
	}
	item.Event = event
	return item, nil
}

// SliceSource replays a fixed list of items.
type SliceSource struct {
	mu    sync.Mutex
	items []model.LogItem
}

// NewSliceSource returns a Source over items.
func NewSliceSource(items ...model.LogItem) *SliceSource {
	return &SliceSource{items: items}
}

// Next returns the next item, or io.EOF when none remain.
func (s *SliceSource) Next(ctx context.Context) (model.LogItem, error) {
	if err := ctx.Err(); err != nil {
		return model.LogItem{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return model.LogItem{}, io.EOF
	}
	item := s.items[0]
	s.items = s.items[1:]
	return item, nil
}
