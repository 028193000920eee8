package stream

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ethLogs/internal/model"
)

var pool = common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640")

// fakeSubscriber pushes logs into the subscription channel and fails with failErr
// once all logs are delivered, if set.
type fakeSubscriber struct {
	logs    []types.Log
	failErr error
	subErr  error
}

func (f *fakeSubscriber) SubscribePoolLogs(_ context.Context, addr common.Address, ch chan<- types.Log) (ethereum.Subscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		for _, log := range f.logs {
			select {
			case ch <- log:
			case <-quit:
				return nil
			}
		}
		if f.failErr != nil {
			return f.failErr
		}
		<-quit
		return nil
	}), nil
}

type stubDecoder struct {
	fail common.Hash
}

func (d stubDecoder) Decode(log types.Log) (model.Event, error) {
	if log.TxHash == d.fail {
		return nil, errors.New("bad data")
	}
	return model.OtherEvent{Name: "Stub"}, nil
}

func testLog(tx string, index uint, removed bool) types.Log {
	return types.Log{
		Address:     pool,
		Topics:      []common.Hash{common.HexToHash("0x01")},
		TxHash:      common.HexToHash(tx),
		BlockNumber: 100,
		Index:       index,
		Removed:     removed,
	}
}

func nextWithTimeout(t *testing.T, src Source) (model.LogItem, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return src.Next(ctx)
}

func TestSubscriptionDeliversInOrder(t *testing.T) {
	sub, err := Subscribe(context.Background(), &fakeSubscriber{
		logs: []types.Log{
			testLog("0xa1", 0, false),
			testLog("0xa1", 1, true),
			testLog("0xa2", 3, false),
		},
	}, pool, stubDecoder{}, 4, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer sub.Close()

	first, err := nextWithTimeout(t, sub)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xa1"), first.Envelope.TxHash)
	assert.Equal(t, uint(0), first.Envelope.LogIndex)
	assert.Equal(t, model.KindOther, first.Event.Kind())

	second, err := nextWithTimeout(t, sub)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xa2"), second.Envelope.TxHash, "removed log must be skipped")
	assert.Equal(t, uint(3), second.Envelope.LogIndex)
}

func TestSubscriptionDecodeError(t *testing.T) {
	bad := common.HexToHash("0xbad")
	sub, err := Subscribe(context.Background(), &fakeSubscriber{
		logs: []types.Log{testLog("0xbad", 7, false)},
	}, pool, stubDecoder{fail: bad}, 1, nil)
	require.NoError(t, err)
	defer sub.Close()

	item, err := nextWithTimeout(t, sub)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, bad, item.Envelope.TxHash)
	assert.Nil(t, item.Event)
}

func TestSubscriptionTransportError(t *testing.T) {
	dropped := errors.New("websocket closed")
	sub, err := Subscribe(context.Background(), &fakeSubscriber{failErr: dropped}, pool, stubDecoder{}, 1, nil)
	require.NoError(t, err)
	defer sub.Close()

	_, err = nextWithTimeout(t, sub)
	assert.ErrorIs(t, err, dropped)
	assert.NotErrorIs(t, err, ErrDecode)
}

func TestSubscriptionCloseAndCancel(t *testing.T) {
	sub, err := Subscribe(context.Background(), &fakeSubscriber{}, pool, stubDecoder{}, 1, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	sub.Close()
	sub.Close()
	_, err = nextWithTimeout(t, sub)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSubscribeFailure(t *testing.T) {
	_, err := Subscribe(context.Background(), &fakeSubscriber{subErr: errors.New("notifications not supported")}, pool, stubDecoder{}, 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscribe pool logs")
}

func TestSliceSource(t *testing.T) {
	items := []model.LogItem{
		{Envelope: model.LogEnvelope{LogIndex: 1}, Event: model.SwapEvent{}},
		{Envelope: model.LogEnvelope{LogIndex: 2}, Event: model.OtherEvent{}},
	}
	src := NewSliceSource(items...)

	for _, want := range items {
		got, err := src.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want.Envelope.LogIndex, got.Envelope.LogIndex)
	}
	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
