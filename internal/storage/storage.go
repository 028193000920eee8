package storage

import (
	"context"

	"ethLogs/internal/model"
)

// LogWriter persists one observed log. Payload inserts must reference an envelope
// returned by InsertEnvelope on the same writer.
type LogWriter interface {
	InsertEnvelope(ctx context.Context, env model.LogEnvelope) (model.EnvelopeID, error)
	InsertSwap(ctx context.Context, id model.EnvelopeID, ev model.SwapEvent) error
	InsertMint(ctx context.Context, id model.EnvelopeID, ev model.MintEvent) error
	InsertBurn(ctx context.Context, id model.EnvelopeID, ev model.BurnEvent) error
	InsertFlash(ctx context.Context, id model.EnvelopeID, ev model.FlashEvent) error
}

// Store scopes writes to a transaction. If fn returns an error nothing it wrote is kept.
type Store interface {
	WithTx(ctx context.Context, fn func(LogWriter) error) error
}
