package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EnvelopeID is the generated identifier of a persisted ethereum_logs row.
type EnvelopeID int64

// LogEnvelope is the chain metadata of one observed contract log.
type LogEnvelope struct {
	TxHash      common.Hash
	BlockNumber uint64
	Address     common.Address
	// LogIndex is kept for tracing only; it is not persisted.
	LogIndex uint
	// Timestamp is assigned by the store on insert.
	Timestamp time.Time
}

// EnvelopeFromLog builds the envelope for a raw chain log.
func EnvelopeFromLog(log types.Log) LogEnvelope {
	return LogEnvelope{
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
		Address:     log.Address,
		LogIndex:    log.Index,
	}
}
