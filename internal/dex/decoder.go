package dex

import (
	"github.com/ethereum/go-ethereum/core/types"

	"ethLogs/internal/model"
)

// Decoder turns a raw pool log into a typed event. Logs that are not one of the
// persisted variants decode to model.OtherEvent without error.
type Decoder interface {
	Decode(log types.Log) (model.Event, error)
}
