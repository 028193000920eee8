package indexer

import "fmt"

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageStreamRead     Stage = "stream_read"
	StageDecode         Stage = "decode"
	StageEnvelopeInsert Stage = "envelope_insert"
	StagePayloadInsert  Stage = "payload_insert"
	StageCommit         Stage = "commit"
	// StageWatcher marks a supervised watcher, such as the connection monitor, halting the pipeline.
	StageWatcher Stage = "watcher"
)

// StageError is returned by Runner.Run when the pipeline fails.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
