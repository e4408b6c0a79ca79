package domain

import "errors"

// Error taxonomy. None of these are fatal to the process; every failure is
// recovered locally and the conversation stays usable.
var (
	// ErrDecode marks a malformed or unreadable image. Processing of that
	// file is aborted and the user is informed.
	ErrDecode = errors.New("image decode failed")

	// ErrPrediction marks a scoring-engine failure or malformed output.
	ErrPrediction = errors.New("prediction failed")

	// ErrEmptyInput rejects a submission with no files and no text. No
	// state is mutated.
	ErrEmptyInput = errors.New("attach images or type a message")

	// ErrBatchInProgress rejects a submission while an earlier batch is
	// still being classified. Concurrent batches are not supported.
	ErrBatchInProgress = errors.New("a batch is already being processed")

	// ErrMissingFields marks a malformed explanation request. Callers must
	// correct the payload before retrying.
	ErrMissingFields = errors.New("missing required fields: label, advice, confidence")

	// ErrCancelled marks an explanation request superseded by a newer one.
	// Its resolution is discarded silently.
	ErrCancelled = errors.New("explanation request cancelled")

	// ErrNetwork marks a transport-level explanation failure.
	ErrNetwork = errors.New("explanation request failed to reach the server")

	// ErrRemote marks an upstream generation failure reported by the
	// explanation endpoint.
	ErrRemote = errors.New("explanation generation failed")

	// ErrEntryNotFound marks an update against an absent conversation
	// entry.
	ErrEntryNotFound = errors.New("conversation entry not found")
)
