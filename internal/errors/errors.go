// Package errors defines the typed error kinds used across warcidx:
// corpus-level skips, worker-fatal failures, codec structural errors,
// configuration errors and memory exhaustion.
package errors

import (
	"fmt"
	"time"
)

// Kind names the error categories of this package. The error types
// below do not carry a Kind; callers branch with errors.Is/errors.As
// instead (cmd/indexer matches ErrMemoryExhausted for its exit code).
type Kind string

const (
	KindCorpus  Kind = "corpus"
	KindWorker  Kind = "worker"
	KindCodec   Kind = "codec"
	KindConfig  Kind = "config"
	KindMemory  Kind = "memory"
)

// ErrMemoryExhausted is the sentinel both CLIs match against (via
// errors.Is) to decide the exit-code-1 path; every *MemoryError
// constructed by NewMemoryError satisfies it regardless of its own
// Context/Timestamp fields, per the Is method below.
var ErrMemoryExhausted = &MemoryError{}

// CorpusError represents a recoverable per-record or per-file corpus
// problem: the caller logs it and continues (the file's cursor still
// advances past the bad record).
type CorpusError struct {
	Path       string
	Offset     int64
	Underlying error
	Timestamp  time.Time
}

func NewCorpusError(path string, offset int64, err error) *CorpusError {
	return &CorpusError{Path: path, Offset: offset, Underlying: err, Timestamp: time.Now()}
}

func (e *CorpusError) Error() string {
	return fmt.Sprintf("corpus: malformed record in %s at offset %d: %v", e.Path, e.Offset, e.Underlying)
}

func (e *CorpusError) Unwrap() error { return e.Underlying }

// WorkerError represents a fatal failure during a shard worker's
// streamize/tokenize/index/flush sequence. The partition that produced
// it must be rolled back and requeued by the coordinator.
type WorkerError struct {
	PartitionID int
	Path        string
	Operation   string
	Underlying  error
	Timestamp   time.Time
}

func NewWorkerError(partitionID int, path, op string, err error) *WorkerError {
	return &WorkerError{PartitionID: partitionID, Path: path, Operation: op, Underlying: err, Timestamp: time.Now()}
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker: partition %d operation %q failed for %s: %v", e.PartitionID, e.Operation, e.Path, e.Underlying)
}

func (e *WorkerError) Unwrap() error { return e.Underlying }

// CodecError represents a structural problem reading or writing the
// line-oriented inverted-index format: a partial line at EOF, a
// posting missing its comma, a non-integer docid. Fatal to the current
// operation.
type CodecError struct {
	Path       string
	Reason     string
	Underlying error
}

func NewCodecError(path, reason string, err error) *CodecError {
	return &CodecError{Path: path, Reason: reason, Underlying: err}
}

func (e *CodecError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("codec: %s (%s): %v", e.Reason, e.Path, e.Underlying)
	}
	return fmt.Sprintf("codec: %s (%s)", e.Reason, e.Path)
}

func (e *CodecError) Unwrap() error { return e.Underlying }

// ConfigError represents a fatal startup configuration problem: a
// non-positive -m, or a corpus directory, queries file, index file or
// output path that cannot be opened or created. The flag checks in
// internal/config (unknown ranker type, missing value) return plain
// errors, not ConfigError.
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
}

func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Underlying: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: invalid value %q for %s: %v", e.Value, e.Field, e.Underlying)
}

func (e *ConfigError) Unwrap() error { return e.Underlying }

// MemoryError is the distinguished OS-reported-OOM condition. Processes
// exit with code 1 when this occurs.
type MemoryError struct {
	Context   string
	Timestamp time.Time
}

func NewMemoryError(context string) *MemoryError {
	return &MemoryError{Context: context, Timestamp: time.Now()}
}

func (e *MemoryError) Error() string {
	if e.Context == "" {
		return "memory exhaustion"
	}
	return fmt.Sprintf("memory exhaustion: %s", e.Context)
}

// Is reports any *MemoryError as matching ErrMemoryExhausted, so
// callers can branch with errors.Is(err, ErrMemoryExhausted) without
// caring about the specific Context/Timestamp of the instance raised.
func (e *MemoryError) Is(target error) bool {
	_, ok := target.(*MemoryError)
	return ok
}

// MultiError aggregates multiple non-nil errors, used when a coordinator
// run finishes with several corpus-level skips to report together.
type MultiError struct {
	Errors []error
}

func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred, first: %v", len(e.Errors), e.Errors[0])
}

func (e *MultiError) Unwrap() []error { return e.Errors }
