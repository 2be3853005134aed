package runlog

import "context"

// RecordWriter persists a finalized record under its key, replacing any
// earlier record with the same key.
type RecordWriter interface {
	Put(ctx context.Context, key Key, record *Record) error
}

// RecordReader loads persisted records. Get returns ErrMissingRun when the
// key has no record and ErrMalformedRecord when the stored record is invalid.
type RecordReader interface {
	Get(ctx context.Context, key Key) (*Record, error)
	List(ctx context.Context) ([]Key, error)
}

// Repository is the full storage contract implemented by FileRepository and
// SQLRepository.
type Repository interface {
	RecordWriter
	RecordReader
	Delete(ctx context.Context, key Key) error
}
