// Package store defines the narrow key/value, set and list surface the
// indexer and searcher need from their backing store, plus an in-process
// implementation used for tests and the memory backend.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by single-key reads when the key is absent.
var ErrNotFound = errors.New("store: key not found")

// OpKind enumerates the write commands accepted by Exec.
type OpKind int

const (
	OpSet OpKind = iota
	OpDel
	OpSAdd
	OpSRem
	OpRPush
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "SET"
	case OpDel:
		return "DEL"
	case OpSAdd:
		return "SADD"
	case OpSRem:
		return "SREM"
	case OpRPush:
		return "RPUSH"
	default:
		return "UNKNOWN"
	}
}

// Op is a single write queued into a pipelined batch. Value is the string
// value for SET and the member for SADD, SREM and RPUSH; DEL ignores it.
type Op struct {
	Kind  OpKind
	Key   string
	Value string
}

// Lookup is the per-key outcome of GetMany. Err is set when that single
// entry failed; it never fails the rest of the batch.
type Lookup struct {
	Value string
	Found bool
	Err   error
}

// Store is implemented by the Redis client and by Memory.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	GetMany(ctx context.Context, keys []string) ([]Lookup, error)
	Set(ctx context.Context, key, value string) error
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	// Swap stores value and reports whether the key already existed.
	Swap(ctx context.Context, key, value string) (existed bool, err error)
	Incr(ctx context.Context, key string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)
	LRange(ctx context.Context, key string) ([]string, error)
	// Exec sends the ops as one round trip. There is no atomicity across
	// ops; an error reports the first failing command.
	Exec(ctx context.Context, ops []Op) error
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
