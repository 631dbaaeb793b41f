// Package locker serializes per-challenge aggregate updates. Two
// implementations: a redis lock shared across instances, and an
// in-process sharded mutex for single-instance or redis-less deploys.
// Either way the storage layer's versioned upsert remains the
// correctness backstop; the lock only bounds contention.
package locker

import (
	"context"
	"hash/fnv"
	"sync"
)

// Locker acquires an exclusive lock for a key and returns a release
// function. Acquire blocks until the lock is held or ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

const mutexShards = 64

// KeyedMutex is an in-process Locker: keys hash onto a fixed set of
// mutex shards.
type KeyedMutex struct {
	shards [mutexShards]sync.Mutex
}

// NewKeyedMutex creates an in-process locker.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Acquire locks the shard for key. The ctx is accepted for interface
// symmetry; in-process mutexes are held briefly enough that blocking
// on them is acceptable.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	shard := &m.shards[shardIndex(key)]
	shard.Lock()
	return shard.Unlock, nil
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % mutexShards
}
