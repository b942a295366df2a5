// Package keylock serialises work per key. Locks are re-entrant within a
// context chain: a context returned by Acquire already holds its key, so a
// nested Acquire on the same key returns immediately.
package keylock

import (
	"context"
	"errors"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

// Locker acquires a lock on key. The returned context carries the lock and
// must be passed to nested work; release must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (context.Context, func(), error)
}

type heldKeysCtxKey struct{}

func holds(ctx context.Context, key string) bool {
	held, _ := ctx.Value(heldKeysCtxKey{}).(map[string]struct{})
	_, ok := held[key]
	return ok
}

func withHeld(ctx context.Context, key string) context.Context {
	prev, _ := ctx.Value(heldKeysCtxKey{}).(map[string]struct{})
	next := make(map[string]struct{}, len(prev)+1)
	for k := range prev {
		next[k] = struct{}{}
	}
	next[key] = struct{}{}
	return context.WithValue(ctx, heldKeysCtxKey{}, next)
}

func noop() {}
