package evm

import (
	"context"
	"strings"
	"sync"
)

// walletLocks serializes transaction submission per sender address, from
// the nonce fetch until the broadcast.
type walletLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newWalletLocks() *walletLocks {
	return &walletLocks{locks: map[string]chan struct{}{}}
}

// acquire blocks until address is free or ctx is done. The returned
// function releases the lock and must be called exactly once.
func (w *walletLocks) acquire(ctx context.Context, address string) (func(), error) {
	key := strings.ToLower(address)

	w.mu.Lock()
	lock, ok := w.locks[key]
	if !ok {
		lock = make(chan struct{}, 1)
		w.locks[key] = lock
	}
	w.mu.Unlock()

	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
