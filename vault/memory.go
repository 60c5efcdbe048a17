// Package vault stores wallet keys for signing. Keys are copied in and out
// so callers can zero their slices after use.
package vault

import (
	"context"
	"strings"
	"sync"

	"github.com/ClipFinance/dex-engine/chains/evm/signer"
	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// NewWalletID returns a random wallet id.
func NewWalletID() string {
	return uuid.NewString()
}

type memoryWallet struct {
	address string
	key     []byte
}

// Memory is a process-local wallet store.
type Memory struct {
	mu      sync.RWMutex
	wallets map[string]memoryWallet
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{wallets: map[string]memoryWallet{}}
}

// StoreWallet saves a copy of key under walletID.
func (m *Memory) StoreWallet(_ context.Context, walletID, address string, key []byte) error {
	checksummed, err := checkKey(walletID, address, key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.wallets[walletID]; ok {
		return errors.Wrapf(dexerrors.ErrWalletExists, "wallet %s", walletID)
	}
	m.wallets[walletID] = memoryWallet{
		address: checksummed,
		key:     append([]byte(nil), key...),
	}
	return nil
}

// HasWallet reports whether walletID is present.
func (m *Memory) HasWallet(_ context.Context, walletID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.wallets[walletID]
	return ok, nil
}

// PrivateKey returns a copy of the key of walletID.
func (m *Memory) PrivateKey(_ context.Context, walletID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.wallets[walletID]
	if !ok {
		return nil, errors.Wrapf(dexerrors.ErrWalletNotFound, "wallet %s", walletID)
	}
	return append([]byte(nil), w.key...), nil
}

// WalletAddress returns the checksummed address of walletID.
func (m *Memory) WalletAddress(_ context.Context, walletID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.wallets[walletID]
	if !ok {
		return "", errors.Wrapf(dexerrors.ErrWalletNotFound, "wallet %s", walletID)
	}
	return w.address, nil
}

// Wipe zeroes and drops every stored key.
func (m *Memory) Wipe() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, w := range m.wallets {
		for i := range w.key {
			w.key[i] = 0
		}
		delete(m.wallets, id)
	}
}

// checkKey validates a wallet id and verifies key belongs to address.
func checkKey(walletID, address string, key []byte) (string, error) {
	if strings.TrimSpace(walletID) == "" {
		return "", dexerrors.Encoding("wallet id", walletID, "must not be empty")
	}

	want, err := codec.ParseAddress(address)
	if err != nil {
		return "", err
	}
	got, err := signer.AddressFromKey(key)
	if err != nil {
		return "", err
	}
	if got != want {
		return "", errors.Errorf("key does not belong to address %s", want.Hex())
	}
	return want.Hex(), nil
}
