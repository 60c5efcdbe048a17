package types

import "context"

// Wallet is a vault entry as seen by callers. The key never leaves the vault
// except inside a signing frame.
type Wallet struct {
	ID      string
	Address string
	Network string
}

// Vault provides key material for signing.
type Vault interface {
	// PrivateKey returns a copy of the 32-byte secp256k1 key. Callers zero
	// the slice after use.
	PrivateKey(ctx context.Context, walletID string) ([]byte, error)
	// WalletAddress returns the checksummed address of a wallet.
	WalletAddress(ctx context.Context, walletID string) (string, error)
}

// WalletStore is a Vault that can also persist new wallets.
type WalletStore interface {
	Vault
	// StoreWallet saves a new key under walletID. It fails with
	// ErrWalletExists when the id is taken.
	StoreWallet(ctx context.Context, walletID, address string, key []byte) error
	// HasWallet reports whether walletID is present.
	HasWallet(ctx context.Context, walletID string) (bool, error)
}
