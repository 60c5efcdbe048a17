package vault

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const indexFile = "wallets.json"

// Keystore keeps keys as scrypt-encrypted Web3 Secret Storage files in a
// directory, with a JSON index from wallet id to address.
type Keystore struct {
	dir        string
	passphrase string
	ks         *keystore.KeyStore
	logger     *logrus.Logger

	mu    sync.RWMutex
	index map[string]indexEntry
}

type indexEntry struct {
	Address string `json:"address"`
	File    string `json:"file"`
}

// KeystoreOption configures a Keystore.
type KeystoreOption func(*keystoreOptions)

type keystoreOptions struct {
	scryptN, scryptP int
}

// WithLightScrypt uses the light scrypt parameters, for tests and
// interactive tools.
func WithLightScrypt() KeystoreOption {
	return func(o *keystoreOptions) {
		o.scryptN = keystore.LightScryptN
		o.scryptP = keystore.LightScryptP
	}
}

// NewKeystore opens or creates a keystore vault in dir.
//
// Parameters:
// - dir: the vault directory; key files live in dir/keys.
// - passphrase: the passphrase every key file is encrypted with.
// - logger: the logger for logging events.
// - opts: optional settings.
//
// Returns:
// - *Keystore: the vault.
// - error: an error if the directory or the index cannot be read.
func NewKeystore(dir, passphrase string, logger *logrus.Logger, opts ...KeystoreOption) (*Keystore, error) {
	if passphrase == "" {
		return nil, errors.New("keystore passphrase is required")
	}

	o := keystoreOptions{scryptN: keystore.StandardScryptN, scryptP: keystore.StandardScryptP}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create vault directory")
	}

	k := &Keystore{
		dir:        dir,
		passphrase: passphrase,
		ks:         keystore.NewKeyStore(filepath.Join(dir, "keys"), o.scryptN, o.scryptP),
		logger:     logger,
		index:      map[string]indexEntry{},
	}

	raw, err := os.ReadFile(filepath.Join(dir, indexFile))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.Wrap(err, "failed to read wallet index")
	default:
		if err := json.Unmarshal(raw, &k.index); err != nil {
			return nil, errors.Wrap(err, "failed to decode wallet index")
		}
	}

	logger.WithFields(logrus.Fields{
		"dir":     dir,
		"wallets": len(k.index),
	}).Info("Keystore vault opened")

	return k, nil
}

// StoreWallet encrypts key into a new key file and records it under walletID.
func (k *Keystore) StoreWallet(_ context.Context, walletID, address string, key []byte) error {
	checksummed, err := checkKey(walletID, address, key)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.index[walletID]; ok {
		return errors.Wrapf(dexerrors.ErrWalletExists, "wallet %s", walletID)
	}

	priv, err := crypto.ToECDSA(key)
	if err != nil {
		return dexerrors.Encoding("private key", "", err.Error())
	}
	defer priv.D.SetInt64(0)

	account, err := k.ks.ImportECDSA(priv, k.passphrase)
	if err != nil && !errors.Is(err, keystore.ErrAccountAlreadyExists) {
		return errors.Wrap(err, "failed to import key")
	}
	if err != nil {
		account, err = k.ks.Find(accounts.Account{Address: common.HexToAddress(checksummed)})
		if err != nil {
			return errors.Wrap(err, "failed to find key file")
		}
	}

	k.index[walletID] = indexEntry{Address: checksummed, File: filepath.Base(account.URL.Path)}
	if err := k.saveIndex(); err != nil {
		delete(k.index, walletID)
		return err
	}

	k.logger.WithFields(logrus.Fields{
		"wallet":  walletID,
		"address": checksummed,
		"file":    k.index[walletID].File,
	}).Info("Wallet stored")

	return nil
}

// HasWallet reports whether walletID is in the index.
func (k *Keystore) HasWallet(_ context.Context, walletID string) (bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.index[walletID]
	return ok, nil
}

// WalletAddress returns the checksummed address of walletID.
func (k *Keystore) WalletAddress(_ context.Context, walletID string) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	entry, ok := k.index[walletID]
	if !ok {
		return "", errors.Wrapf(dexerrors.ErrWalletNotFound, "wallet %s", walletID)
	}
	return entry.Address, nil
}

// PrivateKey decrypts the key file of walletID and returns the raw key.
func (k *Keystore) PrivateKey(_ context.Context, walletID string) ([]byte, error) {
	k.mu.RLock()
	entry, ok := k.index[walletID]
	k.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(dexerrors.ErrWalletNotFound, "wallet %s", walletID)
	}

	raw, err := os.ReadFile(filepath.Join(k.dir, "keys", entry.File))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read key file")
	}

	decrypted, err := keystore.DecryptKey(raw, k.passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt key file")
	}
	defer decrypted.PrivateKey.D.SetInt64(0)

	if codec.Address(decrypted.Address).Hex() != entry.Address {
		return nil, errors.Errorf("key file of wallet %s holds a different address", walletID)
	}

	return crypto.FromECDSA(decrypted.PrivateKey), nil
}

// saveIndex writes the index atomically. Callers hold k.mu.
func (k *Keystore) saveIndex() error {
	raw, err := json.MarshalIndent(k.index, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode wallet index")
	}

	tmp := filepath.Join(k.dir, indexFile+".tmp")
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "failed to write wallet index")
	}
	return errors.Wrap(os.Rename(tmp, filepath.Join(k.dir, indexFile)), "failed to replace wallet index")
}
