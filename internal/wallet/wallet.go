// Package wallet holds the trading keypair and signs provider-built
// transactions. It never constructs transaction instructions itself.
package wallet

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/kazusol/soltrader/internal/soltx"
)

// Wallet is an ed25519 keypair identified by its base58 public key.
type Wallet struct {
	key    ed25519.PrivateKey
	pubkey string
}

// New derives a wallet from a base58-encoded secret key: either the 64-byte
// secret||public form exported by Solana tooling or a bare 32-byte seed.
func New(secretBase58 string) (*Wallet, error) {
	raw, err := base58.Decode(secretBase58)
	if err != nil {
		return nil, errors.Wrap(err, "decode private key")
	}

	var key ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		key = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		key = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, errors.Errorf("private key must be %d or %d bytes, got %d",
			ed25519.PrivateKeySize, ed25519.SeedSize, len(raw))
	}

	pub := key.Public().(ed25519.PublicKey)
	return &Wallet{
		key:    key,
		pubkey: base58.Encode(pub),
	}, nil
}

// PublicKey returns the base58-encoded public key.
func (w *Wallet) PublicKey() string {
	return w.pubkey
}

// SignTransaction applies the wallet's signature to a parsed transaction.
func (w *Wallet) SignTransaction(tx *soltx.Transaction) error {
	return tx.Sign(w.key)
}
