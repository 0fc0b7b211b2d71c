// Package soltx encodes and decodes Solana transactions on the wire, legacy
// and v0 versioned formats. The format is resolved once at parse time into a
// tagged Message; nothing downstream re-detects it.
package soltx

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/kazusol/soltrader/internal/entity"
)

const signatureLen = 64

// Transaction is a parsed wire transaction: a compact array of signatures
// followed by the message.
type Transaction struct {
	Signatures [][signatureLen]byte
	Message    *Message
}

// Parse decodes wire bytes into a Transaction, attempting versioned decoding
// first (the version flag lives on the first message byte). Only legacy and
// v0 messages are representable; any other version is unsupported.
func Parse(raw []byte) (*Transaction, error) {
	r := &reader{buf: raw}

	numSigs, err := readShortvecLen(r)
	if err != nil {
		return nil, errors.Wrap(err, "read signature count")
	}

	tx := &Transaction{Signatures: make([][signatureLen]byte, numSigs)}
	for i := range tx.Signatures {
		sig, err := r.readBytes(signatureLen)
		if err != nil {
			return nil, errors.Wrap(err, "read signature")
		}
		copy(tx.Signatures[i][:], sig)
	}

	msg, err := parseMessage(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse message")
	}
	if msg.Version != VersionLegacy && msg.Version != 0 {
		return nil, errors.Wrapf(entity.ErrUnsupportedTransactionFormat,
			"message version %d", msg.Version)
	}
	if r.remaining() != 0 {
		return nil, errors.Errorf("%d trailing bytes after message", r.remaining())
	}

	tx.Message = msg
	return tx, nil
}

// Serialize encodes the transaction back to wire bytes.
func (t *Transaction) Serialize() []byte {
	out := appendShortvecLen(nil, len(t.Signatures))
	for i := range t.Signatures {
		out = append(out, t.Signatures[i][:]...)
	}
	return append(out, t.Message.Serialize()...)
}

// DowngradeToLegacy converts a v0 message to the legacy representation.
// Possible only when the message loads no accounts from lookup tables; a
// versioned transaction that cannot be downgraded is a terminal failure,
// never silently dropped.
func (t *Transaction) DowngradeToLegacy() error {
	if t.Message.Version == VersionLegacy {
		return nil
	}
	if len(t.Message.AddressTableLookups) > 0 {
		return errors.Wrap(entity.ErrUnsupportedTransactionFormat,
			"versioned transaction uses address table lookups")
	}
	t.Message.Version = VersionLegacy
	t.Message.AddressTableLookups = nil
	return nil
}

// SetRecentBlockhash stamps the message with a fresh blockhash. Existing
// signatures are cleared since they signed the old message bytes.
func (t *Transaction) SetRecentBlockhash(blockhashBase58 string) error {
	raw, err := base58.Decode(blockhashBase58)
	if err != nil {
		return errors.Wrap(err, "decode blockhash")
	}
	if len(raw) != blockhashLen {
		return errors.Errorf("blockhash must be %d bytes, got %d", blockhashLen, len(raw))
	}
	copy(t.Message.RecentBlockhash[:], raw)
	t.Signatures = make([][signatureLen]byte, t.Message.Header.NumRequiredSignatures)
	return nil
}

// Sign signs the serialized message with key and places the signature at the
// signer's slot. The public key must be a required signer of the message.
func (t *Transaction) Sign(key ed25519.PrivateKey) error {
	var pubkey [pubkeyLen]byte
	copy(pubkey[:], key.Public().(ed25519.PublicKey))

	idx, err := t.Message.signerIndex(pubkey)
	if err != nil {
		return err
	}

	if len(t.Signatures) < int(t.Message.Header.NumRequiredSignatures) {
		sigs := make([][signatureLen]byte, t.Message.Header.NumRequiredSignatures)
		copy(sigs, t.Signatures)
		t.Signatures = sigs
	}

	sig := ed25519.Sign(key, t.Message.Serialize())
	copy(t.Signatures[idx][:], sig)
	return nil
}

// Signature returns the transaction identifier: the base58 fee-payer
// signature.
func (t *Transaction) Signature() string {
	if len(t.Signatures) == 0 {
		return ""
	}
	return base58.Encode(t.Signatures[0][:])
}
