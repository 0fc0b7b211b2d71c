package soltx

import (
	"github.com/pkg/errors"
)

const (
	// VersionLegacy marks a pre-versioning message.
	VersionLegacy = -1
	// versionedFlag is set on the first message byte of versioned messages.
	versionedFlag = 0x80

	pubkeyLen    = 32
	blockhashLen = 32
)

// MessageHeader describes how the account key list splits into signer and
// read-only sections.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// Instruction references program and accounts by index into the account key
// list.
type Instruction struct {
	ProgramIDIndex uint8
	AccountIndexes []uint8
	Data           []byte
}

// AddressTableLookup loads extra accounts from an on-chain lookup table
// (versioned messages only).
type AddressTableLookup struct {
	AccountKey      [pubkeyLen]byte
	WritableIndexes []uint8
	ReadonlyIndexes []uint8
}

// Message is the signed payload of a transaction. Version is VersionLegacy
// or the version number carried on the wire (only v0 is supported). The
// format is resolved once at parse time, not re-detected downstream.
type Message struct {
	Version             int
	Header              MessageHeader
	AccountKeys         [][pubkeyLen]byte
	RecentBlockhash     [blockhashLen]byte
	Instructions        []Instruction
	AddressTableLookups []AddressTableLookup
}

func parseMessage(r *reader) (*Message, error) {
	first, err := r.readByte()
	if err != nil {
		return nil, err
	}

	msg := &Message{Version: VersionLegacy}
	if first&versionedFlag != 0 {
		msg.Version = int(first &^ versionedFlag)
		first, err = r.readByte()
		if err != nil {
			return nil, err
		}
	}

	msg.Header = MessageHeader{NumRequiredSignatures: first}
	if msg.Header.NumReadonlySignedAccounts, err = r.readByte(); err != nil {
		return nil, err
	}
	if msg.Header.NumReadonlyUnsignedAccounts, err = r.readByte(); err != nil {
		return nil, err
	}

	numKeys, err := readShortvecLen(r)
	if err != nil {
		return nil, err
	}
	msg.AccountKeys = make([][pubkeyLen]byte, numKeys)
	for i := range msg.AccountKeys {
		raw, err := r.readBytes(pubkeyLen)
		if err != nil {
			return nil, err
		}
		copy(msg.AccountKeys[i][:], raw)
	}

	hash, err := r.readBytes(blockhashLen)
	if err != nil {
		return nil, err
	}
	copy(msg.RecentBlockhash[:], hash)

	numInstructions, err := readShortvecLen(r)
	if err != nil {
		return nil, err
	}
	msg.Instructions = make([]Instruction, numInstructions)
	for i := range msg.Instructions {
		ins, err := parseInstruction(r)
		if err != nil {
			return nil, err
		}
		msg.Instructions[i] = ins
	}

	if msg.Version != VersionLegacy {
		numLookups, err := readShortvecLen(r)
		if err != nil {
			return nil, err
		}
		msg.AddressTableLookups = make([]AddressTableLookup, numLookups)
		for i := range msg.AddressTableLookups {
			lookup, err := parseLookup(r)
			if err != nil {
				return nil, err
			}
			msg.AddressTableLookups[i] = lookup
		}
	}

	return msg, nil
}

func parseInstruction(r *reader) (Instruction, error) {
	var ins Instruction
	var err error

	if ins.ProgramIDIndex, err = r.readByte(); err != nil {
		return ins, err
	}

	numAccounts, err := readShortvecLen(r)
	if err != nil {
		return ins, err
	}
	accounts, err := r.readBytes(numAccounts)
	if err != nil {
		return ins, err
	}
	ins.AccountIndexes = append([]uint8(nil), accounts...)

	dataLen, err := readShortvecLen(r)
	if err != nil {
		return ins, err
	}
	data, err := r.readBytes(dataLen)
	if err != nil {
		return ins, err
	}
	ins.Data = append([]byte(nil), data...)

	return ins, nil
}

func parseLookup(r *reader) (AddressTableLookup, error) {
	var lookup AddressTableLookup

	key, err := r.readBytes(pubkeyLen)
	if err != nil {
		return lookup, err
	}
	copy(lookup.AccountKey[:], key)

	numWritable, err := readShortvecLen(r)
	if err != nil {
		return lookup, err
	}
	writable, err := r.readBytes(numWritable)
	if err != nil {
		return lookup, err
	}
	lookup.WritableIndexes = append([]uint8(nil), writable...)

	numReadonly, err := readShortvecLen(r)
	if err != nil {
		return lookup, err
	}
	readonly, err := r.readBytes(numReadonly)
	if err != nil {
		return lookup, err
	}
	lookup.ReadonlyIndexes = append([]uint8(nil), readonly...)

	return lookup, nil
}

// Serialize encodes the message to wire bytes. These are the exact bytes
// that get signed.
func (m *Message) Serialize() []byte {
	out := make([]byte, 0, 256)

	if m.Version != VersionLegacy {
		out = append(out, versionedFlag|byte(m.Version))
	}

	out = append(out,
		m.Header.NumRequiredSignatures,
		m.Header.NumReadonlySignedAccounts,
		m.Header.NumReadonlyUnsignedAccounts)

	out = appendShortvecLen(out, len(m.AccountKeys))
	for i := range m.AccountKeys {
		out = append(out, m.AccountKeys[i][:]...)
	}

	out = append(out, m.RecentBlockhash[:]...)

	out = appendShortvecLen(out, len(m.Instructions))
	for _, ins := range m.Instructions {
		out = append(out, ins.ProgramIDIndex)
		out = appendShortvecLen(out, len(ins.AccountIndexes))
		out = append(out, ins.AccountIndexes...)
		out = appendShortvecLen(out, len(ins.Data))
		out = append(out, ins.Data...)
	}

	if m.Version != VersionLegacy {
		out = appendShortvecLen(out, len(m.AddressTableLookups))
		for _, lookup := range m.AddressTableLookups {
			out = append(out, lookup.AccountKey[:]...)
			out = appendShortvecLen(out, len(lookup.WritableIndexes))
			out = append(out, lookup.WritableIndexes...)
			out = appendShortvecLen(out, len(lookup.ReadonlyIndexes))
			out = append(out, lookup.ReadonlyIndexes...)
		}
	}

	return out
}

// signerIndex returns the position of pubkey within the signer section of
// the account keys, or an error when pubkey is not a required signer.
func (m *Message) signerIndex(pubkey [pubkeyLen]byte) (int, error) {
	n := int(m.Header.NumRequiredSignatures)
	if n > len(m.AccountKeys) {
		return 0, errors.New("message header requires more signatures than account keys")
	}
	for i := 0; i < n; i++ {
		if m.AccountKeys[i] == pubkey {
			return i, nil
		}
	}
	return 0, errors.New("wallet is not a required signer of this transaction")
}
