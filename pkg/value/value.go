package value

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dep2p/go-secureoverlay/pkg/crypto"
	"github.com/dep2p/go-secureoverlay/pkg/hash"
)

// Errors returned while decoding a Value from the wire.
var (
	ErrTruncated        = errors.New("value: truncated wire data")
	ErrUnknownFlags     = errors.New("value: reserved flag bits set")
	ErrMissingRecipient = errors.New("value: hasRecipient flag set but recipient absent")
)

// Flags marks which of the three orthogonal properties (spec §3) a Value
// carries: authenticity, confidentiality, and per-recipient addressing.
type Flags struct {
	Signed       bool
	Encrypted    bool
	HasRecipient bool
}

const (
	flagSigned       = 1 << 0
	flagEncrypted    = 1 << 1
	flagHasRecipient = 1 << 2
	flagKnownMask    = flagSigned | flagEncrypted | flagHasRecipient
)

func (f Flags) byte() byte {
	var b byte
	if f.Signed {
		b |= flagSigned
	}
	if f.Encrypted {
		b |= flagEncrypted
	}
	if f.HasRecipient {
		b |= flagHasRecipient
	}
	return b
}

func flagsFromByte(b byte) (Flags, error) {
	if b&^byte(flagKnownMask) != 0 {
		return Flags{}, ErrUnknownFlags
	}
	return Flags{
		Signed:       b&flagSigned != 0,
		Encrypted:    b&flagEncrypted != 0,
		HasRecipient: b&flagHasRecipient != 0,
	}, nil
}

// Value is the unit of storage on the overlay. A plain value carries Data
// in the clear; a signed value additionally carries Owner and Signature;
// an encrypted value replaces Data with Cypher and, when addressed to a
// specific peer, sets Recipient.
type Value struct {
	ID   uint64
	Type ID
	Seq  uint64

	Flags Flags

	Owner     crypto.PublicKey
	Recipient hash.InfoHash

	Data      []byte
	Cypher    []byte
	Signature []byte
}

// New builds a plain, unsigned, unencrypted value carrying data.
func New(typ ID, data []byte) *Value {
	return &Value{Type: typ, Data: data}
}

// GetToSign returns the canonical byte sequence covering everything
// authenticated — type, id, flags, owner id, recipient, data (spec §4.B)
// — as a length-tagged encoding (spec §9 Open Question, resolved in
// SPEC_FULL §3) so two implementations interoperate without guessing a
// field width.
func (v *Value) GetToSign() ([]byte, error) {
	var buf []byte

	var typBuf [2]byte
	binary.BigEndian.PutUint16(typBuf[:], uint16(v.Type))
	buf = append(buf, typBuf[:]...)

	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], v.ID)
	buf = append(buf, idBuf[:]...)

	buf = append(buf, v.Flags.byte())

	var ownerID []byte
	if v.Owner != nil {
		id, err := crypto.PublicKeyID(v.Owner)
		if err != nil {
			return nil, fmt.Errorf("value: owner id: %w", err)
		}
		ownerID = id.Bytes()
	}
	buf = crypto.WriteLenPrefixed(buf, ownerID)

	var recipient []byte
	if v.Flags.HasRecipient {
		recipient = v.Recipient.Bytes()
	}
	buf = crypto.WriteLenPrefixed(buf, recipient)

	buf = crypto.WriteLenPrefixed(buf, v.Data)

	return buf, nil
}

// GetToEncrypt returns getToSign() with the signature appended, so that
// decrypting the resulting ciphertext reconstructs a fully signed value
// (spec §4.B). This is what Overlay.encrypt feeds to the recipient's
// public key, and what Overlay.decrypt parses the plaintext back from.
func (v *Value) GetToEncrypt() ([]byte, error) {
	toSign, err := v.GetToSign()
	if err != nil {
		return nil, err
	}
	return crypto.WriteLenPrefixed(toSign, v.Signature), nil
}

// ParseSignedPlaintext reverses GetToEncrypt: it is used by decrypt() to
// rebuild the inner signed value recovered from an RSA-decrypted
// ciphertext. The returned value's Owner is left nil, since the plaintext
// carries only the owner's InfoHash, which is returned as ownerID;
// callers that need the full key resolve it via a certificate store
// keyed by that id, per spec §4.D.
func ParseSignedPlaintext(plain []byte, id uint64) (v *Value, ownerID hash.InfoHash, err error) {
	if len(plain) < 2+8+1 {
		return nil, hash.Zero, ErrTruncated
	}
	typ := ID(binary.BigEndian.Uint16(plain[0:2]))
	innerID := binary.BigEndian.Uint64(plain[2:10])
	flags, err := flagsFromByte(plain[10])
	if err != nil {
		return nil, hash.Zero, err
	}
	rest := plain[11:]

	ownerRaw, rest, err := crypto.ReadLenPrefixed(rest)
	if err != nil {
		return nil, hash.Zero, fmt.Errorf("value: owner field: %w", err)
	}
	if len(ownerRaw) > 0 {
		ownerID, err = hash.FromBytes(ownerRaw)
		if err != nil {
			return nil, hash.Zero, fmt.Errorf("value: owner id: %w", err)
		}
	}

	recipientRaw, rest, err := crypto.ReadLenPrefixed(rest)
	if err != nil {
		return nil, hash.Zero, fmt.Errorf("value: recipient field: %w", err)
	}

	data, rest, err := crypto.ReadLenPrefixed(rest)
	if err != nil {
		return nil, hash.Zero, fmt.Errorf("value: data field: %w", err)
	}

	sig, _, err := crypto.ReadLenPrefixed(rest)
	if err != nil {
		return nil, hash.Zero, fmt.Errorf("value: signature field: %w", err)
	}

	v = &Value{ID: id, Type: typ, Flags: flags, Data: data, Signature: sig}
	if innerID != 0 {
		v.ID = innerID
	}
	if flags.HasRecipient {
		rid, err := hash.FromBytes(recipientRaw)
		if err != nil {
			return nil, hash.Zero, fmt.Errorf("%w: %v", ErrMissingRecipient, err)
		}
		v.Recipient = rid
	}
	return v, ownerID, nil
}

// Pack serializes v for wire transmission and storage, per the two
// layouts in spec §6: a signed/plain value carries its owner key and
// data; an encrypted value carries only its recipient and cypher.
func (v *Value) Pack() ([]byte, error) {
	var buf []byte

	var typBuf [2]byte
	binary.BigEndian.PutUint16(typBuf[:], uint16(v.Type))
	buf = append(buf, typBuf[:]...)

	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], v.ID)
	buf = append(buf, idBuf[:]...)

	buf = append(buf, v.Flags.byte())

	if v.Flags.Encrypted {
		buf = append(buf, v.Recipient.Bytes()...)
		buf = crypto.WriteLenPrefixed(buf, v.Cypher)
		return buf, nil
	}

	var ownerRaw []byte
	if v.Owner != nil {
		raw, err := crypto.MarshalPublicKey(v.Owner)
		if err != nil {
			return nil, fmt.Errorf("value: marshal owner key: %w", err)
		}
		ownerRaw = raw
	}
	buf = crypto.WriteLenPrefixed(buf, ownerRaw)

	var recipient []byte
	if v.Flags.HasRecipient {
		recipient = v.Recipient.Bytes()
	}
	buf = crypto.WriteLenPrefixed(buf, recipient)

	buf = crypto.WriteLenPrefixed(buf, v.Data)
	buf = crypto.WriteLenPrefixed(buf, v.Signature)
	return buf, nil
}

// Unpack reverses Pack.
func Unpack(data []byte) (*Value, error) {
	if len(data) < 2+8+1 {
		return nil, ErrTruncated
	}
	v := &Value{}
	v.Type = ID(binary.BigEndian.Uint16(data[0:2]))
	v.ID = binary.BigEndian.Uint64(data[2:10])
	flags, err := flagsFromByte(data[10])
	if err != nil {
		return nil, err
	}
	v.Flags = flags
	rest := data[11:]

	if v.Flags.Encrypted {
		if len(rest) < hash.Size {
			return nil, ErrTruncated
		}
		rid, err := hash.FromBytes(rest[:hash.Size])
		if err != nil {
			return nil, err
		}
		v.Recipient = rid
		cypher, _, err := crypto.ReadLenPrefixed(rest[hash.Size:])
		if err != nil {
			return nil, fmt.Errorf("value: cypher field: %w", err)
		}
		v.Cypher = cypher
		return v, nil
	}

	ownerRaw, rest, err := crypto.ReadLenPrefixed(rest)
	if err != nil {
		return nil, fmt.Errorf("value: owner field: %w", err)
	}
	if len(ownerRaw) > 0 {
		owner, err := crypto.UnmarshalPublicKeyBytes(ownerRaw)
		if err != nil {
			return nil, fmt.Errorf("value: unmarshal owner key: %w", err)
		}
		v.Owner = owner
	}

	recipientRaw, rest, err := crypto.ReadLenPrefixed(rest)
	if err != nil {
		return nil, fmt.Errorf("value: recipient field: %w", err)
	}
	if v.Flags.HasRecipient {
		rid, err := hash.FromBytes(recipientRaw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingRecipient, err)
		}
		v.Recipient = rid
	}

	data2, rest, err := crypto.ReadLenPrefixed(rest)
	if err != nil {
		return nil, fmt.Errorf("value: data field: %w", err)
	}
	v.Data = data2

	sig, _, err := crypto.ReadLenPrefixed(rest)
	if err != nil {
		return nil, fmt.Errorf("value: signature field: %w", err)
	}
	if len(sig) > 0 {
		v.Signature = sig
	}

	return v, nil
}

// Clone returns a deep-enough copy of v safe to mutate independently
// (byte slices are copied; Owner is shared, as public keys are immutable).
func (v *Value) Clone() *Value {
	c := *v
	c.Data = append([]byte(nil), v.Data...)
	c.Cypher = append([]byte(nil), v.Cypher...)
	c.Signature = append([]byte(nil), v.Signature...)
	return &c
}
