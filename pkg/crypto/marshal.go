package crypto

import (
	"encoding/binary"
	"fmt"
)

// Wire layout for a serialized key:
//
//	┌──────────────────────────────────────────┐
//	│ Type(1) │ Length(4, big-endian) │ Data(n) │
//	└──────────────────────────────────────────┘
//
// Only KeyType 1 (RSA) exists today; the tag byte is kept so a future key
// type can be introduced without breaking the wire format.
const (
	keyTypeRSA        = byte(1)
	marshalHeaderSize = 5
)

// MarshalPublicKey serializes a public key as [Type(1)][Length(4)][Data].
func MarshalPublicKey(key PublicKey) ([]byte, error) {
	if key == nil {
		return nil, ErrNilPublicKey
	}
	raw, err := key.Raw()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarshalFailed, err)
	}
	return tagAndLengthPrefix(keyTypeRSA, raw), nil
}

// UnmarshalPublicKeyBytes reverses MarshalPublicKey.
func UnmarshalPublicKeyBytes(data []byte) (PublicKey, error) {
	_, body, err := untagAndLengthPrefix(data)
	if err != nil {
		return nil, err
	}
	return UnmarshalRSAPublicKey(body)
}

// MarshalPrivateKey serializes a private key as [Type(1)][Length(4)][Data].
func MarshalPrivateKey(key PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, ErrNilPrivateKey
	}
	raw, err := key.Raw()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarshalFailed, err)
	}
	return tagAndLengthPrefix(keyTypeRSA, raw), nil
}

// UnmarshalPrivateKeyBytes reverses MarshalPrivateKey.
func UnmarshalPrivateKeyBytes(data []byte) (PrivateKey, error) {
	_, body, err := untagAndLengthPrefix(data)
	if err != nil {
		return nil, err
	}
	return UnmarshalRSAPrivateKey(body)
}

// MarshalSignature serializes a signature as [Type(1)][Length(4)][Data].
func MarshalSignature(sig []byte) ([]byte, error) {
	if sig == nil {
		return nil, ErrNilSignature
	}
	return tagAndLengthPrefix(keyTypeRSA, sig), nil
}

// UnmarshalSignature reverses MarshalSignature.
func UnmarshalSignature(data []byte) ([]byte, error) {
	_, body, err := untagAndLengthPrefix(data)
	return body, err
}

func tagAndLengthPrefix(tag byte, data []byte) []byte {
	buf := make([]byte, marshalHeaderSize+len(data))
	buf[0] = tag
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(data)))
	copy(buf[5:], data)
	return buf
}

func untagAndLengthPrefix(data []byte) (byte, []byte, error) {
	if len(data) < marshalHeaderSize {
		return 0, nil, fmt.Errorf("%w: data too short", ErrUnmarshalFailed)
	}
	tag := data[0]
	length := binary.BigEndian.Uint32(data[1:5])
	if uint32(len(data)-marshalHeaderSize) < length {
		return 0, nil, fmt.Errorf("%w: length mismatch", ErrUnmarshalFailed)
	}
	return tag, data[5 : 5+length], nil
}

// WriteLenPrefixed appends a uint32-length-prefixed copy of data to buf
// and returns the extended slice. Used by the value package's canonical
// serialization (spec §6).
func WriteLenPrefixed(buf []byte, data []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, data...)
	return buf
}

// ReadLenPrefixed reads a uint32-length-prefixed field from the front of
// data, returning the field and the remaining bytes.
func ReadLenPrefixed(data []byte) (field []byte, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("%w: missing length prefix", ErrUnmarshalFailed)
	}
	length := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < length {
		return nil, nil, fmt.Errorf("%w: field truncated", ErrUnmarshalFailed)
	}
	return data[:length], data[length:], nil
}
