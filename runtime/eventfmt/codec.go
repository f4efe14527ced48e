package eventfmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/tagscan/runtime/scanner"
)

// Binary layout: MAGIC(4) "TSEV" | VERSION(2, little-endian) | BODY (canonical CBOR)
const (
	Magic         = "TSEV"
	Version       = uint16(1)
	preambleLen   = 6
	maxBodyLen    = 64 * 1024 * 1024
	maxArrayItems = 1 << 22
)

// MarshalBinary produces the deterministic CBOR encoding of the stream.
func (s *Stream) MarshalBinary() ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	// Alias type: cbor would call MarshalBinary recursively otherwise.
	type streamAlias Stream
	data, err := encMode.Marshal((*streamAlias)(s))
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// UnmarshalBinary decodes a CBOR body produced by MarshalBinary.
func (s *Stream) UnmarshalBinary(data []byte) error {
	decMode, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels:   16,
		MaxArrayElements:  maxArrayItems,
		MaxMapPairs:       maxArrayItems,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		return fmt.Errorf("failed to create CBOR decoder: %w", err)
	}

	type streamAlias Stream
	if err := decMode.Unmarshal(data, (*streamAlias)(s)); err != nil {
		return fmt.Errorf("CBOR decoding failed: %w", err)
	}
	return nil
}

// Hash returns the BLAKE2b-256 digest of the canonical body.
func (s *Stream) Hash() ([32]byte, error) {
	data, err := s.MarshalBinary()
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(data), nil
}

// Digest hashes an event stream. Identical scans have identical digests.
func Digest(events []scanner.Event) ([32]byte, error) {
	return Canonicalize(events).Hash()
}

// Write encodes events to w and returns the digest of the body.
func Write(w io.Writer, events []scanner.Event) ([32]byte, error) {
	body, err := Canonicalize(events).MarshalBinary()
	if err != nil {
		return [32]byte{}, err
	}

	var preamble bytes.Buffer
	preamble.WriteString(Magic)
	if err := binary.Write(&preamble, binary.LittleEndian, Version); err != nil {
		return [32]byte{}, err
	}
	if _, err := w.Write(preamble.Bytes()); err != nil {
		return [32]byte{}, fmt.Errorf("write preamble: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return [32]byte{}, fmt.Errorf("write body: %w", err)
	}
	return blake2b.Sum256(body), nil
}

// Read decodes a stream written by Write and returns its events and the
// digest of its body.
func Read(r io.Reader) ([]scanner.Event, [32]byte, error) {
	var preamble [preambleLen]byte
	if _, err := io.ReadFull(r, preamble[:]); err != nil {
		return nil, [32]byte{}, fmt.Errorf("read preamble: %w", err)
	}
	if magic := string(preamble[0:4]); magic != Magic {
		return nil, [32]byte{}, fmt.Errorf("invalid magic: got %q, expected %q", magic, Magic)
	}
	if version := binary.LittleEndian.Uint16(preamble[4:6]); version != Version {
		return nil, [32]byte{}, fmt.Errorf("unsupported version: got 0x%04x, expected 0x%04x", version, Version)
	}

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return nil, [32]byte{}, fmt.Errorf("create hasher: %w", err)
	}
	body, err := io.ReadAll(io.TeeReader(io.LimitReader(r, maxBodyLen+1), hasher))
	if err != nil {
		return nil, [32]byte{}, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyLen {
		return nil, [32]byte{}, fmt.Errorf("body exceeds maximum %d bytes", maxBodyLen)
	}

	var s Stream
	if err := s.UnmarshalBinary(body); err != nil {
		return nil, [32]byte{}, err
	}
	events, err := s.ScannerEvents()
	if err != nil {
		return nil, [32]byte{}, err
	}

	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return events, digest, nil
}

// Marshal encodes events with the preamble.
func Marshal(events []scanner.Event) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := Write(&buf, events); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes the output of Marshal.
func Unmarshal(data []byte) ([]scanner.Event, error) {
	events, _, err := Read(bytes.NewReader(data))
	return events, err
}
