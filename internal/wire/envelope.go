package wire

import (
	"encoding/binary"
	"fmt"
)

// FrameFormat is the image codec carried in a binary frame envelope.
type FrameFormat uint8

const (
	FormatJPEG FrameFormat = 1
	FormatPNG  FrameFormat = 2
)

const (
	envelopeHeaderSize = 16
	minPayloadSize     = 100
)

var envelopeMagic = [4]byte{'F', 'P', 'F', '1'}

// BinaryFrame is a decoded binary frame envelope: a 16-byte header
// (magic, format, reserved, little-endian millisecond timestamp) followed
// by the raw image payload.
type BinaryFrame struct {
	Format  FrameFormat
	Ts      uint64
	Payload []byte
}

// DecodeBinaryFrame parses the wire envelope described in the protocol
// spec. It returns invalid-frame errors for any structural violation:
// bad magic, unsupported format code, a header shorter than 16 bytes, or
// a payload shorter than 100 bytes.
func DecodeBinaryFrame(data []byte) (*BinaryFrame, error) {
	if len(data) < envelopeHeaderSize {
		return nil, fmt.Errorf("%s: header too short (%d bytes)", ErrCodeInvalidFrame, len(data))
	}
	if [4]byte(data[0:4]) != envelopeMagic {
		return nil, fmt.Errorf("%s: bad magic", ErrCodeInvalidFrame)
	}
	format := FrameFormat(data[4])
	if format != FormatJPEG && format != FormatPNG {
		return nil, fmt.Errorf("%s: unsupported format code %d", ErrCodeInvalidFrame, format)
	}
	ts := binary.LittleEndian.Uint64(data[8:16])
	payload := data[16:]
	if len(payload) < minPayloadSize {
		return nil, fmt.Errorf("%s: payload too short (%d bytes)", ErrCodeInvalidFrame, len(payload))
	}

	out := make([]byte, len(payload))
	copy(out, payload)
	return &BinaryFrame{Format: format, Ts: ts, Payload: out}, nil
}

// EncodeBinaryFrame serializes a frame back into the wire envelope. It is
// the inverse of DecodeBinaryFrame and exists mainly for tests that need
// to round-trip the format (P7).
func EncodeBinaryFrame(f *BinaryFrame) []byte {
	out := make([]byte, envelopeHeaderSize+len(f.Payload))
	copy(out[0:4], envelopeMagic[:])
	out[4] = byte(f.Format)
	// bytes 5-7 reserved, left zero
	binary.LittleEndian.PutUint64(out[8:16], f.Ts)
	copy(out[16:], f.Payload)
	return out
}
