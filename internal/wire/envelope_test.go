package wire

import (
	"bytes"
	"strings"
	"testing"
)

func makePayload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i)
	}
	return p
}

func TestEnvelopeRoundTrip(t *testing.T) {
	want := &BinaryFrame{Format: FormatJPEG, Ts: 1000, Payload: makePayload(120)}
	encoded := EncodeBinaryFrame(want)

	got, err := DecodeBinaryFrame(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Format != want.Format || got.Ts != want.Ts {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got, want)
	}
	if !bytes.Equal(got.Payload, want.Payload) {
		t.Fatal("round-trip payload mismatch")
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	f := &BinaryFrame{Format: FormatJPEG, Ts: 1, Payload: makePayload(120)}
	encoded := EncodeBinaryFrame(f)
	encoded[0] = 'X'

	_, err := DecodeBinaryFrame(encoded)
	if err == nil || !strings.Contains(err.Error(), ErrCodeInvalidFrame) {
		t.Fatalf("expected invalid-frame error, got %v", err)
	}
}

func TestDecodeRejectsUnsupportedFormat(t *testing.T) {
	f := &BinaryFrame{Format: 9, Ts: 1, Payload: makePayload(120)}
	encoded := EncodeBinaryFrame(f)

	_, err := DecodeBinaryFrame(encoded)
	if err == nil || !strings.Contains(err.Error(), ErrCodeInvalidFrame) {
		t.Fatalf("expected invalid-frame error, got %v", err)
	}
}

func TestDecodeRejectsShortHeader(t *testing.T) {
	_, err := DecodeBinaryFrame(make([]byte, 10))
	if err == nil || !strings.Contains(err.Error(), ErrCodeInvalidFrame) {
		t.Fatalf("expected invalid-frame error, got %v", err)
	}
}

func TestDecodeRejectsShortPayload(t *testing.T) {
	f := &BinaryFrame{Format: FormatJPEG, Ts: 1, Payload: makePayload(10)}
	encoded := EncodeBinaryFrame(f)

	_, err := DecodeBinaryFrame(encoded)
	if err == nil || !strings.Contains(err.Error(), ErrCodeInvalidFrame) {
		t.Fatalf("expected invalid-frame error, got %v", err)
	}
}
