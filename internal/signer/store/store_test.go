package store

import (
	"errors"
	"testing"

	"github.com/dupscan/dupscan/internal/minhash"
	apperrors "github.com/dupscan/dupscan/pkg/errors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sig := minhash.Signature{0, 1, 4294967311, 1<<63 - 1, 42}
	raw := Encode(sig)
	if len(raw) != 8*len(sig) {
		t.Fatalf("encoded length = %d, want %d", len(raw), 8*len(sig))
	}
	decoded, err := Decode(raw, len(sig))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	for i := range sig {
		if decoded[i] != sig[i] {
			t.Errorf("position %d = %d, want %d", i, decoded[i], sig[i])
		}
	}
}

func TestDecodeLengthMismatch(t *testing.T) {
	raw := Encode(minhash.Signature{1, 2, 3})
	if _, err := Decode(raw, 4); !errors.Is(err, apperrors.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := Decode(raw[:10], 3); !errors.Is(err, apperrors.ErrShapeMismatch) {
		t.Errorf("truncated payload: expected ErrShapeMismatch, got %v", err)
	}
	if _, err := Decode(nil, 0); !errors.Is(err, apperrors.ErrShapeMismatch) {
		t.Errorf("zero length: expected ErrShapeMismatch, got %v", err)
	}
}

func TestEncodeBigEndian(t *testing.T) {
	raw := Encode(minhash.Signature{0x0102030405060708})
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	for i := range want {
		if raw[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, raw[i], want[i])
		}
	}
}
