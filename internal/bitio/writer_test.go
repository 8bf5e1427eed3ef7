package bitio_test

import (
	"testing"

	"github.com/jpfielding/jpegls-codec/internal/bitio"
)

func TestAppendBitsPacksMSBFirst(t *testing.T) {
	dst := make([]byte, 4)
	w := bitio.NewWriter(dst)

	if err := w.AppendBits(0b1011, 4); err != nil {
		t.Fatalf("AppendBits: %v", err)
	}
	if err := w.AppendBits(0b0101, 4); err != nil {
		t.Fatalf("AppendBits: %v", err)
	}
	if got, want := dst[0], byte(0b10110101); got != want {
		t.Fatalf("byte 0 = %08b, want %08b", got, want)
	}
	if got, want := w.BytesWritten(), 1; got != want {
		t.Fatalf("BytesWritten() = %d, want %d", got, want)
	}
}

func TestFlushPadsWithOnes(t *testing.T) {
	dst := make([]byte, 2)
	w := bitio.NewWriter(dst)

	if err := w.AppendBits(0b101, 3); err != nil {
		t.Fatalf("AppendBits: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got, want := dst[0], byte(0b10111111); got != want {
		t.Fatalf("padded byte = %08b, want %08b", got, want)
	}
}

// TestByteStuffingInsertsZeroAfterFF exercises the 7-bit case exactly:
// once 0xff has been emitted, the next 7 bits appended fill an entire
// byte on their own (stuff bit as the implicit top bit, our 7 bits as
// the rest), with nothing left pending.
func TestByteStuffingInsertsZeroAfterFF(t *testing.T) {
	dst := make([]byte, 4)
	w := bitio.NewWriter(dst)

	if err := w.AppendBits(0xff, 8); err != nil {
		t.Fatalf("AppendBits: %v", err)
	}
	if err := w.AppendBits(0b1010101, 7); err != nil {
		t.Fatalf("AppendBits: %v", err)
	}
	if err := w.AppendBits(0xab, 8); err != nil {
		t.Fatalf("AppendBits: %v", err)
	}
	want := []byte{0xff, 0b01010101, 0xab}
	for i, b := range want {
		if dst[i] != b {
			t.Fatalf("dst[%d] = %#02x, want %#02x", i, dst[i], b)
		}
	}
	if got, want := w.BytesWritten(), 3; got != want {
		t.Fatalf("BytesWritten() = %d, want %d", got, want)
	}
}

// TestFlushStuffsTrailingFF covers the case where the 1-bit padding
// applied by Flush happens to complete a byte equal to 0xff: Flush
// must keep going and emit the mandatory stuff byte that follows,
// rather than leaving an unstuffed 0xff at the end of the stream.
func TestFlushStuffsTrailingFF(t *testing.T) {
	dst := make([]byte, 2)
	w := bitio.NewWriter(dst)
	if err := w.AppendBits(1, 1); err != nil {
		t.Fatalf("AppendBits: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := []byte{0xff, 0x7f}
	for i, b := range want {
		if dst[i] != b {
			t.Fatalf("dst[%d] = %#02x, want %#02x", i, dst[i], b)
		}
	}
	if got, want := w.BytesWritten(), 2; got != want {
		t.Fatalf("BytesWritten() = %d, want %d", got, want)
	}
}

func TestDestinationTooSmall(t *testing.T) {
	dst := make([]byte, 1)
	w := bitio.NewWriter(dst)
	if err := w.AppendBits(0xff, 8); err != nil {
		t.Fatalf("AppendBits: %v", err)
	}
	// The mandatory stuff byte after 0xff has nowhere to go.
	if err := w.AppendBits(0, 8); err == nil {
		t.Fatal("expected ErrDestinationTooSmall, got nil")
	}
}

func TestRewindRestartsAtOffsetZero(t *testing.T) {
	dst := make([]byte, 2)
	w := bitio.NewWriter(dst)
	if err := w.AppendBits(0xab, 8); err != nil {
		t.Fatalf("AppendBits: %v", err)
	}
	w.Rewind()
	if got, want := w.BytesWritten(), 0; got != want {
		t.Fatalf("BytesWritten() after Rewind = %d, want %d", got, want)
	}
	if err := w.AppendBits(0xcd, 8); err != nil {
		t.Fatalf("AppendBits: %v", err)
	}
	if got, want := dst[0], byte(0xcd); got != want {
		t.Fatalf("dst[0] = %#02x, want %#02x", got, want)
	}
}
