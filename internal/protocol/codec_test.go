package protocol

import (
	"errors"
	"math"
	"testing"
)

func TestU32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 1500, 0x01020304, math.MaxUint32} {
		var buf [8]byte
		if err := WriteU32(buf[:], 3, len(buf), v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		got, err := ReadU32(buf[:], 3, len(buf))
		if err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip mismatch: got=%d want=%d", got, v)
		}
	}
}

func TestU16RoundTrip(t *testing.T) {
	for _, v := range []uint16{0, 0x0102, math.MaxUint16} {
		var buf [2]byte
		if err := WriteU16(buf[:], 0, len(buf), v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		got, err := ReadU16(buf[:], 0, len(buf))
		if err != nil || got != v {
			t.Fatalf("round trip mismatch: got=%d err=%v want=%d", got, err, v)
		}
	}
}

func TestF32RoundTripIncludingSpecials(t *testing.T) {
	values := []float32{
		0,
		float32(math.Copysign(0, -1)),
		1.5,
		-90.25,
		math.MaxFloat32,
		math.SmallestNonzeroFloat32,
		float32(math.Inf(1)),
		float32(math.Inf(-1)),
		float32(math.NaN()),
	}
	for _, v := range values {
		var buf [4]byte
		if err := WriteF32(buf[:], 0, len(buf), v); err != nil {
			t.Fatalf("write %v: %v", v, err)
		}
		got, err := ReadF32(buf[:], 0, len(buf))
		if err != nil {
			t.Fatalf("read %v: %v", v, err)
		}
		if math.Float32bits(got) != math.Float32bits(v) {
			t.Fatalf("bit mismatch: got=%#x want=%#x", math.Float32bits(got), math.Float32bits(v))
		}
	}
}

func TestCodecLittleEndianLayout(t *testing.T) {
	var buf [4]byte
	if err := WriteU32(buf[:], 0, 4, 1500); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf != [4]byte{0xdc, 0x05, 0x00, 0x00} {
		t.Fatalf("unexpected layout % x", buf)
	}
}

func TestCodecRejectsReadsPastDeclaredLength(t *testing.T) {
	buf := make([]byte, 16)
	cases := []struct {
		name     string
		off      int
		declared int
	}{
		{name: "straddles declared end", off: 2, declared: 5},
		{name: "declared beyond buffer", off: 0, declared: 17},
		{name: "negative offset", off: -1, declared: 8},
		{name: "negative declared", off: 0, declared: -1},
		{name: "offset at end", off: 4, declared: 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadU32(buf, tc.off, tc.declared); !errors.Is(err, ErrOutOfBounds) {
				t.Fatalf("read: expected ErrOutOfBounds, got %v", err)
			}
			if err := WriteU32(buf, tc.off, tc.declared, 7); !errors.Is(err, ErrOutOfBounds) {
				t.Fatalf("write: expected ErrOutOfBounds, got %v", err)
			}
		})
	}
}

func TestCodecFailedWriteLeavesBufferUntouched(t *testing.T) {
	buf := []byte{9, 9, 9, 9, 9}
	if err := WriteU32(buf, 2, 5, math.MaxUint32); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	for i, b := range buf {
		if b != 9 {
			t.Fatalf("byte %d modified to %d", i, b)
		}
	}
}

func TestParseCommand(t *testing.T) {
	if _, err := ParseCommand(nil); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
	data := []byte{0x03, 0xaa, 0xbb}
	view, err := ParseCommand(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if view.Cmd != 0x03 || len(view.Payload) != 2 {
		t.Fatalf("unexpected view %+v", view)
	}
	data[1] = 0xcc
	if view.Payload[0] != 0xcc {
		t.Fatalf("payload should alias the frame buffer")
	}

	view, err = ParseCommand([]byte{0x07})
	if err != nil || view.Cmd != 0x07 || len(view.Payload) != 0 {
		t.Fatalf("single byte command: view=%+v err=%v", view, err)
	}
}
