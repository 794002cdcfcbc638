package protocol

import (
	"encoding/binary"
	"math"
)

// span reports whether n bytes at off fit inside the declared length and the
// backing slice.
func span(buf []byte, off, n, declared int) bool {
	if off < 0 || declared < 0 || declared > len(buf) {
		return false
	}
	return off <= declared-n
}

// ReadU16 decodes a little-endian uint16 at off, bounded by declared.
func ReadU16(buf []byte, off, declared int) (uint16, error) {
	if !span(buf, off, 2, declared) {
		return 0, ErrOutOfBounds
	}
	return binary.LittleEndian.Uint16(buf[off : off+2]), nil
}

// ReadU32 decodes a little-endian uint32 at off, bounded by declared.
func ReadU32(buf []byte, off, declared int) (uint32, error) {
	if !span(buf, off, 4, declared) {
		return 0, ErrOutOfBounds
	}
	return binary.LittleEndian.Uint32(buf[off : off+4]), nil
}

// ReadF32 decodes a little-endian IEEE-754 float32 at off, bounded by declared.
func ReadF32(buf []byte, off, declared int) (float32, error) {
	bits, err := ReadU32(buf, off, declared)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// WriteU16 encodes v little-endian at off, bounded by declared.
func WriteU16(buf []byte, off, declared int, v uint16) error {
	if !span(buf, off, 2, declared) {
		return ErrOutOfBounds
	}
	binary.LittleEndian.PutUint16(buf[off:off+2], v)
	return nil
}

// WriteU32 encodes v little-endian at off, bounded by declared.
func WriteU32(buf []byte, off, declared int, v uint32) error {
	if !span(buf, off, 4, declared) {
		return ErrOutOfBounds
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
	return nil
}

// WriteF32 encodes the raw IEEE-754 bits of v little-endian at off.
func WriteF32(buf []byte, off, declared int, v float32) error {
	return WriteU32(buf, off, declared, math.Float32bits(v))
}
