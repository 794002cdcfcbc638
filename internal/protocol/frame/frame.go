// Package frame implements the bench link framing used by the simulator:
// [type:u8][len:u16 little-endian][payload]. It carries no escaping or
// checksum; the device framing proper is owned by the transport.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/armctl/internal/protocol"
)

const HeaderLen = 3

var (
	ErrShortHeader     = errors.New("frame: short header")
	ErrShortPayload    = errors.New("frame: short payload")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Frame is one link frame.
type Frame struct {
	Type    uint8
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes int
}

// CommandLimits bounds host-to-device frames: [cmd] ++ params.
func CommandLimits() Limits {
	return Limits{MaxPayloadBytes: protocol.MaxPayload}
}

// ReplyLimits bounds device-to-host frames. STATE frames carry a state
// sub-command ahead of up to MaxPayload bytes.
func ReplyLimits() Limits {
	return Limits{MaxPayloadBytes: 1 + protocol.MaxPayload}
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var head [HeaderLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}
	h := DecodeHeader(head)
	if int(h.Len) > limits.MaxPayloadBytes {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, h.Len)
	}
	payload := make([]byte, h.Len)
	if h.Len > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return Frame{}, ErrShortPayload
			}
			return Frame{}, err
		}
	}
	return Frame{Type: h.Type, Payload: payload}, nil
}

func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if len(f.Payload) > limits.MaxPayloadBytes || len(f.Payload) > int(^uint16(0)) {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(f.Payload))
	}
	head := EncodeHeader(Header{Type: f.Type, Len: uint16(len(f.Payload))})
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

// Header is the fixed link header.
type Header struct {
	Type uint8
	Len  uint16
}

func EncodeHeader(h Header) [HeaderLen]byte {
	var buf [HeaderLen]byte
	buf[0] = h.Type
	binary.LittleEndian.PutUint16(buf[1:3], h.Len)
	return buf
}

func DecodeHeader(b [HeaderLen]byte) Header {
	return Header{Type: b[0], Len: binary.LittleEndian.Uint16(b[1:3])}
}
