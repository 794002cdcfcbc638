package protocol

import (
	"fmt"

	"github.com/danmuck/armctl/internal/observability"
	"github.com/rs/zerolog/log"
)

// StateSender wraps state replies into TypeState frames.
type StateSender struct {
	tr Transport
}

func NewStateSender(tr Transport) *StateSender {
	return &StateSender{tr: tr}
}

// Send emits [cmd] ++ payload as a TypeState frame. payload may be nil.
func (s *StateSender) Send(cmd uint8, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("%w: state payload %d bytes", ErrPayloadTooLarge, len(payload))
	}
	var buf [1 + MaxPayload]byte
	buf[0] = cmd
	n := 1 + copy(buf[1:], payload)
	err := send(s.tr, TypeState, buf[:n])
	observability.RecordStateSend(cmd, err == nil)
	return err
}

// Announce sends the reply of a command whose effects are already committed.
// A failed send is logged and counted but not returned.
func (s *StateSender) Announce(cmd uint8, payload []byte) {
	if err := s.Send(cmd, payload); err != nil {
		log.Warn().Uint8("state_cmd", cmd).Err(err).Msg("state reply dropped")
	}
}

func send(tr Transport, t FrameType, frame []byte) error {
	if tr == nil {
		return fmt.Errorf("%w: no transport", ErrSendFailed)
	}
	if err := tr.SendFrame(t, frame); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}
