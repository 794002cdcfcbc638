package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPayload    = errors.New("protocol: empty payload")
	ErrUnknownCommand  = errors.New("protocol: unknown command")
	ErrInvalidLength   = errors.New("protocol: invalid length")
	ErrOutOfBounds     = errors.New("protocol: read past declared length")
	ErrOutOfRange      = errors.New("protocol: field out of range")
	ErrInvalidMode     = errors.New("protocol: invalid mode")
	ErrNotImplemented  = errors.New("protocol: not implemented")
	ErrSlotsExhausted  = errors.New("protocol: no free cycle slot")
	ErrActuator        = errors.New("protocol: actuator rejected request")
	ErrSendFailed      = errors.New("protocol: transport send failed")
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
)

// SchemaError reports a payload that does not match its sub-command schema.
type SchemaError struct {
	Type   FrameType
	Cmd    uint8
	Len    int
	Reason string
	Err    error
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("schema: type=%s cmd=0x%02x len=%d: %s", e.Type, e.Cmd, e.Len, e.Reason)
}

func (e SchemaError) Unwrap() error {
	return e.Err
}
