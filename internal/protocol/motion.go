package protocol

import (
	"encoding/binary"
	"fmt"
)

// MotionHandler decodes synchronized multi-servo commands.
type MotionHandler struct {
	groups MotionGroups
	state  *StateSender
}

func NewMotionHandler(groups MotionGroups, state *StateSender) *MotionHandler {
	return &MotionHandler{groups: groups, state: state}
}

func (h *MotionHandler) Handle(cmd uint8, payload []byte) error {
	n := len(payload)
	if err := Validate(TypeMotion, cmd, n); err != nil {
		return err
	}
	switch cmd {
	case MotionStart:
		return h.start(payload)
	case MotionStop, MotionPause, MotionResume:
		groupID, err := ReadU32(payload, 0, n)
		if err != nil {
			return err
		}
		switch cmd {
		case MotionStop:
			return actuate(h.groups.Release(groupID))
		case MotionPause:
			return actuate(h.groups.Pause(groupID))
		default:
			return actuate(h.groups.Restart(groupID))
		}
	case MotionGetStatus:
		groupID, err := ReadU32(payload, 0, n)
		if err != nil {
			return err
		}
		st, err := h.groups.Status(groupID)
		if err != nil {
			return actuate(err)
		}
		return h.sendStatus(groupID, st)
	case MotionSetPlan:
		return ErrNotImplemented
	case MotionStatus:
		return nil
	default:
		return ErrUnknownCommand
	}
}

// start decodes {mode, count, duration, ids[count], values[count]}.
func (h *MotionHandler) start(payload []byte) error {
	n := len(payload)
	mode := Mode(payload[0])
	count := int(payload[1])
	if !mode.Valid() {
		return fmt.Errorf("%w: motion mode %d", ErrInvalidMode, payload[0])
	}
	if count == 0 || count > MaxServos {
		return fmt.Errorf("%w: motion count %d", ErrOutOfRange, count)
	}
	if n < 6+5*count {
		return SchemaError{Type: TypeMotion, Cmd: MotionStart, Len: n, Reason: "short for count", Err: ErrInvalidLength}
	}
	duration, err := ReadU32(payload, 2, n)
	if err != nil {
		return err
	}

	var ids [MaxServos]uint8
	var pwm [MaxServos]uint32
	var angles [MaxServos]float32
	idsOff := 6
	valOff := idsOff + count
	copy(ids[:count], payload[idsOff:valOff])

	req := GroupRequest{Mode: mode, DurationMS: duration, IDs: ids[:count]}
	for i := 0; i < count; i++ {
		off := valOff + 4*i
		if mode == ModePWM {
			if pwm[i], err = ReadU32(payload, off, n); err != nil {
				return err
			}
			continue
		}
		if angles[i], err = ReadF32(payload, off, n); err != nil {
			return err
		}
	}
	if mode == ModePWM {
		req.PWM = pwm[:count]
	} else {
		req.Angles = angles[:count]
	}

	groupID, err := h.groups.Start(req)
	if err != nil {
		return actuate(err)
	}
	var reply [4]byte
	binary.LittleEndian.PutUint32(reply[:], groupID)
	h.state.Announce(StateMotion, reply[:])
	return nil
}

// sendStatus replies {group_id, moving_mask, complete}.
func (h *MotionHandler) sendStatus(groupID uint32, st GroupStatus) error {
	var buf [9]byte
	if err := WriteU32(buf[:], 0, len(buf), groupID); err != nil {
		return err
	}
	if err := WriteU32(buf[:], 4, len(buf), st.MovingMask); err != nil {
		return err
	}
	if st.Complete {
		buf[8] = 1
	}
	return h.state.Send(StateMotion, buf[:])
}
