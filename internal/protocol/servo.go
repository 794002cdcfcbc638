package protocol

import "fmt"

// ServoHandler decodes single-servo commands.
type ServoHandler struct {
	servos ServoDriver
	state  *StateSender
}

func NewServoHandler(servos ServoDriver, state *StateSender) *ServoHandler {
	return &ServoHandler{servos: servos, state: state}
}

func (h *ServoHandler) Handle(cmd uint8, payload []byte) error {
	n := len(payload)
	if err := Validate(TypeServo, cmd, n); err != nil {
		return err
	}
	switch cmd {
	case ServoEnable:
		return actuate(h.servos.SyncOutputs())
	case ServoDisable:
		if n == 0 {
			return actuate(h.servos.EmergencyStopAll())
		}
		id, err := servoID(payload[0])
		if err != nil {
			return err
		}
		return actuate(h.servos.Stop(id))
	case ServoSetPWM:
		id, err := servoID(payload[0])
		if err != nil {
			return err
		}
		pwm, err := ReadU32(payload, 1, n)
		if err != nil {
			return err
		}
		duration, err := ReadU32(payload, 5, n)
		if err != nil {
			return err
		}
		return actuate(h.servos.MovePWM(id, pwm, duration))
	case ServoSetPos:
		id, err := servoID(payload[0])
		if err != nil {
			return err
		}
		angle, err := ReadF32(payload, 1, n)
		if err != nil {
			return err
		}
		duration, err := ReadU32(payload, 5, n)
		if err != nil {
			return err
		}
		return actuate(h.servos.MoveAngle(id, angle, duration))
	case ServoGetStatus:
		id, err := servoID(payload[0])
		if err != nil {
			return err
		}
		st, err := h.servos.State(id)
		if err != nil {
			return actuate(err)
		}
		return h.sendState(st)
	case ServoStatus:
		return nil
	default:
		return ErrUnknownCommand
	}
}

// sendState replies {id, moving, current_pwm, target_angle, remaining}.
func (h *ServoHandler) sendState(st ServoState) error {
	var buf [14]byte
	buf[0] = st.ID
	if st.Moving {
		buf[1] = 1
	}
	if err := WriteU32(buf[:], 2, len(buf), st.CurrentPWM); err != nil {
		return err
	}
	if err := WriteF32(buf[:], 6, len(buf), st.TargetAngle); err != nil {
		return err
	}
	if err := WriteU32(buf[:], 10, len(buf), st.RemainingMS); err != nil {
		return err
	}
	return h.state.Send(StateServo, buf[:])
}

func servoID(b uint8) (uint8, error) {
	if b >= MaxServos {
		return 0, fmt.Errorf("%w: servo id %d", ErrOutOfRange, b)
	}
	return b, nil
}

// actuate maps a collaborator failure onto ErrActuator.
func actuate(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrActuator, err)
}
