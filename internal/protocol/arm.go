package protocol

// ArmHandler decodes whole-arm commands over the fixed joint set.
type ArmHandler struct {
	arm    ArmKinematics
	servos ServoDriver
	state  *StateSender
}

func NewArmHandler(arm ArmKinematics, servos ServoDriver, state *StateSender) *ArmHandler {
	return &ArmHandler{arm: arm, servos: servos, state: state}
}

func (h *ArmHandler) Handle(cmd uint8, payload []byte) error {
	n := len(payload)
	if err := Validate(TypeArm, cmd, n); err != nil {
		return err
	}
	switch cmd {
	case ArmHome:
		duration := uint32(DefaultHomeDuration)
		if n != 0 {
			if n != 4 {
				return SchemaError{Type: TypeArm, Cmd: ArmHome, Len: n, Reason: "length mismatch", Err: ErrInvalidLength}
			}
			d, err := ReadU32(payload, 0, n)
			if err != nil {
				return err
			}
			duration = d
		}
		for joint := uint8(0); joint < ArmJointCount; joint++ {
			if err := h.arm.HomeJoint(joint, duration); err != nil {
				return actuate(err)
			}
		}
		return nil
	case ArmStop:
		return actuate(h.servos.StopAll())
	case ArmSetPose:
		duration, err := ReadU32(payload, 0, n)
		if err != nil {
			return err
		}
		var angles [ArmJointCount]float32
		for i := range angles {
			if angles[i], err = ReadF32(payload, 4+4*i, n); err != nil {
				return err
			}
		}
		return actuate(h.arm.MovePose(angles[:], duration))
	case ArmGetStatus:
		var buf [4]byte
		if err := WriteU32(buf[:], 0, len(buf), h.arm.MovingMask()); err != nil {
			return err
		}
		return h.state.Send(StateArm, buf[:])
	case ArmStatus:
		return nil
	default:
		return ErrUnknownCommand
	}
}
