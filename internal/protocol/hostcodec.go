package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Host-side encoders build full frame payloads ([cmd] ++ params) the way a
// controlling host sends them. They allocate and are not used on the device
// dispatch path.

func EncodePing(data []byte) []byte {
	return append([]byte{SysPing}, data...)
}

func EncodeGetInfo() []byte {
	return []byte{SysGetInfo}
}

func EncodeServoSetPWM(id uint8, pwm, durationMS uint32) []byte {
	buf := make([]byte, 10)
	buf[0] = ServoSetPWM
	buf[1] = id
	binary.LittleEndian.PutUint32(buf[2:6], pwm)
	binary.LittleEndian.PutUint32(buf[6:10], durationMS)
	return buf
}

func EncodeServoSetPos(id uint8, angle float32, durationMS uint32) []byte {
	buf := make([]byte, 10)
	buf[0] = ServoSetPos
	buf[1] = id
	binary.LittleEndian.PutUint32(buf[2:6], math.Float32bits(angle))
	binary.LittleEndian.PutUint32(buf[6:10], durationMS)
	return buf
}

func EncodeServoGetStatus(id uint8) []byte {
	return []byte{ServoGetStatus, id}
}

// EncodeMotionStart encodes a synchronized move. values are converted per
// mode: truncated to uint32 for ModePWM, narrowed to float32 for ModeAngle.
func EncodeMotionStart(mode Mode, ids []uint8, values []float64, durationMS uint32) ([]byte, error) {
	if len(ids) == 0 || len(ids) > MaxServos {
		return nil, fmt.Errorf("%w: %d servos", ErrOutOfRange, len(ids))
	}
	if len(ids) != len(values) {
		return nil, fmt.Errorf("%w: %d ids, %d values", ErrInvalidLength, len(ids), len(values))
	}
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	buf := make([]byte, 0, 7+5*len(ids))
	buf = append(buf, MotionStart, uint8(mode), uint8(len(ids)))
	buf = binary.LittleEndian.AppendUint32(buf, durationMS)
	buf = append(buf, ids...)
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, modeBits(mode, v))
	}
	return buf, nil
}

// EncodeIndexCommand encodes [cmd][u32] for commands addressing a motion
// group id or a cycle index.
func EncodeIndexCommand(cmd uint8, index uint32) []byte {
	buf := make([]byte, 5)
	buf[0] = cmd
	binary.LittleEndian.PutUint32(buf[1:5], index)
	return buf
}

// EncodeCycleCreate encodes a cycle of poses, each with one value per servo.
func EncodeCycleCreate(mode Mode, ids []uint8, poses [][]float64, durationsMS []uint32, maxLoops uint32) ([]byte, error) {
	if len(ids) == 0 || len(ids) > MaxServos {
		return nil, fmt.Errorf("%w: %d servos", ErrOutOfRange, len(ids))
	}
	if len(poses) == 0 || len(poses) > MaxPoses {
		return nil, fmt.Errorf("%w: %d poses", ErrOutOfRange, len(poses))
	}
	if len(poses) != len(durationsMS) {
		return nil, fmt.Errorf("%w: %d poses, %d durations", ErrInvalidLength, len(poses), len(durationsMS))
	}
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	buf := make([]byte, 0, 8+4*len(poses)+len(ids)+4*len(poses)*len(ids))
	buf = append(buf, CycleCreate, uint8(mode), uint8(len(ids)), uint8(len(poses)))
	buf = binary.LittleEndian.AppendUint32(buf, maxLoops)
	for _, d := range durationsMS {
		buf = binary.LittleEndian.AppendUint32(buf, d)
	}
	buf = append(buf, ids...)
	for p, pose := range poses {
		if len(pose) != len(ids) {
			return nil, fmt.Errorf("%w: pose %d has %d values", ErrInvalidLength, p, len(pose))
		}
		for _, v := range pose {
			buf = binary.LittleEndian.AppendUint32(buf, modeBits(mode, v))
		}
	}
	return buf, nil
}

func EncodeArmHome(durationMS uint32) []byte {
	return binary.LittleEndian.AppendUint32([]byte{ArmHome}, durationMS)
}

func EncodeArmSetPose(angles [ArmJointCount]float32, durationMS uint32) []byte {
	buf := make([]byte, 0, 5+4*ArmJointCount)
	buf = append(buf, ArmSetPose)
	buf = binary.LittleEndian.AppendUint32(buf, durationMS)
	for _, a := range angles {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(a))
	}
	return buf
}

func modeBits(mode Mode, v float64) uint32 {
	if mode == ModePWM {
		return uint32(v)
	}
	return math.Float32bits(float32(v))
}

// Info is the decoded SYS INFO reply.
type Info struct {
	Major uint8
	Minor uint8
	Name  string
}

// DecodeInfo decodes the parameters of a SYS INFO reply (after the cmd byte).
func DecodeInfo(payload []byte) (Info, error) {
	if len(payload) < 3 {
		return Info{}, ErrInvalidLength
	}
	nameLen := int(payload[2])
	if len(payload) < 3+nameLen {
		return Info{}, ErrOutOfBounds
	}
	return Info{Major: payload[0], Minor: payload[1], Name: string(payload[3 : 3+nameLen])}, nil
}

// DecodeServoState decodes the 14-byte SERVO state record.
func DecodeServoState(payload []byte) (ServoState, error) {
	n := len(payload)
	if n != 14 {
		return ServoState{}, ErrInvalidLength
	}
	st := ServoState{ID: payload[0], Moving: payload[1] != 0}
	var err error
	if st.CurrentPWM, err = ReadU32(payload, 2, n); err != nil {
		return ServoState{}, err
	}
	if st.TargetAngle, err = ReadF32(payload, 6, n); err != nil {
		return ServoState{}, err
	}
	if st.RemainingMS, err = ReadU32(payload, 10, n); err != nil {
		return ServoState{}, err
	}
	return st, nil
}

// DecodeMotionStatus decodes the 9-byte MOTION status record.
func DecodeMotionStatus(payload []byte) (GroupStatus, error) {
	n := len(payload)
	if n != 9 {
		return GroupStatus{}, ErrInvalidLength
	}
	var st GroupStatus
	var err error
	if st.GroupID, err = ReadU32(payload, 0, n); err != nil {
		return GroupStatus{}, err
	}
	if st.MovingMask, err = ReadU32(payload, 4, n); err != nil {
		return GroupStatus{}, err
	}
	st.Complete = payload[8] != 0
	return st, nil
}
