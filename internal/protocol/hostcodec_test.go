package protocol

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestHostEncodersMatchDeviceDecoders(t *testing.T) {
	h := newHarness(t)

	h.d.Dispatch(TypeServo, EncodeServoSetPWM(2, 1500, 200))
	h.d.Dispatch(TypeServo, EncodeServoSetPos(3, 33.5, 10))
	want := []servoCall{
		{Op: "pwm", ID: 2, PWM: 1500, Duration: 200},
		{Op: "angle", ID: 3, Angle: 33.5, Duration: 10},
	}
	for i := range want {
		if h.servos.calls[i] != want[i] {
			t.Fatalf("call %d: got=%+v want=%+v", i, h.servos.calls[i], want[i])
		}
	}

	start, err := EncodeMotionStart(ModeAngle, []uint8{0, 5}, []float64{15, 165}, 400)
	if err != nil {
		t.Fatalf("encode motion start: %v", err)
	}
	if res := h.d.Dispatch(TypeMotion, start); res != Stay {
		t.Fatalf("motion start: expected Stay, got %s", res)
	}
	if got := h.groups.started[0]; got.Angles[1] != 165 || got.DurationMS != 400 {
		t.Fatalf("unexpected group request %+v", got)
	}

	create, err := EncodeCycleCreate(ModePWM, []uint8{1}, [][]float64{{1000}, {2000}}, []uint32{50, 60}, 4)
	if err != nil {
		t.Fatalf("encode cycle create: %v", err)
	}
	if res := h.d.Dispatch(TypeMotionCycle, create); res != Stay {
		t.Fatalf("cycle create: expected Stay, got %s", res)
	}
	c := h.engine.created[0]
	if c.MaxLoops != 4 || c.PWM[1][0] != 2000 || c.Durations[0] != 50 {
		t.Fatalf("unexpected cycle %+v", c)
	}

	var pose [ArmJointCount]float32
	pose[2] = 77
	if res := h.d.Dispatch(TypeArm, EncodeArmSetPose(pose, 90)); res != Stay {
		t.Fatalf("arm pose: expected Stay, got %s", res)
	}
	if h.arm.poses[0][2] != 77 {
		t.Fatalf("unexpected pose %+v", h.arm.poses[0])
	}
	if res := h.d.Dispatch(TypeArm, EncodeArmHome(123)); res != Stay || h.arm.homeDur[0] != 123 {
		t.Fatalf("arm home: res=%s dur=%v", res, h.arm.homeDur)
	}
}

func TestEncodeIndexCommand(t *testing.T) {
	got := EncodeIndexCommand(CycleRelease, 3)
	if !bytes.Equal(got, []byte{CycleRelease, 3, 0, 0, 0}) {
		t.Fatalf("unexpected encoding % x", got)
	}
}

func TestEncodePing(t *testing.T) {
	if got := EncodePing([]byte{0x11, 0x22}); !bytes.Equal(got, []byte{SysPing, 0x11, 0x22}) {
		t.Fatalf("unexpected ping % x", got)
	}
}

func TestHostEncodersRejectBadShapes(t *testing.T) {
	if _, err := EncodeMotionStart(ModePWM, nil, nil, 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := EncodeMotionStart(ModePWM, []uint8{1}, []float64{1, 2}, 0); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
	if _, err := EncodeMotionStart(Mode(3), []uint8{1}, []float64{1}, 0); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	if _, err := EncodeCycleCreate(ModePWM, []uint8{1}, [][]float64{{1, 2}}, []uint32{1}, 0); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for ragged pose, got %v", err)
	}
	if _, err := EncodeCycleCreate(ModePWM, []uint8{1}, make([][]float64, MaxPoses+1), make([]uint32, MaxPoses+1), 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for too many poses, got %v", err)
	}
}

func TestHostDecodersRejectBadLengths(t *testing.T) {
	if _, err := DecodeInfo([]byte{1, 0}); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
	if _, err := DecodeInfo([]byte{1, 0, 5, 'a'}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if _, err := DecodeServoState(make([]byte, 13)); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
	if _, err := DecodeMotionStatus(make([]byte, 10)); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
	st, err := DecodeServoState(append([]byte{1, 0}, make([]byte, 12)...))
	if err != nil || st.ID != 1 || st.Moving || math.Float32bits(st.TargetAngle) != 0 {
		t.Fatalf("unexpected zero state %+v err=%v", st, err)
	}
}
