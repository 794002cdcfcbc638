package protocol

import (
	"errors"
	"testing"

	"github.com/danmuck/armctl/internal/testutil/testlog"
)

type sentFrame struct {
	Type    FrameType
	Payload []byte
}

type recordingTransport struct {
	frames []sentFrame
	err    error
}

func (r *recordingTransport) SendFrame(t FrameType, payload []byte) error {
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, sentFrame{Type: t, Payload: append([]byte(nil), payload...)})
	return nil
}

func (r *recordingTransport) last(t *testing.T) sentFrame {
	t.Helper()
	if len(r.frames) == 0 {
		t.Fatalf("expected a sent frame")
	}
	return r.frames[len(r.frames)-1]
}

type servoCall struct {
	Op       string
	ID       uint8
	PWM      uint32
	Angle    float32
	Duration uint32
}

type fakeServos struct {
	calls []servoCall
	state ServoState
	err   error
}

func (f *fakeServos) record(c servoCall) error {
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeServos) SyncOutputs() error      { return f.record(servoCall{Op: "sync"}) }
func (f *fakeServos) Stop(id uint8) error     { return f.record(servoCall{Op: "stop", ID: id}) }
func (f *fakeServos) StopAll() error          { return f.record(servoCall{Op: "stop_all"}) }
func (f *fakeServos) EmergencyStopAll() error { return f.record(servoCall{Op: "estop"}) }

func (f *fakeServos) MovePWM(id uint8, pwm, durationMS uint32) error {
	return f.record(servoCall{Op: "pwm", ID: id, PWM: pwm, Duration: durationMS})
}

func (f *fakeServos) MoveAngle(id uint8, angle float32, durationMS uint32) error {
	return f.record(servoCall{Op: "angle", ID: id, Angle: angle, Duration: durationMS})
}

func (f *fakeServos) State(id uint8) (ServoState, error) {
	if err := f.record(servoCall{Op: "state", ID: id}); err != nil {
		return ServoState{}, err
	}
	st := f.state
	st.ID = id
	return st, nil
}

type fakeGroups struct {
	started []GroupRequest
	ops     []string
	ids     []uint32
	nextID  uint32
	status  GroupStatus
	err     error
}

func (f *fakeGroups) Start(req GroupRequest) (uint32, error) {
	if f.err != nil {
		return 0, f.err
	}
	cp := req
	cp.IDs = append([]uint8(nil), req.IDs...)
	cp.PWM = append([]uint32(nil), req.PWM...)
	cp.Angles = append([]float32(nil), req.Angles...)
	f.started = append(f.started, cp)
	return f.nextID, nil
}

func (f *fakeGroups) op(name string, id uint32) error {
	f.ops = append(f.ops, name)
	f.ids = append(f.ids, id)
	return f.err
}

func (f *fakeGroups) Release(id uint32) error { return f.op("release", id) }
func (f *fakeGroups) Pause(id uint32) error   { return f.op("pause", id) }
func (f *fakeGroups) Restart(id uint32) error { return f.op("restart", id) }

func (f *fakeGroups) Status(id uint32) (GroupStatus, error) {
	if err := f.op("status", id); err != nil {
		return GroupStatus{}, err
	}
	return f.status, nil
}

type createdCycle struct {
	Mode      Mode
	ServoIDs  []uint8
	Durations []uint32
	MaxLoops  uint32
	PWM       [][]uint32
	Angles    [][]float32
}

type fakeEngine struct {
	created  []createdCycle
	ops      []string
	indices  []uint32
	nextIdx  int
	createFn func(spec CycleSpec) (int, error)
	err      error
}

func (f *fakeEngine) Create(spec CycleSpec) (int, error) {
	c := createdCycle{
		Mode:      spec.Poses.Mode(),
		ServoIDs:  append([]uint8(nil), spec.ServoIDs...),
		Durations: append([]uint32(nil), spec.Durations...),
		MaxLoops:  spec.MaxLoops,
	}
	for p := 0; p < spec.Poses.Poses(); p++ {
		if pwm := spec.Poses.PWM(p); pwm != nil {
			c.PWM = append(c.PWM, append([]uint32(nil), pwm...))
		}
		if angles := spec.Poses.Angles(p); angles != nil {
			c.Angles = append(c.Angles, append([]float32(nil), angles...))
		}
	}
	f.created = append(f.created, c)
	if f.createFn != nil {
		return f.createFn(spec)
	}
	idx := f.nextIdx
	f.nextIdx++
	return idx, nil
}

func (f *fakeEngine) op(name string, index uint32) error {
	f.ops = append(f.ops, name)
	f.indices = append(f.indices, index)
	return f.err
}

func (f *fakeEngine) Start(index uint32) error   { return f.op("start", index) }
func (f *fakeEngine) Restart(index uint32) error { return f.op("restart", index) }
func (f *fakeEngine) Pause(index uint32) error   { return f.op("pause", index) }
func (f *fakeEngine) Release(index uint32) error { return f.op("release", index) }

type fakeArm struct {
	homed   []uint8
	homeDur []uint32
	poses   [][]float32
	poseDur []uint32
	mask    uint32
	err     error
}

func (f *fakeArm) HomeJoint(joint uint8, durationMS uint32) error {
	f.homed = append(f.homed, joint)
	f.homeDur = append(f.homeDur, durationMS)
	return f.err
}

func (f *fakeArm) MovePose(angles []float32, durationMS uint32) error {
	f.poses = append(f.poses, append([]float32(nil), angles...))
	f.poseDur = append(f.poseDur, durationMS)
	return f.err
}

func (f *fakeArm) MovingMask() uint32 { return f.mask }

type harness struct {
	tr     *recordingTransport
	servos *fakeServos
	groups *fakeGroups
	engine *fakeEngine
	arm    *fakeArm
	d      *Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	testlog.Start(t)
	h := &harness{
		tr:     &recordingTransport{},
		servos: &fakeServos{},
		groups: &fakeGroups{nextID: 1},
		engine: &fakeEngine{},
		arm:    &fakeArm{},
	}
	h.d = NewDispatcher(Config{DeviceName: "bench-arm"}, h.tr, Actuators{
		Servos: h.servos,
		Groups: h.groups,
		Cycles: h.engine,
		Arm:    h.arm,
	})
	return h
}

var errBoom = errors.New("boom")

func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
