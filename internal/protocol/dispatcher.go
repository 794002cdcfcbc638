package protocol

import (
	"errors"
	"sync"

	"github.com/danmuck/armctl/internal/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Result tells the transport whether to keep offering a frame to other
// listeners.
type Result int

const (
	// Next leaves the frame for other listeners.
	Next Result = iota
	// Stay marks the frame consumed.
	Stay
)

func (r Result) String() string {
	if r == Stay {
		return "stay"
	}
	return "next"
}

// Handler is one command family decoder.
type Handler interface {
	Handle(cmd uint8, payload []byte) error
}

// Config configures a Dispatcher.
type Config struct {
	DeviceName string
	Registry   *Registry
}

// Dispatcher routes inbound frames to their command family by type tag.
type Dispatcher struct {
	mu     sync.Mutex
	sys    *SystemHandler
	servo  *ServoHandler
	motion *MotionHandler
	arm    *ArmHandler
	config *ConfigHandler
	cycle  *CycleHandler
	logger zerolog.Logger
}

func NewDispatcher(cfg Config, tr Transport, act Actuators) *Dispatcher {
	state := NewStateSender(tr)
	return &Dispatcher{
		sys:    NewSystemHandler(tr, cfg.DeviceName),
		servo:  NewServoHandler(act.Servos, state),
		motion: NewMotionHandler(act.Groups, state),
		arm:    NewArmHandler(act.Arm, act.Servos, state),
		config: NewConfigHandler(state),
		cycle:  NewCycleHandler(act.Cycles, cfg.Registry, state),
		logger: log.With().Str("component", "protocol").Logger(),
	}
}

// Registry exposes the motion-cycle slot registry.
func (d *Dispatcher) Registry() *Registry {
	return d.cycle.Registry()
}

// Dispatch handles one frame synchronously. A malformed frame for a routed
// type is still reported as Next; fallthrough is decided per type.
func (d *Dispatcher) Dispatch(t FrameType, payload []byte) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := d.handlerFor(t)
	if h == nil {
		observability.RecordFrame(t.String(), "unrouted")
		return Next
	}
	view, err := ParseCommand(payload)
	if err != nil {
		observability.RecordFrame(t.String(), "empty")
		return Next
	}
	if err := h.Handle(view.Cmd, view.Payload); err != nil {
		d.logRejected(t, view, err)
		observability.RecordFrame(t.String(), "rejected")
		return Next
	}
	d.logger.Trace().Str("family", t.String()).Uint8("cmd", view.Cmd).Msg("frame handled")
	observability.RecordFrame(t.String(), "handled")
	return Stay
}

func (d *Dispatcher) handlerFor(t FrameType) Handler {
	switch t {
	case TypeSys:
		return d.sys
	case TypeServo:
		return d.servo
	case TypeMotion:
		return d.motion
	case TypeArm:
		return d.arm
	case TypeMotionCycle:
		return d.cycle
	case TypeConfig:
		return d.config
	case TypeState, TypeDebug:
		return nil
	default:
		return nil
	}
}

func (d *Dispatcher) logRejected(t FrameType, view CommandView, err error) {
	event := d.logger.Debug()
	if errors.Is(err, ErrActuator) || errors.Is(err, ErrSendFailed) || errors.Is(err, ErrSlotsExhausted) {
		event = d.logger.Warn()
	}
	event.
		Str("family", t.String()).
		Uint8("cmd", view.Cmd).
		Int("len", len(view.Payload)).
		Err(err).
		Msg("frame rejected")
}
