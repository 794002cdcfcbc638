package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/armctl/internal/protocol"
)

type servo struct {
	pwm         uint32
	targetAngle float32
	deadline    time.Time
}

// Bank simulates protocol.MaxServos servos. It implements
// protocol.ServoDriver.
type Bank struct {
	cfg     Config
	mu      sync.Mutex
	enabled bool
	syncs   int
	servos  [protocol.MaxServos]servo
}

var _ protocol.ServoDriver = (*Bank)(nil)

func NewBank(cfg Config) *Bank {
	cfg = cfg.withDefaults()
	b := &Bank{cfg: cfg}
	home := cfg.HomeAngle
	if !cfg.validAngle(home) {
		home = 0
	}
	for i := range b.servos {
		b.servos[i] = servo{pwm: cfg.angleToPWM(home), targetAngle: home}
	}
	return b
}

// SyncOutputs enables outputs and latches current targets.
func (b *Bank) SyncOutputs() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = true
	b.syncs++
	return nil
}

func (b *Bank) Stop(id uint8) error {
	if int(id) >= protocol.MaxServos {
		return fmt.Errorf("%w: %d", ErrInvalidServo, id)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.servos[id].deadline = b.cfg.Clock()
	return nil
}

// StopAll holds every servo at its current position.
func (b *Bank) StopAll() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.cfg.Clock()
	for i := range b.servos {
		b.servos[i].deadline = now
	}
	return nil
}

// EmergencyStopAll halts every servo and disables outputs until the next
// SyncOutputs.
func (b *Bank) EmergencyStopAll() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.cfg.Clock()
	for i := range b.servos {
		b.servos[i].deadline = now
	}
	b.enabled = false
	return nil
}

func (b *Bank) MovePWM(id uint8, pwm, durationMS uint32) error {
	if int(id) >= protocol.MaxServos {
		return fmt.Errorf("%w: %d", ErrInvalidServo, id)
	}
	if pwm < b.cfg.PWMMin || pwm > b.cfg.PWMMax {
		return fmt.Errorf("%w: %d", ErrInvalidPWM, pwm)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setLocked(id, pwm, b.cfg.pwmToAngle(pwm), durationMS)
	return nil
}

func (b *Bank) MoveAngle(id uint8, angle float32, durationMS uint32) error {
	if int(id) >= protocol.MaxServos {
		return fmt.Errorf("%w: %d", ErrInvalidServo, id)
	}
	if !b.cfg.validAngle(angle) {
		return fmt.Errorf("%w: %v", ErrInvalidAngle, angle)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setLocked(id, b.cfg.angleToPWM(angle), angle, durationMS)
	return nil
}

func (b *Bank) State(id uint8) (protocol.ServoState, error) {
	if int(id) >= protocol.MaxServos {
		return protocol.ServoState{}, fmt.Errorf("%w: %d", ErrInvalidServo, id)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked(id, b.cfg.Clock()), nil
}

// Snapshot returns the state of every servo.
func (b *Bank) Snapshot() []protocol.ServoState {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.cfg.Clock()
	out := make([]protocol.ServoState, 0, protocol.MaxServos)
	for i := range b.servos {
		out = append(out, b.stateLocked(uint8(i), now))
	}
	return out
}

// MovingMask sets bit i for every servo i still moving.
func (b *Bank) MovingMask() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.cfg.Clock()
	var mask uint32
	for i := range b.servos {
		if now.Before(b.servos[i].deadline) {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// Enabled reports whether outputs are enabled.
func (b *Bank) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

func (b *Bank) setLocked(id uint8, pwm uint32, angle float32, durationMS uint32) {
	b.servos[id] = servo{
		pwm:         pwm,
		targetAngle: angle,
		deadline:    b.cfg.Clock().Add(durationOf(durationMS)),
	}
}

func (b *Bank) stateLocked(id uint8, now time.Time) protocol.ServoState {
	s := b.servos[id]
	st := protocol.ServoState{ID: id, CurrentPWM: s.pwm, TargetAngle: s.targetAngle}
	if now.Before(s.deadline) {
		st.Moving = true
		st.RemainingMS = uint32(s.deadline.Sub(now) / time.Millisecond)
	}
	return st
}
