package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/armctl/internal/protocol"
)

type cycle struct {
	mode      protocol.Mode
	ids       []uint8
	durations []uint32
	pwm       [][]uint32
	angles    [][]float32
	maxLoops  uint32

	running   bool
	pose      int
	loops     uint32
	poseUntil time.Time
	remaining time.Duration
}

// CycleInfo is a point-in-time view of one engine cycle.
type CycleInfo struct {
	Index       int    `json:"index"`
	Mode        string `json:"mode"`
	ServoCount  int    `json:"servo_count"`
	PoseCount   int    `json:"pose_count"`
	Running     bool   `json:"running"`
	CurrentPose int    `json:"current_pose"`
	Loops       uint32 `json:"loops"`
	MaxLoops    uint32 `json:"max_loops"`
}

// Cycles replays staged pose sequences on a Bank. It implements
// protocol.CycleEngine. Create copies the spec; nothing borrowed from the
// caller is retained.
type Cycles struct {
	bank   *Bank
	mu     sync.Mutex
	cycles [protocol.CycleSlots]*cycle
}

var _ protocol.CycleEngine = (*Cycles)(nil)

func NewCycles(bank *Bank) *Cycles {
	return &Cycles{bank: bank}
}

func (c *Cycles) Create(spec protocol.CycleSpec) (int, error) {
	poses := spec.Poses.Poses()
	servos := spec.Poses.Servos()
	if poses == 0 || servos == 0 || len(spec.ServoIDs) != servos || len(spec.Durations) != poses {
		return -1, ErrInvalidCycle
	}
	for _, id := range spec.ServoIDs {
		if int(id) >= protocol.MaxServos {
			return -1, fmt.Errorf("%w: %d", ErrInvalidServo, id)
		}
	}
	cy := &cycle{
		mode:      spec.Poses.Mode(),
		ids:       append([]uint8(nil), spec.ServoIDs...),
		durations: append([]uint32(nil), spec.Durations...),
		maxLoops:  spec.MaxLoops,
	}
	for p := 0; p < poses; p++ {
		switch cy.mode {
		case protocol.ModePWM:
			cy.pwm = append(cy.pwm, append([]uint32(nil), spec.Poses.PWM(p)...))
		case protocol.ModeAngle:
			cy.angles = append(cy.angles, append([]float32(nil), spec.Poses.Angles(p)...))
		default:
			return -1, fmt.Errorf("%w: %d", ErrInvalidMode, cy.mode)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.cycles {
		if c.cycles[i] == nil {
			c.cycles[i] = cy
			return i, nil
		}
	}
	return -1, ErrCyclesFull
}

// Start runs a cycle from its first pose.
func (c *Cycles) Start(index uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cy, err := c.lookupLocked(index)
	if err != nil {
		return err
	}
	cy.pose = 0
	cy.loops = 0
	cy.remaining = 0
	cy.running = true
	return c.enterPoseLocked(cy, c.bank.cfg.Clock())
}

// Restart resumes a paused cycle at the pose it was paused on.
func (c *Cycles) Restart(index uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cy, err := c.lookupLocked(index)
	if err != nil {
		return err
	}
	if cy.running {
		return nil
	}
	now := c.bank.cfg.Clock()
	cy.running = true
	if cy.remaining > 0 {
		if err := c.applyLocked(cy, uint32(cy.remaining/time.Millisecond)); err != nil {
			return err
		}
		cy.poseUntil = now.Add(cy.remaining)
		cy.remaining = 0
		return nil
	}
	return c.enterPoseLocked(cy, now)
}

func (c *Cycles) Pause(index uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cy, err := c.lookupLocked(index)
	if err != nil {
		return err
	}
	if !cy.running {
		return nil
	}
	now := c.bank.cfg.Clock()
	cy.running = false
	cy.remaining = 0
	if now.Before(cy.poseUntil) {
		cy.remaining = cy.poseUntil.Sub(now)
	}
	for _, id := range cy.ids {
		if err := c.bank.Stop(id); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cycles) Release(index uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.lookupLocked(index); err != nil {
		return err
	}
	c.cycles[index] = nil
	return nil
}

// Tick advances every running cycle whose current pose has elapsed.
func (c *Cycles) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.bank.cfg.Clock()
	for _, cy := range c.cycles {
		if cy == nil || !cy.running || now.Before(cy.poseUntil) {
			continue
		}
		cy.pose++
		if cy.pose >= len(cy.durations) {
			cy.pose = 0
			cy.loops++
			if cy.maxLoops > 0 && cy.loops >= cy.maxLoops {
				cy.running = false
				continue
			}
		}
		_ = c.enterPoseLocked(cy, now)
	}
}

// List returns every live cycle ordered by index.
func (c *Cycles) List() []CycleInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CycleInfo, 0, protocol.CycleSlots)
	for i, cy := range c.cycles {
		if cy == nil {
			continue
		}
		out = append(out, CycleInfo{
			Index:       i,
			Mode:        cy.mode.String(),
			ServoCount:  len(cy.ids),
			PoseCount:   len(cy.durations),
			Running:     cy.running,
			CurrentPose: cy.pose,
			Loops:       cy.loops,
			MaxLoops:    cy.maxLoops,
		})
	}
	return out
}

func (c *Cycles) lookupLocked(index uint32) (*cycle, error) {
	if index >= protocol.CycleSlots || c.cycles[index] == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCycle, index)
	}
	return c.cycles[index], nil
}

func (c *Cycles) enterPoseLocked(cy *cycle, now time.Time) error {
	d := cy.durations[cy.pose]
	cy.poseUntil = now.Add(durationOf(d))
	return c.applyLocked(cy, d)
}

func (c *Cycles) applyLocked(cy *cycle, durationMS uint32) error {
	for i, id := range cy.ids {
		var err error
		if cy.mode == protocol.ModePWM {
			err = c.bank.MovePWM(id, cy.pwm[cy.pose][i], durationMS)
		} else {
			err = c.bank.MoveAngle(id, cy.angles[cy.pose][i], durationMS)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
