package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/armctl/internal/protocol"
)

type group struct {
	mode      protocol.Mode
	ids       []uint8
	pwm       []uint32
	angles    []float32
	deadline  time.Time
	paused    bool
	remaining time.Duration
}

func (g *group) mask() uint32 {
	var m uint32
	for _, id := range g.ids {
		m |= 1 << uint(id)
	}
	return m
}

// Groups runs synchronized moves on a Bank. It implements
// protocol.MotionGroups.
type Groups struct {
	bank   *Bank
	mu     sync.Mutex
	nextID uint32
	groups map[uint32]*group
}

var _ protocol.MotionGroups = (*Groups)(nil)

func NewGroups(bank *Bank) *Groups {
	return &Groups{bank: bank, nextID: 1, groups: make(map[uint32]*group)}
}

func (g *Groups) Start(req protocol.GroupRequest) (uint32, error) {
	if len(req.IDs) == 0 {
		return 0, fmt.Errorf("%w: empty group", ErrInvalidServo)
	}
	var seen uint32
	for _, id := range req.IDs {
		if int(id) >= protocol.MaxServos {
			return 0, fmt.Errorf("%w: %d", ErrInvalidServo, id)
		}
		if seen&(1<<uint(id)) != 0 {
			return 0, fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
		seen |= 1 << uint(id)
	}

	grp := &group{mode: req.Mode, ids: append([]uint8(nil), req.IDs...)}
	switch req.Mode {
	case protocol.ModePWM:
		if len(req.PWM) != len(req.IDs) {
			return 0, fmt.Errorf("%w: %d values for %d servos", ErrInvalidPWM, len(req.PWM), len(req.IDs))
		}
		grp.pwm = append([]uint32(nil), req.PWM...)
	case protocol.ModeAngle:
		if len(req.Angles) != len(req.IDs) {
			return 0, fmt.Errorf("%w: %d values for %d servos", ErrInvalidAngle, len(req.Angles), len(req.IDs))
		}
		grp.angles = append([]float32(nil), req.Angles...)
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidMode, req.Mode)
	}

	if err := g.apply(grp, req.DurationMS); err != nil {
		return 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	if g.nextID == 0 {
		g.nextID = 1
	}
	grp.deadline = g.bank.cfg.Clock().Add(durationOf(req.DurationMS))
	g.groups[id] = grp
	return id, nil
}

// Release stops the group's servos and forgets the group.
func (g *Groups) Release(groupID uint32) error {
	g.mu.Lock()
	grp, ok := g.groups[groupID]
	if ok {
		delete(g.groups, groupID)
	}
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownGroup, groupID)
	}
	return g.stop(grp)
}

func (g *Groups) Pause(groupID uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	grp, ok := g.groups[groupID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownGroup, groupID)
	}
	if grp.paused {
		return fmt.Errorf("%w: %d already paused", ErrGroupState, groupID)
	}
	now := g.bank.cfg.Clock()
	grp.remaining = 0
	if now.Before(grp.deadline) {
		grp.remaining = grp.deadline.Sub(now)
	}
	grp.paused = true
	return g.stop(grp)
}

// Restart resumes a paused group for its remaining time.
func (g *Groups) Restart(groupID uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	grp, ok := g.groups[groupID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownGroup, groupID)
	}
	if !grp.paused {
		return fmt.Errorf("%w: %d not paused", ErrGroupState, groupID)
	}
	ms := uint32(grp.remaining / time.Millisecond)
	if err := g.apply(grp, ms); err != nil {
		return err
	}
	grp.paused = false
	grp.deadline = g.bank.cfg.Clock().Add(grp.remaining)
	return nil
}

func (g *Groups) Status(groupID uint32) (protocol.GroupStatus, error) {
	g.mu.Lock()
	grp, ok := g.groups[groupID]
	var paused bool
	var deadline time.Time
	var mask uint32
	if ok {
		paused, deadline, mask = grp.paused, grp.deadline, grp.mask()
	}
	g.mu.Unlock()
	if !ok {
		return protocol.GroupStatus{}, fmt.Errorf("%w: %d", ErrUnknownGroup, groupID)
	}
	st := protocol.GroupStatus{GroupID: groupID, MovingMask: g.bank.MovingMask() & mask}
	st.Complete = !paused && !g.bank.cfg.Clock().Before(deadline)
	return st, nil
}

func (g *Groups) apply(grp *group, durationMS uint32) error {
	for i, id := range grp.ids {
		var err error
		if grp.mode == protocol.ModePWM {
			err = g.bank.MovePWM(id, grp.pwm[i], durationMS)
		} else {
			err = g.bank.MoveAngle(id, grp.angles[i], durationMS)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *Groups) stop(grp *group) error {
	for _, id := range grp.ids {
		if err := g.bank.Stop(id); err != nil {
			return err
		}
	}
	return nil
}
