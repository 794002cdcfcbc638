package protocol

import (
	"fmt"
	"sync"

	"github.com/danmuck/armctl/internal/observability"
)

// cycleHeaderLen covers [mode][servo_count][pose_count][max_loops:u32].
const cycleHeaderLen = 7

// slot stages the pose geometry of one motion cycle. Only the value table
// matching mode is populated.
type slot struct {
	used       bool
	mode       Mode
	servoCount uint8
	poseCount  uint8
	servoIDs   [MaxServos]uint8
	pwm        [MaxPoses][MaxServos]uint32
	angle      [MaxPoses][MaxServos]float32
	durations  [MaxPoses]uint32
}

type binding struct {
	slot  uint8
	bound bool
}

// PoseView is a mode-tagged, read-only view over a staged slot's pose table.
// It borrows registry storage and must not be retained after the engine call
// it was passed to returns.
type PoseView struct {
	mode   Mode
	servos int
	poses  int
	pwm    *[MaxPoses][MaxServos]uint32
	angle  *[MaxPoses][MaxServos]float32
}

func (v PoseView) Mode() Mode  { return v.mode }
func (v PoseView) Poses() int  { return v.poses }
func (v PoseView) Servos() int { return v.servos }

// PWM returns the pulse widths of one pose, or nil when the view holds angles.
func (v PoseView) PWM(pose int) []uint32 {
	if v.mode != ModePWM || v.pwm == nil || pose < 0 || pose >= v.poses {
		return nil
	}
	return v.pwm[pose][:v.servos]
}

// Angles returns the joint angles of one pose, or nil when the view holds PWM.
func (v PoseView) Angles(pose int) []float32 {
	if v.mode != ModeAngle || v.angle == nil || pose < 0 || pose >= v.poses {
		return nil
	}
	return v.angle[pose][:v.servos]
}

// CycleSpec is handed to CycleEngine.Create. All slices borrow registry
// storage for the duration of the call.
type CycleSpec struct {
	ServoIDs  []uint8
	Durations []uint32
	MaxLoops  uint32
	Poses     PoseView
}

// SlotInfo is a point-in-time copy of one slot for inspection.
type SlotInfo struct {
	Slot       int     `json:"slot"`
	Used       bool    `json:"used"`
	Index      int     `json:"index"`
	Mode       string  `json:"mode,omitempty"`
	ServoCount int     `json:"servo_count,omitempty"`
	PoseCount  int     `json:"pose_count,omitempty"`
	ServoIDs   []uint8 `json:"servo_ids,omitempty"`
}

// Registry is the fixed pool of motion-cycle staging slots plus the map from
// engine cycle index back to slot.
type Registry struct {
	mu    sync.Mutex
	slots [CycleSlots]slot
	index [CycleSlots]binding
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Create decodes a CYCLE CREATE payload into the first free slot and hands it
// to engine. On any failure the slot is released before returning.
func (r *Registry) Create(payload []byte, engine CycleEngine) (int, error) {
	n := len(payload)
	if n < cycleHeaderLen {
		return -1, fmt.Errorf("%w: cycle header %d bytes", ErrInvalidLength, n)
	}
	mode := Mode(payload[0])
	servoCount := int(payload[1])
	poseCount := int(payload[2])
	maxLoops, err := ReadU32(payload, 3, n)
	if err != nil {
		return -1, err
	}
	if servoCount == 0 || servoCount > MaxServos {
		return -1, fmt.Errorf("%w: servo count %d", ErrOutOfRange, servoCount)
	}
	if poseCount == 0 || poseCount > MaxPoses {
		return -1, fmt.Errorf("%w: pose count %d", ErrOutOfRange, poseCount)
	}

	durOff := cycleHeaderLen
	idsOff := durOff + 4*poseCount
	valOff := idsOff + servoCount
	total := valOff + 4*poseCount*servoCount
	if n < total {
		return -1, fmt.Errorf("%w: cycle needs %d bytes, have %d", ErrInvalidLength, total, n)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	num := r.acquireLocked()
	if num < 0 {
		return -1, ErrSlotsExhausted
	}
	s := &r.slots[num]
	s.servoCount = uint8(servoCount)
	s.poseCount = uint8(poseCount)
	copy(s.servoIDs[:servoCount], payload[idsOff:valOff])

	for p := 0; p < poseCount; p++ {
		if s.durations[p], err = ReadU32(payload, durOff+4*p, n); err != nil {
			r.releaseLocked(num)
			return -1, err
		}
	}

	view := PoseView{mode: mode, servos: servoCount, poses: poseCount}
	switch mode {
	case ModePWM:
		for p := 0; p < poseCount; p++ {
			for i := 0; i < servoCount; i++ {
				off := valOff + 4*(p*servoCount+i)
				if s.pwm[p][i], err = ReadU32(payload, off, n); err != nil {
					r.releaseLocked(num)
					return -1, err
				}
			}
		}
		view.pwm = &s.pwm
	case ModeAngle:
		for p := 0; p < poseCount; p++ {
			for i := 0; i < servoCount; i++ {
				off := valOff + 4*(p*servoCount+i)
				if s.angle[p][i], err = ReadF32(payload, off, n); err != nil {
					r.releaseLocked(num)
					return -1, err
				}
			}
		}
		view.angle = &s.angle
	default:
		r.releaseLocked(num)
		return -1, fmt.Errorf("%w: cycle mode %d", ErrInvalidMode, payload[0])
	}
	s.mode = mode

	idx, err := engine.Create(CycleSpec{
		ServoIDs:  s.servoIDs[:servoCount],
		Durations: s.durations[:poseCount],
		MaxLoops:  maxLoops,
		Poses:     view,
	})
	if err != nil {
		r.releaseLocked(num)
		return -1, actuate(err)
	}
	if idx < 0 || idx >= CycleSlots {
		r.releaseLocked(num)
		return -1, fmt.Errorf("%w: cycle index %d", ErrActuator, idx)
	}

	// A reissued index means the engine dropped the cycle it used to name.
	if prev := r.index[idx]; prev.bound && int(prev.slot) != num {
		r.releaseLocked(int(prev.slot))
	}
	r.index[idx] = binding{slot: uint8(num), bound: true}
	return idx, nil
}

// ReleaseIndex frees the slot bound to a cycle index. Indices that were never
// successfully created are ignored.
func (r *Registry) ReleaseIndex(index uint32) (int, bool) {
	if index >= CycleSlots {
		return -1, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.index[index]
	if !b.bound {
		return -1, false
	}
	r.index[index] = binding{}
	r.releaseLocked(int(b.slot))
	return int(b.slot), true
}

// InUse reports the number of slots currently backing a cycle.
func (r *Registry) InUse() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inUseLocked()
}

// Snapshot copies every slot for inspection.
func (r *Registry) Snapshot() []SlotInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SlotInfo, 0, CycleSlots)
	for i := range r.slots {
		s := &r.slots[i]
		info := SlotInfo{Slot: i, Used: s.used, Index: -1}
		if s.used {
			info.Mode = s.mode.String()
			info.ServoCount = int(s.servoCount)
			info.PoseCount = int(s.poseCount)
			info.ServoIDs = append([]uint8(nil), s.servoIDs[:s.servoCount]...)
		}
		for idx, b := range r.index {
			if b.bound && int(b.slot) == i {
				info.Index = idx
			}
		}
		out = append(out, info)
	}
	return out
}

// acquireLocked marks the lowest free slot used.
func (r *Registry) acquireLocked() int {
	for i := range r.slots {
		if !r.slots[i].used {
			r.slots[i] = slot{used: true}
			observability.SetCycleSlotsInUse(r.inUseLocked())
			return i
		}
	}
	return -1
}

func (r *Registry) releaseLocked(num int) {
	if num < 0 || num >= CycleSlots {
		return
	}
	r.slots[num] = slot{}
	observability.SetCycleSlotsInUse(r.inUseLocked())
}

func (r *Registry) inUseLocked() int {
	used := 0
	for i := range r.slots {
		if r.slots[i].used {
			used++
		}
	}
	return used
}
