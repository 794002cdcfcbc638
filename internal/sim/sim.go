// Package sim provides in-memory actuation collaborators for the protocol
// dispatcher: a servo bank, synchronized motion groups, a cycle replay engine
// and the arm joint helper. Motion is modeled as a target plus a deadline;
// there is no trajectory interpolation.
package sim

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidServo  = errors.New("sim: invalid servo id")
	ErrInvalidPWM    = errors.New("sim: pwm out of range")
	ErrInvalidAngle  = errors.New("sim: angle out of range")
	ErrDuplicateID   = errors.New("sim: duplicate servo id")
	ErrUnknownGroup  = errors.New("sim: unknown motion group")
	ErrGroupState    = errors.New("sim: motion group not in required state")
	ErrUnknownCycle  = errors.New("sim: unknown cycle")
	ErrCyclesFull    = errors.New("sim: cycle table full")
	ErrInvalidCycle  = errors.New("sim: invalid cycle spec")
	ErrInvalidJoints = errors.New("sim: wrong joint count")
	ErrInvalidMode   = errors.New("sim: invalid motion mode")
)

// Clock returns the current time.
type Clock func() time.Time

// Config bounds the simulated hardware.
type Config struct {
	PWMMin    uint32
	PWMMax    uint32
	MaxAngle  float32
	HomeAngle float32
	Clock     Clock
}

func DefaultConfig() Config {
	return Config{
		PWMMin:    500,
		PWMMax:    2500,
		MaxAngle:  180,
		HomeAngle: 90,
		Clock:     time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PWMMax == 0 || c.PWMMax <= c.PWMMin {
		c.PWMMin, c.PWMMax = d.PWMMin, d.PWMMax
	}
	if c.MaxAngle <= 0 {
		c.MaxAngle = d.MaxAngle
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
	return c
}

func (c Config) angleToPWM(angle float32) uint32 {
	span := float32(c.PWMMax - c.PWMMin)
	return c.PWMMin + uint32(math.Round(float64(angle/c.MaxAngle*span)))
}

func (c Config) pwmToAngle(pwm uint32) float32 {
	span := float32(c.PWMMax - c.PWMMin)
	return float32(pwm-c.PWMMin) / span * c.MaxAngle
}

func (c Config) validAngle(angle float32) bool {
	a := float64(angle)
	return !math.IsNaN(a) && a >= 0 && a <= float64(c.MaxAngle)
}

func durationOf(ms uint32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
