package session

import (
	"math/rand"
	"time"

	"github.com/danmuck/armctl/internal/protocol/frame"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Delay returns the wait before dial attempt+1, where attempt counts the
// failures so far. Jitter scales the delay by a factor in [0.5, 1.5).
func (b BackoffConfig) Delay(attempt int, rng *rand.Rand) time.Duration {
	if b.InitialDelay <= 0 {
		return 0
	}
	delay := b.InitialDelay
	for i := 1; i < attempt; i++ {
		if b.Multiplier > 1 {
			delay = time.Duration(float64(delay) * b.Multiplier)
		}
		if b.MaxDelay > 0 && delay >= b.MaxDelay {
			delay = b.MaxDelay
			break
		}
	}
	if b.Jitter && rng != nil {
		delay = time.Duration(float64(delay) * (0.5 + rng.Float64()))
	}
	return delay
}

// Config defines link timeouts and retry defaults.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ReplyTimeout   time.Duration
	DialAttempts   int
	Commands       frame.Limits // host to device
	Replies        frame.Limits // device to host
	Backoff        BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   2 * time.Second,
		ReplyTimeout:   2 * time.Second,
		DialAttempts:   5,
		Commands:       frame.CommandLimits(),
		Replies:        frame.ReplyLimits(),
		Backoff: BackoffConfig{
			InitialDelay: 100 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     2 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = d.ReplyTimeout
	}
	if c.DialAttempts <= 0 {
		c.DialAttempts = d.DialAttempts
	}
	if c.Commands.MaxPayloadBytes <= 0 {
		c.Commands = d.Commands
	}
	if c.Replies.MaxPayloadBytes <= 0 {
		c.Replies = d.Replies
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = d.Backoff
	}
	return c
}
