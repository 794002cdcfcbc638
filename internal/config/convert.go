package config

import (
	"github.com/danmuck/armctl/internal/protocol/session"
	"github.com/danmuck/armctl/internal/sim"
)

// SimConfig maps the hardware bounds onto the simulator.
func (c DeviceConfig) SimConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.PWMMin = c.PWMMin
	cfg.PWMMax = c.PWMMax
	cfg.HomeAngle = c.HomeAngle
	return cfg
}

// SessionConfig maps link timeouts onto the bench-link server.
func (c DeviceConfig) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	if c.ReadTimeout > 0 {
		cfg.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		cfg.WriteTimeout = c.WriteTimeout
	}
	return cfg
}
