package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DeviceConfig is the armctl daemon configuration.
type DeviceConfig struct {
	Name         string        `toml:"name"`
	LinkAddr     string        `toml:"link_addr"`
	AdminAddr    string        `toml:"admin_addr"`
	CorsOrigins  []string      `toml:"cors_origins"`
	AdminToken   string        `toml:"admin_token"`
	LogLevel     string        `toml:"log_level"`
	ReadTimeout  time.Duration `toml:"-"`
	WriteTimeout time.Duration `toml:"-"`
	TickInterval time.Duration `toml:"-"`
	HomeAngle    float32       `toml:"home_angle"`
	PWMMin       uint32        `toml:"pwm_min"`
	PWMMax       uint32        `toml:"pwm_max"`
}

type fileConfig struct {
	Name         string   `toml:"name"`
	LinkAddr     string   `toml:"link_addr"`
	AdminAddr    string   `toml:"admin_addr"`
	CorsOrigins  []string `toml:"cors_origins"`
	AdminToken   string   `toml:"admin_token"`
	LogLevel     string   `toml:"log_level"`
	ReadTimeout  string   `toml:"read_timeout"`
	WriteTimeout string   `toml:"write_timeout"`
	TickInterval string   `toml:"tick_interval"`
	HomeAngle    float64  `toml:"home_angle"`
	PWMMin       int64    `toml:"pwm_min"`
	PWMMax       int64    `toml:"pwm_max"`
}

func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Name:         "armctl",
		LinkAddr:     ":7400",
		AdminAddr:    ":7480",
		CorsOrigins:  []string{"http://localhost:3000"},
		LogLevel:     "info",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 2 * time.Second,
		TickInterval: 20 * time.Millisecond,
		HomeAngle:    90,
		PWMMin:       500,
		PWMMax:       2500,
	}
}

// LoadDeviceConfig overlays the keys defined in path onto the defaults.
func LoadDeviceConfig(path string) (DeviceConfig, error) {
	cfg := DefaultDeviceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return DeviceConfig{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("link_addr") {
		cfg.LinkAddr = strings.TrimSpace(raw.LinkAddr)
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}
	if meta.IsDefined("read_timeout") {
		if cfg.ReadTimeout, err = parseDuration("read_timeout", raw.ReadTimeout); err != nil {
			return DeviceConfig{}, err
		}
	}
	if meta.IsDefined("write_timeout") {
		if cfg.WriteTimeout, err = parseDuration("write_timeout", raw.WriteTimeout); err != nil {
			return DeviceConfig{}, err
		}
	}
	if meta.IsDefined("tick_interval") {
		if cfg.TickInterval, err = parseDuration("tick_interval", raw.TickInterval); err != nil {
			return DeviceConfig{}, err
		}
	}
	if meta.IsDefined("home_angle") {
		cfg.HomeAngle = float32(raw.HomeAngle)
	}
	if meta.IsDefined("pwm_min") {
		if raw.PWMMin < 0 {
			return DeviceConfig{}, fmt.Errorf("pwm_min must be non-negative")
		}
		cfg.PWMMin = uint32(raw.PWMMin)
	}
	if meta.IsDefined("pwm_max") {
		if raw.PWMMax < 0 {
			return DeviceConfig{}, fmt.Errorf("pwm_max must be non-negative")
		}
		cfg.PWMMax = uint32(raw.PWMMax)
	}

	if err := ValidateDeviceConfig(cfg); err != nil {
		return DeviceConfig{}, fmt.Errorf("config %s invalid: %w", path, err)
	}
	return cfg, nil
}

func ValidateDeviceConfig(cfg DeviceConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(cfg.Name) > 253 {
		return fmt.Errorf("name longer than 253 bytes")
	}
	if err := validateAddr("link_addr", cfg.LinkAddr); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.AdminAddr) != "" {
		if err := validateAddr("admin_addr", cfg.AdminAddr); err != nil {
			return err
		}
	}
	switch cfg.LogLevel {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q not recognized", cfg.LogLevel)
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}
	if cfg.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if cfg.PWMMax <= cfg.PWMMin {
		return fmt.Errorf("pwm_max (%d) must exceed pwm_min (%d)", cfg.PWMMax, cfg.PWMMin)
	}
	if cfg.HomeAngle < 0 || cfg.HomeAngle > 180 {
		return fmt.Errorf("home_angle %v outside 0..180", cfg.HomeAngle)
	}
	return nil
}

func validateAddr(key, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("%s is required", key)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s %q: %w", key, addr, err)
	}
	return nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
