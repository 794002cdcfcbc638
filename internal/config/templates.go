package config

import (
	"bytes"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// renderedConfig is the on-disk shape of a DeviceConfig.
type renderedConfig struct {
	Name         string   `toml:"name"`
	LinkAddr     string   `toml:"link_addr"`
	AdminAddr    string   `toml:"admin_addr"`
	CorsOrigins  []string `toml:"cors_origins"`
	AdminToken   string   `toml:"admin_token,omitempty"`
	LogLevel     string   `toml:"log_level"`
	ReadTimeout  string   `toml:"read_timeout"`
	WriteTimeout string   `toml:"write_timeout"`
	TickInterval string   `toml:"tick_interval"`
	HomeAngle    float64  `toml:"home_angle"`
	PWMMin       uint32   `toml:"pwm_min"`
	PWMMax       uint32   `toml:"pwm_max"`
}

// Render encodes cfg as a TOML document LoadDeviceConfig reads back.
func Render(cfg DeviceConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	err := enc.Encode(renderedConfig{
		Name:         cfg.Name,
		LinkAddr:     cfg.LinkAddr,
		AdminAddr:    cfg.AdminAddr,
		CorsOrigins:  cfg.CorsOrigins,
		AdminToken:   cfg.AdminToken,
		LogLevel:     cfg.LogLevel,
		ReadTimeout:  cfg.ReadTimeout.String(),
		WriteTimeout: cfg.WriteTimeout.String(),
		TickInterval: cfg.TickInterval.String(),
		HomeAngle:    float64(cfg.HomeAngle),
		PWMMin:       cfg.PWMMin,
		PWMMax:       cfg.PWMMax,
	})
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTemplate writes the default device config to path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	data, err := Render(DefaultDeviceConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
