package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/armctl/internal/config"
	"github.com/danmuck/armctl/internal/logging"
	"github.com/rs/zerolog/log"
)

const defaultConfigPath = "cmd/armctl/config.toml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "device config path")
	printConfig := flag.Bool("print-config", false, "print the effective config and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "armctl: %v\n", err)
		os.Exit(1)
	}
	if *printConfig {
		out, err := config.Render(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "armctl: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		return
	}

	logging.ConfigureRuntimeLevel(cfg.LogLevel)
	log.Info().Str("path", *configPath).Str("name", cfg.Name).Msg("loaded device config")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newDevice(cfg).Run(ctx); err != nil {
		log.Error().Err(err).Msg("armctl stopped")
		os.Exit(1)
	}
	log.Info().Msg("armctl stopped")
}

// loadConfig falls back to defaults only when the default path is absent.
func loadConfig(path string) (config.DeviceConfig, error) {
	cfg, err := config.LoadDeviceConfig(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		return config.DefaultDeviceConfig(), nil
	}
	return config.DeviceConfig{}, err
}
