package main

import (
	"flag"

	"github.com/danmuck/armctl/internal/config"
	"github.com/danmuck/armctl/internal/logging"
	"github.com/rs/zerolog/log"
)

const defaultPath = "cmd/armctl/config.toml"

func main() {
	output := flag.String("output", defaultPath, "output path for the device config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	logging.ConfigureRuntime()

	if *validate {
		cfg, err := config.LoadDeviceConfig(*input)
		if err != nil {
			log.Fatal().Err(err).Msg("config invalid")
		}
		log.Info().Str("path", *input).Str("name", cfg.Name).Msg("validated device config")
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal().Err(err).Msg("write template failed")
	}
	log.Info().Str("path", *output).Msg("wrote device config template")
}
