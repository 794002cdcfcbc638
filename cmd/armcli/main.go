package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danmuck/armctl/internal/observability"
	"github.com/danmuck/armctl/internal/protocol/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: armcli [-addr host:port] <command> [args]

commands:
  ping [hex]                       echo bytes through SYS PING
  info                             device version and name
  enable | disable [id]            servo outputs
  pwm <id> <pwm> <ms>              single servo pulse width
  pos <id> <deg> <ms>              single servo angle
  status <id>                      single servo state
  move <pwm|angle> <ms> <id=v>...  synchronized group move
  group <stop|pause|resume|status> <group_id>
  home [ms] | stop | arm-status    whole arm
  pose <ms> <a0> ... <a5>          whole arm pose
  cycle create <pwm|angle> <loops> <ids> <ms:v,v,...>...
  cycle <start|restart|pause|release> <index>
  config-get                       configuration state
`)
}

func main() {
	addr := flag.String("addr", "127.0.0.1:7400", "device link address")
	timeout := flag.Duration("timeout", 2*time.Second, "reply timeout")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	observability.InitLoggerTo(os.Stderr, "armcli", true)
	if !*verbose {
		log.Logger = log.Logger.Level(zerolog.WarnLevel)
	}

	req, err := buildRequest(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "armcli: %v\n", err)
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := session.Dial(ctx, *addr, session.Config{ReplyTimeout: *timeout, DialAttempts: 3})
	if err != nil {
		fmt.Fprintf(os.Stderr, "armcli: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := execute(client, req, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "armcli: %v\n", err)
		os.Exit(1)
	}
}
