package main

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/danmuck/armctl/internal/admin"
	"github.com/danmuck/armctl/internal/auth"
	"github.com/danmuck/armctl/internal/config"
	"github.com/danmuck/armctl/internal/protocol"
	"github.com/danmuck/armctl/internal/protocol/session"
	"github.com/danmuck/armctl/internal/sim"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// device wires the simulator, dispatcher, bench link and admin surface.
type device struct {
	cfg        config.DeviceConfig
	bank       *sim.Bank
	cycles     *sim.Cycles
	dispatcher *protocol.Dispatcher
	link       *session.Server
	admin      *admin.Server
	linkUp     atomic.Bool
}

func newDevice(cfg config.DeviceConfig) *device {
	d := &device{cfg: cfg}
	d.bank = sim.NewBank(cfg.SimConfig())
	act, cycles := sim.Actuators(d.bank)
	d.cycles = cycles

	d.link = session.NewServer(cfg.SessionConfig())
	d.dispatcher = protocol.NewDispatcher(protocol.Config{DeviceName: cfg.Name}, d.link, act)
	d.link.SetRouter(d.dispatcher)

	d.admin = admin.NewServer(
		admin.Config{
			ID:          cfg.Name,
			Addr:        cfg.AdminAddr,
			CorsOrigins: cfg.CorsOrigins,
			Auth:        auth.FromToken(cfg.AdminToken),
			Ready:       d.linkUp.Load,
		},
		&admin.ServoService{Bank: d.bank, Router: d.dispatcher},
		&admin.CycleService{Registry: d.dispatcher.Registry(), Engine: d.cycles},
		&admin.ArmService{Bank: d.bank, Router: d.dispatcher},
	)
	return d
}

// Run listens on the configured addresses and serves until ctx is done.
func (d *device) Run(ctx context.Context) error {
	linkLn, err := net.Listen("tcp", d.cfg.LinkAddr)
	if err != nil {
		return fmt.Errorf("link listen %s: %w", d.cfg.LinkAddr, err)
	}
	var adminLn net.Listener
	if d.cfg.AdminAddr != "" {
		adminLn, err = net.Listen("tcp", d.cfg.AdminAddr)
		if err != nil {
			_ = linkLn.Close()
			return fmt.Errorf("admin listen %s: %w", d.cfg.AdminAddr, err)
		}
	}
	return d.serve(ctx, linkLn, adminLn)
}

// serve owns both listeners. adminLn may be nil to disable the admin surface.
func (d *device) serve(ctx context.Context, linkLn, adminLn net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.linkUp.Store(true)
		defer d.linkUp.Store(false)
		return d.link.Serve(ctx, linkLn)
	})
	if adminLn != nil {
		g.Go(func() error {
			return d.admin.ServeListener(ctx, adminLn)
		})
	}
	g.Go(func() error {
		d.tick(ctx)
		return nil
	})

	log.Info().
		Str("name", d.cfg.Name).
		Str("link", linkLn.Addr().String()).
		Dur("tick", d.cfg.TickInterval).
		Msg("armctl running")
	return g.Wait()
}

// tick advances running motion cycles.
func (d *device) tick(ctx context.Context) {
	interval := d.cfg.TickInterval
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.cycles.Tick()
		}
	}
}
