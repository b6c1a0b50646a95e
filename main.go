// fpcontrold owns the fingerprint sensor's power and reset hardware and
// relays its events to a single consumer process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fpcontrol-go/bus"
	"fpcontrol-go/internal/platform"
	"fpcontrol-go/pkg/log"
	"fpcontrol-go/services/config"
	"fpcontrol-go/services/ctl"
	"fpcontrol-go/services/display"
	"fpcontrol-go/services/eventlink"
	"fpcontrol-go/services/railctl"
	"fpcontrol-go/types"
)

func main() {
	configPath := flag.String("config", "", "configuration file overlaying the built-in default")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	lg := log.New(cfg.LogLevel)

	if err := run(cfg, lg); err != nil {
		lg.Error("fpcontrold failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.File, lg *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bus.NewBus(16)
	config.Publish(b.NewConnection("config"), cfg)

	pins, regs, err := platform.New(cfg.Platform)
	if err != nil {
		return err
	}

	// Hardware first. An unresolvable pin configuration means the daemon
	// must not come up at all.
	ctrl, err := railctl.NewController(cfg.Rail, pins, regs, lg, b.NewConnection("railctl"))
	if err != nil {
		return err
	}
	defer ctrl.Close()

	// The sensor is powered for the daemon's lifetime.
	if err := ctrl.SetPower(true); err != nil {
		return err
	}
	defer func() {
		if err := ctrl.SetPower(false); err != nil {
			lg.Warn("power-down failed", "err", err)
		}
	}()

	wake := eventlink.NewWakeAssertion(eventlink.PlatformHolder("fpcontrold"), cfg.Events.WakeHold())
	link := eventlink.New(cfg.Events, wake, lg)
	defer link.Close()
	// Courtesy to the consumer: tell it we are going away.
	defer func() { _ = link.Emit(types.EventExit) }()

	display.New(link, lg).Start(ctx, b.NewConnection("display"))

	srv := ctl.New(cfg.Control, ctrl, link, lg)
	if err := srv.Start(ctx, b.NewConnection("ctl")); err != nil {
		return err
	}
	defer srv.Close()

	lg.Info("fpcontrold up",
		"control", cfg.Control.Socket,
		"events", cfg.Events.Socket,
		"backend", cfg.Platform.Backend)
	<-ctx.Done()
	lg.Info("shutting down")
	return nil
}
