package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"macstat/internal/config"
	"macstat/internal/console"
	"macstat/internal/device"
	"macstat/internal/eventloop"
	"macstat/internal/hardware"
	"macstat/internal/logging"
	"macstat/internal/metrics"
	"macstat/internal/presence"
)

func (a *app) watchCommand() *cobra.Command {
	var dumpMetrics bool
	cmd := &cobra.Command{
		Use:       "watch [peripheral|usb|audio|display]",
		Short:     "Report device connects and disconnects for one class",
		Long:      "Watch one device class and print a line for every connect and disconnect.\nType q and press Enter to stop.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"peripheral", "usb", "audio", "display"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd.Context(), args, dumpMetrics)
		},
	}
	cmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "print session metrics in Prometheus text format to stderr on exit")
	return cmd
}

func (a *app) runWatch(ctx context.Context, args []string, dumpMetrics bool) error {
	cfg, err := a.setup()
	if err != nil {
		return err
	}

	class, err := cfg.Watch.Class()
	if len(args) > 0 {
		class, err = device.ParseClass(args[0])
	}
	if err != nil {
		return err
	}

	log := a.logger.WithComponent("watch").WithSession(logging.NewSessionID())
	printer := a.printer(cfg)
	printer.SetLogger(log.Logger)

	backend, err := hardware.Open(log.Logger)
	if errors.Is(err, hardware.ErrUnsupported) {
		printer.Error("device monitoring is only supported on macOS")
		return errReported
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	filter := device.NewFilter(cfg.Watch.IgnoreNames)
	if cfg.Watch.HotReload {
		a.loader.OnChange(func(c *config.Config) {
			filter.Set(c.Watch.IgnoreNames)
			printer.SetConfig(consoleConfig(c))
			log.Info("config reloaded", "config", c.String())
		})
		if err := a.loader.Watch(); err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case err := <-a.loader.Errors():
						log.Warn("config reload rejected", "error", err)
					}
				}
			}()
		}
	}

	registry := metrics.NewRegistry("macstat")
	monitor := presence.NewMonitor(backend, keyReader(a.stdin), presence.MonitorConfig{
		Options: presence.Options{
			Printer:           printer,
			Filter:            filter,
			Logger:            log.Logger,
			CacheUnknownAudio: cfg.Watch.CacheUnknownAudio,
		},
		Loop: eventloop.Config{
			Slice:    cfg.Watch.Slice(),
			QuitKeys: cfg.Watch.QuitRunes(),
			Logger:   log.WithComponent("eventloop").Logger,
		},
		Registry: registry,
	})

	_, err = monitor.Run(ctx, class)
	if dumpMetrics {
		if werr := registry.WritePrometheus(a.stderr); werr != nil {
			log.Warn("write metrics", "error", werr)
		}
	}
	if err != nil {
		log.Error("watch failed", "class", class.String(), "error", err)
		printer.Error(fmt.Sprintf("Failed to watch %s devices: %v", class.Label(), err))
		return errReported
	}
	return nil
}

// keyReader polls stdin for quit keys. Without stdin only signals stop
// the loop.
func keyReader(f *os.File) eventloop.KeyReader {
	if f == nil {
		return nil
	}
	return console.NewKeyReader(f)
}
