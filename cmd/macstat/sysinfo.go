package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"macstat/internal/console"
	"macstat/internal/eventloop"
	"macstat/internal/sysstat"
)

const (
	cpuSampleWindow = 500 * time.Millisecond
	refreshInterval = time.Second
	clearScreen     = "\x1b[H\x1b[2J"
)

func (a *app) sysinfoCommand() *cobra.Command {
	var (
		watch bool
		path  string
	)
	cmd := &cobra.Command{
		Use:   "sysinfo",
		Short: "Show CPU, memory and disk usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return a.runSysinfoWatch(cmd.Context())
			}
			return a.runSysinfo(path)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "refresh CPU usage every second until q is entered")
	cmd.Flags().StringVar(&path, "disk", "/", "mount point to report disk usage for")
	return cmd
}

func (a *app) runSysinfo(path string) error {
	if _, err := a.setup(); err != nil {
		return err
	}
	s := sysstat.NewSampler()

	// The first CPU sample covers the time since boot.
	if _, err := s.CPU(); err != nil {
		return err
	}
	time.Sleep(cpuSampleWindow)
	usage, err := s.CPU()
	if err != nil {
		return err
	}
	mem, err := s.Memory()
	if err != nil {
		return err
	}
	disk, err := s.Disk(path)
	if err != nil {
		return err
	}

	lines := []string{"CPU"}
	lines = append(lines, usage.Lines()...)
	lines = append(lines, "", "Memory")
	lines = append(lines, mem.Lines()...)
	lines = append(lines, "", "Disk "+disk.Path)
	lines = append(lines, disk.Lines()...)

	fmt.Fprintln(a.stdout, console.Box(lines, a.width()))
	return nil
}

func (a *app) runSysinfoWatch(ctx context.Context) error {
	cfg, err := a.setup()
	if err != nil {
		return err
	}
	log := a.logger.WithComponent("sysinfo")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := sysstat.NewSampler()
	tty := a.isTerminal()
	pump := eventloop.NewTickerPump(refreshInterval, func(time.Time) {
		usage, err := s.CPU()
		if err != nil {
			log.Warn("sample cpu", "error", err)
			return
		}
		renderCPU(a.stdout, usage, a.width(), tty)
	})

	session := eventloop.SessionFuncs{
		OnRegister: func() error {
			_, err := s.CPU()
			return err
		},
	}
	loop := eventloop.New(pump, keyReader(a.stdin), eventloop.Config{
		Slice:    cfg.Watch.Slice(),
		QuitKeys: cfg.Watch.QuitRunes(),
		Logger:   log.WithComponent("eventloop").Logger,
	})
	return loop.Run(ctx, session)
}

func renderCPU(w io.Writer, usage sysstat.CPUUsage, width int, clear bool) {
	var b strings.Builder
	if clear {
		b.WriteString(clearScreen)
	}
	for _, line := range usage.Lines() {
		b.WriteString("\n" + console.Center(line, width))
	}
	b.WriteString("\n\n" + console.Center("Press 'q' + Enter to go back.", width) + "\n")
	io.WriteString(w, b.String())
}

func (a *app) isTerminal() bool {
	f, ok := a.stdout.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
