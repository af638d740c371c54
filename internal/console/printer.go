// Package console renders macstat output on a terminal and reads quit keys
// from stdin without blocking the event loop.
package console

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"macstat/internal/device"
	"macstat/internal/logging"
)

// RuleWidth is the width of the separator printed after each event.
const RuleWidth = 80

// Config controls how events are rendered.
type Config struct {
	Color      bool
	Rule       bool
	TimeFormat string
}

// Printer writes event lines to out and status lines to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer

	mu       sync.Mutex
	cfg      Config
	renderer *lipgloss.Renderer
	styles   styles

	// profile, when set, overrides terminal detection.
	profile *termenv.Profile

	logger      *slog.Logger
	writeFailed bool
}

type styles struct {
	connected    lipgloss.Style
	disconnected lipgloss.Style
	notice       lipgloss.Style
	err          lipgloss.Style
	rule         lipgloss.Style
}

// NewPrinter creates a printer. Colour is only emitted when cfg.Color is
// set and out is a terminal that supports it.
func NewPrinter(out, errOut io.Writer, cfg Config) *Printer {
	p := &Printer{
		out:    out,
		errOut: errOut,
		logger: logging.Default().WithComponent("console").Logger,
	}
	p.apply(cfg)
	return p
}

// SetLogger replaces the logger that receives output failures.
func (p *Printer) SetLogger(l *slog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l != nil {
		p.logger = l
	}
}

// SetConfig replaces the rendering configuration.
func (p *Printer) SetConfig(cfg Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apply(cfg)
}

func (p *Printer) apply(cfg Config) {
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = device.DefaultTimeLayout
	}
	r := lipgloss.NewRenderer(p.out)
	switch {
	case !cfg.Color:
		r.SetColorProfile(termenv.Ascii)
	case p.profile != nil:
		r.SetColorProfile(*p.profile)
	}
	p.cfg = cfg
	p.renderer = r

	p.styles = styles{
		connected:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		disconnected: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		notice:       r.NewStyle().Bold(true),
		err:          r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		rule:         r.NewStyle().Faint(true),
	}
}

// PrintEvent writes one event line, followed by a rule when enabled.
func (p *Printer) PrintEvent(e device.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	style := p.styles.connected
	if e.Direction == device.Disconnected {
		style = p.styles.disconnected
	}

	var b strings.Builder
	b.WriteString(style.Render(e.Line(p.cfg.TimeFormat)))
	b.WriteByte('\n')
	if p.cfg.Rule {
		b.WriteString(p.styles.rule.Render(strings.Repeat("-", RuleWidth)))
		b.WriteByte('\n')
	}
	p.write(p.out, b.String())
}

// write reports the first failed write only; a closed stdout fails every
// line after it.
func (p *Printer) write(w io.Writer, s string) {
	if _, err := io.WriteString(w, s); err != nil && !p.writeFailed {
		p.writeFailed = true
		p.logger.Debug("write output", "error", err)
	}
}

// Notice writes a "[*]" status line to out.
func (p *Printer) Notice(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.write(p.out, p.styles.notice.Render("[*] "+msg)+"\n")
}

// Error writes a "[!]" line to errOut.
func (p *Printer) Error(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.write(p.errOut, p.styles.err.Render("[!] "+msg)+"\n")
}
