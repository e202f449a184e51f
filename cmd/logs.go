package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/olimci/fiberforge/pkg/events"
	"github.com/olimci/fiberforge/pkg/forge"
	"github.com/olimci/fiberforge/pkg/schema"
	"github.com/urfave/cli/v3"
)

func newLogger(cmd *cli.Command, e environment) (*log.Logger, error) {
	level, err := log.ParseLevel(e.LogLevel)
	if err != nil {
		return nil, usageErrorf("FIBERFORGE_LOG_LEVEL: %v", err)
	}
	switch {
	case cmd.Bool("verbose"):
		level = log.DebugLevel
	case cmd.Bool("quiet"):
		level = log.ErrorLevel
	}

	return log.NewWithOptions(stderr, log.Options{
		Prefix:          "fiberforge",
		ReportTimestamp: false,
		Level:           level,
	}), nil
}

// eventLogger forwards pipeline events to a logger.
type eventLogger struct {
	logger *log.Logger
}

func (h eventLogger) Handle(ev events.Event) {
	keyvals := []any{"stage", ev.Stage}
	if ev.Path != "" {
		keyvals = append(keyvals, "path", ev.Path)
	}

	switch ev.Level {
	case events.Debug:
		h.logger.Debug(ev.Message, keyvals...)
	case events.Info:
		h.logger.Info(ev.Message, keyvals...)
	case events.Warn:
		h.logger.Warn(ev.Message, keyvals...)
	default:
		// failures are reported once, by reportError
		h.logger.Debug(ev.Message, append(keyvals, "err", ev.Error)...)
	}
}

type reportStyle struct {
	enabled bool
	path    lipgloss.Style
	kind    lipgloss.Style
	header  lipgloss.Style
}

func newReportStyle(out io.Writer, e environment) reportStyle {
	colorEnabled := false
	if f, ok := out.(*os.File); ok {
		colorEnabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if !colorEnabled || e.NoColor != "" {
		return reportStyle{}
	}

	return reportStyle{
		enabled: true,
		path:    lipgloss.NewStyle().Foreground(lipgloss.Color("#cdd6f4")), // text
		kind:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")), // red
		header:  lipgloss.NewStyle().Bold(true),
	}
}

func (s reportStyle) render(style lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return style.Render(text)
}

// reporter prints the outcome of a run.
type reporter struct {
	mu     sync.Mutex
	logger *log.Logger
	out    io.Writer
	err    io.Writer
	style  reportStyle
}

// Validation errors go one per line so tools can parse them.
func (r *reporter) validation(errs schema.ValidationErrors) {
	r.mu.Lock()
	defer r.mu.Unlock()

	noun := "errors"
	if len(errs) == 1 {
		noun = "error"
	}
	fmt.Fprintln(r.err, r.style.render(r.style.header, fmt.Sprintf("%d validation %s:", len(errs), noun)))
	for _, ve := range errs {
		fmt.Fprintln(r.err, formatValidationError(ve, r.style))
	}
}

func formatValidationError(ve *schema.ValidationError, style reportStyle) string {
	var b strings.Builder
	if ve.Path != "" {
		b.WriteString(style.render(style.path, ve.Path))
		b.WriteString(": ")
	}
	b.WriteString(style.render(style.kind, ve.Kind.String()))
	b.WriteString(": ")
	b.WriteString(ve.Message)
	return b.String()
}

// summary recaps the warnings and errors of a run.
func (r *reporter) summary(s *events.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.err, s.String())
}

func (r *reporter) report(err error) {
	var ve schema.ValidationErrors
	if errors.As(err, &ve) {
		r.validation(ve)
		return
	}

	msg := err.Error()
	var se *forge.StageError
	if errors.As(err, &se) {
		msg = se.Err.Error()
		r.logger.Error(msg, "stage", se.Stage)
		return
	}
	r.logger.Error(msg)
}
