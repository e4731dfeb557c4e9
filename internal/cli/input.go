// Package cli is an interactive lookup loop for trying numbers by hand
package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vanityserve/vanityserve/internal/utils"
	"github.com/vanityserve/vanityserve/pkg/lookup"
	"github.com/vanityserve/vanityserve/pkg/phone"
)

var (
	displayStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	fallbackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Lookuper is the part of *lookup.Service the CLI needs.
type Lookuper interface {
	Lookup(ctx context.Context, raw string) (lookup.Response, error)
}

// Options controls what each lookup prints.
type Options struct {
	Limit      int
	ShowSpeech bool
	ShowScores bool
	Timeout    time.Duration
	// Words is the loaded dictionary size, shown in the banner.
	Words int
}

// InputHandler reads numbers line by line and prints their renderings.
// Lines starting with ':' are commands: :limit N, :speech, :scores, :quit.
type InputHandler struct {
	svc  Lookuper
	opts Options
	in   io.Reader
	out  *log.Logger
}

// NewInputHandler creates a handler on stdin, printing to stderr.
func NewInputHandler(svc Lookuper, opts Options) *InputHandler {
	return NewInputHandlerWithIO(svc, opts, os.Stdin, os.Stderr)
}

// NewInputHandlerWithIO creates a handler reading r and printing to w.
func NewInputHandlerWithIO(svc Lookuper, opts Options, r io.Reader, w io.Writer) *InputHandler {
	if opts.Limit < 1 {
		opts.Limit = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &InputHandler{
		svc:  svc,
		opts: opts,
		in:   r,
		out:  log.NewWithOptions(w, log.Options{Level: log.GetLevel()}),
	}
}

// Start runs the loop until input ends, ctx is done or :quit is entered.
func (h *InputHandler) Start(ctx context.Context) error {
	h.out.Print("vanityserve CLI")
	if h.opts.Words > 0 {
		h.out.Printf("%s words loaded", utils.FormatWithCommas(h.opts.Words))
	}
	h.out.Print("type a phone number and press Enter (:quit or Ctrl+C to exit):")

	scanner := bufio.NewScanner(h.in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.out.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if !h.handleCommand(line) {
				return nil
			}
			continue
		}
		h.handleInput(ctx, line)
	}
}

// handleCommand applies a ':' command and reports whether to keep going.
func (h *InputHandler) handleCommand(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q":
		return false
	case ":speech":
		h.opts.ShowSpeech = !h.opts.ShowSpeech
		h.out.Printf("speech %s", onOff(h.opts.ShowSpeech))
	case ":scores":
		h.opts.ShowScores = !h.opts.ShowScores
		h.out.Printf("scores %s", onOff(h.opts.ShowScores))
	case ":limit":
		if len(fields) != 2 {
			h.out.Error("usage: :limit N")
			break
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			h.out.Errorf("Invalid limit: %s", fields[1])
			break
		}
		h.opts.Limit = n
		h.out.Printf("limit %d", n)
	default:
		h.out.Errorf("Unknown command: %s", fields[0])
	}
	return true
}

func (h *InputHandler) handleInput(ctx context.Context, raw string) {
	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := h.svc.Lookup(ctx, raw)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, phone.ErrInvalidNumber) {
			h.out.Warn(err.Error())
			return
		}
		h.out.Errorf("Lookup failed: %v", err)
		return
	}
	log.Debugf("Took [ %v ] for %s (cached: %v)", elapsed, raw, resp.Cached)

	r := resp.Result
	if r.Fallback {
		h.out.Print(fallbackStyle.Render("ranking fell back to programmatic order: " + r.FallbackReason))
	}
	n := min(h.opts.Limit, len(r.Candidates))
	h.out.Printf("%d renderings for %s (%s):", n, r.Digits, r.Ranking)
	for i, c := range r.Candidates[:n] {
		line := displayStyle.Render(c.Display)
		if h.opts.ShowScores {
			line += " (score " + strconv.FormatFloat(c.Score, 'f', -1, 64) + ")"
		}
		h.out.Printf("%2d. %s", i+1, line)
		if h.opts.ShowSpeech {
			h.out.Printf("    %s", c.Speech)
		}
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
