package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"autocraft/internal/action"
	"autocraft/internal/decision"
)

// errQuit ends a session at the user's request.
var errQuit = errors.New("quit requested")

type lineKind string

const (
	lineSystem  lineKind = "system"
	lineThought lineKind = "thought"
	lineBot     lineKind = "bot"
	lineUser    lineKind = "user"
	lineError   lineKind = "error"
)

var lineColors = map[lineKind]lipgloss.Color{
	lineSystem:  lipgloss.Color("#00BCD4"), // Cyan
	lineThought: lipgloss.Color("#E040FB"), // Magenta
	lineBot:     lipgloss.Color("#8BC34A"), // Lime Green
	lineUser:    lipgloss.Color("#F2F2F2"), // White
	lineError:   lipgloss.Color("#E53935"), // Red
}

// Console is the terminal transcript. Lines are tagged by kind and colored
// when the output is a terminal.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	styles map[lineKind]lipgloss.Style
}

// NewConsole writes the transcript to out.
func NewConsole(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	styles := make(map[lineKind]lipgloss.Style, len(lineColors))
	for kind, color := range lineColors {
		styles[kind] = r.NewStyle().Foreground(color)
	}
	styles[lineError] = styles[lineError].Bold(true)
	return &Console{out: out, styles: styles}
}

func (c *Console) line(kind lineKind, format string, args ...interface{}) {
	msg := fmt.Sprintf("[%s] %s", strings.ToUpper(string(kind)), fmt.Sprintf(format, args...))
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.styles[kind].Render(msg))
}

func (c *Console) System(format string, args ...interface{}) { c.line(lineSystem, format, args...) }
func (c *Console) Bot(format string, args ...interface{}) { c.line(lineBot, format, args...) }
func (c *Console) User(format string, args ...interface{}) { c.line(lineUser, format, args...) }
func (c *Console) Error(format string, args ...interface{}) { c.line(lineError, format, args...) }

// Decision prints the engine's reasoning for a decided action.
func (c *Console) Decision(cmd decision.Command, a action.Action) {
	thought := a.Thought
	if thought == "" {
		thought = "No thought provided by AI."
	}
	c.line(lineThought, "%s", thought)
	c.System("%s -> %s", cmd.Source, a)
}

// ReadCommands feeds non-empty input lines to handle until ctx ends, the
// input is exhausted, or the user types exit.
func (c *Console) ReadCommands(ctx context.Context, in io.Reader, handle func(string)) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	// The scanner cannot be interrupted; it is abandoned on shutdown.
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "exit", "quit":
				return errQuit
			}
			handle(line)
		}
	}
}
