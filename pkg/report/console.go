package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the console colour styles.
type Theme struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

func newTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Title:   r.NewStyle().Bold(true),
		Success: r.NewStyle().Foreground(lipgloss.Color("#22C55E")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("#EAB308")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	}
}

// Console writes human-readable progress lines. Attempt-level chatter is
// gated by verbose; colours degrade automatically on non-TTY output unless
// forced.
type Console struct {
	out     io.Writer
	verbose bool
	theme   Theme
}

func NewConsole(out io.Writer, verbose, forceColour bool) *Console {
	r := lipgloss.NewRenderer(out)
	if forceColour {
		r.SetColorProfile(termenv.ANSI256)
	}
	return &Console{out: out, verbose: verbose, theme: newTheme(r)}
}

func (c *Console) CheckStarted(index, total int, raw string) {
	fmt.Fprintf(c.out, "%s %s\n", c.theme.Title.Render(fmt.Sprintf("Check %d/%d:", index, total)), raw)
}

func (c *Console) Attempt(raw string, attempt int, reason string) {
	if !c.verbose {
		return
	}
	fmt.Fprintf(c.out, "  %s\n", c.theme.Muted.Render(fmt.Sprintf("attempt %d: %s", attempt, reason)))
}

func (c *Console) Ready(raw string, attempts int) {
	noun := "attempts"
	if attempts == 1 {
		noun = "attempt"
	}
	fmt.Fprintf(c.out, "%s %s %s\n",
		c.theme.Success.Render("ready"), raw,
		c.theme.Muted.Render(fmt.Sprintf("(%d %s)", attempts, noun)))
}

func (c *Console) Failed(raw string, reason string, code int) {
	fmt.Fprintf(c.out, "%s %s: %s %s\n",
		c.theme.Error.Render("failed"), raw, reason,
		c.theme.Muted.Render(fmt.Sprintf("(exit %d)", code)))
}

func (c *Console) AllReady(total int) {
	noun := "targets"
	if total == 1 {
		noun = "target"
	}
	fmt.Fprintf(c.out, "%s\n", c.theme.Success.Render(fmt.Sprintf("all %d %s ready", total, noun)))
}
