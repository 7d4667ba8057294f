package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"jarvis-ollama/internal/terminal"
)

// Display renders the conversation in the terminal and implements the
// session's Sink. While input is disabled a spinner runs in place of the
// pending reply.
type Display struct {
	width    int
	renderer *glamour.TermRenderer

	spinnerActive bool
	spinnerDone   chan bool
	turnStart     time.Time
}

// NewDisplay creates a new display sized to the current terminal
func NewDisplay() *Display {
	width, _ := terminal.Size()

	// Markdown renderer for assistant replies
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(width - 10),
	}
	if terminal.IsTerminal() {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}
	renderer, _ := glamour.NewTermRenderer(opts...)

	return &Display{
		width:    width,
		renderer: renderer,
	}
}

// Color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// RenderOutbound displays a user message with a timestamp
func (d *Display) RenderOutbound(text string) {
	fmt.Printf("\n%s┌─ You · %s%s\n", colorGray, time.Now().Format("15:04:05"), colorReset)
	for _, line := range strings.Split(text, "\n") {
		fmt.Printf("%s│%s %s\n", colorGray, colorReset, line)
	}
	fmt.Printf("%s└%s\n", colorGray, colorReset)
}

// RenderInbound displays an assistant reply, rendered as markdown when
// possible
func (d *Display) RenderInbound(text string) {
	d.stopSpinner()

	fmt.Printf("\n%s┌─ J.A.R.V.I.S. · %s%s\n", colorGray, time.Now().Format("15:04:05"), colorReset)

	rendered := text
	if d.renderer != nil {
		if out, err := d.renderer.Render(text); err == nil {
			rendered = strings.TrimRight(out, "\n")
		}
	}
	for _, line := range strings.Split(rendered, "\n") {
		fmt.Printf("%s│%s %s\n", colorGray, colorReset, line)
	}
	fmt.Printf("%s└%s\n", colorGray, colorReset)
}

// SetInputEnabled reflects whether the session accepts input. While input
// is off a spinner runs; when it comes back the turn duration is printed.
func (d *Display) SetInputEnabled(enabled bool) {
	if !enabled {
		d.turnStart = time.Now()
		d.showSpinner("Thinking")
		return
	}

	d.stopSpinner()
	if !d.turnStart.IsZero() {
		fmt.Printf("%s⏱ %s%s\n", colorGray, formatDuration(time.Since(d.turnStart)), colorReset)
		d.turnStart = time.Time{}
	}
}

// ClearScreen clears the terminal
func (d *Display) ClearScreen() {
	fmt.Print("\033[2J\033[H")
}

// PrintWelcome displays the welcome banner
func (d *Display) PrintWelcome(modelName string) {
	fmt.Printf("%s%s╔════════════════════════════════════════╗%s\n", colorBold, colorCyan, colorReset)
	fmt.Printf("%s%s║   J.A.R.V.I.S. - local Ollama chat     ║%s\n", colorBold, colorCyan, colorReset)
	fmt.Printf("%s%s╚════════════════════════════════════════╝%s\n", colorBold, colorCyan, colorReset)
	fmt.Printf("\n%sModel: %s%s\n", colorGray, modelName, colorReset)
	fmt.Printf("%sCommands: /exit | /clear | /history%s\n", colorGray, colorReset)
	fmt.Println()
}

// PrintGoodbye displays the goodbye message
func (d *Display) PrintGoodbye() {
	fmt.Printf("\n%sGoodbye! 👋%s\n", colorCyan, colorReset)
}

// PrintSeparator prints a visual separator
func (d *Display) PrintSeparator() {
	line := strings.Repeat("─", min(d.width, 80))
	fmt.Printf("%s%s%s\n", colorDim, line, colorReset)
}

// PrintPrompt displays the user input prompt
func (d *Display) PrintPrompt() {
	fmt.Printf("\n%s%s❯%s ", colorBold, colorGreen, colorReset)
}

// PrintError displays an error message
func (d *Display) PrintError(err error) {
	fmt.Printf("%s✗ Error: %v%s\n", colorRed, err, colorReset)
}

// PrintInfo displays an info message
func (d *Display) PrintInfo(msg string) {
	fmt.Printf("%sℹ %s%s\n", colorCyan, msg, colorReset)
}

// PrintWarning displays a warning message
func (d *Display) PrintWarning(msg string) {
	fmt.Printf("%s⚠ %s%s\n", colorYellow, msg, colorReset)
}

// PrintSuccess displays a success message
func (d *Display) PrintSuccess(msg string) {
	fmt.Printf("%s✓ %s%s\n", colorGreen, msg, colorReset)
}

// Cleanup ensures the display is in a good state before exit
func (d *Display) Cleanup() {
	d.stopSpinner()
}

// showSpinner displays a spinner with a message until stopSpinner is called
func (d *Display) showSpinner(msg string) {
	if d.spinnerActive {
		d.stopSpinner()
	}

	d.spinnerActive = true
	d.spinnerDone = make(chan bool)

	go func(done chan bool) {
		spinnerChars := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		i := 0
		for {
			select {
			case <-done:
				// Clear the spinner line
				fmt.Printf("\r%s\r", clearLine())
				return
			default:
				fmt.Printf("\r%s%s %s%s", colorCyan, spinnerChars[i], msg, colorReset)
				i = (i + 1) % len(spinnerChars)
				time.Sleep(80 * time.Millisecond)
			}
		}
	}(d.spinnerDone)
}

// stopSpinner stops the currently active spinner
func (d *Display) stopSpinner() {
	if d.spinnerActive {
		d.spinnerActive = false
		d.spinnerDone <- true
		time.Sleep(10 * time.Millisecond) // Give time for goroutine to clean up
	}
}

// clearLine returns the ANSI escape code to clear the current line
func clearLine() string {
	return "\033[2K"
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
