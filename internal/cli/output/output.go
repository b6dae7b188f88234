// Package output renders the interactive client's terminal output.
// Server replies print as-is; status and error lines get ANSI color
// when stdout is a terminal.
package output

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	colorReset  = "\033[0m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	clearScreen = "\033[2J\033[H"
)

func colorized() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// Line prints a server reply verbatim.
func Line(text string) {
	fmt.Println(text)
}

// Status prints a local status line, dimmed on a terminal.
func Status(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if colorized() {
		fmt.Println(colorDim + msg + colorReset)
		return
	}
	fmt.Println(msg)
}

// Error prints a local error line.
func Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if colorized() {
		fmt.Fprintln(os.Stderr, colorRed+msg+colorReset)
		return
	}
	fmt.Fprintln(os.Stderr, msg)
}

// StatusBar renders the connection status line the client shows after
// state changes: server name, area, board or room, RTT.
func StatusBar(server, area, place, rtt string) {
	parts := fmt.Sprintf("[%s] %s", server, area)
	if place != "" {
		parts += " | " + place
	}
	if rtt != "" {
		parts += " | rtt " + rtt
	}
	if colorized() {
		fmt.Println(colorCyan + parts + colorReset)
		return
	}
	fmt.Println(parts)
}

// Clear wipes the terminal on a CTRL CLS control line. Outside a
// terminal it prints a separator instead.
func Clear() {
	if colorized() {
		fmt.Print(clearScreen)
		return
	}
	fmt.Println("----")
}
