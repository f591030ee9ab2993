//go:build linux

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// terminalWidth reports the stderr terminal width, falling back to 80 when
// stderr is not a terminal.
func terminalWidth() int {
	ws, err := unix.IoctlGetWinsize(int(os.Stderr.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 80
	}
	return int(ws.Col)
}
