// Package ui provides terminal styling for lb command output, with adaptive
// light/dark colors and a plain fallback when stdout is not a terminal.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	ColorOpen = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
	ColorInProgress = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorClosed = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorBlocked = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
)

var (
	OpenStyle       = lipgloss.NewStyle().Foreground(ColorOpen)
	InProgressStyle = lipgloss.NewStyle().Foreground(ColorInProgress)
	ClosedStyle     = lipgloss.NewStyle().Foreground(ColorClosed)
	BlockedStyle    = lipgloss.NewStyle().Foreground(ColorBlocked)
	MutedStyle      = lipgloss.NewStyle().Foreground(ColorMuted)
	HeaderStyle     = lipgloss.NewStyle().Bold(true)
	IDStyle         = lipgloss.NewStyle().Bold(true).Foreground(ColorOpen)
)

// Interactive reports whether stdout is a terminal. Non-interactive output
// (pipes, redirects) is rendered without escape sequences.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) &&
		termenv.EnvColorProfile() != termenv.Ascii
}
