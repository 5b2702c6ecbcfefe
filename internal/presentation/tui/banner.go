package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the firstaid banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   __ _          _        _     _ ", "#f87171"},
		{"  / _(_)_ __ ___| |_ __ _(_) __| |", "#ef4444"},
		{" | |_| | '__/ __| __/ _` | |/ _` |", "#dc2626"},
		{" |  _| | |  \\__ \\ || (_| | | (_| |", "#b91c1c"},
		{" |_| |_|_|  |___/\\__\\__,_|_|\\__,_|", "#991b1b"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+strings.TrimSpace(version)+"  ·  Emergencias: llame al 160").Faint())
	fmt.Fprintln(w)
}
