//go:build !windows

package config

import (
	"os"
	"strings"
	"unicode"

	"golang.org/x/term"
)

// CleanFileName drops separators and control characters, leading dots would
// make file hidden.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if sym == os.PathSeparator || sym == os.PathListSeparator || unicode.IsControl(sym) {
			return -1
		}
		return sym
	}, in)
	if out = strings.TrimLeft(out, "."); out == "" {
		return "_bad_file_name_"
	}
	return out
}

// EnableColorOutput reports whether stream is a terminal which understands
// escape sequences.
func EnableColorOutput(stream *os.File) bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(stream.Fd()))
}
