//go:build windows

package config

import (
	"os"
	"strings"
	"unicode"

	"golang.org/x/sys/windows"
	"golang.org/x/term"
)

// names Windows reserves for devices regardless of extension
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// CleanFileName drops characters Windows does not allow in file names and
// renames reserved device names. Trailing dots and spaces are silently
// removed by the system, so they are trimmed here.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if unicode.IsControl(sym) || strings.ContainsRune(`<>":/\|?*`, sym) {
			return -1
		}
		return sym
	}, in)
	out = strings.TrimRight(out, ". ")
	if out == "" {
		return "_bad_file_name_"
	}
	stem, _, _ := strings.Cut(out, ".")
	if reservedNames[strings.ToUpper(stem)] {
		out = "_" + out
	}
	return out
}

// EnableColorOutput turns on VT100 processing for console stream. Consoles
// before Windows 10 do not support it.
func EnableColorOutput(stream *os.File) bool {
	if windows.RtlGetVersion().MajorVersion < 10 || !term.IsTerminal(int(stream.Fd())) {
		return false
	}
	h := windows.Handle(stream.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	return windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil
}
