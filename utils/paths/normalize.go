// Package paths keeps the single path normalizer used for media references.
// Blocks, discovery and the export updater must agree byte for byte on the
// normalized form, otherwise rewrite mappings silently miss.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const quotes = "\"'`"

// Clean strips surrounding whitespace and quotes, which is how paths arrive
// when pasted from a file manager.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	for len(s) >= 2 && strings.ContainsRune(quotes, rune(s[0])) && s[len(s)-1] == s[0] {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return strings.Trim(s, quotes+" \t")
}

// Normalize cleans the raw value and, when it names an existing file,
// resolves it to an absolute path with forward slashes. Values that do not
// exist are returned cleaned but otherwise unchanged.
func Normalize(raw string) string {
	s := Clean(raw)
	if s == "" || IsURI(s) {
		return s
	}
	if _, err := os.Stat(s); err != nil {
		return s
	}
	abs, err := filepath.Abs(s)
	if err != nil {
		return s
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return filepath.ToSlash(abs)
}

// IsURI reports whether value is already a URI that must not be treated as a
// local path: data, file and http(s) schemes.
func IsURI(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, p := range [...]string{"data:", "file://", "http://", "https://"} {
		if strings.HasPrefix(v, p) {
			return true
		}
	}
	return false
}

// FileURI converts normalized absolute path into file:// URI.
func FileURI(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		// windows drive letter
		p = "/" + p
	}
	return "file://" + p
}

// FromFileURI reverses FileURI, second value is false when uri is not file://.
func FromFileURI(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return "", false
	}
	// file:///C:/dir -> C:/dir
	if len(rest) > 2 && rest[0] == '/' && rest[2] == ':' {
		rest = rest[1:]
	}
	return filepath.FromSlash(rest), true
}

// LooksLikeBase64 detects raw base64 payloads pasted into path fields.
func LooksLikeBase64(value string) bool {
	v := Clean(value)
	if strings.HasPrefix(strings.ToLower(v), "data:") && strings.Contains(v, ";base64,") {
		return true
	}
	if len(v) < 128 || strings.ContainsAny(v, " \\.") {
		return false
	}
	for _, r := range v {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '+', r == '/', r == '=', r == '\n', r == '\r':
		default:
			return false
		}
	}
	return true
}
