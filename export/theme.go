package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	"blockdoc/utils/paths"
)

// Theme is the stylesheet applied to exported document.
type Theme struct {
	CSS []byte
	// Path is empty for built-in theme, relative url() references can only
	// be resolved when it is set.
	Path string
}

// LoadTheme reads theme from path or returns built-in one when path is empty.
func LoadTheme(path string, builtin []byte) (Theme, error) {
	if path == "" {
		return Theme{CSS: builtin}, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Theme{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Theme{}, fmt.Errorf("unable to read theme css from %q: %w", path, err)
	}
	return Theme{CSS: data, Path: abs}, nil
}

// URLResolver maps absolute local file referenced from CSS to new url()
// value. Returning false leaves reference untouched.
type URLResolver func(abs string) (string, bool)

// RewriteCSSURLs tokenizes stylesheet and replaces url() references which
// point to local files, resolving them relative to baseDir. data: and
// external URLs are kept as is.
func RewriteCSSURLs(data []byte, baseDir string, resolve URLResolver, log *zap.Logger) []byte {
	if log == nil {
		log = zap.NewNop()
	}
	var out bytes.Buffer
	out.Grow(len(data))

	lexer := css.NewLexer(parse.NewInput(bytes.NewReader(data)))
	for {
		tt, text := lexer.Next()
		if tt == css.ErrorToken {
			if err := lexer.Err(); err != nil && err.Error() != "EOF" {
				log.Debug("CSS tokenizer stopped", zap.Error(err))
			}
			break
		}
		if tt != css.URLToken {
			out.Write(text)
			continue
		}

		ref := cssURLValue(string(text))
		target, ok := resolveCSSRef(ref, baseDir)
		if !ok {
			out.Write(text)
			continue
		}
		nv, ok := resolve(target)
		if !ok {
			log.Debug("CSS reference left as is", zap.String("url", ref))
			out.Write(text)
			continue
		}
		out.WriteString(`url("` + nv + `")`)
	}
	return out.Bytes()
}

func cssURLValue(token string) string {
	s := token
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, ")")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return s
}

// resolveCSSRef turns url() value into absolute file path when it refers to
// local file.
func resolveCSSRef(ref, baseDir string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	if p, ok := paths.FromFileURI(ref); ok {
		return p, true
	}
	if paths.IsURI(ref) || strings.Contains(ref, "://") || strings.HasPrefix(ref, "//") {
		return "", false
	}
	// drop query and fragment, fonts are often referenced as font.woff?#iefix
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref), true
	}
	if baseDir == "" {
		return "", false
	}
	return filepath.Join(baseDir, filepath.FromSlash(ref)), true
}

// styleHead produces head markup for theme. Embedded theme goes inline,
// otherwise stylesheet is linked when it has a location.
func styleHead(css []byte, href string) string {
	if href != "" {
		return `<link rel="stylesheet" href="` + escapeAttr(href) + `">`
	}
	// closing tag inside stylesheet would terminate element early
	s := strings.ReplaceAll(string(css), "</style", `<\/style`)
	return "<style>\n" + s + "\n</style>"
}

func escapeAttr(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")
	return r.Replace(s)
}
