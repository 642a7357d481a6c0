package preview

import (
	"fmt"
	"html"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"blockdoc/utils/paths"
)

var (
	attrFileURI = regexp.MustCompile(`((?:src|href|poster)\s*=\s*)(["'])(file://[^"']+)(["'])`)
	cssFileURI  = regexp.MustCompile(`url\(\s*(["']?)(file://[^"')]+)(["']?)\s*\)`)
)

// registry maps names served under /user-files/ to absolute original paths.
type registry struct {
	mu     sync.RWMutex
	byName map[string]string
	byPath map[string]string
}

func newRegistry() *registry {
	return &registry{byName: make(map[string]string), byPath: make(map[string]string)}
}

// register returns stable URL name for path, names of different files never
// collide.
func (r *registry) register(p string) string {
	p = paths.Normalize(p)
	r.mu.Lock()
	defer r.mu.Unlock()

	if name, ok := r.byPath[p]; ok {
		return name
	}
	base := filepath.Base(filepath.FromSlash(p))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := base
	for n := 1; ; n++ {
		if _, taken := r.byName[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
	r.byName[name] = p
	r.byPath[p] = name
	return name
}

func (r *registry) lookupName(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

func (r *registry) lookupPath(p string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byPath[paths.Normalize(p)]
	return name, ok
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

func (r *registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.byName)
	clear(r.byPath)
}

// serverURL maps file:// URI to preview server location: registered files
// and files outside of assets directory go to /user-files/, files under
// assets directory keep their relative path under /assets/.
func (s *Server) serverURL(uri string) string {
	p, ok := paths.FromFileURI(html.UnescapeString(uri))
	if !ok {
		return uri
	}
	if name, ok := s.files.lookupPath(p); ok {
		return userFileURL(name)
	}
	if rel, ok := s.assetPath(p); ok {
		return "/assets/" + escapeSegments(rel)
	}
	return userFileURL(s.files.register(p))
}

// assetPath returns slash separated path of p relative to assets directory.
func (s *Server) assetPath(p string) (string, bool) {
	if s.cfg.AssetsDir == "" {
		return "", false
	}
	root := filepath.FromSlash(paths.Normalize(s.cfg.AssetsDir))
	rel, err := filepath.Rel(root, filepath.FromSlash(paths.Normalize(p)))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func userFileURL(name string) string {
	return "/user-files/" + url.PathEscape(name)
}

func escapeSegments(rel string) string {
	parts := strings.Split(rel, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// RewriteFileURIs replaces file:// URIs in src, href, poster attributes and
// CSS url() with server URLs, see serverURL.
func (s *Server) RewriteFileURIs(page string) string {
	page = attrFileURI.ReplaceAllStringFunc(page, func(m string) string {
		sub := attrFileURI.FindStringSubmatch(m)
		if sub[2] != sub[4] {
			return m
		}
		return sub[1] + sub[2] + html.EscapeString(s.serverURL(sub[3])) + sub[4]
	})
	return cssFileURI.ReplaceAllStringFunc(page, func(m string) string {
		sub := cssFileURI.FindStringSubmatch(m)
		if sub[1] != sub[3] {
			return m
		}
		return "url(" + sub[1] + s.serverURL(sub[2]) + sub[3] + ")"
	})
}
