// Package preview serves last generated document over HTTP and notifies
// connected viewers when it changes.
package preview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"blockdoc/config"
)

// ErrNotRunning is returned when stopping server which was not started.
var ErrNotRunning = errors.New("preview server is not running")

const loadingPage = `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>Preview</title></head>
<body><p class="preview-loading">Preparing preview...</p></body></html>
`

// Server keeps current HTML and serves it with push channel for reloads.
type Server struct {
	cfg config.PreviewConfig
	log *zap.Logger

	mu      sync.RWMutex
	content string
	running bool

	files *registry
	hub   *hub

	httpSrv, pushSrv   *http.Server
	httpAddr, pushAddr net.Addr
	wg                 sync.WaitGroup
}

func NewServer(cfg *config.PreviewConfig, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:   *cfg,
		log:   log,
		files: newRegistry(),
		hub:   newHub(cfg.PingInterval, log.Named("push")),
	}
	return s
}

// Handler returns router for HTTP port.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.serveContent)
	r.Get("/assets/*", s.serveAsset)
	r.Get("/user-files/{name}", s.serveUserFile)
	return r
}

// PushHandler returns handler for push channel port. It is bound to current
// set of viewers, so it is created anew on every Start.
func (s *Server) PushHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.hub.ServeHTTP)
	return r
}

// UpdateContent stores new page and notifies viewers, returns number of
// viewers notified.
func (s *Server) UpdateContent(page string) int {
	s.mu.Lock()
	s.content = page
	s.mu.Unlock()

	h := s.currentHub()
	if h.count() == 0 {
		return 0
	}
	n := h.broadcast(newMessage(MsgContentUpdate))
	s.log.Debug("Content update pushed", zap.Int("viewers", n), zap.Int("bytes", len(page)))
	return n
}

func (s *Server) Content() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

// RegisterUserFile makes file available under /user-files/, returns its name.
func (s *Server) RegisterUserFile(p string) string {
	return s.files.register(p)
}

func (s *Server) Viewers() int {
	return s.currentHub().count()
}

func (s *Server) currentHub() *hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

func (s *Server) serveContent(w http.ResponseWriter, _ *http.Request) {
	page := s.Content()
	if page == "" {
		page = loadingPage
	}
	page = injectClient(page, s.pushPort())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	_, _ = w.Write([]byte(page))
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AssetsDir == "" {
		http.NotFound(w, r)
		return
	}
	rel := strings.TrimPrefix(path.Clean("/"+chi.URLParam(r, "*")), "/")
	if rel == "" {
		http.NotFound(w, r)
		return
	}
	dir, name := path.Split(rel)
	for _, candidate := range caseVariants(name) {
		p := filepath.Join(s.cfg.AssetsDir, filepath.FromSlash(dir), candidate)
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			noCache(w)
			http.ServeFile(w, r, p)
			return
		}
	}
	s.log.Debug("Asset not found", zap.String("name", rel))
	http.NotFound(w, r)
}

func (s *Server) serveUserFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := s.files.lookupName(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	fi, err := os.Stat(filepath.FromSlash(p))
	if err != nil || !fi.Mode().IsRegular() {
		s.log.Debug("Registered file is gone", zap.String("name", name), zap.String("path", p))
		http.NotFound(w, r)
		return
	}
	noCache(w)
	http.ServeFile(w, r, filepath.FromSlash(p))
}

func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}

// caseVariants lists candidate names: as is, lower case, first letter upper
// case, upper case. Duplicates are removed.
func caseVariants(name string) []string {
	out := make([]string, 0, 4)
	add := func(s string) {
		for _, v := range out {
			if v == s {
				return
			}
		}
		out = append(out, s)
	}
	add(name)
	lower := strings.ToLower(name)
	add(lower)
	if r, size := utf8.DecodeRuneInString(lower); r != utf8.RuneError {
		add(string(unicode.ToUpper(r)) + lower[size:])
	}
	add(strings.ToUpper(name))
	return out
}

// Start binds HTTP and push ports searching upward from configured ones and
// serves both in background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("preview server is already running")
	}

	httpLn, err := listen(ctx, s.cfg.Host, s.cfg.HTTPPort, s.cfg.PortAttempts, 0)
	if err != nil {
		return fmt.Errorf("unable to bind http port: %w", err)
	}
	pushLn, err := listen(ctx, s.cfg.Host, s.cfg.PushPort, s.cfg.PortAttempts, httpLn.Addr().(*net.TCPAddr).Port)
	if err != nil {
		return multierr.Append(fmt.Errorf("unable to bind push port: %w", err), httpLn.Close())
	}

	if s.hub.isClosed() {
		s.hub = newHub(s.cfg.PingInterval, s.log.Named("push"))
	}
	s.httpAddr, s.pushAddr = httpLn.Addr(), pushLn.Addr()
	s.httpSrv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second, ErrorLog: zap.NewStdLog(s.log)}
	s.pushSrv = &http.Server{Handler: s.PushHandler(), ReadHeaderTimeout: 10 * time.Second, ErrorLog: zap.NewStdLog(s.log)}

	for _, pair := range []struct {
		srv *http.Server
		ln  net.Listener
	}{{s.httpSrv, httpLn}, {s.pushSrv, pushLn}} {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := pair.srv.Serve(pair.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("Preview listener failed", zap.String("addr", pair.ln.Addr().String()), zap.Error(err))
			}
		}()
	}
	s.running = true
	s.log.Info("Preview server started", zap.String("url", s.urlLocked()), zap.Stringer("push", s.pushAddr))
	return nil
}

// listen tries attempts consecutive ports starting from port, skipping one
// which is already taken by us.
func listen(ctx context.Context, host string, port, attempts, skip int) (net.Listener, error) {
	var (
		lc   net.ListenConfig
		errs error
	)
	attempts = max(attempts, 1)
	for p := port; p < port+attempts && p <= 65535; p++ {
		if skip > 0 && p == skip {
			continue
		}
		ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err == nil {
			return ln, nil
		}
		errs = multierr.Append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("no free port in range %d-%d: %w", port, port+attempts-1, errs)
}

// Stop notifies viewers, closes push channels and shuts down both listeners.
// User file registry is cleared.
func (s *Server) Stop(ctx context.Context) (err error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	httpSrv, pushSrv, h := s.httpSrv, s.pushSrv, s.hub
	s.mu.Unlock()

	h.shutdown()

	err = multierr.Append(err, httpSrv.Shutdown(ctx))
	err = multierr.Append(err, pushSrv.Shutdown(ctx))
	s.wg.Wait()
	s.files.reset()

	s.log.Info("Preview server stopped")
	return err
}

// URL returns address viewers should open.
func (s *Server) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.urlLocked()
}

func (s *Server) urlLocked() string {
	if s.httpAddr == nil {
		return ""
	}
	return "http://" + displayAddr(s.httpAddr)
}

// PushURL returns push channel address.
func (s *Server) PushURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pushAddr == nil {
		return ""
	}
	return "ws://" + displayAddr(s.pushAddr) + "/"
}

func (s *Server) pushPort() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.pushAddr.(*net.TCPAddr); ok {
		return a.Port
	}
	return s.cfg.PushPort
}

func displayAddr(a net.Addr) string {
	ta, ok := a.(*net.TCPAddr)
	if !ok {
		return a.String()
	}
	host := "127.0.0.1"
	if !ta.IP.IsUnspecified() {
		host = ta.IP.String()
	}
	return net.JoinHostPort(host, strconv.Itoa(ta.Port))
}

// injectClient adds reload script before closing body tag.
func injectClient(page string, port int) string {
	script := fmt.Sprintf(clientScript, port)
	if i := strings.LastIndex(strings.ToLower(page), "</body>"); i >= 0 {
		return page[:i] + script + page[i:]
	}
	return page + script
}

const clientScript = `<script>
(function () {
  var ws = new WebSocket("ws://" + location.hostname + ":%d/");
  ws.onmessage = function (e) {
    var msg = JSON.parse(e.data);
    if (msg.type === "content_update") {
      location.reload();
    } else if (msg.type === "server_shutdown") {
      document.title = "[stopped] " + document.title;
    }
  };
})();
</script>
`
