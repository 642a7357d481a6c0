package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"blockdoc/config"
	"blockdoc/utils/paths"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrUnreadable      = errors.New("file is not readable")
	ErrInvalidDataURL  = errors.New("invalid data URL")
)

// Progress is called after every file of a batch is processed.
type Progress func(done, total int, path string)

// Embedder converts files into data URLs. Results are cached by resolved
// absolute path, so it is safe to share between exports and goroutines.
type Embedder struct {
	workers       int
	maxImageWidth int
	log           *zap.Logger

	mu    sync.Mutex
	cache map[string]string
}

func NewEmbedder(cfg *config.MediaConfig, log *zap.Logger) *Embedder {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Embedder{
		workers: runtime.NumCPU(),
		log:     log,
		cache:   make(map[string]string),
	}
	if cfg != nil {
		if cfg.Workers > 0 {
			e.workers = cfg.Workers
		}
		e.maxImageWidth = cfg.MaxImageWidth
	}
	return e
}

// DataURL formats payload as data:<mime>;base64,<payload>.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL parses base64 data URL back into raw bytes and MIME type.
func DecodeDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURL)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("%w: only base64 encoding is supported", ErrInvalidDataURL)
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}
	return data, mimeType, nil
}

// Embed reads the file and returns its data URL.
func (e *Embedder) Embed(path string) (string, error) {
	key := paths.Normalize(path)

	e.mu.Lock()
	if v, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return v, nil
	}
	e.mu.Unlock()

	if !IsSupported(key) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, path)
	}
	fi, err := os.Stat(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s: not a regular file", ErrUnreadable, path)
	}
	data, err := os.ReadFile(key)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	mimeType := DetectMIME(key, data)
	data, mimeType = e.downscale(key, data, mimeType)

	url := DataURL(mimeType, data)
	e.mu.Lock()
	e.cache[key] = url
	e.mu.Unlock()
	return url, nil
}

// downscale shrinks raster images wider than configured maximum. Any
// failure keeps original data.
func (e *Embedder) downscale(path string, data []byte, mimeType string) ([]byte, string) {
	if e.maxImageWidth <= 0 {
		return data, mimeType
	}
	format, err := imaging.FormatFromFilename(path)
	if err != nil || format == imaging.GIF {
		// animated gifs would lose frames
		return data, mimeType
	}
	w, _ := dimensions(data)
	if w <= e.maxImageWidth {
		return data, mimeType
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		e.log.Debug("Unable to decode image for resizing", zap.String("path", path), zap.Error(err))
		return data, mimeType
	}
	img = imaging.Resize(img, e.maxImageWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		e.log.Debug("Unable to encode resized image", zap.String("path", path), zap.Error(err))
		return data, mimeType
	}
	e.log.Debug("Image downscaled", zap.String("path", filepath.Base(path)),
		zap.Int("width", e.maxImageWidth), zap.Int("from", len(data)), zap.Int("to", buf.Len()))
	return buf.Bytes(), mimeType
}

// EmbedBatch embeds files in parallel. Failed conversions map to empty
// string, partial success is expected. Error is returned only when context
// is cancelled, results gathered so far are still returned.
func (e *Embedder) EmbedBatch(ctx context.Context, files []string, progress Progress) (map[string]string, error) {
	out := make(map[string]string, len(files))
	if len(files) == 0 {
		return out, nil
	}

	type result struct {
		path string
		url  string
		err  error
	}

	jobs := make(chan string)
	results := make(chan result)

	var wg sync.WaitGroup
	for range min(e.workers, len(files)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				url, err := e.Embed(p)
				results <- result{path: p, url: url, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range files {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	done, failed := 0, 0
	for r := range results {
		done++
		if r.err != nil {
			failed++
			e.log.Warn("Unable to embed file", zap.String("path", r.path), zap.Error(r.err))
		}
		out[r.path] = r.url
		if progress != nil {
			progress(done, len(files), r.path)
		}
	}
	e.log.Debug("Batch embedding finished", zap.Int("files", len(files)), zap.Int("failed", failed))
	return out, ctx.Err()
}

// ClearCache drops all cached data URLs.
func (e *Embedder) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.cache)
}

func (e *Embedder) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}
