// Package export turns block documents into single HTML page.
package export

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"blockdoc/block"
	"blockdoc/common"
	"blockdoc/config"
	"blockdoc/media"
	"blockdoc/utils/paths"
)

//go:embed default.css
var DefaultTheme []byte

//go:embed bundle.js
var Bundle string

// ErrEmbeddingInfeasible is matched by every *InfeasibleError.
var ErrEmbeddingInfeasible = errors.New("media embedding is infeasible")

// InfeasibleError is returned by pre-flight check of embed strategy.
// Nothing has been written when it is returned.
type InfeasibleError struct {
	Reason   string
	Estimate media.Estimate
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrEmbeddingInfeasible, e.Reason)
}

func (e *InfeasibleError) Unwrap() error {
	return ErrEmbeddingInfeasible
}

// Options controls single export run.
type Options struct {
	Title string
	// OutputDir receives copied assets, required for assets strategy.
	OutputDir     string
	Media         common.MediaStrategy
	AssetsDirName string
	// EmbedTheme inlines stylesheet, otherwise theme file is linked.
	EmbedTheme bool
	// EmbedCSSAssets turns files referenced from theme url() into data URLs.
	EmbedCSSAssets bool
	// ThemePath selects stylesheet, built-in theme is used when empty.
	ThemePath string
	// DefaultTheme replaces built-in stylesheet when ThemePath is empty.
	DefaultTheme []byte
	Progress     media.Progress
}

// Result of successful generation.
type Result struct {
	HTML string
	// local references left unresolved after rewrite
	Missing []string
	// discovered files which failed validation
	Problematic []string
	Estimate    media.Estimate
	// references changed in working copy
	Rewritten int
	// source path to copied asset, assets strategy only
	Copied map[string]string
	// local files referenced by file URI, link strategy only
	Linked []string
}

// Generator runs export pipeline: working copy, media strategy, composition
// and cleanup. Edited document is never modified.
type Generator struct {
	discovery *media.Discovery
	embedder  *media.Embedder
	updater   *Updater
	log       *zap.Logger
}

func NewGenerator(cfg *config.MediaConfig, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	limits := media.DefaultLimits()
	if cfg != nil {
		limits = media.LimitsFromConfig(cfg)
	}
	return &Generator{
		discovery: media.NewDiscovery(limits, log.Named("discovery")),
		embedder:  media.NewEmbedder(cfg, log.Named("embed")),
		updater:   NewUpdater(log.Named("updater")),
		log:       log,
	}
}

func (g *Generator) Discovery() *media.Discovery {
	return g.discovery
}

// GenerateHTML produces complete page for doc according to opts.
func (g *Generator) GenerateHTML(ctx context.Context, doc block.Document, opts Options) (_ *Result, rerr error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Media == common.MediaStrategyAssets && opts.OutputDir == "" {
		return nil, errors.New("output directory is required to copy assets")
	}
	if opts.AssetsDirName == "" {
		opts.AssetsDirName = "Assets"
	}

	work := g.updater.CopyForExport(doc)
	var copied *media.AssetCopy
	defer func() { g.cleanup(copied, rerr) }()

	res := &Result{}
	infos := g.discovery.DiscoverAllMedia(work)
	res.Estimate = g.discovery.Estimate(infos)
	res.Problematic = res.Estimate.Problematic

	var (
		mapping map[string]string
		err     error
	)
	switch opts.Media {
	case common.MediaStrategyEmbed:
		mapping, err = g.embedMapping(ctx, infos, res.Estimate, opts.Progress)
	case common.MediaStrategyAssets:
		copied, err = media.CopyAssets(ctx, media.ValidPaths(infos), opts.OutputDir, opts.AssetsDirName, opts.Progress, g.log.Named("assets"))
		if copied != nil {
			mapping = copied.Mapping
			res.Copied = mapping
		}
	case common.MediaStrategyLink:
		mapping = linkMapping(infos)
		res.Linked = slices.Sorted(maps.Keys(mapping))
	default:
		err = fmt.Errorf("unsupported media strategy %q", opts.Media)
	}
	if err != nil {
		return nil, err
	}

	res.Rewritten = g.updater.ApplyMediaMapping(work, mapping)
	res.Missing = g.updater.ValidateMediaUpdates(work, mapping).Missing

	head, err := g.themeHead(opts)
	if err != nil {
		return nil, err
	}
	res.HTML = ComposeDocument(work, Page{Title: opts.Title, Head: head, Script: Bundle})

	g.log.Debug("HTML generated",
		zap.Stringer("media", opts.Media),
		zap.Int("files", len(infos)),
		zap.Int("rewritten", res.Rewritten),
		zap.Int("missing", len(res.Missing)),
		zap.Int("bytes", len(res.HTML)))
	return res, nil
}

// embedMapping runs pre-flight check and converts every valid file.
func (g *Generator) embedMapping(ctx context.Context, infos map[string]*media.MediaInfo, est media.Estimate, progress media.Progress) (map[string]string, error) {
	switch {
	case len(infos) > 0 && est.ValidCount == 0:
		return nil, &InfeasibleError{Reason: fmt.Sprintf("none of %d media files is usable", len(infos)), Estimate: est}
	case est.ExceedsLimit:
		return nil, &InfeasibleError{
			Reason:   fmt.Sprintf("estimated embedded size %d exceeds limit %d", est.TotalEmbedded, g.discovery.Limits().MaxTotalSize),
			Estimate: est,
		}
	}
	if est.ExceedsWarning {
		g.log.Warn("Embedded media will make document large", zap.Int64("estimated", est.TotalEmbedded), zap.Strings("large", est.LargeFiles))
	}

	urls, err := g.embedder.EmbedBatch(ctx, media.ValidPaths(infos), progress)
	if err != nil {
		return nil, err
	}
	mapping := make(map[string]string, len(urls))
	for p, u := range urls {
		if u != "" {
			mapping[p] = u
		}
	}
	return mapping, nil
}

// linkMapping points every existing file to its file:// URI.
func linkMapping(infos map[string]*media.MediaInfo) map[string]string {
	mapping := make(map[string]string, len(infos))
	for p, info := range infos {
		if info.Exists {
			mapping[p] = paths.FileURI(p)
		}
	}
	return mapping
}

func (g *Generator) themeHead(opts Options) (string, error) {
	builtin := opts.DefaultTheme
	if builtin == nil {
		builtin = DefaultTheme
	}
	theme, err := LoadTheme(opts.ThemePath, builtin)
	if err != nil {
		return "", err
	}
	if !opts.EmbedTheme && theme.Path != "" {
		return styleHead(nil, paths.FileURI(theme.Path)), nil
	}

	data := theme.CSS
	if theme.Path != "" {
		var resolve URLResolver
		switch {
		case opts.EmbedCSSAssets:
			resolve = func(abs string) (string, bool) {
				u, err := g.embedder.Embed(abs)
				if err != nil {
					g.log.Warn("Unable to embed theme asset", zap.String("path", abs), zap.Error(err))
					return "", false
				}
				return u, true
			}
		case opts.Media == common.MediaStrategyLink:
			resolve = func(abs string) (string, bool) {
				return paths.FileURI(paths.Normalize(abs)), true
			}
		}
		if resolve != nil {
			data = RewriteCSSURLs(data, filepath.Dir(theme.Path), resolve, g.log)
		}
	}
	return styleHead(data, ""), nil
}

// cleanup always runs: cached conversions are dropped and files copied by
// failed export are removed.
func (g *Generator) cleanup(copied *media.AssetCopy, failed error) {
	g.embedder.ClearCache()
	if failed == nil || copied == nil {
		return
	}
	if err := copied.Rollback(); err != nil {
		g.log.Warn("Unable to remove copied assets", zap.String("dir", copied.Dir), zap.Error(err))
		return
	}
	g.log.Debug("Copied assets removed after failed export", zap.String("dir", copied.Dir))
}

// WriteHTML stores generated page creating parent directories.
func WriteHTML(path string, res *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(res.HTML), 0o644); err != nil {
		return fmt.Errorf("unable to write %q: %w", path, err)
	}
	return nil
}
