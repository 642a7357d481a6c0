package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"blockdoc/block"
	"blockdoc/common"
	"blockdoc/config"
	"blockdoc/media"
	"blockdoc/state"
	dbg "blockdoc/utils/debug"
)

// Run is the action of export command.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Named("export")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input project has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	cfg := &env.Cfg.Export
	if cmd.IsSet("title") {
		cfg.Title = cmd.String("title")
	}
	if cmd.IsSet("theme") {
		cfg.ThemePath = cmd.String("theme")
	}
	if cmd.IsSet("media") {
		m, err := common.ParseMediaStrategy(cmd.String("media"))
		if err != nil {
			log.Warn("Unknown media strategy requested, keeping configured one", zap.Stringer("media", cfg.Media), zap.Error(err))
		} else {
			cfg.Media = m
		}
	}
	if cmd.IsSet("embed-theme") {
		cfg.EmbedTheme = cmd.Bool("embed-theme")
	}
	if cmd.IsSet("embed-css-assets") {
		cfg.EmbedCSSAssets = cmd.Bool("embed-css-assets")
	}

	env.DefaultTheme = DefaultTheme
	if cfg.ThemePath != "" {
		if _, err := os.Stat(cfg.ThemePath); err != nil {
			return fmt.Errorf("unable to access theme css %q: %w", cfg.ThemePath, err)
		}
	}

	env.Overwrite = cmd.Bool("overwrite")

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("media", cfg.Media))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	gen := NewGenerator(&env.Cfg.Media, log)
	return process(ctx, gen, src, dst, log)
}

// isProjectFile reports whether path looks like saved block document.
func isProjectFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// process handles single project file or directory tree of projects.
func process(ctx context.Context, gen *Generator, src, dst string, log *zap.Logger) error {
	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}
	if fi.IsDir() {
		if err := processDir(ctx, gen, src, dst, log); err != nil {
			return fmt.Errorf("unable to process directory: %w", err)
		}
		return nil
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}
	if !isProjectFile(src) {
		return fmt.Errorf("input was not recognized as project file (%s)", src)
	}
	return processProject(ctx, gen, src, dst, log)
}

// processDir walks directory tree finding project files and exports them,
// keeping relative directory structure on output.
func processDir(ctx context.Context, gen *Generator, dir, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		// output may be inside source tree
		if info.IsDir() && path == dst && path != dir {
			return filepath.SkipDir
		}
		if !info.Mode().IsRegular() || !isProjectFile(path) {
			return nil
		}

		count++
		rel, err := filepath.Rel(dir, filepath.Dir(path))
		if err != nil {
			rel = ""
		}
		if err := processProject(ctx, gen, path, filepath.Join(dst, rel), log); err != nil {
			log.Error("Unable to process project", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
}

// processProject exports single project file into dst directory. When media
// embedding is infeasible export is repeated with configured fallback
// strategy.
func processProject(ctx context.Context, gen *Generator, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)
	cfg := &env.Cfg.Export

	var outputName string

	log.Info("Export starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Export ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("export panic: %v", r)
		} else if rerr == nil {
			log.Info("Export completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	doc, err := block.LoadDocument(src)
	if err != nil {
		return fmt.Errorf("unable to load project (%s): %w", src, err)
	}
	for _, repair := range doc.Validate() {
		log.Debug("Project structure repaired", zap.String("repair", repair))
	}
	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("project/%s", filepath.Base(src)), src)
		env.Rpt.StoreData(fmt.Sprintf("tree/%s.txt", filepath.Base(src)), []byte(dbg.DumpDocument(doc)))
	}

	opts := Options{
		Title:          cfg.Title,
		OutputDir:      dst,
		Media:          cfg.Media,
		AssetsDirName:  cfg.AssetsDirName,
		EmbedTheme:     cfg.EmbedTheme,
		EmbedCSSAssets: cfg.EmbedCSSAssets,
		ThemePath:      cfg.ThemePath,
		DefaultTheme:   env.DefaultTheme,
	}
	outputName = buildOutputPath(doc, src, dst, cfg, opts, log)
	opts.OutputDir = filepath.Dir(outputName)

	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
	} else if !os.IsNotExist(err) {
		return err
	}

	res, err := gen.GenerateHTML(ctx, doc, opts)
	var infeasible *InfeasibleError
	if errors.As(err, &infeasible) {
		log.Warn("Unable to embed media, using fallback",
			zap.String("reason", infeasible.Reason), zap.Stringer("fallback", cfg.Fallback))
		opts.Media = cfg.Fallback
		res, err = gen.GenerateHTML(ctx, doc, opts)
	}
	if err != nil {
		return fmt.Errorf("unable to generate output: %w", err)
	}

	for _, p := range res.Problematic {
		log.Warn("Media file skipped", zap.String("path", p))
	}
	if len(res.Missing) > 0 {
		log.Warn("Some references were not resolved", zap.Strings("missing", res.Missing))
	}

	if err := WriteHTML(outputName, res); err != nil {
		return err
	}
	reportResult(env.Rpt, outputName, opts, res, log)
	return nil
}

// reportResult adds export output to debug report. Theme and copied assets
// are snapshotted since the next export in the same run may replace them.
func reportResult(rpt *config.Report, outputName string, opts Options, res *Result, log *zap.Logger) {
	if rpt == nil {
		return
	}
	base := filepath.Base(outputName)
	rpt.Store(fmt.Sprintf("result/%s", base), outputName)

	if opts.ThemePath != "" {
		if err := rpt.StoreCopy(fmt.Sprintf("theme/%s", filepath.Base(opts.ThemePath)), opts.ThemePath); err != nil {
			log.Warn("Unable to add theme to report", zap.String("theme", opts.ThemePath), zap.Error(err))
		}
	}
	if len(res.Copied) == 0 {
		return
	}
	assets := opts.AssetsDirName
	if assets == "" {
		assets = "Assets"
	}
	dir := filepath.Join(opts.OutputDir, assets)
	if err := rpt.StoreCopy(fmt.Sprintf("assets/%s", strings.TrimSuffix(base, filepath.Ext(base))), dir); err != nil {
		log.Warn("Unable to add assets to report", zap.String("dir", dir), zap.Error(err))
	}
}

// InspectReport is produced by inspect command.
type InspectReport struct {
	Project  string                      `json:"project"`
	Files    map[string]*media.MediaInfo `json:"files"`
	Estimate media.Estimate              `json:"estimate"`
	Repairs  []string                    `json:"repairs,omitempty"`
	Limits   media.Limits                `json:"limits"`
}

// BuildInspectReport discovers and validates every media file of project.
func BuildInspectReport(path string, cfg *config.MediaConfig, log *zap.Logger) (*InspectReport, error) {
	doc, err := block.LoadDocument(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load project (%s): %w", path, err)
	}
	d := media.NewDiscovery(media.LimitsFromConfig(cfg), log)
	infos := d.DiscoverAllMedia(doc)
	return &InspectReport{
		Project:  path,
		Files:    infos,
		Estimate: d.Estimate(infos),
		Repairs:  doc.Validate(),
		Limits:   d.Limits(),
	}, nil
}

// Inspect is the action of inspect command, it writes JSON report.
func Inspect(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Named("inspect")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input project has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	rpt, err := BuildInspectReport(src, &env.Cfg.Media, log)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rpt, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode report: %w", err)
	}

	out := os.Stdout
	fname := cmd.Args().Get(1)
	if len(fname) > 0 {
		if out, err = os.Create(fname); err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	} else {
		fname = "STDOUT"
	}

	log.Info("Media inspected",
		zap.String("project", src),
		zap.String("file", fname),
		zap.Int("valid", rpt.Estimate.ValidCount),
		zap.Int("invalid", rpt.Estimate.InvalidCount),
		zap.Int64("embedded", rpt.Estimate.TotalEmbedded),
		zap.Bool("exceeds_limit", rpt.Estimate.ExceedsLimit))

	if _, err := out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("unable to write report: %w", err)
	}
	if env.Rpt != nil {
		env.Rpt.StoreData("inspect.json", data)
	}
	return nil
}
