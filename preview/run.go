package preview

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"blockdoc/block"
	"blockdoc/common"
	"blockdoc/export"
	"blockdoc/state"
)

const stopTimeout = 5 * time.Second

// Session renders project for preview: media stays on disk and is served by
// the server, nothing is written.
type Session struct {
	Project string
	Options export.Options

	gen *export.Generator
	srv *Server
	log *zap.Logger
}

func NewSession(project string, opts export.Options, gen *export.Generator, srv *Server, log *zap.Logger) *Session {
	opts.Media = common.MediaStrategyLink
	opts.OutputDir = ""
	return &Session{Project: project, Options: opts, gen: gen, srv: srv, log: log}
}

// Render loads project and produces page with server URLs.
func (s *Session) Render(ctx context.Context) (string, error) {
	doc, err := block.LoadDocument(s.Project)
	if err != nil {
		return "", fmt.Errorf("unable to load project (%s): %w", s.Project, err)
	}
	for _, repair := range doc.Validate() {
		s.log.Debug("Project structure repaired", zap.String("repair", repair))
	}
	res, err := s.gen.GenerateHTML(ctx, doc, s.Options)
	if err != nil {
		return "", err
	}
	for _, p := range res.Linked {
		s.srv.RegisterUserFile(p)
	}
	if len(res.Problematic) > 0 {
		s.log.Warn("Some media files are not usable", zap.Strings("files", res.Problematic))
	}
	return s.srv.RewriteFileURIs(res.HTML), nil
}

// Run is the action of preview command. It serves project until interrupted.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Named("preview")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input project has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	cfg := env.Cfg
	if cmd.IsSet("theme") {
		cfg.Export.ThemePath = cmd.String("theme")
	}
	if cmd.IsSet("title") {
		cfg.Export.Title = cmd.String("title")
	}
	if cmd.IsSet("port") {
		cfg.Preview.HTTPPort = int(cmd.Int("port"))
	}
	if cmd.Bool("no-watch") {
		cfg.Preview.Watch = false
	}
	if cfg.Preview.AssetsDir == "" && cfg.Export.ThemePath != "" {
		// theme resources are looked up next to the theme
		cfg.Preview.AssetsDir = filepath.Dir(cfg.Export.ThemePath)
	}
	env.DefaultTheme = export.DefaultTheme

	srv := NewServer(&cfg.Preview, log)
	session := NewSession(src, export.Options{
		Title:          cfg.Export.Title,
		EmbedTheme:     true,
		EmbedCSSAssets: cfg.Export.EmbedCSSAssets,
		ThemePath:      cfg.Export.ThemePath,
		DefaultTheme:   env.DefaultTheme,
	}, export.NewGenerator(&cfg.Media, log), srv, log)

	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if er := srv.Stop(sctx); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to stop preview server: %w", er))
		}
	}()

	pub := NewPublisher(cfg.Preview.Debounce, func() (string, error) {
		return session.Render(ctx)
	}, func(page string) {
		srv.UpdateContent(page)
	}, log.Named("publisher"))
	defer pub.Close()

	if err := pub.Flush(); err != nil {
		return err
	}

	if cfg.Preview.Watch {
		w, err := NewWatcher([]string{src, cfg.Export.ThemePath}, func(string) { pub.Request() }, log.Named("watcher"))
		if err != nil {
			return fmt.Errorf("unable to watch project: %w", err)
		}
		defer func() {
			if er := w.Stop(); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to stop watcher: %w", er))
			}
		}()
	}

	log.Info("Preview is available, interrupt to stop", zap.String("url", srv.URL()), zap.Bool("watch", cfg.Preview.Watch))
	<-ctx.Done()
	return nil
}
