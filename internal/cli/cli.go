// Package cli wires configuration, dependencies and the download service into cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"mediadl/internal/config"
	"mediadl/internal/consts"
	"mediadl/internal/depmanager"
	"mediadl/internal/downloader"
	"mediadl/internal/entity"
	"mediadl/internal/errs"
	"mediadl/internal/observability"
	"mediadl/internal/prompt"
	"mediadl/internal/service"
	"mediadl/pkg/logger"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X mediadl/internal/cli.Version=...".
var Version = "dev"

// Dependencies resolves and maintains the external binaries.
type Dependencies interface {
	Resolve(ctx context.Context) (string, error)
	InstallAll(ctx context.Context) error
	Update(ctx context.Context) ([]depmanager.BinaryName, error)
}

// App holds everything a command needs. Collaborators left nil are built from the config.
type App struct {
	cfg       *config.Config
	log       *slog.Logger
	logOutput io.Writer
	metrics   *observability.Metrics

	lib      downloader.Library
	prompter prompt.Prompter
	deps     Dependencies
}

// Option customizes an App.
type Option func(*App)

// WithLibrary replaces the yt-dlp backed library.
func WithLibrary(lib downloader.Library) Option {
	return func(a *App) { a.lib = lib }
}

// WithPrompter replaces the terminal prompts.
func WithPrompter(p prompt.Prompter) Option {
	return func(a *App) { a.prompter = p }
}

// WithDependencies replaces the dependency manager.
func WithDependencies(d Dependencies) Option {
	return func(a *App) { a.deps = d }
}

// WithLogOutput sends log lines to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *App) { a.logOutput = w }
}

// New creates an App for cfg.
func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		cfg:     cfg,
		metrics: observability.New(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Execute runs the command line in args (os.Args when nil).
func (a *App) Execute(ctx context.Context, args []string) error {
	cmd := a.Command()
	if args != nil {
		cmd.SetArgs(args)
	}

	return cmd.ExecuteContext(ctx)
}

// Command builds the command tree.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   consts.AppName,
		Short: "Download video or audio from a URL.",
		Long: "Download video or audio from a URL with yt-dlp.\n" +
			"Without a subcommand the URL, media type and quality are asked interactively.",
		Args:              cobra.NoArgs,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.interactive(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.App.LogLevel, "log-level", a.cfg.App.LogLevel, "log level: debug, info, warn or error")
	flags.StringVar(&a.cfg.App.LogFormat, "log-format", a.cfg.App.LogFormat, "log format: text or json")

	root.AddCommand(a.downloadCmd(), a.depsCmd(), a.versionCmd())

	return root
}

// setup runs after flags are parsed and the arguments validated.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	log, err := logger.New(&logger.Options{
		AddSource: a.cfg.App.LogLevel == "debug",
		Level:     a.cfg.App.LogLevel,
		Format:    a.cfg.App.LogFormat,
		Output:    a.logOutput,
	})
	if err != nil {
		log.WarnContext(cmd.Context(), "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	a.log = log

	if a.deps == nil {
		a.deps = depmanager.New(log, a.cfg.DepManager)
	}

	if a.prompter == nil {
		a.prompter = prompt.NewSurvey()
	}

	return nil
}

// library resolves yt-dlp on first use.
func (a *App) library(ctx context.Context) (downloader.Library, error) {
	if a.lib != nil {
		return a.lib, nil
	}

	path, err := a.deps.Resolve(ctx)
	if err != nil {
		a.log.ErrorContext(ctx, "yt-dlp is not available", slog.Any("error", err))

		return nil, fmt.Errorf("resolve yt-dlp: %w", err)
	}

	a.lib = downloader.NewYTdlp(a.log, path)

	return a.lib, nil
}

func (a *App) interactive(ctx context.Context) error {
	req, err := prompt.NewCollector(a.log, a.prompter, a.cfg.Download).Collect(ctx)

	switch {
	case errors.Is(err, errs.ErrCancelled):
		a.log.InfoContext(ctx, consts.LogCancelled)

		return nil
	case err != nil:
		a.log.ErrorContext(ctx, consts.LogInputError, slog.Any("error", err))

		return nil
	}

	lib, err := a.library(ctx)
	if err != nil {
		return err
	}

	a.download(ctx, lib, req)

	return nil
}

// download runs one request. Its outcome is already logged by the service.
func (a *App) download(ctx context.Context, lib downloader.Library, req entity.DownloadRequest) entity.Outcome {
	outcome := service.New(a.cfg, a.log, lib, a.metrics).Download(ctx, req)

	a.log.DebugContext(ctx, "request finished", slog.Any("outcome", outcome))

	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			a.log.WarnContext(ctx, "failed to write metrics", slog.Any("error", err))
		}
	}

	return outcome
}
