package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"mediadl/internal/consts"
	"mediadl/internal/errs"
	"mediadl/pkg/shellquote"

	"github.com/lrstanley/go-ytdlp"
)

const defaultExecutable = "yt-dlp"

// YTdlp runs downloads through yt-dlp.
type YTdlp struct {
	log        *slog.Logger
	executable string
}

// NewYTdlp creates a new YTdlp downloader. An empty executable lets the library look yt-dlp up in PATH.
func NewYTdlp(log *slog.Logger, executable string) *YTdlp {
	return &YTdlp{
		log:        log.With(slog.String("package", "downloader"), slog.String("downloader", "ytdlp")),
		executable: executable,
	}
}

var _ Library = (*YTdlp)(nil)

// Download fetches url with opts. A non-zero yt-dlp exit is reported as errs.ErrDownloadFailed.
func (d *YTdlp) Download(ctx context.Context, opts Options, url string) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	log := d.log.With(slog.String("url", url))

	bin := d.executable
	if bin == "" {
		bin = defaultExecutable
	}

	log.DebugContext(ctx, "executing yt-dlp", slog.String("command", shellquote.Join(bin, opts.Args(url))))

	res, err := d.command(opts).Run(ctx, url)
	if err != nil {
		log.DebugContext(ctx, "ytdlp run", slog.Any("error", err), slog.Any("result", Result{res}))

		var exitErr *ytdlp.ErrExitCode
		if errors.As(err, &exitErr) {
			if res != nil {
				if reason := FailureReason(res.Stderr); reason != "" {
					return fmt.Errorf("%w: %s", errs.ErrDownloadFailed, reason)
				}
			}

			return fmt.Errorf("%w: %w", errs.ErrDownloadFailed, err)
		}

		return fmt.Errorf("ytdlp run: %w", err)
	}

	log.DebugContext(ctx, "done", slog.Any("result", Result{res}))

	return nil
}

func (d *YTdlp) command(opts Options) *ytdlp.Command {
	command := ytdlp.New().Output(opts.OutputTemplate)

	// The library replaces the child environment with its own map, so HOME, locale and proxy
	// variables have to be copied over. PATH is merged by the library.
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok && key != "" {
			command = command.SetEnvVar(key, value)
		}
	}

	if d.executable != "" {
		command = command.SetExecutable(d.executable)
	}

	if opts.NoPlaylist {
		command = command.NoPlaylist()
	}

	if opts.WriteThumbnail {
		command = command.WriteThumbnail()
	} else {
		command = command.NoWriteThumbnail()
	}

	command = command.Format(opts.Format)

	for _, pp := range opts.Postprocessors {
		if pp.Name != consts.PostprocessorExtractAudio {
			continue
		}

		command = command.ExtractAudio().AudioFormat(pp.TargetCodec)
		if pp.TargetQuality != "" {
			command = command.AudioQuality(pp.TargetQuality)
		}
	}

	if opts.CacheDir != "" {
		command = command.CacheDir(opts.CacheDir)
	}

	if opts.CookieFile != "" {
		command = command.Cookies(opts.CookieFile)
	}

	if opts.Proxy != "" {
		command = command.Proxy(opts.Proxy)
	}

	return command
}
