// Package service orchestrates a single media download: it validates the request,
// builds the library options and reports the outcome.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mediadl/internal/config"
	"mediadl/internal/consts"
	"mediadl/internal/downloader"
	"mediadl/internal/entity"
	"mediadl/internal/errs"
	"mediadl/internal/observability"
	"mediadl/internal/proxy"
	"mediadl/internal/quality"
	"mediadl/pkg/gen"
	"mediadl/pkg/sanitize"
)

const dirPerm = 0o755

// Media downloads media through a downloader.Library.
type Media struct {
	log      *slog.Logger
	defaults config.Download
	dir      config.Dir
	lib      downloader.Library
	proxies  *proxy.Selector
	metrics  *observability.Metrics
}

// New creates a Media service. metrics may be nil.
func New(cfg *config.Config, log *slog.Logger, lib downloader.Library, metrics *observability.Metrics) *Media {
	return &Media{
		log:      log.With(slog.String("package", "service")),
		defaults: cfg.Download,
		dir:      cfg.Dir,
		lib:      lib,
		proxies:  proxy.New(cfg.Proxy),
		metrics:  metrics,
	}
}

// Download runs req to completion and logs exactly one line describing the outcome.
// Failures never escape as errors or panics; they are reported through the returned Outcome.
func (svc *Media) Download(ctx context.Context, req entity.DownloadRequest) (outcome entity.Outcome) {
	start := time.Now()
	req = svc.withDefaults(req)

	outcome.RequestID = gen.UUIDv5(req.URL, string(req.MediaType), req.Quality)
	log := svc.log.With(slog.String("request_id", outcome.RequestID), slog.Any("request", req))

	defer func() {
		if r := recover(); r != nil {
			outcome.Kind = entity.OutcomeUnexpectedError
			outcome.Err = fmt.Errorf("panic: %v", r)
			log.ErrorContext(ctx, consts.LogUnexpectedError, slog.Any("error", outcome.Err))
		}

		outcome.Duration = time.Since(start)

		if svc.metrics != nil {
			svc.metrics.RecordDownload(string(req.MediaType), string(outcome.Kind), outcome.Duration)
		}
	}()

	err := svc.download(ctx, req)
	outcome.Kind, outcome.Err = Classify(err), err

	switch outcome.Kind {
	case entity.OutcomeSuccess:
		log.InfoContext(ctx, consts.LogDownloadCompleted)
	case entity.OutcomeConfigError:
		log.ErrorContext(ctx, consts.LogUnsupportedMediaType, slog.Any("error", err))
	case entity.OutcomeDownloadError:
		log.ErrorContext(ctx, consts.LogDownloadFailed, slog.Any("error", err))
	case entity.OutcomeCancelled:
		log.InfoContext(ctx, consts.LogCancelled)
	default:
		log.ErrorContext(ctx, consts.LogUnexpectedError, slog.Any("error", err))
	}

	return outcome
}

func (svc *Media) download(ctx context.Context, req entity.DownloadRequest) error {
	if err := os.MkdirAll(req.Dir, dirPerm); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	if !req.MediaType.IsSupported() {
		return fmt.Errorf("%w: %q", errs.ErrUnsupportedMediaType, req.MediaType)
	}

	opts := svc.Options(req)

	var err error
	if opts.Proxy, err = svc.proxies.Select(ctx); err != nil {
		return fmt.Errorf("select proxy: %w", err)
	}

	err = svc.lib.Download(ctx, opts, req.URL)
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		// yt-dlp killed by an interrupt exits non-zero; report the interrupt, not the exit.
		return fmt.Errorf("%w: %w", errs.ErrCancelled, err)
	}

	return err
}

// Options builds the library options for req. The proxy is chosen per download and left empty.
// Audio requests always get the best audio stream and an extract-audio postprocessor,
// whatever their quality says.
func (svc *Media) Options(req entity.DownloadRequest) downloader.Options {
	req = svc.withDefaults(req)

	opts := downloader.Options{
		OutputTemplate: outputTemplate(req.Dir, req.Name),
		WriteThumbnail: false,
		NoPlaylist:     true,
		CacheDir:       svc.dir.Cache,
		CookieFile:     svc.dir.CookieFile,
	}

	switch req.MediaType {
	case entity.MediaTypeAudio:
		opts.Format = consts.FormatBestAudio
		opts.Postprocessors = []downloader.Postprocessor{
			downloader.ExtractAudio(svc.defaults.AudioCodec, svc.defaults.AudioQuality),
		}
	default:
		opts.Format = req.Quality
	}

	return opts
}

func (svc *Media) withDefaults(req entity.DownloadRequest) entity.DownloadRequest {
	if req.Dir == "" {
		req.Dir = svc.defaults.Dir
	}

	if req.MediaType == "" {
		req.MediaType = entity.ParseMediaType(svc.defaults.MediaType, entity.MediaTypeVideo)
	}

	if req.Quality == "" {
		req.Quality = quality.Translate(svc.defaults.Quality)
	}

	return req
}

func outputTemplate(dir, name string) string {
	if name = sanitize.Filename(name); name != "" {
		return filepath.Join(dir, name+consts.ExtTemplate)
	}

	return filepath.Join(dir, consts.TitleTemplate)
}

// Classify maps an error returned while downloading to an outcome kind.
func Classify(err error) entity.OutcomeKind {
	switch {
	case err == nil:
		return entity.OutcomeSuccess
	case errors.Is(err, errs.ErrCancelled), errors.Is(err, context.Canceled):
		return entity.OutcomeCancelled
	case errors.Is(err, errs.ErrUnsupportedMediaType):
		return entity.OutcomeConfigError
	case errors.Is(err, errs.ErrDownloadFailed):
		return entity.OutcomeDownloadError
	default:
		return entity.OutcomeUnexpectedError
	}
}
