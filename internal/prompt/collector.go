package prompt

import (
	"context"
	"log/slog"
	"strings"

	"mediadl/internal/config"
	"mediadl/internal/consts"
	"mediadl/internal/entity"
	"mediadl/internal/errs"
	"mediadl/internal/quality"
	"mediadl/pkg/urls"
)

// Collector builds a DownloadRequest from prompt answers.
type Collector struct {
	log      *slog.Logger
	prompter Prompter
	defaults config.Download
}

// NewCollector creates a Collector that falls back to defaults for blank answers.
func NewCollector(log *slog.Logger, prompter Prompter, defaults config.Download) *Collector {
	return &Collector{
		log:      log.With(slog.String("package", "prompt")),
		prompter: prompter,
		defaults: defaults,
	}
}

// Collect asks for the URL, the media type and, for videos only, the quality.
// The quality is returned already translated to a format selector.
// Media types are not validated here.
func (c *Collector) Collect(ctx context.Context) (entity.DownloadRequest, error) {
	raw, err := c.prompter.Input(consts.PromptURL, "")
	if err != nil {
		return entity.DownloadRequest{}, err
	}

	url := urls.Normalize(raw)
	if url == "" {
		return entity.DownloadRequest{}, errs.ErrEmptyURL
	}

	if !urls.IsURLValid(url) {
		c.log.WarnContext(ctx, "url is not an http(s) url, passing it on as is", slog.String("url", url))
	}

	fallback := entity.ParseMediaType(c.defaults.MediaType, entity.MediaTypeVideo)

	answer, err := c.prompter.Input(consts.PromptMediaType, fallback.String())
	if err != nil {
		return entity.DownloadRequest{}, err
	}

	req := entity.DownloadRequest{
		URL:       url,
		MediaType: entity.ParseMediaType(answer, fallback),
		Quality:   quality.Translate(c.defaults.Quality),
	}

	if req.MediaType != entity.MediaTypeVideo {
		return req, nil
	}

	answer, err = c.prompter.Input(consts.PromptQuality, c.defaults.Quality)
	if err != nil {
		return entity.DownloadRequest{}, err
	}

	if answer = strings.TrimSpace(answer); answer != "" {
		req.Quality = quality.Translate(answer)
	}

	return req, nil
}

