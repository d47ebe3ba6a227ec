// Package downloader adapts the yt-dlp download library to the options the application builds.
package downloader

import (
	"context"
	"fmt"

	"mediadl/internal/consts"
	"mediadl/internal/errs"
)

// Library downloads a single URL with the given options.
// Implementations return an error wrapping errs.ErrDownloadFailed when the transfer itself failed.
type Library interface {
	Download(ctx context.Context, opts Options, url string) error
}

// Postprocessor is a transformation applied by the library after the transfer completes.
type Postprocessor struct {
	Name          string
	TargetCodec   string
	TargetQuality string
}

// Options holds everything the library is told about a download.
type Options struct {
	OutputTemplate string
	WriteThumbnail bool
	NoPlaylist     bool
	Format         string
	Postprocessors []Postprocessor

	CacheDir   string
	CookieFile string
	Proxy      string
}

// ExtractAudio returns the postprocessor that extracts and transcodes the audio track.
func ExtractAudio(codec, quality string) Postprocessor {
	return Postprocessor{
		Name:          consts.PostprocessorExtractAudio,
		TargetCodec:   codec,
		TargetQuality: quality,
	}
}

// Validate rejects options the library cannot act on.
func (o Options) Validate() error {
	if o.OutputTemplate == "" {
		return fmt.Errorf("%w: empty output template", errs.ErrInvalidOptions)
	}

	if o.Format == "" {
		return fmt.Errorf("%w: empty format", errs.ErrInvalidOptions)
	}

	for _, pp := range o.Postprocessors {
		switch pp.Name {
		case consts.PostprocessorExtractAudio:
			if pp.TargetCodec == "" {
				return fmt.Errorf("%w: %s without target codec", errs.ErrInvalidOptions, pp.Name)
			}
		default:
			return fmt.Errorf("%w: unknown postprocessor %q", errs.ErrInvalidOptions, pp.Name)
		}
	}

	return nil
}

// Args renders the options as yt-dlp command line arguments followed by the URLs.
func (o Options) Args(urls ...string) []string {
	args := []string{"--output", o.OutputTemplate}

	if o.NoPlaylist {
		args = append(args, "--no-playlist")
	}

	if o.WriteThumbnail {
		args = append(args, "--write-thumbnail")
	} else {
		args = append(args, "--no-write-thumbnail")
	}

	if o.Format != "" {
		args = append(args, "--format", o.Format)
	}

	for _, pp := range o.Postprocessors {
		if pp.Name != consts.PostprocessorExtractAudio {
			continue
		}

		args = append(args, "--extract-audio", "--audio-format", pp.TargetCodec)
		if pp.TargetQuality != "" {
			args = append(args, "--audio-quality", pp.TargetQuality)
		}
	}

	if o.CacheDir != "" {
		args = append(args, "--cache-dir", o.CacheDir)
	}

	if o.CookieFile != "" {
		args = append(args, "--cookies", o.CookieFile)
	}

	if o.Proxy != "" {
		args = append(args, "--proxy", o.Proxy)
	}

	return append(args, urls...)
}
