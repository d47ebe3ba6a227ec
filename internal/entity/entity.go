// Package entity defines the core entities used in the application.
package entity

import (
	"log/slog"
	"strings"
	"time"

	"mediadl/internal/consts"
)

// MediaType is the coarse category of content requested.
type MediaType string

const (
	// MediaTypeVideo is a video with its audio track.
	MediaTypeVideo MediaType = consts.MediaTypeVideo
	// MediaTypeAudio is the audio track only.
	MediaTypeAudio MediaType = consts.MediaTypeAudio
)

// SupportedMediaTypes lists every media type the downloader accepts.
var SupportedMediaTypes = []MediaType{MediaTypeVideo, MediaTypeAudio}

// ParseMediaType trims and lowercases raw input. An empty value yields fallback.
// The result is not validated; see MediaType.IsSupported.
func ParseMediaType(raw string, fallback MediaType) MediaType {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return fallback
	}

	return MediaType(raw)
}

// IsSupported reports whether the media type is one of SupportedMediaTypes.
func (m MediaType) IsSupported() bool {
	for _, supported := range SupportedMediaTypes {
		if m == supported {
			return true
		}
	}

	return false
}

func (m MediaType) String() string { return string(m) }

// DownloadRequest is a single download asked for by the user or a caller.
// Zero values fall back to the configured defaults.
type DownloadRequest struct {
	URL       string
	MediaType MediaType
	// Quality is a format selector, already translated for video requests.
	Quality string
	// Dir is the destination directory.
	Dir string
	// Name optionally replaces the media title in the output filename.
	Name string
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r DownloadRequest) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("url", r.URL),
		slog.String("media_type", string(r.MediaType)),
		slog.String("quality", r.Quality),
	}

	if r.Dir != "" {
		attrs = append(attrs, slog.String("dir", r.Dir))
	}

	if r.Name != "" {
		attrs = append(attrs, slog.String("name", r.Name))
	}

	return slog.GroupValue(attrs...)
}

// OutcomeKind classifies how a download ended.
type OutcomeKind string

const (
	// OutcomeSuccess means the library produced the file.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeConfigError means the request was rejected before the library was invoked.
	OutcomeConfigError OutcomeKind = "config_error"
	// OutcomeDownloadError means the library could not complete the transfer.
	OutcomeDownloadError OutcomeKind = "download_error"
	// OutcomeCancelled means the user interrupted the download.
	OutcomeCancelled OutcomeKind = "cancelled"
	// OutcomeUnexpectedError covers every other failure.
	OutcomeUnexpectedError OutcomeKind = "unexpected_error"
)

// Outcome is the result of one download request.
type Outcome struct {
	RequestID string
	Kind      OutcomeKind
	Err       error
	Duration  time.Duration
}

// OK reports whether the download succeeded.
func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// LogValue implements the slog.LogValuer interface for structured logging.
func (o Outcome) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("request_id", o.RequestID),
		slog.String("kind", string(o.Kind)),
		slog.Duration("duration", o.Duration),
	}

	if o.Err != nil {
		attrs = append(attrs, slog.String("error", o.Err.Error()))
	}

	return slog.GroupValue(attrs...)
}
