// Package consts defines application-wide constants.
package consts

// App identity.
const (
	// AppName is the binary and metrics namespace name.
	AppName = "mediadl"
)

// Media types.
const (
	// MediaTypeVideo requests a video with its audio track.
	MediaTypeVideo = "video"
	// MediaTypeAudio requests the audio track only.
	MediaTypeAudio = "audio"
)

// yt-dlp vocabulary.
const (
	// FormatBestAudio selects the best audio-only stream, falling back to the best muxed one.
	FormatBestAudio = "bestaudio/best"
	// TitleTemplate names files after the media's title and extension.
	TitleTemplate = "%(title)s.%(ext)s"
	// ExtTemplate is appended to a caller supplied base name.
	ExtTemplate = ".%(ext)s"
	// PostprocessorExtractAudio is the yt-dlp postprocessor key for audio extraction.
	PostprocessorExtractAudio = "FFmpegExtractAudio"
)

// Prompt texts.
const (
	// PromptURL asks for the media URL.
	PromptURL = "Enter the video URL:"
	// PromptMediaType asks for the media type.
	PromptMediaType = "Choose media type (video/audio):"
	// PromptQuality asks for the video quality.
	PromptQuality = "Choose quality (best/worst/720/480/360):"
)

// Log messages.
const (
	// LogDownloadCompleted is logged once per successful download.
	LogDownloadCompleted = "download completed successfully"
	// LogDownloadFailed is logged once per failed transfer.
	LogDownloadFailed = "download failed"
	// LogUnsupportedMediaType is logged when the media type is rejected.
	LogUnsupportedMediaType = "unsupported media type"
	// LogUnexpectedError is logged for anything else.
	LogUnexpectedError = "an unexpected error occurred"
	// LogCancelled is logged when the user interrupts input or a running download.
	LogCancelled = "download cancelled by user"
	// LogInputError is logged when the request could not be collected.
	LogInputError = "invalid input"
)
