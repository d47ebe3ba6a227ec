package downloader

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

const errorPrefix = "ERROR:"

// Result wraps ytdlp.Result for custom logging.
type Result struct {
	*ytdlp.Result
}

// LogValue implements the slog.LogValuer interface for custom logging of Result.
func (r Result) LogValue() slog.Value {
	if r.Result == nil {
		return slog.GroupValue(slog.String("error", "nil result"))
	}

	var outputLogs strings.Builder
	for _, log := range r.OutputLogs {
		fmt.Fprintf(&outputLogs, "%v\n", log)
	}

	return slog.GroupValue(
		slog.String("executable", r.Executable),
		slog.String("args", fmt.Sprintf("%v", r.Args)),
		slog.String("stdout", r.Stdout),
		slog.String("stderr", r.Stderr),
		slog.String("output_logs", outputLogs.String()),
	)
}

// FailureReason returns the last "ERROR:" line yt-dlp wrote to stderr, without the prefix.
// Empty when there is none.
func FailureReason(stderr string) string {
	var reason string

	for line := range strings.SplitSeq(stderr, "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, errorPrefix); ok {
			reason = strings.TrimSpace(after)
		}
	}

	return reason
}
