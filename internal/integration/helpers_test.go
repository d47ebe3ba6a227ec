//go:build integration
// +build integration

package integration_test

import (
	"bytes"
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"mediadl/internal/config"
	"mediadl/internal/depmanager"
	"mediadl/internal/downloader"
	"mediadl/internal/observability"
	"mediadl/internal/service"

	"github.com/stretchr/testify/require"
)

//go:embed testdata/fake-ytdlp.sh
var fakeYTDLPScript string

const testURL = "https://example.com/watch?v=vid-123"

type fixture struct {
	cfg          *config.Config
	svc          *service.Media
	downloadsDir string
	argsFile     string
	logs         *bytes.Buffer
}

// newFixture puts a fake yt-dlp first in PATH and wires the real dependency manager,
// downloader and service around it.
func newFixture(t *testing.T, mode string) *fixture {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("integration fake yt-dlp helper uses shell script")
	}

	baseDir := t.TempDir()
	binsDir := filepath.Join(baseDir, "bins")
	downloadsDir := filepath.Join(baseDir, "downloads")
	argsFile := filepath.Join(baseDir, "args.txt")

	require.NoError(t, os.MkdirAll(binsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binsDir, "yt-dlp"), []byte(fakeYTDLPScript), 0o755))

	t.Setenv("PATH", binsDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("MEDIADL_FAKE_MODE", mode)
	t.Setenv("MEDIADL_FAKE_ARGS_FILE", argsFile)
	t.Setenv("MEDIADL_DOWNLOAD_DIR", downloadsDir)
	t.Setenv("MEDIADL_DEPMANAGER_BINS_DIR", binsDir)
	t.Setenv("MEDIADL_DEPMANAGER_USE_SYSTEM_BINARIES", "true")

	cfg, err := config.New()
	require.NoError(t, err)

	var logs bytes.Buffer

	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	path, err := depmanager.New(log, cfg.DepManager).Resolve(t.Context())
	require.NoError(t, err)

	lib := downloader.NewYTdlp(log, path)

	return &fixture{
		cfg:          cfg,
		svc:          service.New(cfg, log, lib, observability.New()),
		downloadsDir: downloadsDir,
		argsFile:     argsFile,
		logs:         &logs,
	}
}

// args returns the arguments the fake yt-dlp was last started with.
func (fx *fixture) args(t *testing.T) []string {
	t.Helper()

	data, err := os.ReadFile(fx.argsFile)
	require.NoError(t, err)

	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}
