// Package depmanager locates or installs the external binaries mediadl drives: yt-dlp, ffmpeg and deno.
// Checksums are used only to detect when new versions are available, not to verify downloads.
package depmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"mediadl/internal/config"
	"mediadl/internal/errs"
)

// BinaryName represents the name of a binary dependency.
type BinaryName string

// Binary dependency names.
const (
	BinaryYTdlp   BinaryName = "yt-dlp"
	BinaryFFmpeg  BinaryName = "ffmpeg"
	BinaryFFprobe BinaryName = "ffprobe"
	BinaryDeno    BinaryName = "deno"
)

// managed lists the binaries that are downloaded individually, in install order.
// ffprobe ships inside the ffmpeg archive.
var managed = []BinaryName{BinaryFFmpeg, BinaryDeno, BinaryYTdlp}

// Platform operating system names and architectures.
const (
	platformLinux   = "linux"
	platformWindows = "windows"
	archARM64       = "arm64"
	archAMD64       = "amd64"
)

const (
	downloadTimeout      = 10 * time.Minute
	filePermExecutable   = 0o755
	filePermReadWrite    = 0o644
	sha256HexLength      = 64
	sha256SumsFieldCount = 2
	savedSumsFilename    = ".sha256sums.json"
)

// Platform represents the OS and architecture combination.
type Platform struct {
	OS   string
	Arch string
}

// String returns the platform string in format "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Manager manages binary dependencies.
type Manager struct {
	log      *slog.Logger
	cfg      config.DepManager
	platform Platform
	client   *http.Client

	mu        sync.RWMutex
	shaSums   map[string]string     // filename -> sha256 hash (fetched from remote)
	savedSums map[string]string     // filename -> sha256 hash (saved from previous run)
	binPaths  map[BinaryName]string // binary name -> resolved path
}

// New creates a new dependency manager.
func New(log *slog.Logger, cfg config.DepManager) *Manager {
	return &Manager{
		log: log.With(slog.String("package", "depmanager")),
		cfg: cfg,
		platform: Platform{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
		client: &http.Client{
			Timeout: downloadTimeout,
		},
		shaSums:   make(map[string]string),
		savedSums: make(map[string]string),
		binPaths:  make(map[BinaryName]string),
	}
}

// Resolve makes yt-dlp available and returns its path.
// With UseSystemBinaries the binaries are looked up in PATH, otherwise they are installed into BinsDir
// and BinsDir is put in front of PATH so yt-dlp finds its ffmpeg and deno.
func (m *Manager) Resolve(ctx context.Context) (string, error) {
	if m.cfg.UseSystemBinaries {
		if err := m.SetSystemBinaries(ctx); err != nil {
			return "", err
		}

		return m.InstalledPath(BinaryYTdlp), nil
	}

	if err := m.InstallAll(ctx); err != nil {
		return "", err
	}

	if err := prependPath(m.cfg.BinsDir); err != nil {
		return "", fmt.Errorf("prepend bins dir to PATH: %w", err)
	}

	return m.InstalledPath(BinaryYTdlp), nil
}

// SetSystemBinaries looks the binaries up in the system PATH.
// Only yt-dlp is required; a missing helper is reported and skipped.
func (m *Manager) SetSystemBinaries(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, binary := range []BinaryName{BinaryYTdlp, BinaryFFmpeg, BinaryDeno} {
		path, err := exec.LookPath(string(binary))
		if err != nil {
			if binary == BinaryYTdlp {
				return fmt.Errorf("%w: %s not found in system PATH: %w", errs.ErrBinaryNotFound, binary, err)
			}

			m.log.WarnContext(ctx, "optional binary not found in system PATH", slog.String("binary", string(binary)))

			continue
		}

		m.binPaths[binary] = path
	}

	return nil
}

// InstallAll downloads all required binaries that are missing from BinsDir.
// Binaries already present are kept as they are; use Update to refresh them.
func (m *Manager) InstallAll(ctx context.Context) error {
	log := m.log

	err := os.MkdirAll(m.cfg.BinsDir, filePermExecutable)
	if err != nil {
		return fmt.Errorf("create bins directory: %w", err)
	}

	err = m.loadSavedSums()
	if err != nil {
		log.DebugContext(ctx, "no saved checksums found, first run", slog.Any("error", err))
	}

	installed := 0

	for _, binary := range managed {
		if m.isBinaryExists(binary) {
			m.setBinaryPaths(binary)
			log.DebugContext(ctx, "binary already exists", slog.String("binary", string(binary)))

			continue
		}

		err = m.downloadAndInstall(ctx, binary)
		if err != nil {
			return fmt.Errorf("download and install %s: %w", binary, err)
		}

		installed++
	}

	log.InfoContext(ctx, "all binaries are installed", slog.Any("binaries", m.InstalledPaths()))

	if installed == 0 && len(m.savedSums) > 0 {
		return nil
	}

	// remember what was installed so Update can tell when upstream moves on
	err = m.FetchSHASums(ctx)
	if err != nil {
		log.WarnContext(ctx, "failed to fetch checksums", slog.Any("error", err))

		return nil
	}

	err = m.saveSums()
	if err != nil {
		log.WarnContext(ctx, "failed to save checksums", slog.Any("error", err))
	}

	return nil
}

// Update fetches the published checksums and redownloads every binary whose checksum changed
// since the last install. It returns the binaries that were updated.
func (m *Manager) Update(ctx context.Context) ([]BinaryName, error) {
	log := m.log

	if err := os.MkdirAll(m.cfg.BinsDir, filePermExecutable); err != nil {
		return nil, fmt.Errorf("create bins directory: %w", err)
	}

	if err := m.loadSavedSums(); err != nil {
		log.DebugContext(ctx, "no saved checksums found, every binary is stale", slog.Any("error", err))
	}

	if err := m.FetchSHASums(ctx); err != nil {
		return nil, fmt.Errorf("fetch checksums: %w", err)
	}

	updates := m.findUpdates()
	if len(updates) == 0 {
		log.InfoContext(ctx, "binaries are up to date")

		return nil, nil
	}

	log.InfoContext(ctx, "updates available", slog.Any("binaries", updates))

	var updated []BinaryName

	for _, binary := range updates {
		if err := m.downloadAndInstall(ctx, binary); err != nil {
			log.ErrorContext(ctx, "failed to update binary",
				slog.String("binary", string(binary)),
				slog.Any("error", err))

			continue
		}

		updated = append(updated, binary)

		log.InfoContext(ctx, "binary updated", slog.String("binary", string(binary)))
	}

	if err := m.saveSums(); err != nil {
		log.WarnContext(ctx, "failed to save checksums", slog.Any("error", err))
	}

	return updated, nil
}

// GetBinaryPath returns the path a binary is installed at inside BinsDir.
//   - /home/user/ + binary => /home/user/binary
func (m *Manager) GetBinaryPath(name BinaryName) string {
	filename := string(name)
	if m.platform.OS == platformWindows {
		filename += ".exe"
	}

	return filepath.Join(m.cfg.BinsDir, filename)
}

// InstalledPath returns the resolved path for a binary, or empty if it was not resolved.
func (m *Manager) InstalledPath(name BinaryName) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.binPaths[name]
}

// InstalledPaths returns a copy of every resolved binary path.
func (m *Manager) InstalledPaths() map[BinaryName]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.binPaths)
}

// FetchSHASums fetches and parses SHA256 sums from configured URLs.
func (m *Manager) FetchSHASums(ctx context.Context) error {
	sumsURLs, err := m.CollectSHASumsURLs()
	if err != nil {
		return fmt.Errorf("collect SHA sums URLs: %w", err)
	}

	for _, url := range sumsURLs {
		body, err := m.get(ctx, url)
		if err != nil {
			return fmt.Errorf("fetch SHA sums: %w", err)
		}

		content, err := io.ReadAll(body)
		body.Close()

		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		m.ParseSHASums(string(content))
	}

	return nil
}

// CollectSHASumsURLs collects SHA256 sums URLs from the configuration.
// A single setting may hold several comma separated URLs.
func (m *Manager) CollectSHASumsURLs() ([]string, error) {
	var sumsURLs []string

	sources := []string{
		m.cfg.YTdlpSHA256SumsURL,
		m.cfg.FFmpegSHA256SumsURL,
		m.cfg.DenoSHA256SumsURL,
	}

	for _, raw := range sources {
		for part := range strings.SplitSeq(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				sumsURLs = append(sumsURLs, part)
			}
		}
	}

	if len(sumsURLs) == 0 {
		return nil, fmt.Errorf("no SHA256 sums URLs configured")
	}

	return sumsURLs, nil
}

// ParseSHASums parses SHA256 sums in the format "hash  filename". Malformed lines are skipped.
func (m *Manager) ParseSHASums(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for line := range strings.SplitSeq(content, "\n") {
		parts := strings.Fields(line)
		if len(parts) != sha256SumsFieldCount {
			continue
		}

		hash, filename := parts[0], parts[1]
		if len(hash) != sha256HexLength {
			continue
		}

		m.shaSums[filename] = hash
	}

	m.log.Debug("parsed SHA256 sums", slog.Int("count", len(m.shaSums)))
}

// findUpdates returns the binaries whose fetched checksum is new or differs from the saved one.
func (m *Manager) findUpdates() []BinaryName {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var updates []BinaryName

	for _, binary := range managed {
		filename := m.getDownloadFilename(binary)

		newHash, hasNew := m.shaSums[filename]
		oldHash, hasOld := m.savedSums[filename]

		if hasNew && (!hasOld || newHash != oldHash) {
			updates = append(updates, binary)
		}
	}

	return updates
}

// isBinaryExists checks if a binary file exists and has non-zero size.
func (m *Manager) isBinaryExists(name BinaryName) bool {
	info, err := os.Stat(m.GetBinaryPath(name))

	return err == nil && info.Size() > 0
}

// setBinaryPaths records name and every companion binary shipped with it.
func (m *Manager) setBinaryPaths(name BinaryName) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, file := range m.getFilesNeeded(name) {
		m.binPaths[file] = m.GetBinaryPath(file)
	}
}

// downloadAndInstall downloads and installs a dependency binary.
func (m *Manager) downloadAndInstall(ctx context.Context, name BinaryName) error {
	log := m.log.With(slog.String("binary", string(name)))

	url, err := m.getBinaryURL(name)
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "downloading binary", slog.String("url", url))

	binPaths, err := m.downloadDependency(ctx, url, name)
	if err != nil {
		return fmt.Errorf("download dependency: %w", err)
	}

	for _, path := range binPaths {
		if err := os.Chmod(path, filePermExecutable); err != nil {
			return fmt.Errorf("chmod: %w", err)
		}
	}

	m.setBinaryPaths(name)

	log.InfoContext(ctx, "binary installed successfully", slog.Any("paths", binPaths))

	return nil
}

// loadSavedSums loads saved checksums from file.
func (m *Manager) loadSavedSums() error {
	data, err := os.ReadFile(filepath.Join(m.cfg.BinsDir, savedSumsFilename))
	if err != nil {
		return fmt.Errorf("read checksums file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := json.Unmarshal(data, &m.savedSums); err != nil {
		return fmt.Errorf("unmarshal checksums: %w", err)
	}

	return nil
}

// saveSums saves current checksums to file for future comparison.
func (m *Manager) saveSums() error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.shaSums, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("marshal checksums: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.cfg.BinsDir, savedSumsFilename), data, filePermReadWrite); err != nil {
		return fmt.Errorf("write checksums file: %w", err)
	}

	m.mu.Lock()
	m.savedSums = maps.Clone(m.shaSums)
	m.mu.Unlock()

	return nil
}

// getDownloadFilename returns the filename as it appears in the published checksums for a binary.
func (m *Manager) getDownloadFilename(name BinaryName) string {
	arm := m.platform.OS == platformLinux && m.platform.Arch == archARM64
	linux := m.platform.OS == platformLinux

	switch name {
	case BinaryYTdlp:
		switch {
		case arm:
			return "yt-dlp_linux_aarch64"
		case linux:
			return "yt-dlp_linux"
		}
	case BinaryFFmpeg:
		switch {
		case arm:
			return "ffmpeg-master-latest-linuxarm64-gpl.tar.xz"
		case linux:
			return "ffmpeg-master-latest-linux64-gpl.tar.xz"
		}
	case BinaryDeno:
		switch {
		case arm:
			return "deno-aarch64-unknown-linux-gnu.zip"
		case linux:
			return "deno-x86_64-unknown-linux-gnu.zip"
		}
	}

	return string(name)
}

// getBinaryURL returns the download URL for name on the current platform.
// Only linux builds are configured.
func (m *Manager) getBinaryURL(name BinaryName) (string, error) {
	if m.platform.OS != platformLinux {
		return "", fmt.Errorf("%w: %s", errs.ErrUnsupportedPlatform, m.platform)
	}

	var url string

	switch name {
	case BinaryYTdlp:
		url = m.selectURL(m.cfg.YTdlpLinuxARM64, m.cfg.YTdlpLinuxAMD64)
	case BinaryFFmpeg, BinaryFFprobe:
		url = m.selectURL(m.cfg.FFmpegLinuxARM64, m.cfg.FFmpegLinuxAMD64)
	case BinaryDeno:
		url = m.selectURL(m.cfg.DenoLinuxARM64, m.cfg.DenoLinuxAMD64)
	}

	if url == "" {
		return "", fmt.Errorf("%w: no download URL configured for %s on %s", errs.ErrBinaryNotFound, name, m.platform)
	}

	return url, nil
}

// selectURL picks the arm64 build on arm64 when configured and the amd64 build otherwise.
func (m *Manager) selectURL(linuxARM64, linuxAMD64 string) string {
	if m.platform.Arch == archARM64 && linuxARM64 != "" {
		return linuxARM64
	}

	return linuxAMD64
}

// getFilesNeeded returns the binaries shipped by the download of name.
func (m *Manager) getFilesNeeded(name BinaryName) []BinaryName {
	if name == BinaryFFmpeg {
		return []BinaryName{BinaryFFmpeg, BinaryFFprobe}
	}

	return []BinaryName{name}
}

func (m *Manager) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()

		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// prependPath puts dir in front of PATH unless it is already listed.
func prependPath(dir string) error {
	current := os.Getenv("PATH")
	if slices.Contains(filepath.SplitList(current), dir) {
		return nil
	}

	if current == "" {
		return os.Setenv("PATH", dir)
	}

	return os.Setenv("PATH", dir+string(os.PathListSeparator)+current)
}
