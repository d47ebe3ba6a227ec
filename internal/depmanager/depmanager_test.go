//nolint:testpackage // using internal package access to cover private helpers
package depmanager

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"mediadl/internal/config"
	"mediadl/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLinuxManager(cfg config.DepManager) *Manager {
	mgr := New(slog.Default(), cfg)
	mgr.platform = Platform{OS: platformLinux, Arch: archAMD64}

	return mgr
}

func TestParseSHASums(t *testing.T) {
	t.Parallel()

	hashA := strings.Repeat("a", sha256HexLength)
	hashB := strings.Repeat("b", sha256HexLength)

	tests := []struct {
		name     string
		content  string
		wantHash map[string]string
	}{
		{
			name:     "valid sums",
			content:  hashA + "  yt-dlp\n" + hashB + "  yt-dlp_linux",
			wantHash: map[string]string{"yt-dlp": hashA, "yt-dlp_linux": hashB},
		},
		{
			name:     "empty content",
			content:  "",
			wantHash: map[string]string{},
		},
		{
			name:     "invalid format",
			content:  "not a valid line",
			wantHash: map[string]string{},
		},
		{
			name:     "invalid hash length",
			content:  "short  filename",
			wantHash: map[string]string{},
		},
		{
			name:     "mixed valid and invalid",
			content:  hashA + "  valid_file\ninvalid line here\n\n" + hashB + "  another_valid\n",
			wantHash: map[string]string{"valid_file": hashA, "another_valid": hashB},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mgr := newLinuxManager(config.DepManager{})
			mgr.ParseSHASums(tc.content)

			assert.Equal(t, tc.wantHash, mgr.shaSums)
		})
	}
}

func TestGetBinaryPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		binary   BinaryName
		os       string
		binsDir  string
		wantPath string
	}{
		{name: "yt-dlp on linux", binary: BinaryYTdlp, os: "linux", binsDir: "/app/bins", wantPath: "/app/bins/yt-dlp"},
		{name: "yt-dlp on windows", binary: BinaryYTdlp, os: "windows", binsDir: "/app/bins", wantPath: "/app/bins/yt-dlp.exe"},
		{name: "ffprobe on linux", binary: BinaryFFprobe, os: "linux", binsDir: "/opt/bins", wantPath: "/opt/bins/ffprobe"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mgr := New(slog.Default(), config.DepManager{BinsDir: tc.binsDir})
			mgr.platform.OS = tc.os

			assert.Equal(t, tc.wantPath, mgr.GetBinaryPath(tc.binary))
		})
	}
}

func TestFetchSHASums(t *testing.T) {
	t.Parallel()

	hash := strings.Repeat("c", sha256HexLength)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s  %s\n", hash, strings.TrimPrefix(r.URL.Path, "/"))
	}))
	defer server.Close()

	mgr := newLinuxManager(config.DepManager{
		YTdlpSHA256SumsURL: server.URL + "/yt-dlp_linux",
		DenoSHA256SumsURL:  server.URL + "/deno-a.zip, " + server.URL + "/deno-b.zip",
	})

	require.NoError(t, mgr.FetchSHASums(t.Context()))
	assert.Len(t, mgr.shaSums, 3)
	assert.Equal(t, hash, mgr.shaSums["deno-b.zip"])
}

func TestFetchSHASums_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	mgr := newLinuxManager(config.DepManager{YTdlpSHA256SumsURL: server.URL})

	err := mgr.FetchSHASums(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status: 500")
}

func TestCollectSHASumsURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.DepManager
		wantLen int
		wantErr bool
	}{
		{
			name:    "single URL",
			cfg:     config.DepManager{YTdlpSHA256SumsURL: "https://example.com/sha256sums"},
			wantLen: 1,
		},
		{
			name:    "multiple URLs with comma",
			cfg:     config.DepManager{DenoSHA256SumsURL: "https://example.com/sum1,https://example.com/sum2"},
			wantLen: 2,
		},
		{
			name: "multiple sources",
			cfg: config.DepManager{
				YTdlpSHA256SumsURL:  "https://example.com/ytdlp",
				FFmpegSHA256SumsURL: "https://example.com/ffmpeg",
				DenoSHA256SumsURL:   "https://example.com/deno",
			},
			wantLen: 3,
		},
		{
			name:    "blank entries",
			cfg:     config.DepManager{YTdlpSHA256SumsURL: " , ,"},
			wantErr: true,
		},
		{
			name:    "no URLs configured",
			cfg:     config.DepManager{},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			urls, err := newLinuxManager(tc.cfg).CollectSHASumsURLs()
			if tc.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Len(t, urls, tc.wantLen)
		})
	}
}

func TestSelectURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		arch     string
		linuxARM string
		want     string
	}{
		{name: "arm64 with config", arch: "arm64", linuxARM: "https://example.com/arm64", want: "https://example.com/arm64"},
		{name: "arm64 without config", arch: "arm64", want: "https://example.com/amd64"},
		{name: "amd64", arch: "amd64", linuxARM: "https://example.com/arm64", want: "https://example.com/amd64"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mgr := newLinuxManager(config.DepManager{})
			mgr.platform.Arch = tc.arch

			assert.Equal(t, tc.want, mgr.selectURL(tc.linuxARM, "https://example.com/amd64"))
		})
	}
}

func TestGetBinaryURL_UnsupportedPlatform(t *testing.T) {
	t.Parallel()

	mgr := New(slog.Default(), config.DepManager{YTdlpLinuxAMD64: "https://example.com/yt-dlp"})
	mgr.platform = Platform{OS: "darwin", Arch: archARM64}

	_, err := mgr.getBinaryURL(BinaryYTdlp)
	require.ErrorIs(t, err, errs.ErrUnsupportedPlatform)
}

func TestGetBinaryURL_NotConfigured(t *testing.T) {
	t.Parallel()

	_, err := newLinuxManager(config.DepManager{}).getBinaryURL(BinaryDeno)
	require.ErrorIs(t, err, errs.ErrBinaryNotFound)
}

func TestGetDownloadFilename(t *testing.T) {
	t.Parallel()

	linuxARM := Platform{OS: "linux", Arch: "arm64"}
	linuxAMD := Platform{OS: "linux", Arch: "amd64"}

	tests := []struct {
		name     string
		binary   BinaryName
		platform Platform
		want     string
	}{
		{name: "yt-dlp linux arm64", binary: BinaryYTdlp, platform: linuxARM, want: "yt-dlp_linux_aarch64"},
		{name: "yt-dlp linux amd64", binary: BinaryYTdlp, platform: linuxAMD, want: "yt-dlp_linux"},
		{name: "yt-dlp darwin", binary: BinaryYTdlp, platform: Platform{OS: "darwin", Arch: "arm64"}, want: "yt-dlp"},
		{name: "ffmpeg linux arm64", binary: BinaryFFmpeg, platform: linuxARM, want: "ffmpeg-master-latest-linuxarm64-gpl.tar.xz"},
		{name: "ffmpeg linux amd64", binary: BinaryFFmpeg, platform: linuxAMD, want: "ffmpeg-master-latest-linux64-gpl.tar.xz"},
		{name: "deno linux arm64", binary: BinaryDeno, platform: linuxARM, want: "deno-aarch64-unknown-linux-gnu.zip"},
		{name: "deno linux amd64", binary: BinaryDeno, platform: linuxAMD, want: "deno-x86_64-unknown-linux-gnu.zip"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mgr := New(slog.Default(), config.DepManager{})
			mgr.platform = tc.platform

			assert.Equal(t, tc.want, mgr.getDownloadFilename(tc.binary))
		})
	}
}

func TestBinaryExists(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "yt-dlp"), []byte("binary content"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "deno"), nil, 0o755))

	mgr := newLinuxManager(config.DepManager{BinsDir: tmpDir})

	assert.True(t, mgr.isBinaryExists(BinaryYTdlp))
	assert.False(t, mgr.isBinaryExists(BinaryFFmpeg), "missing file")
	assert.False(t, mgr.isBinaryExists(BinaryDeno), "empty file")
}

func TestFindUpdates(t *testing.T) {
	t.Parallel()

	oldHash := strings.Repeat("1", sha256HexLength)
	newHash := strings.Repeat("2", sha256HexLength)

	mgr := newLinuxManager(config.DepManager{})
	mgr.savedSums = map[string]string{
		"yt-dlp_linux":                     oldHash,
		"deno-x86_64-unknown-linux-gnu.zip": oldHash,
	}
	mgr.shaSums = map[string]string{
		"yt-dlp_linux":                            newHash,
		"deno-x86_64-unknown-linux-gnu.zip":       oldHash,
		"ffmpeg-master-latest-linux64-gpl.tar.xz": newHash,
	}

	assert.Equal(t, []BinaryName{BinaryFFmpeg, BinaryYTdlp}, mgr.findUpdates())
}

func TestFindUpdates_NoChanges(t *testing.T) {
	t.Parallel()

	hash := strings.Repeat("3", sha256HexLength)

	mgr := newLinuxManager(config.DepManager{})
	mgr.savedSums = map[string]string{"yt-dlp_linux": hash}
	mgr.shaSums = map[string]string{"yt-dlp_linux": hash}

	assert.Empty(t, mgr.findUpdates())
}

func TestSaveAndLoadSums(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	cfg := config.DepManager{BinsDir: tmpDir}

	mgr := newLinuxManager(cfg)
	mgr.shaSums = map[string]string{
		"file1": strings.Repeat("4", sha256HexLength),
		"file2": strings.Repeat("5", sha256HexLength),
	}

	require.NoError(t, mgr.saveSums())
	assert.FileExists(t, filepath.Join(tmpDir, savedSumsFilename))
	assert.Equal(t, mgr.shaSums, mgr.savedSums)

	mgr2 := newLinuxManager(cfg)
	require.NoError(t, mgr2.loadSavedSums())
	assert.Equal(t, mgr.shaSums, mgr2.savedSums)
}

func TestDownloadDependency_PlainBinary(t *testing.T) {
	t.Parallel()

	content := "binary content here"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	tmpDir := t.TempDir()
	mgr := newLinuxManager(config.DepManager{BinsDir: tmpDir})

	paths, err := mgr.downloadDependency(t.Context(), server.URL+"/yt-dlp_linux", BinaryYTdlp)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(tmpDir, "yt-dlp")}, paths)

	got, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, content, string(got))

	leftovers, err := filepath.Glob(filepath.Join(tmpDir, "download-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp file must be removed")
}

func TestDownloadDependency_Archives(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		suffix  string
		binary  BinaryName
		archive func(t *testing.T, files map[string]string) []byte
		files   map[string]string
		want    map[string]string
	}{
		{
			name:    "ffmpeg tar.gz ships ffprobe",
			suffix:  ".tar.gz",
			binary:  BinaryFFmpeg,
			archive: tarGZ,
			files: map[string]string{
				"ffmpeg-master/bin/ffmpeg":  "ffmpeg bin",
				"ffmpeg-master/bin/ffprobe": "ffprobe bin",
				"ffmpeg-master/LICENSE.txt": "gpl",
			},
			want: map[string]string{"ffmpeg": "ffmpeg bin", "ffprobe": "ffprobe bin"},
		},
		{
			name:    "deno zip",
			suffix:  ".zip",
			binary:  BinaryDeno,
			archive: zipArchive,
			files:   map[string]string{"deno": "deno bin", "README.md": "readme"},
			want:    map[string]string{"deno": "deno bin"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			payload := tc.archive(t, tc.files)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write(payload)
			}))
			defer server.Close()

			tmpDir := t.TempDir()
			mgr := newLinuxManager(config.DepManager{BinsDir: tmpDir})

			paths, err := mgr.downloadDependency(t.Context(), server.URL+"/archive"+tc.suffix, tc.binary)
			require.NoError(t, err)
			assert.Len(t, paths, len(tc.want))

			for name, content := range tc.want {
				got, err := os.ReadFile(filepath.Join(tmpDir, name))
				require.NoError(t, err)
				assert.Equal(t, content, string(got))
			}

			assert.NoFileExists(t, filepath.Join(tmpDir, "README.md"))
			assert.NoFileExists(t, filepath.Join(tmpDir, "LICENSE.txt"))
		})
	}
}

func TestDownloadDependency_ArchiveWithoutTargets(t *testing.T) {
	t.Parallel()

	payload := zipArchive(t, map[string]string{"README.md": "readme"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	mgr := newLinuxManager(config.DepManager{BinsDir: t.TempDir()})

	_, err := mgr.downloadDependency(t.Context(), server.URL+"/deno.zip", BinaryDeno)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no target files found")
}

func TestInstallAll_KeepsExistingBinaries(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	for _, name := range []string{"yt-dlp", "ffmpeg", "ffprobe", "deno"} {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), []byte("old "+name), 0o755))
	}

	hash := strings.Repeat("6", sha256HexLength)
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		fmt.Fprintf(w, "%s  yt-dlp_linux\n", hash)
	}))
	defer server.Close()

	mgr := newLinuxManager(config.DepManager{
		BinsDir:            tmpDir,
		YTdlpSHA256SumsURL: server.URL + "/sha",
	})

	require.NoError(t, mgr.InstallAll(t.Context()))

	assert.Equal(t, filepath.Join(tmpDir, "yt-dlp"), mgr.InstalledPath(BinaryYTdlp))
	assert.Equal(t, filepath.Join(tmpDir, "ffprobe"), mgr.InstalledPath(BinaryFFprobe))
	assert.Equal(t, int32(1), requests.Load(), "only checksums are fetched")

	got, err := os.ReadFile(filepath.Join(tmpDir, "yt-dlp"))
	require.NoError(t, err)
	assert.Equal(t, "old yt-dlp", string(got))
	assert.Equal(t, hash, mgr.savedSums["yt-dlp_linux"])
}

func TestUpdate_DownloadsNewBinary(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	const (
		filename      = "yt-dlp_linux"
		binaryContent = "updated binary"
	)

	newHash := strings.Repeat("a", sha256HexLength)
	oldHash := strings.Repeat("b", sha256HexLength)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sha":
			fmt.Fprintf(w, "%s  %s\n", newHash, filename)
		case "/bin":
			_, _ = w.Write([]byte(binaryContent))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := config.DepManager{
		BinsDir:            tmpDir,
		YTdlpSHA256SumsURL: server.URL + "/sha",
		YTdlpLinuxAMD64:    server.URL + "/bin",
	}

	// previous install recorded the old checksum
	prev := newLinuxManager(cfg)
	prev.shaSums = map[string]string{filename: oldHash}
	require.NoError(t, prev.saveSums())

	mgr := newLinuxManager(cfg)

	updated, err := mgr.Update(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []BinaryName{BinaryYTdlp}, updated)

	data, err := os.ReadFile(filepath.Join(tmpDir, "yt-dlp"))
	require.NoError(t, err)
	assert.Equal(t, binaryContent, string(data))
	assert.Equal(t, newHash, mgr.savedSums[filename])

	// nothing changed upstream since
	updated, err = newLinuxManager(cfg).Update(t.Context())
	require.NoError(t, err)
	assert.Empty(t, updated)
}

func TestUpdate_ChecksumsUnavailable(t *testing.T) {
	t.Parallel()

	_, err := newLinuxManager(config.DepManager{BinsDir: t.TempDir()}).Update(t.Context())
	require.Error(t, err)
}

//nolint:paralleltest // mutates PATH
func TestResolve_SystemBinaries(t *testing.T) {
	binDir := t.TempDir()
	ytdlp := filepath.Join(binDir, "yt-dlp")
	require.NoError(t, os.WriteFile(ytdlp, []byte("#!/bin/sh\n"), 0o755))

	t.Setenv("PATH", binDir)

	mgr := newLinuxManager(config.DepManager{UseSystemBinaries: true})

	path, err := mgr.Resolve(t.Context())
	require.NoError(t, err)
	assert.Equal(t, ytdlp, path)
	assert.Empty(t, mgr.InstalledPath(BinaryFFmpeg), "optional binary missing")
}

//nolint:paralleltest // mutates PATH
func TestResolve_SystemBinaryMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := newLinuxManager(config.DepManager{UseSystemBinaries: true}).Resolve(t.Context())
	require.ErrorIs(t, err, errs.ErrBinaryNotFound)
}

//nolint:paralleltest // mutates PATH
func TestResolve_InstalledBinariesPrependPath(t *testing.T) {
	binsDir := t.TempDir()
	for _, name := range []string{"yt-dlp", "ffmpeg", "ffprobe", "deno"} {
		require.NoError(t, os.WriteFile(filepath.Join(binsDir, name), []byte(name), 0o755))
	}

	hash := strings.Repeat("7", sha256HexLength)
	require.NoError(t, os.WriteFile(filepath.Join(binsDir, savedSumsFilename),
		[]byte(`{"yt-dlp_linux": "`+hash+`"}`), 0o644))

	t.Setenv("PATH", "/usr/bin")

	mgr := newLinuxManager(config.DepManager{BinsDir: binsDir})

	path, err := mgr.Resolve(t.Context())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(binsDir, "yt-dlp"), path)
	assert.Equal(t, binsDir+string(os.PathListSeparator)+"/usr/bin", os.Getenv("PATH"))

	// a second resolve does not duplicate the entry
	_, err = mgr.Resolve(t.Context())
	require.NoError(t, err)
	assert.Equal(t, binsDir+string(os.PathListSeparator)+"/usr/bin", os.Getenv("PATH"))
}

func tarGZ(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o755,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)

		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())

	return buf.Bytes()
}
