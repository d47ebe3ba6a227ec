package depmanager

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// downloadDependency downloads a binary or an archive holding it into BinsDir. Returns installed paths.
func (m *Manager) downloadDependency(ctx context.Context, url string, name BinaryName) ([]string, error) {
	body, err := m.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer body.Close()

	destDir := m.cfg.BinsDir

	tmpFile, err := os.CreateTemp(destDir, "download-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmpFile.Name()

	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, body); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	if !isArchive(url) {
		binPath := m.GetBinaryPath(name)
		if err := os.Rename(tmpPath, binPath); err != nil {
			return nil, fmt.Errorf("rename: %w", err)
		}

		return []string{binPath}, nil
	}

	targets := make(map[string]string)
	for _, file := range m.getFilesNeeded(name) {
		targets[filepath.Base(m.GetBinaryPath(file))] = m.GetBinaryPath(file)
	}

	if err := extractFiles(tmpPath, url, targets); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	installed := make([]string, 0, len(targets))
	for _, path := range targets {
		installed = append(installed, path)
	}

	return installed, nil
}

func isArchive(url string) bool {
	return strings.HasSuffix(url, ".zip") ||
		strings.HasSuffix(url, ".tar.xz") ||
		strings.HasSuffix(url, ".tar.gz")
}

// extractFiles copies every archive member whose base name is a key of targets to the mapped path.
func extractFiles(archivePath, url string, targets map[string]string) error {
	switch {
	case strings.HasSuffix(url, ".zip"):
		return extractFromZip(archivePath, targets)
	case strings.HasSuffix(url, ".tar.xz"):
		return extractFromTarXZ(archivePath, targets)
	case strings.HasSuffix(url, ".tar.gz"):
		return extractFromTarGZ(archivePath, targets)
	default:
		return fmt.Errorf("unsupported archive format")
	}
}

func extractFromZip(zipPath string, targets map[string]string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	extracted := 0

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		dest, ok := targets[file.FileInfo().Name()]
		if !ok {
			continue
		}

		src, err := file.Open()
		if err != nil {
			return fmt.Errorf("open file in zip: %w", err)
		}

		err = writeExecutable(dest, src)
		src.Close()

		if err != nil {
			return err
		}

		if extracted++; extracted == len(targets) {
			return nil
		}
	}

	if extracted == 0 {
		return fmt.Errorf("no target files found in zip archive")
	}

	return nil
}

func extractFromTarXZ(tarXZPath string, targets map[string]string) error {
	file, err := os.Open(tarXZPath)
	if err != nil {
		return fmt.Errorf("open tar.xz: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("create xz reader: %w", err)
	}

	return extractTarSelected(xzReader, targets)
}

func extractFromTarGZ(tarGZPath string, targets map[string]string) error {
	file, err := os.Open(tarGZPath)
	if err != nil {
		return fmt.Errorf("open tar.gz: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzReader.Close()

	return extractTarSelected(gzReader, targets)
}

func extractTarSelected(reader io.Reader, targets map[string]string) error {
	tarReader := tar.NewReader(reader)
	extracted := 0

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		dest, ok := targets[filepath.Base(header.Name)]
		if !ok {
			continue
		}

		if err := writeExecutable(dest, tarReader); err != nil {
			return err
		}

		if extracted++; extracted == len(targets) {
			return nil
		}
	}

	if extracted == 0 {
		return fmt.Errorf("no target files found in tar archive")
	}

	return nil
}

func writeExecutable(dest string, src io.Reader) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
	if err != nil {
		return fmt.Errorf("create dest file: %w", err)
	}

	_, err = io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("extract file: %w", err)
	}

	return nil
}
