package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Backup formats.
const (
	FormatTarGz = "tar.gz"
	FormatTarXz = "tar.xz"
)

// Snapshot archives a single file into backupDir and returns the
// backup path. The archive holds one entry named after the source
// file; the backup name carries a timestamp so repeated snapshots of
// the same document never collide.
func Snapshot(srcPath, backupDir, format string) (string, error) {
	if format != FormatTarGz && format != FormatTarXz {
		return "", fmt.Errorf("unsupported backup format: %s", format)
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source is a directory: %s", srcPath)
	}

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	name := filepath.Base(srcPath)
	dstPath := filepath.Join(backupDir, fmt.Sprintf("%s.%s.%s", name, stamp, format))

	outFile, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	defer outFile.Close()

	var compressor io.WriteCloser
	if format == FormatTarXz {
		compressor, err = xz.NewWriter(outFile)
		if err != nil {
			return "", fmt.Errorf("xz writer: %w", err)
		}
	} else {
		compressor = gzip.NewWriter(outFile)
	}

	tw := tar.NewWriter(compressor)

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return "", fmt.Errorf("build header: %w", err)
	}
	header.Name = name

	if err := tw.WriteHeader(header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	if _, err := io.Copy(tw, src); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("close tar: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return "", fmt.Errorf("close compressor: %w", err)
	}
	return dstPath, nil
}

// Restore writes the first regular file in the backup archive to
// dstPath. The write goes through a temp file and rename so a failed
// restore never leaves a truncated document behind.
func Restore(backupPath, dstPath string) error {
	var content []byte
	err := IterateArchive(backupPath, func(header *tar.Header, r io.Reader) (bool, error) {
		if header.Typeflag != tar.TypeReg {
			return false, nil
		}
		var err error
		content, err = io.ReadAll(r)
		return true, err
	})
	if err != nil {
		return err
	}
	if content == nil {
		return fmt.Errorf("backup holds no file: %s", backupPath)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".restore-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write restore: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename restore: %w", err)
	}
	return nil
}

// Backup describes one snapshot on disk.
type Backup struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// List returns the backups in backupDir, newest first. A missing
// directory yields an empty list.
func List(backupDir string) ([]Backup, error) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []Backup
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, "."+FormatTarGz) && !strings.HasSuffix(name, "."+FormatTarXz) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat backup %s: %w", name, err)
		}
		backups = append(backups, Backup{
			Path:    filepath.Join(backupDir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].ModTime.After(backups[j].ModTime)
	})
	return backups, nil
}
