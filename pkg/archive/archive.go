// Package archive unpacks native library archives into a version's natives
// directory.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cperrin88/mcfetch/internal/logger"
	pkgerrors "github.com/cperrin88/mcfetch/pkg/errors"
	"github.com/cperrin88/mcfetch/pkg/fsutil"
	"github.com/mholt/archives"
)

// Extractor unpacks archives onto disk.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract unpacks every regular file of archivePath below destDir and returns
// the number of files written. Entries whose slash separated name starts with
// one of the exclude prefixes are skipped. Existing files are overwritten.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string, exclude []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.ErrCancelled, err.Error())
	}
	if err := checkFormat(ctx, archivePath); err != nil {
		return 0, err
	}

	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive file: %w", err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := fsutil.EnsureDir(destDir); err != nil {
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}

	written := 0
	err = fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pkgerrors.Wrap(pkgerrors.ErrCancelled, ctxErr.Error())
		}
		if name == "." {
			return nil
		}
		if excluded(name, d.IsDir(), exclude) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		target, err := targetPath(destDir, name)
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsutil.EnsureDir(target)
		}
		if !d.Type().IsRegular() {
			logger.Debug("Skipping non-regular archive entry", logger.Fields{"entry": name})
			return nil
		}
		if err := writeEntry(fsys, name, target); err != nil {
			return err
		}
		written++
		return nil
	})
	if err != nil {
		return written, err
	}

	logger.Debug("Extracted archive", logger.Fields{"archive": archivePath, "dest": destDir, "files": written})
	return written, nil
}

// checkFormat rejects files that are not a recognized archive. Without it a
// plain file would be exposed as a one-entry file system.
func checkFormat(ctx context.Context, archivePath string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pkgerrors.Wrapf(pkgerrors.ErrFileNotFound, "%s", archivePath)
		}
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	defer func() { _ = f.Close() }()

	format, _, err := archives.Identify(ctx, filepath.Base(archivePath), f)
	if err != nil {
		if errors.Is(err, archives.NoMatch) {
			return pkgerrors.Wrapf(pkgerrors.ErrArchiveFormat, "%s", archivePath)
		}
		return fmt.Errorf("failed to identify archive %s: %w", archivePath, err)
	}
	if _, ok := format.(archives.Extractor); !ok {
		return pkgerrors.Wrapf(pkgerrors.ErrArchiveFormat, "%s", archivePath)
	}
	return nil
}

func excluded(name string, isDir bool, exclude []string) bool {
	if isDir {
		name += "/"
	}
	for _, prefix := range exclude {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// targetPath maps an archive entry onto destDir, refusing names that would
// land outside of it.
func targetPath(destDir, name string) (string, error) {
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", pkgerrors.Wrapf(pkgerrors.ErrUnsafeEntry, "%s", name)
	}
	target := filepath.Join(destDir, filepath.FromSlash(clean))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", pkgerrors.Wrapf(pkgerrors.ErrUnsafeEntry, "%s", name)
	}
	return target, nil
}

func writeEntry(fsys fs.FS, name, target string) error {
	src, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", name, err)
	}
	defer func() { _ = src.Close() }()

	if err := fsutil.EnsureFileDir(target); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", name, err)
	}
	dst, err := fsutil.CreateFilePerm(target, fsutil.FileModeDefault)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to copy archive entry %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", target, err)
	}
	return nil
}
