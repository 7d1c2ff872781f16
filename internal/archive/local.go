package archive

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abhisek/profilebot/internal/filelock"
)

// Local archives into a directory tree. Folder ids are slash-separated paths
// relative to the root.
type Local struct {
	root string
}

// NewLocal returns a Local archive rooted at dir.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, &ArchiveError{Op: "init", Name: abs, Err: err}
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string { return l.root }

func (l *Local) EnsureFolder(ctx context.Context, base string, year int, month time.Month) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := strings.TrimPrefix(filepath.ToSlash(filepath.Join(base, YearFolder(year), MonthFolder(month))), "/")
	dir, err := l.dir(id)
	if err != nil {
		return "", &ArchiveError{Op: "ensure folder", Name: id, Err: err}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &ArchiveError{Op: "ensure folder", Name: id, Err: err}
	}
	return id, nil
}

func (l *Local) Upload(ctx context.Context, path, folderID, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &ArchiveError{Op: "upload", Name: filename, Err: err}
	}
	if filename != filepath.Base(filename) {
		return "", &ArchiveError{Op: "upload", Name: filename, Err: fmt.Errorf("file name must not contain a path")}
	}
	dir, err := l.dir(folderID)
	if err != nil {
		return "", &ArchiveError{Op: "upload", Name: filename, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", &ArchiveError{Op: "upload", Name: filename, Err: err}
	}
	defer f.Close()

	dst := filepath.Join(dir, filename)
	if err := filelock.AtomicCopy(dst, f); err != nil {
		return "", &ArchiveError{Op: "upload", Name: filename, Err: err}
	}
	return fileURL(dst), nil
}

func (l *Local) FolderURL(folderID string) string {
	dir, err := l.dir(folderID)
	if err != nil {
		return ""
	}
	return fileURL(dir)
}

// dir resolves a folder id and refuses ids that escape the root.
func (l *Local) dir(id string) (string, error) {
	dir := filepath.Join(l.root, filepath.FromSlash(id))
	rel, err := filepath.Rel(l.root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("folder %q is outside the archive root", id)
	}
	return dir, nil
}

func fileURL(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
