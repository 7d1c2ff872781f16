// Package archive stores finished reports in a cloud or local folder tree
// laid out as <base>/<YYYY>/<MM-Месяц>/.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Archive is the storage backend reports are published to. Implementations
// must be safe for concurrent use.
type Archive interface {
	// EnsureFolder returns the id of <base>/<year>/<MM-Month>, creating
	// missing levels. Repeated calls return the same id.
	EnsureFolder(ctx context.Context, base string, year int, month time.Month) (string, error)
	// Upload stores the local file under folderID and returns its URL.
	Upload(ctx context.Context, path, folderID, filename string) (string, error)
	// FolderURL returns a browsable URL of a folder for diagnostics.
	FolderURL(folderID string) string
}

// ErrDisabled is returned by every Disabled operation.
var ErrDisabled = errors.New("archive disabled")

// ArchiveError describes a failed archive operation.
type ArchiveError struct {
	Op   string
	Name string
	Err  error
}

func (e *ArchiveError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("archive %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("archive %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// MonthFolder returns the folder name of a month, e.g. "10-Октябрь".
func MonthFolder(m time.Month) string {
	if m < time.January || m > time.December {
		return fmt.Sprintf("%02d", int(m))
	}
	return fmt.Sprintf("%02d-%s", int(m), monthNames[m-1])
}

// YearFolder returns the folder name of a year.
func YearFolder(year int) string {
	return fmt.Sprintf("%04d", year)
}

// Disabled is the archive used when no credentials are configured.
type Disabled struct{}

func (Disabled) EnsureFolder(context.Context, string, int, time.Month) (string, error) {
	return "", &ArchiveError{Op: "ensure folder", Err: ErrDisabled}
}

func (Disabled) Upload(_ context.Context, _, _, filename string) (string, error) {
	return "", &ArchiveError{Op: "upload", Name: filename, Err: ErrDisabled}
}

func (Disabled) FolderURL(string) string { return "" }
