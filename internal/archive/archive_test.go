package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthFolder(t *testing.T) {
	tests := []struct {
		m    time.Month
		want string
	}{
		{time.January, "01-Январь"},
		{time.May, "05-Май"},
		{time.October, "10-Октябрь"},
		{time.December, "12-Декабрь"},
		{time.Month(13), "13"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MonthFolder(tt.m))
	}
	assert.Equal(t, "2026", YearFolder(2026))
}

func TestDisabled(t *testing.T) {
	var a Archive = Disabled{}

	_, err := a.EnsureFolder(context.Background(), "root", 2026, time.October)
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = a.Upload(context.Background(), "/tmp/x.pdf", "f", "x.pdf")
	var ae *ArchiveError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "upload", ae.Op)
	assert.Equal(t, "x.pdf", ae.Name)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Empty(t, a.FolderURL("f"))
}

func TestLocal_EnsureFolderIdempotent(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	id1, err := l.EnsureFolder(context.Background(), "reports", 2026, time.October)
	require.NoError(t, err)
	id2, err := l.EnsureFolder(context.Background(), "reports", 2026, time.October)
	require.NoError(t, err)

	assert.Equal(t, "reports/2026/10-Октябрь", id1)
	assert.Equal(t, id1, id2)
	assert.DirExists(t, filepath.Join(l.Root(), "reports", "2026", "10-Октябрь"))
}

func TestLocal_Upload(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	src := filepath.Join(t.TempDir(), "in.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF-1.3"), 0o644))

	folder, err := l.EnsureFolder(context.Background(), "", 2026, time.March)
	require.NoError(t, err)
	url, err := l.Upload(context.Background(), src, folder, "2026-03-01_10-00-00_Анна_short.pdf")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "file://"), url)
	got, err := os.ReadFile(filepath.Join(l.Root(), "2026", "03-Март", "2026-03-01_10-00-00_Анна_short.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(got))
	assert.True(t, strings.HasPrefix(l.FolderURL(folder), "file://"))
}

func TestLocal_RejectsEscapes(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	src := filepath.Join(t.TempDir(), "in.pdf")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	_, err = l.Upload(context.Background(), src, "../outside", "x.pdf")
	assert.Error(t, err)
	_, err = l.Upload(context.Background(), src, "", "../x.pdf")
	assert.Error(t, err)
}

func TestLocal_MissingSource(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	_, err = l.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), "", "nope.pdf")
	var ae *ArchiveError
	assert.True(t, errors.As(err, &ae))
}
