package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		existing string
	}{
		{name: "into missing directory"},
		{name: "replaces existing file", existing: "old contents that are longer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "src.tmp")
			dst := filepath.Join(dir, "nested", "deeper", "dst.bin")
			require.NoError(t, os.WriteFile(src, []byte("new"), FileModeDefault))
			if tt.existing != "" {
				require.NoError(t, EnsureFileDir(dst))
				require.NoError(t, os.WriteFile(dst, []byte(tt.existing), FileModeDefault))
			}

			require.NoError(t, Move(src, dst))

			content, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, "new", string(content))
			assert.NoFileExists(t, src)
		})
	}
}

func TestMove_Errors(t *testing.T) {
	dir := t.TempDir()

	assert.Error(t, Move("", filepath.Join(dir, "x")))
	assert.Error(t, Move(filepath.Join(dir, "missing"), filepath.Join(dir, "x")))
	assert.Error(t, Move(dir, filepath.Join(dir, "x")))
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(src, []byte("payload"), FileModeDefault))

	require.NoError(t, Copy(src, dst))

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))
	assert.FileExists(t, src)
}

func TestSizeMatches(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("12345"), FileModeDefault))

	tests := []struct {
		name string
		path string
		size int64
		want bool
	}{
		{name: "exact size", path: file, size: 5, want: true},
		{name: "wrong size", path: file, size: 4, want: false},
		{name: "unknown size accepts any file", path: file, size: 0, want: true},
		{name: "missing file", path: filepath.Join(dir, "missing"), size: 0, want: false},
		{name: "directory", path: dir, size: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SizeMatches(tt.path, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, FileModeDefault))

	require.NoError(t, RemoveIfExists(file))
	assert.NoFileExists(t, file)
	require.NoError(t, RemoveIfExists(file))
}

func TestEnsureFileDir(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "nested", "parent", "file.txt")

	require.NoError(t, EnsureFileDir(filePath))
	assert.DirExists(t, filepath.Dir(filePath))
	require.NoError(t, EnsureFileDir(filePath))
}

func TestEnsureDir_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}

	readonlyDir := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.Mkdir(readonlyDir, 0o555))

	assert.Error(t, EnsureDir(filepath.Join(readonlyDir, "shouldfail")))
}

func TestParentDirs(t *testing.T) {
	paths := []string{
		"/root/b/2.bin",
		"/root/a/1.bin",
		"/root/a/3.bin",
		"/root/b/4.bin",
		"/root/5.bin",
	}

	assert.Equal(t, []string{"/root", "/root/a", "/root/b"}, ParentDirs(paths))
	assert.Empty(t, ParentDirs(nil))
}
