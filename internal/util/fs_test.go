package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeTempWorkdir(t *testing.T) {
	base := t.TempDir()
	dir, err := MakeTempWorkdir(base, "run")
	require.NoError(t, err)
	assert.Equal(t, base, filepath.Dir(dir))
	assert.Contains(t, filepath.Base(dir), "run-")
}

func TestWriteSidecarAndMove(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "clip.mp4")
	path, err := WriteSidecar(out, ".srt", "1\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clip.srt"), path)

	dst := filepath.Join(dir, "moved.srt")
	require.NoError(t, MoveFile(path, dst))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "1\n", string(b))
}

func TestCheckWritableDir(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, CheckWritableDir(dir))

	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, CheckWritableDir(file))
	assert.Error(t, CheckWritableDir(filepath.Join(dir, "missing")))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "untitled", SanitizeFilename(""))
	assert.Equal(t, "a_b_c", SanitizeFilename("a / b : c"))
	assert.Equal(t, "untitled", SanitizeFilename("???"))
}

func TestSanitizeFilenameKeepsUnicodeAndCaps(t *testing.T) {
	assert.Equal(t, "Café_déjà_vu", SanitizeFilename("  Café\tdéjà vu!! "))
	assert.Equal(t, "a_b", SanitizeFilename("a__b"))

	long := SanitizeFilename(strings.Repeat("é", 250))
	assert.Equal(t, maxNameRunes, utf8.RuneCountInString(long))
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	assert.NoError(t, RemoveIfExists(path))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.NoError(t, RemoveIfExists(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
