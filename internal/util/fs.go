package util

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// MakeTempWorkdir creates a fresh "<prefix>-*" directory under base, or
// under $TMPDIR/clipforge when base is empty.
func MakeTempWorkdir(base, prefix string) (string, error) {
	if base == "" {
		base = filepath.Join(os.TempDir(), "clipforge")
	}
	if err := EnsureDir(base); err != nil {
		return "", err
	}
	return os.MkdirTemp(base, prefix+"-")
}

// EnsureDir creates path and its parents.
func EnsureDir(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// RemoveIfExists deletes path; a missing file is not an error.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

const maxNameRunes = 200

// SanitizeFilename maps s to a portable file stem: whitespace and shell or
// filesystem metacharacters become single underscores, leading and trailing
// punctuation is dropped, and the result is capped at maxNameRunes runes.
func SanitizeFilename(s string) string {
	var b strings.Builder
	n := 0
	pendingSep := false
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || strings.ContainsRune(unsafeNameRunes, r) {
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 && n < maxNameRunes {
			b.WriteByte('_')
			n++
		}
		pendingSep = false
		if n >= maxNameRunes {
			break
		}
		b.WriteRune(r)
		n++
	}
	out := strings.Trim(b.String(), "._-")
	if out == "" {
		return "untitled"
	}
	return out
}

const unsafeNameRunes = `_[]/\:*?"<>|#%{}$!@+^~=&;` + "`"

// WriteSidecar writes content next to outputPath, replacing its extension
// with ext (for example ".srt").
func WriteSidecar(outputPath, ext, content string) (string, error) {
	base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
	path := base + ext
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// MoveFile renames src to dst, copying across filesystems when needed.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

// CheckWritableDir returns an error unless dir exists, is a directory and
// can be written by this process.
func CheckWritableDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return writable(dir)
}
