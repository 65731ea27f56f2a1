package encoder

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// fontFiles lists the file names tried for each catalogue font.
var fontFiles = map[string][]string{
	"arial":           {"Arial.ttf", "arial.ttf", "Arial.ttc", "LiberationSans-Regular.ttf"},
	"times new roman": {"Times New Roman.ttf", "times.ttf", "Times.ttc", "LiberationSerif-Regular.ttf"},
	"helvetica":       {"Helvetica.ttc", "Helvetica.ttf", "LiberationSans-Regular.ttf"},
}

// PlatformFontDirs returns the usual system font directories for the
// running OS.
func PlatformFontDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return []string{"/System/Library/Fonts", "/Library/Fonts", filepath.Join(home, "Library", "Fonts")}
	case "windows":
		return []string{filepath.Join(os.Getenv("WINDIR"), "Fonts")}
	default:
		return []string{
			"/usr/share/fonts",
			"/usr/local/share/fonts",
			filepath.Join(home, ".local", "share", "fonts"),
			filepath.Join(home, ".fonts"),
		}
	}
}

// DefaultFallbackFont is the one documented font used when the requested
// font cannot be found.
func DefaultFallbackFont() string {
	switch runtime.GOOS {
	case "darwin":
		return "/System/Library/Fonts/Helvetica.ttc"
	case "windows":
		return filepath.Join(os.Getenv("WINDIR"), "Fonts", "arial.ttf")
	default:
		return "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
	}
}

// FontResolver finds font files by name or path.
type FontResolver struct {
	Dirs     []string // searched first, then PlatformFontDirs
	Fallback string   // defaults to DefaultFallbackFont
	exists   func(string) bool
}

// Resolve returns a font file for name. fellBack is true when the fallback
// was used. ok is false when neither the font nor the fallback exists.
func (r FontResolver) Resolve(name string) (path string, fellBack bool, ok bool) {
	exists := r.exists
	if exists == nil {
		exists = isFile
	}
	name = strings.TrimSpace(name)

	if looksLikePath(name) {
		if exists(name) {
			return name, false, true
		}
	} else if name != "" {
		candidates := fontFiles[strings.ToLower(name)]
		if candidates == nil {
			for _, ext := range []string{".ttf", ".otf", ".ttc"} {
				candidates = append(candidates, name+ext)
			}
		}
		dirs := append(append([]string(nil), r.Dirs...), PlatformFontDirs()...)
		for _, dir := range dirs {
			if dir == "" {
				continue
			}
			for _, c := range candidates {
				if p := findIn(dir, c, exists); p != "" {
					return p, false, true
				}
			}
		}
	}

	fb := r.Fallback
	if fb == "" {
		fb = DefaultFallbackFont()
	}
	if exists(fb) {
		return fb, true, true
	}
	return "", true, false
}

// findIn looks for file directly in dir and one and two levels below it,
// which covers the usual truetype/<family>/ layout.
func findIn(dir, file string, exists func(string) bool) string {
	if p := filepath.Join(dir, file); exists(p) {
		return p
	}
	for _, pattern := range []string{
		filepath.Join(dir, "*", file),
		filepath.Join(dir, "*", "*", file),
	} {
		matches, _ := filepath.Glob(pattern)
		for _, m := range matches {
			if exists(m) {
				return m
			}
		}
	}
	return ""
}

func looksLikePath(s string) bool {
	if strings.ContainsAny(s, `/\`) {
		return true
	}
	switch strings.ToLower(filepath.Ext(s)) {
	case ".ttf", ".otf", ".ttc":
		return true
	}
	return false
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}
