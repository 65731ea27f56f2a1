// Package dirs resolves per-user directories for clipforge.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "clipforge"

// kind is one directory class: the XDG variable and home-relative path on
// Linux, the home-relative path on macOS, and the resolver used elsewhere.
type kind struct {
	xdgEnv   string
	linux    []string
	darwin   []string
	fallback func() (string, error)
	// nested is appended below appName on macOS and Windows, where the
	// class shares a parent with another one.
	nested string
}

var (
	configKind = kind{xdgEnv: "XDG_CONFIG_HOME", linux: []string{".config"}, darwin: []string{"Library", "Application Support"}, fallback: os.UserConfigDir}
	dataKind   = kind{xdgEnv: "XDG_DATA_HOME", linux: []string{".local", "share"}, darwin: []string{"Library", "Application Support"}, fallback: os.UserConfigDir}
	cacheKind  = kind{xdgEnv: "XDG_CACHE_HOME", linux: []string{".cache"}, darwin: []string{"Library", "Caches"}, fallback: os.UserCacheDir}
	stateKind  = kind{xdgEnv: "XDG_STATE_HOME", linux: []string{".local", "state"}, darwin: []string{"Library", "Application Support"}, fallback: localAppData, nested: "state"}
)

func (k kind) resolve() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv(k.xdgEnv); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
	}
	var base string
	switch runtime.GOOS {
	case "linux", "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		rel := k.linux
		if runtime.GOOS == "darwin" {
			rel = k.darwin
		}
		base = filepath.Join(append([]string{home}, rel...)...)
	default:
		b, err := k.fallback()
		if err != nil {
			return "", err
		}
		base = b
	}
	if runtime.GOOS == "linux" {
		return filepath.Join(base, appName), nil
	}
	return filepath.Join(base, appName, k.nested), nil
}

// localAppData is %LocalAppData%, or the user config dir when unset.
func localAppData() (string, error) {
	if la := os.Getenv("LOCALAPPDATA"); la != "" {
		return la, nil
	}
	return os.UserConfigDir()
}

// ConfigDir returns the configuration directory, e.g. ~/.config/clipforge.
func ConfigDir() (string, error) { return configKind.resolve() }

// DataDir returns the data directory, e.g. ~/.local/share/clipforge.
func DataDir() (string, error) { return dataKind.resolve() }

// CacheDir returns the cache directory, e.g. ~/.cache/clipforge.
func CacheDir() (string, error) { return cacheKind.resolve() }

// StateDir holds the history database and the export lock, e.g.
// ~/.local/state/clipforge or ~/Library/Application Support/clipforge/state.
func StateDir() (string, error) { return stateKind.resolve() }

func under(dir func() (string, error), name string) (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name), nil
}

// DefaultOutputDir is where exports land when no output dir is configured.
func DefaultOutputDir() (string, error) { return under(DataDir, "output") }

// ScratchDir is the root for per-run scratch directories.
func ScratchDir() (string, error) { return under(CacheDir, "scratch") }

// HistoryDB is the default run history database path.
func HistoryDB() (string, error) { return under(StateDir, "history.db") }

// LockPath is the cross-process export lock.
func LockPath() (string, error) { return under(StateDir, "export.lock") }

// Ensure creates path and its parents.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll creates every per-user directory that resolves. Directories
// that cannot be resolved are skipped.
func EnsureAll() error {
	var errList []error
	for _, resolve := range []func() (string, error){ConfigDir, DataDir, CacheDir, StateDir} {
		if p, err := resolve(); err == nil {
			errList = append(errList, Ensure(p))
		}
	}
	return errors.Join(errList...)
}
