package dirs

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXDGOverrides(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG variables apply on linux only")
	}
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "cfg"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))

	cfg, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "cfg", "clipforge"), cfg)

	scratch, err := ScratchDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "cache", "clipforge", "scratch"), scratch)

	db, err := HistoryDB()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "state", "clipforge", "history.db"), db)

	lock, err := LockPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(db), filepath.Dir(lock))
}

func TestEnsureRejectsEmpty(t *testing.T) {
	assert.Error(t, Ensure(""))
	assert.NoError(t, Ensure(filepath.Join(t.TempDir(), "a", "b")))
}
