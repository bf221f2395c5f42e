package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[auto_export]\nmode = \"immediate\"\n"), 0o644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	w.debouncePeriod = 50 * time.Millisecond
	defer w.Stop()

	var mu sync.Mutex
	var modes []string
	w.OnReload(func(cfg *Config) error {
		mu.Lock()
		modes = append(modes, cfg.AutoExport.Mode)
		mu.Unlock()
		return nil
	})
	w.Start()

	require.NoError(t, os.WriteFile(path, []byte("[auto_export]\nmode = \"idle\"\n"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(modes) == 1 && modes[0] == ModeIdle
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[auto_export]\nmode = \"immediate\"\n"), 0o644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	w.debouncePeriod = 100 * time.Millisecond
	defer w.Stop()

	var mu sync.Mutex
	reloads := 0
	w.OnReload(func(cfg *Config) error {
		mu.Lock()
		reloads++
		mu.Unlock()
		return nil
	})
	w.Start()

	// Burst of writes inside one debounce window
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("[auto_export]\nmode = \"off\"\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reloads == 1
	}, 2*time.Second, 20*time.Millisecond)

	// A little quiet time: still exactly one reload
	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, reloads)
	mu.Unlock()
}

func TestWatcherKeepsPreviousOnBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[auto_export]\nmode = \"immediate\"\n"), 0o644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	w.debouncePeriod = 50 * time.Millisecond
	defer w.Stop()

	var mu sync.Mutex
	reloads := 0
	w.OnReload(func(cfg *Config) error {
		mu.Lock()
		reloads++
		mu.Unlock()
		return nil
	})
	w.Start()

	require.NoError(t, os.WriteFile(path, []byte("mode = [broken"), 0o644))

	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 0, reloads, "invalid config must not trigger callbacks")
	mu.Unlock()
}
