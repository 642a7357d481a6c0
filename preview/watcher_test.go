package preview

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWatcher_ReportsWatchedFilesOnly(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "project.json")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(project, []byte(`{}`), 0o644))

	var (
		mu      sync.Mutex
		changed []string
	)
	w, err := NewWatcher([]string{project, ""}, func(p string) {
		mu.Lock()
		defer mu.Unlock()
		changed = append(changed, p)
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(project, []byte(`{"title":"x"}`), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changed) > 0
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, w.Stop())

	mu.Lock()
	defer mu.Unlock()
	abs, _ := filepath.Abs(project)
	for _, p := range changed {
		assert.Equal(t, abs, p)
	}
}

func TestWatcher_NothingToWatch(t *testing.T) {
	_, err := NewWatcher([]string{"", ""}, func(string) {}, nil)
	require.Error(t, err)
}
