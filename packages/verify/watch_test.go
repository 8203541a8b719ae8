package verify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatch_CallsBackOnWrite(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "expectations.yaml")
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(watched, []byte("a"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{watched}, 20*time.Millisecond, nil, func(path string) {
			changed <- path
		})
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(watched, []byte("b"), 0644))

	select {
	case path := <-changed:
		require.Equal(t, "expectations.yaml", filepath.Base(path))
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), []string{filepath.Join(t.TempDir(), "missing", "x.yaml")}, 0, nil, func(string) {})
	require.Error(t, err)
}
