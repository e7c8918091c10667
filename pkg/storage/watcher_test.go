package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*poolCommon).purgeStaleWorkers"),
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*poolCommon).ticktock"),
	)
}

func TestWatcherReportsExternalEdits(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), FormatJSON)
	require.NoError(t, err)

	changed := make(chan uint64, 8)
	w := NewWatcher(fs, func(_ context.Context, guildID uint64) { changed <- guildID })

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, fs.Save(t.Context(), 1, sampleRecords()))
	require.NoError(t, os.WriteFile(filepath.Join(fs.Dir(), "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fs.Path(2), []byte("[]"), 0o644))

	select {
	case id := <-changed:
		require.Equal(t, uint64(2), id)
	case <-time.After(5 * time.Second):
		t.Fatal("external edit was not reported")
	}

	select {
	case id := <-changed:
		if id == 1 {
			t.Errorf("own write to guild 1 was reported")
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "nested"), FormatYAML)
	require.NoError(t, err)
	w := NewWatcher(fs, func(context.Context, uint64) {})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	require.DirExists(t, fs.Dir())
}
