package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnored(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.xlsx", false},
		{"data.csv", false},
		{".DS_Store", true},
		{"report.xlsx~", true},
		{"download.part", true},
		{"file.TMP", true},
		{".report.xlsx.swp", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ignored(tt.name))
		})
	}
}

func TestNew_RequiresDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file)
	assert.Error(t, err)
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, "report.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.WriteString("row\n")
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))

	select {
	case ev := <-w.Events():
		assert.Equal(t, path, ev.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("no event for settled file")
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected second event: %s", ev.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestForward(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan Result, 4)
	uploadErr := errors.New("disk full")
	go Forward(ctx, w, func(ctx context.Context, path string) error {
		if filepath.Base(path) == "bad.txt" {
			return uploadErr
		}
		return nil
	}, func(r Result) { results <- r })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.txt"), []byte("ok"), 0o644))
	got := waitResult(t, results)
	assert.Equal(t, "good.txt", filepath.Base(got.Path))
	assert.NoError(t, got.Err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("no"), 0o644))
	got = waitResult(t, results)
	assert.Equal(t, "bad.txt", filepath.Base(got.Path))
	assert.ErrorIs(t, got.Err, uploadErr)
}

func TestStop_Idempotent(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Start())
	w.Stop()
	assert.NotPanics(t, w.Stop)
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upload")
		return Result{}
	}
}
