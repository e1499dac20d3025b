package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	var reloads atomic.Int32
	reloaded := make(chan *Config, 1)

	w, err := NewWatcher(path, func(cfg *Config) {
		reloads.Add(1)
		select {
		case reloaded <- cfg:
		default:
		}
	}, WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	require.NotNil(t, w.LastConfig())
	assert.Equal(t, 9000, w.LastConfig().Server.Port)

	updated := []byte(`
server:
  port: 9001
apps:
  - key: kids-qa
    secret: app-secret
auth:
  secret: jwt-secret
`)
	require.NoError(t, os.WriteFile(path, updated, 0o600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 9001, cfg.Server.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	assert.Equal(t, 9001, w.LastConfig().Server.Port)
}

func TestWatcher_InvalidChangeKeepsLastConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	errCh := make(chan error, 1)

	w, err := NewWatcher(path, nil,
		WithDebounceDelay(20*time.Millisecond),
		WithErrorCallback(func(err error) {
			select {
			case errCh <- err:
			default:
			}
		}),
	)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	// A config with no apps fails validation and must not replace the
	// last good config.
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  secret: s\n"), 0o600))

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}

	assert.Equal(t, 9000, w.LastConfig().Server.Port)
}

func TestWatcher_StartFailsOnInvalidInitialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("apps: []\n"), 0o600))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	assert.Error(t, w.Start(context.Background()))
}

func TestWatcher_StopIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
