package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	c, err := ReadOrCreate(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, filepath.Join(dir, FileName), func(c *Config) {
			select {
			case changes <- c:
			default:
			}
		})
	}()

	// allow the watcher to register before writing
	time.Sleep(100 * time.Millisecond)

	c.GitHub.CommitWindowDays = 45
	require.NoError(t, Save(dir, c))

	// a write may be observed mid-flight, so wait for the final content
	timeout := time.After(5 * time.Second)
	for observed := false; !observed; {
		select {
		case got := <-changes:
			observed = got.GitHub.CommitWindowDays == 45
		case <-timeout:
			t.Fatal("config change not observed")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchMissingDir(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", FileName), func(*Config) {})
	assert.Error(t, err)
}
