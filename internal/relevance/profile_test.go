package relevance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ioc-radar/backend/internal/logger"
)

func TestParseProfileOverlaysDefaults(t *testing.T) {
	profile, err := ParseProfile([]byte("weights:\n  ip: 15\nthreshold: 8\ndedupe_tokens: false\n"))
	require.NoError(t, err)

	require.Equal(t, 15, profile.Weights.IP)
	require.Equal(t, 8, profile.Weights.Server)
	require.Equal(t, 8, profile.Threshold)
	require.False(t, profile.DedupeTokens)
	require.Equal(t, 3, profile.IndustryBonus)
}

func TestParseProfileRejectsNegative(t *testing.T) {
	_, err := ParseProfile([]byte("weights:\n  os: -1\n"))
	require.True(t, errors.Is(err, ErrInvalidProfile))

	_, err = ParseProfile([]byte("weights: [1, 2"))
	require.True(t, errors.Is(err, ErrInvalidProfile))
}

func TestLoadProfile(t *testing.T) {
	profile, err := LoadProfile("")
	require.NoError(t, err)
	require.Equal(t, DefaultProfile(), profile)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestProfileStore(t *testing.T) {
	store := NewProfileStore(DefaultProfile())
	require.Equal(t, 4, store.Scorer().Profile().Threshold)

	updated := DefaultProfile()
	updated.Threshold = 9
	store.Set(updated)
	require.Equal(t, 9, store.Get().Threshold)

	require.Equal(t, DefaultProfile(), (&ProfileStore{}).Get())
}

func TestWatchProfileReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: 5\n"), 0o600))

	initial, err := LoadProfile(path)
	require.NoError(t, err)
	store := NewProfileStore(initial)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WatchProfile(ctx, path, store, logger.Discard()) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("threshold: 12\n"), 0o600)
		return store.Get().Threshold == 12
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
