package raffle

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveConfig(t *testing.T, changes <-chan RaffleConfig) RaffleConfig {
	t.Helper()
	select {
	case cfg, ok := <-changes:
		require.True(t, ok, "change channel closed")
		return cfg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config change")
		return RaffleConfig{}
	}
}

func TestFileChangeSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("people: [A]\nprizes: [P1]\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := NewFileChangeSource(path, NewSilentLogger())
	changes, err := source.Changes(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("people: [A, B]\nprizes: [P1, P2]\n"), 0o644))
	cfg := receiveConfig(t, changes)
	assert.Equal(t, []string{"A", "B"}, cfg.People)
	assert.Equal(t, []string{"P1", "P2"}, cfg.Prizes)

	// 无法解析的版本被跳过
	require.NoError(t, os.WriteFile(path, []byte("people: oops\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("people: [C]\nprizes: [P3]\n"), 0o644))
	cfg = receiveConfig(t, changes)
	assert.Equal(t, []string{"C"}, cfg.People)

	// 其他文件的变化被忽略
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("people: [X]\nprizes: [Y]\n"), 0o644))
	select {
	case cfg := <-changes:
		t.Fatalf("unexpected change: %+v", cfg)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-changes
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFileChangeSource_MissingDirectory(t *testing.T) {
	source := NewFileChangeSource(filepath.Join(t.TempDir(), "missing", "roster.json"), NewSilentLogger())
	_, err := source.Changes(context.Background())
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestFileChangeSource_DrivesEngine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"people":["A"],"prizes":["P1"]}`), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := newTestEngine(t, 0)
	require.NoError(t, engine.Subscribe(ctx, NewFileChangeSource(path, NewSilentLogger())))

	require.NoError(t, os.WriteFile(path, []byte(`{"people":["X","Y","Z"],"prizes":["Q"]}`), 0o644))
	assert.Eventually(t, func() bool {
		return engine.Snapshot().ParticipantCount == 3
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRedisChangeSource_Decode(t *testing.T) {
	db, _ := redismock.NewClientMock()
	source := NewRedisChangeSource(db, "", NewSilentLogger())
	assert.Equal(t, DefaultChangeChannel, source.channel)

	cfg, ok := source.decode(`{"people":["A"],"prizes":["P1"]}`)
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, cfg.People)

	_, ok = source.decode(`{"people":"A"}`)
	assert.False(t, ok)
}

func TestSameRaffleConfig(t *testing.T) {
	a := &RaffleConfig{People: []string{"A"}, Prizes: []string{"P1"}}
	assert.True(t, sameRaffleConfig(a, a.Clone()))
	assert.False(t, sameRaffleConfig(a, &RaffleConfig{People: []string{"B"}, Prizes: []string{"P1"}}))
}
