package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/require"

	"github.com/miniBill/elm-dedup-project/internal/corpus"
	"github.com/miniBill/elm-dedup-project/internal/engine"
	"github.com/miniBill/elm-dedup-project/internal/runner"
)

// stubRunner stands in for the differential runner: fixed result set, an
// optional per-target delay, an optional poisoned path.
type stubRunner struct {
	delay    time.Duration
	failPath string
}

var errPoisoned = errors.New("spawn failed")

func (s *stubRunner) Run(t corpus.Target) (runner.ResultSet, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.failPath != "" && t.Path == s.failPath {
		return runner.ResultSet{}, errPoisoned
	}
	return runner.ResultSet{
		Version:      runner.V1,
		Elm:          runner.Passed,
		StableNoWire: runner.Passed,
		Stable:       runner.Passed,
	}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeCorpus(t *testing.T, targets int) (string, []string) {
	t.Helper()
	root := t.TempDir()
	var paths []string
	for i := 0; i < targets; i++ {
		dir := filepath.Join(root, "author", "pkg", versionName(i))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "tests"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "elm.json"), []byte("{}"), 0o644))
		paths = append(paths, dir)
	}
	return root, paths
}

func versionName(i int) string {
	return string(rune('a'+i/10)) + string(rune('0'+i%10)) + ".0.0"
}

// waitForCount acts as the dashboard: it blocks until n targets completed
// or ctx is cancelled, then "quits".
func waitForCount(n int) engine.Dashboard {
	return func(ctx context.Context, state *engine.State) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Millisecond):
				if state.CompletedCount() >= n {
					return nil
				}
			}
		}
	}
}

func TestRunCompletesEveryTargetExactlyOnce(t *testing.T) {
	const targets = 24
	root, paths := makeCorpus(t, targets)

	state := engine.NewState(engine.DefaultQueueSize)
	eng := engine.New(state, &stubRunner{}, waitForCount(targets), root, 5, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, eng.Run(ctx))

	completed := state.CompletedSnapshot()
	require.Len(t, completed, targets)

	seen := mapset.NewSet[string]()
	for _, done := range completed {
		require.True(t, seen.Add(done.Target.Path), "duplicate completion for %s", done.Target.Path)
	}
	require.True(t, seen.Equal(mapset.NewSet(paths...)), "every discovered target completes exactly once")

	require.Zero(t, state.InProgressCount())
	require.Zero(t, state.Pending())
}

func TestRunPropagatesWorkerErrorAndShutsDown(t *testing.T) {
	root, paths := makeCorpus(t, 12)

	state := engine.NewState(engine.DefaultQueueSize)
	stub := &stubRunner{failPath: paths[3]}
	eng := engine.New(state, stub, waitForCount(12), root, 3, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := eng.Run(ctx)
	require.ErrorIs(t, err, errPoisoned)
	require.ErrorContains(t, err, paths[3])

	// no in-progress entry may survive, not even the failed one
	require.Zero(t, state.InProgressCount())
}

func TestQuitDrainsWithoutDeadlock(t *testing.T) {
	root, _ := makeCorpus(t, 40)

	state := engine.NewState(engine.DefaultQueueSize)
	quitImmediately := func(ctx context.Context, _ *engine.State) error { return nil }
	eng := engine.New(state, &stubRunner{delay: 30 * time.Millisecond}, quitImmediately, root, 4, quietLogger())

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, eng.Run(ctx))

	// workers finish their current target and stop; nothing hangs
	require.Less(t, time.Since(start), 5*time.Second)
	require.Zero(t, state.InProgressCount())
	require.Less(t, state.CompletedCount(), 40)
}

func TestExternalCancellationStopsTheRun(t *testing.T) {
	root, _ := makeCorpus(t, 20)

	state := engine.NewState(engine.DefaultQueueSize)
	blockUntilCancelled := func(ctx context.Context, _ *engine.State) error {
		<-ctx.Done()
		return nil
	}
	eng := engine.New(state, &stubRunner{delay: 10 * time.Millisecond}, blockUntilCancelled, root, 2, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("engine did not shut down after external cancellation")
	}
}
