package corpus_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/miniBill/elm-dedup-project/internal/corpus"
	"github.com/stretchr/testify/require"
)

func makeCheckout(t *testing.T, root string, parts ...string) string {
	t.Helper()
	dir := filepath.Join(append([]string{root}, parts...)...)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tests"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "elm.json"), []byte("{}"), 0o644))
	return dir
}

func collect(t *testing.T, ctx context.Context, root string) ([]corpus.Target, error) {
	t.Helper()
	out := make(chan corpus.Target, 64)
	errCh := make(chan error, 1)
	go func() { errCh <- corpus.Walk(ctx, root, out) }()

	var targets []corpus.Target
	for target := range out {
		targets = append(targets, target)
	}
	return targets, <-errCh
}

func TestWalkFindsQualifyingVersionDirs(t *testing.T) {
	root := t.TempDir()

	want := []string{
		makeCheckout(t, root, "alice", "parser", "1.0.0"),
		makeCheckout(t, root, "alice", "parser", "2.0.1"),
		makeCheckout(t, root, "bob", "json-extra", "3.1.0"),
	}

	// missing tests dir
	noTests := filepath.Join(root, "alice", "parser", "3.0.0")
	require.NoError(t, os.MkdirAll(noTests, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(noTests, "elm.json"), []byte("{}"), 0o644))

	// missing manifest
	noManifest := filepath.Join(root, "bob", "json-extra", "0.9.0")
	require.NoError(t, os.MkdirAll(filepath.Join(noManifest, "tests"), 0o755))

	targets, err := collect(t, context.Background(), root)
	require.NoError(t, err)

	var got []string
	for _, target := range targets {
		got = append(got, target.Path)
	}
	require.Equal(t, want, got, "discovery should be exact and lexicographically ordered")
}

func TestWalkDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	makeCheckout(t, root, "zed", "a", "1.0.0")
	makeCheckout(t, root, "abe", "z", "1.0.0")
	makeCheckout(t, root, "abe", "a", "2.0.0")
	makeCheckout(t, root, "abe", "a", "10.0.0")

	first, err := collect(t, context.Background(), root)
	require.NoError(t, err)
	second, err := collect(t, context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestWalkStopsOnCancelledContext(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		makeCheckout(t, root, "a", "pkg", string(rune('1'+i))+".0.0")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// unbuffered channel with no reader: the walker can only exit via ctx
	out := make(chan corpus.Target)
	errCh := make(chan error, 1)
	go func() { errCh <- corpus.Walk(ctx, root, out) }()

	require.NoError(t, <-errCh, "cancellation is not an error")
	_, open := <-out
	require.False(t, open, "queue must be closed after the walker returns")
}

func TestWalkPropagatesFilesystemErrors(t *testing.T) {
	out := make(chan corpus.Target, 1)
	err := corpus.Walk(context.Background(), filepath.Join(t.TempDir(), "missing"), out)
	require.Error(t, err)
}
