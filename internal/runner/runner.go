package runner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/miniBill/elm-dedup-project/internal/compilers"
	"github.com/miniBill/elm-dedup-project/internal/corpus"
)

// DefaultTimeout is the hard wall-clock bound for a single test-runner
// invocation.
const DefaultTimeout = 120 * time.Second

const v1Marker = `"elm-explorations/test": "1`

// BaseCommand yields the test-runner executable and its fixed arguments for
// a framework version; the runner appends --compiler <variant> to it.
type BaseCommand func(v TestVersion) (name string, args []string)

// Runner executes a target's test suite once per required compiler variant
// and assembles the comparison matrix.
type Runner struct {
	compilers compilers.Set
	timeout   time.Duration
	baseCmd   BaseCommand
}

type Option func(*Runner)

// WithTimeout overrides the per-run wall clock limit.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithBaseCommand replaces the test-runner invocation, mainly for tests.
func WithBaseCommand(f BaseCommand) Option {
	return func(r *Runner) { r.baseCmd = f }
}

func New(set compilers.Set, opts ...Option) *Runner {
	r := &Runner{
		compilers: set,
		timeout:   DefaultTimeout,
	}
	r.baseCmd = defaultBaseCommand(set)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultBaseCommand(set compilers.Set) BaseCommand {
	return func(v TestVersion) (string, []string) {
		if v == V1 {
			return "npx", []string{"--yes", "elm-test@0.19.1-revision9"}
		}
		if set.ElmTestRs != "" {
			return set.ElmTestRs, []string{"--workers", "4"}
		}
		return "npx", []string{"--yes", "elm-test-rs", "--workers", "4"}
	}
}

// DetectVersion inspects the manifest text for the elm-explorations/test
// major version marker. Anything that is not pinned to 1.x counts as V2.
func DetectVersion(manifest []byte) TestVersion {
	if strings.Contains(string(manifest), v1Marker) {
		return V1
	}
	return V2
}

// Run executes the target under every required compiler, in a fixed order,
// and returns the assembled ResultSet. Runs are independent: all required
// compilers execute even once a divergence is already visible, so the full
// matrix is always available. Any spawn or I/O failure is fatal for the
// target, not a result.
func (r *Runner) Run(target corpus.Target) (ResultSet, error) {
	manifest, err := os.ReadFile(filepath.Join(target.Path, "elm.json"))
	if err != nil {
		return ResultSet{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	res := ResultSet{Version: DetectVersion(manifest)}

	if res.Elm, err = r.runOne(target, res.Version, r.compilers.Elm); err != nil {
		return ResultSet{}, err
	}
	if res.StableNoWire, err = r.runOne(target, res.Version, r.compilers.LamderaStableNoWire); err != nil {
		return ResultSet{}, err
	}
	if res.Stable, err = r.runOne(target, res.Version, r.compilers.LamderaStable); err != nil {
		return ResultSet{}, err
	}
	if res.Version == V2 {
		if res.NextNoWire, err = r.runOne(target, res.Version, r.compilers.LamderaNextNoWire); err != nil {
			return ResultSet{}, err
		}
		if res.Next, err = r.runOne(target, res.Version, r.compilers.LamderaNext); err != nil {
			return ResultSet{}, err
		}
	}
	return res, nil
}

// runOne spawns one test-runner process in the target directory with output
// discarded, waits up to the timeout, and kills then reaps the process if it
// overruns.
func (r *Runner) runOne(target corpus.Target, v TestVersion, compiler string) (Outcome, error) {
	// stale build artifacts would leak state between compilers
	if err := os.RemoveAll(filepath.Join(target.Path, "elm-stuff")); err != nil {
		return outcomeUnset, fmt.Errorf("failed to remove elm-stuff: %w", err)
	}

	name, args := r.baseCmd(v)
	cmd := exec.Command(name, append(args, "--compiler", compiler)...)
	cmd.Dir = target.Path
	// Stdout/Stderr stay nil: the child writes to the null device

	if err := cmd.Start(); err != nil {
		return outcomeUnset, fmt.Errorf("failed to start %s: %w", name, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return Failed, nil
			}
			return outcomeUnset, fmt.Errorf("failed to wait for %s: %w", name, err)
		}
		return Passed, nil
	case <-time.After(r.timeout):
		if err := cmd.Process.Kill(); err != nil {
			return outcomeUnset, fmt.Errorf("failed to kill %s after timeout: %w", name, err)
		}
		<-done // reap, or the child lingers as a zombie
		return TimedOut, nil
	}
}
