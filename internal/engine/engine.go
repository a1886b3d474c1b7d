package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/miniBill/elm-dedup-project/internal/corpus"
	"github.com/miniBill/elm-dedup-project/internal/runner"
)

// TargetRunner executes one target under every required compiler. The
// in-flight subprocess waits are bounded by the runner's own timeout, which
// is why this call carries no context: global shutdown is only observed
// between targets.
type TargetRunner interface {
	Run(t corpus.Target) (runner.ResultSet, error)
}

// Dashboard blocks rendering state until the user quits or ctx is
// cancelled. It must leave the terminal restored on every exit path before
// returning.
type Dashboard func(ctx context.Context, state *State) error

// Engine wires discovery, the worker pool and the dashboard around a shared
// State, and owns the shutdown protocol.
type Engine struct {
	state       *State
	runner      TargetRunner
	dashboard   Dashboard
	root        string
	concurrency int
	log         *slog.Logger
}

func New(state *State, r TargetRunner, dashboard Dashboard, root string, concurrency int, log *slog.Logger) *Engine {
	return &Engine{
		state:       state,
		runner:      r,
		dashboard:   dashboard,
		root:        root,
		concurrency: concurrency,
		log:         log,
	}
}

// State exposes the shared store, mainly so the caller can export a final
// snapshot after the run.
func (e *Engine) State() *State {
	return e.state
}

// Run drives a full differential pass. The dashboard runs on the calling
// goroutine; the walker and the workers run beside it. Shutdown is
// triggered by the first of: dashboard exit (user quit), a walker error, a
// worker error, or cancellation of ctx. Components are then joined in a
// fixed order, dashboard first, so the terminal is already restored when
// the waiting lines below are printed, and the walker second, so the
// queue's producer side is known-closed before the workers drain it.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	walkErr := make(chan error, 1)
	go func() {
		err := corpus.Walk(groupCtx, e.root, e.state.queue)
		if err != nil {
			cancel()
		}
		walkErr <- err
	}()

	for i := 0; i < e.concurrency; i++ {
		group.Go(func() error {
			return e.worker(groupCtx)
		})
	}

	dashErr := e.dashboard(groupCtx, e.state)
	cancel()

	color.Blue("Waiting for directory walker to exit.")
	werr := <-walkErr

	color.Blue("Waiting for testers to exit.")
	gerr := group.Wait()

	e.log.Info("run finished",
		"completed", e.state.CompletedCount(),
		"pending", e.state.Pending())

	return errors.Join(dashErr, werr, gerr)
}

// worker pulls targets until the queue closes, shutdown is signalled, or a
// run fails. Exactly one worker receives each target.
func (e *Engine) worker(ctx context.Context) error {
	for {
		// a ready queue must not outrace an already-signalled shutdown
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case target, ok := <-e.state.queue:
			if !ok {
				return nil
			}
			if err := e.process(target); err != nil {
				return fmt.Errorf("%s: %w", target.Path, err)
			}
		}
	}
}

// process runs one target. The in-progress entry is removed on every exit
// path; the completed entry is only appended for a full result set.
func (e *Engine) process(target corpus.Target) error {
	start := time.Now()
	e.state.StartTarget(target, start)
	defer e.state.FinishTarget(target)

	results, err := e.runner.Run(target)
	if err != nil {
		return err
	}

	e.state.AppendCompleted(Completed{
		Target:  target,
		Elapsed: time.Since(start),
		Results: results,
	})
	return nil
}
