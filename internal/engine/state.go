package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/miniBill/elm-dedup-project/internal/corpus"
	"github.com/miniBill/elm-dedup-project/internal/runner"
)

// DefaultQueueSize keeps the walker effectively non-blocking: the Elm
// package corpus is a few thousand targets.
const DefaultQueueSize = 16384

// Completed is one finished target with its wall-clock duration and full
// comparison matrix. Appended once, never mutated or removed.
type Completed struct {
	Target  corpus.Target
	Elapsed time.Duration
	Results runner.ResultSet
}

// InProgress is a target a worker is currently running.
type InProgress struct {
	Target    corpus.Target
	StartedAt time.Time
}

// State is the single store the walker, the workers and the dashboard share.
// Callers only get atomic operations and copied-out snapshots; the backing
// collections are never exposed, so nobody can hold a lock across a render.
type State struct {
	queue      chan corpus.Target
	inProgress *xsync.MapOf[string, time.Time]

	mu        sync.Mutex
	completed []Completed
}

func NewState(queueSize int) *State {
	return &State{
		queue:      make(chan corpus.Target, queueSize),
		inProgress: xsync.NewMapOf[string, time.Time](),
	}
}

// Pending is the number of discovered targets no worker has picked up yet.
func (s *State) Pending() int {
	return len(s.queue)
}

func (s *State) StartTarget(t corpus.Target, at time.Time) {
	s.inProgress.Store(t.Path, at)
}

func (s *State) FinishTarget(t corpus.Target) {
	s.inProgress.Delete(t.Path)
}

func (s *State) InProgressCount() int {
	return s.inProgress.Size()
}

// InProgressSnapshot copies out the in-flight entries, oldest first.
func (s *State) InProgressSnapshot() []InProgress {
	entries := make([]InProgress, 0, s.inProgress.Size())
	s.inProgress.Range(func(path string, started time.Time) bool {
		entries = append(entries, InProgress{
			Target:    corpus.Target{Path: path},
			StartedAt: started,
		})
		return true
	})
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].StartedAt.Equal(entries[j].StartedAt) {
			return entries[i].StartedAt.Before(entries[j].StartedAt)
		}
		return entries[i].Target.Path < entries[j].Target.Path
	})
	return entries
}

func (s *State) AppendCompleted(c Completed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, c)
}

func (s *State) CompletedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completed)
}

// CompletedSnapshot copies the completed list in append order.
func (s *State) CompletedSnapshot() []Completed {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Completed, len(s.completed))
	copy(out, s.completed)
	return out
}

// SortForDisplay orders a completed snapshot for the dashboard: most recent
// first, then stably by result class so anomalies float to the top. Ties
// within a class keep the reversed append order.
func SortForDisplay(list []Completed) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Results.Class() < list[j].Results.Class()
	})
}
