package runner

// Outcome is the result of one (target, compiler) execution. A process that
// cannot even be spawned is a hard error, never an Outcome.
type Outcome int

const (
	// the zero value marks a column that was not part of the run
	outcomeUnset Outcome = iota
	Passed
	Failed
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "✅"
	case Failed:
		return "❌"
	case TimedOut:
		return "⏰"
	default:
		return ""
	}
}

func finished(passed bool) Outcome {
	if passed {
		return Passed
	}
	return Failed
}

// TestVersion is the major version of the elm-explorations/test dependency
// declared by a target. It selects which compiler set is required: three
// runs for V1 manifests, five for V2.
type TestVersion int

const (
	V1 TestVersion = 1
	V2 TestVersion = 2
)

func (v TestVersion) String() string {
	if v == V1 {
		return "1"
	}
	return "2"
}

// ResultSet is the full comparison matrix for one target. NextNoWire and
// Next are only populated for V2 manifests and stay unset otherwise.
// A ResultSet is published atomically: partial sets never leave the runner.
type ResultSet struct {
	Version      TestVersion
	Elm          Outcome
	StableNoWire Outcome
	Stable       Outcome
	NextNoWire   Outcome
	Next         Outcome
}

// Class ranks a result set for triage; lower sorts first. Reference
// mismatches outrank wire mismatches, which outrank reference timeouts and
// failures, and V2 sets come ahead of V1 inside every category. The ordering
// is deliberate and encodes the operator workflow this tool was built
// around, so keep it stable.
func (r ResultSet) Class() int {
	switch {
	// first the anomalies
	case r.Version == V2 && r.Elm != r.StableNoWire:
		return 0
	case r.Version == V2 && r.Elm != r.NextNoWire:
		return 1
	case r.Version == V1 && r.Elm != r.StableNoWire:
		return 2
	// then the wire errors
	case r.Version == V2 && r.StableNoWire != r.Stable:
		return 3
	case r.Version == V2 && r.NextNoWire != r.Next:
		return 4
	case r.Version == V1 && r.StableNoWire != r.Stable:
		return 5
	// then the timeouts
	case r.Version == V2 && r.Elm == TimedOut:
		return 6
	case r.Version == V1 && r.Elm == TimedOut:
		return 7
	// then the errors
	case r.Version == V2 && r.Elm == Failed:
		return 8
	case r.Version == V1 && r.Elm == Failed:
		return 9
	// then everything else
	case r.Version == V2:
		return 10
	default:
		return 11
	}
}

// UnanimousPass reports whether every compiler that ran finished with
// success. Such rows carry no signal and are skipped on export.
func (r ResultSet) UnanimousPass() bool {
	if r.Elm != Passed || r.StableNoWire != Passed || r.Stable != Passed {
		return false
	}
	if r.Version == V2 {
		return r.NextNoWire == Passed && r.Next == Passed
	}
	return true
}

// Columns returns the five per-compiler cells in fixed display order. V1
// sets render the next pair as empty cells.
func (r ResultSet) Columns() []string {
	return []string{
		r.Elm.String(),
		r.StableNoWire.String(),
		r.Stable.String(),
		r.NextNoWire.String(),
		r.Next.String(),
	}
}
