// Package task defines the identity, DAG links and progress/state model of a
// schedulable task, along with TaskCopy, the value-typed snapshot mapping
// algorithms operate on (spec §3 "Task / TaskCopy").
package task

import "time"

// ID identifies a Task within one scheduling call.
type ID int

// State is a task's lifecycle state (spec §3).
type State uint8

// Task lifecycle states.
const (
	StatePre State = iota
	StateStarting
	StateRunning
	StateStopping
	StateSuspended
	StatePost
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePre:
		return "Pre"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateSuspended:
		return "Suspended"
	case StatePost:
		return "Post"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Times records the wall-clock transitions of a task through its lifecycle.
// Zero values mean "not yet reached".
type Times struct {
	Added    time.Time
	Started  time.Time
	Finished time.Time
	Aborted  time.Time
}

// Task is the identity and mutable progress/state of one DAG node. Instances
// are owned by the caller (the harness outside this core, per spec §1); the
// core only reads them, except through the in-scope mutation helpers below.
//
// Predecessors, successors, compatible resources and attributes are backing
// arrays the Task owns — a TaskCopy only borrows references to them (spec §9
// "Cyclic/aliased references"), so copying a Task is cheap and never
// duplicates or frees those slices.
type Task struct {
	ID          ID
	Name        string
	Size        int64
	Checkpoints int // > 0
	Progress    int // in [0, Checkpoints]
	State       State
	Times       Times

	Predecessors []ID
	Successors   []ID

	// CompatibleResources lists the resource ids this task can execute on.
	CompatibleResources []int

	// Attributes holds estimator-relevant data (e.g. the "msresults" table
	// consumed by estimator.Linear). Spec §9 replaces the original's
	// void*-keyed attribute bag with narrow typed structs for the one
	// consumer the core has (the Estimator); this map is kept only as the
	// loader-facing bag that feeds those typed structs, never read directly
	// by scheduling code.
	Attributes map[string]interface{}
}

// ValidResource reports whether r is in the task's compatibility set.
func (t *Task) ValidResource(r int) bool {
	for _, id := range t.CompatibleResources {
		if id == r {
			return true
		}
	}
	return false
}

// Remaining returns the number of checkpoints not yet completed.
func (t *Task) Remaining() int {
	return t.Checkpoints - t.Progress
}

// Copy returns a TaskCopy snapshotting t's current identity and progress.
// The copy shares (never duplicates, never frees) t's backing slices and
// attribute map, and carries a back-reference to t for later progress
// inspection (spec §4.2).
func (t *Task) Copy() *Copy {
	return &Copy{
		ID:                  t.ID,
		Name:                t.Name,
		Size:                t.Size,
		Checkpoints:         t.Checkpoints,
		Progress:            t.Progress,
		State:               t.State,
		Times:               t.Times,
		Predecessors:        t.Predecessors,
		Successors:          t.Successors,
		CompatibleResources: t.CompatibleResources,
		Attributes:          t.Attributes,
		original:            t,
	}
}

// Copy is a value-typed snapshot of a Task used by mapping algorithms to
// decouple scheduling decisions from concurrent mutation of the live Task
// (spec §4.2, §5). It does not own Predecessors, Successors,
// CompatibleResources or Attributes — those remain owned by Original() and
// must not be mutated or freed through a Copy.
type Copy struct {
	ID          ID
	Name        string
	Size        int64
	Checkpoints int
	Progress    int
	State       State
	Times       Times

	Predecessors        []ID
	Successors          []ID
	CompatibleResources []int
	Attributes          map[string]interface{}

	original *Task
}

// Original returns the live Task this Copy was snapshotted from, or nil for
// a Copy built without one (e.g. in tests).
func (c *Copy) Original() *Task {
	return c.original
}

// ValidResource reports whether r is in the task's compatibility set.
func (c *Copy) ValidResource(r int) bool {
	for _, id := range c.CompatibleResources {
		if id == r {
			return true
		}
	}
	return false
}

// Remaining returns the number of checkpoints not yet completed, as of the
// snapshot (not re-read from Original()).
func (c *Copy) Remaining() int {
	return c.Checkpoints - c.Progress
}

// ValidatePredecessorSuccessorConsistency checks the invariant of spec §3: if
// a is a predecessor of b, then b must be a successor of a, whenever both
// tasks are present in the given set. It returns the ids of the first
// inconsistent pair found, or (0, 0, true) if the set is consistent.
func ValidatePredecessorSuccessorConsistency(tasks map[ID]*Task) (a, b ID, ok bool) {
	for id, t := range tasks {
		for _, p := range t.Predecessors {
			pt, present := tasks[p]
			if !present {
				continue
			}
			if !containsID(pt.Successors, id) {
				return p, id, false
			}
		}
	}
	return 0, 0, true
}

func containsID(list []ID, id ID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
