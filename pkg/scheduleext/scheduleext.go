// Package scheduleext augments schedule.Schedule with the assignment-side
// bookkeeping per-task-greedy, set-greedy and list-scheduling mapping
// algorithms share: dependency-satisfaction tracking, per-task part lookup,
// ready-time estimation and slot search (spec §4.5).
package scheduleext

import (
	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/schedule"
	"github.com/aw32/hetsched/pkg/task"
)

// Ext wraps a Schedule with the maps mapping algorithms consult while
// assigning tasks: which tasks are already fully mapped, whose dependencies
// are satisfied so far, and the ready time each task has accrued from its
// already-placed predecessors.
type Ext struct {
	*schedule.Schedule

	Estimator estimator.Estimator

	tasks map[task.ID]*task.Copy

	taskLastPartMapped map[task.ID]bool
	taskDepSatisfied   map[task.ID]bool
	taskReadyTime      map[task.ID]int64
	taskParts          map[task.ID][]*schedule.Entry
	successors         map[task.ID][]task.ID
}

// New builds an Ext over a fresh Schedule for tasks, seeding dependency
// satisfaction from tasks with no in-scope predecessors.
func New(resources []*resource.Resource, running []*task.Copy, est estimator.Estimator, tasks []*task.Copy) *Ext {
	e := &Ext{
		Schedule:           schedule.New(resources, running, est),
		Estimator:          est,
		tasks:              map[task.ID]*task.Copy{},
		taskLastPartMapped: map[task.ID]bool{},
		taskDepSatisfied:   map[task.ID]bool{},
		taskReadyTime:      map[task.ID]int64{},
		taskParts:          map[task.ID][]*schedule.Entry{},
		successors:         map[task.ID][]task.ID{},
	}
	for _, t := range tasks {
		e.tasks[t.ID] = t
	}
	for _, t := range tasks {
		for _, pred := range t.Predecessors {
			e.successors[pred] = append(e.successors[pred], t.ID)
		}
	}
	for _, t := range tasks {
		satisfied := true
		for _, pred := range t.Predecessors {
			if _, inScope := e.tasks[pred]; inScope {
				satisfied = false
				break
			}
		}
		e.taskDepSatisfied[t.ID] = satisfied
	}
	return e
}

// TaskExists reports whether id is one of the tasks this Ext was built for.
func (e *Ext) TaskExists(id task.ID) bool {
	_, ok := e.tasks[id]
	return ok
}

// TaskLastPartMapped reports whether the final part of id has been added.
func (e *Ext) TaskLastPartMapped(id task.ID) bool {
	return e.taskLastPartMapped[id]
}

// TaskDepSatisfied reports whether every in-scope predecessor of id has had
// its final part mapped.
func (e *Ext) TaskDepSatisfied(id task.ID) bool {
	return e.taskDepSatisfied[id]
}

// TaskParts returns the entries added so far for id, in insertion order.
func (e *Ext) TaskParts(id task.ID) []*schedule.Entry {
	return e.taskParts[id]
}

// TaskReadyTime returns the max finish time, over in-scope predecessors
// recorded so far, that id must wait for before any part of it can start
// (spec §4.5).
func (e *Ext) TaskReadyTime(id task.ID) int64 {
	return e.taskReadyTime[id]
}

// TaskReadyTimeResource is TaskReadyTime, additionally accounting for id
// already running on a different resource (it must finish there first) or,
// if id is running on res itself with an empty queue, returning 0 since it
// can simply continue in place (spec §4.5).
func (e *Ext) TaskReadyTimeResource(id task.ID, res int) int64 {
	ready := e.taskReadyTime[id]
	tc := e.tasks[id]
	if tc == nil {
		return ready
	}
	for r, running := range e.RunningTasks {
		if running == nil || running.ID != id {
			continue
		}
		if r == res {
			if len(e.TasksByResource[res]) == 0 {
				return 0
			}
			continue
		}
		// id is running on a different resource: it must finish its
		// remaining work there before it can start fresh on res.
		remaining := e.Estimator.TimeCompute(tc, e.Resources[r], tc.Progress, tc.Checkpoints) +
			e.Estimator.TimeFini(tc, e.Resources[r])
		finish := nanos(remaining)
		if finish > ready {
			ready = finish
		}
	}
	return ready
}

// ResourceReadyTime returns the time_finish of res's last queued entry, or 0
// if its queue is empty (spec §4.5).
func (e *Ext) ResourceReadyTime(res int) int64 {
	queue := e.TasksByResource[res]
	if len(queue) == 0 {
		return 0
	}
	return queue[len(queue)-1].TimeFinish
}

// FindSlot scans res's queue, starting at startSlot, for the first gap of at
// least duration that starts at or after earliestStart (spec §4.5). It
// returns the slot index to insert at (queue length means "append"), the
// start time in the found gap, and that start plus duration; the gap's own
// end is not returned.
func (e *Ext) FindSlot(res int, duration int64, earliestStart int64, startSlot int) (slot int, start int64, stop int64) {
	queue := e.TasksByResource[res]
	if len(queue) == 0 {
		return 0, earliestStart, earliestStart + duration
	}
	if startSlot <= 0 {
		first := queue[0]
		if first.TimeReady-earliestStart >= duration {
			return 0, earliestStart, earliestStart + duration
		}
		startSlot = 1
	}
	for i := startSlot; i < len(queue); i++ {
		prevFinish := queue[i-1].TimeFinish
		gapStart := prevFinish
		if earliestStart > gapStart {
			gapStart = earliestStart
		}
		if queue[i].TimeReady-gapStart >= duration {
			return i, gapStart, gapStart + duration
		}
	}
	last := queue[len(queue)-1]
	gapStart := last.TimeFinish
	if earliestStart > gapStart {
		gapStart = earliestStart
	}
	return len(queue), gapStart, gapStart + duration
}

// AddEntry inserts entry into res's queue at position (or the tail if
// position < 0), computes its own execution time, derives its time_ready
// from the same-task previous part, the resource's readiness and the task's
// dependency readiness, and — if entry completes the task — marks it mapped
// and propagates readiness to successors (spec §4.5).
func (e *Ext) AddEntry(entry *schedule.Entry, res int, position int) {
	queue := e.TasksByResource[res]
	if position < 0 || position > len(queue) {
		position = len(queue)
	}

	// compute readiness from the queue as it stood before this insertion.
	var ready int64
	if position > 0 {
		ready = queue[position-1].TimeFinish
	}
	if parts := e.taskParts[entry.TaskID]; len(parts) > 0 {
		if last := parts[len(parts)-1].TimeFinish; last > ready {
			ready = last
		}
	}
	if tr := e.taskReadyTime[entry.TaskID]; tr > ready {
		ready = tr
	}

	entry.TimeReady = ready
	schedule.ComputeExecutionTime(entry, e.Resources[res], e.Estimator, e.RunningTasks, res, position)
	entry.TimeFinish = entry.TimeReady + entry.DurTotal
	entry.PartNumber = len(e.taskParts[entry.TaskID])

	newQueue := make([]*schedule.Entry, 0, len(queue)+1)
	newQueue = append(newQueue, queue[:position]...)
	newQueue = append(newQueue, entry)
	newQueue = append(newQueue, queue[position:]...)
	e.TasksByResource[res] = newQueue

	e.taskParts[entry.TaskID] = append(e.taskParts[entry.TaskID], entry)

	if entry.StopProgress == entry.TaskCopy.Checkpoints {
		e.taskLastPartMapped[entry.TaskID] = true
		for _, succ := range e.successors[entry.TaskID] {
			if entry.TimeFinish > e.taskReadyTime[succ] {
				e.taskReadyTime[succ] = entry.TimeFinish
			}
			e.taskDepSatisfied[succ] = e.allPredecessorsMapped(succ)
		}
	}
}

func (e *Ext) allPredecessorsMapped(id task.ID) bool {
	tc := e.tasks[id]
	if tc == nil {
		return true
	}
	for _, pred := range tc.Predecessors {
		if _, inScope := e.tasks[pred]; !inScope {
			continue
		}
		if !e.taskLastPartMapped[pred] {
			return false
		}
	}
	return true
}

// CopyEntries reissues old's still-live (Todo) entries into e, adjusting
// each reissued entry's start_progress from the task's current progress.
// When progressUpdated is true the authoritative Task.Progress (read
// through the entry's TaskCopy.Original) is used; otherwise the progress is
// estimated from elapsed wall time via Estimator.TimeComputeCheckpoint, per
// spec §4.5. Entries whose estimated/observed progress has not advanced
// past their own start_progress are skipped (nothing to reissue).
func (e *Ext) CopyEntries(old *schedule.Schedule, progressUpdated bool, elapsed map[task.ID]int64) {
	for res, queue := range old.TasksByResource {
		for _, entry := range queue {
			if entry.State != schedule.EntryTodo {
				continue
			}
			start := entry.StartProgress
			if progressUpdated {
				if orig := entry.TaskCopy.Original(); orig != nil {
					start = orig.Progress
				}
			} else if d, ok := elapsed[entry.TaskID]; ok {
				budget := float64(d) / 1e9
				n := e.Estimator.TimeComputeCheckpoint(entry.TaskCopy, e.Resources[res], entry.StartProgress, budget)
				start = entry.StartProgress + n
			}
			if start < entry.StartProgress {
				start = entry.StartProgress
			}
			if start > entry.StopProgress {
				start = entry.StopProgress
			}
			reissued := &schedule.Entry{
				TaskID:        entry.TaskID,
				TaskCopy:      entry.TaskCopy,
				State:         schedule.EntryTodo,
				StartProgress: start,
				StopProgress:  entry.StopProgress,
			}
			if reissued.StartProgress >= reissued.StopProgress {
				continue
			}
			e.AddEntry(reissued, res, -1)
		}
	}
}

func nanos(seconds float64) int64 {
	return int64(seconds * 1e9)
}
