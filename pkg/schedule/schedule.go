package schedule

import (
	"fmt"

	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/task"
)

// Schedule is a per-resource collection of TaskEntry queues, plus the
// running-task snapshot and energy/makespan bookkeeping that ComputeTimes
// fills in (spec §3 "Schedule").
type Schedule struct {
	ID              int64
	Resources       []*resource.Resource
	TasksByResource [][]*Entry
	RunningTasks    []*task.Copy // indexed by resource id; nil = idle

	// ComputeStart/ComputeStop bracket the mapping call that produced this
	// Schedule; set by the caller, not by ComputeTimes.
	ComputeStart int64
	ComputeStop  int64

	Makespan      int64
	StaticEnergy  float64
	DynamicEnergy float64
	TotalEnergy   float64
	ActiveTasks   int

	estimator estimator.Estimator
}

// New returns an empty Schedule over the given resources, with est as the
// cost model ComputeTimes and per-entry execution-time computation consult.
func New(resources []*resource.Resource, running []*task.Copy, est estimator.Estimator) *Schedule {
	s := &Schedule{
		Resources:       resources,
		TasksByResource: make([][]*Entry, len(resources)),
		RunningTasks:    running,
		estimator:       est,
	}
	return s
}

// Estimator returns the cost model this Schedule was built with.
func (s *Schedule) Estimator() estimator.Estimator {
	return s.estimator
}

// AppendEntry pins e to resource r's queue tail, without computing timings.
// Callers that need ScheduleExt's dependency/slot bookkeeping should use
// scheduleext's Ext.AddEntry instead, which splices its own queues and does
// not go through this primitive.
func (s *Schedule) AppendEntry(r int, e *Entry) {
	s.TasksByResource[r] = append(s.TasksByResource[r], e)
}

// propState is the per-task bookkeeping ComputeTimes threads through its
// fixed-point loop (spec §4.4).
type propState struct {
	partCount     map[task.ID]int
	lastProgress  map[task.ID]int
	lastPart      map[task.ID]int
	lastPartEntry map[task.ID]*Entry
	taskExist     map[task.ID]int // index into queue[taskRes[t]]
	taskRes       map[task.ID]int
	taskCopy      map[task.ID]*task.Copy
	partsByTask   map[task.ID][]*Entry
}

func newPropState(s *Schedule) *propState {
	p := &propState{
		partCount:     map[task.ID]int{},
		lastProgress:  map[task.ID]int{},
		lastPart:      map[task.ID]int{},
		lastPartEntry: map[task.ID]*Entry{},
		taskExist:     map[task.ID]int{},
		taskRes:       map[task.ID]int{},
		taskCopy:      map[task.ID]*task.Copy{},
		partsByTask:   map[task.ID][]*Entry{},
	}
	for _, queue := range s.TasksByResource {
		for _, e := range queue {
			p.partsByTask[e.TaskID] = append(p.partsByTask[e.TaskID], e)
			p.taskCopy[e.TaskID] = e.TaskCopy
		}
	}
	for id, parts := range p.partsByTask {
		p.partCount[id] = len(parts)
		p.lastPart[id] = -1
		p.lastProgress[id] = p.taskCopy[id].Progress
	}
	return p
}

func (p *propState) partsBefore(id task.ID, stopProgress int) int {
	count := 0
	for _, e := range p.partsByTask[id] {
		if e.StopProgress < stopProgress {
			count++
		}
	}
	return count
}

// ComputeTimes propagates ready/finish times across every queued entry,
// honouring machine order, intra-task part order and DAG dependencies, then
// recomputes makespan and static/dynamic/total energy (spec §4.4). It is
// idempotent: calling it twice in a row on an unchanged Schedule produces
// identical timings, since it only ever reads already-queued entries and
// overwrites their timing fields deterministically.
func (s *Schedule) ComputeTimes() error {
	p := newPropState(s)

	cur := make([]int, len(s.Resources))
	for r, queue := range s.TasksByResource {
		for slot, e := range queue {
			ComputeExecutionTime(e, s.Resources[r], s.estimator, s.RunningTasks, r, slot)
		}
	}

	for {
		progressed := false
		for r, queue := range s.TasksByResource {
			if cur[r] >= len(queue) {
				continue
			}
			e := queue[cur[r]]
			var ready int64
			if cur[r] > 0 {
				ready = queue[cur[r]-1].TimeFinish
			}
			t := e.TaskID

			if p.partCount[t] > 1 {
				before := p.partsBefore(t, e.StopProgress)
				if p.lastPart[t]+1 < before {
					continue // not this part's turn yet
				}
			}
			if p.lastProgress[t] == e.StartProgress {
				if last := p.lastPartEntry[t]; last != nil && last.TimeFinish > ready {
					ready = last.TimeFinish
				}
			}

			depsSatisfied := true
			for _, pred := range e.TaskCopy.Predecessors {
				if _, inScope := p.partCount[pred]; !inScope {
					continue
				}
				idx, done := p.taskExist[pred]
				if !done {
					depsSatisfied = false
					break
				}
				predRes := p.taskRes[pred]
				predEntry := s.TasksByResource[predRes][idx]
				if predEntry.TimeFinish > ready {
					ready = predEntry.TimeFinish
				}
			}
			if !depsSatisfied {
				continue
			}

			e.TimeReady = ready
			e.TimeFinish = ready + e.DurTotal
			e.PartNumber = p.lastPart[t] + 1
			p.lastPart[t] = e.PartNumber
			p.lastPartEntry[t] = e
			p.lastProgress[t] = e.StopProgress
			if e.StopProgress == e.TaskCopy.Checkpoints {
				p.taskExist[t] = cur[r]
				p.taskRes[t] = r
			}
			cur[r]++
			progressed = true
		}
		done := true
		for r, queue := range s.TasksByResource {
			if cur[r] < len(queue) {
				done = false
				break
			}
		}
		if done {
			break
		}
		if !progressed {
			return fmt.Errorf("schedule: time propagation stalled: some entries could not be propagated (invalid schedule)")
		}
	}

	s.finalize()
	return nil
}

func (s *Schedule) finalize() {
	var makespan int64
	var dynamicEnergy float64
	var staticEnergy float64
	activeTasks := map[task.ID]bool{}

	for r, queue := range s.TasksByResource {
		var lastFinish int64
		for i, e := range queue {
			dynamicEnergy += e.Energy
			activeTasks[e.TaskID] = true
			if i+1 < len(queue) {
				e.DurBreak = queue[i+1].TimeReady - e.TimeFinish
			} else {
				e.DurBreak = 0
			}
			if e.TimeFinish > lastFinish {
				lastFinish = e.TimeFinish
			}
		}
		if lastFinish > makespan {
			makespan = lastFinish
		}
		staticEnergy += s.Resources[r].IdleEnergy(float64(lastFinish) / 1e9)
	}

	s.Makespan = makespan
	s.StaticEnergy = staticEnergy
	s.DynamicEnergy = dynamicEnergy
	s.TotalEnergy = staticEnergy + dynamicEnergy
	s.ActiveTasks = len(activeTasks)
}
