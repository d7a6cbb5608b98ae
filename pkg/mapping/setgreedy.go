package mapping

import (
	"math"
	"sync/atomic"

	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/schedule"
	"github.com/aw32/hetsched/pkg/scheduleext"
	"github.com/aw32/hetsched/pkg/task"
)

// doubleMax is the penalty value used for incompatible (task, resource)
// pairs in the completion-time matrix, matching the original's double_max
// sentinel (spec §4.6.2, §7).
const doubleMax = 1e10

// setGreedyKind selects Min-Min, Max-Min or Sufferage behavior.
type setGreedyKind uint8

const (
	kindMinMin setGreedyKind = iota
	kindMaxMin
	kindSufferage
)

type setGreedy struct {
	base
	kind setGreedyKind
}

// NewMinMin returns the Min-Min set-greedy mapper.
func NewMinMin(resources []*resource.Resource, est estimator.Estimator) Algorithm {
	return &setGreedy{base: newBase(resources, est), kind: kindMinMin}
}

// NewMaxMin returns the Max-Min set-greedy mapper.
func NewMaxMin(resources []*resource.Resource, est estimator.Estimator) Algorithm {
	return &setGreedy{base: newBase(resources, est), kind: kindMaxMin}
}

// NewSufferage returns the Sufferage set-greedy mapper.
func NewSufferage(resources []*resource.Resource, est estimator.Estimator) Algorithm {
	return &setGreedy{base: newBase(resources, est), kind: kindSufferage}
}

// completionRow is one task's completion time against every resource
// (doubleMax for incompatible pairs).
type completionRow struct {
	task *task.Copy
	c    []float64 // indexed by resource id
}

func (s *setGreedy) buildRow(ext *scheduleext.Ext, t *task.Copy) completionRow {
	row := completionRow{task: t, c: make([]float64, len(s.resources))}
	for r := range s.resources {
		row.c[r] = doubleMax
	}
	for _, r := range t.CompatibleResources {
		res := s.resources[r]
		init, compute, fini := fullDuration(s.estimator, t, res)
		ready := maxI64(ext.ResourceReadyTime(r), ext.TaskReadyTimeResource(t.ID, r))
		row.c[r] = float64(ready)/1e9 + init + compute + fini
	}
	return row
}

func (row completionRow) minTwo() (minIdx int, min, secondMin float64) {
	min, secondMin = math.Inf(1), math.Inf(1)
	minIdx = -1
	for r, v := range row.c {
		if v < min {
			secondMin = min
			min = v
			minIdx = r
		} else if v < secondMin {
			secondMin = v
		}
	}
	return
}

// Compute implements Algorithm.
func (s *setGreedy) Compute(tasks []*task.Copy, running []*task.Copy, interrupt *atomic.Bool, progressUpdated bool) *schedule.Schedule {
	ext := s.buildExt(running, tasks)

	for {
		if interrupted(interrupt) {
			return nil
		}
		ready := s.readyUnmapped(ext, tasks)
		if len(ready) == 0 {
			break
		}

		switch s.kind {
		case kindMinMin:
			s.stepMinMax(ext, ready, true)
		case kindMaxMin:
			s.stepMinMax(ext, ready, false)
		case kindSufferage:
			s.stepSufferage(ext, ready)
		}
	}

	if err := ext.Schedule.ComputeTimes(); err != nil {
		return ext.Schedule
	}
	return ext.Schedule
}

func (s *setGreedy) readyUnmapped(ext *scheduleext.Ext, tasks []*task.Copy) []*task.Copy {
	out := make([]*task.Copy, 0, len(tasks))
	for _, t := range tasks {
		if ext.TaskLastPartMapped(t.ID) {
			continue
		}
		if !ext.TaskDepSatisfied(t.ID) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// stepMinMax assigns exactly one (task, resource) pair per call: the global
// minimum C for Min-Min, or the task whose own minimum is largest for
// Max-Min (spec §4.6.2).
func (s *setGreedy) stepMinMax(ext *scheduleext.Ext, ready []*task.Copy, minMin bool) {
	var bestTask *task.Copy
	bestRes := -1
	bestValue := math.Inf(1)
	worstOfMins := math.Inf(-1)

	for _, t := range ready {
		row := s.buildRow(ext, t)
		idx, min, _ := row.minTwo()
		if idx < 0 {
			continue
		}
		if minMin {
			if min < bestValue {
				bestValue = min
				bestTask = t
				bestRes = idx
			}
		} else if min > worstOfMins {
			worstOfMins = min
			bestTask = t
			bestRes = idx
		}
	}
	if bestTask != nil && bestRes >= 0 {
		placeWholeTask(ext, bestTask, bestRes)
	}
}

// stepSufferage assigns one task per resource per pass: each resource
// claims the still-unassigned task whose sufferage (second-min minus min)
// is largest among those preferring it (spec §4.6.2).
func (s *setGreedy) stepSufferage(ext *scheduleext.Ext, ready []*task.Copy) {
	type claim struct {
		task       *task.Copy
		res        int
		sufferage  float64
	}
	claims := make(map[int]claim) // by resource
	for _, t := range ready {
		row := s.buildRow(ext, t)
		idx, min, second := row.minTwo()
		if idx < 0 {
			continue
		}
		sufferage := second - min
		if math.IsInf(sufferage, 0) {
			sufferage = doubleMax // single usable resource: fall back to the penalty sentinel
		}
		if existing, ok := claims[idx]; !ok || sufferage > existing.sufferage {
			claims[idx] = claim{task: t, res: idx, sufferage: sufferage}
		}
	}
	ordered := make([]claim, 0, len(claims))
	for _, c := range claims {
		ordered = append(ordered, c)
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].sufferage > ordered[j-1].sufferage; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	placed := map[task.ID]bool{}
	for _, c := range ordered {
		if placed[c.task.ID] {
			continue
		}
		placeWholeTask(ext, c.task, c.res)
		placed[c.task.ID] = true
	}
}
