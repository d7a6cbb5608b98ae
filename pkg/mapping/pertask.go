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

// policy picks one resource for one task out of its compatible set, given
// the per-resource candidate stats perTaskGreedy computes (spec §4.6.1).
type policy func(p *perTaskGreedy, cands []candidate) int

type candidate struct {
	resource    int
	resReady    int64
	taskReady   int64
	execTime    int64 // init+compute+fini
	completion  int64 // max(resReady,taskReady) + execTime
}

// perTaskGreedy implements the MCT/MET/OLB/SA/KPB family: for each task, in
// input order, pick one resource by a per-algorithm policy and place the
// whole remaining task there.
type perTaskGreedy struct {
	base
	name   string
	pick   policy
	kpbPct float64 // KPB only
	saLow  float64 // SA only
	saHigh float64
}

// NewMCT returns the minimum-completion-time policy.
func NewMCT(resources []*resource.Resource, est estimator.Estimator) Algorithm {
	return &perTaskGreedy{base: newBase(resources, est), name: "mct", pick: pickMCT}
}

// NewMET returns the minimum-execution-time policy.
func NewMET(resources []*resource.Resource, est estimator.Estimator) Algorithm {
	return &perTaskGreedy{base: newBase(resources, est), name: "met", pick: pickMET}
}

// NewOLB returns the opportunistic-load-balancing policy (earliest-ready
// resource).
func NewOLB(resources []*resource.Resource, est estimator.Estimator) Algorithm {
	return &perTaskGreedy{base: newBase(resources, est), name: "olb", pick: pickOLB}
}

// NewKPB returns the k-percent-best policy: only the fastest
// ceil(percentage/100 * R) compatible resources by execution time are
// considered, and among those the minimum-completion-time one is chosen.
func NewKPB(resources []*resource.Resource, est estimator.Estimator, percentage float64) Algorithm {
	g := &perTaskGreedy{base: newBase(resources, est), name: "kpb", kpbPct: percentage}
	g.pick = g.pickKPB
	return g
}

// NewSA returns the switching-adaptive policy: tracks the ratio of the
// readiest to the busiest compatible resource and switches between MET (high
// ratio — resources are roughly equally free, favor raw speed) and MCT (low
// ratio — favor the least-contended resource); in between it falls back to
// OLB, matching the spec's description of SA as "switching" between two
// extremes rather than defining a third named behavior for the middle band.
func NewSA(resources []*resource.Resource, est estimator.Estimator, ratioLower, ratioHigher float64) Algorithm {
	g := &perTaskGreedy{base: newBase(resources, est), name: "sa", saLow: ratioLower, saHigh: ratioHigher}
	g.pick = g.pickSA
	return g
}

func pickMCT(p *perTaskGreedy, cands []candidate) int {
	best := 0
	for i := 1; i < len(cands); i++ {
		if cands[i].completion < cands[best].completion {
			best = i
		}
	}
	return best
}

func pickMET(p *perTaskGreedy, cands []candidate) int {
	best := 0
	for i := 1; i < len(cands); i++ {
		if cands[i].execTime < cands[best].execTime {
			best = i
		}
	}
	return best
}

func pickOLB(p *perTaskGreedy, cands []candidate) int {
	best := 0
	bestReady := maxI64(cands[0].resReady, cands[0].taskReady)
	for i := 1; i < len(cands); i++ {
		r := maxI64(cands[i].resReady, cands[i].taskReady)
		if r < bestReady {
			bestReady = r
			best = i
		}
	}
	return best
}

func (p *perTaskGreedy) pickKPB(_ *perTaskGreedy, cands []candidate) int {
	sorted := append([]candidate(nil), cands...)
	sortCandidatesByExecTime(sorted)
	n := len(sorted)
	keep := int(math.Ceil(p.kpbPct / 100.0 * float64(n)))
	if keep < 1 {
		keep = 1
	}
	if keep > n {
		keep = n
	}
	top := sorted[:keep]
	best := top[0]
	for _, c := range top[1:] {
		if c.completion < best.completion {
			best = c
		}
	}
	for i, c := range cands {
		if c.resource == best.resource {
			return i
		}
	}
	return 0
}

func (p *perTaskGreedy) pickSA(_ *perTaskGreedy, cands []candidate) int {
	minReady, maxReady := cands[0].resReady, cands[0].resReady
	for _, c := range cands[1:] {
		if c.resReady < minReady {
			minReady = c.resReady
		}
		if c.resReady > maxReady {
			maxReady = c.resReady
		}
	}
	ratio := 1.0
	if maxReady > 0 {
		ratio = float64(minReady) / float64(maxReady)
	}
	switch {
	case ratio >= p.saHigh:
		return pickMET(p, cands)
	case ratio <= p.saLow:
		return pickMCT(p, cands)
	default:
		return pickOLB(p, cands)
	}
}

func sortCandidatesByExecTime(c []candidate) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j].execTime < c[j-1].execTime; j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Compute implements Algorithm.
func (p *perTaskGreedy) Compute(tasks []*task.Copy, running []*task.Copy, interrupt *atomic.Bool, progressUpdated bool) *schedule.Schedule {
	ext := p.buildExt(running, tasks)
	for _, t := range tasks {
		if interrupted(interrupt) {
			return nil
		}
		if ext.TaskLastPartMapped(t.ID) {
			continue
		}
		cands := p.candidatesFor(ext, t)
		if len(cands) == 0 {
			continue // no compatible resource; leave unmapped
		}
		choice := cands[p.pick(p, cands)]
		placeWholeTask(ext, t, choice.resource)
	}
	if err := ext.Schedule.ComputeTimes(); err != nil {
		return ext.Schedule
	}
	return ext.Schedule
}

func (p *perTaskGreedy) candidatesFor(ext *scheduleext.Ext, t *task.Copy) []candidate {
	cands := make([]candidate, 0, len(t.CompatibleResources))
	for _, r := range t.CompatibleResources {
		res := p.resources[r]
		init, compute, fini := fullDuration(p.estimator, t, res)
		exec := nanos(init + compute + fini)
		resReady := ext.ResourceReadyTime(r)
		taskReady := ext.TaskReadyTimeResource(t.ID, r)
		ready := maxI64(resReady, taskReady)
		cands = append(cands, candidate{
			resource:   r,
			resReady:   resReady,
			taskReady:  taskReady,
			execTime:   exec,
			completion: ready + exec,
		})
	}
	return cands
}
