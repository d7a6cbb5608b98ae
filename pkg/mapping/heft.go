package mapping

import (
	"sort"
	"sync/atomic"

	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/schedule"
	"github.com/aw32/hetsched/pkg/scheduleext"
	"github.com/aw32/hetsched/pkg/task"
)

// heft implements the rank-based list scheduler of spec §4.6.3, with an
// optional two-part migration search per task (spec §4.6.4).
type heft struct {
	base
	migration bool
}

// NewHEFT returns the plain HEFT mapper.
func NewHEFT(resources []*resource.Resource, est estimator.Estimator) Algorithm {
	return &heft{base: newBase(resources, est)}
}

// NewHEFTMig returns the HEFT mapper with two-part migration candidates
// enabled (spec §4.6.4).
func NewHEFTMig(resources []*resource.Resource, est estimator.Estimator) Algorithm {
	return &heft{base: newBase(resources, est), migration: true}
}

func (h *heft) averageExecCost(t *task.Copy) float64 {
	if len(t.CompatibleResources) == 0 {
		return 0
	}
	var sum float64
	for _, r := range t.CompatibleResources {
		init, compute, fini := fullDuration(h.estimator, t, h.resources[r])
		sum += init + compute + fini
	}
	return sum / float64(len(t.CompatibleResources))
}

// upwardRanks computes spec §4.6.3 step 2 for every task: w[t] plus the max
// upward rank among its in-scope successors.
func (h *heft) upwardRanks(tasks []*task.Copy) map[task.ID]float64 {
	byID := make(map[task.ID]*task.Copy, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	ranks := make(map[task.ID]float64, len(tasks))
	var visit func(t *task.Copy) float64
	visiting := map[task.ID]bool{}
	visit = func(t *task.Copy) float64 {
		if r, ok := ranks[t.ID]; ok {
			return r
		}
		if visiting[t.ID] {
			return h.averageExecCost(t) // defensive: break an unexpected cycle
		}
		visiting[t.ID] = true
		var maxSucc float64
		for _, sid := range t.Successors {
			s, ok := byID[sid]
			if !ok {
				continue
			}
			if r := visit(s); r > maxSucc {
				maxSucc = r
			}
		}
		rank := h.averageExecCost(t) + maxSucc
		ranks[t.ID] = rank
		visiting[t.ID] = false
		return rank
	}
	for _, t := range tasks {
		visit(t)
	}
	return ranks
}

// Compute implements Algorithm.
func (h *heft) Compute(tasks []*task.Copy, running []*task.Copy, interrupt *atomic.Bool, progressUpdated bool) *schedule.Schedule {
	ext := h.buildExt(running, tasks)
	ranks := h.upwardRanks(tasks)

	ordered := append([]*task.Copy(nil), tasks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ranks[ordered[i].ID] > ranks[ordered[j].ID]
	})

	for _, t := range ordered {
		if interrupted(interrupt) {
			return nil
		}
		if ext.TaskLastPartMapped(t.ID) {
			continue
		}
		if h.migration {
			if h.tryMigration(ext, t) {
				continue
			}
		}
		h.placeBestSlot(ext, t)
	}

	if err := ext.Schedule.ComputeTimes(); err != nil {
		return ext.Schedule
	}
	return ext.Schedule
}

// placeBestSlot finds, across t's compatible resources, the slot that
// finishes earliest and inserts t there as a single part (spec §4.6.3 step
// 4).
func (h *heft) placeBestSlot(ext *scheduleext.Ext, t *task.Copy) {
	bestRes := -1
	bestSlot := 0
	var bestFinish int64
	first := true
	for _, r := range t.CompatibleResources {
		res := h.resources[r]
		init, compute, fini := fullDuration(h.estimator, t, res)
		duration := nanos(init + compute + fini)
		ready := ext.TaskReadyTimeResource(t.ID, r)
		slot, _, stop := ext.FindSlot(r, duration, ready, 0)
		if first || stop < bestFinish {
			bestFinish = stop
			bestRes = r
			bestSlot = slot
			first = false
		}
	}
	if bestRes < 0 {
		return
	}
	entry := &schedule.Entry{TaskID: t.ID, TaskCopy: t, StartProgress: t.Progress, StopProgress: t.Checkpoints}
	ext.AddEntry(entry, bestRes, bestSlot)
}

// migrationCandidate is one feasible two-part split of t across two
// resources (spec §4.6.4).
type migrationCandidate struct {
	resA, resB             int
	slotA, slotB           int
	splitAt                int // checkpoint boundary between part A and part B
	finishB                int64
}

// tryMigration enumerates two-part splits of t and, if one finishes earlier
// than the best single-resource placement, commits both parts and returns
// true.
func (h *heft) tryMigration(ext *scheduleext.Ext, t *task.Copy) bool {
	bestRes, bestSlot, bestFinish := h.bestSingleSlot(ext, t)
	if bestRes < 0 {
		return false
	}

	var best *migrationCandidate
	for _, ra := range t.CompatibleResources {
		for _, rb := range t.CompatibleResources {
			if ra == rb {
				continue
			}
			cand := h.evaluateMigration(ext, t, ra, rb)
			if cand == nil {
				continue
			}
			if best == nil || cand.finishB < best.finishB {
				best = cand
			}
		}
	}
	if best == nil || best.finishB >= bestFinish {
		return false
	}
	h.commitMigration(ext, t, best)
	return true
}

func (h *heft) bestSingleSlot(ext *scheduleext.Ext, t *task.Copy) (res, slot int, finish int64) {
	res = -1
	first := true
	for _, r := range t.CompatibleResources {
		resource := h.resources[r]
		init, compute, fini := fullDuration(h.estimator, t, resource)
		duration := nanos(init + compute + fini)
		ready := ext.TaskReadyTimeResource(t.ID, r)
		s, _, stop := ext.FindSlot(r, duration, ready, 0)
		if first || stop < finish {
			finish = stop
			res = r
			slot = s
			first = false
		}
	}
	return
}

// evaluateMigration tries part A on ra starting as early as possible and
// part B on rb starting no earlier than part A's start, per spec §4.6.4.
func (h *heft) evaluateMigration(ext *scheduleext.Ext, t *task.Copy, ra, rb int) *migrationCandidate {
	resA, resB := h.resources[ra], h.resources[rb]
	initA := nanos(h.estimator.TimeInit(t, resA))
	finiA := nanos(h.estimator.TimeFini(t, resA))
	initB := nanos(h.estimator.TimeInit(t, resB))
	finiB := nanos(h.estimator.TimeFini(t, resB))

	startA := ext.TaskReadyTimeResource(t.ID, ra)
	slotA, gapStart, gapStop := ext.FindSlot(ra, initA+finiA+1, startA, 0) // probe for any gap at all
	startA = gapStart
	available := gapStop - startA - initA - finiA
	if available <= 0 {
		return nil
	}
	budgetSeconds := float64(available) / 1e9
	pointsA := h.estimator.TimeComputeCheckpoint(t, resA, t.Progress, budgetSeconds)
	remaining := t.Checkpoints - t.Progress
	if pointsA <= 0 || pointsA >= remaining {
		return nil
	}
	splitAt := t.Progress + pointsA
	computeA := nanos(h.estimator.TimeCompute(t, resA, t.Progress, splitAt))
	finishA := startA + initA + computeA + finiA

	startB := startA
	if finishA > startB {
		startB = finishA
	}
	oneCheckpointCompute := nanos(h.estimator.TimeCompute(t, resB, splitAt, splitAt+1))
	durationB := initB + oneCheckpointCompute + finiB
	slotB, gapStartB, _ := ext.FindSlot(rb, durationB, startB, 0)
	fullComputeB := nanos(h.estimator.TimeCompute(t, resB, splitAt, t.Checkpoints))
	neededB := initB + fullComputeB + finiB
	finishB := gapStartB + neededB

	return &migrationCandidate{
		resA: ra, resB: rb,
		slotA: slotA, slotB: slotB,
		splitAt: splitAt,
		finishB: finishB,
	}
}

func (h *heft) commitMigration(ext *scheduleext.Ext, t *task.Copy, c *migrationCandidate) {
	partA := &schedule.Entry{TaskID: t.ID, TaskCopy: t, StartProgress: t.Progress, StopProgress: c.splitAt}
	ext.AddEntry(partA, c.resA, c.slotA)
	partB := &schedule.Entry{TaskID: t.ID, TaskCopy: t, StartProgress: c.splitAt, StopProgress: t.Checkpoints}
	ext.AddEntry(partB, c.resB, -1)
}
