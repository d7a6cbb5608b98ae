package migration

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/mapping"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/task"
)

// Solver implements mapping.MILPSolver: it turns one genetic chromosome into
// an LPInput, runs it through a Runner, and returns the resulting objective
// value as the chromosome's fitness.
//
// The chromosome representation mapping.genetic builds (one part per task
// per resource, spec §4.6.6) is reused as-is rather than the dedicated
// two-part-per-task representation spec §4.6.7 describes: every task is
// emitted to the LP as a single "merged" part (Merge: true), which makes
// the general two-part constraint block in GenerateLP dead for this adapter
// today. It is kept and tested directly (see lp_test.go) because a real
// two-part chromosome is the natural next extension of mapping.Chromosome
// and the LP side of that work is already done.
type Solver struct {
	resources []*resource.Resource
	estimator estimator.Estimator
	tasks     []*task.Copy
	runner    *Runner
}

// NewSolver builds a Solver bound to one task set; tasks gives the LP's
// dense task-index space (index == position in this slice).
func NewSolver(resources []*resource.Resource, est estimator.Estimator, tasks []*task.Copy, runner *Runner) *Solver {
	return &Solver{resources: resources, estimator: est, tasks: tasks, runner: runner}
}

var _ mapping.MILPSolver = (*Solver)(nil)

// Fitness implements mapping.MILPSolver.
func (s *Solver) Fitness(c *mapping.Chromosome, energy bool, interrupt *atomic.Bool) (float64, bool) {
	ctx := context.Background()
	if interrupt != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			for !interrupt.Load() {
				select {
				case <-ctx.Done():
					return
				default:
				}
			}
			cancel()
		}()
	}

	in, err := s.buildInput(c, energy)
	if err != nil {
		return math.MaxFloat64, false
	}
	sol, err := s.runner.Solve(ctx, in, Now())
	if err != nil || sol.Infeasible {
		return math.MaxFloat64, false
	}
	return sol.Fitness, true
}

func (s *Solver) indexByID() map[task.ID]int {
	idx := make(map[task.ID]int, len(s.tasks))
	for i, t := range s.tasks {
		idx[t.ID] = i
	}
	return idx
}

func (s *Solver) buildInput(c *mapping.Chromosome, energy bool) (LPInput, error) {
	idx := s.indexByID()
	specs := make([]TaskSpec, len(s.tasks))
	order := make([][]Entry, len(s.resources))
	var m float64

	for r, seq := range c.Sequences {
		for _, id := range seq {
			ti, ok := idx[id]
			if !ok {
				continue
			}
			order[r] = append(order[r], Entry{TaskIndex: ti, Part: 'a'})
		}
	}

	for ti, t := range s.tasks {
		resIdx := findResourceOf(c, t.ID)
		var res *resource.Resource
		if resIdx >= 0 {
			res = s.resources[resIdx]
		}
		var constCost, dynCost float64
		if res != nil && t.ValidResource(resIdx) {
			constCost = s.estimator.TimeInit(t, res) + s.estimator.TimeFini(t, res)
			dynCost = s.estimator.TimeCompute(t, res, t.Progress, t.Checkpoints)
		}
		m += 2*constCost + dynCost

		preds := make([]int, 0, len(t.Predecessors))
		for _, p := range t.Predecessors {
			if pi, ok := idx[p]; ok {
				preds = append(preds, pi)
			}
		}
		specs[ti] = TaskSpec{Merge: true, ConstA: constCost, DynA: dynCost, Predecessors: preds}
	}

	return LPInput{
		Tasks:        specs,
		Resources:    s.resources,
		MachineOrder: order,
		Energy:       energy,
		M:            m + 1,
	}, nil
}

func findResourceOf(c *mapping.Chromosome, id task.ID) int {
	for r, seq := range c.Sequences {
		for _, x := range seq {
			if x == id {
				return r
			}
		}
	}
	return -1
}
