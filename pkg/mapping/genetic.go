package mapping

import (
	"math/rand"
	"sync/atomic"

	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/schedule"
	"github.com/aw32/hetsched/pkg/task"
)

const (
	populationSize = 20
	maxNoChange    = 10
)

// genetic implements spec §4.6.6: a population of per-resource task-id
// sequences, partitioned by DAG height, evolved by roulette-wheel selection,
// height-bounded crossover and equal-height swap mutation.
type genetic struct {
	base
	seed      int64
	energy    bool // fitness = total energy instead of makespan
	migration bool // two-part chromosome, fitness delegated to an LP solver
	solver    MILPSolver
}

// MILPSolver is the capability trait the genetic-with-migration variant
// delegates fitness evaluation to (spec §4.6.7, §9 "External solver"). A nil
// solver makes the migration variant behave like the non-migration genetic
// mapper — callers wire a real implementation from pkg/migration.
type MILPSolver interface {
	// Fitness returns the objective value (makespan or energy, in the same
	// units as the non-migration fitness) for the given chromosome, or
	// (math.MaxFloat64, false) if the candidate is infeasible or the solver
	// was interrupted.
	Fitness(c *Chromosome, energy bool, interrupt *atomic.Bool) (float64, bool)
}

// NewGenetic returns the makespan-minimizing genetic mapper.
func NewGenetic(resources []*resource.Resource, est estimator.Estimator, seed int64) Algorithm {
	return &genetic{base: newBase(resources, est), seed: seed}
}

// NewGeneticEnergy returns the energy-minimizing genetic mapper.
func NewGeneticEnergy(resources []*resource.Resource, est estimator.Estimator, seed int64) Algorithm {
	return &genetic{base: newBase(resources, est), seed: seed, energy: true}
}

// NewGeneticMig returns the two-part migration genetic mapper (spec §4.6.7),
// whose fitness is delegated to solver.
func NewGeneticMig(resources []*resource.Resource, est estimator.Estimator, seed int64, solver MILPSolver) Algorithm {
	return &genetic{base: newBase(resources, est), seed: seed, migration: true, solver: solver}
}

// NewGeneticMigEnergy is NewGeneticMig with the energy objective.
func NewGeneticMigEnergy(resources []*resource.Resource, est estimator.Estimator, seed int64, solver MILPSolver) Algorithm {
	return &genetic{base: newBase(resources, est), seed: seed, migration: true, energy: true, solver: solver}
}

// Chromosome is one candidate solution: for each resource, the ordered list
// of task ids assigned to it.
type Chromosome struct {
	Sequences [][]task.ID // indexed by resource id
	Fitness   float64
}

func (c *Chromosome) clone() *Chromosome {
	seqs := make([][]task.ID, len(c.Sequences))
	for i, s := range c.Sequences {
		seqs[i] = append([]task.ID(nil), s...)
	}
	return &Chromosome{Sequences: seqs, Fitness: c.Fitness}
}

// heights computes the DAG height of each task: the length of the longest
// path from a source (spec GLOSSARY "Height").
func heights(tasks []*task.Copy) map[task.ID]int {
	byID := make(map[task.ID]*task.Copy, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	h := make(map[task.ID]int, len(tasks))
	var visit func(t *task.Copy) int
	visiting := map[task.ID]bool{}
	visit = func(t *task.Copy) int {
		if v, ok := h[t.ID]; ok {
			return v
		}
		if visiting[t.ID] {
			return 0
		}
		visiting[t.ID] = true
		height := 0
		for _, pid := range t.Predecessors {
			p, ok := byID[pid]
			if !ok {
				continue
			}
			if v := visit(p) + 1; v > height {
				height = v
			}
		}
		h[t.ID] = height
		visiting[t.ID] = false
		return height
	}
	for _, t := range tasks {
		visit(t)
	}
	return h
}

func (g *genetic) randomChromosome(rng *rand.Rand, tasks []*task.Copy, byHeight [][]*task.Copy) *Chromosome {
	c := &Chromosome{Sequences: make([][]task.ID, len(g.resources))}
	for _, level := range byHeight {
		for _, t := range level {
			if len(t.CompatibleResources) == 0 {
				continue
			}
			r := t.CompatibleResources[rng.Intn(len(t.CompatibleResources))]
			c.Sequences[r] = append(c.Sequences[r], t.ID)
		}
	}
	return c
}

func groupByHeight(tasks []*task.Copy, h map[task.ID]int) [][]*task.Copy {
	max := 0
	for _, v := range h {
		if v > max {
			max = v
		}
	}
	byHeight := make([][]*task.Copy, max+1)
	for _, t := range tasks {
		lvl := h[t.ID]
		byHeight[lvl] = append(byHeight[lvl], t)
	}
	return byHeight
}

// evaluate simulates the chromosome's per-resource sequences in increasing
// height order and returns makespan or total energy, per spec §4.6.6.
func (g *genetic) evaluate(c *Chromosome, tasks map[task.ID]*task.Copy) float64 {
	finish := map[task.ID]int64{}
	resFinish := make([]int64, len(g.resources))
	resEnergy := make([]float64, len(g.resources))
	cursor := make([]int, len(c.Sequences))
	remaining := 0
	for _, seq := range c.Sequences {
		remaining += len(seq)
	}
	penalty := false

	for remaining > 0 {
		progressed := false
		for r, seq := range c.Sequences {
			if cursor[r] >= len(seq) {
				continue
			}
			id := seq[cursor[r]]
			t, ok := tasks[id]
			if !ok {
				cursor[r]++
				remaining--
				continue
			}
			ready := true
			var depReady int64
			for _, pred := range t.Predecessors {
				if _, inScope := tasks[pred]; !inScope {
					continue
				}
				f, done := finish[pred]
				if !done {
					ready = false
					break
				}
				if f > depReady {
					depReady = f
				}
			}
			if !ready {
				continue
			}
			start := resFinish[r]
			if depReady > start {
				start = depReady
			}
			if !t.ValidResource(r) {
				penalty = true
				finish[id] = start
				resFinish[r] = start
				cursor[r]++
				remaining--
				progressed = true
				continue
			}
			res := g.resources[r]
			init, compute, fini := fullDuration(g.estimator, t, res)
			exec := nanos(init + compute + fini)
			f := start + exec
			finish[id] = f
			resFinish[r] = f
			resEnergy[r] += g.estimator.EnergyInit(t, res) + g.estimator.EnergyCompute(t, res, t.Progress, t.Checkpoints) + g.estimator.EnergyFini(t, res)
			cursor[r]++
			remaining--
			progressed = true
		}
		if !progressed {
			penalty = true
			break
		}
	}
	if penalty {
		return doubleMax
	}

	var makespan int64
	for _, f := range resFinish {
		if f > makespan {
			makespan = f
		}
	}
	if !g.energy {
		return float64(makespan)
	}
	var static, dynamic float64
	for r, res := range g.resources {
		static += res.IdleEnergy(float64(resFinish[r]) / 1e9)
		dynamic += resEnergy[r]
	}
	return static + dynamic
}

func (g *genetic) crossover(rng *rand.Rand, a, b *Chromosome, heightNum int, h map[task.ID]int) (*Chromosome, *Chromosome) {
	if heightNum <= 0 {
		return a.clone(), b.clone()
	}
	cut := rng.Intn(heightNum)
	ca, cb := a.clone(), b.clone()
	for r := range ca.Sequences {
		ia := firstAboveHeight(ca.Sequences[r], h, cut)
		ib := firstAboveHeight(cb.Sequences[r], h, cut)
		tailA := append([]task.ID(nil), ca.Sequences[r][ia:]...)
		tailB := append([]task.ID(nil), cb.Sequences[r][ib:]...)
		ca.Sequences[r] = append(ca.Sequences[r][:ia], tailB...)
		cb.Sequences[r] = append(cb.Sequences[r][:ib], tailA...)
	}
	return ca, cb
}

func firstAboveHeight(seq []task.ID, h map[task.ID]int, cut int) int {
	for i, id := range seq {
		if h[id] > cut {
			return i
		}
	}
	return len(seq)
}

func (g *genetic) mutate(rng *rand.Rand, c *Chromosome, byHeight [][]*task.Copy) {
	lvl := byHeight[rng.Intn(len(byHeight))]
	if len(lvl) < 2 {
		return
	}
	ta, tb := lvl[rng.Intn(len(lvl))], lvl[rng.Intn(len(lvl))]
	if ta.ID == tb.ID {
		return
	}
	ra := findTaskResource(c, ta.ID)
	rb := findTaskResource(c, tb.ID)
	if ra < 0 || rb < 0 {
		return
	}
	swapInPlace(c.Sequences[ra], ta.ID, tb.ID)
	swapInPlace(c.Sequences[rb], tb.ID, ta.ID)
}

func findTaskResource(c *Chromosome, id task.ID) int {
	for r, seq := range c.Sequences {
		for _, x := range seq {
			if x == id {
				return r
			}
		}
	}
	return -1
}

func swapInPlace(seq []task.ID, from, to task.ID) {
	for i, x := range seq {
		if x == from {
			seq[i] = to
			return
		}
	}
}

// Compute implements Algorithm.
func (g *genetic) Compute(tasks []*task.Copy, running []*task.Copy, interrupt *atomic.Bool, progressUpdated bool) *schedule.Schedule {
	byID := make(map[task.ID]*task.Copy, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	h := heights(tasks)
	byHeight := groupByHeight(tasks, h)
	rng := rand.New(rand.NewSource(g.seed))

	population := make([]*Chromosome, populationSize)
	for i := range population {
		population[i] = g.randomChromosome(rng, tasks, byHeight)
		population[i].Fitness = g.fitnessOf(population[i], byID, interrupt)
	}

	best := bestOf(population)
	noChange := 0
	for noChange < maxNoChange {
		if interrupted(interrupt) {
			return nil
		}
		population = g.nextGeneration(rng, population, byHeight, h, byID, interrupt)
		candidate := bestOf(population)
		if candidate.Fitness < best.Fitness {
			best = candidate
			noChange = 0
		} else {
			noChange++
		}
	}

	return g.materialize(best, running, tasks)
}

func (g *genetic) fitnessOf(c *Chromosome, byID map[task.ID]*task.Copy, interrupt *atomic.Bool) float64 {
	if g.migration && g.solver != nil {
		if v, ok := g.solver.Fitness(c, g.energy, interrupt); ok {
			return v
		}
		return doubleMax
	}
	return g.evaluate(c, byID)
}

func bestOf(pop []*Chromosome) *Chromosome {
	best := pop[0]
	for _, c := range pop[1:] {
		if c.Fitness < best.Fitness {
			best = c
		}
	}
	return best
}

func (g *genetic) nextGeneration(rng *rand.Rand, pop []*Chromosome, byHeight [][]*task.Copy, h map[task.ID]int, byID map[task.ID]*task.Copy, interrupt *atomic.Bool) []*Chromosome {
	maxFitness := pop[0].Fitness
	for _, c := range pop {
		if c.Fitness > maxFitness {
			maxFitness = c.Fitness
		}
	}
	weights := make([]float64, len(pop))
	var total float64
	for i, c := range pop {
		weights[i] = maxFitness - c.Fitness + 1
		total += weights[i]
	}
	pick := func() *Chromosome {
		x := rng.Float64() * total
		for i, w := range weights {
			x -= w
			if x <= 0 {
				return pop[i]
			}
		}
		return pop[len(pop)-1]
	}

	next := make([]*Chromosome, 0, len(pop))
	next = append(next, bestOf(pop).clone()) // elitism
	for len(next) < len(pop) {
		a, b := pick(), pick()
		ca, cb := g.crossover(rng, a, b, len(byHeight), h)
		if rng.Float64() < 0.2 {
			g.mutate(rng, ca, byHeight)
		}
		if rng.Float64() < 0.2 {
			g.mutate(rng, cb, byHeight)
		}
		ca.Fitness = g.fitnessOf(ca, byID, interrupt)
		next = append(next, ca)
		if len(next) < len(pop) {
			cb.Fitness = g.fitnessOf(cb, byID, interrupt)
			next = append(next, cb)
		}
	}
	return next
}

// materialize turns the winning chromosome's per-resource sequences into a
// real Schedule via ScheduleExt, in height order so dependencies are always
// already mapped when a successor is placed.
func (g *genetic) materialize(c *Chromosome, running []*task.Copy, tasks []*task.Copy) *schedule.Schedule {
	ext := g.buildExt(running, tasks)
	byID := make(map[task.ID]*task.Copy, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	for {
		progressed := false
		for r, seq := range c.Sequences {
			for _, id := range seq {
				if ext.TaskLastPartMapped(id) {
					continue
				}
				t, ok := byID[id]
				if !ok || !t.ValidResource(r) {
					continue
				}
				if !ext.TaskDepSatisfied(id) {
					continue
				}
				placeWholeTask(ext, t, r)
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	if err := ext.Schedule.ComputeTimes(); err != nil {
		return ext.Schedule
	}
	return ext.Schedule
}
