package mapping

import (
	"math"
	"math/rand"
	"sort"
	"sync/atomic"

	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/schedule"
	"github.com/aw32/hetsched/pkg/task"
)

// calibrationPercentile picks the sample used to derive the initial
// temperature (spec §4.6.8 "the p-th percentile Δ"); the spec leaves p
// unspecified, so the median is used — the calibration run's purpose is
// only to land on a temperature of the right order of magnitude.
const calibrationPercentile = 0.5

// simulatedAnnealing implements spec §4.6.8: single-chromosome hill descent
// with a calibrated starting temperature and geometric cooling.
type simulatedAnnealing struct {
	base
	seed        int64
	energy      bool
	initProb    float64
	loopsFactor float64
	reduce      float64
	minProb     float64
}

// NewSimulatedAnnealing returns the makespan-minimizing SA mapper. initProb,
// loopsFactor, reduce and minProb are the simann_init_prob,
// simann_loops_factor, simann_reduce and simann_min_prob config values.
func NewSimulatedAnnealing(resources []*resource.Resource, est estimator.Estimator, seed int64, initProb, loopsFactor, reduce, minProb float64) Algorithm {
	return &simulatedAnnealing{base: newBase(resources, est), seed: seed, initProb: initProb, loopsFactor: loopsFactor, reduce: reduce, minProb: minProb}
}

// NewSimulatedAnnealingEnergy is NewSimulatedAnnealing with the energy
// objective.
func NewSimulatedAnnealingEnergy(resources []*resource.Resource, est estimator.Estimator, seed int64, initProb, loopsFactor, reduce, minProb float64) Algorithm {
	return &simulatedAnnealing{base: newBase(resources, est), seed: seed, energy: true, initProb: initProb, loopsFactor: loopsFactor, reduce: reduce, minProb: minProb}
}

// Compute implements Algorithm.
func (s *simulatedAnnealing) Compute(tasks []*task.Copy, running []*task.Copy, interrupt *atomic.Bool, progressUpdated bool) *schedule.Schedule {
	if len(tasks) == 0 {
		ext := s.buildExt(running, tasks)
		_ = ext.Schedule.ComputeTimes()
		return ext.Schedule
	}

	byID := make(map[task.ID]*task.Copy, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	h := heights(tasks)
	byHeight := groupByHeight(tasks, h)
	rng := rand.New(rand.NewSource(s.seed))
	g := &genetic{base: s.base, seed: s.seed, energy: s.energy}

	current := g.randomChromosome(rng, tasks, byHeight)
	current.Fitness = g.evaluate(current, byID)
	best := current.clone()

	T := s.calibrate(rng, g, current, byHeight, byID, len(tasks))
	movesPerTemp := int(s.loopsFactor * float64(len(tasks)))
	if movesPerTemp < 1 {
		movesPerTemp = 1
	}

	for {
		if interrupted(interrupt) {
			return nil
		}
		overThreshold := 0
		for i := 0; i < movesPerTemp; i++ {
			neighbour := current.clone()
			g.mutate(rng, neighbour, byHeight)
			neighbour.Fitness = g.evaluate(neighbour, byID)
			delta := current.Fitness - neighbour.Fitness // positive = downhill
			if delta > 0 {
				current = neighbour
			} else {
				prob := math.Exp(delta / T)
				if prob > s.minProb {
					overThreshold++
				}
				if rng.Float64() < prob {
					current = neighbour
				}
			}
			if current.Fitness < best.Fitness {
				best = current.clone()
			}
		}
		T *= s.reduce
		if overThreshold < 5 {
			break
		}
	}

	return g.materialize(best, running, tasks)
}

// calibrate runs 2*tasks*loopsFactor single mutations from the starting
// chromosome, collects |Δfitness| samples and derives T = -Δ_p / ln(init_prob)
// per spec §4.6.8.
func (s *simulatedAnnealing) calibrate(rng *rand.Rand, g *genetic, start *Chromosome, byHeight [][]*task.Copy, byID map[task.ID]*task.Copy, numTasks int) float64 {
	n := int(2 * float64(numTasks) * s.loopsFactor)
	if n < 1 {
		n = 1
	}
	samples := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		neighbour := start.clone()
		g.mutate(rng, neighbour, byHeight)
		neighbour.Fitness = g.evaluate(neighbour, byID)
		samples = append(samples, math.Abs(start.Fitness-neighbour.Fitness))
	}
	sort.Float64s(samples)
	idx := int(calibrationPercentile * float64(len(samples)-1))
	deltaP := samples[idx]
	if deltaP <= 0 || s.initProb <= 0 || s.initProb >= 1 {
		return 1 // degenerate calibration: every candidate identical, temperature is irrelevant
	}
	return -deltaP / math.Log(s.initProb)
}
