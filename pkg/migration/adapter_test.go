package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aw32/hetsched/pkg/mapping"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/task"
)

type adapterFakeEstimator struct{}

func (adapterFakeEstimator) TimeInit(t *task.Copy, r *resource.Resource) float64    { return 1 }
func (adapterFakeEstimator) TimeFini(t *task.Copy, r *resource.Resource) float64    { return 1 }
func (adapterFakeEstimator) TimeCompute(t *task.Copy, r *resource.Resource, a, b int) float64 {
	return float64(b - a)
}
func (adapterFakeEstimator) TimeComputeCheckpoint(t *task.Copy, r *resource.Resource, a int, budget float64) int {
	return int(budget)
}
func (adapterFakeEstimator) EnergyInit(t *task.Copy, r *resource.Resource) float64 { return 0 }
func (adapterFakeEstimator) EnergyCompute(t *task.Copy, r *resource.Resource, a, b int) float64 {
	return 0
}
func (adapterFakeEstimator) EnergyFini(t *task.Copy, r *resource.Resource) float64 { return 0 }
func (adapterFakeEstimator) EnergyComputeCheckpoint(t *task.Copy, r *resource.Resource, a int, budget float64) int {
	return 0
}
func (adapterFakeEstimator) ResourceIdlePower(r *resource.Resource) float64 { return r.IdlePower }
func (adapterFakeEstimator) ResourceIdleEnergy(r *resource.Resource, seconds float64) float64 {
	return r.IdleEnergy(seconds)
}

func TestSolverFitnessRoundTripsThroughFakeSolver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-solver.sh")
	script := "#!/bin/sh\ncat > \"$2\" <<'EOF'\nm9.5\nEOF\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	runner, err := NewRunner(afero.NewOsFs(), path, dir)
	require.NoError(t, err)

	t1 := (&task.Task{ID: 1, Name: "T1", Checkpoints: 1, CompatibleResources: []int{0}}).Copy()
	resources := []*resource.Resource{{ID: 0, Name: "R0", IdlePower: 1}}
	solver := NewSolver(resources, adapterFakeEstimator{}, []*task.Copy{t1}, runner)

	chromosome := &mapping.Chromosome{Sequences: [][]task.ID{{1}}}
	fitness, ok := solver.Fitness(chromosome, false, nil)
	require.True(t, ok)
	assert.Equal(t, 9.5, fitness)
}
