package migration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aw32/hetsched/pkg/resource"
)

// writeFakeSolver drops a tiny shell script standing in for the real LP
// solver: it writes a canned solution to its second argument, ignoring the
// first (the .lp file), mirroring the real binary's `solver lpfile outfile`
// calling convention (spec §4.7).
func writeFakeSolver(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-solver.sh")
	script := "#!/bin/sh\ncat > \"$2\" <<'EOF'\n" + body + "EOF\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestRunnerSolveParsesSolution(t *testing.T) {
	dir := t.TempDir()
	solver := writeFakeSolver(t, dir, "m42.5\nt_0_a 0.6\nrm_0_a 0\nfm_0_a 42.5\n")
	runner, err := NewRunner(afero.NewOsFs(), solver, dir)
	require.NoError(t, err)

	in := LPInput{
		Tasks:        []TaskSpec{{Merge: true, ConstA: 1, DynA: 1}},
		Resources:    []*resource.Resource{{ID: 0, Name: "R0", IdlePower: 1}},
		MachineOrder: [][]Entry{{{TaskIndex: 0, Part: 'a'}}},
		M:            10,
	}
	sol, err := runner.Solve(context.Background(), in, 123456789)
	require.NoError(t, err)
	assert.False(t, sol.Infeasible)
	assert.Equal(t, 42.5, sol.Fitness)
	assert.Equal(t, 0.6, sol.Ratio["0_a"])

	_, statErr := os.Stat(filepath.Join(dir, "123456789.lp"))
	assert.NoError(t, statErr)
}

func TestRunnerSolveInfeasibleOnExitStatusAboveOne(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-solver-fail.sh")
	script := "#!/bin/sh\ncat > \"$2\" <<'EOF'\nm0\nEOF\nexit 2\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	runner, err := NewRunner(afero.NewOsFs(), path, dir)
	require.NoError(t, err)

	in := LPInput{
		Tasks:        []TaskSpec{{Merge: true, ConstA: 1, DynA: 1}},
		Resources:    []*resource.Resource{{ID: 0, Name: "R0", IdlePower: 1}},
		MachineOrder: [][]Entry{{{TaskIndex: 0, Part: 'a'}}},
		M:            10,
	}
	sol, err := runner.Solve(context.Background(), in, 222)
	require.NoError(t, err)
	assert.True(t, sol.Infeasible)
}

func TestNewRunnerRequiresSolverPath(t *testing.T) {
	_, err := NewRunner(afero.NewOsFs(), "", t.TempDir())
	assert.Error(t, err)
}
