package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidResource(t *testing.T) {
	t.Parallel()
	tsk := &Task{CompatibleResources: []int{0, 2}}
	assert.True(t, tsk.ValidResource(0))
	assert.True(t, tsk.ValidResource(2))
	assert.False(t, tsk.ValidResource(1))
}

func TestCopySharesBackingSlices(t *testing.T) {
	t.Parallel()
	tsk := &Task{
		ID:                  1,
		Checkpoints:         10,
		Progress:            3,
		CompatibleResources: []int{0, 1},
		Attributes:          map[string]interface{}{"k": "v"},
	}
	cp := tsk.Copy()
	require.NotNil(t, cp)
	assert.Equal(t, tsk, cp.Original())
	assert.Equal(t, 7, cp.Remaining())
	assert.True(t, cp.ValidResource(1))
	assert.False(t, cp.ValidResource(2))

	// mutating the live task's progress must not retroactively change the
	// snapshot already taken.
	tsk.Progress = 9
	assert.Equal(t, 3, cp.Progress)

	// the backing slice is the same array, not a duplicate.
	tsk.CompatibleResources[0] = 5
	assert.Equal(t, 5, cp.CompatibleResources[0])
}

func TestValidatePredecessorSuccessorConsistency(t *testing.T) {
	t.Parallel()

	consistent := map[ID]*Task{
		1: {ID: 1, Successors: []ID{2}},
		2: {ID: 2, Predecessors: []ID{1}},
	}
	_, _, ok := ValidatePredecessorSuccessorConsistency(consistent)
	assert.True(t, ok)

	inconsistent := map[ID]*Task{
		1: {ID: 1, Successors: []ID{}},
		2: {ID: 2, Predecessors: []ID{1}},
	}
	a, b, ok := ValidatePredecessorSuccessorConsistency(inconsistent)
	assert.False(t, ok)
	assert.Equal(t, ID(1), a)
	assert.Equal(t, ID(2), b)
}
