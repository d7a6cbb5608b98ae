package estimator

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
}

func TestLoadTaskTableMergesTimeAndEnergy(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	csv := "header1\nheader2\n1;2;3;4;5;6;7;\n3;4;5;6;7;8;9;\n"
	writeFile(t, fs, "/data/ms_markov(200)@IntelXeon_time.csv", csv)
	writeFile(t, fs, "/data/ms_markov(200)@IntelXeon_energy.csv", csv)
	writeFile(t, fs, "/data/ignored.txt", "not an ms file")

	table, err := LoadTaskTable(fs, "/data")
	require.NoError(t, err)

	sizemap, ok := table["markov"]
	require.True(t, ok)
	resmap, ok := sizemap[200]
	require.True(t, ok)
	sample, ok := resmap["IntelXeon"]
	require.True(t, ok)

	// average of (1..7) and (3..9) columnwise is 2,3,4,5,6,7,8
	assert.Equal(t, 2.0, sample.ETotal)
	assert.Equal(t, 3.0, sample.TTotal)
	assert.Equal(t, 4.0, sample.ETask)
	assert.Equal(t, 6.0, sample.TInit)
	assert.Equal(t, 7.0, sample.TComp)
	assert.Equal(t, 8.0, sample.TFini)
}

func TestLoadTaskTableShortRowError(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/ms_foo(1)@IntelXeon_time.csv", "h1\nh2\n1;2;3;\n")
	_, err := LoadTaskTable(fs, "/data")
	assert.Error(t, err)
}

func TestLoadIdlePower(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/idle.json", `{
		"cpu_power_avg": [30.5],
		"gpu_power_avg": [120.0],
		"fpga_power_avg": [15.2],
		"all_power_avg": [165.7]
	}`)
	out, err := LoadIdlePower(fs, "/idle.json")
	require.NoError(t, err)
	assert.Equal(t, 30.5, out["cpu"])
	assert.Equal(t, 120.0, out["gpu"])
	assert.Equal(t, 15.2, out["fpga"])
	assert.Equal(t, 165.7, out["all"])
}

func TestLoadIdlePowerMissingKey(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/idle.json", `{"cpu_power_avg": [30.5]}`)
	_, err := LoadIdlePower(fs, "/idle.json")
	assert.Error(t, err)
}

func TestResourceKindOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "cpu", ResourceKindOf("IntelXeon"))
	assert.Equal(t, "gpu", ResourceKindOf("NvidiaTesla"))
	assert.Equal(t, "fpga", ResourceKindOf("MaxelerVectis"))
	assert.Equal(t, "", ResourceKindOf("Unknown"))
}
