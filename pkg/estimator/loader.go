package estimator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/aw32/hetsched/errext"
	"github.com/aw32/hetsched/errext/exitcodes"
)

// TaskTable is the nested lookup CSV task files are loaded into:
// name -> size -> resource name -> Sample. cmd's loadTasks copies the
// innermost map into a task's Attributes[AttributesKey] (spec §6
// "taskloaderms").
type TaskTable map[string]map[int]Table

// msFileName matches "ms_<name>(<size>)@<resource>_<time|energy>.csv",
// mirroring CTaskLoaderMS's sscanf pattern.
var msFileName = regexp.MustCompile(`^ms_([^(]+)\((\d+)\)@([^_]+)_(time|energy)\.csv$`)

// LoadTaskTable walks dir (via fs) for "ms_*" CSV files and averages each
// file's data rows into a Sample, merging the "time" and "energy" files for
// the same (name, size, resource) triple: energy files contribute ETotal,
// TTotal, ETask; time files contribute TInit, TComp, TFini.
func LoadTaskTable(fs afero.Fs, dir string) (TaskTable, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(err, fmt.Sprintf("taskloaderms: cannot read directory %q", dir)),
			exitcodes.InvalidConfig)
	}
	table := TaskTable{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := msFileName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		name, sizeStr, resourceName, kind := m[1], m[2], m[3], m[4]
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			continue
		}
		avg, err := loadTaskInfoFile(fs, dir+"/"+entry.Name())
		if err != nil {
			return nil, err
		}
		sizemap, ok := table[name]
		if !ok {
			sizemap = map[int]Table{}
			table[name] = sizemap
		}
		resmap, ok := sizemap[size]
		if !ok {
			resmap = Table{}
			sizemap[size] = resmap
		}
		s := resmap[resourceName]
		switch kind {
		case "energy":
			s.ETotal, s.TTotal, s.ETask = avg[0], avg[1], avg[2]
		case "time":
			s.TInit, s.TComp, s.TFini = avg[4], avg[5], avg[6]
		}
		resmap[resourceName] = s
	}
	return table, nil
}

// loadTaskInfoFile reads one CSV file, skipping its two header lines, and
// returns the column-wise average of the remaining "a;b;c;d;e;f;g;" rows.
func loadTaskInfoFile(fs afero.Fs, path string) ([7]float64, error) {
	var result [7]float64
	f, err := fs.Open(path)
	if err != nil {
		return result, errext.WithHint(err, fmt.Sprintf("taskloaderms: cannot open %q", path))
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for i := 0; i < 2 && scanner.Scan(); i++ {
		// skip header lines
	}

	var sums [7]float64
	var rows int
	for scanner.Scan() {
		line := strings.TrimRight(strings.TrimSpace(scanner.Text()), ";")
		if line == "" {
			continue
		}
		fields := strings.Split(line, ";")
		if len(fields) < 7 {
			return result, errext.WithExitCodeIfNone(
				fmt.Errorf("taskloaderms: %s: expected 7 fields, got %d", path, len(fields)),
				exitcodes.InvalidTaskDefinition)
		}
		for i := 0; i < 7; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
			if err != nil {
				return result, errext.WithExitCodeIfNone(
					fmt.Errorf("taskloaderms: %s: invalid value %q in column %d", path, fields[i], i),
					exitcodes.InvalidTaskDefinition)
			}
			sums[i] += v
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return result, errext.WithHint(err, fmt.Sprintf("taskloaderms: error reading %q", path))
	}
	if rows == 0 {
		return result, errext.WithExitCodeIfNone(
			fmt.Errorf("taskloaderms: %s: no data rows", path),
			exitcodes.InvalidTaskDefinition)
	}
	for i := 0; i < 7; i++ {
		result[i] = sums[i] / float64(rows)
	}
	return result, nil
}

// idlePower is the JSON shape of the resourceloaderms_idle file: each key
// maps to an array whose first element is the average idle power in watts.
type idlePower struct {
	CPU  []float64 `json:"cpu_power_avg"`
	GPU  []float64 `json:"gpu_power_avg"`
	FPGA []float64 `json:"fpga_power_avg"`
	All  []float64 `json:"all_power_avg"`
}

// ResourceKindOf maps a resource name to the idle-power kind it draws from,
// matching CResourceLoaderMS.getInfo's name comparisons.
func ResourceKindOf(resourceName string) string {
	switch resourceName {
	case "IntelXeon":
		return "cpu"
	case "NvidiaTesla":
		return "gpu"
	case "MaxelerVectis":
		return "fpga"
	default:
		return ""
	}
}

// LoadIdlePower parses path (via fs) into a kind -> watts map with keys
// "cpu", "gpu", "fpga", "all".
func LoadIdlePower(fs afero.Fs, path string) (map[string]float64, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(err, fmt.Sprintf("resourceloaderms: cannot read %q", path)),
			exitcodes.InvalidConfig)
	}
	var raw idlePower
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(err, fmt.Sprintf("resourceloaderms: %q is not valid JSON", path)),
			exitcodes.InvalidConfig)
	}
	out := map[string]float64{}
	fields := []struct {
		key string
		arr []float64
	}{
		{"cpu", raw.CPU},
		{"gpu", raw.GPU},
		{"fpga", raw.FPGA},
		{"all", raw.All},
	}
	for _, f := range fields {
		if len(f.arr) == 0 {
			return nil, errext.WithExitCodeIfNone(
				fmt.Errorf("resourceloaderms: %q: %s_power_avg missing or empty", path, f.key),
				exitcodes.InvalidConfig)
		}
		out[f.key] = f.arr[0]
	}
	return out, nil
}
