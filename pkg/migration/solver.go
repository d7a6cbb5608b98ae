package migration

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/aw32/hetsched/errext"
	"github.com/aw32/hetsched/errext/exitcodes"
)

// Solution is the per-part ready/finish data and overall objective value
// Runner.Solve parses out of the solver's output file (spec §4.7 parsing
// rules).
type Solution struct {
	Fitness   float64
	Infeasible bool
	Ratio     map[string]float64 // "<tix>_a" / "<tix>_b" -> fraction
	ReadyM    map[string]float64 // "<tix>_a" / "<tix>_b" -> rm
	ReadyD    map[string]float64
	FinishM   map[string]float64
	FinishD   map[string]float64
}

// Runner forks solverPath on the emitted LP file, per
// original_source/src/CExternalHook.cpp's fork/exec/wait shape, translated
// to os/exec.CommandContext so `interrupt` can cancel it between candidates.
type Runner struct {
	Fs         afero.Fs
	SolverPath string
	Destination string
}

// NewRunner validates that solverPath is configured and returns a Runner.
// A missing solverPath is an init-time configuration failure (spec §7
// "External solver failure ... solver missing ⇒ whole mapper fails init").
func NewRunner(fs afero.Fs, solverPath, destination string) (*Runner, error) {
	if solverPath == "" {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(fmt.Errorf("migration: geneticmig_solver not configured"), "set geneticmig_solver to the LP solver binary path"),
			exitcodes.ExternalSolverError)
	}
	if destination == "" {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(fmt.Errorf("migration: lp_destination not configured"), "set lp_destination to a writable directory"),
			exitcodes.InvalidConfig)
	}
	return &Runner{Fs: fs, SolverPath: solverPath, Destination: destination}, nil
}

// Solve writes in as an LP file under r.Destination, invokes the solver on
// it, and parses the resulting .out file. A solver exit status greater than
// 1 marks the candidate infeasible (spec §4.7). Honors ctx cancellation
// (driven by the caller's interrupt flag) between the write and the wait.
func (r *Runner) Solve(ctx context.Context, in LPInput, nowNanos int64) (*Solution, error) {
	base := strconv.FormatInt(nowNanos, 10)
	lpPath := filepath.Join(r.Destination, base+".lp")
	outPath := filepath.Join(r.Destination, base+".out")

	f, err := r.Fs.Create(lpPath)
	if err != nil {
		return nil, errext.WithHint(err, fmt.Sprintf("migration: cannot create %q", lpPath))
	}
	writeErr := GenerateLP(f, in)
	closeErr := f.Close()
	if writeErr != nil {
		return nil, errext.WithHint(writeErr, "migration: failed writing LP file")
	}
	if closeErr != nil {
		return nil, errext.WithHint(closeErr, "migration: failed closing LP file")
	}

	cmd := exec.CommandContext(ctx, r.SolverPath, lpPath, outPath)
	status := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if ok := errAsExitError(err, &exitErr); ok {
			status = exitErr.ExitCode()
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		} else {
			return nil, errext.WithExitCodeIfNone(errext.WithHint(err, "migration: failed to run solver"), exitcodes.ExternalSolverError)
		}
	}

	sol, err := parseSolution(r.Fs, outPath)
	if err != nil {
		return nil, err
	}
	if status > 1 {
		sol.Infeasible = true
		sol.Fitness = math.MaxFloat64
	}
	return sol, nil
}

func errAsExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

// parseSolution implements the line-prefix parser of
// CScheduleAlgorithmGeneticMigSolverLP.cpp's solve(): 'm...' is the
// objective value, 't_<tix>_{a|b} ...' is a checkpoint ratio, 'r{m|d}_...'
// and 'f{m|d}_...' are per-part ready/finish times. 'x' and 'b' lines are
// solver-internal and ignored.
func parseSolution(fs afero.Fs, path string) (*Solution, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errext.WithHint(err, fmt.Sprintf("migration: cannot open solver output %q", path))
	}
	defer f.Close()

	sol := &Solution{
		Ratio:   map[string]float64{},
		ReadyM:  map[string]float64{},
		ReadyD:  map[string]float64{},
		FinishM: map[string]float64{},
		FinishD: map[string]float64{},
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Value of objective function:"):
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "Value of objective function:")), 64)
			if err == nil {
				sol.Fitness = v
			}
		case line[0] == 'm':
			if v, err := strconv.ParseFloat(strings.TrimSpace(line[1:]), 64); err == nil {
				sol.Fitness = v
			}
		case line[0] == 't':
			key, v, ok := parseKeyValue(line)
			if ok {
				sol.Ratio[key] = v
			}
		case strings.HasPrefix(line, "rm_"):
			key, v, ok := parseKeyValue(line)
			if ok {
				sol.ReadyM[key] = v
			}
		case strings.HasPrefix(line, "rd_"):
			key, v, ok := parseKeyValue(line)
			if ok {
				sol.ReadyD[key] = v
			}
		case strings.HasPrefix(line, "fm_"):
			key, v, ok := parseKeyValue(line)
			if ok {
				sol.FinishM[key] = v
			}
		case strings.HasPrefix(line, "fd_"):
			key, v, ok := parseKeyValue(line)
			if ok {
				sol.FinishD[key] = v
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errext.WithHint(err, "migration: failed reading solver output")
	}
	return sol, nil
}

// parseKeyValue splits a "<name>_<tix>_<part> <value>" line into
// ("<tix>_<part>", value).
func parseKeyValue(line string) (key string, value float64, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", 0, false
	}
	nameParts := strings.SplitN(fields[0], "_", 2)
	if len(nameParts) != 2 {
		return "", 0, false
	}
	v, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return "", 0, false
	}
	return nameParts[1], v, true
}

// Now is a seam over time.Now for testability and to keep Runner.Solve itself
// free of the time package's global clock in hot paths.
var Now = func() int64 { return time.Now().UnixNano() }
