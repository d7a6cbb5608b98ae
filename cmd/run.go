package cmd

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aw32/hetsched/errext"
	"github.com/aw32/hetsched/errext/exitcodes"
	"github.com/aw32/hetsched/internal/config"
	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/mapping"
	"github.com/aw32/hetsched/pkg/migration"
	"github.com/aw32/hetsched/pkg/registry"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/task"
)

// resourceDoc is the JSON wire shape of one entry in the --resources
// snapshot file: a dense, 0-indexed array whose position is the resource's
// ID, following schedule.Doc()'s own per-resource array convention.
type resourceDoc struct {
	Name      string  `json:"name"`
	IdlePower float64 `json:"idle_power"`
}

// taskDoc is the JSON wire shape of one entry in the --tasks snapshot file.
type taskDoc struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	Size                int64  `json:"size"`
	Checkpoints         int    `json:"checkpoints"`
	Progress            int    `json:"progress"`
	Predecessors        []int  `json:"predecessors"`
	Successors          []int  `json:"successors"`
	CompatibleResources []int  `json:"compatible_resources"`
}

func loadResources(fs afero.Fs, path string, cfg *config.Config) ([]*resource.Resource, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(err, "reading --resources file "+path), exitcodes.InvalidTaskDefinition)
	}
	var docs []resourceDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(err, path+" is not a valid resource snapshot"), exitcodes.InvalidTaskDefinition)
	}

	var idle map[string]float64
	if cfg.ResourceLoader == config.ResourceLoaderMS {
		idle, err = estimator.LoadIdlePower(fs, cfg.ResourceLoaderMSIdle)
		if err != nil {
			return nil, err
		}
	}

	resources := make([]*resource.Resource, len(docs))
	for i, d := range docs {
		r := &resource.Resource{ID: i, Name: d.Name, IdlePower: d.IdlePower}
		if idle != nil {
			if kind := estimator.ResourceKindOf(d.Name); kind != "" {
				if w, ok := idle[kind]; ok {
					r.IdlePower = w
				}
			}
		}
		resources[i] = r
	}
	return resources, nil
}

func loadTasks(fs afero.Fs, path string, cfg *config.Config) ([]*task.Copy, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(err, "reading --tasks file "+path), exitcodes.InvalidTaskDefinition)
	}
	var docs []taskDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(err, path+" is not a valid task snapshot"), exitcodes.InvalidTaskDefinition)
	}

	var table estimator.TaskTable
	if cfg.TaskLoader == config.TaskLoaderMS {
		table, err = estimator.LoadTaskTable(fs, cfg.TaskLoaderMSPath)
		if err != nil {
			return nil, err
		}
	}

	tasks := make([]*task.Copy, len(docs))
	for i, d := range docs {
		t := &task.Task{
			ID:                  task.ID(d.ID),
			Name:                d.Name,
			Size:                d.Size,
			Checkpoints:         d.Checkpoints,
			Progress:            d.Progress,
			State:               task.StatePre,
			Predecessors:        idSlice(d.Predecessors),
			Successors:          idSlice(d.Successors),
			CompatibleResources: d.CompatibleResources,
		}
		if table != nil {
			if sizemap, ok := table[d.Name]; ok {
				if row, ok := sizemap[int(d.Size)]; ok {
					t.Attributes = map[string]interface{}{estimator.AttributesKey: row}
				}
			}
		}
		tasks[i] = t.Copy()
	}
	return tasks, nil
}

func idSlice(ids []int) []task.ID {
	out := make([]task.ID, len(ids))
	for i, v := range ids {
		out[i] = task.ID(v)
	}
	return out
}

func buildSolver(fs afero.Fs, cfg *config.Config, resources []*resource.Resource, est estimator.Estimator, tasks []*task.Copy) (mapping.MILPSolver, error) {
	if cfg.Algorithms.GeneticMigSolver == "" {
		return nil, nil
	}
	runner, err := migration.NewRunner(fs, cfg.Algorithms.GeneticMigSolver, cfg.Algorithms.LPDestination)
	if err != nil {
		return nil, err
	}
	return migration.NewSolver(resources, est, tasks, runner), nil
}

func runCmdFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringP("algorithm", "a", "", "mapping algorithm name, see 'schedulerd algorithms'")
	flags.String("tasks", "", "task snapshot JSON file")
	flags.String("resources", "", "resource snapshot JSON file")
	flags.StringP("out", "o", "", "write the resulting schedule JSON here instead of stdout")
	return flags
}

func getRunCmd(gs *globalState) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "compute a schedule for one task/resource snapshot",
		Long: "run loads a config file plus a task and resource snapshot, invokes the\n" +
			"named mapping algorithm once and prints the resulting schedule as JSON.",
		Args: exactArgsWithMsg(0, "run takes no positional arguments, use --tasks/--resources"),
		RunE: func(cmd *cobra.Command, args []string) error {
			algorithm, err := cmd.Flags().GetString("algorithm")
			if err != nil {
				return err
			}
			tasksPath, err := cmd.Flags().GetString("tasks")
			if err != nil {
				return err
			}
			resourcesPath, err := cmd.Flags().GetString("resources")
			if err != nil {
				return err
			}
			outPath, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			if algorithm == "" || tasksPath == "" || resourcesPath == "" {
				return errext.WithExitCodeIfNone(
					errext.WithHint(fmt.Errorf("missing required flag"),
						"--algorithm, --tasks and --resources are all required"),
					exitcodes.InvalidConfig)
			}

			cfg, err := config.Load(gs.fs, gs.flags.configFilePath)
			if err != nil {
				return err
			}

			resources, err := loadResources(gs.fs, resourcesPath, cfg)
			if err != nil {
				return err
			}
			tasks, err := loadTasks(gs.fs, tasksPath, cfg)
			if err != nil {
				return err
			}

			est := estimator.NewLinear()

			ctor, err := registry.Lookup(algorithm)
			if err != nil {
				return err
			}
			solver, err := buildSolver(gs.fs, cfg, resources, est, tasks)
			if err != nil {
				return err
			}
			algo, err := ctor(resources, est, cfg.Algorithms, solver)
			if err != nil {
				return err
			}

			var interrupt atomic.Bool
			sched := algo.Compute(tasks, nil, &interrupt, true)

			out, err := json.MarshalIndent(sched.Doc(), "", "  ")
			if err != nil {
				return errext.WithExitCodeIfNone(err, exitcodes.GenericError)
			}
			out = append(out, '\n')

			if outPath == "" {
				fprintf(gs.stdOut, "%s", out)
				return nil
			}
			if err := afero.WriteFile(gs.fs, outPath, out, 0o644); err != nil {
				return errext.WithExitCodeIfNone(
					errext.WithHint(err, "writing --out file "+outPath), exitcodes.GenericError)
			}
			return nil
		},
	}
	runCmd.Flags().AddFlagSet(runCmdFlagSet())
	return runCmd
}
