package schedule

// jsonDoc mirrors the schedule introspection format of spec §6 "Schedule
// JSON output".
type jsonDoc struct {
	ID              int64         `json:"id"`
	ComputeStart    int64         `json:"compute_start"`
	ComputeStop     int64         `json:"compute_stop"`
	ComputeDuration int64         `json:"compute_duration"`
	Duration        int64         `json:"duration"`
	ActiveTasks     int           `json:"active_tasks"`
	StaticEnergy    float64       `json:"static_energy"`
	DynamicEnergy   float64       `json:"dynamic_energy"`
	TotalEnergy     float64       `json:"total_energy"`
	Tasks           [][]jsonEntry `json:"tasks"`
}

type jsonEntry struct {
	ID               task0ID `json:"id"`
	Part             int     `json:"part"`
	StartProgress    int     `json:"start_progress"`
	StopProgress     int     `json:"stop_progress"`
	CurrentProgress  int     `json:"current_progress"`
	CurrentState     string  `json:"current_state"`
	DurationTotal    int64   `json:"duration_total"`
	TimeReady        int64   `json:"time_ready"`
	TimeFinish       int64   `json:"time_finish"`
	DurationInit     int64   `json:"duration_init"`
	DurationCompute  int64   `json:"duration_compute"`
	DurationFini     int64   `json:"duration_fini"`
	DurationBreak    int64   `json:"duration_break"`
	Energy           float64 `json:"energy"`
}

// task0ID avoids pulling task.ID's String() method (if any) into the JSON
// encoding; a plain int keeps the wire format stable.
type task0ID int

// Doc converts the Schedule into the introspection document shape of spec
// §6, nesting per-resource entry lists. CurrentProgress/CurrentState are
// read from each entry's live task via TaskCopy.Original(); if the copy
// carries no back-reference (e.g. in tests), the snapshotted values are
// used instead.
func (s *Schedule) Doc() interface{} {
	doc := jsonDoc{
		ID:              s.ID,
		ComputeStart:    s.ComputeStart,
		ComputeStop:     s.ComputeStop,
		ComputeDuration: s.ComputeStop - s.ComputeStart,
		Duration:        s.Makespan,
		ActiveTasks:     s.ActiveTasks,
		StaticEnergy:    s.StaticEnergy,
		DynamicEnergy:   s.DynamicEnergy,
		TotalEnergy:     s.TotalEnergy,
	}
	doc.Tasks = make([][]jsonEntry, len(s.TasksByResource))
	for r, queue := range s.TasksByResource {
		entries := make([]jsonEntry, 0, len(queue))
		for _, e := range queue {
			progress := e.TaskCopy.Progress
			state := e.TaskCopy.State.String()
			if orig := e.TaskCopy.Original(); orig != nil {
				progress = orig.Progress
				state = orig.State.String()
			}
			entries = append(entries, jsonEntry{
				ID:              task0ID(e.TaskID),
				Part:            e.PartNumber,
				StartProgress:   e.StartProgress,
				StopProgress:    e.StopProgress,
				CurrentProgress: progress,
				CurrentState:    state,
				DurationTotal:   e.DurTotal,
				TimeReady:       e.TimeReady,
				TimeFinish:      e.TimeFinish,
				DurationInit:    e.DurInit,
				DurationCompute: e.DurCompute,
				DurationFini:    e.DurFini,
				DurationBreak:   e.DurBreak,
				Energy:          e.Energy,
			})
		}
		doc.Tasks[r] = entries
	}
	return doc
}
