package builder

import "sync"

// Stage names the three build pipeline stages from the core design,
// reported to callers that want to render build progress.
type Stage int

// The three build stages, in pipeline order.
const (
	StageBuildingTaskList Stage = iota
	StageBuildingOperations
	StageBuildingPackage
)

func (s Stage) String() string {
	switch s {
	case StageBuildingTaskList:
		return "BuildingTaskList"
	case StageBuildingOperations:
		return "BuildingOperations"
	case StageBuildingPackage:
		return "BuildingPackage"
	default:
		return "Unknown"
	}
}

// WorkerProgress is one worker's current task and byte counters,
// grounded on original_source's BuildWorkerProgress: a worker reports
// the task it is processing and how far through it it is, rather than
// a single package-wide counter, so a caller can render per-worker
// activity during BuildingOperations.
type WorkerProgress struct {
	TaskName       string
	ProcessedBytes uint64
	ProcessBytes   uint64
}

// Progress is the build-wide progress snapshot: current stage plus one
// WorkerProgress per encoding worker, guarded by a single mutex the way
// swupd's fullfile/delta workers report into a shared FullfilesInfo
// slice rather than contending on a single counter.
type Progress struct {
	mu      sync.Mutex
	Stage   Stage
	Workers []WorkerProgress
}

// NewProgress allocates a Progress with numWorkers worker slots.
func NewProgress(numWorkers int) *Progress {
	return &Progress{Workers: make([]WorkerProgress, numWorkers)}
}

// SetStage records the pipeline's current stage.
func (p *Progress) SetStage(s Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Stage = s
}

// UpdateWorker overwrites the state of one worker slot.
func (p *Progress) UpdateWorker(idx int, wp WorkerProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Workers[idx] = wp
}

// Snapshot returns a copy of the current stage and worker states, safe
// for a caller to read concurrently with further updates.
func (p *Progress) Snapshot() (Stage, []WorkerProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	workers := make([]WorkerProgress, len(p.Workers))
	copy(workers, p.Workers)
	return p.Stage, workers
}
