package executor

import "sync"

// Stage names the coarse phase of an update run, mirroring
// pkg/builder's Stage enum for the same "one small enum, stringable"
// shape.
type Stage int

// The stages an update run passes through, per spec.md's prologue /
// streaming-pass / commit pipeline.
const (
	StagePrologue Stage = iota
	StageStreaming
	StageCommit
)

func (s Stage) String() string {
	switch s {
	case StagePrologue:
		return "Prologue"
	case StageStreaming:
		return "Streaming"
	case StageCommit:
		return "Commit"
	default:
		return "Unknown"
	}
}

// UpdateState is the progress snapshot published after every operation
// boundary: a byte histogram across the four axes the executor moves
// data through, plus which package/operation is currently in flight.
// Grounded on the same progress.rs reference as pkg/builder.Progress.
type UpdateState struct {
	Stage Stage

	DownloadedBytes    uint64
	AppliedInputBytes  uint64
	AppliedOutputBytes uint64
	CheckedBytes       uint64

	TotalDownloadBytes    uint64
	TotalApplyInputBytes  uint64
	TotalApplyOutputBytes uint64
	TotalCheckBytes       uint64

	CurrentPackage string
	CurrentOpIndex int

	// Failures accumulates non-fatal Check mismatches; an update that
	// finishes with a non-empty Failures demotes the workspace to
	// Corrupted instead of Stable.
	Failures []string
}

// Progress is the mutex-guarded holder of the latest UpdateState,
// safe to read from a UI goroutine while the pipeline is writing it.
type Progress struct {
	mu    sync.Mutex
	state UpdateState
}

// NewProgress returns a Progress with the zero UpdateState.
func NewProgress() *Progress {
	return &Progress{}
}

// Set overwrites the published state wholesale (used to reset it at the
// start of an update).
func (p *Progress) Set(state UpdateState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

// Update applies fn to the current state while holding the lock, so
// callers can do "add N bytes to DownloadedBytes" without a race.
func (p *Progress) Update(fn func(*UpdateState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
}

// Snapshot returns a copy of the current state.
func (p *Progress) Snapshot() UpdateState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
