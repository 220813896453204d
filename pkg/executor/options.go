package executor

// Options controls how Update drives a plan through a workspace.
type Options struct {
	// Check runs a full integrity pass (pkg/integrity) over the
	// workspace before accepting Stable, demoting to Corrupted on any
	// mismatch instead of trusting the per-operation hashes alone.
	Check bool
}
