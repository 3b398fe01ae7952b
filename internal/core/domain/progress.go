package domain

// Phase is a step of the compression pipeline.
type Phase string

// Compression phases, in execution order.
const (
	PhaseEmbedding   Phase = "embedding"
	PhaseDedup       Phase = "dedup"
	PhaseClustering  Phase = "clustering"
	PhaseSummarizing Phase = "summarizing"
	PhaseOverview    Phase = "overview"
	PhaseDone        Phase = "done"
)

// Phases returns the compression phases in order.
func Phases() []Phase {
	return []Phase{PhaseEmbedding, PhaseDedup, PhaseClustering, PhaseSummarizing, PhaseOverview, PhaseDone}
}

// Progress is a progress report from a long-running operation.
type Progress struct {
	// Phase is the current step.
	Phase Phase

	// Percent is overall completion in [0, 100].
	Percent int

	// Detail is a short human-readable status line.
	Detail string

	// Err is set when the operation failed during Phase.
	Err error
}

// ProgressFunc receives progress reports. It may be nil.
type ProgressFunc func(Progress)

// Report calls f when it is not nil.
func (f ProgressFunc) Report(p Progress) {
	if f != nil {
		f(p)
	}
}
