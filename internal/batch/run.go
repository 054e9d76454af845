package batch

import (
	"sync"
	"time"

	"studio/internal/domain"
)

// Report summarises a batch run. FinishedAt is zero while it is active.
type Report struct {
	RunID      string         `json:"run_id"`
	Scene      domain.SceneID `json:"scene"`
	Selected   []string       `json:"selected"`
	Skipped    []string       `json:"skipped"`
	Done       []string       `json:"done"`
	Failed     []string       `json:"failed"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
}

// Finished reports whether every group resolved.
func (r Report) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Run is one batch invocation.
type Run struct {
	ID          string
	Scene       domain.Scene
	Concurrency int

	selected []string
	done     chan struct{}

	mu     sync.Mutex
	report Report
}

func newRun(id string, scene domain.Scene, concurrency int, selected []string, started time.Time) *Run {
	return &Run{
		ID:          id,
		Scene:       scene,
		Concurrency: concurrency,
		selected:    selected,
		done:        make(chan struct{}),
		report: Report{
			RunID:     id,
			Scene:     scene.ID,
			Selected:  append([]string(nil), selected...),
			Skipped:   []string{},
			Done:      []string{},
			Failed:    []string{},
			StartedAt: started,
		},
	}
}

// Done is closed once the run finished and the batch flag is cleared.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Report returns a copy of the current report.
func (r *Run) Report() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.report
	out.Selected = append([]string(nil), r.report.Selected...)
	out.Skipped = append([]string{}, r.report.Skipped...)
	out.Done = append([]string{}, r.report.Done...)
	out.Failed = append([]string{}, r.report.Failed...)
	return out
}

func (r *Run) skip(id string) {
	r.mu.Lock()
	r.report.Skipped = append(r.report.Skipped, id)
	r.mu.Unlock()
}

func (r *Run) succeed(id string) {
	r.mu.Lock()
	r.report.Done = append(r.report.Done, id)
	r.mu.Unlock()
}

func (r *Run) fail(id string) {
	r.mu.Lock()
	r.report.Failed = append(r.report.Failed, id)
	r.mu.Unlock()
}

func (r *Run) finish(at time.Time) Report {
	r.mu.Lock()
	r.report.FinishedAt = at
	r.mu.Unlock()
	return r.Report()
}
