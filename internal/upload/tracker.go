package upload

import (
	"sync"
	"time"

	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

// Ticket identifies one status request for a tracked job. A response is applied
// only under the ticket it was requested with.
type Ticket struct {
	UploadID   string
	Seq        uint64
	Generation uint64
}

// Change describes an applied status update.
type Change struct {
	Job      models.UploadJob
	Previous models.UploadStatus
	Changed  bool
}

// BecameTerminal reports whether the update moved the job into a terminal status.
func (c Change) BecameTerminal() bool {
	return c.Changed && !c.Previous.Terminal() && c.Job.Status.Terminal()
}

type trackedJob struct {
	job          models.UploadJob
	generation   uint64
	lastSeq      uint64
	resubmitting bool
}

// Tracker is the in-memory table of upload id to last known job status.
// All methods are safe for concurrent use.
//
// Every status request gets a ticket carrying a sequence number and the job's
// generation. A response is applied only if its sequence is newer than the last
// applied one, its generation is current and the job is not terminal. Retrying a
// job starts a new generation, so responses requested before the retry are dropped.
type Tracker struct {
	mu    sync.Mutex
	seq   uint64
	jobs  map[string]*trackedJob
	order []string
}

func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]*trackedJob)}
}

// Track adds job, or replaces the tracked copy and starts a new generation.
func (t *Tracker) Track(job models.UploadJob) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.jobs[job.UploadID]; ok {
		e.job = job
		e.generation++
		e.resubmitting = false
		return
	}
	t.jobs[job.UploadID] = &trackedJob{job: job}
	t.order = append(t.order, job.UploadID)
}

// Get returns the tracked copy of a job.
func (t *Tracker) Get(uploadID string) (models.UploadJob, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[uploadID]
	if !ok {
		return models.UploadJob{}, false
	}
	return e.job, true
}

// List returns every tracked job in the order it was first tracked.
func (t *Tracker) List() []models.UploadJob {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.UploadJob, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.jobs[id].job)
	}
	return out
}

// Outstanding issues a ticket for every job still in a polling status. Jobs with
// a retry in flight are skipped until the resubmission resolves.
func (t *Tracker) Outstanding() []Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()

	var tickets []Ticket
	for _, id := range t.order {
		e := t.jobs[id]
		if e.resubmitting || !e.job.Status.Polling() {
			continue
		}
		tickets = append(tickets, t.issue(id, e))
	}
	return tickets
}

// Apply records a polled status if the ticket is still current.
func (t *Tracker) Apply(tk Ticket, status models.UploadStatus, message string) (Change, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[tk.UploadID]
	if !ok || e.resubmitting {
		return Change{}, false
	}
	return t.apply(e, tk, status, message)
}

// BeginRetry marks a Failed job Pending and starts a new generation. The
// returned ticket must be passed to FinishRetry.
func (t *Tracker) BeginRetry(uploadID string) (Ticket, models.UploadJob, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[uploadID]
	if !ok {
		return Ticket{}, models.UploadJob{}, ErrNotFound
	}
	if e.resubmitting || e.job.Status != models.UploadStatusFailed {
		return Ticket{}, e.job, ErrNotRetryable
	}

	e.generation++
	e.resubmitting = true
	e.job.Status = models.UploadStatusPending
	e.job.Message = ""
	e.job.UpdatedAt = time.Now().UTC()
	return t.issue(uploadID, e), e.job, nil
}

// FinishRetry applies the outcome of a resubmission and resumes polling.
func (t *Tracker) FinishRetry(tk Ticket, status models.UploadStatus, message string) (Change, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[tk.UploadID]
	if !ok || tk.Generation != e.generation {
		return Change{}, false
	}
	e.resubmitting = false
	return t.apply(e, tk, status, message)
}

func (t *Tracker) issue(id string, e *trackedJob) Ticket {
	t.seq++
	return Ticket{UploadID: id, Seq: t.seq, Generation: e.generation}
}

func (t *Tracker) apply(e *trackedJob, tk Ticket, status models.UploadStatus, message string) (Change, bool) {
	if tk.Generation != e.generation || tk.Seq <= e.lastSeq || e.job.Status.Terminal() {
		return Change{}, false
	}
	e.lastSeq = tk.Seq

	prev := e.job.Status
	changed := prev != status || e.job.Message != message
	e.job.Status = status
	e.job.Message = message
	if changed {
		e.job.UpdatedAt = time.Now().UTC()
	}
	return Change{Job: e.job, Previous: prev, Changed: changed}, true
}
