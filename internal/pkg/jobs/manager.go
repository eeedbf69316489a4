package jobs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a scraping job.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Metrics carries the counters a finished job reports.
type Metrics struct {
	Inserted       int `json:"inserted"`
	Updated        int `json:"updated"`
	Skipped        int `json:"skipped"`
	EventsInserted int `json:"eventsInserted"`
	Errors         int `json:"errors"`
}

// Job is one tracked scraping run.
type Job struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Status     Status     `json:"status"`
	Metrics    Metrics    `json:"metrics"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Manager tracks jobs in memory. State does not survive a restart; callers
// that need history read it from the database instead.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewManager() *Manager {
	return &Manager{jobs: make(map[string]*Job)}
}

// Create registers a pending job for url and returns its id.
func (m *Manager) Create(url string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.jobs[id] = &Job{
		ID:        id,
		URL:       url,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	return id
}

// Start marks the job running.
func (m *Manager) Start(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[id]; ok {
		now := time.Now().UTC()
		j.Status = StatusRunning
		j.StartedAt = &now
	}
}

// Finish marks the job done and records its counters.
func (m *Manager) Finish(id string, metrics Metrics) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[id]; ok {
		now := time.Now().UTC()
		j.Status = StatusDone
		j.Metrics = metrics
		j.FinishedAt = &now
	}
}

// Fail marks the job failed with the error message.
func (m *Manager) Fail(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[id]; ok {
		now := time.Now().UTC()
		j.Status = StatusFailed
		if err != nil {
			j.Error = err.Error()
		}
		j.FinishedAt = &now
	}
}

// Get returns a copy of the job, so callers cannot mutate tracked state.
func (m *Manager) Get(id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("unknown job %q", id)
	}
	return *j, nil
}

// List returns copies of all tracked jobs, newest first.
func (m *Manager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Clear drops every finished job and reports how many were removed.
func (m *Manager) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, j := range m.jobs {
		if j.Status == StatusDone || j.Status == StatusFailed {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}
