package handlers

import (
	"context"
	"sync"
	"time"
)

// eventChannelBuffer is the per-listener event buffer; slow listeners drop
// events instead of blocking the recognition worker.
const eventChannelBuffer = 64

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// RecognitionJob represents one run of the recognition loop for a class.
type RecognitionJob struct {
	EventBroadcaster

	ID          string     `json:"id"`
	ClassID     int64      `json:"class_id"`
	Status      JobStatus  `json:"status"`
	Frames      int        `json:"frames"`
	Recognized  int        `json:"recognized"`
	Recorded    int        `json:"recorded"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GetStatus returns the current job status (implements SSEJob).
func (j *RecognitionJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetStatus transitions the job and stamps the completion time on terminal
// states.
func (j *RecognitionJob) SetStatus(status JobStatus, errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Error = errMsg
	if status == JobStatusFailed || status == JobStatusCancelled {
		now := time.Now()
		j.CompletedAt = &now
	}
}

// Count updates the job counters.
func (j *RecognitionJob) Count(frames, recognized, recorded int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Frames += frames
	j.Recognized += recognized
	j.Recorded += recorded
}

// Snapshot returns a copy safe for JSON encoding.
func (j *RecognitionJob) Snapshot() RecognitionJob {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return RecognitionJob{
		ID: j.ID, ClassID: j.ClassID, Status: j.Status,
		Frames: j.Frames, Recognized: j.Recognized, Recorded: j.Recorded,
		Error: j.Error, StartedAt: j.StartedAt, CompletedAt: j.CompletedAt,
	}
}

// Cancel cancels the recognition job.
func (j *RecognitionJob) Cancel() {
	j.EventBroadcaster.Cancel()
	j.SetStatus(JobStatusCancelled, "")
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, eventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	if b.cancel != nil {
		b.cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async recognition jobs.
type JobManager struct {
	jobs map[string]*RecognitionJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*RecognitionJob),
	}
}

// CreateJob creates a new recognition job bound to a cancel function.
func (m *JobManager) CreateJob(id string, classID int64, cancel context.CancelFunc) *RecognitionJob {
	job := &RecognitionJob{
		ID:        id,
		ClassID:   classID,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}
	job.cancel = cancel

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *RecognitionJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ActiveJob returns the job that is currently pending or running, if any.
func (m *JobManager) ActiveJob() *RecognitionJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, job := range m.jobs {
		status := job.GetStatus()
		if status == JobStatusPending || status == JobStatusRunning {
			return job
		}
	}
	return nil
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*RecognitionJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*RecognitionJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
