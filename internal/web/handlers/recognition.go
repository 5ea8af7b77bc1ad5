package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/recognition"
	"github.com/kozaktomas/roll-call/internal/vision"
)

// RecognitionLoop is the slice of the recognition loop the handler drives.
type RecognitionLoop interface {
	Start(classID int64) error
	Stop()
	Events() <-chan recognition.Event
	Running() (bool, int64)
}

// RecognitionHandler controls the recognition loop as an async job and
// feeds its events into the attendance recorder.
type RecognitionHandler struct {
	loop       RecognitionLoop
	recorder   *attendance.Recorder
	classes    database.ClassStore
	jobManager *JobManager
}

func NewRecognitionHandler(loop RecognitionLoop, recorder *attendance.Recorder, classes database.ClassStore, jm *JobManager) *RecognitionHandler {
	return &RecognitionHandler{
		loop:       loop,
		recorder:   recorder,
		classes:    classes,
		jobManager: jm,
	}
}

// StartRequest is the body of POST /recognition.
type StartRequest struct {
	ClassID int64 `json:"class_id"`
}

// Start launches the recognition loop for a class and returns a job id.
func (h *RecognitionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.ClassID <= 0 {
		respondError(w, http.StatusBadRequest, "class_id is required")
		return
	}

	if _, err := h.classes.GetClass(r.Context(), req.ClassID); err != nil {
		if errors.Is(err, database.ErrClassNotFound) {
			respondError(w, http.StatusNotFound, "class not found")
			return
		}
		log.Printf("loading class %d: %v", req.ClassID, err)
		respondError(w, http.StatusInternalServerError, "could not load class")
		return
	}

	if active := h.jobManager.ActiveJob(); active != nil {
		respondError(w, http.StatusConflict, "recognition already running")
		return
	}

	if err := h.loop.Start(req.ClassID); err != nil {
		switch {
		case errors.Is(err, recognition.ErrAlreadyRunning):
			respondError(w, http.StatusConflict, "recognition already running")
		case errors.Is(err, recognition.ErrNoClassSelected):
			respondError(w, http.StatusBadRequest, "class_id is required")
		case errors.Is(err, vision.ErrDeviceUnavailable):
			respondError(w, http.StatusServiceUnavailable, "camera unavailable")
		default:
			log.Printf("starting recognition for class %d: %v", req.ClassID, err)
			respondError(w, http.StatusInternalServerError, "could not start recognition")
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := h.jobManager.CreateJob(uuid.New().String(), req.ClassID, cancel)
	job.SetStatus(JobStatusRunning, "")

	go h.consumeEvents(ctx, job)

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"class_id": req.ClassID,
		"status":   string(JobStatusRunning),
	})
}

// consumeEvents bridges loop events into the recorder and the job's
// listeners until the job is cancelled or the loop fails.
func (h *RecognitionHandler) consumeEvents(ctx context.Context, job *RecognitionJob) {
	for {
		select {
		case <-ctx.Done():
			h.loop.Stop()
			return
		case ev := <-h.loop.Events():
			switch ev.Kind {
			case recognition.FrameReady:
				job.Count(1, 0, 0)
				job.SendEvent(JobEvent{Type: "frame", Data: map[string]any{"faces": ev.Faces}})

			case recognition.Recognized:
				outcome, err := h.recorder.Record(ctx, ev.ClassID, ev.SubjectID, ev.Confidence)
				if err != nil {
					log.Printf("recording attendance for subject %d: %v", ev.SubjectID, err)
					job.SendEvent(JobEvent{Type: "store_error", Message: err.Error()})
					continue
				}

				recorded := 0
				if outcome == attendance.Recorded {
					recorded = 1
				}
				job.Count(0, 1, recorded)
				job.SendEvent(JobEvent{Type: "recognized", Data: map[string]any{
					"subject_id": ev.SubjectID,
					"confidence": ev.Confidence,
					"outcome":    string(outcome),
				}})

			case recognition.Failed:
				job.SetStatus(JobStatusFailed, ev.Err.Error())
				job.SendEvent(JobEvent{Type: "error", Message: ev.Err.Error()})
				h.loop.Stop()
				return
			}
		}
	}
}

// Status returns the state and counters of a recognition job.
func (h *RecognitionHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Stop cancels a recognition job and waits for the camera to be released.
func (h *RecognitionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	if isJobTerminal(job.GetStatus()) {
		respondJSON(w, http.StatusOK, job.Snapshot())
		return
	}

	job.Cancel()
	h.loop.Stop()
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Events streams job events over SSE.
func (h *RecognitionHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			if job := h.jobManager.GetJob(id); job != nil {
				return job
			}
			return nil
		},
		func(job SSEJob) any {
			return job.(*RecognitionJob).Snapshot()
		},
	)
}
