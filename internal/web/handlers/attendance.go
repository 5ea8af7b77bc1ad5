package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/names"
)

// AttendanceHandler exposes the day view, the roster view and the manual
// replace-day edit.
type AttendanceHandler struct {
	recorder *attendance.Recorder
}

func NewAttendanceHandler(recorder *attendance.Recorder) *AttendanceHandler {
	return &AttendanceHandler{recorder: recorder}
}

type dayEntryResponse struct {
	StudentID  int64   `json:"student_id"`
	FullName   string  `json:"full_name"`
	CheckIn    string  `json:"check_in"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	Note       string  `json:"note,omitempty"`
}

// Day returns the facts for a class and date ordered by check-in time.
func (h *AttendanceHandler) Day(w http.ResponseWriter, r *http.Request) {
	classID, ok := idParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}
	date, ok := dateQuery(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	entries, err := h.recorder.Day(r.Context(), classID, date)
	if err != nil {
		log.Printf("loading attendance for class %d: %v", classID, err)
		respondError(w, http.StatusInternalServerError, "could not load attendance")
		return
	}

	out := make([]dayEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dayEntryResponse{
			StudentID:  e.StudentID,
			FullName:   e.FullName,
			CheckIn:    e.CheckIn.Format("15:04:05"),
			Status:     string(e.Status),
			Confidence: e.Confidence,
			Note:       e.Note,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"class_id": classID,
		"date":     database.DateOnly(date).Format("2006-01-02"),
		"entries":  out,
	})
}

type rosterEntryResponse struct {
	StudentID  int64   `json:"student_id"`
	FullName   string  `json:"full_name"`
	Email      string  `json:"email"`
	Status     string  `json:"status"`
	CheckIn    *string `json:"check_in,omitempty"`
	Confidence float64 `json:"confidence"`
	Note       string  `json:"note,omitempty"`
}

// Roster returns every enrolled student with their status for the date,
// defaulting to absent. The optional q parameter filters by name, ignoring
// case and diacritics.
func (h *AttendanceHandler) Roster(w http.ResponseWriter, r *http.Request) {
	classID, ok := idParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}
	date, ok := dateQuery(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	query := r.URL.Query().Get("q")

	entries, err := h.recorder.Roster(r.Context(), classID, date)
	if err != nil {
		log.Printf("loading roster for class %d: %v", classID, err)
		respondError(w, http.StatusInternalServerError, "could not load roster")
		return
	}

	out := make([]rosterEntryResponse, 0, len(entries))
	for _, e := range entries {
		if !names.Match(e.FullName, query) {
			continue
		}

		resp := rosterEntryResponse{
			StudentID:  e.StudentID,
			FullName:   e.FullName,
			Email:      e.Email,
			Status:     string(e.Status),
			Confidence: e.Confidence,
			Note:       e.Note,
		}
		if e.CheckIn != nil {
			checkIn := e.CheckIn.Format("15:04:05")
			resp.CheckIn = &checkIn
		}
		out = append(out, resp)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"class_id": classID,
		"date":     database.DateOnly(date).Format("2006-01-02"),
		"roster":   out,
	})
}

// ReplaceDayRequest is the body of PUT /classes/{id}/attendance.
type ReplaceDayRequest struct {
	Date string `json:"date"`
	Rows []struct {
		StudentID int64  `json:"student_id"`
		Status    string `json:"status"`
		Note      string `json:"note"`
	} `json:"rows"`
}

// ReplaceDay atomically replaces every fact for (class, date) with the
// submitted rows. Last writer for the day wins.
func (h *AttendanceHandler) ReplaceDay(w http.ResponseWriter, r *http.Request) {
	classID, ok := idParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}

	var req ReplaceDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	rows := make([]database.ManualEntry, 0, len(req.Rows))
	for _, row := range req.Rows {
		rows = append(rows, database.ManualEntry{
			StudentID: row.StudentID,
			Status:    database.Status(row.Status),
			Note:      row.Note,
		})
	}

	if err := h.recorder.ReplaceDay(r.Context(), classID, date, rows); err != nil {
		if errors.Is(err, database.ErrInvalidStatus) {
			respondError(w, http.StatusBadRequest, "unknown attendance status")
			return
		}
		log.Printf("replacing day for class %d: %v", classID, err)
		respondError(w, http.StatusInternalServerError, "could not replace attendance")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"class_id": classID,
		"date":     req.Date,
		"rows":     len(rows),
	})
}
