package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/roll-call/internal/database"
)

// ClassesHandler handles class and enrollment endpoints.
type ClassesHandler struct {
	store database.ClassStore
}

func NewClassesHandler(store database.ClassStore) *ClassesHandler {
	return &ClassesHandler{store: store}
}

// CreateClassRequest is the body of POST /classes.
type CreateClassRequest struct {
	Name      string `json:"name"`
	TeacherID int64  `json:"teacher_id"`
	Semester  string `json:"semester"`
}

type classResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	TeacherID int64  `json:"teacher_id"`
	Semester  string `json:"semester"`
}

// Create adds a new class owned by a teacher.
func (h *ClassesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.Name == "" || req.TeacherID <= 0 {
		respondError(w, http.StatusBadRequest, "name and teacher_id are required")
		return
	}

	id, err := h.store.AddClass(r.Context(), req.Name, req.TeacherID, req.Semester)
	switch {
	case errors.Is(err, database.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "teacher not found")
		return
	case errors.Is(err, database.ErrInvalidRole):
		respondError(w, http.StatusBadRequest, "owner must have the teacher role")
		return
	case err != nil:
		log.Printf("creating class %s: %v", sanitizeForLog(req.Name), err)
		respondError(w, http.StatusInternalServerError, "could not create class")
		return
	}

	respondJSON(w, http.StatusCreated, classResponse{
		ID:        id,
		Name:      req.Name,
		TeacherID: req.TeacherID,
		Semester:  req.Semester,
	})
}

// List returns all classes.
func (h *ClassesHandler) List(w http.ResponseWriter, r *http.Request) {
	classes, err := h.store.ListClasses(r.Context())
	if err != nil {
		log.Printf("listing classes: %v", err)
		respondError(w, http.StatusInternalServerError, "could not list classes")
		return
	}

	out := make([]classResponse, 0, len(classes))
	for _, c := range classes {
		out = append(out, classResponse{ID: c.ID, Name: c.Name, TeacherID: c.TeacherID, Semester: c.Semester})
	}
	respondJSON(w, http.StatusOK, map[string]any{"classes": out})
}

// EnrollRequest is the body of POST /classes/{id}/students.
type EnrollRequest struct {
	StudentID int64 `json:"student_id"`
}

// Enroll registers a student into a class.
func (h *ClassesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	classID, ok := idParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}

	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.StudentID <= 0 {
		respondError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	err := h.store.Enroll(r.Context(), classID, req.StudentID)
	switch {
	case errors.Is(err, database.ErrAlreadyEnrolled):
		respondError(w, http.StatusConflict, "student already enrolled")
		return
	case errors.Is(err, database.ErrClassNotFound):
		respondError(w, http.StatusNotFound, "class not found")
		return
	case errors.Is(err, database.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "student not found")
		return
	case err != nil:
		log.Printf("enrolling student %d into class %d: %v", req.StudentID, classID, err)
		respondError(w, http.StatusInternalServerError, "could not enroll student")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"class_id":   classID,
		"student_id": req.StudentID,
	})
}

// Students lists the enrolled students of a class.
func (h *ClassesHandler) Students(w http.ResponseWriter, r *http.Request) {
	classID, ok := idParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}

	if _, err := h.store.GetClass(r.Context(), classID); err != nil {
		if errors.Is(err, database.ErrClassNotFound) {
			respondError(w, http.StatusNotFound, "class not found")
			return
		}
		log.Printf("loading class %d: %v", classID, err)
		respondError(w, http.StatusInternalServerError, "could not load class")
		return
	}

	students, err := h.store.EnrolledStudents(r.Context(), classID)
	if err != nil {
		log.Printf("listing students of class %d: %v", classID, err)
		respondError(w, http.StatusInternalServerError, "could not list students")
		return
	}

	out := make([]userResponse, 0, len(students))
	for _, s := range students {
		out = append(out, userResponse{ID: s.ID, FullName: s.FullName, Email: s.Email, Role: string(s.Role)})
	}
	respondJSON(w, http.StatusOK, map[string]any{"students": out})
}
