package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/web/handlers"
)

func (s *Server) setupRoutes(
	store database.Store,
	recorder *attendance.Recorder,
	loop handlers.RecognitionLoop,
	index *database.SampleIndex,
) {
	// Create handlers
	usersHandler := handlers.NewUsersHandler(store)
	classesHandler := handlers.NewClassesHandler(store)
	attendanceHandler := handlers.NewAttendanceHandler(recorder)
	recognitionHandler := handlers.NewRecognitionHandler(loop, recorder, store, s.jobManager)
	lookalikesHandler := handlers.NewLookalikesHandler(store, index)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Subjects
		r.Post("/users", usersHandler.Create)
		r.Get("/users", usersHandler.List)
		r.Get("/subjects/{id}/lookalikes", lookalikesHandler.Get)

		// Classes and enrollment
		r.Post("/classes", classesHandler.Create)
		r.Get("/classes", classesHandler.List)
		r.Post("/classes/{id}/students", classesHandler.Enroll)
		r.Get("/classes/{id}/students", classesHandler.Students)

		// Attendance
		r.Get("/classes/{id}/attendance", attendanceHandler.Day)
		r.Put("/classes/{id}/attendance", attendanceHandler.ReplaceDay)
		r.Get("/classes/{id}/roster", attendanceHandler.Roster)

		// Recognition (long-running)
		r.Post("/recognition", recognitionHandler.Start)
		r.Get("/recognition/{jobId}", recognitionHandler.Status)
		r.Get("/recognition/{jobId}/events", recognitionHandler.Events)
		r.Delete("/recognition/{jobId}", recognitionHandler.Stop)
	})
}
