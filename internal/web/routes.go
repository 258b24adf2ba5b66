package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/classmark/classmark/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	studentsHandler := handlers.NewStudentsHandler(s.deps.Registry)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Sessions, s.deps.Ledger)
	classesHandler := handlers.NewClassesHandler(s.deps.Config, s.deps.Registry, s.deps.Ledger)
	backupHandler := handlers.NewBackupHandler(s.deps.Backups, []handlers.BackupTarget{
		{Store: "students", Path: s.deps.Registry.StorePath},
		{Store: "attendance", Path: s.deps.Ledger.Path},
	})

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Students
		r.Post("/students", studentsHandler.Enroll)
		r.Get("/students", studentsHandler.List)
		r.Get("/students/count", studentsHandler.Count)
		r.Get("/students/{roll}", studentsHandler.Get)
		r.Delete("/students/{roll}", studentsHandler.Delete)

		// Attendance
		r.Post("/attendance/start", attendanceHandler.Start)
		r.Post("/attendance/stop", attendanceHandler.Stop)
		r.Get("/attendance/live", attendanceHandler.Live)
		r.Get("/attendance/today", attendanceHandler.Today)
		r.Get("/attendance/export", attendanceHandler.Export)

		// Classes
		r.Get("/classes/summary", classesHandler.Summary)

		// Backup
		r.Post("/backup", backupHandler.Create)
		r.Get("/backup", backupHandler.List)
	})
}
