package app

import (
	"database/sql"
	"net/http"
	"time"

	"examportal/internal/app/observability"
	"examportal/internal/assistant"
	"examportal/internal/auth"
	"examportal/internal/exam"
	"examportal/internal/note"
	"examportal/internal/question"
	"examportal/internal/report"
	"examportal/internal/subject"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(cfg Config, conn *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(conn)
	r.Use(collector.Middleware)
	r.Use(CSRFMiddleware(cfg.CSRFEnforced))

	mailer := auth.NewSMTPMailer(auth.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	})

	authSvc := auth.NewService(conn, auth.ServiceConfig{
		SessionTTL:  time.Duration(cfg.SessionTTLHours) * time.Hour,
		ResetSecret: cfg.ResetSecret,
		ResetTTL:    time.Duration(cfg.ResetTTLMinutes) * time.Minute,
		BaseURL:     cfg.BaseURL,
		Mailer:      mailer,
	})
	authHandler := auth.NewHandler(authSvc)

	examSvc := exam.NewService(conn, exam.Config{
		PerQuestion: time.Duration(cfg.ExamPerQuestionSeconds) * time.Second,
		Buffer:      time.Duration(cfg.ExamBufferMinutes) * time.Minute,
		SessionTTL:  time.Duration(cfg.ExamSessionTTLMinutes) * time.Minute,
	})
	examHandler := exam.NewHandler(examSvc)

	subjectHandler := subject.NewHandler(subject.NewService(conn))
	questionHandler := question.NewHandler(question.NewService(conn))
	noteHandler := note.NewHandler(note.NewService(conn))
	reportHandler := report.NewHandler(report.NewService(conn))
	assistantHandler := assistant.NewHandler(assistant.NewService(assistant.ServiceConfig{
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
	}))

	authLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Group(func(pub chi.Router) {
		pub.Use(RateLimitMiddleware(authLimiter))
		pub.Post("/api/signup", authHandler.Signup)
		pub.Post("/api/login", authHandler.Login)
		pub.Post("/api/forgot-password", authHandler.ForgotPassword)
		pub.Post("/api/reset-password", authHandler.ResetPassword)
	})
	r.Get("/api/check-auth", authHandler.CheckAuth)

	r.Group(func(secure chi.Router) {
		secure.Use(authHandler.RequireAuth)
		secure.Post("/api/logout", authHandler.Logout)
		secure.Get("/api/profile", reportHandler.Profile)

		secure.Post("/start-exam", examHandler.Start)
		secure.Post("/api/start-exam", examHandler.Start)
		secure.Post("/submit-result", examHandler.Submit)
		secure.Post("/api/submit-result", examHandler.Submit)

		secure.Get("/api/subjects", subjectHandler.StudentSubjects)
		secure.Get("/api/chapters", subjectHandler.Chapters)
		secure.Get("/api/student/subjects", subjectHandler.StudentSubjects)
		secure.Get("/api/student/notes", noteHandler.StudentNotes)
		secure.Post("/api/assistant", assistantHandler.Reply)

		secure.Group(func(admin chi.Router) {
			admin.Use(authHandler.RequireRoles("admin"))
			admin.Get("/api/admin/users", authHandler.ListUsers)
			admin.Get("/api/admin/users/export", authHandler.ExportUsers)
			admin.Post("/api/admin/users/import", authHandler.ImportUsers)
			admin.Get("/api/admin/users/{id}", authHandler.GetUser)
			admin.Put("/api/admin/users/{id}", authHandler.UpdateUser)
			admin.Delete("/api/admin/users/{id}", authHandler.DeleteUser)
			admin.Post("/api/admin/approve-subjects", authHandler.ApproveSubjects)

			admin.Get("/api/admin/subjects", subjectHandler.List)
			admin.Post("/api/admin/subjects", subjectHandler.Create)
			admin.Put("/api/admin/subjects/{id}", subjectHandler.Update)
			admin.Delete("/api/admin/subjects/{id}", subjectHandler.Delete)

			admin.Get("/api/admin/questions", questionHandler.List)
			admin.Post("/api/admin/questions", questionHandler.Create)
			admin.Put("/api/admin/questions/{id}", questionHandler.Update)
			admin.Delete("/api/admin/questions/{id}", questionHandler.Delete)

			admin.Get("/api/admin/notes", noteHandler.List)
			admin.Post("/api/admin/notes", noteHandler.Create)
			admin.Put("/api/admin/notes/{id}", noteHandler.Update)
			admin.Delete("/api/admin/notes/{id}", noteHandler.Delete)

			admin.Get("/api/admin/reports/subjects", reportHandler.SubjectSummaries)
			admin.Get("/api/admin/reports/results.xlsx", reportHandler.ExportResults)
		})
	})

	return r
}
