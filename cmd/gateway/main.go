package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/keeleklass/keeleklass/internal/api/http"
	"github.com/keeleklass/keeleklass/internal/auth"
	"github.com/keeleklass/keeleklass/internal/catalog"
	"github.com/keeleklass/keeleklass/internal/cert"
	"github.com/keeleklass/keeleklass/internal/config"
	"github.com/keeleklass/keeleklass/internal/db"
	"github.com/keeleklass/keeleklass/internal/email"
	"github.com/keeleklass/keeleklass/internal/entitlement"
	"github.com/keeleklass/keeleklass/internal/exam"
	"github.com/keeleklass/keeleklass/internal/rbac"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	examStore := exam.NewSQLStore(dbh)
	catalogStore := catalog.NewSQLStore(dbh)
	issuer := cert.New(cert.NewSQLStore(dbh), time.Now)
	sessions := exam.NewManager()

	settings := entitlement.Settings{
		GateEnabled:        cfg.SubscriptionGateEnabled,
		FreeModuleLimit:    cfg.FreeModuleLimit,
		PremiumBeyondLimit: cfg.PremiumRequiredBeyondLimit,
	}

	// --- Email ---
	var mailer email.Service
	switch cfg.EmailBackend {
	case "sendgrid":
		mailer = email.NewSendgridService(cfg.SendgridKey, cfg.EmailFromName, cfg.EmailFromAddr, "Keeleklass")
	default:
		mailer = email.NewConsoleService("Keeleklass")
	}
	mailLog := email.NewSQLLog(dbh)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)
	admin := auth.AdminAccount{User: cfg.AdminUser, PassHash: cfg.AdminPassHash}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh, admin))

	// Public module browser: the demo tier renders before login, so the
	// token is optional here.
	r.With(auth.OptionalJWT(authSvc)).
		Get("/modules", api.ListModulesHandler(catalogStore, settings))

	// Protected API (JWT -> identity in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Student exam flow
		pr.With(rbac.Require("exam:view")).
			Get("/exams/current", api.GetCurrentExamHandler(examStore))
		pr.With(rbac.Require("session:start")).
			Post("/exams/current/session", api.StartSessionHandler(sessions, examStore))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/session", api.GetSessionHandler(sessions))
		pr.With(rbac.Require("session:answer")).
			Put("/exams/session/answers/{questionID}", api.RecordAnswerHandler(sessions))
		pr.With(rbac.Require("session:navigate")).
			Post("/exams/session/sections/{sectionID}/select", api.SelectSectionHandler(sessions))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/session/sections/{sectionID}/score", api.SectionScoreHandler(sessions))
		pr.With(rbac.Require("session:submit")).
			Post("/exams/session/sections/{sectionID}/complete", api.CompleteSectionHandler(sessions))
		pr.With(rbac.Require("session:submit")).
			Post("/exams/session/finish", api.FinishHandler(sessions))
		pr.With(rbac.Require("session:submit")).
			Delete("/exams/session", api.CloseSessionHandler(sessions))
		pr.With(rbac.Require("attempt:view-own")).
			Get("/attempts", api.ListMyAttemptsHandler(examStore))

		// Progress and certificates
		pr.With(rbac.Require("module:complete")).
			Post("/modules/{moduleID}/complete", api.CompleteModuleHandler(catalogStore))
		pr.With(rbac.Require("certificate:view")).
			Get("/certificates/{templateID}", api.GetCertificateHandler(issuer))

		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))

		// Admin back-office
		pr.With(rbac.Require("exam:create")).
			Post("/exams", api.UploadExamHandler(examStore))
		pr.With(rbac.Require("module:create")).
			Put("/admin/modules", api.PutModuleHandler(catalogStore))
		pr.With(rbac.Require("students:manage")).
			Get("/admin/students", api.ListStudentsHandler(dbh))
		pr.With(rbac.Require("students:manage")).
			Post("/admin/students", api.CreateStudentHandler(dbh))
		pr.With(rbac.Require("students:manage")).
			Get("/admin/students/{studentID}", api.GetStudentHandler(dbh))
		pr.With(rbac.Require("students:manage")).
			Put("/admin/students/{studentID}", api.UpdateStudentHandler(dbh))
		pr.With(rbac.Require("students:manage")).
			Delete("/admin/students/{studentID}", api.DeleteStudentHandler(dbh))
		pr.With(rbac.Require("email:send")).
			Post("/admin/email", api.SendEmailHandler(mailer, mailLog))
		pr.With(rbac.Require("email:send")).
			Get("/admin/email/history", api.EmailHistoryHandler(mailLog))
		pr.With(rbac.Require("analytics:view")).
			Get("/admin/analytics", api.AnalyticsHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
