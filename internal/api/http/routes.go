package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/forecast"
	"github.com/mind-engage/mindengage-progress/internal/rbac"
	"github.com/mind-engage/mindengage-progress/internal/report"
	"github.com/mind-engage/mindengage-progress/internal/storage"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

type Deps struct {
	DB    *sql.DB
	Auth  *authmw.AuthService
	Admin authmw.Admin
	// AllowClaimFallback trusts the token role for subjects without a
	// users row (offline mode).
	AllowClaimFallback bool

	Courses *course.Service
	Engine  *forecast.Engine
	Models  ModelProvider
	Reports *report.Service
	Blobs   storage.BlobStore
	Events  *syncx.EventRepo
}

// Mount registers every route on r.
func Mount(r chi.Router, d Deps) {
	r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.DB, d.Admin))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))
		pr.Use(authmw.AttachRoleFromDB(d.DB, d.AllowClaimFallback))

		pr.Route("/participants", func(pr chi.Router) {
			pr.With(rbac.Require("participant:view")).Get("/", ListParticipantsHandler(d.Courses))
			pr.With(rbac.Require("participant:create")).Post("/", CreateParticipantHandler(d.Courses))
			pr.With(rbac.Require("participant:create")).Post("/import", ImportParticipantsHandler(d.Courses))

			pr.Route("/{id}", func(pr chi.Router) {
				pr.With(rbac.Require("participant:view")).Get("/", GetParticipantHandler(d.Courses))
				pr.With(rbac.Require("participant:update")).Put("/", UpdateParticipantHandler(d.Courses))
				pr.With(rbac.Require("participant:update")).Put("/exit-date", UpdateExitDateHandler(d.Courses))
				pr.With(rbac.Require("participant:export")).Get("/export", ExportParticipantHandler(d.Courses))

				pr.With(rbac.Require("result:view")).Get("/results", ListResultsHandler(d.Courses))
				pr.With(rbac.Require("result:create")).Post("/results", RecordResultHandler(d.Courses))

				pr.With(rbac.Require("forecast:view")).Get("/forecast", ForecastHandler(d.Courses, d.Engine, d.Models))

				pr.With(rbac.Require("report:view")).Get("/report", ReportHandler(d.Reports))
				pr.With(rbac.Require("report:export")).Get("/report.pdf", RenderReportHandler(d.Reports, report.FormatPDF))
				pr.With(rbac.Require("report:export")).Get("/report.xlsx", RenderReportHandler(d.Reports, report.FormatXLSX))
				pr.With(rbac.Require("report:view")).Get("/report/chart.png", RenderReportHandler(d.Reports, report.FormatPNG))
				pr.With(rbac.Require("report:export")).Post("/report/archive", ArchiveReportHandler(d.Reports))
				pr.With(rbac.Require("report:view")).Get("/report/archive", ListArchivedReportsHandler(d.Reports))
			})
		})

		pr.With(rbac.Require("result:update")).Put("/results/{id}", UpdateResultHandler(d.Courses))
		pr.With(rbac.Require("model:train")).Post("/models/retrain", RetrainModelHandler(d.Models))

		pr.With(rbac.RequireAny("report:view", "report:export")).Route("/archive", func(ar chi.Router) {
			MountArchive(ar, d.Blobs)
		})

		pr.With(rbac.Require("audit:view")).Get("/audit", AuditSearchHandler(d.Events))

		pr.With(rbac.Require("users:list")).Get("/users", ListUsersHandler(d.DB))
		pr.With(rbac.Require("users:create")).Post("/users", UpsertUsersHandler(d.DB))
		pr.With(rbac.Require("users:update")).Patch("/users/{userID}", UpdateUserRoleHandler(d.DB))
		pr.With(rbac.Require("user:change_password")).Post("/users/change-password", ChangePasswordHandler(d.DB))
	})
}
