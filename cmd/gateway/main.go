package main

import (
	"context"
	"log"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/mind-engage/mindengage-progress/internal/api/http"
	auth "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/config"
	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/db"
	"github.com/mind-engage/mindengage-progress/internal/forecast"
	"github.com/mind-engage/mindengage-progress/internal/report"
	storage "github.com/mind-engage/mindengage-progress/internal/storage"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatalf("db driver: %v", err)
	}
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()
	store := course.NewSQLStore(dbh)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Events: event_log, plus the broker when configured ---
	eventLog := syncx.NewEventRepo(dbh)
	events := syncx.Fanout{eventLog}
	if cfg.AMQPURL != "" {
		pub, err := syncx.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			log.Fatalf("amqp: %v", err)
		}
		defer pub.Close()
		events = append(events, pub)
	}

	now := func() time.Time { return time.Now().In(cfg.Location) }
	courses := course.NewService(store, events, now)

	// --- Forecast model ---
	features := forecast.FeatureSet{DayOffset: cfg.ModelDayOffset}
	models := &forecast.Provider{Name: cfg.ModelName, Blobs: bs, Results: store, Events: events}
	switch cfg.ModelBackend {
	case "remote":
		rt := forecast.NewRemoteTrainer(cfg.ModelServerURL, cfg.ModelName, cfg.ModelTimeout)
		rt.Features = features
		models.Trainer, models.Load = rt, rt.Loader()
	case "linear":
		models.Trainer = forecast.LinearTrainer{Features: features, Now: now}
		models.Load = forecast.LoadLinearModel
	default:
		log.Fatalf("unknown MODEL_BACKEND %q", cfg.ModelBackend)
	}
	engine := forecast.NewEngine(store)
	reports := report.NewService(courses, engine, models, bs)

	// --- Auth (local JWT) ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		DB:                 dbh,
		Auth:               authSvc,
		Admin:              auth.Admin{Username: cfg.AdminUser, PassHash: cfg.AdminPassHash},
		AllowClaimFallback: cfg.Mode == config.ModeOffline,
		Courses:            courses,
		Engine:             engine,
		Models:             models,
		Reports:            reports,
		Blobs:              bs,
		Events:             eventLog,
	})

	log.Printf("listening on %s (mode=%s, db=%s, model=%s/%s)", cfg.HTTPAddr, cfg.Mode, driver, cfg.ModelBackend, cfg.ModelName)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
