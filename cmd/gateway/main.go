package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/evalmate/evalmate/internal/api/http"
	"github.com/evalmate/evalmate/internal/audit"
	auth "github.com/evalmate/evalmate/internal/auth/middleware"
	"github.com/evalmate/evalmate/internal/config"
	"github.com/evalmate/evalmate/internal/db"
	"github.com/evalmate/evalmate/internal/eval"
	"github.com/evalmate/evalmate/internal/fusion"
	"github.com/evalmate/evalmate/internal/llm"
	"github.com/evalmate/evalmate/internal/rbac"
	"github.com/evalmate/evalmate/internal/rubric"
	"github.com/evalmate/evalmate/internal/session"
	"github.com/evalmate/evalmate/internal/storage"
	"github.com/evalmate/evalmate/internal/store"
)

func main() {
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// --- Store ---
	var st store.Store
	var auditRepo *audit.Repo
	switch cfg.StoreBackend {
	case "sql":
		dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		auditRepo = audit.NewRepo(dbh)
		st = audit.NewRecordingStore(store.NewSQLStore(dbh, cfg.DBDriver), auditRepo)
	default:
		fs, err := store.NewFSStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("fs store: %v", err)
		}
		st = fs
	}

	// --- Evaluation pipeline ---
	estimator := fusion.NewTiktokenEstimator(cfg.Model)
	builder := fusion.NewBuilder(st, st, estimator, cfg.Model)

	var gen llm.Generator
	if cfg.OpenAIAPIKey != "" {
		gen = llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.Model)
	} else {
		log.Printf("OPENAI_API_KEY not set; evaluation endpoints will reject requests")
	}
	evaluator := eval.New(st, builder, gen, st, cfg.Model,
		eval.WithConcurrency(cfg.EvalConcurrency),
		eval.WithSliceBudget(cfg.SliceBudget),
	)
	engine := rubric.NewEngine()

	// --- Auth ---
	sessions := session.NewStore(8 * time.Hour)
	users := map[string]auth.Credential{
		cfg.AdminUser: {PassHash: cfg.AdminPassHash, Role: "admin"},
	}
	authSvc := auth.NewAuthService(cfg.AuthSecret, users, sessions)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc))
	}

	bs, err := storage.NewFSStore(cfg.DataDir + "/blobs")
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Route("/assets", func(ar chi.Router) {
			api.MountAssets(ar, bs)
		})
	})

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("rubric:create")).
			Post("/rubrics/structure", api.StructureRubricHandler(engine, st))
		pr.With(rbac.Require("rubric:view")).
			Get("/rubrics", api.ListRubricsHandler(st))
		pr.With(rbac.Require("rubric:view")).
			Get("/rubrics/{rubricID}", api.GetRubricHandler(st))

		pr.With(rbac.Require("question:create")).
			Post("/questions", api.CreateQuestionHandler(st))
		pr.With(rbac.Require("question:view")).
			Get("/questions/{questionID}", api.GetQuestionHandler(st))

		pr.With(rbac.Require("submission:create")).
			Post("/submissions", api.CreateSubmissionHandler(st))
		pr.With(rbac.RequireAny("submission:view-own", "submission:view")).
			Get("/submissions/{submissionID}", api.GetSubmissionHandler(st))
		pr.With(rbac.Require("submission:view")).
			Get("/submissions", api.ListSubmissionsHandler(st))

		pr.With(rbac.Require("eval:run")).
			Post("/submissions/{submissionID}/evaluate", api.EvaluateHandler(evaluator))
		pr.With(rbac.Require("fusion:view")).
			Get("/submissions/{submissionID}/fusion", api.GetFusionHandler(st))

		pr.With(rbac.RequireAny("result:view-own", "result:view")).
			Get("/results/{resultID}", api.GetResultHandler(st))
		pr.With(rbac.RequireAny("result:view-own", "result:view")).
			Get("/submissions/{submissionID}/results", api.ListResultsHandler(st))

		if auditRepo != nil {
			pr.With(rbac.Require("audit:view")).
				Get("/audit", api.ListAuditHandler(auditRepo))
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (store=%s, model=%s)", cfg.HTTPAddr, cfg.StoreBackend, cfg.Model)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
