package http

import (
	"net/http"

	"github.com/dreamcapture/backend/internal/auth"
	"github.com/dreamcapture/backend/internal/config"
	"github.com/dreamcapture/backend/internal/content"
	"github.com/dreamcapture/backend/internal/http/handler"
	mw "github.com/dreamcapture/backend/internal/http/middleware"
	"github.com/dreamcapture/backend/internal/jobs"
	"github.com/dreamcapture/backend/internal/oracle"
	"github.com/dreamcapture/backend/internal/resonance"
	"github.com/dreamcapture/backend/internal/stream"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	Config config.Config
	DB     *gorm.DB
	JWT    *auth.JWT
	Oracle oracle.Client
	Hub    *stream.Hub
	Log    *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger(d.Log))
	r.Use(chimw.Recoverer)

	if len(d.Config.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(d.Config.CORSAllowedOrigins, d.Config.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: d.DB, JWT: d.JWT, Log: d.Log}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: d.DB}
	r.With(auth.RequireAuth(d.JWT)).Get("/me", me.Me)

	contentSvc := &content.Service{
		DB:                d.DB,
		MomentTTL:         d.Config.MomentTTL,
		MaxDreamsPerDay:   d.Config.MaxDreamsPerDay,
		MaxMomentsPerHour: d.Config.MaxMomentsPerHour,
	}
	jobsRepo := &jobs.Repo{DB: d.DB}

	dreamH := &handler.DreamHandler{
		Svc:           contentSvc,
		Oracle:        d.Oracle,
		Jobs:          jobsRepo,
		Log:           d.Log,
		OracleTimeout: d.Config.OracleTimeout,
	}
	r.Route("/dreams", func(r chi.Router) {
		r.Get("/", dreamH.List)
		r.Get("/{id}", dreamH.Get)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.JWT))
			r.Post("/", dreamH.Create)
			r.Get("/my", dreamH.ListMine)
			r.Delete("/{id}", dreamH.Delete)
		})
	})

	momentH := &handler.MomentHandler{
		Svc:           contentSvc,
		Oracle:        d.Oracle,
		Jobs:          jobsRepo,
		Hub:           d.Hub,
		Log:           d.Log,
		OracleTimeout: d.Config.OracleTimeout,
	}
	r.Route("/moments", func(r chi.Router) {
		r.Get("/", momentH.List)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.JWT))
			r.Post("/", momentH.Create)
			r.Get("/{id}", momentH.Get)
		})
	})

	resH := &handler.ResonanceHandler{Svc: &resonance.Service{DB: d.DB}, DB: d.DB}
	r.Route("/resonances", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))
		r.Get("/", resH.List)
		r.Post("/{id}/save", resH.Save)
	})

	upH := &handler.UploadHandler{Dir: d.Config.UploadDir, BaseURL: d.Config.UploadBaseURL, Log: d.Log}
	r.With(auth.RequireAuth(d.JWT)).Post("/upload/moment-media", upH.MomentMedia)

	wsH := stream.NewWSHandler(d.Hub, d.Log)
	r.Get("/ws/stream", wsH.ServeHTTP)

	// uploaded media is served straight off disk
	fs := http.StripPrefix(d.Config.UploadBaseURL+"/", http.FileServer(http.Dir(d.Config.UploadDir)))
	r.Get(d.Config.UploadBaseURL+"/*", fs.ServeHTTP)

	return r
}
