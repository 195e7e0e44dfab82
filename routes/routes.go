package routes

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/prediction-league/docs"
	"github.com/Dosada05/prediction-league/handlers"
	"github.com/Dosada05/prediction-league/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Match       *handlers.MatchHandler
	Contestant  *handlers.ContestantHandler
	Prediction  *handlers.PredictionHandler
	Leaderboard *handlers.LeaderboardHandler
	WebSocket   *handlers.WebSocketHandler
	Health      *handlers.HealthHandler
}

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Logger         *slog.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	if opts.Logger != nil {
		router.Use(chiMiddleware.RequestLogger(&chiMiddleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(opts.Logger.Handler(), slog.LevelInfo),
			NoColor: true,
		}))
	}
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", h.Health.GetHandler)

	router.Get(docs.DocPath, docs.Handler)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docs.DocPath)))

	admin := []func(http.Handler) http.Handler{
		middleware.Authenticate(opts.JWTSecret),
		middleware.Authorize(middleware.RoleAdmin),
	}

	router.Route("/api", func(r chi.Router) {
		r.Route("/matches", func(r chi.Router) {
			r.Get("/", h.Match.ListHandler)
			r.Get("/{matchID}", h.Match.GetByIDHandler)

			r.Group(func(r chi.Router) {
				r.Use(admin...)
				r.Post("/", h.Match.CreateHandler)
				r.Put("/{matchID}/result", h.Match.RecordResultHandler)
				r.Patch("/{matchID}/status", h.Match.UpdateStatusHandler)
				r.Post("/{matchID}/score", h.Match.ScoreHandler)
			})
		})

		r.Route("/contestants", func(r chi.Router) {
			r.Get("/", h.Contestant.ListHandler)
			r.Get("/{contestantID}", h.Contestant.GetByIDHandler)
			r.Get("/{contestantID}/predictions", h.Contestant.ListPredictionsHandler)

			r.Group(func(r chi.Router) {
				r.Use(admin...)
				r.Post("/", h.Contestant.RegisterHandler)
				r.Delete("/{contestantID}", h.Contestant.DeactivateHandler)
			})
		})

		// Прогнозы присылает сборщик ответов моделей или администратор.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(opts.JWTSecret))
			r.Use(middleware.Authorize(middleware.RoleAdmin, middleware.RoleIngest))
			r.Post("/predictions", h.Prediction.SubmitHandler)
		})

		r.Get("/leaderboard", h.Leaderboard.GetHandler)
	})

	router.Route("/ws", func(r chi.Router) {
		r.Get("/matches/{matchID}", h.WebSocket.ServeMatch)
		r.Get("/leaderboard", h.WebSocket.ServeLeaderboard)
	})
}
