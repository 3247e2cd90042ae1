package api

import (
	"net/http"
	"time"

	"codearena/internal/api/handler"
	"codearena/internal/app/service"
	"codearena/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	contestService *service.ContestService,
	submissionService *service.SubmissionService,
	leaderboardService *service.LeaderboardService,
	eventsHandler *handler.EventsHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies a token when present and puts claims in context; routes
	// decide whether authentication is mandatory.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		authHandler.RegisterRoutes(v1)

		contestHandler := handler.NewContestHandler(contestService, leaderboardService)
		leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
		v1.Route("/contests", func(c chi.Router) {
			contestHandler.RegisterRoutes(c)
			leaderboardHandler.RegisterRoutes(c)
		})

		submissionHandler := handler.NewSubmissionHandler(submissionService)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		v1.Get("/events/ws", eventsHandler.Serve)
	})

	return r
}
