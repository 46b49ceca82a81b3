package routes

import (
	"net/http"
	"time"

	_ "github.com/Dosada05/room-bracket/docs"
	"github.com/Dosada05/room-bracket/handlers"
	"github.com/Dosada05/room-bracket/middleware"
	"github.com/Dosada05/room-bracket/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Metrics        http.Handler
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	roundHandler *handlers.RoundHandler,
	walletHandler *handlers.WalletHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.WrapHandler)
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics)
	}

	// websocket живёт вне Timeout: соединение долгое
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		// Публичные
		r.Get("/tournaments/{tournamentID}/bracket", roundHandler.GetBracket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(opts.JWTSecret))

			r.Get("/wallet/withdrawable", walletHandler.GetWithdrawable)
			r.Get("/wallet/breakdown", walletHandler.GetBreakdown)

			// Организатор; владелец турнира проверяется в сервисе
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin))

				r.Post("/tournaments/{tournamentID}/start", roundHandler.StartTournament)
				r.Patch("/tournaments/{tournamentID}/status", roundHandler.UpdateStatus)
				r.Post("/rooms/{roomID}/start", roundHandler.StartRoom)
				r.Post("/rooms/{roomID}/winner", roundHandler.DeclareWinner)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))

				r.Post("/sweeps", adminHandler.RunSweep)
				r.Post("/tournaments/{tournamentID}/simulate", adminHandler.SimulateRound)
			})
		})
	})
}
