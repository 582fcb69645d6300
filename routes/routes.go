package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/bracketforge/tourney-server/handlers"
	"github.com/bracketforge/tourney-server/middleware"
)

// SetupRoutes mounts the fixture engine's HTTP surface. Organizer identity
// arrives on the X-Organizer-ID header; read routes are public, mutating
// routes require it.
func SetupRoutes(
	router *chi.Mux,
	allowedOrigins []string,
	fixtureHandler *handlers.FixtureHandler,
	participantHandler *handlers.ParticipantHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Organizer-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.Actor)

	router.Route("/api/tournaments/{tournamentID}", func(r chi.Router) {
		r.Route("/fixtures", func(r chi.Router) {
			r.Get("/", fixtureHandler.List)
			r.Get("/teams", participantHandler.ListByEvent)
			r.Get("/standings", fixtureHandler.Standings)
			r.Get("/{fixtureID}", fixtureHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireActor)

				r.Post("/generate", fixtureHandler.Generate)
				r.Post("/create", fixtureHandler.Create)
				r.Post("/promote", fixtureHandler.Promote)
				r.Post("/export", fixtureHandler.Export)
				r.Put("/{fixtureID}", fixtureHandler.Update)
				r.Post("/{fixtureID}/point", fixtureHandler.ApplyPoint)
				r.Post("/{fixtureID}/reset", fixtureHandler.Reset)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireActor)
			r.Delete("/entries/{kind}/{entryID}", participantHandler.DeleteEntry)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	router.Get("/swagger/doc.json", handlers.ServeAPIDoc)
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}
