package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/vibestream/vibestream-server/internal/app"
	"github.com/vibestream/vibestream-server/internal/utils"
)

func SetupRoutes(app *app.Application) *chi.Mux {
	r := chi.NewRouter()

	r.Use(httprate.LimitAll(200, time.Minute))
	r.Use(app.MiddlewareHandler.RequestLogger)
	r.Use(app.MiddlewareHandler.Security)
	r.Use(app.MiddlewareHandler.Cors)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, utils.Envelope{
			"message": "Vibestream Backend — Endpoints: /feed /trending /fetch/shorts",
		})
	})

	r.Get("/feed", app.FeedHandler.HandlerGetFeed)

	r.Group(func(r chi.Router) {
		// Ingestion triggers hit YouTube quota, keep them on a tight limit.
		r.Use(httprate.LimitAll(20, time.Minute))

		r.Get("/trending", app.IngestHandler.HandlerGetTrending)
		r.Post("/fetch/shorts", app.IngestHandler.HandlerFetchShorts)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(httprate.LimitAll(100, time.Minute))

		r.Post("/login", app.AdminAuth.Login)
		r.Post("/logout", app.AdminAuth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(app.MiddlewareHandler.AuthenticateAdmin)

			r.Get("/runs", app.AdminHandler.HandlerGetRuns)
			r.Get("/health", app.AdminHandler.HandlerGetHealth)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusNotFound, utils.Envelope{"error": "Route not found"})
	})

	return r
}
