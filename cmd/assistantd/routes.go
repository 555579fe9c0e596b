package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (app *application) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(app.logRequest)
	router.Use(middleware.Recoverer)

	router.Get("/api/healthy", app.healthy)
	router.Get("/crimesubtypes", app.listCrimeSubtypes)
	router.Get("/evidence/{subtype}", app.evidenceBySubtype)
	router.Post("/ask", app.ask)
	router.Post("/refresh-embeddings", app.refreshEmbeddings)

	return router
}
