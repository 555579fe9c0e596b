package main

import (
	"net/http"

	"dcia/ui"
	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	fileServer := http.FileServer(http.FS(ui.Static))
	mux.Handle("/static/", cacheForeverHeaders(http.StripPrefix("/static", fileServer)))

	dynamic := alice.New(app.sessionManager.LoadAndSave, noSurf, app.commonContext)

	mux.Handle("/", dynamic.ThenFunc(app.home))
	mux.Handle("/investigate", dynamic.ThenFunc(app.investigate))
	mux.Handle("/investigate/artefacts", dynamic.ThenFunc(app.artefactsPartial))
	mux.Handle("/chat", dynamic.ThenFunc(app.chat))
	mux.Handle("/chat/ask", dynamic.ThenFunc(app.ask))

	mux.HandleFunc("/api/healthy", app.healthy)

	standard := alice.New(app.recoverPanic, app.logRequest, secureHeaders)
	return standard.Then(mux)
}
