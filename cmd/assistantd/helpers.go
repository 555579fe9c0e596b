package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"dcia/internal/errors"
)

func (app *application) serveJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "encode response", errors.SlogError(err))
	}
}

// errorDetail matches the {"detail": "..."} error shape the front-end
// clients expect.
type errorDetail struct {
	Detail string `json:"detail"`
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	app.logger.Debug(detail, "method", r.Method, "uri", r.URL.RequestURI(), "status", status)
	app.serveJSON(w, r, status, errorDetail{Detail: detail})
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", r.Method), slog.String("uri", r.URL.RequestURI()), errors.SlogError(err))
	app.serveJSON(w, r, http.StatusInternalServerError,
		errorDetail{Detail: http.StatusText(http.StatusInternalServerError)})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.logger.Debug("received request",
			"proto", r.Proto, "method", r.Method, "uri", r.URL.RequestURI())

		next.ServeHTTP(w, r)
	})
}
