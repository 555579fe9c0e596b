package main

import (
	"log/slog"
	"net/http"

	"dcia/internal/errors"
)

type homeTemplateData struct {
	BaseTemplateData
	Subtypes     []string
	ErrorMessage string
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		app.notFound(w, r)
		return
	}

	session := app.investigationSession(r)
	data := homeTemplateData{ //nolint:exhaustruct // rest is filled below
		BaseTemplateData: newBaseTemplateData(r),
	}

	subtypes, err := session.CrimeSubtypes(r.Context())
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "list crime subtypes", errors.SlogError(err))
		data.ErrorMessage = "Could not load crime subtypes. Please try again."
	}
	data.Subtypes = subtypes

	app.render(w, r, http.StatusOK, "home", data)
}
