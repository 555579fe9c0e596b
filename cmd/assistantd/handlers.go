package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"dcia/internal/errors"
	"dcia/internal/models"
	"github.com/go-chi/chi/v5"
)

func (app *application) healthy(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (app *application) listCrimeSubtypes(w http.ResponseWriter, r *http.Request) {
	subtypes, err := app.repo.ListSubtypes(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if subtypes == nil {
		subtypes = []string{}
	}
	app.serveJSON(w, r, http.StatusOK, subtypes)
}

func (app *application) evidenceBySubtype(w http.ResponseWriter, r *http.Request) {
	rawDevice := r.URL.Query().Get("device")
	if rawDevice == "" {
		app.clientError(w, r, http.StatusBadRequest, "Device type must be either 'android' or 'windows'")
		return
	}
	device, ok := models.ParseDeviceType(rawDevice)
	if !ok {
		app.clientError(w, r, http.StatusBadRequest, "Device type must be either 'android' or 'windows'")
		return
	}

	subtype := chi.URLParam(r, "subtype")
	items, err := app.repo.ListEvidence(r.Context(), subtype, device)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if items == nil {
		items = []models.EvidenceItem{}
	}
	app.serveJSON(w, r, http.StatusOK, items)
}

func (app *application) ask(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		app.clientError(w, r, http.StatusBadRequest, "Malformed request body")
		return
	}

	question := strings.TrimSpace(request.Question)
	if question == "" {
		app.clientError(w, r, http.StatusBadRequest, "Question cannot be empty")
		return
	}

	if app.answers != nil {
		if answer, ok := app.answers.Get(r.Context(), question); ok {
			app.serveJSON(w, r, http.StatusOK, answer)
			return
		}
	}

	answer, err := app.search.Answer(r.Context(), question)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	if app.answers != nil {
		app.answers.Set(r.Context(), question, answer)
	}
	app.serveJSON(w, r, http.StatusOK, answer)
}

type embeddingJobResponse struct {
	Message        string `json:"message"`
	JobStarted     bool   `json:"job_started"`
	NodesToProcess int    `json:"nodes_to_process"`
}

// refreshEmbeddings kicks off embedding generation in the background and
// returns immediately with the amount of work queued.
func (app *application) refreshEmbeddings(w http.ResponseWriter, r *http.Request) {
	nodes, err := app.repo.NodesMissingEmbeddings(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	go func() {
		// Detached from the request context so the job survives the response.
		ctx := context.Background()
		if _, refreshErr := app.search.RefreshEmbeddings(ctx); refreshErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelError, "embedding refresh failed", errors.SlogError(refreshErr))
		}
	}()

	app.serveJSON(w, r, http.StatusOK, embeddingJobResponse{
		Message:        "Embedding refresh job started",
		JobStarted:     true,
		NodesToProcess: len(nodes),
	})
}
