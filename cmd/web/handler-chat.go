package main

import (
	"net/http"

	"dcia/internal/errors"
	"dcia/internal/investigation"
	"dcia/internal/models"
)

type chatTemplateData struct {
	BaseTemplateData
	Transcript []models.ChatMessage
	Subtype    string
	Device     models.DeviceType
}

// chat renders the assistant conversation scoped to the current navigation
// context. The optional artefact parameter routes the chat from a specific
// artefact; it only affects the welcome message of a freshly opened chat.
func (app *application) chat(w http.ResponseWriter, r *http.Request) {
	session := app.investigationSession(r)
	snapshot := session.Navigation()
	if snapshot.Subtype == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var chatSession *investigation.ChatSession
	if artefact := r.URL.Query().Get("artefact"); artefact != "" {
		chatSession = session.AskAboutArtefact(artefact, snapshot.Subtype, snapshot.Device)
	} else {
		chatSession = session.OpenChat(snapshot.Subtype, snapshot.Device)
	}

	data := chatTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Transcript:       chatSession.Transcript(),
		Subtype:          snapshot.Subtype,
		Device:           snapshot.Device,
	}
	app.render(w, r, http.StatusOK, "chat", data)
}

func (app *application) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		app.clientError(w, r, http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	session := app.investigationSession(r)
	err := session.Ask(r.Context(), r.PostFormValue("question"))
	switch {
	case errors.Is(err, investigation.ErrValidation):
		// An empty question is a no-op; just re-render the transcript.
	case err != nil:
		app.serverError(w, r, err)
		return
	}

	h := app.htmx.NewHandler(w, r)
	if h.IsHxRequest() {
		data := chatTemplateData{ //nolint:exhaustruct // the partial only reads the transcript
			BaseTemplateData: newBaseTemplateData(r),
			Transcript:       session.Transcript(),
		}
		app.renderPartial(w, r, http.StatusOK, "transcript", data)
		return
	}
	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}
