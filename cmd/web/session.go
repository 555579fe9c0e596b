package main

import (
	"net/http"

	"dcia/internal/investigation"
	"github.com/google/uuid"
)

// investigationIDSessionKey stores the investigation session ID in the
// browser session.
const investigationIDSessionKey = "investigationID"

// investigationSession returns the investigation session bound to the
// browser session, creating both on first use.
func (app *application) investigationSession(r *http.Request) *investigation.Session {
	id := app.sessionManager.GetString(r.Context(), investigationIDSessionKey)
	if id == "" {
		id = uuid.NewString()
		app.sessionManager.Put(r.Context(), investigationIDSessionKey, id)
	}
	return app.sessions.Get(id)
}
