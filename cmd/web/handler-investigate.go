package main

import (
	"net/http"

	"dcia/internal/investigation"
	"dcia/internal/models"
)

type investigateTemplateData struct {
	BaseTemplateData
	Snapshot investigation.NavigationSnapshot
	Devices  []models.DeviceType
	Query    string
}

// navigate runs the shared navigation flow for the investigate page and the
// artefact list partial. It reports whether the caller can continue
// rendering.
func (app *application) navigate(w http.ResponseWriter, r *http.Request) (*investigation.Session, bool) {
	subtype := r.URL.Query().Get("subtype")
	if subtype == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}
	device, ok := models.ParseDeviceType(r.URL.Query().Get("device"))
	if !ok {
		app.clientError(w, r, http.StatusBadRequest)
		return nil, false
	}

	session := app.investigationSession(r)
	if err := session.Navigate(r.Context(), subtype, device); err != nil {
		app.serverError(w, r, err)
		return nil, false
	}
	if query, present := queryParam(r); present {
		session.Search(query)
	}
	return session, true
}

func queryParam(r *http.Request) (string, bool) {
	if !r.URL.Query().Has("query") {
		return "", false
	}
	return r.URL.Query().Get("query"), true
}

func (app *application) investigate(w http.ResponseWriter, r *http.Request) {
	session, ok := app.navigate(w, r)
	if !ok {
		return
	}

	data := investigateTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Snapshot:         session.Navigation(),
		Devices:          []models.DeviceType{models.DeviceAndroid, models.DeviceWindows},
		Query:            session.Query(),
	}
	app.render(w, r, http.StatusOK, "investigate", data)
}

// artefactsPartial serves the filtered artefact list for the htmx
// search-as-you-type flow.
func (app *application) artefactsPartial(w http.ResponseWriter, r *http.Request) {
	session, ok := app.navigate(w, r)
	if !ok {
		return
	}

	data := investigateTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Snapshot:         session.Navigation(),
		Devices:          []models.DeviceType{models.DeviceAndroid, models.DeviceWindows},
		Query:            session.Query(),
	}
	app.renderPartial(w, r, http.StatusOK, "artefacts", data)
}
