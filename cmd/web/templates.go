package main

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"dcia/internal/contexthelpers"
	"dcia/internal/errors"
	"dcia/ui"
)

type BaseTemplateData struct {
	CurrentPath string
}

func newBaseTemplateData(r *http.Request) BaseTemplateData {
	return BaseTemplateData{
		CurrentPath: contexthelpers.CurrentPath(r.Context()),
	}
}

// placeholderFuncs lets the templates parse before the request-scoped
// nonce and CSRF values are known. They are overridden in render.
var placeholderFuncs = template.FuncMap{
	"nonce": func() string {
		panic("not implemented")
	},
	"csrf": func() string {
		panic("not implemented")
	},
	"csrftoken": func() string {
		panic("not implemented")
	},
}

// pageTemplate returns a template for the given page name.
//
// pageName corresponds to a directory inside ui/templates/pages. It has to
// include a template named "page". The base layout and the shared partials
// are always parsed alongside it.
func pageTemplate(pageName string) (*template.Template, error) {
	patterns := []string{
		"templates/base.gohtml",
		"templates/partials/*.gohtml",
		fmt.Sprintf("templates/pages/%s/*.gohtml", pageName),
	}

	t, err := template.New(pageName).Funcs(placeholderFuncs).ParseFS(ui.Templates, patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "parse page template", slog.String("page", pageName))
	}
	return t, nil
}

// partialTemplate parses only the shared partials, for htmx fragment
// responses.
func partialTemplate() (*template.Template, error) {
	t, err := template.New("partials").Funcs(placeholderFuncs).ParseFS(ui.Templates,
		"templates/partials/*.gohtml")
	if err != nil {
		return nil, errors.Wrap(err, "parse partial templates")
	}
	return t, nil
}

// requestFuncs binds the request-scoped template functions.
func requestFuncs(r *http.Request) template.FuncMap {
	ctx := r.Context()
	nonce := fmt.Sprintf("nonce=%q", contexthelpers.CSPNonce(ctx))
	csrfToken := contexthelpers.CSRFToken(ctx)
	csrf := fmt.Sprintf("<input type=\"hidden\" name=\"csrf_token\" value=%q/>", csrfToken)
	return template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(nonce) //nolint:gosec // we trust the nonce since it's not provided by user.
		},
		"csrf": func() template.HTML {
			return template.HTML(csrf) //nolint:gosec // we trust the csrf since it's not provided by user.
		},
		"csrftoken": func() string {
			return csrfToken
		},
	}
}

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, err := pageTemplate(page)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	t.Funcs(requestFuncs(r))

	buf := new(bytes.Buffer)
	if err = t.ExecuteTemplate(buf, "base", data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("page", page)))
		return
	}

	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderPartial renders a single named partial without the base layout.
func (app *application) renderPartial(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	t, err := partialTemplate()
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	t.Funcs(requestFuncs(r))

	buf := new(bytes.Buffer)
	if err = t.ExecuteTemplate(buf, name, data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute partial", slog.String("partial", name)))
		return
	}

	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
