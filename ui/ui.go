// Package ui embeds the HTML templates and static assets for the web
// front-end.
package ui

import (
	"embed"
	"io/fs"
)

//go:embed templates
var Templates embed.FS

//go:embed static
var static embed.FS

// Static is the static asset tree rooted below the static/ prefix.
var Static = mustSub(static, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
