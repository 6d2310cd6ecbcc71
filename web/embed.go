// Package web provides the embedded HTML templates and static assets for the Marquee UI.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var assets embed.FS

// TemplatesFS returns the page templates, rooted at the templates directory.
func TemplatesFS() (fs.FS, error) {
	return fs.Sub(assets, "templates")
}

// StaticFS returns the static assets, rooted at the static directory
// (e.g., "style.css" not "static/style.css").
func StaticFS() (fs.FS, error) {
	return fs.Sub(assets, "static")
}
