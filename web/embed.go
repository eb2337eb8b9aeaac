// Package web embeds the browser page that renders the mood board.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// Static returns the page files rooted at the static directory.
func Static() (fs.FS, error) {
	return fs.Sub(static, "static")
}
