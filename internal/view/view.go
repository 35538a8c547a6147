// Package view renders the dashboard's HTML. Templates are embedded into the
// binary so the kiosk box has nothing to deploy next to it.
package view

import (
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var files embed.FS

// Renderer implements echo.Renderer on top of html/template.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates. Parse failures are programmer
// errors, so this panics via template.Must.
func NewRenderer() *Renderer {
	return &Renderer{templates: template.Must(template.ParseFS(files, "templates/*.html"))}
}

// Render satisfies echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
