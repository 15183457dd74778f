package handler

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer serves the HTML pages.  Each page is parsed together with the
// shared head/foot blocks.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the embedded templates.  It panics on a broken embed.
func NewRenderer() *Renderer {
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range []string{"blueprint", "message"} {
		r.pages[name] = template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html"))
	}
	return r
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, name+".html", data)
}

// messagePage is the data for message.html.
type messagePage struct {
	Title    string
	Message  string
	Error    bool
	RetryURL string
}
