// Package output renders mkp-builder's terminal output. Go templates
// produce text with XML-like semantic tags which are then expanded to
// ANSI sequences through the style registry, or stripped for plain
// text output.
package output

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/oetiker/mkp-builder/pkg/logging"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// ResultView is the data behind the success summary.
type ResultView struct {
	Path      string
	Name      string
	Version   string
	Size      string
	FileCount int
	Agents    []string
	Addons    []string
	Lib       []string
}

// Renderer writes styled terminal output.
type Renderer struct {
	templates *template.Template
	writer    io.Writer
	noColor   bool
}

// NewRenderer creates a Renderer writing to w. When noColor is true all
// style tags are stripped instead of expanded.
func NewRenderer(w io.Writer, noColor bool) (*Renderer, error) {
	log := logging.GetLogger("output")
	log.Debug().
		Bool("noColor", noColor).
		Str("TERM", os.Getenv("TERM")).
		Msg("Creating renderer")

	tmpl, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Renderer{
		templates: tmpl,
		writer:    w,
		noColor:   noColor,
	}, nil
}

// DetectNoColor reports whether styled output should be suppressed for f.
// It honors NO_COLOR and CLICOLOR conventions and disables styling when
// f is not a terminal.
func DetectNoColor(f *os.File) bool {
	if termenv.EnvNoColor() {
		return true
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// RenderResult writes the success summary for a finished build.
func (r *Renderer) RenderResult(view ResultView) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "result.tmpl", view); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	_, err := fmt.Fprintln(r.writer, Render(buf.String(), r.noColor))
	return err
}

// RenderError writes a styled error message.
func (r *Renderer) RenderError(err error) error {
	text := fmt.Sprintf("<Error>Error:</Error> %s", err.Error())
	_, werr := fmt.Fprintln(r.writer, Render(text, r.noColor))
	return werr
}

// RenderMessage writes a single line wrapped in the named style.
func (r *Renderer) RenderMessage(style, message string) error {
	text := fmt.Sprintf("<%s>%s</%s>", style, message, style)
	_, err := fmt.Fprintln(r.writer, Render(text, r.noColor))
	return err
}
