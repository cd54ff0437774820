// Package prompt assembles the analysis request sent to the language model.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed analysis.tmpl
var defaultTemplate string

var builtin = template.Must(template.New("analysis").Parse(defaultTemplate))

// Data fills the template.
type Data struct {
	Date          string
	Market        string
	Complementary string
}

// Assembler renders analysis prompts from a template.
type Assembler struct {
	tmpl *template.Template
}

// Default returns the assembler for the built-in template.
func Default() *Assembler {
	return &Assembler{tmpl: builtin}
}

// New parses text as an alternative template. It may reference .Date,
// .Market and .Complementary.
func New(text string) (*Assembler, error) {
	tmpl, err := template.New("analysis").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt template: %w", err)
	}
	return &Assembler{tmpl: tmpl}, nil
}

// Load returns the built-in assembler for an empty path, otherwise one for
// the template file at path.
func Load(path string) (*Assembler, error) {
	if path == "" {
		return Default(), nil
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt template: %w", err)
	}
	return New(string(text))
}

// Render executes the template. Reports are inserted verbatim.
func (a *Assembler) Render(d Data) (string, error) {
	var b strings.Builder
	if err := a.tmpl.Execute(&b, d); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return b.String(), nil
}

// Assemble renders the built-in template. The market report always comes
// before the complementary report.
func Assemble(marketReport, complementaryReport, analysisDate string) string {
	out, err := Default().Render(Data{
		Date:          analysisDate,
		Market:        marketReport,
		Complementary: complementaryReport,
	})
	if err != nil {
		// the built-in template only reads fields of Data
		panic(err)
	}
	return out
}
