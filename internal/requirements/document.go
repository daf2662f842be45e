// Package requirements turns a generation prompt into a RequirementsDocument
// whose sections follow the template contract exactly.
//
// Every template section is present in template order. Sections the model
// skipped carry Placeholder; headings the model invented are collected under
// templates.AdditionalNotes. Parsing gaps never fail synthesis.
package requirements

import (
	"fmt"
	"strings"

	"featuregen/internal/templates"
)

// Placeholder fills sections the model produced no content for.
const Placeholder = "No content generated for this section."

// Section is one named part of a document.
type Section struct {
	Name    string
	Content string
	// Generated is false when Content is Placeholder.
	Generated bool
}

// Document is a section-keyed requirements document.
type Document struct {
	Title    string
	Template string
	Sections []Section
}

// Section returns the section called name.
func (d Document) Section(name string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// SectionNames returns section names in document order.
func (d Document) SectionNames() []string {
	names := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		names = append(names, s.Name)
	}
	return names
}

// Markdown renders the document body as "## Section" blocks. It is the form
// fed back to the model when refining.
func (d Document) Markdown() string {
	var b strings.Builder
	for i, s := range d.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n", s.Name, strings.TrimSpace(s.Content))
	}
	return b.String()
}

// ContractTemplate reconstructs the section contract a document was built
// against, excluding the Additional Notes section.
func (d Document) ContractTemplate() templates.Template {
	tmpl := templates.Template{Key: d.Template, Name: d.Template, Source: templates.SourceFile}
	for _, s := range d.Sections {
		if s.Name == templates.AdditionalNotes {
			continue
		}
		tmpl.Sections = append(tmpl.Sections, s.Name)
	}
	return tmpl
}

// TitleFor returns the default document title for tmpl.
func TitleFor(tmpl templates.Template) string {
	name := strings.TrimSpace(tmpl.Name)
	if name == "" {
		name = tmpl.Key
	}
	return name + " Requirements"
}
