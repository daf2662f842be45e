// Package templates resolves requirements templates: the ordered section
// contract a generated document must satisfy.
//
// Resolution checks the user template directory first, then the built-in
// registry, then the hard-coded default. It never fails; a miss yields the
// default template and a warning for the caller to surface.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// DefaultKey is the template used when none is requested or resolution misses.
const DefaultKey = "web_app"

// Source records where a template came from.
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceFile    Source = "file"
	SourceDefault Source = "default"
)

// Template is read-only after load and safe to share across runs.
type Template struct {
	Key               string   `yaml:"-"`
	Name              string   `yaml:"name"`
	Description       string   `yaml:"description,omitempty"`
	Sections          []string `yaml:"sections"`
	TechStackDefaults []string `yaml:"tech_stack_defaults,omitempty"`
	Source            Source   `yaml:"-"`
	Path              string   `yaml:"-"`
}

// HasSection reports whether name is one of the declared sections (exact match).
func (t Template) HasSection(name string) bool {
	for _, s := range t.Sections {
		if s == name {
			return true
		}
	}
	return false
}

// Resolution is the outcome of Resolve. Warning is empty on a direct hit.
type Resolution struct {
	Template Template
	Warning  string
}

var defaultSections = []string{
	"Overview",
	"UI Components Breakdown",
	"Functional Requirements",
	"Data Requirements",
	"User Flows",
	"Technical Recommendations",
	"Non-Functional Requirements",
	"Implementation Guide",
}

// Default returns the hard-coded fallback template.
func Default() Template {
	return Template{
		Key:         DefaultKey,
		Name:        "Web Application",
		Description: "Built-in fallback requirements structure.",
		Sections:    append([]string(nil), defaultSections...),
		Source:      SourceDefault,
	}
}

var builtins = sync.OnceValue(func() map[string]Template {
	out := make(map[string]Template)
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return out
	}
	for _, entry := range entries {
		data, err := builtinFS.ReadFile(path.Join("builtin", entry.Name()))
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		tmpl, err := decode(key, data)
		if err != nil {
			continue
		}
		tmpl.Source = SourceBuiltin
		out[key] = tmpl
	}
	return out
})

// Builtin returns the embedded template for key.
func Builtin(key string) (Template, bool) {
	t, ok := builtins()[NormalizeKey(key)]
	return t, ok
}

// NormalizeKey lowercases key and maps spaces and dashes to underscores.
func NormalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(key)
}

// Resolver looks templates up in a user directory before the built-ins.
type Resolver struct {
	dir string
}

// NewResolver constructs a Resolver for the user template directory dir. An
// empty dir disables user templates.
func NewResolver(dir string) *Resolver {
	return &Resolver{dir: strings.TrimSpace(dir)}
}

// Resolve returns the template for name. It never fails.
func (r *Resolver) Resolve(name string) Resolution {
	key := NormalizeKey(name)
	if key == "" {
		key = DefaultKey
	}

	var warnings []string
	if validKey(key) {
		tmpl, found, err := r.loadUser(key)
		switch {
		case err != nil:
			warnings = append(warnings, err.Error())
		case found:
			return Resolution{Template: tmpl}
		}
		if tmpl, ok := Builtin(key); ok {
			return Resolution{Template: tmpl, Warning: strings.Join(warnings, "; ")}
		}
	}

	fallback, ok := Builtin(DefaultKey)
	if !ok {
		fallback = Default()
	}
	if key == DefaultKey {
		return Resolution{Template: fallback, Warning: strings.Join(warnings, "; ")}
	}
	warnings = append(warnings, fmt.Sprintf("template %q not found; using default %q", name, fallback.Key))
	return Resolution{Template: fallback, Warning: strings.Join(warnings, "; ")}
}

// List returns built-in templates plus user templates, sorted by key. A user
// template overrides a built-in with the same key. Unreadable user files are
// skipped and reported in the returned warnings.
func (r *Resolver) List() ([]Template, []string) {
	byKey := make(map[string]Template)
	for key, tmpl := range builtins() {
		byKey[key] = tmpl
	}

	var warnings []string
	if r.dir != "" {
		entries, err := os.ReadDir(r.dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			warnings = append(warnings, fmt.Sprintf("read template dir %s: %v", r.dir, err))
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			key := NormalizeKey(strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
			tmpl, err := loadFile(key, filepath.Join(r.dir, entry.Name()))
			if err != nil {
				warnings = append(warnings, err.Error())
				continue
			}
			byKey[key] = tmpl
		}
	}

	out := make([]Template, 0, len(byKey))
	for _, tmpl := range byKey {
		out = append(out, tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, warnings
}

func (r *Resolver) loadUser(key string) (Template, bool, error) {
	if r.dir == "" {
		return Template{}, false, nil
	}
	for _, ext := range []string{".yaml", ".yml"} {
		candidate := filepath.Join(r.dir, key+ext)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		tmpl, err := loadFile(key, candidate)
		if err != nil {
			return Template{}, false, err
		}
		return tmpl, true, nil
	}
	return Template{}, false, nil
}

func loadFile(key, filePath string) (Template, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Template{}, fmt.Errorf("read template %s: %w", filePath, err)
	}
	tmpl, err := decode(key, data)
	if err != nil {
		return Template{}, fmt.Errorf("template %s: %w", filePath, err)
	}
	tmpl.Source = SourceFile
	tmpl.Path = filePath
	return tmpl, nil
}

func decode(key string, data []byte) (Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return Template{}, fmt.Errorf("parse yaml: %w", err)
	}
	tmpl.Key = key
	tmpl.Name = strings.TrimSpace(tmpl.Name)
	if tmpl.Name == "" {
		tmpl.Name = cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
	}
	seen := make(map[string]struct{}, len(tmpl.Sections))
	sections := make([]string, 0, len(tmpl.Sections))
	for _, s := range tmpl.Sections {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		folded := FoldSection(s)
		if folded == "" {
			return Template{}, fmt.Errorf("section %q has no name", s)
		}
		if _, dup := seen[folded]; dup {
			return Template{}, fmt.Errorf("duplicate section %q", s)
		}
		seen[folded] = struct{}{}
		sections = append(sections, s)
	}
	if len(sections) == 0 {
		return Template{}, errors.New("sections must list at least one section")
	}
	tmpl.Sections = sections
	return tmpl, nil
}

func validKey(key string) bool {
	return !strings.ContainsAny(key, `/\`) && !strings.Contains(key, "..")
}

// AdditionalNotes is the section that collects content under headings the
// template does not declare.
const AdditionalNotes = "Additional Notes"
