package requirements_test

import (
	"reflect"
	"strings"
	"testing"

	"featuregen/internal/requirements"
	"featuregen/internal/templates"
)

func testTemplate() templates.Template {
	return templates.Template{
		Key:      "web_app",
		Name:     "Web Application",
		Sections: []string{"Overview", "UI Components Breakdown", "Functional Requirements", "Data Requirements"},
	}
}

func TestParseSectionsToleratesHeadingVariants(t *testing.T) {
	raw := strings.Join([]string{
		"# Shop Requirements",
		"",
		"## 1. overview",
		"A storefront for plants.",
		"",
		"**UI Component Breakdown**",
		"- Header with logo",
		"",
		"### Section 3: Functional requirement",
		"Users can add items to a cart.",
		"---",
		"Data Requirements: products and orders",
	}, "\n")

	doc, report := requirements.ParseSections(raw, testTemplate())

	if !reflect.DeepEqual(doc.SectionNames(), testTemplate().Sections) {
		t.Fatalf("unexpected sections %v", doc.SectionNames())
	}
	if len(report.Missing) != 0 || report.Degraded {
		t.Fatalf("unexpected report %+v", report)
	}
	if doc.Title != "Web Application Requirements" || doc.Template != "web_app" {
		t.Fatalf("unexpected identity %q %q", doc.Title, doc.Template)
	}
	func3, _ := doc.Section("Functional Requirements")
	if func3.Content != "Users can add items to a cart." {
		t.Fatalf("horizontal rule should be trimmed, got %q", func3.Content)
	}
	data, _ := doc.Section("Data Requirements")
	if data.Content != "products and orders" || !data.Generated {
		t.Fatalf("inline label content lost: %+v", data)
	}
}

func TestParseSectionsFillsMissingWithPlaceholder(t *testing.T) {
	raw := "## Overview\nIntro\n\n## Data Requirements\nTables\n"

	doc, report := requirements.ParseSections(raw, testTemplate())

	if len(doc.Sections) != 4 {
		t.Fatalf("expected all template sections, got %v", doc.SectionNames())
	}
	for _, name := range []string{"UI Components Breakdown", "Functional Requirements"} {
		s, ok := doc.Section(name)
		if !ok || s.Content != requirements.Placeholder || s.Generated {
			t.Fatalf("expected placeholder for %s, got %+v", name, s)
		}
	}
	if !reflect.DeepEqual(report.Missing, []string{"UI Components Breakdown", "Functional Requirements"}) {
		t.Fatalf("unexpected missing list %v", report.Missing)
	}
}

func TestParseSectionsCollectsExtrasUnderAdditionalNotes(t *testing.T) {
	raw := strings.Join([]string{
		"## Overview", "Intro",
		"## Functional Requirements", "### Login", "- email and password",
		"## Deployment", "Ship it on Fridays.",
	}, "\n")

	doc, report := requirements.ParseSections(raw, testTemplate())

	names := doc.SectionNames()
	if names[len(names)-1] != templates.AdditionalNotes || len(names) != 5 {
		t.Fatalf("expected trailing additional notes, got %v", names)
	}
	notes, _ := doc.Section(templates.AdditionalNotes)
	if !strings.Contains(notes.Content, "### Deployment") || !strings.Contains(notes.Content, "Ship it on Fridays.") {
		t.Fatalf("extra section lost: %q", notes.Content)
	}
	functional, _ := doc.Section("Functional Requirements")
	if !strings.Contains(functional.Content, "### Login") {
		t.Fatalf("subheading should stay in its section: %q", functional.Content)
	}
	if !reflect.DeepEqual(report.Extras, []string{"Deployment"}) {
		t.Fatalf("unexpected extras %v", report.Extras)
	}
}

func TestParseSectionsMergesIntoDeclaredAdditionalNotes(t *testing.T) {
	tmpl := testTemplate()
	tmpl.Sections = append(tmpl.Sections, templates.AdditionalNotes)
	raw := "## Overview\nIntro\n## Risks\nScope creep\n"

	doc, _ := requirements.ParseSections(raw, tmpl)

	if len(doc.Sections) != len(tmpl.Sections) {
		t.Fatalf("additional notes should not be duplicated: %v", doc.SectionNames())
	}
	notes, _ := doc.Section(templates.AdditionalNotes)
	if !strings.Contains(notes.Content, "Scope creep") {
		t.Fatalf("extra content missing from declared notes: %q", notes.Content)
	}
}

func TestParseSectionsKeepsSubheadingsUnderBoldSections(t *testing.T) {
	raw := strings.Join([]string{
		"**Overview**",
		"A login and a dashboard.",
		"",
		"**Functional Requirements**",
		"### Login",
		"Users sign in with email.",
		"",
		"### Dashboard",
		"Shows charts.",
		"",
		"Data Requirements:",
		"#### Accounts",
		"Email and password hash.",
	}, "\n")

	doc, report := requirements.ParseSections(raw, testTemplate())

	if len(report.Extras) != 0 {
		t.Fatalf("subheadings should not become extras: %v", report.Extras)
	}
	if _, ok := doc.Section(templates.AdditionalNotes); ok {
		t.Fatalf("unexpected additional notes: %v", doc.SectionNames())
	}
	functional, _ := doc.Section("Functional Requirements")
	if !functional.Generated || !strings.Contains(functional.Content, "### Login") || !strings.Contains(functional.Content, "Shows charts.") {
		t.Fatalf("functional requirements lost its content: %q", functional.Content)
	}
	data, _ := doc.Section("Data Requirements")
	if !strings.Contains(data.Content, "#### Accounts") {
		t.Fatalf("data requirements lost its subheading: %q", data.Content)
	}
}

func TestParseSectionsTreatsAdditionalNotesHeadingAsKnown(t *testing.T) {
	raw := strings.Join([]string{
		"## Overview", "Intro",
		"## Additional Notes", "Keep the palette muted.",
		"## Deployment", "Ship it on Fridays.",
	}, "\n")

	doc, report := requirements.ParseSections(raw, testTemplate())

	notes, ok := doc.Section(templates.AdditionalNotes)
	if !ok {
		t.Fatalf("expected additional notes, got %v", doc.SectionNames())
	}
	if strings.Contains(notes.Content, "### Additional Notes") {
		t.Fatalf("additional notes nested inside itself: %q", notes.Content)
	}
	if !strings.HasPrefix(notes.Content, "Keep the palette muted.") || !strings.Contains(notes.Content, "### Deployment") {
		t.Fatalf("unexpected notes content: %q", notes.Content)
	}
	if !reflect.DeepEqual(report.Extras, []string{"Deployment"}) {
		t.Fatalf("unexpected extras %v", report.Extras)
	}
	if names := doc.SectionNames(); len(names) != 5 {
		t.Fatalf("additional notes should appear once: %v", names)
	}
}

func TestParseSectionsDegradesWithoutHeadings(t *testing.T) {
	raw := "The app lets people order plants.\nIt needs a cart."

	doc, report := requirements.ParseSections(raw, testTemplate())

	if !report.Degraded {
		t.Fatal("expected degraded report")
	}
	first := doc.Sections[0]
	if !strings.HasPrefix(first.Content, requirements.DegradedNotice) || !strings.Contains(first.Content, "It needs a cart.") {
		t.Fatalf("first section should carry the whole response: %q", first.Content)
	}
	for _, s := range doc.Sections[1:] {
		if s.Content != requirements.Placeholder {
			t.Fatalf("expected placeholder in %s, got %q", s.Name, s.Content)
		}
	}
}

func TestParseSectionsIgnoresHeadingsInCodeFences(t *testing.T) {
	raw := "## Overview\n```bash\n# Data Requirements\nmake run\n```\n## Data Requirements\nRows\n"

	doc, _ := requirements.ParseSections(raw, testTemplate())

	overview, _ := doc.Section("Overview")
	if !strings.Contains(overview.Content, "# Data Requirements") {
		t.Fatalf("fenced heading should stay as content: %q", overview.Content)
	}
	data, _ := doc.Section("Data Requirements")
	if data.Content != "Rows" {
		t.Fatalf("unexpected data section %q", data.Content)
	}
}

func TestParseSectionsKeepsBuiltinSectionSets(t *testing.T) {
	for _, key := range []string{"web_app", "mobile_app", "dashboard"} {
		tmpl, ok := templates.Builtin(key)
		if !ok {
			t.Fatalf("builtin %s missing", key)
		}
		var b strings.Builder
		for i := len(tmpl.Sections) - 1; i >= 0; i-- {
			b.WriteString("## " + strings.ToUpper(tmpl.Sections[i]) + "\ncontent\n\n")
		}
		doc, report := requirements.ParseSections(b.String(), tmpl)
		if !reflect.DeepEqual(doc.SectionNames(), tmpl.Sections) {
			t.Fatalf("%s: section set %v differs from template %v", key, doc.SectionNames(), tmpl.Sections)
		}
		if len(report.Missing) != 0 {
			t.Fatalf("%s: unexpected missing %v", key, report.Missing)
		}
	}
}
