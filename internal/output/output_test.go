package output_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"featuregen/internal/output"
	"featuregen/internal/requirements"
	"featuregen/internal/templates"
)

func sampleDocument() requirements.Document {
	tmpl := templates.Template{
		Key:      "web_app",
		Name:     "Web Application",
		Sections: []string{"Overview", "User Flows", "Data Requirements", "Implementation Guide"},
	}
	raw := strings.Join([]string{
		"## Overview", "A storefront for \"plants\": yes",
		"## User Flows", "1. Browse", "2. Checkout",
		"## Implementation Guide", "```go", "## not a heading", "```",
		"## Hosting", "Static hosting",
	}, "\n")
	doc, _ := requirements.ParseSections(raw, tmpl)
	return doc
}

func TestParseFormat(t *testing.T) {
	cases := map[string]output.Format{
		"md":       output.Markdown,
		"Markdown": output.Markdown,
		"json":     output.JSON,
		" YML ":    output.YAML,
		"yaml":     output.YAML,
	}
	for in, want := range cases {
		got, err := output.ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := output.ParseFormat("pdf"); !errors.Is(err, output.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	got := output.DefaultPath("out", "/tmp/shots/login.screen.png", output.YAML)
	if got != "out/login.screen-requirements.yaml" {
		t.Fatalf("unexpected default path %q", got)
	}
	if ext := output.FileExtension(output.Markdown); ext != "md" {
		t.Fatalf("unexpected markdown extension %q", ext)
	}
}

func TestSerializeMarkdownKeepsSectionOrder(t *testing.T) {
	doc := sampleDocument()
	data, err := output.Serialize(doc, output.Markdown)
	if err != nil {
		t.Fatalf("Serialize returned error: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "# Web Application Requirements\n\n*Template: web_app | Sections: 5*\n") {
		t.Fatalf("unexpected header:\n%s", text)
	}
	last := -1
	for _, name := range doc.SectionNames() {
		idx := strings.Index(text, "\n## "+name+"\n")
		if idx <= last {
			t.Fatalf("section %q out of order in:\n%s", name, text)
		}
		last = idx
	}
	if !strings.Contains(text, requirements.Placeholder) {
		t.Fatal("placeholder section missing from markdown")
	}
}

func TestSerializeJSONIsOrderedObject(t *testing.T) {
	data, err := output.Serialize(sampleDocument(), output.JSON)
	if err != nil {
		t.Fatalf("Serialize returned error: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("output is not valid json: %v\n%s", err, data)
	}
	text := string(data)
	if strings.Index(text, `"Overview"`) > strings.Index(text, `"Implementation Guide"`) {
		t.Fatalf("sections reordered:\n%s", text)
	}
	if strings.Index(text, `"Implementation Guide"`) > strings.Index(text, `"Additional Notes"`) {
		t.Fatalf("additional notes should come last:\n%s", text)
	}
}

func TestRoundTrip(t *testing.T) {
	doc := sampleDocument()
	for _, f := range []output.Format{output.Markdown, output.JSON, output.YAML} {
		t.Run(string(f), func(t *testing.T) {
			data, err := output.Serialize(doc, f)
			if err != nil {
				t.Fatalf("Serialize returned error: %v", err)
			}
			back, err := output.Parse(data, f)
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if !reflect.DeepEqual(back, doc) {
				t.Fatalf("round trip mismatch\nwant %+v\ngot  %+v", doc, back)
			}
		})
	}
}

func TestSerializeRejectsUnknownFormat(t *testing.T) {
	if _, err := output.Serialize(sampleDocument(), output.Format("pdf")); !errors.Is(err, output.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []struct {
		format output.Format
		data   string
	}{
		{output.JSON, `["not", "an", "object"]`},
		{output.JSON, `{"title": "x", "sections": {}}`},
		{output.YAML, "- just\n- a list\n"},
		{output.Markdown, "no headings here\n"},
	}
	for _, tc := range cases {
		if _, err := output.Parse([]byte(tc.data), tc.format); !errors.Is(err, output.ErrMalformedDocument) {
			t.Fatalf("%s %q: expected ErrMalformedDocument, got %v", tc.format, tc.data, err)
		}
	}
}
