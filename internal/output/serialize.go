package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"featuregen/internal/requirements"
)

// Serialize renders doc in format f.
func Serialize(doc requirements.Document, f Format) ([]byte, error) {
	switch f {
	case Markdown:
		return markdown(doc), nil
	case JSON:
		return jsonDocument(doc)
	case YAML:
		return yamlDocument(doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

func markdown(doc requirements.Document) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	fmt.Fprintf(&b, "*Template: %s | Sections: %d*\n", doc.Template, len(doc.Sections))
	for _, s := range doc.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", s.Name, strings.TrimSpace(s.Content))
	}
	return []byte(b.String())
}

// jsonDocument writes the sections object by hand: encoding/json sorts map
// keys, and section order is part of the contract.
func jsonDocument(doc requirements.Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"title":`)
	if err := writeJSONValue(&buf, doc.Title); err != nil {
		return nil, err
	}
	buf.WriteString(`,"template":`)
	if err := writeJSONValue(&buf, doc.Template); err != nil {
		return nil, err
	}
	buf.WriteString(`,"sections":{`)
	for i, s := range doc.Sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONValue(&buf, s.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONValue(&buf, s.Content); err != nil {
			return nil, err
		}
	}
	buf.WriteString("}}")

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent json: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeJSONValue(buf *bytes.Buffer, v string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	buf.Write(data)
	return nil
}

func yamlDocument(doc requirements.Document) ([]byte, error) {
	sections := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range doc.Sections {
		sections.Content = append(sections.Content, scalar(s.Name), blockScalar(s.Content))
	}
	root := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		scalar("title"), scalar(doc.Title),
		scalar("template"), scalar(doc.Template),
		scalar("sections"), sections,
	}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func blockScalar(v string) *yaml.Node {
	n := scalar(strings.TrimSpace(v))
	if strings.Contains(n.Value, "\n") {
		n.Style = yaml.LiteralStyle
	}
	return n
}
