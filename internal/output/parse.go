package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"featuregen/internal/requirements"
)

// ErrMalformedDocument reports a saved document that cannot be read back.
var ErrMalformedDocument = errors.New("malformed requirements document")

// Parse reads a document previously written by Serialize.
func Parse(data []byte, f Format) (requirements.Document, error) {
	var (
		doc requirements.Document
		err error
	)
	switch f {
	case JSON:
		doc, err = parseJSON(data)
	case YAML:
		doc, err = parseYAML(data)
	case Markdown:
		doc, err = parseMarkdown(data)
	default:
		return requirements.Document{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
	if err != nil {
		return requirements.Document{}, err
	}
	if len(doc.Sections) == 0 {
		return requirements.Document{}, fmt.Errorf("%w: no sections", ErrMalformedDocument)
	}
	return doc, nil
}

func section(name, content string) requirements.Section {
	content = strings.TrimSpace(content)
	return requirements.Section{Name: name, Content: content, Generated: content != requirements.Placeholder}
}

func parseJSON(data []byte) (requirements.Document, error) {
	var doc requirements.Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return doc, err
	}
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return doc, err
		}
		switch key {
		case "title":
			doc.Title, err = stringToken(dec)
		case "template":
			doc.Template, err = stringToken(dec)
		case "sections":
			doc.Sections, err = jsonSections(dec)
		default:
			var skip json.RawMessage
			err = dec.Decode(&skip)
		}
		if err != nil {
			return doc, err
		}
	}
	return doc, nil
}

// jsonSections walks the sections object token by token to keep its order.
func jsonSections(dec *json.Decoder) ([]requirements.Section, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var sections []requirements.Section
	for dec.More() {
		name, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		content, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section(name, content))
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return sections, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q", ErrMalformedDocument, want)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected string, got %v", ErrMalformedDocument, tok)
	}
	return s, nil
}

func parseYAML(data []byte) (requirements.Document, error) {
	var doc requirements.Document
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return doc, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return doc, fmt.Errorf("%w: expected a mapping", ErrMalformedDocument)
	}
	fields := root.Content[0].Content
	for i := 0; i+1 < len(fields); i += 2 {
		key, value := fields[i].Value, fields[i+1]
		switch key {
		case "title":
			doc.Title = value.Value
		case "template":
			doc.Template = value.Value
		case "sections":
			if value.Kind != yaml.MappingNode {
				return doc, fmt.Errorf("%w: sections must be a mapping", ErrMalformedDocument)
			}
			for j := 0; j+1 < len(value.Content); j += 2 {
				doc.Sections = append(doc.Sections, section(value.Content[j].Value, value.Content[j+1].Value))
			}
		}
	}
	return doc, nil
}

var templateMeta = regexp.MustCompile(`^\*Template: ([^|*]+?)\s*(?:\||\*)`)

func parseMarkdown(data []byte) (requirements.Document, error) {
	var (
		doc     requirements.Document
		current *requirements.Section
		body    []string
		inFence bool
	)
	flush := func() {
		if current != nil {
			doc.Sections = append(doc.Sections, section(current.Name, strings.Join(body, "\n")))
		}
		body = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		switch {
		case inFence:
		case current == nil && doc.Title == "" && strings.HasPrefix(line, "# "):
			doc.Title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			continue
		case current == nil && templateMeta.MatchString(line):
			doc.Template = templateMeta.FindStringSubmatch(line)[1]
			continue
		case strings.HasPrefix(line, "## "):
			flush()
			current = &requirements.Section{Name: strings.TrimSpace(strings.TrimPrefix(line, "## "))}
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return doc, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	flush()
	return doc, nil
}
