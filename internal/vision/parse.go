package vision

import (
	"regexp"
	"strings"
)

// MinStructuredComponents is the number of recognised components a response
// needs before it is treated as structured.
const MinStructuredComponents = 1

// ParseKind tags a ParseResult.
type ParseKind int

const (
	Unstructured ParseKind = iota
	Parsed
)

func (k ParseKind) String() string {
	if k == Parsed {
		return "parsed"
	}
	return "unstructured"
}

// Sections holds the categorised content of a parsed response.
type Sections struct {
	Components   []Component
	Layout       []string
	TextContent  []string
	Interactions []string
	Styling      []string
	DataElements []string
}

// ParseResult is either Parsed (Sections valid) or Unstructured (only Raw
// valid). Callers must switch on Kind.
type ParseResult struct {
	Kind     ParseKind
	Sections Sections
	Raw      string
}

type category int

const (
	categoryNone category = iota
	categoryComponents
	categoryLayout
	categoryText
	categoryInteractions
	categoryStyling
	categoryData
)

// Order matters: "Data Elements" must not be taken for components and
// "Text Content" must not be taken for layout.
var categoryKeywords = []struct {
	cat      category
	keywords []string
}{
	{categoryData, []string{"data"}},
	{categoryInteractions, []string{"interaction", "action", "behavio"}},
	{categoryStyling, []string{"style", "styling", "visual", "color", "colour", "typography"}},
	{categoryLayout, []string{"layout", "structure", "hierarchy"}},
	{categoryText, []string{"text", "label", "heading", "copy"}},
	{categoryComponents, []string{"component", "element", "widget", "control"}},
}

var (
	numberedPrefix = regexp.MustCompile(`^\d+[.)]\s+`)
	bulletPrefix   = regexp.MustCompile(`^[-*•–+]\s+`)
	parenRegion    = regexp.MustCompile(`\s*\(([^)]*)\)\s*$`)
	locationSuffix = regexp.MustCompile(`(?i)\s+(?:in|at|on) the ([a-z -]+)$`)
)

var widgetWords = []string{
	"button", "input", "field", "textbox", "text box", "link", "navbar", "navigation", "nav",
	"sidebar", "card", "table", "list", "chart", "graph", "form", "modal", "dialog",
	"dropdown", "select", "checkbox", "radio", "toggle", "switch", "tab", "icon", "image",
	"avatar", "header", "footer", "menu", "search", "slider", "badge", "banner", "logo",
	"widget", "label", "breadcrumb", "pagination", "tooltip", "toolbar", "carousel",
}

// Parse extracts categories from a vision model response.
func Parse(raw string) ParseResult {
	var sections Sections
	current := categoryNone

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if cat, rest, ok := parseHeader(line); ok {
			current = cat
			if rest != "" {
				addInline(&sections, current, rest)
			}
			continue
		}
		item, ok := listItem(line)
		if !ok || current == categoryNone {
			continue
		}
		addItem(&sections, current, item)
	}

	if len(sections.Components) < MinStructuredComponents {
		return ParseResult{Kind: Unstructured, Raw: raw}
	}
	return ParseResult{Kind: Parsed, Sections: sections, Raw: raw}
}

// parseHeader recognises "## UI Components", "**Layout Structure**",
// "2. **Text Content**:", and "Interactions: ..." lines. Plain bullet and
// numbered lines are items, never headers.
func parseHeader(line string) (category, string, bool) {
	text := line
	strong := false
	if strings.HasPrefix(text, "#") {
		text = strings.TrimSpace(strings.TrimLeft(text, "#"))
		strong = true
	}
	numbered, bulleted := false, false
	if loc := numberedPrefix.FindStringIndex(text); loc != nil {
		text, numbered = text[loc[1]:], true
	} else if loc := bulletPrefix.FindStringIndex(text); loc != nil {
		text, bulleted = text[loc[1]:], true
	}

	head, rest, hasColon := strings.Cut(text, ":")
	if strings.HasPrefix(head, "**") || strings.HasPrefix(head, "__") {
		strong = true
	}
	head = strings.TrimSpace(strings.Trim(head, "*_ "))
	rest = strings.TrimSpace(strings.Trim(strings.TrimSpace(rest), "*_"))
	words := len(strings.Fields(head))
	if head == "" || words > 5 {
		return categoryNone, "", false
	}

	switch {
	case strong:
		if bulleted && rest != "" {
			return categoryNone, "", false
		}
	case numbered || bulleted:
		return categoryNone, "", false
	case hasColon:
		if rest != "" && words > 3 {
			return categoryNone, "", false
		}
	default:
		return categoryNone, "", false
	}

	cat := categoryFor(head)
	if cat == categoryNone {
		return categoryNone, "", false
	}
	return cat, rest, true
}

func categoryFor(head string) category {
	lower := strings.ToLower(head)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.cat
			}
		}
	}
	return categoryNone
}

func listItem(line string) (string, bool) {
	if loc := bulletPrefix.FindStringIndex(line); loc != nil {
		return cleanItem(line[loc[1]:]), true
	}
	if loc := numberedPrefix.FindStringIndex(line); loc != nil {
		return cleanItem(line[loc[1]:]), true
	}
	return "", false
}

func cleanItem(item string) string {
	item = strings.ReplaceAll(item, "**", "")
	item = strings.ReplaceAll(item, "`", "")
	return strings.TrimSpace(item)
}

func addInline(s *Sections, cat category, rest string) {
	if cat == categoryComponents && strings.Contains(rest, ",") {
		for _, part := range strings.Split(rest, ",") {
			if part = cleanItem(strings.TrimSuffix(strings.TrimSpace(part), ".")); part != "" {
				addItem(s, cat, part)
			}
		}
		return
	}
	addItem(s, cat, cleanItem(rest))
}

func addItem(s *Sections, cat category, item string) {
	if item == "" {
		return
	}
	switch cat {
	case categoryComponents:
		s.Components = append(s.Components, parseComponent(item))
	case categoryLayout:
		s.Layout = append(s.Layout, item)
	case categoryText:
		s.TextContent = append(s.TextContent, item)
	case categoryInteractions:
		s.Interactions = append(s.Interactions, item)
	case categoryStyling:
		s.Styling = append(s.Styling, item)
	case categoryData:
		s.DataElements = append(s.DataElements, item)
	}
}

// parseComponent accepts "Button: Submit", "Submit button (top right)", and
// "Search field in the header".
func parseComponent(item string) Component {
	var c Component
	if m := parenRegion.FindStringSubmatchIndex(item); m != nil {
		c.Region = strings.TrimSpace(item[m[2]:m[3]])
		item = strings.TrimSpace(item[:m[0]])
	} else if m := locationSuffix.FindStringSubmatchIndex(item); m != nil {
		c.Region = strings.TrimSpace(item[m[2]:m[3]])
		item = strings.TrimSpace(item[:m[0]])
	}

	if idx := strings.Index(item, ":"); idx > 0 {
		head := strings.TrimSpace(item[:idx])
		tail := strings.TrimSpace(item[idx+1:])
		if widget := widgetType(head); widget != "" && tail != "" {
			c.Type = widget
			c.Label = tail
			return c
		}
		c.Label = head
		c.Type = widgetType(head)
		if c.Type == "" {
			c.Type = widgetType(tail)
		}
	} else {
		c.Label = item
		c.Type = widgetType(item)
	}
	if c.Type == "" {
		c.Type = "element"
	}
	return c
}

func widgetType(text string) string {
	lower := strings.ToLower(text)
	best, bestIdx := "", -1
	for _, w := range widgetWords {
		idx := indexWord(lower, w)
		if idx < 0 {
			continue
		}
		// The last widget word names the type: "submit button", "email input field".
		if idx > bestIdx || (idx == bestIdx && len(w) > len(best)) {
			best, bestIdx = w, idx
		}
	}
	return best
}

func indexWord(text, word string) int {
	start := 0
	for {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return -1
		}
		idx += start
		end := idx + len(word)
		before := idx == 0 || !isLetter(text[idx-1])
		after := end == len(text) || !isLetter(text[end]) || text[end] == 's'
		if before && after {
			return idx
		}
		start = idx + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
