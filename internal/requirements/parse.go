package requirements

import (
	"regexp"
	"strings"

	"featuregen/internal/templates"
)

// ParseReport summarises how a model response mapped onto the template.
type ParseReport struct {
	Matched  []string
	Missing  []string
	Extras   []string
	Degraded bool
}

// DegradedNotice prefixes the first section when no heading matched.
const DegradedNotice = "> The model response did not follow the requested section structure. The full response is kept here."

var (
	markdownHeading = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	boldHeading     = regexp.MustCompile(`^(?:\*\*|__)(.+?)(?:\*\*|__)\s*:?\s*$`)
	labelHeading    = regexp.MustCompile(`^([^:]{2,80}):\s*(.*)$`)
	horizontalRule  = regexp.MustCompile(`^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`)
	listItem        = regexp.MustCompile(`^[-*+>|]\s`)
)

type heading struct {
	level  int // 1-6 for Markdown headings, 0 otherwise
	text   string
	inline string
	label  bool
}

func detectHeading(line string) (heading, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return heading{}, false
	}
	if m := markdownHeading.FindStringSubmatch(trimmed); m != nil {
		return heading{level: len(m[1]), text: m[2]}, true
	}
	if m := boldHeading.FindStringSubmatch(trimmed); m != nil {
		return heading{text: m[1]}, true
	}
	if listItem.MatchString(trimmed) {
		return heading{}, false
	}
	if m := labelHeading.FindStringSubmatch(strings.Trim(trimmed, "*_")); m != nil {
		return heading{text: m[1], inline: strings.TrimSpace(strings.Trim(m[2], "*_ ")), label: true}, true
	}
	return heading{}, false
}

type block struct {
	name    string
	section int // index into template sections, -1 for extras and preamble
	notes   bool
	lines   []string
}

func (b *block) content() string {
	lines := b.lines
	for len(lines) > 0 && (strings.TrimSpace(lines[len(lines)-1]) == "" || horizontalRule.MatchString(lines[len(lines)-1])) {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ParseSections splits raw model output into the sections of tmpl.
func ParseSections(raw string, tmpl templates.Template) (Document, ParseReport) {
	lookup := make(map[string]int, len(tmpl.Sections))
	for i, name := range tmpl.Sections {
		lookup[templates.FoldSection(name)] = i
	}
	notesKey := templates.FoldSection(templates.AdditionalNotes)
	notesIdx := -1
	if idx, ok := lookup[notesKey]; ok {
		notesIdx = idx
	}

	preamble := &block{section: -1}
	blocks := []*block{preamble}
	current := preamble
	sectionLevel := 0
	matchedAny := false

	inFence := false
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if h, ok := detectHeading(line); ok && !inFence {
			folded := templates.FoldSection(h.text)
			if idx, hit := lookup[folded]; hit {
				if h.level > 0 && sectionLevel == 0 {
					sectionLevel = h.level
				}
				matchedAny = true
				current = &block{name: tmpl.Sections[idx], section: idx}
				if h.inline != "" {
					current.lines = append(current.lines, h.inline)
				}
				blocks = append(blocks, current)
				continue
			}
			if folded == notesKey && (h.level == 0 || sectionLevel == 0 || h.level <= sectionLevel) {
				current = &block{name: templates.AdditionalNotes, section: -1, notes: true}
				if h.inline != "" {
					current.lines = append(current.lines, h.inline)
				}
				blocks = append(blocks, current)
				continue
			}
			if h.level > 0 && opensBlock(h.level, sectionLevel, current) {
				if !matchedAny && h.level == 1 {
					// Document title line; the title comes from the template.
					continue
				}
				current = &block{name: strings.TrimSpace(strings.Trim(h.text, "*_")), section: -1}
				blocks = append(blocks, current)
				continue
			}
		}
		current.lines = append(current.lines, line)
	}

	doc := Document{Title: TitleFor(tmpl), Template: tmpl.Key}
	var report ParseReport

	if !matchedAny {
		body := strings.TrimSpace(raw)
		report.Degraded = body != ""
		for i, name := range tmpl.Sections {
			s := Section{Name: name, Content: Placeholder}
			if i == 0 && body != "" {
				s.Content = DegradedNotice + "\n\n" + body
				s.Generated = true
			}
			doc.Sections = append(doc.Sections, s)
			if !s.Generated {
				report.Missing = append(report.Missing, name)
			}
		}
		return doc, report
	}

	contents := make([][]string, len(tmpl.Sections))
	var extras []string
	for _, b := range blocks {
		text := b.content()
		switch {
		case b.section >= 0:
			if text != "" {
				contents[b.section] = append(contents[b.section], text)
			}
		case b == preamble:
			if countNonEmpty(b.lines) > 1 {
				extras = append(extras, text)
			}
		case b.notes:
			if text != "" {
				extras = append(extras, text)
			}
		case text != "":
			extras = append(extras, "### "+b.name+"\n\n"+text)
			report.Extras = append(report.Extras, b.name)
		}
	}
	if notesIdx >= 0 && len(extras) > 0 {
		contents[notesIdx] = append(contents[notesIdx], extras...)
		extras = nil
	}

	for i, name := range tmpl.Sections {
		s := Section{Name: name, Content: Placeholder}
		if len(contents[i]) > 0 {
			s.Content = strings.Join(contents[i], "\n\n")
			s.Generated = true
			report.Matched = append(report.Matched, name)
		} else {
			report.Missing = append(report.Missing, name)
		}
		doc.Sections = append(doc.Sections, s)
	}
	if len(extras) > 0 {
		doc.Sections = append(doc.Sections, Section{
			Name:      templates.AdditionalNotes,
			Content:   strings.Join(extras, "\n\n"),
			Generated: true,
		})
	}
	return doc, report
}

// opensBlock reports whether an unknown Markdown heading at level starts a new
// extras block. Once sections are known to be Markdown headings, only headings
// at or above that level do. When sections are bold or label lines, Markdown
// headings inside a matched section are subsections of it.
func opensBlock(level, sectionLevel int, current *block) bool {
	if sectionLevel > 0 {
		return level <= sectionLevel
	}
	return current.section < 0
}

func countNonEmpty(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}
