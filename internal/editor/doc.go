// Package editor implements foundry's two mutation engines: structured
// edit commands (section and checklist operations addressed by selectors)
// and context patches (anchor-based line edits with blank-line tolerance).
//
// Both engines are pure: they take document content in, return updated
// content plus a batch report, and never touch storage. The operation
// layer decides whether the result may be written; a batch with any failed
// entry is never written, so files cannot be partially updated.
package editor

import (
	"regexp"
	"strings"
)

// document is the line model both engines work on. Content is normalized
// to LF for matching; a document that arrived with CRLF endings renders
// back entirely CRLF.
type document struct {
	lines []string
	crlf  bool
}

func parseDoc(content string) *document {
	crlf := strings.Contains(content, "\r\n")
	if crlf {
		content = strings.ReplaceAll(content, "\r\n", "\n")
	}
	return &document{lines: strings.Split(content, "\n"), crlf: crlf}
}

func (d *document) render() string {
	s := strings.Join(d.lines, "\n")
	if d.crlf {
		s = strings.ReplaceAll(s, "\n", "\r\n")
	}
	return s
}

// headingPattern matches an ATX heading of any level.
var headingPattern = regexp.MustCompile(`^(#{1,6})[ \t]+(.+?)[ \t]*$`)

// listItemPattern matches bullet and numbered list lines.
var listItemPattern = regexp.MustCompile(`^[ \t]*(?:[-*+]|\d+[.)])[ \t]+`)

// section is one heading's extent: the heading line at start, the body up
// to (not including) end. end is the index of the next heading of the same
// or higher level, or len(lines).
type section struct {
	text  string // heading text without the marker
	line  string // full heading line, used in candidate lists
	level int
	start int
	end   int
}

// sections scans the document for headings and computes extents.
func (d *document) sections() []section {
	var secs []section
	for i, ln := range d.lines {
		m := headingPattern.FindStringSubmatch(ln)
		if m == nil {
			continue
		}
		secs = append(secs, section{
			text:  m[2],
			line:  ln,
			level: len(m[1]),
			start: i,
			end:   len(d.lines),
		})
	}
	for i := range secs {
		for j := i + 1; j < len(secs); j++ {
			if secs[j].level <= secs[i].level {
				secs[i].end = secs[j].start
				break
			}
		}
	}
	return secs
}

// headingLines returns every heading line, for candidate suggestions.
func (d *document) headingLines() []string {
	secs := d.sections()
	out := make([]string, len(secs))
	for i, s := range secs {
		out[i] = s.line
	}
	return out
}

// normalizeHeading strips the ATX marker and surrounding space from a
// section selector value, so "## Setup", "Setup" and " setup " can all
// address the same heading.
func normalizeHeading(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#")
	return strings.TrimSpace(s)
}

// findSection resolves a section selector value against the document.
// Resolution tiers: exact heading text, case-insensitive, unique prefix.
// Returns (zero, miss=true) when nothing matches; ambiguity within the
// winning tier returns every contender.
func (d *document) findSection(value string) (sec section, matches []section, miss bool) {
	want := normalizeHeading(value)
	secs := d.sections()

	var exact, ci, prefix []section
	for _, s := range secs {
		switch {
		case s.text == want:
			exact = append(exact, s)
		case strings.EqualFold(s.text, want):
			ci = append(ci, s)
		case len(want) > 0 && strings.HasPrefix(strings.ToLower(s.text), strings.ToLower(want)):
			prefix = append(prefix, s)
		}
	}

	for _, tier := range [][]section{exact, ci, prefix} {
		if len(tier) == 1 {
			return tier[0], tier, false
		}
		if len(tier) > 1 {
			return section{}, tier, false
		}
	}
	return section{}, nil, true
}

// isBlank reports whether a line is empty or whitespace only.
func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// splitContent turns a content payload into lines, tolerating CRLF input.
func splitContent(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

// bodyText joins a line range and trims outer blank lines, for
// idempotency comparisons.
func bodyText(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
