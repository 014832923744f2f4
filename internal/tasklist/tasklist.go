// Package tasklist parses GitHub-style task checklists out of markdown and
// derives the stable task keys that link checklist items to remote issues.
//
// Parsing is strictly line-based. Foundry never needs a markdown AST: tasks
// are single lines, sections are heading lines, and everything else passes
// through untouched. Rendering a parsed, unmodified list reproduces the
// input byte for byte.
package tasklist

import (
	"regexp"
	"strings"
)

// --- Status enum ---

// Status is the checkbox state of a task.
type Status string

const (
	StatusTodo Status = "todo"
	StatusDone Status = "done"
)

// checkboxPattern matches a GFM task line: optional indent, a - or *
// bullet, the checkbox, then the task text. Submatch 4 is the mark inside
// the brackets, submatch 6 the text.
var checkboxPattern = regexp.MustCompile(`^([ \t]*)([-*])([ \t]+)\[([ xX])\]([ \t]+)(.*)$`)

// headingPattern matches an ATX heading of any level.
var headingPattern = regexp.MustCompile(`^(#{1,6})[ \t]+(.+?)[ \t]*$`)

// Item is one checklist entry.
type Item struct {
	Text    string // text after the checkbox, without trailing CR
	Status  Status
	Line    int    // index into List.Lines
	Indent  string // leading whitespace, preserved on edits
	Section string // text of the enclosing heading, "" when none
}

// Key returns the item's task key.
func (it Item) Key() string {
	return Key(it.Text)
}

// List is a parsed document: every source line plus the checklist items
// found in them. Items reference lines by index; edits mutate Lines and
// re-render with Render.
type List struct {
	Lines []string
	Items []Item
}

// Parse scans content for checklist items, tracking the enclosing heading
// of each. Lines split on \n; carriage returns stay on the line so Render
// round-trips CRLF content unchanged.
func Parse(content string) *List {
	lines := strings.Split(content, "\n")
	l := &List{Lines: lines}

	section := ""
	for i, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			section = m[2]
			continue
		}
		m := checkboxPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		status := StatusTodo
		if m[4] == "x" || m[4] == "X" {
			status = StatusDone
		}
		l.Items = append(l.Items, Item{
			Text:    m[6],
			Status:  status,
			Line:    i,
			Indent:  m[1],
			Section: section,
		})
	}
	return l
}

// Render reassembles the document.
func (l *List) Render() string {
	return strings.Join(l.Lines, "\n")
}

// SetStatus flips the checkbox of item i in place. Returns false when the
// item already has the requested status. Only the mark character changes;
// spacing and text are preserved exactly.
func (l *List) SetStatus(i int, status Status) bool {
	it := &l.Items[i]
	if it.Status == status {
		return false
	}
	raw := l.Lines[it.Line]
	line := strings.TrimSuffix(raw, "\r")
	loc := checkboxPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return false
	}
	mark := " "
	if status == StatusDone {
		mark = "x"
	}
	// Submatch 4 spans loc[8:10].
	updated := line[:loc[8]] + mark + line[loc[10]:]
	if strings.HasSuffix(raw, "\r") {
		updated += "\r"
	}
	l.Lines[it.Line] = updated
	it.Status = status
	return true
}

// ReplaceText rewrites the text of item i, keeping indent, bullet, and
// checkbox state.
func (l *List) ReplaceText(i int, text string) {
	it := &l.Items[i]
	raw := l.Lines[it.Line]
	line := strings.TrimSuffix(raw, "\r")
	loc := checkboxPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return
	}
	// Submatch 6 spans loc[12:14]; everything before it is preserved.
	updated := line[:loc[12]] + text
	if strings.HasSuffix(raw, "\r") {
		updated += "\r"
	}
	l.Lines[it.Line] = updated
	it.Text = text
}

// FormatItem renders a fresh checklist line.
func FormatItem(indent string, status Status, text string) string {
	mark := " "
	if status == StatusDone {
		mark = "x"
	}
	return indent + "- [" + mark + "] " + text
}

// Counts returns total and done item counts.
func (l *List) Counts() (total, done int) {
	for _, it := range l.Items {
		total++
		if it.Status == StatusDone {
			done++
		}
	}
	return total, done
}

// Keys maps each task key to the indexes of the items bearing it, in
// document order. Duplicate keys are legal; callers disambiguate
// positionally.
func (l *List) Keys() map[string][]int {
	keys := make(map[string][]int, len(l.Items))
	for i, it := range l.Items {
		k := it.Key()
		keys[k] = append(keys[k], i)
	}
	return keys
}

// --- Task keys ---

// Key normalizes task text into its stable key: lowercase, every run of
// non-alphanumeric characters collapsed to a single hyphen, trimmed.
// Example: "Add OAuth2 login!" becomes "add-oauth2-login". Text that
// normalizes to nothing falls back to "task".
func Key(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))

	var b strings.Builder
	prevHyphen := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	key := strings.Trim(b.String(), "-")
	if key == "" {
		return "task"
	}
	return key
}
