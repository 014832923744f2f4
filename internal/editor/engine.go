package editor

import (
	"fmt"
	"strings"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/tasklist"
)

// --- Outcome enum ---

// Outcome classifies what happened to one command or patch.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped_idempotent"
	OutcomeFailed  Outcome = "failed"
)

// CommandResult is the per-command entry in a batch report.
type CommandResult struct {
	Index      int              `json:"index"`
	Command    CommandOp        `json:"command"`
	Target     backend.FileType `json:"target"`
	Outcome    Outcome          `json:"outcome"`
	Message    string           `json:"message,omitempty"`
	Candidates []string         `json:"candidates,omitempty"`
}

// BatchReport aggregates a whole command batch. Failed > 0 means nothing
// was (or may be) written.
type BatchReport struct {
	Results      []CommandResult    `json:"results"`
	Applied      int                `json:"applied"`
	Skipped      int                `json:"skipped_idempotent"`
	Failed       int                `json:"failed"`
	FilesChanged []backend.FileType `json:"files_changed"`
}

// Summary renders the counters in one line.
func (r *BatchReport) Summary() string {
	return fmt.Sprintf("%d applied, %d skipped_idempotent, %d failed", r.Applied, r.Skipped, r.Failed)
}

// Apply runs a command batch against the given documents and returns the
// updated documents plus a report. It is pure: callers own persistence.
//
// Every command is evaluated even after a failure so the report carries
// all failures and their candidates in one round trip, but a batch with
// any failure returns nil documents: partial application is never
// possible. Failed commands do not modify the in-memory state, so later
// commands see only the effects of successful ones.
func Apply(docs map[backend.FileType]string, cmds []Command) (map[backend.FileType]string, *BatchReport, error) {
	if len(cmds) == 0 {
		return nil, nil, backend.InvalidInputf("apply_commands", "command batch is empty")
	}

	state := make(map[backend.FileType]*document, len(docs))
	report := &BatchReport{FilesChanged: []backend.FileType{}}

	for i, cmd := range cmds {
		res := CommandResult{Index: i, Command: cmd.Op, Target: cmd.Target}

		doc, ok := state[cmd.Target]
		if !ok {
			content, loaded := docs[cmd.Target]
			if !loaded {
				res.Outcome = OutcomeFailed
				res.Message = fmt.Sprintf("no %s document was loaded", cmd.Target)
				report.add(res)
				continue
			}
			doc = parseDoc(content)
			state[cmd.Target] = doc
		}

		res.Outcome, res.Message, res.Candidates = applyCommand(doc, cmd)
		report.add(res)
	}

	if report.Failed > 0 {
		return nil, report, nil
	}

	updated := make(map[backend.FileType]string)
	for _, ft := range backend.FileTypes() {
		doc, ok := state[ft]
		if !ok {
			continue
		}
		out := doc.render()
		if out != docs[ft] {
			updated[ft] = out
			report.FilesChanged = append(report.FilesChanged, ft)
		}
	}
	return updated, report, nil
}

func (r *BatchReport) add(res CommandResult) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeApplied:
		r.Applied++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// applyCommand mutates doc in place and reports the outcome. Failures
// leave the document untouched.
func applyCommand(doc *document, cmd Command) (Outcome, string, []string) {
	switch cmd.Op {
	case OpSetTaskStatus:
		return setTaskStatus(doc, cmd)
	case OpUpsertTask:
		return upsertTask(doc, cmd)
	case OpAppendToSection:
		return appendToSection(doc, cmd)
	case OpRemoveListItem:
		return removeListItem(doc, cmd)
	case OpRemoveFromSection:
		return removeFromSection(doc, cmd)
	case OpRemoveSection:
		return removeSection(doc, cmd)
	case OpReplaceListItem:
		return replaceListItem(doc, cmd)
	case OpReplaceInSection:
		return replaceInSection(doc, cmd)
	case OpReplaceSectionContent:
		return replaceSectionContent(doc, cmd)
	default:
		return OutcomeFailed, fmt.Sprintf("unknown command %q", cmd.Op), nil
	}
}

// --- Section resolution ---

// resolveSection wraps findSection with failure messages and candidates.
func resolveSection(doc *document, value string) (section, Outcome, string, []string) {
	sec, matches, miss := doc.findSection(value)
	if miss {
		return section{}, OutcomeFailed,
			fmt.Sprintf("no section matches %q", value),
			rankCandidates(value, doc.headingLines())
	}
	if len(matches) > 1 {
		cands := make([]string, 0, len(matches))
		for _, m := range matches {
			cands = append(cands, fmt.Sprintf("line %d: %s", m.start+1, m.line))
		}
		return section{}, OutcomeFailed,
			fmt.Sprintf("%d sections match %q; use the exact heading text", len(matches), value), cands
	}
	return sec, "", "", nil
}

// --- Task resolution ---

// taskScope is the checklist slice a task selector operates on. sec is
// set when the selector carried a section constraint.
type taskScope struct {
	list    *tasklist.List
	indexes []int // item indexes inside the scope, in document order
	sec     *section
}

// taskView parses the document's checklist and applies the optional
// section constraint of the selector.
func taskView(doc *document, sel Selector) (*taskScope, Outcome, string, []string) {
	list := tasklist.Parse(strings.Join(doc.lines, "\n"))
	scope := &taskScope{list: list}

	if sel.Section == "" {
		for i := range list.Items {
			scope.indexes = append(scope.indexes, i)
		}
		return scope, "", "", nil
	}

	sec, outcome, msg, cands := resolveSection(doc, sel.Section)
	if outcome == OutcomeFailed {
		return nil, outcome, msg, cands
	}
	scope.sec = &sec
	for i, it := range list.Items {
		if it.Line > sec.start && it.Line < sec.end {
			scope.indexes = append(scope.indexes, i)
		}
	}
	return scope, "", "", nil
}

// matchTasks resolves task text against the scope in three tiers: exact
// text, task key, then case-insensitive containment. The winning tier's
// matches are returned; later tiers are never mixed in.
func (s *taskScope) matchTasks(value string) []int {
	var exact, byKey, contains []int
	wantKey := tasklist.Key(value)
	wantLower := strings.ToLower(value)

	for _, i := range s.indexes {
		it := s.list.Items[i]
		switch {
		case it.Text == value:
			exact = append(exact, i)
		case it.Key() == wantKey:
			byKey = append(byKey, i)
		case strings.Contains(strings.ToLower(it.Text), wantLower):
			contains = append(contains, i)
		}
	}

	for _, tier := range [][]int{exact, byKey, contains} {
		if len(tier) > 0 {
			return tier
		}
	}
	return nil
}

// texts returns the scope's item texts, for candidate ranking.
func (s *taskScope) texts() []string {
	out := make([]string, 0, len(s.indexes))
	for _, i := range s.indexes {
		out = append(out, s.list.Items[i].Text)
	}
	return out
}

// ambiguousTasks renders "line N: text" candidates for multi-match
// failures.
func (s *taskScope) ambiguousTasks(matches []int) []string {
	cands := make([]string, 0, len(matches))
	for _, i := range matches {
		it := s.list.Items[i]
		cands = append(cands, fmt.Sprintf("line %d: %s", it.Line+1, it.Text))
	}
	return cands
}

// syncTasks writes the checklist's lines back into the document.
func syncTasks(doc *document, list *tasklist.List) {
	doc.lines = list.Lines
}

// --- Command handlers ---

func setTaskStatus(doc *document, cmd Command) (Outcome, string, []string) {
	scope, outcome, msg, cands := taskView(doc, cmd.Selector)
	if outcome == OutcomeFailed {
		return outcome, msg, cands
	}

	matches := scope.matchTasks(cmd.Selector.Value)
	switch {
	case len(matches) == 0:
		return OutcomeFailed, fmt.Sprintf("no task matches %q", cmd.Selector.Value),
			rankCandidates(cmd.Selector.Value, scope.texts())
	case len(matches) > 1:
		return OutcomeFailed,
			fmt.Sprintf("%d tasks match %q; add a section or use the exact text", len(matches), cmd.Selector.Value),
			scope.ambiguousTasks(matches)
	}

	if !scope.list.SetStatus(matches[0], cmd.Status) {
		return OutcomeSkipped, fmt.Sprintf("task already %s", cmd.Status), nil
	}
	syncTasks(doc, scope.list)
	return OutcomeApplied, "", nil
}

func upsertTask(doc *document, cmd Command) (Outcome, string, []string) {
	scope, outcome, msg, cands := taskView(doc, cmd.Selector)
	if outcome == OutcomeFailed {
		return outcome, msg, cands
	}

	status := cmd.Status
	if status == "" {
		status = tasklist.StatusTodo
	}

	matches := scope.matchTasks(cmd.Selector.Value)
	if len(matches) == 0 {
		// The selector may address a task this same batch already rewrote:
		// fall back to matching the new content's key before inserting.
		matches = scope.matchTasks(cmd.Content)
	}
	if len(matches) > 1 {
		return OutcomeFailed,
			fmt.Sprintf("%d tasks match %q; add a section or use the exact text", len(matches), cmd.Selector.Value),
			scope.ambiguousTasks(matches)
	}

	if len(matches) == 1 {
		i := matches[0]
		it := scope.list.Items[i]
		changed := false
		if it.Text != cmd.Content {
			scope.list.ReplaceText(i, cmd.Content)
			changed = true
		}
		if cmd.Status != "" && scope.list.SetStatus(i, cmd.Status) {
			changed = true
		}
		if !changed {
			return OutcomeSkipped, "task already up to date", nil
		}
		syncTasks(doc, scope.list)
		return OutcomeApplied, "", nil
	}

	// Insert a fresh item at the end of the scoped checklist.
	indent := ""
	var insertAt int
	switch {
	case len(scope.indexes) > 0:
		last := scope.list.Items[scope.indexes[len(scope.indexes)-1]]
		indent = last.Indent
		insertAt = last.Line + 1
	case scope.sec != nil:
		insertAt = sectionAppendPoint(doc, *scope.sec)
	default:
		insertAt = len(doc.lines)
		for insertAt > 0 && isBlank(doc.lines[insertAt-1]) {
			insertAt--
		}
	}

	line := tasklist.FormatItem(indent, status, cmd.Content)
	doc.lines = insertLines(doc.lines, insertAt, []string{line})
	return OutcomeApplied, "", nil
}

func appendToSection(doc *document, cmd Command) (Outcome, string, []string) {
	sec, outcome, msg, cands := resolveSection(doc, cmd.Selector.Value)
	if outcome == OutcomeFailed {
		return outcome, msg, cands
	}

	contentLines := splitContent(cmd.Content)
	if len(contentLines) == 0 {
		return OutcomeFailed, "append content is empty", nil
	}

	if sectionEndsWith(doc, sec, contentLines) {
		return OutcomeSkipped, "section already ends with this content", nil
	}

	insertAt := sectionAppendPoint(doc, sec)
	doc.lines = insertLines(doc.lines, insertAt, contentLines)
	return OutcomeApplied, "", nil
}

func removeListItem(doc *document, cmd Command) (Outcome, string, []string) {
	if cmd.Selector.Type == SelTaskText {
		scope, outcome, msg, _ := taskView(doc, cmd.Selector)
		if outcome == OutcomeFailed {
			// Removal of something whose context is gone is a no-op.
			return OutcomeSkipped, msg, nil
		}
		matches := scope.matchTasks(cmd.Selector.Value)
		switch {
		case len(matches) == 0:
			return OutcomeSkipped, fmt.Sprintf("no task matches %q; nothing to remove", cmd.Selector.Value), nil
		case len(matches) > 1:
			return OutcomeFailed,
				fmt.Sprintf("%d tasks match %q; use the exact text", len(matches), cmd.Selector.Value),
				scope.ambiguousTasks(matches)
		}
		doc.lines = deleteLine(doc.lines, scope.list.Items[matches[0]].Line)
		return OutcomeApplied, "", nil
	}

	matches := matchLines(doc.lines, 0, len(doc.lines), cmd.Selector.Value, true)
	switch {
	case len(matches) == 0:
		return OutcomeSkipped, fmt.Sprintf("no list item matches %q; nothing to remove", cmd.Selector.Value), nil
	case len(matches) > 1:
		return OutcomeFailed,
			fmt.Sprintf("%d list items match %q; use the exact text", len(matches), cmd.Selector.Value),
			ambiguousLines(doc.lines, matches)
	}
	doc.lines = deleteLine(doc.lines, matches[0])
	return OutcomeApplied, "", nil
}

func removeFromSection(doc *document, cmd Command) (Outcome, string, []string) {
	sec, matches, miss := doc.findSection(cmd.Selector.Section)
	if miss {
		return OutcomeSkipped, fmt.Sprintf("section %q not found; nothing to remove", cmd.Selector.Section), nil
	}
	if len(matches) > 1 {
		cands := make([]string, 0, len(matches))
		for _, m := range matches {
			cands = append(cands, fmt.Sprintf("line %d: %s", m.start+1, m.line))
		}
		return OutcomeFailed,
			fmt.Sprintf("%d sections match %q; use the exact heading text", len(matches), cmd.Selector.Section),
			cands
	}

	found := matchLines(doc.lines, sec.start+1, sec.end, cmd.Selector.Value, false)
	switch {
	case len(found) == 0:
		return OutcomeSkipped, fmt.Sprintf("nothing in %q matches %q; nothing to remove", sec.text, cmd.Selector.Value), nil
	case len(found) > 1:
		return OutcomeFailed,
			fmt.Sprintf("%d lines in %q match %q; use the exact text", len(found), sec.text, cmd.Selector.Value),
			ambiguousLines(doc.lines, found)
	}
	doc.lines = deleteLine(doc.lines, found[0])
	return OutcomeApplied, "", nil
}

func removeSection(doc *document, cmd Command) (Outcome, string, []string) {
	sec, matches, miss := doc.findSection(cmd.Selector.Value)
	if miss {
		return OutcomeSkipped, fmt.Sprintf("section %q not found; nothing to remove", cmd.Selector.Value), nil
	}
	if len(matches) > 1 {
		cands := make([]string, 0, len(matches))
		for _, m := range matches {
			cands = append(cands, fmt.Sprintf("line %d: %s", m.start+1, m.line))
		}
		return OutcomeFailed,
			fmt.Sprintf("%d sections match %q; use the exact heading text", len(matches), cmd.Selector.Value), cands
	}

	doc.lines = append(doc.lines[:sec.start], doc.lines[sec.end:]...)
	// Collapse the blank seam the removal can leave behind.
	if sec.start > 0 && sec.start < len(doc.lines) &&
		isBlank(doc.lines[sec.start-1]) && isBlank(doc.lines[sec.start]) {
		doc.lines = deleteLine(doc.lines, sec.start)
	}
	return OutcomeApplied, "", nil
}

func replaceListItem(doc *document, cmd Command) (Outcome, string, []string) {
	if cmd.Selector.Type == SelTaskText {
		scope, outcome, msg, cands := taskView(doc, cmd.Selector)
		if outcome == OutcomeFailed {
			return outcome, msg, cands
		}
		matches := scope.matchTasks(cmd.Selector.Value)
		switch {
		case len(matches) == 0:
			if len(scope.matchTasks(cmd.Content)) > 0 {
				return OutcomeSkipped, "replacement already present", nil
			}
			return OutcomeFailed, fmt.Sprintf("no task matches %q", cmd.Selector.Value),
				rankCandidates(cmd.Selector.Value, scope.texts())
		case len(matches) > 1:
			return OutcomeFailed,
				fmt.Sprintf("%d tasks match %q; use the exact text", len(matches), cmd.Selector.Value),
				scope.ambiguousTasks(matches)
		}
		i := matches[0]
		if scope.list.Items[i].Text == cmd.Content {
			return OutcomeSkipped, "replacement already present", nil
		}
		scope.list.ReplaceText(i, cmd.Content)
		syncTasks(doc, scope.list)
		return OutcomeApplied, "", nil
	}

	matches := matchLines(doc.lines, 0, len(doc.lines), cmd.Selector.Value, true)
	switch {
	case len(matches) == 0:
		if len(matchLines(doc.lines, 0, len(doc.lines), cmd.Content, true)) > 0 {
			return OutcomeSkipped, "replacement already present", nil
		}
		return OutcomeFailed, fmt.Sprintf("no list item matches %q", cmd.Selector.Value),
			rankCandidates(cmd.Selector.Value, listItemTexts(doc.lines))
	case len(matches) > 1:
		return OutcomeFailed,
			fmt.Sprintf("%d list items match %q; use the exact text", len(matches), cmd.Selector.Value),
			ambiguousLines(doc.lines, matches)
	}

	doc.lines[matches[0]] = rewriteListLine(doc.lines[matches[0]], cmd.Content)
	return OutcomeApplied, "", nil
}

func replaceInSection(doc *document, cmd Command) (Outcome, string, []string) {
	sec, outcome, msg, cands := resolveSection(doc, cmd.Selector.Section)
	if outcome == OutcomeFailed {
		return outcome, msg, cands
	}

	replacement := splitContent(cmd.Content)
	found := matchLines(doc.lines, sec.start+1, sec.end, cmd.Selector.Value, false)
	switch {
	case len(found) == 0:
		body := strings.Join(doc.lines[sec.start+1:sec.end], "\n")
		if len(replacement) > 0 && strings.Contains(body, strings.Join(replacement, "\n")) {
			return OutcomeSkipped, "replacement already present", nil
		}
		return OutcomeFailed,
			fmt.Sprintf("nothing in %q matches %q", sec.text, cmd.Selector.Value),
			rankCandidates(cmd.Selector.Value, nonBlankLines(doc.lines, sec.start+1, sec.end))
	case len(found) > 1:
		return OutcomeFailed,
			fmt.Sprintf("%d lines in %q match %q; use the exact text", len(found), sec.text, cmd.Selector.Value),
			ambiguousLines(doc.lines, found)
	}

	doc.lines = append(doc.lines[:found[0]], append(replacement, doc.lines[found[0]+1:]...)...)
	return OutcomeApplied, "", nil
}

func replaceSectionContent(doc *document, cmd Command) (Outcome, string, []string) {
	sec, outcome, msg, cands := resolveSection(doc, cmd.Selector.Value)
	if outcome == OutcomeFailed {
		return outcome, msg, cands
	}

	contentLines := splitContent(cmd.Content)
	if bodyText(doc.lines[sec.start+1:sec.end]) == bodyText(contentLines) {
		return OutcomeSkipped, "section content already matches", nil
	}

	body := append([]string{""}, contentLines...)
	if sec.end < len(doc.lines) {
		body = append(body, "")
	}
	doc.lines = append(doc.lines[:sec.start+1], append(body, doc.lines[sec.end:]...)...)
	return OutcomeApplied, "", nil
}

// --- Line helpers ---

// matchLines finds lines in [from, to) matching value: trimmed-exact
// first, then list-item text, then unique case-insensitive containment.
// listOnly restricts matching to bullet and numbered lines.
func matchLines(lines []string, from, to int, value string, listOnly bool) []int {
	want := strings.TrimSpace(value)
	wantLower := strings.ToLower(want)

	var exact, itemText, contains []int
	for i := from; i < to && i < len(lines); i++ {
		line := lines[i]
		if listOnly && !listItemPattern.MatchString(line) {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch {
		case trimmed == want:
			exact = append(exact, i)
		case listItemPattern.MatchString(line) && strings.TrimSpace(stripListMarker(line)) == want:
			itemText = append(itemText, i)
		case strings.Contains(strings.ToLower(trimmed), wantLower):
			contains = append(contains, i)
		}
	}

	for _, tier := range [][]int{exact, itemText, contains} {
		if len(tier) > 0 {
			return tier
		}
	}
	return nil
}

// stripListMarker removes the bullet or number marker, and any checkbox,
// from a list line.
func stripListMarker(line string) string {
	rest := listItemPattern.ReplaceAllString(line, "")
	if strings.HasPrefix(rest, "[ ] ") || strings.HasPrefix(rest, "[x] ") || strings.HasPrefix(rest, "[X] ") {
		rest = rest[4:]
	}
	return rest
}

// rewriteListLine replaces a list line's text while preserving its
// marker, unless the replacement carries its own marker.
func rewriteListLine(line, content string) string {
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	if listItemPattern.MatchString(content) {
		return indent + strings.TrimSpace(content)
	}
	marker := line[:len(line)-len(stripListMarker(line))]
	return marker + content
}

// listItemTexts collects the text of every list line, for candidates.
func listItemTexts(lines []string) []string {
	var out []string
	for _, line := range lines {
		if listItemPattern.MatchString(line) {
			out = append(out, strings.TrimSpace(stripListMarker(line)))
		}
	}
	return out
}

// nonBlankLines collects trimmed non-blank lines in [from, to).
func nonBlankLines(lines []string, from, to int) []string {
	var out []string
	for i := from; i < to && i < len(lines); i++ {
		if !isBlank(lines[i]) {
			out = append(out, strings.TrimSpace(lines[i]))
		}
	}
	return out
}

// ambiguousLines renders "line N: text" candidates.
func ambiguousLines(lines []string, matches []int) []string {
	out := make([]string, 0, len(matches))
	for _, i := range matches {
		out = append(out, fmt.Sprintf("line %d: %s", i+1, strings.TrimSpace(lines[i])))
	}
	return out
}

// sectionAppendPoint finds where appended content belongs: directly after
// the section's last non-blank line, or after the heading (and its blank
// separator) when the section is empty.
func sectionAppendPoint(doc *document, sec section) int {
	for i := sec.end - 1; i > sec.start; i-- {
		if !isBlank(doc.lines[i]) {
			return i + 1
		}
	}
	at := sec.start + 1
	if at < sec.end && isBlank(doc.lines[at]) {
		at++
	}
	return at
}

// sectionEndsWith reports whether the section's trailing non-blank lines
// equal contentLines exactly.
func sectionEndsWith(doc *document, sec section, contentLines []string) bool {
	end := sec.end
	for end > sec.start+1 && isBlank(doc.lines[end-1]) {
		end--
	}
	start := end - len(contentLines)
	if start <= sec.start {
		return false
	}
	for i, want := range contentLines {
		if doc.lines[start+i] != want {
			return false
		}
	}
	return true
}

// insertLines splits lines at position at and inserts insert between the
// halves.
func insertLines(lines []string, at int, insert []string) []string {
	if at > len(lines) {
		at = len(lines)
	}
	out := make([]string, 0, len(lines)+len(insert))
	out = append(out, lines[:at]...)
	out = append(out, insert...)
	out = append(out, lines[at:]...)
	return out
}

// deleteLine removes one line.
func deleteLine(lines []string, at int) []string {
	return append(lines[:at], lines[at+1:]...)
}
