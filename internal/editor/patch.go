package editor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/foundrymcp/foundry/internal/backend"
)

// --- Patch op enum ---

// PatchOp names one context-patch operation.
type PatchOp string

const (
	PatchReplace PatchOp = "replace"
	PatchInsert  PatchOp = "insert"
	PatchDelete  PatchOp = "delete"
)

var validPatchOps = map[PatchOp]bool{
	PatchReplace: true,
	PatchInsert:  true,
	PatchDelete:  true,
}

// Patch is one anchor-based edit. The engine locates the unique region
// between BeforeContext and AfterContext and replaces, fills, or removes
// it. SectionContext optionally narrows the search to one heading's
// extent.
type Patch struct {
	Target         backend.FileType `json:"target"`
	Op             PatchOp          `json:"operation"`
	BeforeContext  []string         `json:"before_context,omitempty"`
	AfterContext   []string         `json:"after_context,omitempty"`
	Content        string           `json:"content,omitempty"`
	SectionContext string           `json:"section_context,omitempty"`
}

// PatchResult is the per-patch entry in a patch report. MatchConfidence
// is 1.0 for an exact anchor match and degrades toward 0.8 when blank
// lines had to be elided to find it.
type PatchResult struct {
	Index           int              `json:"index"`
	Operation       PatchOp          `json:"operation"`
	Target          backend.FileType `json:"target"`
	Outcome         Outcome          `json:"outcome"`
	Message         string           `json:"message,omitempty"`
	MatchConfidence float64          `json:"match_confidence,omitempty"`
	Candidates      []string         `json:"candidates,omitempty"`
}

// PatchReport aggregates a whole patch batch.
type PatchReport struct {
	Results      []PatchResult      `json:"results"`
	Applied      int                `json:"applied"`
	Skipped      int                `json:"skipped_idempotent"`
	Failed       int                `json:"failed"`
	FilesChanged []backend.FileType `json:"files_changed"`
}

// Summary renders the counters in one line.
func (r *PatchReport) Summary() string {
	return fmt.Sprintf("%d applied, %d skipped_idempotent, %d failed", r.Applied, r.Skipped, r.Failed)
}

func (r *PatchReport) add(res PatchResult) {
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

// DecodePatches parses a JSON patch batch. A single object is accepted in
// place of a one-element array.
func DecodePatches(raw []byte) ([]Patch, error) {
	var patches []Patch
	if err := json.Unmarshal(raw, &patches); err != nil {
		var one Patch
		if err2 := json.Unmarshal(raw, &one); err2 != nil {
			return nil, backend.InvalidInputf("decode_patches", "patches must be a JSON array: %v", err)
		}
		patches = []Patch{one}
	}
	if len(patches) == 0 {
		return nil, backend.InvalidInputf("decode_patches", "patch batch is empty")
	}
	for i := range patches {
		if err := validatePatch(&patches[i]); err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
	}
	return patches, nil
}

func validatePatch(p *Patch) error {
	if !validPatchOps[p.Op] {
		return backend.InvalidInputf("validate_patch", "unknown patch operation %q: must be one of: replace, insert, delete", p.Op)
	}
	if _, err := backend.ParseFileType(string(p.Target)); err != nil {
		return err
	}
	if len(p.BeforeContext) == 0 && len(p.AfterContext) == 0 {
		return backend.InvalidInputf("validate_patch", "patch needs before_context or after_context")
	}
	switch p.Op {
	case PatchReplace, PatchInsert:
		if p.Content == "" {
			return backend.InvalidInputf("validate_patch", "%s patch requires content", p.Op)
		}
	case PatchDelete:
		if p.Content != "" {
			return backend.InvalidInputf("validate_patch", "delete patch does not take content")
		}
	}
	return nil
}

// ApplyPatches runs a patch batch against the given documents. Same
// discipline as Apply: every patch is evaluated, failures carry
// candidates, and any failure means nil documents come back.
func ApplyPatches(docs map[backend.FileType]string, patches []Patch) (map[backend.FileType]string, *PatchReport, error) {
	if len(patches) == 0 {
		return nil, nil, backend.InvalidInputf("apply_patches", "patch batch is empty")
	}

	state := make(map[backend.FileType]*document, len(docs))
	report := &PatchReport{FilesChanged: []backend.FileType{}}

	for i, p := range patches {
		res := PatchResult{Index: i, Operation: p.Op, Target: p.Target}

		doc, ok := state[p.Target]
		if !ok {
			content, loaded := docs[p.Target]
			if !loaded {
				res.Outcome = OutcomeFailed
				res.Message = fmt.Sprintf("no %s document was loaded", p.Target)
				report.add(res)
				continue
			}
			doc = parseDoc(content)
			state[p.Target] = doc
		}

		res.Outcome, res.Message, res.MatchConfidence, res.Candidates = applyPatch(doc, p)
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

// span is one candidate region between the anchors, in original line
// coordinates.
type span struct {
	start, end int // [start, end)
	confidence float64
}

// applyPatch mutates doc in place and reports outcome, message,
// confidence, candidates.
func applyPatch(doc *document, p Patch) (Outcome, string, float64, []string) {
	from, to := 0, len(doc.lines)
	if p.SectionContext != "" {
		sec, outcome, msg, cands := resolveSection(doc, p.SectionContext)
		if outcome == OutcomeFailed {
			return outcome, msg, 0, cands
		}
		from, to = sec.start, sec.end
	}

	before := normalizeContext(p.BeforeContext)
	after := normalizeContext(p.AfterContext)

	spans := findSpansExact(doc.lines, from, to, before, after)
	if len(spans) == 0 {
		spans = findSpansTolerant(doc.lines, from, to, before, after)
	}

	if len(spans) == 0 {
		probe := contextProbe(before, after)
		return OutcomeFailed,
			"context anchors not found; check before_context and after_context against the current document",
			0, rankCandidates(probe, nonBlankLines(doc.lines, from, to))
	}

	desired := splitContent(p.Content) // nil for delete

	// One patch, one site. Inserts only accept sites whose gap is empty,
	// blank, or already holds the content; ambiguity among live sites is
	// refused rather than guessed at.
	var viable []span
	for _, s := range spans {
		if p.Op == PatchInsert && !insertViable(doc.lines[s.start:s.end], desired) {
			continue
		}
		viable = append(viable, s)
	}
	if len(viable) == 0 {
		return OutcomeFailed,
			fmt.Sprintf("before_context and after_context are not adjacent; %d lines sit between them", spans[0].end-spans[0].start),
			0, ambiguousSpans(doc.lines, spans)
	}
	if len(viable) > 1 {
		return OutcomeFailed,
			fmt.Sprintf("context anchors match at %d places; add more context or a section_context", len(viable)),
			0, ambiguousSpans(doc.lines, viable)
	}

	site := viable[0]
	current := doc.lines[site.start:site.end]

	// Idempotency: the region already holds the patch's post-state.
	alreadyDone := linesEqual(current, desired)
	if p.Op == PatchInsert && !alreadyDone {
		alreadyDone = linesEqual(trimBlankEdges(current), desired)
	}
	if alreadyDone {
		return OutcomeSkipped, "document already matches the patched state", site.confidence, nil
	}

	switch p.Op {
	case PatchInsert:
		doc.lines = insertLines(doc.lines, site.start, desired)
	default: // replace or delete
		doc.lines = spliceLines(doc.lines, site.start, site.end, desired)
	}
	return OutcomeApplied, "", site.confidence, nil
}

// insertViable reports whether an insert can use this gap: nothing there,
// only blank lines, or a previous application of the same content.
func insertViable(current, desired []string) bool {
	return blankOnly(current) ||
		linesEqual(current, desired) ||
		linesEqual(trimBlankEdges(current), desired)
}

// trimBlankEdges drops leading and trailing blank lines.
func trimBlankEdges(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && isBlank(lines[start]) {
		start++
	}
	for end > start && isBlank(lines[end-1]) {
		end--
	}
	if start == end {
		return nil
	}
	return lines[start:end]
}

// normalizeContext strips CR endings from anchor lines so CRLF callers
// match LF-normalized documents.
func normalizeContext(ctx []string) []string {
	out := make([]string, len(ctx))
	for i, ln := range ctx {
		out[i] = strings.TrimSuffix(ln, "\r")
	}
	return out
}

// contextProbe picks the line used to rank candidates after a miss.
func contextProbe(before, after []string) string {
	for _, ln := range before {
		if !isBlank(ln) {
			return ln
		}
	}
	for _, ln := range after {
		if !isBlank(ln) {
			return ln
		}
	}
	return ""
}

// findSpansExact locates every region where before matches immediately
// ahead and after immediately behind, pairing each before anchor with the
// nearest following after anchor.
func findSpansExact(lines []string, from, to int, before, after []string) []span {
	var spans []span
	for _, rs := range anchorEnds(lines, from, to, before) {
		re, ok := nearestAfter(lines, rs, to, after)
		if !ok {
			continue
		}
		spans = appendSpan(spans, span{start: rs, end: re, confidence: 1.0})
	}
	return spans
}

// anchorEnds returns each position directly after a before-context match.
// An empty before context anchors at the window start.
func anchorEnds(lines []string, from, to int, before []string) []int {
	if len(before) == 0 {
		return []int{from}
	}
	var ends []int
	for i := from; i+len(before) <= to; i++ {
		if matchAt(lines, i, before) {
			ends = append(ends, i+len(before))
		}
	}
	return ends
}

// nearestAfter finds the closest after-context match at or past start.
// An empty after context closes the region at the window end.
func nearestAfter(lines []string, start, to int, after []string) (int, bool) {
	if len(after) == 0 {
		return to, true
	}
	for j := start; j+len(after) <= to; j++ {
		if matchAt(lines, j, after) {
			return j, true
		}
	}
	return 0, false
}

func matchAt(lines []string, at int, want []string) bool {
	for k, w := range want {
		if lines[at+k] != w {
			return false
		}
	}
	return true
}

// findSpansTolerant retries matching with runs of blank lines collapsed
// to one, in both the document and the contexts, then maps matches back
// to original coordinates. Confidence scales down with the number of
// blank lines elided inside the matched window, floored at 0.8.
func findSpansTolerant(lines []string, from, to int, before, after []string) []span {
	keep := collapseBlanks(lines, from, to)
	collapsed := make([]string, len(keep))
	for i, idx := range keep {
		if isBlank(lines[idx]) {
			collapsed[i] = ""
		} else {
			collapsed[i] = lines[idx]
		}
	}

	cBefore := collapseContext(before)
	cAfter := collapseContext(after)

	var spans []span
	for _, rs := range anchorEnds(collapsed, 0, len(collapsed), cBefore) {
		re, ok := nearestAfter(collapsed, rs, len(collapsed), cAfter)
		if !ok {
			continue
		}

		// Map collapsed coordinates back to the original document.
		origStart := from
		if rs > 0 {
			origStart = keep[rs-1] + 1
		}
		origEnd := to
		if re < len(collapsed) {
			origEnd = keep[re]
		}

		// Window covered by the whole match, for the elision count.
		winStart, winEnd := origStart, origEnd
		if len(cBefore) > 0 {
			winStart = keep[rs-len(cBefore)]
		}
		if len(cAfter) > 0 {
			winEnd = keep[re+len(cAfter)-1] + 1
		}
		elided := (winEnd - winStart) - collapsedSpanLen(keep, winStart, winEnd)
		conf := 1.0 - 0.05*float64(elided)
		if conf < 0.8 {
			conf = 0.8
		}

		spans = appendSpan(spans, span{start: origStart, end: origEnd, confidence: conf})
	}
	return spans
}

// collapseBlanks returns the original indexes kept by blank-run collapsing
// inside [from, to): every non-blank line plus the first blank of each run.
func collapseBlanks(lines []string, from, to int) []int {
	var keep []int
	prevBlank := false
	for i := from; i < to && i < len(lines); i++ {
		blank := isBlank(lines[i])
		if blank && prevBlank {
			continue
		}
		keep = append(keep, i)
		prevBlank = blank
	}
	return keep
}

// collapseContext applies the same blank-run collapsing to an anchor.
func collapseContext(ctx []string) []string {
	var out []string
	prevBlank := false
	for _, ln := range ctx {
		blank := isBlank(ln)
		if blank && prevBlank {
			continue
		}
		if blank {
			out = append(out, "")
		} else {
			out = append(out, ln)
		}
		prevBlank = blank
	}
	return out
}

// collapsedSpanLen counts how many kept indexes fall in [start, end).
func collapsedSpanLen(keep []int, start, end int) int {
	n := 0
	for _, idx := range keep {
		if idx >= start && idx < end {
			n++
		}
	}
	return n
}

// appendSpan adds s unless an identical region is already present.
func appendSpan(spans []span, s span) []span {
	for _, have := range spans {
		if have.start == s.start && have.end == s.end {
			return spans
		}
	}
	return append(spans, s)
}

// ambiguousSpans renders "lines X-Y" candidates for multi-site failures.
func ambiguousSpans(lines []string, spans []span) []string {
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		head := ""
		for i := s.start; i < s.end && i < len(lines); i++ {
			if !isBlank(lines[i]) {
				head = strings.TrimSpace(lines[i])
				break
			}
		}
		out = append(out, fmt.Sprintf("lines %d-%d: %s", s.start+1, s.end, head))
	}
	return out
}

// linesEqual compares two line slices.
func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// blankOnly reports whether every line is blank (or the slice is empty).
func blankOnly(lines []string) bool {
	for _, ln := range lines {
		if !isBlank(ln) {
			return false
		}
	}
	return true
}

// spliceLines replaces [start, end) with replacement.
func spliceLines(lines []string, start, end int, replacement []string) []string {
	out := make([]string, 0, len(lines)-(end-start)+len(replacement))
	out = append(out, lines[:start]...)
	out = append(out, replacement...)
	out = append(out, lines[end:]...)
	return out
}
