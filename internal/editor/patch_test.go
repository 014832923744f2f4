package editor

import (
	"strings"
	"testing"

	"github.com/foundrymcp/foundry/internal/backend"
)

const patchDoc = `# Design

## Storage

Files live under the foundry root.
Writes are atomic.

## Transport

Requests go over stdio.

## Notes

Nothing here yet.
`

func patchFixture() map[backend.FileType]string {
	return map[backend.FileType]string{backend.FileSpec: patchDoc}
}

func applyOnePatch(t *testing.T, docs map[backend.FileType]string, p Patch) (map[backend.FileType]string, *PatchReport) {
	t.Helper()
	updated, report, err := ApplyPatches(docs, []Patch{p})
	if err != nil {
		t.Fatalf("ApplyPatches: %v", err)
	}
	return updated, report
}

func mustPatchResult(t *testing.T, report *PatchReport, i int, want Outcome) PatchResult {
	t.Helper()
	res := report.Results[i]
	if res.Outcome != want {
		t.Fatalf("patch %d outcome = %s (%s), want %s", i, res.Outcome, res.Message, want)
	}
	return res
}

// --- replace ---

func TestPatchReplace_ExactMatch(t *testing.T) {
	updated, report := applyOnePatch(t, patchFixture(), Patch{
		Target:        backend.FileSpec,
		Op:            PatchReplace,
		BeforeContext: []string{"Files live under the foundry root."},
		AfterContext:  []string{""},
		Content:       "Writes are atomic and shadowed by .bak files.",
	})

	res := mustPatchResult(t, report, 0, OutcomeApplied)
	if res.MatchConfidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", res.MatchConfidence)
	}
	if !strings.Contains(updated[backend.FileSpec], "shadowed by .bak files") {
		t.Error("replacement missing")
	}
	if strings.Contains(updated[backend.FileSpec], "Writes are atomic.\n") {
		t.Error("old line still present")
	}
}

func TestPatchReplace_RerunSkips(t *testing.T) {
	docs := patchFixture()
	p := Patch{
		Target:        backend.FileSpec,
		Op:            PatchReplace,
		BeforeContext: []string{"Files live under the foundry root."},
		AfterContext:  []string{""},
		Content:       "Writes are atomic and shadowed by .bak files.",
	}
	updated, _ := applyOnePatch(t, docs, p)
	docs[backend.FileSpec] = updated[backend.FileSpec]

	updated2, report := applyOnePatch(t, docs, p)
	mustPatchResult(t, report, 0, OutcomeSkipped)
	if len(updated2) != 0 {
		t.Error("rerun produced writes")
	}
}

// --- insert ---

func TestPatchInsert_BetweenAdjacentAnchors(t *testing.T) {
	updated, report := applyOnePatch(t, patchFixture(), Patch{
		Target:        backend.FileSpec,
		Op:            PatchInsert,
		BeforeContext: []string{"Files live under the foundry root."},
		AfterContext:  []string{"Writes are atomic."},
		Content:       "Paths may not escape the root.",
	})

	mustPatchResult(t, report, 0, OutcomeApplied)
	want := "Files live under the foundry root.\nPaths may not escape the root.\nWrites are atomic."
	if !strings.Contains(updated[backend.FileSpec], want) {
		t.Errorf("insert misplaced:\n%s", updated[backend.FileSpec])
	}
}

func TestPatchInsert_RerunSkips(t *testing.T) {
	docs := patchFixture()
	p := Patch{
		Target:        backend.FileSpec,
		Op:            PatchInsert,
		BeforeContext: []string{"Files live under the foundry root."},
		AfterContext:  []string{"Writes are atomic."},
		Content:       "Paths may not escape the root.",
	}
	updated, _ := applyOnePatch(t, docs, p)
	docs[backend.FileSpec] = updated[backend.FileSpec]

	_, report := applyOnePatch(t, docs, p)
	mustPatchResult(t, report, 0, OutcomeSkipped)
}

func TestPatchInsert_NonAdjacentAnchorsFail(t *testing.T) {
	_, report := applyOnePatch(t, patchFixture(), Patch{
		Target:        backend.FileSpec,
		Op:            PatchInsert,
		BeforeContext: []string{"## Storage"},
		AfterContext:  []string{"## Transport"},
		Content:       "New line.",
	})

	res := mustPatchResult(t, report, 0, OutcomeFailed)
	if !strings.Contains(res.Message, "not adjacent") {
		t.Errorf("message = %q", res.Message)
	}
}

// --- delete ---

func TestPatchDelete(t *testing.T) {
	updated, report := applyOnePatch(t, patchFixture(), Patch{
		Target:        backend.FileSpec,
		Op:            PatchDelete,
		BeforeContext: []string{"## Notes", ""},
		AfterContext:  []string{""},
		SectionContext: "Notes",
	})

	mustPatchResult(t, report, 0, OutcomeApplied)
	if strings.Contains(updated[backend.FileSpec], "Nothing here yet.") {
		t.Error("deleted line still present")
	}
}

func TestPatchDelete_RerunSkips(t *testing.T) {
	docs := map[backend.FileType]string{
		backend.FileSpec: "a\nkill me\nb\n",
	}
	p := Patch{
		Target:        backend.FileSpec,
		Op:            PatchDelete,
		BeforeContext: []string{"a"},
		AfterContext:  []string{"b"},
	}
	updated, report := applyOnePatch(t, docs, p)
	mustPatchResult(t, report, 0, OutcomeApplied)
	docs[backend.FileSpec] = updated[backend.FileSpec]

	_, report = applyOnePatch(t, docs, p)
	mustPatchResult(t, report, 0, OutcomeSkipped)
}

// --- blank-line tolerance ---

func TestPatch_BlankLineToleranceScoresConfidence(t *testing.T) {
	docs := map[backend.FileType]string{
		backend.FileSpec: "alpha\n\n\n\nbeta\ngamma\n",
	}
	// Caller remembers a single blank line; the document grew three.
	updated, report := applyOnePatch(t, docs, Patch{
		Target:        backend.FileSpec,
		Op:            PatchReplace,
		BeforeContext: []string{"alpha", ""},
		AfterContext:  []string{"gamma"},
		Content:       "BETA",
	})

	res := mustPatchResult(t, report, 0, OutcomeApplied)
	if res.MatchConfidence >= 1.0 || res.MatchConfidence < 0.8 {
		t.Errorf("confidence = %v, want within [0.8, 1.0)", res.MatchConfidence)
	}
	if !strings.Contains(updated[backend.FileSpec], "BETA") {
		t.Errorf("replacement missing:\n%s", updated[backend.FileSpec])
	}
	if strings.Contains(updated[backend.FileSpec], "beta") {
		t.Errorf("old region survived:\n%s", updated[backend.FileSpec])
	}
}

func TestPatch_ExactMatchWinsOverTolerant(t *testing.T) {
	docs := map[backend.FileType]string{
		backend.FileSpec: "alpha\n\nbeta\n",
	}
	_, report := applyOnePatch(t, docs, Patch{
		Target:        backend.FileSpec,
		Op:            PatchReplace,
		BeforeContext: []string{"alpha", ""},
		AfterContext:  nil,
		Content:       "omega",
	})

	res := mustPatchResult(t, report, 0, OutcomeApplied)
	if res.MatchConfidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0 for exact match", res.MatchConfidence)
	}
}

// --- ambiguity and misses ---

func TestPatch_AmbiguousAnchorsFail(t *testing.T) {
	docs := map[backend.FileType]string{
		backend.FileSpec: "start\nx\nend\nmiddle\nstart\ny\nend\n",
	}
	_, report := applyOnePatch(t, docs, Patch{
		Target:        backend.FileSpec,
		Op:            PatchReplace,
		BeforeContext: []string{"start"},
		AfterContext:  []string{"end"},
		Content:       "z",
	})

	res := mustPatchResult(t, report, 0, OutcomeFailed)
	if len(res.Candidates) != 2 {
		t.Errorf("candidates = %v, want two spans", res.Candidates)
	}
	if !strings.Contains(res.Message, "2 places") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestPatch_MissCarriesNearestLines(t *testing.T) {
	_, report := applyOnePatch(t, patchFixture(), Patch{
		Target:        backend.FileSpec,
		Op:            PatchReplace,
		BeforeContext: []string{"Requests go over websockets."},
		AfterContext:  []string{""},
		Content:       "x",
	})

	res := mustPatchResult(t, report, 0, OutcomeFailed)
	found := false
	for _, c := range res.Candidates {
		if strings.Contains(c, "Requests go over stdio.") {
			found = true
		}
	}
	if !found {
		t.Errorf("candidates = %v, want the stdio line", res.Candidates)
	}
}

// --- section scoping ---

func TestPatch_SectionContextNarrowsSearch(t *testing.T) {
	docs := map[backend.FileType]string{
		backend.FileSpec: "## A\n\nshared\n\n## B\n\nshared\n",
	}
	updated, report := applyOnePatch(t, docs, Patch{
		Target:         backend.FileSpec,
		Op:             PatchReplace,
		BeforeContext:  []string{"shared"},
		AfterContext:   nil,
		Content:        "only b",
		SectionContext: "B",
	})

	mustPatchResult(t, report, 0, OutcomeApplied)
	out := updated[backend.FileSpec]
	if !strings.Contains(out, "## A\n\nshared") {
		t.Errorf("section A was modified:\n%s", out)
	}
	if !strings.Contains(out, "only b") {
		t.Errorf("section B not modified:\n%s", out)
	}
}

// --- CRLF ---

func TestPatch_CRLFPreserved(t *testing.T) {
	docs := map[backend.FileType]string{
		backend.FileSpec: "one\r\ntwo\r\nthree\r\n",
	}
	updated, report := applyOnePatch(t, docs, Patch{
		Target:        backend.FileSpec,
		Op:            PatchReplace,
		BeforeContext: []string{"one"},
		AfterContext:  []string{"three"},
		Content:       "TWO",
	})

	mustPatchResult(t, report, 0, OutcomeApplied)
	if updated[backend.FileSpec] != "one\r\nTWO\r\nthree\r\n" {
		t.Errorf("CRLF not preserved: %q", updated[backend.FileSpec])
	}
}

// --- batch discipline ---

func TestApplyPatches_FailureAbortsWrites(t *testing.T) {
	updated, report, err := ApplyPatches(patchFixture(), []Patch{
		{
			Target:        backend.FileSpec,
			Op:            PatchReplace,
			BeforeContext: []string{"Requests go over stdio."},
			AfterContext:  []string{""},
			Content:       "Requests go over stdio, one JSON-RPC frame per line.",
		},
		{
			Target:        backend.FileSpec,
			Op:            PatchReplace,
			BeforeContext: []string{"no such anchor"},
			AfterContext:  []string{""},
			Content:       "x",
		},
	})
	if err != nil {
		t.Fatalf("ApplyPatches: %v", err)
	}
	if updated != nil {
		t.Error("failed batch returned documents to write")
	}
	if report.Applied != 1 || report.Failed != 1 {
		t.Errorf("counters: %s", report.Summary())
	}
}
