package editor

import (
	"strings"
	"testing"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/tasklist"
)

const tasksDoc = `# Task List

## Setup

- [ ] Install dependencies
- [ ] Configure linting
- [x] Create repository

## Implementation

- [ ] Build login handler
- [ ] Build logout handler

## Docs

- [ ] Write README
`

const specDoc = `# Auth Feature

## Overview

Login and logout flows for the web app.

## Requirements

- Support OAuth2
- Support session cookies

## Open Questions

None yet.
`

func docsFixture() map[backend.FileType]string {
	return map[backend.FileType]string{
		backend.FileSpec:  specDoc,
		backend.FileTasks: tasksDoc,
		backend.FileNotes: "# Notes\n",
	}
}

func applyOne(t *testing.T, docs map[backend.FileType]string, cmd Command) (map[backend.FileType]string, *BatchReport) {
	t.Helper()
	updated, report, err := Apply(docs, []Command{cmd})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return updated, report
}

func mustResult(t *testing.T, report *BatchReport, i int, want Outcome) CommandResult {
	t.Helper()
	if i >= len(report.Results) {
		t.Fatalf("report has %d results, want index %d", len(report.Results), i)
	}
	res := report.Results[i]
	if res.Outcome != want {
		t.Fatalf("result %d outcome = %s (%s), want %s", i, res.Outcome, res.Message, want)
	}
	return res
}

// --- set_task_status ---

func TestSetTaskStatus_Applies(t *testing.T) {
	updated, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileTasks,
		Op:       OpSetTaskStatus,
		Selector: Selector{Type: SelTaskText, Value: "Install dependencies"},
		Status:   tasklist.StatusDone,
	})

	mustResult(t, report, 0, OutcomeApplied)
	if !strings.Contains(updated[backend.FileTasks], "- [x] Install dependencies") {
		t.Errorf("task not checked:\n%s", updated[backend.FileTasks])
	}
	if len(report.FilesChanged) != 1 || report.FilesChanged[0] != backend.FileTasks {
		t.Errorf("files_changed = %v", report.FilesChanged)
	}
}

func TestSetTaskStatus_RerunSkips(t *testing.T) {
	docs := docsFixture()
	cmd := Command{
		Target:   backend.FileTasks,
		Op:       OpSetTaskStatus,
		Selector: Selector{Type: SelTaskText, Value: "Install dependencies"},
		Status:   tasklist.StatusDone,
	}

	updated, _ := applyOne(t, docs, cmd)
	docs[backend.FileTasks] = updated[backend.FileTasks]

	updated2, report := applyOne(t, docs, cmd)
	mustResult(t, report, 0, OutcomeSkipped)
	if report.Applied != 0 || report.Skipped != 1 {
		t.Errorf("counters = %d applied, %d skipped", report.Applied, report.Skipped)
	}
	if len(updated2) != 0 {
		t.Errorf("rerun changed files: %v", report.FilesChanged)
	}
}

func TestSetTaskStatus_KeyAndContainmentTiers(t *testing.T) {
	// Key tier: punctuation drift resolves to the same task key.
	_, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileTasks,
		Op:       OpSetTaskStatus,
		Selector: Selector{Type: SelTaskText, Value: "install Dependencies!"},
		Status:   tasklist.StatusDone,
	})
	mustResult(t, report, 0, OutcomeApplied)

	// Containment tier: a unique fragment is enough.
	_, report = applyOne(t, docsFixture(), Command{
		Target:   backend.FileTasks,
		Op:       OpSetTaskStatus,
		Selector: Selector{Type: SelTaskText, Value: "README"},
		Status:   tasklist.StatusDone,
	})
	mustResult(t, report, 0, OutcomeApplied)
}

func TestSetTaskStatus_MissCarriesCandidates(t *testing.T) {
	_, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileTasks,
		Op:       OpSetTaskStatus,
		Selector: Selector{Type: SelTaskText, Value: "Install the dependency graph exporter"},
		Status:   tasklist.StatusDone,
	})

	res := mustResult(t, report, 0, OutcomeFailed)
	if len(res.Candidates) == 0 {
		t.Fatal("failed result has no candidates")
	}
	if res.Candidates[0] != "Install dependencies" {
		t.Errorf("top candidate = %q, want Install dependencies", res.Candidates[0])
	}
}

func TestSetTaskStatus_AmbiguousListsMatches(t *testing.T) {
	_, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileTasks,
		Op:       OpSetTaskStatus,
		Selector: Selector{Type: SelTaskText, Value: "Build"},
		Status:   tasklist.StatusDone,
	})

	res := mustResult(t, report, 0, OutcomeFailed)
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %v, want both Build tasks", res.Candidates)
	}
	if !strings.Contains(res.Candidates[0], "line ") {
		t.Errorf("ambiguous candidates should carry line numbers: %v", res.Candidates)
	}
}

func TestSetTaskStatus_SectionContextDisambiguates(t *testing.T) {
	docs := map[backend.FileType]string{
		backend.FileTasks: "## A\n\n- [ ] Deploy\n\n## B\n\n- [ ] Deploy\n",
	}
	updated, report := applyOne(t, docs, Command{
		Target:   backend.FileTasks,
		Op:       OpSetTaskStatus,
		Selector: Selector{Type: SelTaskText, Value: "Deploy", Section: "B"},
		Status:   tasklist.StatusDone,
	})

	mustResult(t, report, 0, OutcomeApplied)
	want := "## A\n\n- [ ] Deploy\n\n## B\n\n- [x] Deploy\n"
	if updated[backend.FileTasks] != want {
		t.Errorf("updated:\n%q\nwant:\n%q", updated[backend.FileTasks], want)
	}
}

// --- upsert_task ---

func TestUpsertTask_InsertsAtSectionEnd(t *testing.T) {
	updated, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileTasks,
		Op:       OpUpsertTask,
		Selector: Selector{Type: SelTaskText, Value: "Add rate limiting", Section: "Implementation"},
		Content:  "Add rate limiting",
	})

	mustResult(t, report, 0, OutcomeApplied)
	want := "- [ ] Build logout handler\n- [ ] Add rate limiting\n"
	if !strings.Contains(updated[backend.FileTasks], want) {
		t.Errorf("new task not at section end:\n%s", updated[backend.FileTasks])
	}
}

func TestUpsertTask_RewritesExisting(t *testing.T) {
	updated, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileTasks,
		Op:       OpUpsertTask,
		Selector: Selector{Type: SelTaskText, Value: "Write README"},
		Content:  "Write README and quickstart",
	})

	mustResult(t, report, 0, OutcomeApplied)
	if !strings.Contains(updated[backend.FileTasks], "- [ ] Write README and quickstart") {
		t.Errorf("task text not rewritten:\n%s", updated[backend.FileTasks])
	}
	if strings.Count(updated[backend.FileTasks], "README") != 1 {
		t.Errorf("duplicate task created:\n%s", updated[backend.FileTasks])
	}
}

func TestUpsertTask_RerunSkips(t *testing.T) {
	docs := docsFixture()
	cmd := Command{
		Target:   backend.FileTasks,
		Op:       OpUpsertTask,
		Selector: Selector{Type: SelTaskText, Value: "Write README"},
		Content:  "Write README and quickstart",
	}

	updated, _ := applyOne(t, docs, cmd)
	docs[backend.FileTasks] = updated[backend.FileTasks]

	_, report := applyOne(t, docs, cmd)
	mustResult(t, report, 0, OutcomeSkipped)
}

// --- append_to_section ---

func TestAppendToSection_AppendsAfterLastContent(t *testing.T) {
	updated, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileSpec,
		Op:       OpAppendToSection,
		Selector: Selector{Type: SelSection, Value: "Requirements"},
		Content:  "- Support TOTP",
	})

	mustResult(t, report, 0, OutcomeApplied)
	want := "- Support session cookies\n- Support TOTP\n\n## Open Questions"
	if !strings.Contains(updated[backend.FileSpec], want) {
		t.Errorf("append misplaced:\n%s", updated[backend.FileSpec])
	}
}

func TestAppendToSection_HeadingPrefixAndCaseTolerated(t *testing.T) {
	_, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileSpec,
		Op:       OpAppendToSection,
		Selector: Selector{Type: SelSection, Value: "## requirements"},
		Content:  "- Support TOTP",
	})
	mustResult(t, report, 0, OutcomeApplied)
}

func TestAppendToSection_RerunSkips(t *testing.T) {
	docs := docsFixture()
	cmd := Command{
		Target:   backend.FileSpec,
		Op:       OpAppendToSection,
		Selector: Selector{Type: SelSection, Value: "Requirements"},
		Content:  "- Support TOTP",
	}
	updated, _ := applyOne(t, docs, cmd)
	docs[backend.FileSpec] = updated[backend.FileSpec]

	_, report := applyOne(t, docs, cmd)
	mustResult(t, report, 0, OutcomeSkipped)
}

func TestAppendToSection_MissListsHeadings(t *testing.T) {
	_, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileSpec,
		Op:       OpAppendToSection,
		Selector: Selector{Type: SelSection, Value: "Requirments and Constraints"},
		Content:  "- x",
	})

	res := mustResult(t, report, 0, OutcomeFailed)
	found := false
	for _, c := range res.Candidates {
		if c == "## Requirements" {
			found = true
		}
	}
	if !found {
		t.Errorf("candidates missing ## Requirements: %v", res.Candidates)
	}
}

// --- remove operations ---

func TestRemoveListItem_TaskSelector(t *testing.T) {
	updated, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileTasks,
		Op:       OpRemoveListItem,
		Selector: Selector{Type: SelTaskText, Value: "Configure linting"},
	})

	mustResult(t, report, 0, OutcomeApplied)
	if strings.Contains(updated[backend.FileTasks], "Configure linting") {
		t.Error("item still present after remove")
	}
}

func TestRemoveListItem_AbsentSkips(t *testing.T) {
	_, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileTasks,
		Op:       OpRemoveListItem,
		Selector: Selector{Type: SelTaskText, Value: "Never existed"},
	})
	mustResult(t, report, 0, OutcomeSkipped)
}

func TestRemoveFromSection(t *testing.T) {
	updated, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileSpec,
		Op:       OpRemoveFromSection,
		Selector: Selector{Type: SelTextInSection, Value: "- Support OAuth2", Section: "Requirements"},
	})

	mustResult(t, report, 0, OutcomeApplied)
	if strings.Contains(updated[backend.FileSpec], "OAuth2") {
		t.Error("line still present after remove")
	}
	if !strings.Contains(updated[backend.FileSpec], "- Support session cookies") {
		t.Error("sibling line lost")
	}
}

func TestRemoveSection_RemovesWholeExtent(t *testing.T) {
	updated, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileSpec,
		Op:       OpRemoveSection,
		Selector: Selector{Type: SelSection, Value: "Requirements"},
	})

	mustResult(t, report, 0, OutcomeApplied)
	out := updated[backend.FileSpec]
	if strings.Contains(out, "Requirements") || strings.Contains(out, "OAuth2") {
		t.Errorf("section content survived:\n%s", out)
	}
	if !strings.Contains(out, "## Overview") || !strings.Contains(out, "## Open Questions") {
		t.Errorf("neighboring sections damaged:\n%s", out)
	}
	if strings.Contains(out, "\n\n\n") {
		t.Errorf("removal left a double blank seam:\n%q", out)
	}
}

func TestRemoveSection_AbsentSkips(t *testing.T) {
	_, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileSpec,
		Op:       OpRemoveSection,
		Selector: Selector{Type: SelSection, Value: "Nonexistent"},
	})
	mustResult(t, report, 0, OutcomeSkipped)
}

// --- replace operations ---

func TestReplaceListItem_PreservesMarker(t *testing.T) {
	updated, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileSpec,
		Op:       OpReplaceListItem,
		Selector: Selector{Type: SelTextContent, Value: "Support OAuth2"},
		Content:  "Support OAuth2 and OIDC",
	})

	mustResult(t, report, 0, OutcomeApplied)
	if !strings.Contains(updated[backend.FileSpec], "- Support OAuth2 and OIDC") {
		t.Errorf("marker not preserved:\n%s", updated[backend.FileSpec])
	}
}

func TestReplaceListItem_MissFailsWithCandidates(t *testing.T) {
	_, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileSpec,
		Op:       OpReplaceListItem,
		Selector: Selector{Type: SelTextContent, Value: "Support SAML"},
		Content:  "Support SAML 2.0",
	})

	res := mustResult(t, report, 0, OutcomeFailed)
	if len(res.Candidates) == 0 {
		t.Error("replace miss has no candidates")
	}
}

func TestReplaceInSection(t *testing.T) {
	updated, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileSpec,
		Op:       OpReplaceInSection,
		Selector: Selector{Type: SelTextInSection, Value: "None yet.", Section: "Open Questions"},
		Content:  "How long should sessions live?",
	})

	mustResult(t, report, 0, OutcomeApplied)
	if !strings.Contains(updated[backend.FileSpec], "How long should sessions live?") {
		t.Error("replacement missing")
	}
	if strings.Contains(updated[backend.FileSpec], "None yet.") {
		t.Error("old line still present")
	}
}

func TestReplaceSectionContent(t *testing.T) {
	updated, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileSpec,
		Op:       OpReplaceSectionContent,
		Selector: Selector{Type: SelSection, Value: "Overview"},
		Content:  "Completely new overview.",
	})

	mustResult(t, report, 0, OutcomeApplied)
	want := "## Overview\n\nCompletely new overview.\n\n## Requirements"
	if !strings.Contains(updated[backend.FileSpec], want) {
		t.Errorf("section body not replaced:\n%s", updated[backend.FileSpec])
	}
}

func TestReplaceSectionContent_SameContentSkips(t *testing.T) {
	_, report := applyOne(t, docsFixture(), Command{
		Target:   backend.FileSpec,
		Op:       OpReplaceSectionContent,
		Selector: Selector{Type: SelSection, Value: "Overview"},
		Content:  "Login and logout flows for the web app.",
	})
	mustResult(t, report, 0, OutcomeSkipped)
}

// --- Batch discipline ---

func TestApply_FailureAbortsAllWrites(t *testing.T) {
	docs := docsFixture()
	updated, report, err := Apply(docs, []Command{
		{
			Target:   backend.FileTasks,
			Op:       OpSetTaskStatus,
			Selector: Selector{Type: SelTaskText, Value: "Install dependencies"},
			Status:   tasklist.StatusDone,
		},
		{
			Target:   backend.FileTasks,
			Op:       OpSetTaskStatus,
			Selector: Selector{Type: SelTaskText, Value: "Totally unknown task"},
			Status:   tasklist.StatusDone,
		},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if updated != nil {
		t.Errorf("failed batch returned documents to write: %v", report.FilesChanged)
	}
	if report.Failed != 1 || report.Applied != 1 {
		t.Errorf("counters = %+v", report)
	}
	mustResult(t, report, 0, OutcomeApplied)
	mustResult(t, report, 1, OutcomeFailed)
	if len(report.FilesChanged) != 0 {
		t.Errorf("files_changed on failed batch = %v", report.FilesChanged)
	}
}

func TestApply_LaterCommandsSeeEarlierEffects(t *testing.T) {
	docs := docsFixture()
	updated, report, err := Apply(docs, []Command{
		{
			Target:   backend.FileTasks,
			Op:       OpUpsertTask,
			Selector: Selector{Type: SelTaskText, Value: "Ship it", Section: "Docs"},
			Content:  "Ship it",
		},
		{
			Target:   backend.FileTasks,
			Op:       OpSetTaskStatus,
			Selector: Selector{Type: SelTaskText, Value: "Ship it"},
			Status:   tasklist.StatusDone,
		},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Applied != 2 {
		t.Fatalf("applied = %d, want 2 (%+v)", report.Applied, report.Results)
	}
	if !strings.Contains(updated[backend.FileTasks], "- [x] Ship it") {
		t.Errorf("second command did not see first's insert:\n%s", updated[backend.FileTasks])
	}
}

func TestApply_MultipleFilesOneBatch(t *testing.T) {
	docs := docsFixture()
	updated, report, err := Apply(docs, []Command{
		{
			Target:   backend.FileSpec,
			Op:       OpAppendToSection,
			Selector: Selector{Type: SelSection, Value: "Requirements"},
			Content:  "- Support TOTP",
		},
		{
			Target:   backend.FileNotes,
			Op:       OpAppendToSection,
			Selector: Selector{Type: SelSection, Value: "Notes"},
			Content:  "Discussed TOTP rollout.",
		},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(report.FilesChanged) != 2 {
		t.Fatalf("files_changed = %v, want spec and notes", report.FilesChanged)
	}
	if report.FilesChanged[0] != backend.FileSpec || report.FilesChanged[1] != backend.FileNotes {
		t.Errorf("files_changed order = %v, want canonical", report.FilesChanged)
	}
	if len(updated) != 2 {
		t.Errorf("updated files = %d, want 2", len(updated))
	}
}

func TestApply_EmptyBatchIsError(t *testing.T) {
	_, _, err := Apply(docsFixture(), nil)
	if backend.KindOf(err) != backend.KindInvalidInput {
		t.Errorf("empty batch kind = %s, want invalid_input", backend.KindOf(err))
	}
}
