// Package reconcile plans the mutations that bring a set of remote task
// issues in line with a desired markdown checklist.
//
// Planning is pure: no I/O happens here. The Linear backend feeds in the
// desired items (parsed from the new task-list content) and the current
// sub-issues, and executes the returned plan. Because every planned
// mutation is idempotent at the API layer, re-running a reconciliation on
// converged state yields an empty plan.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/foundrymcp/foundry/internal/tasklist"
)

// RemoteTask is the reconciler's view of one existing remote issue.
type RemoteTask struct {
	ID      string // issue identifier, opaque to the planner
	Title   string
	Key     string // task key from the issue's marker, "" when unmarked
	Closed  bool   // completed or canceled
	Labeled bool   // carries the foundry label
}

// EffectiveKey returns the marker key when present, else the key derived
// from the title. Marker keys are authoritative: they survive title edits
// made in the remote UI.
func (r RemoteTask) EffectiveKey() string {
	if r.Key != "" {
		return r.Key
	}
	return tasklist.Key(r.Title)
}

// Create is one task the plan wants created remotely.
type Create struct {
	Text string
	Key  string
}

// Plan is the four-bucket mutation set. Buckets execute in field order:
// label fixes first (so listings stay consistent mid-run), then creates
// (the task set never goes empty between mutations), then closes, then
// reopens (rarest and most visible, so last).
type Plan struct {
	LabelFixes []string // remote IDs to tag with the foundry label
	Creates    []Create
	Closes     []string // remote IDs to close
	Reopens    []string // remote IDs to reopen
}

// Empty reports whether the plan has no work.
func (p Plan) Empty() bool {
	return len(p.LabelFixes) == 0 && len(p.Creates) == 0 &&
		len(p.Closes) == 0 && len(p.Reopens) == 0
}

// Summary renders the plan in one line, e.g. "2 to create, 1 to close".
func (p Plan) Summary() string {
	if p.Empty() {
		return "tasks already in sync"
	}
	var parts []string
	if n := len(p.LabelFixes); n > 0 {
		parts = append(parts, fmt.Sprintf("%d label %s", n, plural(n, "fix", "fixes")))
	}
	if n := len(p.Creates); n > 0 {
		parts = append(parts, fmt.Sprintf("%d to create", n))
	}
	if n := len(p.Closes); n > 0 {
		parts = append(parts, fmt.Sprintf("%d to close", n))
	}
	if n := len(p.Reopens); n > 0 {
		parts = append(parts, fmt.Sprintf("%d to reopen", n))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Build computes the plan that maps existing onto desired.
//
// Matching pairs each desired item with at most one existing task: marker
// key first, then normalized title, duplicates pairing off in document
// order. Matched pairs contribute status corrections (desired done +
// remote open closes; desired todo + remote closed reopens) and label
// fixes. Desired items without a match are created unless already
// completed, because creating pre-closed issues only generates noise.
// Existing open tasks nothing desires any more are closed; existing
// closed ones are left alone so history survives checklist rewrites.
func Build(desired []tasklist.Item, existing []RemoteTask) Plan {
	byKey := make(map[string][]int)   // marker key -> existing indexes
	byTitle := make(map[string][]int) // normalized title -> existing indexes
	for i, r := range existing {
		if r.Key != "" {
			byKey[r.Key] = append(byKey[r.Key], i)
		}
		byTitle[tasklist.Key(r.Title)] = append(byTitle[tasklist.Key(r.Title)], i)
	}

	matched := make([]bool, len(existing))
	take := func(index map[string][]int, key string) (int, bool) {
		for _, i := range index[key] {
			if !matched[i] {
				matched[i] = true
				return i, true
			}
		}
		return 0, false
	}

	var plan Plan
	for _, want := range desired {
		key := want.Key()

		i, ok := take(byKey, key)
		if !ok {
			i, ok = take(byTitle, key)
		}
		if !ok {
			if want.Status != tasklist.StatusDone {
				plan.Creates = append(plan.Creates, Create{Text: want.Text, Key: key})
			}
			continue
		}

		have := existing[i]
		if !have.Labeled {
			plan.LabelFixes = append(plan.LabelFixes, have.ID)
		}
		switch {
		case want.Status == tasklist.StatusDone && !have.Closed:
			plan.Closes = append(plan.Closes, have.ID)
		case want.Status == tasklist.StatusTodo && have.Closed:
			plan.Reopens = append(plan.Reopens, have.ID)
		}
	}

	for i, r := range existing {
		if !matched[i] && !r.Closed {
			plan.Closes = append(plan.Closes, r.ID)
		}
	}
	return plan
}
