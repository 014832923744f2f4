package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/editor"
	"github.com/foundrymcp/foundry/internal/journal"
	"github.com/foundrymcp/foundry/internal/ops"
	"github.com/foundrymcp/foundry/internal/ui"
)

// emit prints one response envelope: the raw JSON under --json, a
// readable rendering otherwise. The JSON form is byte-for-byte what the
// MCP tools return, so scripts can switch between the two transports.
func emit(env *backend.Envelope) error {
	if jsonOutput {
		b, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}

	renderData(env.Data)
	fmt.Println(ui.RenderStatus(string(env.ValidationStatus)))
	if h := ui.RenderHints(env.WorkflowHints); h != "" {
		fmt.Println(h)
	}
	if s := ui.RenderNextSteps(env.NextSteps); s != "" {
		fmt.Println(s)
	}
	return nil
}

func renderData(data any) {
	switch d := data.(type) {
	case *backend.Project:
		renderProject(d)
	case []backend.ProjectInfo:
		renderProjectList(d)
	case *backend.Spec:
		renderSpec(d, nil)
	case *ops.SpecView:
		renderSpec(d.Spec, &d.Tasks)
	case []backend.SpecInfo:
		renderSpecList(d)
	case ops.Deletion:
		if d.SpecID != "" {
			fmt.Printf("deleted spec %s from %s\n", d.SpecID, d.Project)
		} else {
			fmt.Printf("deleted project %s\n", d.Project)
		}
	case *ops.UpdateResult:
		renderUpdateResult(d)
	case *ops.ValidationReport:
		renderValidation(d)
	case []journal.Entry:
		renderHistory(d)
	default:
		b, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(b))
	}
}

func renderProject(p *backend.Project) {
	fmt.Println(ui.RenderHeader("Project " + p.Name))
	for _, doc := range []struct{ title, body string }{
		{"Vision", p.Vision},
		{"Tech stack", p.TechStack},
		{"Summary", p.Summary},
	} {
		fmt.Println()
		fmt.Println(ui.RenderHeader(doc.title))
		if strings.TrimSpace(doc.body) == "" {
			fmt.Println(ui.RenderSubtle("(empty)"))
			continue
		}
		fmt.Println(strings.TrimRight(doc.body, "\n"))
	}
	fmt.Println()
	if len(p.Specs) == 0 {
		fmt.Println(ui.RenderSubtle("no specs yet"))
		return
	}
	fmt.Println(ui.RenderHeader("Specs"))
	for _, id := range p.Specs {
		fmt.Println("  " + id)
	}
}

func renderProjectList(infos []backend.ProjectInfo) {
	if len(infos) == 0 {
		fmt.Println(ui.RenderSubtle("no projects"))
		return
	}
	width := 0
	for _, in := range infos {
		if len(in.Name) > width {
			width = len(in.Name)
		}
	}
	for _, in := range infos {
		fmt.Printf("%-*s  %3d specs  created %s\n",
			width, in.Name, in.SpecCount, in.CreatedAt.Format("2006-01-02"))
	}
}

func renderSpec(s *backend.Spec, stats *ops.TaskStats) {
	head := fmt.Sprintf("Spec %s (%s)", s.ID, s.Project)
	if stats != nil {
		head += fmt.Sprintf("  [%d/%d tasks done]", stats.Done, stats.Total)
	}
	fmt.Println(ui.RenderHeader(head))
	for _, ft := range backend.FileTypes() {
		body := s.Content.Get(ft)
		fmt.Println()
		fmt.Println(ui.RenderHeader(ft.Filename()))
		if strings.TrimSpace(body) == "" {
			fmt.Println(ui.RenderSubtle("(empty)"))
			continue
		}
		fmt.Println(strings.TrimRight(body, "\n"))
	}
}

func renderSpecList(infos []backend.SpecInfo) {
	if len(infos) == 0 {
		fmt.Println(ui.RenderSubtle("no specs"))
		return
	}
	width := 0
	for _, in := range infos {
		if len(in.ID) > width {
			width = len(in.ID)
		}
	}
	for _, in := range infos {
		fmt.Printf("%-*s  %s\n", width, in.ID, in.Feature)
	}
}

func renderUpdateResult(r *ops.UpdateResult) {
	switch {
	case r.Commands != nil:
		fmt.Println("commands: " + r.Commands.Summary())
		for _, res := range r.Commands.Results {
			if res.Outcome != editor.OutcomeFailed {
				continue
			}
			fmt.Println(ui.RenderError(
				fmt.Sprintf("#%d %s on %s: %s", res.Index, res.Command, res.Target, res.Message),
				res.Candidates))
		}
	case r.Patches != nil:
		fmt.Println("patches: " + r.Patches.Summary())
		for _, res := range r.Patches.Results {
			if res.Outcome != editor.OutcomeFailed {
				continue
			}
			fmt.Println(ui.RenderError(
				fmt.Sprintf("#%d %s on %s: %s", res.Index, res.Operation, res.Target, res.Message),
				res.Candidates))
		}
	default:
		fmt.Printf("replaced %s\n", r.Replaced.Filename())
	}
	if r.TaskSync != "" {
		fmt.Println(ui.RenderSubtle("task sync: " + r.TaskSync))
	}
}

func renderValidation(r *ops.ValidationReport) {
	fmt.Println(ui.RenderHeader(fmt.Sprintf("%s / %s", r.Project, r.SpecID)))
	for _, f := range r.Files {
		if f.Empty {
			fmt.Printf("  %s %s (empty)\n", ui.IconWarn, f.Name)
		} else {
			fmt.Printf("  %s %s (%d bytes)\n", ui.IconPass, f.Name, f.Bytes)
		}
	}
	fmt.Printf("  tasks: %d total, %d done, %d open\n",
		r.Tasks.Total, r.Tasks.Done, r.Tasks.Open())
}

func renderHistory(entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Println(ui.RenderSubtle("no operations recorded"))
		return
	}
	for _, en := range entries {
		icon := ui.IconPass
		if en.Outcome != "ok" {
			icon = ui.IconFail
		}
		target := en.Project
		if en.SpecID != "" {
			target += "/" + en.SpecID
		}
		line := fmt.Sprintf("%s %s  %-15s %s", icon, en.TS, en.Op, target)
		if en.Detail != "" {
			line += "  " + ui.RenderSubtle(en.Detail)
		}
		fmt.Println(line)
	}
}
