// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it builds the configured backend, opens
// the operation journal, and injects them into the tools, prompts, and
// resources. No business logic lives here, only wiring.
package server

import (
	"log"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/config"
	"github.com/foundrymcp/foundry/internal/journal"
	"github.com/foundrymcp/foundry/internal/linear"
	"github.com/foundrymcp/foundry/internal/local"
	"github.com/foundrymcp/foundry/internal/ops"
	"github.com/foundrymcp/foundry/internal/prompts"
	"github.com/foundrymcp/foundry/internal/resources"
	"github.com/foundrymcp/foundry/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewBackend builds the backend the config names.
func NewBackend(cfg *config.Config) (backend.Backend, error) {
	switch cfg.Backend {
	case config.BackendLinear:
		client := linear.NewClient(cfg.Linear.APIKey,
			linear.WithEndpoint(cfg.Linear.Endpoint),
			linear.WithHTTPClient(&http.Client{Timeout: cfg.Linear.Timeout}),
			linear.WithMaxRetries(cfg.Linear.MaxRetries),
		)
		return linear.New(client, cfg.Linear.TeamID), nil
	default:
		return local.New(cfg.Root)
	}
}

// NewEnv builds the operation environment shared by the MCP tools and the
// CLI: the configured backend plus the journal.
//
// The journal is an independent subsystem. When it cannot be opened,
// foundry keeps working without history: one warning on stderr, never a
// failed operation. The returned cleanup closes the journal and is always
// non-nil and safe to call.
func NewEnv(cfg *config.Config) (*ops.Env, func(), error) {
	b, err := NewBackend(cfg)
	if err != nil {
		return nil, noop, err
	}

	env := &ops.Env{Backend: b}
	cleanup := noop
	if !cfg.Journal.Disabled {
		j, jerr := journal.Open(cfg.JournalPath())
		if jerr != nil {
			log.Printf("WARNING: operation journal disabled: %v", jerr)
		} else {
			env.Journal = j
			cleanup = func() {
				if err := j.Close(); err != nil {
					log.Printf("WARNING: journal close: %v", err)
				}
			}
		}
	}
	return env, cleanup, nil
}

// New creates and configures the MCP server with every tool, prompt, and
// resource registered.
//
// The returned cleanup function closes the journal and must be called on
// shutdown (typically via defer). It is always non-nil and safe to call
// even when journal init failed.
func New(cfg *config.Config) (*server.MCPServer, func(), error) {
	env, cleanup, err := NewEnv(cfg)
	if err != nil {
		return nil, cleanup, err
	}

	s := server.NewMCPServer(
		"foundry",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Project tools ---

	createProject := tools.NewCreateProjectTool(env)
	s.AddTool(createProject.Definition(), createProject.Handle)

	loadProject := tools.NewLoadProjectTool(env)
	s.AddTool(loadProject.Definition(), loadProject.Handle)

	listProjects := tools.NewListProjectsTool(env)
	s.AddTool(listProjects.Definition(), listProjects.Handle)

	deleteProject := tools.NewDeleteProjectTool(env)
	s.AddTool(deleteProject.Definition(), deleteProject.Handle)

	// --- Spec tools ---

	createSpec := tools.NewCreateSpecTool(env)
	s.AddTool(createSpec.Definition(), createSpec.Handle)

	loadSpec := tools.NewLoadSpecTool(env)
	s.AddTool(loadSpec.Definition(), loadSpec.Handle)

	listSpecs := tools.NewListSpecsTool(env)
	s.AddTool(listSpecs.Definition(), listSpecs.Handle)

	deleteSpec := tools.NewDeleteSpecTool(env)
	s.AddTool(deleteSpec.Definition(), deleteSpec.Handle)

	updateSpec := tools.NewUpdateSpecTool(env)
	s.AddTool(updateSpec.Definition(), updateSpec.Handle)

	validateSpec := tools.NewValidateSpecTool(env)
	s.AddTool(validateSpec.Definition(), validateSpec.Handle)

	history := tools.NewHistoryTool(env)
	s.AddTool(history.Definition(), history.Handle)

	// --- Prompts ---

	workflow := prompts.NewWorkflowPrompt()
	s.AddPrompt(workflow.Definition(), workflow.Handle)

	next := prompts.NewNextPrompt()
	s.AddPrompt(next.Definition(), next.Handle)

	// --- Resources ---

	res := resources.NewHandler(env.Backend)
	s.AddResource(res.ProjectsResource(), res.HandleProjects)

	return s, cleanup, nil
}

// noop is the default cleanup when there is nothing to close.
func noop() {}

// serverInstructions tells the host how to drive foundry.
func serverInstructions() string {
	return `You have access to Foundry, an MCP server that keeps structured project
context for AI coding work.

## THE CONTEXT MODEL

- A project holds three durable documents: vision.md (why the product
  exists), tech-stack.md (languages, frameworks, conventions), and
  summary.md (what the system does today).
- Work happens in specs: timestamped units of work under a project, each
  with spec.md (the feature and acceptance criteria), task-list.md
  (markdown checkboxes kept in sync by the tools), and notes.md
  (decisions and discoveries).
- Spec IDs look like 20260825_143000_auth and sort chronologically.

## WHEN TO USE FOUNDRY

- Session start: foundry_load_project, then foundry_list_specs and load
  the newest spec. This replaces asking the user to re-explain context.
- New feature or unit of work: foundry_create_spec with an initial
  spec.md and task list.
- While coding: after finishing each task, mark it done with
  foundry_update_spec (set_task_status). Add discovered work with
  upsert_task. Record decisions in notes.md as you make them, not at the
  end.
- Wrapping up: foundry_validate_spec; finish what it reports open.

You do NOT need foundry for one-liner fixes or questions — only for work
worth tracking.

## EDITING RULES

- foundry_update_spec takes exactly one mode per call: commands
  (structured edits), patches (anchor-based edits), or file+content
  (whole-file replace). Prefer commands; replace whole files only for
  rewrites.
- Batches are atomic. When any step fails, nothing is written and the
  report carries candidates for each miss — fix the step and resend.
  Steps that are already true are skipped as idempotent, so resending a
  batch is always safe.
- Every result is a JSON envelope. validation_status 'incomplete' is
  workflow guidance, never an error: read next_steps and follow them.
- Destructive tools (delete_project, delete_spec) need confirm to repeat
  the exact name or ID. Ask the user before deleting anything.

## TYPICAL LOOP

1. foundry_load_project name='checkout-service'
2. foundry_list_specs → foundry_load_spec the newest
3. Work the first open task in task-list.md
4. foundry_update_spec commands='[{"target":"tasks","command":
   "set_task_status","selector":"Implement login","status":"done"}]'
5. Repeat 3-4; note decisions in notes.md along the way
6. foundry_validate_spec before declaring the work done`
}
