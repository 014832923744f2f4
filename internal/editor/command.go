package editor

import (
	"encoding/json"
	"fmt"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/tasklist"
)

// --- Command op enum ---

// CommandOp names one structured edit operation.
type CommandOp string

const (
	OpSetTaskStatus         CommandOp = "set_task_status"
	OpUpsertTask            CommandOp = "upsert_task"
	OpAppendToSection       CommandOp = "append_to_section"
	OpRemoveListItem        CommandOp = "remove_list_item"
	OpRemoveFromSection     CommandOp = "remove_from_section"
	OpRemoveSection         CommandOp = "remove_section"
	OpReplaceListItem       CommandOp = "replace_list_item"
	OpReplaceInSection      CommandOp = "replace_in_section"
	OpReplaceSectionContent CommandOp = "replace_section_content"
)

// validOps is the set of recognized command operations.
var validOps = map[CommandOp]bool{
	OpSetTaskStatus:         true,
	OpUpsertTask:            true,
	OpAppendToSection:       true,
	OpRemoveListItem:        true,
	OpRemoveFromSection:     true,
	OpRemoveSection:         true,
	OpReplaceListItem:       true,
	OpReplaceInSection:      true,
	OpReplaceSectionContent: true,
}

// --- Selector type enum ---

// SelectorType names how a command addresses its target.
type SelectorType string

const (
	SelSection       SelectorType = "section"
	SelTaskText      SelectorType = "task_text"
	SelTextContent   SelectorType = "text_content"
	SelTextInSection SelectorType = "text_in_section"
)

var validSelectorTypes = map[SelectorType]bool{
	SelSection:       true,
	SelTaskText:      true,
	SelTextContent:   true,
	SelTextInSection: true,
}

// Selector addresses the part of a document a command operates on.
// Value carries the heading text, task text, or line text depending on
// Type; Section optionally narrows task and text selectors to one
// section's extent.
type Selector struct {
	Type    SelectorType `json:"type"`
	Value   string       `json:"value"`
	Section string       `json:"section,omitempty"`
}

// UnmarshalJSON accepts either the full selector object or a bare string.
// A bare string leaves Type empty; DecodeCommands infers it from the
// command operation.
func (s *Selector) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Selector{Value: str}
		return nil
	}
	type plain Selector
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Selector(p)
	return nil
}

// Command is one structured edit instruction.
type Command struct {
	Target   backend.FileType `json:"target"`
	Op       CommandOp        `json:"command"`
	Selector Selector         `json:"selector"`
	Content  string           `json:"content,omitempty"`
	Status   tasklist.Status  `json:"status,omitempty"`
}

// defaultSelectorType is what a bare-string selector means per operation.
var defaultSelectorType = map[CommandOp]SelectorType{
	OpSetTaskStatus:         SelTaskText,
	OpUpsertTask:            SelTaskText,
	OpAppendToSection:       SelSection,
	OpRemoveListItem:        SelTextContent,
	OpRemoveFromSection:     SelTextInSection,
	OpRemoveSection:         SelSection,
	OpReplaceListItem:       SelTextContent,
	OpReplaceInSection:      SelTextInSection,
	OpReplaceSectionContent: SelSection,
}

// allowedSelectors lists which selector types each operation accepts.
var allowedSelectors = map[CommandOp][]SelectorType{
	OpSetTaskStatus:         {SelTaskText},
	OpUpsertTask:            {SelTaskText},
	OpAppendToSection:       {SelSection},
	OpRemoveListItem:        {SelTextContent, SelTaskText},
	OpRemoveFromSection:     {SelTextInSection},
	OpRemoveSection:         {SelSection},
	OpReplaceListItem:       {SelTextContent, SelTaskText},
	OpReplaceInSection:      {SelTextInSection},
	OpReplaceSectionContent: {SelSection},
}

// needsContent lists operations whose content payload is mandatory.
var needsContent = map[CommandOp]bool{
	OpUpsertTask:            true,
	OpAppendToSection:       true,
	OpReplaceListItem:       true,
	OpReplaceInSection:      true,
	OpReplaceSectionContent: true,
}

// DecodeCommands parses a JSON command batch. A single object is accepted
// in place of a one-element array. Every command is validated for shape
// here; selector resolution failures surface later, per command, in the
// batch report.
func DecodeCommands(raw []byte) ([]Command, error) {
	var cmds []Command
	if err := json.Unmarshal(raw, &cmds); err != nil {
		var one Command
		if err2 := json.Unmarshal(raw, &one); err2 != nil {
			return nil, backend.InvalidInputf("decode_commands", "commands must be a JSON array: %v", err)
		}
		cmds = []Command{one}
	}
	if len(cmds) == 0 {
		return nil, backend.InvalidInputf("decode_commands", "command batch is empty")
	}
	for i := range cmds {
		if err := validateCommand(&cmds[i]); err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
	}
	return cmds, nil
}

// validateCommand checks one command's shape and fills inferred selector
// types in place.
func validateCommand(c *Command) error {
	if !validOps[c.Op] {
		return backend.InvalidInputf("validate_command", "unknown command %q", c.Op)
	}
	if _, err := backend.ParseFileType(string(c.Target)); err != nil {
		return err
	}

	if c.Selector.Type == "" {
		c.Selector.Type = defaultSelectorType[c.Op]
	}
	if !validSelectorTypes[c.Selector.Type] {
		return backend.InvalidInputf("validate_command", "unknown selector type %q", c.Selector.Type)
	}
	ok := false
	for _, t := range allowedSelectors[c.Op] {
		if c.Selector.Type == t {
			ok = true
			break
		}
	}
	if !ok {
		return backend.InvalidInputf("validate_command", "command %s does not accept selector type %q", c.Op, c.Selector.Type)
	}
	if c.Selector.Value == "" {
		return backend.InvalidInputf("validate_command", "command %s has an empty selector value", c.Op)
	}
	if c.Selector.Type == SelTextInSection && c.Selector.Section == "" {
		return backend.InvalidInputf("validate_command", "selector text_in_section requires a section")
	}

	if (c.Op == OpSetTaskStatus || c.Op == OpUpsertTask) && c.Target != backend.FileTasks {
		return backend.InvalidInputf("validate_command", "command %s only applies to the tasks file, got target %q", c.Op, c.Target)
	}

	switch c.Op {
	case OpSetTaskStatus:
		if c.Status != tasklist.StatusTodo && c.Status != tasklist.StatusDone {
			return backend.InvalidInputf("validate_command", "set_task_status requires status todo or done, got %q", c.Status)
		}
	default:
		if c.Status != "" && c.Status != tasklist.StatusTodo && c.Status != tasklist.StatusDone {
			return backend.InvalidInputf("validate_command", "invalid status %q: must be todo or done", c.Status)
		}
	}

	if needsContent[c.Op] && c.Content == "" {
		return backend.InvalidInputf("validate_command", "command %s requires content", c.Op)
	}
	return nil
}
