package backend

// --- Validation status enum ---

// ValidationStatus signals workflow completeness, never failure. A call
// that errors returns an error; a call that succeeds returns complete or
// incomplete depending on whether the caller has obvious follow-up work.
type ValidationStatus string

const (
	StatusComplete   ValidationStatus = "complete"
	StatusIncomplete ValidationStatus = "incomplete"
)

// Envelope is the uniform response shape of every operation, identical
// across the MCP tools and the CLI's --json output.
type Envelope struct {
	Data             any              `json:"data"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	NextSteps        []string         `json:"next_steps"`
	WorkflowHints    []string         `json:"workflow_hints,omitempty"`
}

// Complete builds an envelope for a call with no follow-up work.
func Complete(data any, nextSteps ...string) *Envelope {
	return &Envelope{
		Data:             data,
		ValidationStatus: StatusComplete,
		NextSteps:        steps(nextSteps),
	}
}

// Incomplete builds an envelope for a call that succeeded but left the
// caller with obvious next work.
func Incomplete(data any, nextSteps ...string) *Envelope {
	return &Envelope{
		Data:             data,
		ValidationStatus: StatusIncomplete,
		NextSteps:        steps(nextSteps),
	}
}

// Hint appends a workflow hint and returns the envelope for chaining.
func (e *Envelope) Hint(h string) *Envelope {
	e.WorkflowHints = append(e.WorkflowHints, h)
	return e
}

// steps guarantees next_steps marshals as [] rather than null.
func steps(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
