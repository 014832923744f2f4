package resources_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/local"
	"github.com/foundrymcp/foundry/internal/resources"
)

func readProjects(t *testing.T, h *resources.Handler) mcp.TextResourceContents {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "foundry://projects"
	contents, err := h.HandleProjects(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleProjects: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("len(contents) = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] is %T", contents[0])
	}
	return tc
}

func TestHandleProjects(t *testing.T) {
	b, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	h := resources.NewHandler(b)

	tc := readProjects(t, h)
	if tc.URI != "foundry://projects" || tc.MIMEType != "application/json" {
		t.Errorf("contents = %+v", tc)
	}
	var empty []backend.ProjectInfo
	if err := json.Unmarshal([]byte(tc.Text), &empty); err != nil {
		t.Fatalf("parse listing: %v\n%s", err, tc.Text)
	}
	if len(empty) != 0 {
		t.Errorf("listing = %v, want empty", empty)
	}

	if _, err := b.CreateProject(context.Background(), "demo", backend.ProjectSeed{}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	tc = readProjects(t, h)
	var infos []backend.ProjectInfo
	if err := json.Unmarshal([]byte(tc.Text), &infos); err != nil {
		t.Fatalf("parse listing: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "demo" {
		t.Errorf("listing = %v", infos)
	}
	if !strings.Contains(tc.Text, "spec_count") {
		t.Errorf("listing lacks spec_count: %s", tc.Text)
	}
}
