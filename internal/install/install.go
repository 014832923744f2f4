// Package install registers foundry as an MCP server in the config files
// of supported AI coding clients.
//
// Each client keeps a JSON file with an mcpServers section. Install and
// Uninstall edit only the foundry entry: the file is decoded into a plain
// map, mutated, and re-encoded indented, so every other key the client
// stores there survives untouched.
package install

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/foundrymcp/foundry/internal/backend"
)

// ServerName is the key foundry registers under in mcpServers.
const ServerName = "foundry"

// executable is swapped in tests.
var executable = os.Executable

// Target is a supported MCP client.
type Target struct {
	Name string // name used on the command line
	Rel  string // config file path relative to the home directory
}

var targets = []Target{
	{Name: "claude-code", Rel: ".claude.json"},
	{Name: "cursor", Rel: filepath.Join(".cursor", "mcp.json")},
	{Name: "windsurf", Rel: filepath.Join(".codeium", "windsurf", "mcp_config.json")},
}

// Targets returns the supported clients.
func Targets() []Target {
	return append([]Target(nil), targets...)
}

func lookup(name string) (Target, error) {
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		if t.Name == name {
			return t, nil
		}
		names = append(names, t.Name)
	}
	return Target{}, backend.InvalidInputf("install",
		"unknown client %q: must be one of %s", name, strings.Join(names, ", "))
}

func configPath(t Target) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, t.Rel), nil
}

// readConfig loads a client config file. A missing file yields an empty
// config; a malformed one is an error so we never clobber what we cannot
// parse.
func readConfig(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cfg := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

func writeConfig(path string, cfg map[string]any) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Result describes what Install or Uninstall did.
type Result struct {
	Target  string `json:"target"`
	Path    string `json:"path"`
	Command string `json:"command,omitempty"`
	Changed bool   `json:"changed"`
}

// Install registers foundry in the named client's config, creating the
// file when the client has none yet.
func Install(name string) (*Result, error) {
	t, err := lookup(name)
	if err != nil {
		return nil, err
	}
	path, err := configPath(t)
	if err != nil {
		return nil, err
	}
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	exe, err := executable()
	if err != nil {
		return nil, fmt.Errorf("locate foundry binary: %w", err)
	}

	servers, _ := cfg["mcpServers"].(map[string]any)
	if servers == nil {
		servers = map[string]any{}
	}
	entry := map[string]any{
		"command": exe,
		"args":    []any{"serve"},
	}
	res := &Result{Target: t.Name, Path: path, Command: exe}
	if reflect.DeepEqual(servers[ServerName], entry) {
		return res, nil
	}
	servers[ServerName] = entry
	cfg["mcpServers"] = servers
	if err := writeConfig(path, cfg); err != nil {
		return nil, err
	}
	res.Changed = true
	return res, nil
}

// Uninstall removes the foundry entry from the named client's config. A
// missing file or entry is not an error.
func Uninstall(name string) (*Result, error) {
	t, err := lookup(name)
	if err != nil {
		return nil, err
	}
	path, err := configPath(t)
	if err != nil {
		return nil, err
	}
	res := &Result{Target: t.Name, Path: path}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return res, nil
	}
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	servers, _ := cfg["mcpServers"].(map[string]any)
	if _, ok := servers[ServerName]; !ok {
		return res, nil
	}
	delete(servers, ServerName)
	cfg["mcpServers"] = servers
	if err := writeConfig(path, cfg); err != nil {
		return nil, err
	}
	res.Changed = true
	return res, nil
}

// ClientStatus reports one client's registration state.
type ClientStatus struct {
	Target      string `json:"target"`
	Path        string `json:"path"`
	ConfigFound bool   `json:"config_found"`
	Registered  bool   `json:"registered"`
	Command     string `json:"command,omitempty"`
	BinaryFound bool   `json:"binary_found"`
}

// Status reports, per supported client, whether its config exists, whether
// foundry is registered, and whether the registered binary still exists.
func Status() ([]ClientStatus, error) {
	out := make([]ClientStatus, 0, len(targets))
	for _, t := range targets {
		path, err := configPath(t)
		if err != nil {
			return nil, err
		}
		st := ClientStatus{Target: t.Name, Path: path}
		data, err := os.ReadFile(path)
		if err != nil {
			out = append(out, st)
			continue
		}
		st.ConfigFound = true

		var cfg map[string]any
		if json.Unmarshal(data, &cfg) != nil {
			out = append(out, st)
			continue
		}
		servers, _ := cfg["mcpServers"].(map[string]any)
		entry, ok := servers[ServerName].(map[string]any)
		if !ok {
			out = append(out, st)
			continue
		}
		st.Registered = true
		if cmd, ok := entry["command"].(string); ok {
			st.Command = cmd
			if _, err := os.Stat(cmd); err == nil {
				st.BinaryFound = true
			}
		}
		out = append(out, st)
	}
	return out, nil
}
