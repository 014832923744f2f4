// Package config resolves foundry's configuration: built-in defaults, then
// <root>/config.yaml, then environment variables, strongest last.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/filestore"
)

// Backend names accepted by the backend setting.
const (
	BackendLocal  = "local"
	BackendLinear = "linear"
)

// DefaultLinearEndpoint is the Linear GraphQL endpoint.
const DefaultLinearEndpoint = "https://api.linear.app/graphql"

// Config keys as they appear in config.yaml.
const (
	KeyRoot            = "root"
	KeyBackend         = "backend"
	KeyJournalDisabled = "journal.disabled"
	KeyLinearAPIKey    = "linear.api-key"
	KeyLinearTeamID    = "linear.team-id"
	KeyLinearEndpoint  = "linear.endpoint"
	KeyLinearTimeout   = "linear.timeout"
	KeyLinearRetries   = "linear.max-retries"
)

// Linear holds the remote backend settings.
type Linear struct {
	APIKey     string        `yaml:"api-key"`
	TeamID     string        `yaml:"team-id"`
	Endpoint   string        `yaml:"endpoint"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max-retries"`
}

// Journal holds the operation journal settings.
type Journal struct {
	Disabled bool `yaml:"disabled"`
}

// Config is the fully resolved configuration.
type Config struct {
	Root    string  `yaml:"root"`
	Backend string  `yaml:"backend"`
	Journal Journal `yaml:"journal"`
	Linear  Linear  `yaml:"linear"`
}

// File returns the path of the config file under the root.
func (c *Config) File() string {
	return filepath.Join(c.Root, "config.yaml")
}

// JournalPath returns the path of the journal database under the root.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Root, "journal.db")
}

// Default returns the built-in configuration for the given root.
func Default(root string) *Config {
	return &Config{
		Root:    root,
		Backend: BackendLocal,
		Linear: Linear{
			Endpoint:   DefaultLinearEndpoint,
			Timeout:    30 * time.Second,
			MaxRetries: 4,
		},
	}
}

// ResolveRoot returns the foundry root directory: FOUNDRY_ROOT when set,
// $HOME/.foundry otherwise.
func ResolveRoot() (string, error) {
	if root := os.Getenv("FOUNDRY_ROOT"); root != "" {
		return root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".foundry"), nil
}

// Load resolves the configuration. The root comes from FOUNDRY_ROOT or
// defaults to $HOME/.foundry; it decides where config.yaml is looked up. A
// missing config file is fine, a malformed one is not.
func Load() (*Config, error) {
	root, err := ResolveRoot()
	if err != nil {
		return nil, err
	}

	file := filepath.Join(root, "config.yaml")

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(file)

	def := Default(root)
	v.SetDefault(KeyRoot, def.Root)
	v.SetDefault(KeyBackend, def.Backend)
	v.SetDefault(KeyJournalDisabled, def.Journal.Disabled)
	v.SetDefault(KeyLinearEndpoint, def.Linear.Endpoint)
	v.SetDefault(KeyLinearTimeout, def.Linear.Timeout.String())
	v.SetDefault(KeyLinearRetries, def.Linear.MaxRetries)

	if _, err := os.Stat(file); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: stat %s: %w", file, err)
	}

	// Environment overrides win over file values.
	setIfEnv(v, KeyRoot, "FOUNDRY_ROOT")
	setIfEnv(v, KeyBackend, "FOUNDRY_BACKEND")
	setIfEnv(v, KeyLinearAPIKey, "FOUNDRY_LINEAR_API_KEY", "LINEAR_API_KEY")
	setIfEnv(v, KeyLinearTeamID, "FOUNDRY_LINEAR_TEAM_ID", "LINEAR_TEAM_ID")
	if os.Getenv("FOUNDRY_JOURNAL") == "off" {
		v.Set(KeyJournalDisabled, true)
	}

	cfg := &Config{
		Root:    v.GetString(KeyRoot),
		Backend: v.GetString(KeyBackend),
		Journal: Journal{Disabled: v.GetBool(KeyJournalDisabled)},
		Linear: Linear{
			APIKey:     v.GetString(KeyLinearAPIKey),
			TeamID:     v.GetString(KeyLinearTeamID),
			Endpoint:   v.GetString(KeyLinearEndpoint),
			Timeout:    v.GetDuration(KeyLinearTimeout),
			MaxRetries: v.GetInt(KeyLinearRetries),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setIfEnv(v *viper.Viper, key string, envs ...string) {
	for _, name := range envs {
		if val := os.Getenv(name); val != "" {
			v.Set(key, val)
			return
		}
	}
}

// Validate rejects unknown backends and a linear backend without
// credentials.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
	case BackendLinear:
		if c.Linear.APIKey == "" {
			return backend.InvalidInputf("config",
				"the linear backend needs an API key: set FOUNDRY_LINEAR_API_KEY or linear.api-key in %s", c.File())
		}
		if c.Linear.TeamID == "" {
			return backend.InvalidInputf("config",
				"the linear backend needs a team: set FOUNDRY_LINEAR_TEAM_ID or linear.team-id in %s", c.File())
		}
	default:
		return backend.InvalidInputf("config",
			"unknown backend %q: must be %s or %s", c.Backend, BackendLocal, BackendLinear)
	}
	return nil
}

// starterFile mirrors Config with a human-friendly duration so the
// rendered starter reads "30s" instead of nanoseconds.
type starterFile struct {
	Backend string `yaml:"backend"`
	Journal struct {
		Disabled bool `yaml:"disabled"`
	} `yaml:"journal"`
	Linear struct {
		APIKey     string `yaml:"api-key"`
		TeamID     string `yaml:"team-id"`
		Endpoint   string `yaml:"endpoint"`
		Timeout    string `yaml:"timeout"`
		MaxRetries int    `yaml:"max-retries"`
	} `yaml:"linear"`
}

const starterHeader = `# foundry configuration.
#
# Everything here has a sensible default; environment variables override
# file values (FOUNDRY_BACKEND, FOUNDRY_LINEAR_API_KEY, FOUNDRY_LINEAR_TEAM_ID,
# FOUNDRY_JOURNAL=off). The file lives at <root>/config.yaml; the root itself
# comes from FOUNDRY_ROOT and defaults to $HOME/.foundry.

`

// Starter renders the commented starter config.yaml.
func Starter(root string) ([]byte, error) {
	def := Default(root)
	var s starterFile
	s.Backend = def.Backend
	s.Journal.Disabled = def.Journal.Disabled
	s.Linear.Endpoint = def.Linear.Endpoint
	s.Linear.Timeout = def.Linear.Timeout.String()
	s.Linear.MaxRetries = def.Linear.MaxRetries

	body, err := yaml.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("config: render starter: %w", err)
	}
	return append([]byte(starterHeader), body...), nil
}

// InitFile writes the starter config.yaml under root, refusing to
// overwrite an existing one.
func InitFile(root string) (string, error) {
	st, err := filestore.New(root)
	if err != nil {
		return "", err
	}
	exists, err := st.Exists("config.yaml")
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, "config.yaml")
	if exists {
		return "", backend.Conflictf("init_config", "config file already exists").WithPath(path)
	}
	data, err := Starter(root)
	if err != nil {
		return "", err
	}
	if err := st.WriteFile("config.yaml", data); err != nil {
		return "", err
	}
	return path, nil
}
