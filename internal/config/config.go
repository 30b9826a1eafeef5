package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Session   SessionConfig           `yaml:"session"`
	Tool      ToolConfig              `yaml:"tool"`
	Agents    []AgentSpec             `yaml:"agents"`
	Questions []string                `yaml:"questions"`
	Providers map[string]ProviderSpec `yaml:"providers"`
	Output    OutputConfig            `yaml:"output"`
	Store     StoreConfig             `yaml:"store"`
	NATS      NATSConfig              `yaml:"nats"`
	Web       WebConfig               `yaml:"web"`
	Scheduler SchedulerConfig         `yaml:"scheduler"`
	Notify    NotifyConfig            `yaml:"notify"`
	Sandbox   SandboxConfig           `yaml:"sandbox"`
	Vault     VaultConfig             `yaml:"vault"`
}

// SessionMode selects how rounds are dispatched to the panel.
type SessionMode string

const (
	ModeSingle     SessionMode = "single"
	ModeDiscussion SessionMode = "discussion"
	ModeStructured SessionMode = "structured"
)

type SessionConfig struct {
	Name              string        `yaml:"name"`
	Mode              SessionMode   `yaml:"mode"`
	Parallel          bool          `yaml:"parallel"`
	FollowUpRounds    int           `yaml:"follow_up_rounds"`
	Phases            []string      `yaml:"phases"`
	Moderator         bool          `yaml:"moderator"`
	ModeratorRequired bool          `yaml:"moderator_required"`
	ModeratorAgent    *AgentSpec    `yaml:"moderator_agent"`
	AgentTimeout      time.Duration `yaml:"agent_timeout"`
}

type ToolConfig struct {
	Type          string        `yaml:"type"` // "cli" (default), "docs", or "memex"
	Command       string        `yaml:"command"`
	HelpArgs      []string      `yaml:"help_args"`
	WorkingDir    string        `yaml:"working_dir"`
	Timeout       time.Duration `yaml:"timeout"`
	PathAdditions []string      `yaml:"path_additions"`
}

type AgentSpec struct {
	Provider     string            `yaml:"provider"`
	Mode         string            `yaml:"mode"` // "cli" (default) or "api"
	Preset       string            `yaml:"preset"`
	Model        string            `yaml:"model"`
	Name         string            `yaml:"name"`
	SystemPrompt string            `yaml:"system_prompt"`
	Timeout      time.Duration     `yaml:"timeout"`
	Env          map[string]string `yaml:"env"`
	Sandbox      bool              `yaml:"sandbox"`
}

// DisplayName returns the panel-facing name for the agent.
func (a AgentSpec) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Model != "" {
		return a.Provider + ":" + a.Model
	}
	return a.Provider
}

// ProviderSpec describes a custom provider: either a CLI to invoke or,
// with mode "api", an OpenAI-compatible chat completions endpoint.
type ProviderSpec struct {
	Mode             string        `yaml:"mode"` // "cli" (default) or "api"
	Command          string        `yaml:"command"`
	Args             []string      `yaml:"args"`
	PromptFlag       string        `yaml:"prompt_flag"`
	ModelFlag        string        `yaml:"model_flag"`
	PositionalPrompt bool          `yaml:"positional_prompt"`
	BaseURL          string        `yaml:"base_url"`
	APIKeyEnv        string        `yaml:"api_key_env"`
	Timeout          time.Duration `yaml:"timeout"`
}

type OutputConfig struct {
	Format    string `yaml:"format"`    // json, markdown, text
	Directory string `yaml:"directory"` // where rendered output goes
	SaveLog   bool   `yaml:"save_log"`
	Backend   string `yaml:"backend"` // "file" or "sqlite"
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type NATSConfig struct {
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
	URL     string `yaml:"url"` // connect to an external server instead of embedding one
}

type WebConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type NotifyConfig struct {
	TelegramToken string `yaml:"telegram_token"`
	TelegramChat  int64  `yaml:"telegram_chat"`
}

type SandboxConfig struct {
	Image      string `yaml:"image"`
	Build      bool   `yaml:"build"`
	Dockerfile string `yaml:"dockerfile"`
	MaxRunning int    `yaml:"max_running"`
}

type VaultConfig struct {
	Passphrase string `yaml:"passphrase"`
}

func defaults() Config {
	return Config{
		Session: SessionConfig{
			Mode:           ModeSingle,
			Parallel:       true,
			FollowUpRounds: 1,
			AgentTimeout:   2 * time.Minute,
		},
		Tool: ToolConfig{
			Type:     "cli",
			HelpArgs: []string{"--help"},
			Timeout:  30 * time.Second,
		},
		Output: OutputConfig{
			Format:  "text",
			SaveLog: true,
			Backend: "file",
		},
		Store: StoreConfig{
			Path: "data/agora.db",
		},
		NATS: NATSConfig{
			Port:    4222,
			DataDir: "data/nats",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Scheduler: SchedulerConfig{
			PollInterval: 30 * time.Second,
		},
		Sandbox: SandboxConfig{
			Image:      "agora-agent:latest",
			Dockerfile: "Dockerfile.agent",
			MaxRunning: 5,
		},
	}
}

// Load reads the config file pointed at by AGORA_CONFIG (default
// agora.yaml), expands environment variables in the raw YAML, and applies
// environment overrides on top. A missing file yields defaults + env.
func Load() (*Config, error) {
	path := os.Getenv("AGORA_CONFIG")
	if path == "" {
		path = "agora.yaml"
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := applyPresets(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AGORA_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("AGORA_NATS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.NATS.Port = port
		}
	}
	if v := os.Getenv("AGORA_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("AGORA_TELEGRAM_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := os.Getenv("AGORA_VAULT_PASSPHRASE"); v != "" {
		cfg.Vault.Passphrase = v
	}
}

// Validate checks the parts of the config a session run cannot proceed
// without. Serve-mode-only sections are validated where they are used.
func (c *Config) Validate() error {
	if c.Tool.Command == "" {
		return fmt.Errorf("tool command is required")
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent must be configured")
	}
	if len(c.Questions) == 0 {
		return fmt.Errorf("at least one question round is required")
	}
	switch c.Session.Mode {
	case ModeSingle, ModeDiscussion, ModeStructured, "":
	default:
		return fmt.Errorf("unknown session mode: %s", c.Session.Mode)
	}
	for i, a := range c.Agents {
		if a.Provider == "" {
			return fmt.Errorf("agent %d: provider is required", i)
		}
		switch a.Mode {
		case "", "cli", "api":
		default:
			return fmt.Errorf("agent %d: unknown mode: %s", i, a.Mode)
		}
	}
	return nil
}
