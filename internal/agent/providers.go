package agent

import (
	"fmt"
	"sort"
	"time"

	"github.com/mvlachos/agora/internal/config"
)

// Built-in provider command specs. Custom providers from the config are
// registered on top and may shadow these.
var builtinSpecs = map[string]CommandSpec{
	"claude": {
		Command:    "claude",
		Args:       []string{"--dangerously-skip-permissions"},
		PromptFlag: "-p",
		ModelFlag:  "--model",
		SystemFlag: "--append-system-prompt",
		Timeout:    2 * time.Minute,
	},
	"codex": {
		Command:          "codex",
		Args:             []string{"exec", "--skip-git-repo-check"},
		ModelFlag:        "--model",
		PositionalPrompt: true,
		Timeout:          2 * time.Minute,
	},
}

// Registry resolves provider names to command or API specs. Custom
// providers are loaded once at construction, not at call time.
type Registry struct {
	specs    map[string]CommandSpec
	apiSpecs map[string]APISpec
}

func NewRegistry(custom map[string]config.ProviderSpec) *Registry {
	specs := make(map[string]CommandSpec, len(builtinSpecs)+len(custom))
	for name, spec := range builtinSpecs {
		specs[name] = spec
	}
	apiSpecs := make(map[string]APISpec, len(builtinAPISpecs)+len(custom))
	for name, spec := range builtinAPISpecs {
		apiSpecs[name] = spec
	}

	for name, p := range custom {
		if p.Mode == "api" {
			apiSpecs[name] = APISpec{
				Provider:  name,
				BaseURL:   p.BaseURL,
				APIKeyEnv: p.APIKeyEnv,
				Timeout:   p.Timeout,
			}
			continue
		}
		command := p.Command
		if command == "" {
			command = name
		}
		specs[name] = CommandSpec{
			Command:          command,
			Args:             p.Args,
			PromptFlag:       p.PromptFlag,
			ModelFlag:        p.ModelFlag,
			PositionalPrompt: p.PositionalPrompt,
			Timeout:          p.Timeout,
		}
	}
	return &Registry{specs: specs, apiSpecs: apiSpecs}
}

func (r *Registry) Lookup(provider string) (CommandSpec, bool) {
	spec, ok := r.specs[provider]
	return spec, ok
}

func (r *Registry) Providers() []string {
	seen := make(map[string]bool, len(r.specs)+len(r.apiSpecs))
	for name := range r.specs {
		seen[name] = true
	}
	for name := range r.apiSpecs {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds an agent for one spec. An unknown provider or an
// unsupported provider/mode pairing is a setup error, never a call-time
// surprise. Providers with no CLI, like openai, default to api mode.
func (r *Registry) New(spec config.AgentSpec, opts CLIAgentOpts) (Agent, error) {
	if opts.Name == "" {
		opts.Name = spec.DisplayName()
	}
	if opts.Model == "" {
		opts.Model = spec.Model
	}
	if opts.System == "" {
		opts.System = spec.SystemPrompt
	}
	if opts.Timeout == 0 {
		opts.Timeout = spec.Timeout
	}

	cmdSpec, hasCLI := r.specs[spec.Provider]
	apiSpec, hasAPI := r.apiSpecs[spec.Provider]

	mode := spec.Mode
	if mode == "" {
		if hasCLI {
			mode = "cli"
		} else {
			mode = "api"
		}
	}

	switch mode {
	case "cli":
		if !hasCLI {
			if hasAPI {
				return nil, fmt.Errorf("provider %s does not support cli mode", spec.Provider)
			}
			return nil, fmt.Errorf("unknown provider: %s", spec.Provider)
		}
		return NewCLIAgent(cmdSpec, opts), nil
	case "api":
		if !hasAPI {
			if hasCLI {
				return nil, fmt.Errorf("provider %s does not support api mode", spec.Provider)
			}
			return nil, fmt.Errorf("unknown provider: %s", spec.Provider)
		}
		return NewAPIAgent(apiSpec, APIAgentOpts{
			Name:    opts.Name,
			Model:   opts.Model,
			System:  opts.System,
			Timeout: opts.Timeout,
			Env:     opts.Env,
		})
	default:
		return nil, fmt.Errorf("unknown agent mode: %s", mode)
	}
}
