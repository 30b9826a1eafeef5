package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml
var bundledPresets embed.FS

// LoadAgentPreset resolves a named agent preset. User presets in
// <config dir>/agora/agents/ shadow the bundled ones.
func LoadAgentPreset(name string) (AgentSpec, error) {
	if dir := userPresetDir(); dir != "" {
		if data, err := os.ReadFile(filepath.Join(dir, name+".yaml")); err == nil {
			return parsePreset(name, data)
		}
	}
	data, err := bundledPresets.ReadFile("presets/" + name + ".yaml")
	if err != nil {
		return AgentSpec{}, fmt.Errorf("unknown agent preset: %s", name)
	}
	return parsePreset(name, data)
}

// ListPresets returns every available preset name, bundled and user.
func ListPresets() []string {
	seen := map[string]bool{}
	if entries, err := bundledPresets.ReadDir("presets"); err == nil {
		for _, e := range entries {
			seen[strings.TrimSuffix(e.Name(), ".yaml")] = true
		}
	}
	if dir := userPresetDir(); dir != "" {
		if entries, err := os.ReadDir(dir); err == nil {
			for _, e := range entries {
				if strings.HasSuffix(e.Name(), ".yaml") {
					seen[strings.TrimSuffix(e.Name(), ".yaml")] = true
				}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func userPresetDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "agora", "agents")
}

func parsePreset(name string, data []byte) (AgentSpec, error) {
	var spec AgentSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return AgentSpec{}, fmt.Errorf("parse preset %s: %w", name, err)
	}
	return spec, nil
}

// applyPresets fills in preset fields for every agent naming one.
// Explicit spec fields always win over the preset's.
func applyPresets(cfg *Config) error {
	for i := range cfg.Agents {
		if err := applyPreset(&cfg.Agents[i]); err != nil {
			return err
		}
	}
	if cfg.Session.ModeratorAgent != nil {
		if err := applyPreset(cfg.Session.ModeratorAgent); err != nil {
			return err
		}
	}
	return nil
}

func applyPreset(spec *AgentSpec) error {
	if spec.Preset == "" {
		return nil
	}
	base, err := LoadAgentPreset(spec.Preset)
	if err != nil {
		return err
	}
	if spec.Provider == "" {
		spec.Provider = base.Provider
	}
	if spec.Mode == "" {
		spec.Mode = base.Mode
	}
	if spec.Model == "" {
		spec.Model = base.Model
	}
	if spec.Name == "" {
		spec.Name = base.Name
	}
	if spec.SystemPrompt == "" {
		spec.SystemPrompt = base.SystemPrompt
	}
	if spec.Timeout == 0 {
		spec.Timeout = base.Timeout
	}
	return nil
}
