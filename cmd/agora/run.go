package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mvlachos/agora/internal/config"
	"github.com/mvlachos/agora/internal/costs"
	"github.com/mvlachos/agora/internal/output"
	"github.com/mvlachos/agora/internal/sandbox"
	"github.com/mvlachos/agora/internal/session"
	"github.com/mvlachos/agora/internal/store"
	"github.com/mvlachos/agora/internal/tool"
	"github.com/mvlachos/agora/internal/vault"
)

func runRun(args []string) error {
	var configPath, outPath, format string
	var yes, dryRun bool

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-c":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -c")
			}
			i++
			configPath = args[i]
		case "-o":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -o")
			}
			i++
			outPath = args[i]
		case "-f":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			format = args[i]
		case "-y", "--yes":
			yes = true
		case "--dry-run":
			dryRun = true
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	est := costs.FromConfig(cfg)
	if dryRun {
		fmt.Print(est.Detailed())
		return nil
	}
	if est.ShouldConfirm() && !yes {
		fmt.Print(est.Detailed())
		if !confirm("Proceed?") {
			return nil
		}
	} else if est.ShouldWarn() {
		fmt.Println(est.Short())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, cleanup, err := buildOrchestrator(cfg, session.NopSink{})
	if err != nil {
		return err
	}
	defer cleanup()

	if err := orch.Setup(ctx); err != nil {
		return fmt.Errorf("session setup: %w", err)
	}

	results, err := orch.Run(ctx)
	if err != nil {
		return err
	}
	for result := range results {
		printRound(result)
	}
	if err := orch.Err(); err != nil {
		return err
	}

	rec := orch.Session()
	if rec.FinalSynthesis != "" {
		fmt.Printf("\n=== Final Synthesis ===\n\n%s\n", rec.FinalSynthesis)
	}

	if cfg.Output.SaveLog {
		locator, err := orch.Save()
		if err != nil {
			slog.Warn("failed to save session log", "error", err)
		} else {
			fmt.Printf("\nSession saved: %s\n", locator)
		}
	}

	if outPath != "" {
		if format == "" {
			format = cfg.Output.Format
		}
		renderer, err := output.ForFormat(format)
		if err != nil {
			return err
		}
		if err := output.WriteFile(renderer, rec, outPath); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Printf("Output written: %s\n", outPath)
	}

	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// buildOrchestrator wires tool, storage, secrets, and sandbox for one
// session. The returned cleanup closes whatever was opened.
func buildOrchestrator(cfg *config.Config, sink session.EventSink) (*session.Orchestrator, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if err := resolveSecretRefs(cfg); err != nil {
		cleanup()
		return nil, nil, err
	}

	var storage session.Storage
	if cfg.Output.SaveLog {
		switch cfg.Output.Backend {
		case "sqlite":
			db, err := store.New(cfg.Store)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("init store: %w", err)
			}
			closers = append(closers, func() { db.Close() })
			storage = db.SessionBackend()
		default:
			dir := cfg.Output.Directory
			if dir == "" {
				dir = store.DefaultLogDir()
			}
			fs, err := store.NewFileStorage(dir)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("init log dir: %w", err)
			}
			storage = fs
		}
	}

	opts := []session.Option{session.WithEventSink(sink)}
	if sandboxed(cfg) {
		runner, err := sandbox.NewRunner(cfg.Sandbox)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		// Containers left behind by a crashed run.
		if err := runner.CleanupStale(context.Background()); err != nil {
			slog.Warn("stale container cleanup failed", "error", err)
		}
		if cfg.Sandbox.Build {
			if err := runner.BuildImage(context.Background()); err != nil {
				cleanup()
				return nil, nil, err
			}
		}
		opts = append(opts, session.WithSandboxRunner(runner))
	}

	return session.NewOrchestrator(cfg, buildTool(cfg), storage, opts...), cleanup, nil
}

func buildTool(cfg *config.Config) tool.Tool {
	if cfg.Tool.Type == "docs" {
		return tool.NewDocsTool("", cfg.Tool.Command)
	}

	var env map[string]string
	if len(cfg.Tool.PathAdditions) > 0 {
		parts := append([]string{}, cfg.Tool.PathAdditions...)
		parts = append(parts, os.Getenv("PATH"))
		env = map[string]string{"PATH": strings.Join(parts, string(os.PathListSeparator))}
	}
	opts := tool.CLIToolOpts{
		HelpArgs:   cfg.Tool.HelpArgs,
		WorkingDir: cfg.Tool.WorkingDir,
		Timeout:    cfg.Tool.Timeout,
		Env:        env,
	}
	if cfg.Tool.Type == "memex" {
		return tool.NewMemexTool(cfg.Tool.Command, opts)
	}
	return tool.NewCLITool(cfg.Tool.Command, opts)
}

// resolveSecretRefs replaces secret: env references on agent specs with
// decrypted values from the vault.
func resolveSecretRefs(cfg *config.Config) error {
	if !hasSecretRefs(cfg) {
		return nil
	}
	if cfg.Vault.Passphrase == "" {
		return fmt.Errorf("agent env references secrets but no vault passphrase is set (AGORA_VAULT_PASSPHRASE)")
	}

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store for secrets: %w", err)
	}
	defer db.Close()

	v := vault.New(cfg.Vault.Passphrase)
	for i := range cfg.Agents {
		cfg.Agents[i].Env = v.ResolveEnv(cfg.Agents[i].Env, db)
	}
	if cfg.Session.ModeratorAgent != nil {
		cfg.Session.ModeratorAgent.Env = v.ResolveEnv(cfg.Session.ModeratorAgent.Env, db)
	}
	return nil
}

func hasSecretRefs(cfg *config.Config) bool {
	specs := cfg.Agents
	if cfg.Session.ModeratorAgent != nil {
		specs = append(specs, *cfg.Session.ModeratorAgent)
	}
	for _, spec := range specs {
		for _, val := range spec.Env {
			if strings.HasPrefix(val, vault.SecretPrefix) {
				return true
			}
		}
	}
	return false
}

func sandboxed(cfg *config.Config) bool {
	for _, spec := range cfg.Agents {
		if spec.Sandbox {
			return true
		}
	}
	return false
}

func printRound(result *session.RoundResult) {
	fmt.Printf("\n=== Round %d: %s ===\n", result.RoundNumber, result.Prompt)
	for _, resp := range result.Responses {
		if resp.IsError() {
			fmt.Printf("\n--- %s (failed: %s) ---\n%s\n", resp.AgentName, resp.ErrorType(), resp.Content)
			continue
		}
		fmt.Printf("\n--- %s ---\n%s\n", resp.AgentName, strings.TrimSpace(resp.Content))
	}
	if result.Synthesis != "" {
		fmt.Printf("\n--- Moderator ---\n%s\n", result.Synthesis)
	}
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
