package main

import (
	"fmt"
	"log/slog"
	"os"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if os.Getenv("AGORA_DEBUG") != "" {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runRun(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "sessions":
		err = runSessions(os.Args[2:])
	case "secret":
		err = runSecret(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "presets":
		err = runPresets()
	case "version":
		fmt.Printf("agora %s\n", version)
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: agora <command>

Commands:
  run        Run a feedback session from a config file
  serve      Start the gateway: web UI, event bus, scheduler
  sessions   List, show, and delete saved sessions
  secret     Manage encrypted secrets for agent environments
  export     Archive saved sessions to a .tar.zst file
  presets    List available agent presets
  version    Print version
`)
}
