package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/mvlachos/agora/internal/config"
	"github.com/mvlachos/agora/internal/output"
	"github.com/mvlachos/agora/internal/session"
	"github.com/mvlachos/agora/internal/store"
)

// sessionStore is the record access surface shared by the file and
// sqlite backends.
type sessionStore interface {
	Load(id string) (*session.SessionRecord, error)
	List(limit int, toolFilter string) ([]*session.SessionRecord, error)
	Delete(id string) (bool, error)
}

type sqliteSessions struct{ db *store.Store }

func (s sqliteSessions) Load(id string) (*session.SessionRecord, error) {
	return s.db.GetSession(id)
}
func (s sqliteSessions) List(limit int, toolFilter string) ([]*session.SessionRecord, error) {
	return s.db.ListSessions(limit, toolFilter)
}
func (s sqliteSessions) Delete(id string) (bool, error) {
	return s.db.DeleteSession(id)
}

func openSessionStore(cfg *config.Config) (sessionStore, func(), error) {
	if cfg.Output.Backend == "sqlite" {
		db, err := store.New(cfg.Store)
		if err != nil {
			return nil, nil, fmt.Errorf("init store: %w", err)
		}
		return sqliteSessions{db}, func() { db.Close() }, nil
	}

	dir := cfg.Output.Directory
	if dir == "" {
		dir = store.DefaultLogDir()
	}
	fs, err := store.NewFileStorage(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("init log dir: %w", err)
	}
	return fs, func() {}, nil
}

func runSessions(args []string) error {
	if len(args) == 0 {
		printSessionsUsage()
		return nil
	}

	var configPath string
	rest := make([]string, 0, len(args)-1)
	for i := 1; i < len(args); i++ {
		if args[i] == "-c" {
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -c")
			}
			i++
			configPath = args[i]
			continue
		}
		rest = append(rest, args[i])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	st, closeStore, err := openSessionStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	switch args[0] {
	case "list":
		return sessionsList(st, rest)
	case "show":
		return sessionsShow(st, cfg, rest)
	case "delete":
		return sessionsDelete(st, rest)
	default:
		printSessionsUsage()
		return fmt.Errorf("unknown sessions command: %s", args[0])
	}
}

func printSessionsUsage() {
	fmt.Fprintf(os.Stderr, `Usage: agora sessions <command>

Commands:
  list [-n <limit>] [-t <tool>]   List saved sessions, newest first
  show <id> [-f <format>]         Render one session (id may be a fragment)
  delete <id>                     Delete a saved session
`)
}

func sessionsList(st sessionStore, args []string) error {
	limit := 0
	toolFilter := ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-n":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -n")
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return fmt.Errorf("invalid limit: %s", args[i])
			}
			limit = n
		case "-t":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -t")
			}
			i++
			toolFilter = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	records, err := st.List(limit, toolFilter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTOOL\tMODE\tAGENTS\tROUNDS\tCREATED\tSTATUS")
	for _, rec := range records {
		status := "incomplete"
		if rec.IsComplete() {
			status = "complete"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			rec.DisplayID(), rec.Tool, rec.Mode, rec.AgentCount, len(rec.Rounds),
			rec.CreatedAt.Format("2006-01-02 15:04"), status)
	}
	return w.Flush()
}

func sessionsShow(st sessionStore, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: agora sessions show <id> [-f <format>]")
	}
	id := args[0]
	format := cfg.Output.Format
	for i := 1; i < len(args); i++ {
		if args[i] == "-f" {
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			format = args[i]
		}
	}

	rec, err := st.Load(id)
	if err != nil {
		return err
	}
	renderer, err := output.ForFormat(format)
	if err != nil {
		return err
	}
	rendered, err := renderer.Render(rec)
	if err != nil {
		return err
	}
	fmt.Print(rendered)
	return nil
}

func sessionsDelete(st sessionStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: agora sessions delete <id>")
	}
	deleted, err := st.Delete(args[0])
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("session %q not found", args[0])
	}
	fmt.Printf("Session %q deleted\n", args[0])
	return nil
}
