package main

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/mvlachos/agora/internal/session"
)

// runExport archives saved sessions into a zstd-compressed tarball, one
// JSON file per session.
func runExport(args []string) error {
	var outputPath, configPath, toolFilter string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			outputPath = args[i]
		case "-c":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -c")
			}
			i++
			configPath = args[i]
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

	if outputPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: agora export -f <output.tar.zst> [-t <tool>] [-c <config>]\n")
		return fmt.Errorf("missing -f flag")
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

	records, err := st.List(math.MaxInt32, toolFilter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no sessions to export")
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	defer tw.Close()

	for _, rec := range records {
		if err := writeSessionEntry(tw, rec); err != nil {
			return fmt.Errorf("export session %s: %w", rec.DisplayID(), err)
		}
	}

	// Close everything explicitly to catch write errors
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zstd: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	info, err := os.Stat(outputPath)
	size := int64(0)
	if err == nil {
		size = info.Size()
	}
	fmt.Printf("Export complete: %d sessions, %s\n", len(records), formatSize(size))
	return nil
}

func writeSessionEntry(tw *tar.Writer, rec *session.SessionRecord) error {
	blob, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	modTime := rec.CompletedAt
	if modTime.IsZero() {
		modTime = rec.CreatedAt
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:    rec.DisplayID() + ".json",
		Mode:    0o644,
		Size:    int64(len(blob)),
		ModTime: modTime,
	}); err != nil {
		return fmt.Errorf("write tar header: %w", err)
	}
	if _, err := tw.Write(blob); err != nil {
		return fmt.Errorf("write tar body: %w", err)
	}
	return nil
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
