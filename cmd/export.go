package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-strats/internal/report"
	"github.com/pable/go-cs-strats/internal/storage"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a stored run as JSON (strategy report) or CSV (round table)",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer f.Close()
		out = f
	}

	switch exportFormat {
	case "json":
		run, rep, err := loadRunReport(db, id)
		if err != nil {
			return err
		}
		return report.WriteJSON(out, run.MapName, rep)
	case "csv":
		rounds, err := db.GetRounds(id)
		if err != nil {
			return fmt.Errorf("get rounds: %w", err)
		}
		if len(rounds) == 0 {
			return fmt.Errorf("no rounds stored for run %d", id)
		}
		return report.WriteRoundsCSV(out, rounds)
	default:
		return fmt.Errorf("unknown format %q: use json or csv", exportFormat)
	}
}
