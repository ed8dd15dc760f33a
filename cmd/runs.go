package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/go-cs-strats/internal/storage"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored discovery runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No runs stored yet. Use 'csstrats discover <demos-dir>' first.")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	table.Header("ID", "CREATED", "MAP", "SIDE", "DEMOS", "EPS", "MIN_SAMPLES", "STRATEGIES", "NOISE")

	for _, r := range runs {
		table.Append(
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt,
			r.MapName,
			r.Side.String(),
			strconv.Itoa(r.DemoCount),
			fmt.Sprintf("%.2f", r.Eps),
			strconv.Itoa(r.MinSamples),
			strconv.Itoa(r.NumStrategies),
			strconv.Itoa(r.NumNoise),
		)
	}
	table.Render()
	return nil
}
