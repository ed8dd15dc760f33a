package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-strats/internal/analysis"
	"github.com/pable/go-cs-strats/internal/model"
	"github.com/pable/go-cs-strats/internal/report"
	"github.com/pable/go-cs-strats/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the strategy report for a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	run, rep, err := loadRunReport(db, id)
	if err != nil {
		return err
	}

	report.PrintRunSummary(os.Stdout, *run)
	report.PrintStrategyTable(os.Stdout, rep)
	return nil
}

// loadRunReport rebuilds an analysis report from the stored cluster stats.
func loadRunReport(db *storage.DB, id int64) (*model.RunSummary, *analysis.Report, error) {
	run, err := db.GetRun(id)
	if err != nil {
		return nil, nil, fmt.Errorf("get run: %w", err)
	}
	if run == nil {
		return nil, nil, fmt.Errorf("run %d not found", id)
	}

	stats, err := db.GetClusterStats(id)
	if err != nil {
		return nil, nil, fmt.Errorf("get cluster stats: %w", err)
	}

	rep := &analysis.Report{Side: run.Side}
	for _, cs := range stats {
		rep.TotalRounds += cs.Frequency
		if cs.ClusterID == model.ClusterNoise {
			u := cs
			u.Note = "Rounds that did not match any discovered strategy pattern"
			rep.Unclustered = &u
			continue
		}
		rep.Clusters = append(rep.Clusters, cs)
	}
	return run, rep, nil
}
