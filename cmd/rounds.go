package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-strats/internal/model"
	"github.com/pable/go-cs-strats/internal/report"
	"github.com/pable/go-cs-strats/internal/storage"
)

var roundsCluster int

var roundsCmd = &cobra.Command{
	Use:   "rounds <run-id>",
	Short: "Show the labeled round table for a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRounds,
}

func init() {
	roundsCmd.Flags().IntVar(&roundsCluster, "cluster", -2, "only show rounds with this strategy label (-1 for noise)")
}

func runRounds(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	rounds, err := db.GetRounds(id)
	if err != nil {
		return fmt.Errorf("get rounds: %w", err)
	}
	if len(rounds) == 0 {
		return fmt.Errorf("no rounds stored for run %d", id)
	}

	if cmd.Flags().Changed("cluster") {
		var filtered []model.Round
		for _, r := range rounds {
			if r.HasCluster && r.Cluster == roundsCluster {
				filtered = append(filtered, r)
			}
		}
		rounds = filtered
	}

	report.PrintRoundsTable(os.Stdout, rounds)
	return nil
}
