package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-strats/internal/batch"
	"github.com/pable/go-cs-strats/internal/report"
	"github.com/pable/go-cs-strats/internal/teams"
)

var (
	teamsMinPlayers int
	teamsMinDemos   int
	teamsWorkers    int
)

var teamsCmd = &cobra.Command{
	Use:   "teams <demos-dir>",
	Short: "List the recurring teams found across a folder of demos",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeams,
}

func init() {
	teamsCmd.Flags().IntVar(&teamsMinPlayers, "min-players", 4, "shared players required to link two demos")
	teamsCmd.Flags().IntVar(&teamsMinDemos, "min-demos", 2, "distinct demos required to report a team")
	teamsCmd.Flags().IntVar(&teamsWorkers, "workers", batch.DefaultWorkers, "demos decoded concurrently")
}

func runTeams(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	demos, err := batch.DiscoverDemos(args[0])
	if err != nil {
		return err
	}
	if len(demos) == 0 {
		return fmt.Errorf("no .dem files in %s", args[0])
	}

	res, err := batch.Run(cmd.Context(), demos, batch.Options{
		Workers: teamsWorkers,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	found := teams.IdentifyAllTeams(batch.Rosters(res.Decoded), teamsMinPlayers, teamsMinDemos)
	if len(found) == 0 {
		fmt.Fprintf(os.Stdout, "No team appears in at least %d demos.\n", teamsMinDemos)
		return nil
	}

	report.PrintTeamsTable(os.Stdout, found)
	return nil
}
