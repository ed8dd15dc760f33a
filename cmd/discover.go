package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pable/go-cs-strats/internal/analysis"
	"github.com/pable/go-cs-strats/internal/batch"
	"github.com/pable/go-cs-strats/internal/cluster"
	"github.com/pable/go-cs-strats/internal/features"
	"github.com/pable/go-cs-strats/internal/model"
	"github.com/pable/go-cs-strats/internal/report"
	"github.com/pable/go-cs-strats/internal/sides"
	"github.com/pable/go-cs-strats/internal/storage"
	"github.com/pable/go-cs-strats/internal/teams"
)

var (
	discoverSide       string
	discoverTeam       string
	discoverSideOnly   bool
	discoverMinPlayers int

	discoverEps        float64
	discoverMinSamples int
	discoverAutoTune   bool
	discoverTargetN    int

	discoverStrictMap bool
	discoverWorkers   int
	discoverInterval  float64

	discoverJSONOut string
	discoverCSVOut  string
)

var discoverCmd = &cobra.Command{
	Use:   "discover <demos-dir>",
	Short: "Discover recurring round strategies from a folder of demos",
	Long: `Decodes every .dem file in the folder, resolves the recurring team across
matches, attributes each round to the side that team played, builds per-round
strategic feature vectors and clusters them with DBSCAN. Results are printed
and stored in the database for later inspection.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&discoverSide, "side", "T", "side to analyze (T or CT)")
	discoverCmd.Flags().StringVar(&discoverTeam, "team", "", "comma-separated roster (skips automatic team identification)")
	discoverCmd.Flags().BoolVar(&discoverSideOnly, "side-only", false, "analyze all rounds of the side, ignoring team identity")
	discoverCmd.Flags().IntVar(&discoverMinPlayers, "min-players", 4, "players required in common to accept a recurring team")

	discoverCmd.Flags().Float64Var(&discoverEps, "eps", 0.5, "DBSCAN neighborhood radius (standardized units)")
	discoverCmd.Flags().IntVar(&discoverMinSamples, "min-samples", 2, "DBSCAN minimum neighborhood size")
	discoverCmd.Flags().BoolVar(&discoverAutoTune, "auto-tune", false, "search eps/min-samples for a target cluster count")
	discoverCmd.Flags().IntVar(&discoverTargetN, "target-clusters", 5, "cluster count targeted by --auto-tune")

	discoverCmd.Flags().BoolVar(&discoverStrictMap, "strict-map", false, "abort when demos span multiple maps instead of skipping")
	discoverCmd.Flags().IntVar(&discoverWorkers, "workers", batch.DefaultWorkers, "demos decoded concurrently")
	discoverCmd.Flags().Float64Var(&discoverInterval, "sample-interval", 10, "seconds between mid-round position samples")

	discoverCmd.Flags().StringVar(&discoverJSONOut, "json", "", "write the strategy report as JSON to this file")
	discoverCmd.Flags().StringVar(&discoverCSVOut, "csv", "", "write the labeled round table as CSV to this file")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	side := model.ParseSide(discoverSide)
	if side == model.SideUnknown {
		return fmt.Errorf("invalid side %q: use T or CT", discoverSide)
	}

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
		Workers:        discoverWorkers,
		SampleInterval: discoverInterval,
		StrictMap:      discoverStrictMap,
		Logger:         log,
	})
	if err != nil {
		return err
	}

	// Resolve the target roster, then attribute each match's rounds to
	// the side that roster played before consolidating.
	var teamPlayers map[string]struct{}
	if !discoverSideOnly {
		teamPlayers, err = resolveTeam(res.Decoded, log)
		if err != nil {
			return err
		}
		for _, dm := range res.Decoded {
			sides.AttributeRounds(dm.Rounds, dm.SideObs, teamPlayers)
		}
	}
	data := batch.Consolidate(res.Decoded)

	vectors := features.BuildMatrix(data, side, teamPlayers)
	if len(vectors) == 0 {
		return fmt.Errorf("no %s rounds to cluster (check --side/--team)", side)
	}

	params := cluster.Params{Eps: discoverEps, MinSamples: discoverMinSamples}
	if discoverAutoTune {
		params = cluster.AutoTune(vectors, 0.3, 2.0, 2, 4, discoverTargetN)
		log.Info("auto-tuned clustering parameters",
			zap.Float64("eps", params.Eps),
			zap.Int("min_samples", params.MinSamples))
	}

	result := cluster.Run(vectors, params)
	labeled := cluster.MergeLabels(data.Rounds, vectors, result.Labels)

	rep, err := analysis.Analyze(labeled, side)
	if err != nil {
		return err
	}

	run := model.RunSummary{
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		MapName:       data.MapName,
		Side:          side,
		TeamPlayers:   strings.Join(model.SortedNames(teamPlayers), ","),
		DemoCount:     len(res.Decoded),
		Eps:           result.Params.Eps,
		MinSamples:    result.Params.MinSamples,
		NumStrategies: result.NumStrategies,
		NumNoise:      result.NumNoise,
	}

	if err := storeRun(&run, labeled, rep); err != nil {
		return err
	}

	report.PrintRunSummary(os.Stdout, run)
	report.PrintStrategyTable(os.Stdout, rep)

	if len(res.Failed) > 0 {
		fmt.Fprintf(os.Stdout, "\n%d demo(s) failed to decode: %s\n",
			len(res.Failed), strings.Join(res.Failed, ", "))
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(os.Stdout, "%d demo(s) skipped (different map): %s\n",
			len(res.Skipped), strings.Join(res.Skipped, ", "))
	}

	if discoverJSONOut != "" {
		if err := writeJSONFile(discoverJSONOut, data.MapName, rep); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "JSON report written to %s\n", discoverJSONOut)
	}
	if discoverCSVOut != "" {
		if err := writeCSVFile(discoverCSVOut, labeled); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Round CSV written to %s\n", discoverCSVOut)
	}
	return nil
}

// resolveTeam returns the roster to analyze: the --team flag if given,
// otherwise the roster recurring across all decoded matches.
func resolveTeam(decoded []*model.DecodedMatch, log *zap.Logger) (map[string]struct{}, error) {
	if discoverTeam != "" {
		names := strings.Split(discoverTeam, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		return model.NameSet(names), nil
	}

	playersPerMatch := make([]map[string]struct{}, 0, len(decoded))
	for _, dm := range decoded {
		all := make(map[string]struct{})
		for _, rs := range dm.Rosters {
			for name := range rs.Players {
				all[name] = struct{}{}
			}
		}
		playersPerMatch = append(playersPerMatch, all)
	}

	team := teams.IdentifyCommonTeam(playersPerMatch, discoverMinPlayers)
	if len(team) < discoverMinPlayers {
		return nil, fmt.Errorf("no recurring team found across %d demos; pass --team explicitly or use --side-only", len(decoded))
	}
	log.Info("identified recurring team", zap.Strings("players", model.SortedNames(team)))
	return team, nil
}

func storeRun(run *model.RunSummary, rounds []model.Round, rep *analysis.Report) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	id, err := db.InsertRun(*run)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	run.ID = id
	if err := db.InsertRounds(id, rounds); err != nil {
		return fmt.Errorf("insert rounds: %w", err)
	}
	if err := db.InsertClusterStats(id, rep); err != nil {
		return fmt.Errorf("insert cluster stats: %w", err)
	}
	return nil
}

func writeJSONFile(path, mapName string, rep *analysis.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return report.WriteJSON(f, mapName, rep)
}

func writeCSVFile(path string, rounds []model.Round) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return report.WriteRoundsCSV(f, rounds)
}
