package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/pable/go-cs-strats/internal/analysis"
	"github.com/pable/go-cs-strats/internal/model"
	"github.com/pable/go-cs-strats/internal/storage"
)

const analyzeSystemPrompt = `You are a Counter-Strike 2 strategy analyst. You are given clustered round
data from a demo-analysis tool and a question from a coach or player.

Rules:
- Answer ONLY from the data provided. Never invent or estimate statistics.
- Always cite specific numbers when making a claim.
- If the data is insufficient to answer confidently, say so explicitly.
- Be concise and actionable — focus on what the team can prepare or exploit.
- Avoid generic CS2 advice unless it directly explains a pattern in the data.

Data glossary:
- strategy/cluster: a group of rounds where the team set up and moved the same
  way (positions over time, utility usage, kill timing). Clusters are per map
  and per side.
- frequency: how many rounds used this strategy; pct_of_rounds is its share of
  the analyzed rounds.
- win_rate: % of the strategy's rounds the team won.
- bombsites: where the bomb was planted in the strategy's rounds. Rounds with
  no plant are counted in frequency but not in the site split.
- unclustered: rounds matching no recurring pattern (improvised or unique).
- noise in round labels = the unclustered group.`

var (
	analyzeModel  string
	analyzeAPIKey string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <run-id> <question>",
	Short: "AI-grounded analysis of a stored run (requires ANTHROPIC_API_KEY)",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "claude-haiku-4-5-20251001", "Anthropic model to use")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}
	question := args[1]

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	run, rep, err := loadRunReport(db, id)
	if err != nil {
		return err
	}
	rounds, err := db.GetRounds(id)
	if err != nil {
		return fmt.Errorf("get rounds: %w", err)
	}

	contextJSON, err := buildRunContext(run, rep, rounds)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}

	return callAnthropic(cmd.Context(), analyzeAPIKey, analyzeModel, contextJSON, question)
}

// buildRunContext serialises a stored run into compact JSON.
func buildRunContext(run *model.RunSummary, rep *analysis.Report, rounds []model.Round) (string, error) {
	type strategyEntry struct {
		ID          int                `json:"id"`
		Frequency   int                `json:"frequency"`
		PctOfRounds float64            `json:"pct_of_rounds"`
		Wins        int                `json:"wins"`
		Losses      int                `json:"losses"`
		WinRate     float64            `json:"win_rate"`
		Bombsites   map[string]float64 `json:"bombsites,omitempty"`
	}

	toEntry := func(cs analysis.ClusterStats) strategyEntry {
		e := strategyEntry{
			ID:          cs.ClusterID,
			Frequency:   cs.Frequency,
			PctOfRounds: round2(cs.PctOfRounds),
			Wins:        cs.Wins,
			Losses:      cs.Losses,
			WinRate:     round2(cs.WinRate),
		}
		if len(cs.Sites) > 0 {
			e.Bombsites = make(map[string]float64, len(cs.Sites))
			for _, s := range cs.Sites {
				e.Bombsites[s.Site.String()] = round2(s.Percentage)
			}
		}
		return e
	}

	strategies := make([]strategyEntry, 0, len(rep.Clusters))
	for _, cs := range rep.Clusters {
		strategies = append(strategies, toEntry(cs))
	}

	type roundEntry struct {
		Match    string `json:"match"`
		Round    int    `json:"round"`
		Strategy int    `json:"strategy"`
		Won      bool   `json:"won"`
		Site     string `json:"site"`
		Pistol   bool   `json:"pistol,omitempty"`
	}
	var roundList []roundEntry
	for _, r := range rounds {
		if !r.HasCluster {
			continue
		}
		roundList = append(roundList, roundEntry{
			Match:    r.MatchFile,
			Round:    r.RoundNum,
			Strategy: r.Cluster,
			Won:      r.TeamSide == r.Winner,
			Site:     r.Bombsite.String(),
			Pistol:   r.IsPistol,
		})
	}

	doc := map[string]interface{}{
		"subject":        "strategy_run",
		"map":            run.MapName,
		"side":           run.Side.String(),
		"team":           run.TeamPlayers,
		"demos":          run.DemoCount,
		"rounds_total":   rep.TotalRounds,
		"num_strategies": run.NumStrategies,
		"strategies":     strategies,
		"rounds":         roundList,
	}
	if rep.Unclustered != nil {
		doc["unclustered"] = toEntry(*rep.Unclustered)
	}

	b, err := json.Marshal(doc)
	return string(b), err
}

// round2 rounds a float64 to 2 decimal places.
func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// callAnthropic streams a response from the Anthropic API and prints it to stdout.
func callAnthropic(ctx context.Context, apiKey, modelID, dataJSON, question string) error {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)

	fmt.Fprintln(os.Stdout, "\n─── AI Analysis ─────────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		// Provide a cleaner error message for common API errors.
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed — check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}
