package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-cs-strats/internal/analysis"
	"github.com/pable/go-cs-strats/internal/model"
)

// PrintRunSummary prints a one-line summary header for a discovery run.
func PrintRunSummary(w io.Writer, run model.RunSummary) {
	team := run.TeamPlayers
	if team == "" {
		team = "(side only)"
	}
	fmt.Fprintf(w, "\nMap: %s  |  Side: %s  |  Demos: %d  |  eps=%.2f min_samples=%d  |  Strategies: %d  |  Noise: %d\n  Team: %s\n\n",
		run.MapName, run.Side, run.DemoCount, run.Eps, run.MinSamples,
		run.NumStrategies, run.NumNoise, team)
}

// PrintStrategyTable prints one row per discovered strategy cluster, the
// unclustered group last.
func PrintStrategyTable(w io.Writer, rep *analysis.Report) {
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))

	table.Header("STRATEGY", "ROUNDS", "PCT", "W-L", "WIN%", "SITES")

	for _, cs := range rep.Clusters {
		table.Append(
			fmt.Sprintf("#%d", cs.ClusterID),
			strconv.Itoa(cs.Frequency),
			fmt.Sprintf("%.1f%%", cs.PctOfRounds),
			fmt.Sprintf("%d-%d", cs.Wins, cs.Losses),
			fmt.Sprintf("%.0f%%", cs.WinRate),
			siteSummary(cs.Sites),
		)
	}
	if u := rep.Unclustered; u != nil {
		table.Append(
			"unclustered",
			strconv.Itoa(u.Frequency),
			fmt.Sprintf("%.1f%%", u.PctOfRounds),
			fmt.Sprintf("%d-%d", u.Wins, u.Losses),
			fmt.Sprintf("%.0f%%", u.WinRate),
			siteSummary(u.Sites),
		)
	}
	table.Render()

	if u := rep.Unclustered; u != nil && u.Note != "" {
		fmt.Fprintf(w, "\n  unclustered: %s\n", u.Note)
	}
}

func siteSummary(sites []analysis.SiteShare) string {
	if len(sites) == 0 {
		return "—"
	}
	sorted := make([]analysis.SiteShare, len(sites))
	copy(sorted, sites)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Site < sorted[j].Site
	})
	parts := make([]string, 0, len(sorted))
	for _, s := range sorted {
		name := "A"
		if s.Site == model.SiteB {
			name = "B"
		}
		parts = append(parts, fmt.Sprintf("%s %.0f%%", name, s.Percentage))
	}
	return strings.Join(parts, ", ")
}

// PrintTeamsTable prints the identified teams with their rosters.
func PrintTeamsTable(w io.Writer, teams []model.Team) {
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))

	table.Header("TEAM", "PLAYERS", "DEMOS", "ROSTER")

	for i, t := range teams {
		table.Append(
			fmt.Sprintf("#%d", i+1),
			strconv.Itoa(len(t.Players)),
			strconv.Itoa(len(t.MatchFiles)),
			strings.Join(t.Names(), ", "),
		)
	}
	table.Render()
}

// PrintRoundsTable prints the labeled round table for a run.
func PrintRoundsTable(w io.Writer, rounds []model.Round) {
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))

	table.Header("MATCH", "ROUND", "SIDE", "WINNER", "SITE", "END", "STRATEGY")

	for _, r := range rounds {
		label := "—"
		if r.HasCluster {
			if r.Cluster == model.ClusterNoise {
				label = "noise"
			} else {
				label = fmt.Sprintf("#%d", r.Cluster)
			}
		}
		table.Append(
			r.MatchFile,
			strconv.Itoa(r.RoundNum),
			r.TeamSide.String(),
			r.Winner.String(),
			r.Bombsite.String(),
			r.EndReason,
			label,
		)
	}
	table.Render()
}

// strategyDoc is the JSON export shape for a run.
type strategyDoc struct {
	Map         string        `json:"map"`
	Side        string        `json:"side"`
	TotalRounds int           `json:"total_rounds"`
	Strategies  []strategyRow `json:"strategies"`
	Unclustered *strategyRow  `json:"unclustered,omitempty"`
}

type strategyRow struct {
	ClusterID   int               `json:"cluster_id"`
	Frequency   int               `json:"frequency"`
	PctOfRounds float64           `json:"pct_of_rounds"`
	Wins        int               `json:"wins"`
	Losses      int               `json:"losses"`
	WinRate     float64           `json:"win_rate"`
	Sites       map[string]siteTx `json:"bombsites,omitempty"`
	Rounds      []string          `json:"rounds,omitempty"`
	Note        string            `json:"note,omitempty"`
}

type siteTx struct {
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
}

// WriteJSON writes the strategy report as an indented JSON document.
func WriteJSON(w io.Writer, mapName string, rep *analysis.Report) error {
	doc := strategyDoc{
		Map:         mapName,
		Side:        rep.Side.String(),
		TotalRounds: rep.TotalRounds,
	}
	for _, cs := range rep.Clusters {
		doc.Strategies = append(doc.Strategies, toRow(cs))
	}
	if rep.Unclustered != nil {
		row := toRow(*rep.Unclustered)
		doc.Unclustered = &row
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func toRow(cs analysis.ClusterStats) strategyRow {
	row := strategyRow{
		ClusterID:   cs.ClusterID,
		Frequency:   cs.Frequency,
		PctOfRounds: cs.PctOfRounds,
		Wins:        cs.Wins,
		Losses:      cs.Losses,
		WinRate:     cs.WinRate,
		Rounds:      cs.RoundKeys,
		Note:        cs.Note,
	}
	if len(cs.Sites) > 0 {
		row.Sites = make(map[string]siteTx, len(cs.Sites))
		for _, s := range cs.Sites {
			row.Sites[s.Site.String()] = siteTx{Count: s.Count, Pct: s.Percentage}
		}
	}
	return row
}

// WriteRoundsCSV writes the labeled round table as CSV.
func WriteRoundsCSV(w io.Writer, rounds []model.Round) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"match_file", "round_num", "team_side", "winner", "bombsite",
		"is_pistol", "end_reason", "cluster",
	}); err != nil {
		return err
	}
	for _, r := range rounds {
		cluster := ""
		if r.HasCluster {
			cluster = strconv.Itoa(r.Cluster)
		}
		if err := cw.Write([]string{
			r.MatchFile,
			strconv.Itoa(r.RoundNum),
			r.TeamSide.String(),
			r.Winner.String(),
			r.Bombsite.String(),
			strconv.FormatBool(r.IsPistol),
			r.EndReason,
			cluster,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
