package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pable/go-cs-strats/internal/analysis"
	"github.com/pable/go-cs-strats/internal/model"
)

func sampleReport() *analysis.Report {
	return &analysis.Report{
		Side:        model.SideT,
		TotalRounds: 10,
		Clusters: []analysis.ClusterStats{
			{
				ClusterID: 0, Frequency: 6, PctOfRounds: 60, Wins: 4, Losses: 2, WinRate: 66.7,
				Sites: []analysis.SiteShare{
					{Site: model.SiteA, Count: 4, Percentage: 66.7},
					{Site: model.SiteB, Count: 1, Percentage: 16.7},
				},
				RoundKeys: []string{"m1.dem#1", "m1.dem#3"},
			},
		},
		Unclustered: &analysis.ClusterStats{
			ClusterID: model.ClusterNoise, Frequency: 4, PctOfRounds: 40,
			Wins: 1, Losses: 3, WinRate: 25,
			Note: "Rounds that did not match any discovered strategy pattern",
		},
	}
}

func TestPrintStrategyTable(t *testing.T) {
	var buf bytes.Buffer
	PrintStrategyTable(&buf, sampleReport())
	out := buf.String()

	for _, want := range []string{"STRATEGY", "#0", "unclustered", "4-2", "67%", "A 67%, B 17%"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "did not match any discovered strategy") {
		t.Errorf("note not printed:\n%s", out)
	}
}

func TestSiteSummary(t *testing.T) {
	if got := siteSummary(nil); got != "—" {
		t.Errorf("empty sites = %q, want dash", got)
	}
	got := siteSummary([]analysis.SiteShare{
		{Site: model.SiteB, Count: 3, Percentage: 75},
		{Site: model.SiteA, Count: 1, Percentage: 25},
	})
	if got != "B 75%, A 25%" {
		t.Errorf("siteSummary = %q, want sorted by count desc", got)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, "de_mirage", sampleReport()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var doc struct {
		Map         string `json:"map"`
		Side        string `json:"side"`
		TotalRounds int    `json:"total_rounds"`
		Strategies  []struct {
			ClusterID int `json:"cluster_id"`
			Frequency int `json:"frequency"`
			Sites     map[string]struct {
				Count int `json:"count"`
			} `json:"bombsites"`
			Rounds []string `json:"rounds"`
		} `json:"strategies"`
		Unclustered *struct {
			Frequency int    `json:"frequency"`
			Note      string `json:"note"`
		} `json:"unclustered"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if doc.Map != "de_mirage" || doc.Side != "T" || doc.TotalRounds != 10 {
		t.Errorf("header fields: %+v", doc)
	}
	if len(doc.Strategies) != 1 {
		t.Fatalf("expected 1 strategy, got %d", len(doc.Strategies))
	}
	s := doc.Strategies[0]
	if s.Sites["bombsite_a"].Count != 4 || s.Sites["bombsite_b"].Count != 1 {
		t.Errorf("site map: %+v", s.Sites)
	}
	if len(s.Rounds) != 2 {
		t.Errorf("round keys: %v", s.Rounds)
	}
	if doc.Unclustered == nil || doc.Unclustered.Frequency != 4 || doc.Unclustered.Note == "" {
		t.Errorf("unclustered group: %+v", doc.Unclustered)
	}
}

func TestWriteRoundsCSV(t *testing.T) {
	rounds := []model.Round{
		{
			MatchFile: "m1.dem", RoundNum: 1, TeamSide: model.SideT,
			Winner: model.SideT, Bombsite: model.SiteA, IsPistol: true,
			EndReason: "target_bombed", HasCluster: true, Cluster: 0,
		},
		{
			MatchFile: "m1.dem", RoundNum: 2, TeamSide: model.SideT,
			Winner: model.SideCT, Bombsite: model.SiteNone,
			EndReason: "ct_win",
		},
	}

	var buf bytes.Buffer
	if err := WriteRoundsCSV(&buf, rounds); err != nil {
		t.Fatalf("WriteRoundsCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "match_file" || records[0][7] != "cluster" {
		t.Errorf("header: %v", records[0])
	}
	if records[1][4] != "bombsite_a" || records[1][5] != "true" || records[1][7] != "0" {
		t.Errorf("row 1: %v", records[1])
	}
	if records[2][4] != "not_planted" || records[2][7] != "" {
		t.Errorf("unlabeled round should have empty cluster cell: %v", records[2])
	}
}
