// Package analysis aggregates win rates, plant-site distributions, and
// frequencies for discovered strategy clusters.
package analysis

import (
	"errors"
	"sort"
	"strconv"

	"github.com/pable/go-cs-strats/internal/model"
)

// ErrNoRounds means the requested side has no rounds to analyze. It is a
// "no result" outcome, distinct from a malfunction.
var ErrNoRounds = errors.New("no rounds for requested side")

// SiteShare is one bombsite's slice of a cluster's rounds.
type SiteShare struct {
	Site       model.Bombsite
	Count      int
	Percentage float64
}

// ClusterStats are the aggregate statistics for one discovered strategy
// cluster, or for the unclustered remainder (ClusterID == model.ClusterNoise).
type ClusterStats struct {
	ClusterID    int
	Frequency    int
	PctOfRounds  float64
	Wins, Losses int
	WinRate      float64
	Sites        []SiteShare // not_planted rounds counted in Frequency, excluded here
	RoundKeys    []string    // "match_file#round_num", for drill-down
	Note         string      // set on the unclustered group only
}

// Report is the full per-side cluster analysis.
type Report struct {
	Side        model.Side
	TotalRounds int
	Clusters    []ClusterStats // sorted by ClusterID
	Unclustered *ClusterStats  // nil when every round clustered
}

// Analyze aggregates per-cluster statistics over the labeled round table.
//
// A win is the target team's side matching the winner when TeamSide is
// tracked, otherwise the analyzed side matching the winner. Rounds without a
// cluster label (not part of the run) are ignored entirely; noise rounds are
// reported separately, since they are not a discovered pattern.
func Analyze(rounds []model.Round, side model.Side) (*Report, error) {
	teamMode := false
	for _, r := range rounds {
		if r.TeamSide != model.SideUnknown {
			teamMode = true
			break
		}
	}

	var sideRounds []model.Round
	for _, r := range rounds {
		if !r.HasCluster {
			continue
		}
		if teamMode && side != model.SideUnknown && r.TeamSide != side {
			continue
		}
		sideRounds = append(sideRounds, r)
	}
	if len(sideRounds) == 0 {
		return nil, ErrNoRounds
	}

	byCluster := make(map[int][]model.Round)
	for _, r := range sideRounds {
		byCluster[r.Cluster] = append(byCluster[r.Cluster], r)
	}

	ids := make([]int, 0, len(byCluster))
	for id := range byCluster {
		if id != model.ClusterNoise {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	report := &Report{Side: side, TotalRounds: len(sideRounds)}
	for _, id := range ids {
		report.Clusters = append(report.Clusters,
			clusterStats(id, byCluster[id], len(sideRounds), side, teamMode, ""))
	}
	if noise := byCluster[model.ClusterNoise]; len(noise) > 0 {
		stats := clusterStats(model.ClusterNoise, noise, len(sideRounds), side, teamMode,
			"Rounds that did not match any discovered strategy pattern")
		report.Unclustered = &stats
	}
	return report, nil
}

func clusterStats(id int, rounds []model.Round, total int, side model.Side, teamMode bool, note string) ClusterStats {
	stats := ClusterStats{
		ClusterID:   id,
		Frequency:   len(rounds),
		PctOfRounds: float64(len(rounds)) / float64(total) * 100,
		Note:        note,
	}

	siteCounts := make(map[model.Bombsite]int)
	for _, r := range rounds {
		won := false
		if teamMode && r.TeamSide != model.SideUnknown {
			won = r.TeamSide == r.Winner
		} else {
			won = side == r.Winner
		}
		if won {
			stats.Wins++
		} else {
			stats.Losses++
		}
		if r.Bombsite != model.SiteNone {
			siteCounts[r.Bombsite]++
		}
		stats.RoundKeys = append(stats.RoundKeys, roundKey(r))
	}
	stats.WinRate = float64(stats.Wins) / float64(len(rounds)) * 100

	for _, site := range []model.Bombsite{model.SiteA, model.SiteB} {
		if count := siteCounts[site]; count > 0 {
			stats.Sites = append(stats.Sites, SiteShare{
				Site:       site,
				Count:      count,
				Percentage: float64(count) / float64(len(rounds)) * 100,
			})
		}
	}
	sort.Slice(stats.Sites, func(i, j int) bool {
		return stats.Sites[i].Count > stats.Sites[j].Count
	})
	sort.Strings(stats.RoundKeys)
	return stats
}

func roundKey(r model.Round) string {
	return r.MatchFile + "#" + strconv.Itoa(r.RoundNum)
}
