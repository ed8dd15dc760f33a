// Package features converts a round's position, utility, and kill records
// into a fixed-length numeric feature vector for strategy clustering.
package features

import (
	"fmt"

	"github.com/pable/go-cs-strats/internal/model"
)

// GridSize is the occupancy grid resolution (GridSize x GridSize cells).
// 10x10 keeps the grids dense enough to cluster on.
const GridSize = 10

// Time bands for the occupancy grids, in seconds into the round.
const (
	earlyBandEnd = 15.0
	midBandEnd   = 45.0
)

// boundsPad widens the observed coordinate extents so edge samples do not
// land exactly on a grid boundary.
const boundsPad = 100.0

// Bounds is the shared coordinate frame for one batch. It is computed once
// over every position sample being compared and passed into each per-round
// extraction, so the same physical location maps to the same grid cell in
// every round of every match.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

// ComputeBounds derives batch-wide bounds from all position samples,
// optionally restricted to one side. Returns ok=false when no sample
// qualifies.
func ComputeBounds(positions []model.PositionSample, side model.Side) (Bounds, bool) {
	var b Bounds
	found := false
	for _, p := range positions {
		if side != model.SideUnknown && p.PlayerSide != side {
			continue
		}
		if !found {
			b = Bounds{XMin: p.X, XMax: p.X, YMin: p.Y, YMax: p.Y}
			found = true
			continue
		}
		if p.X < b.XMin {
			b.XMin = p.X
		}
		if p.X > b.XMax {
			b.XMax = p.X
		}
		if p.Y < b.YMin {
			b.YMin = p.Y
		}
		if p.Y > b.YMax {
			b.YMax = p.Y
		}
	}
	if !found {
		return Bounds{}, false
	}
	b.XMin -= boundsPad
	b.XMax += boundsPad
	b.YMin -= boundsPad
	b.YMax += boundsPad
	return b, true
}

// Vector is one round's feature vector. Values is ordered per Names(); every
// vector built with the same grid size has identical length and ordering.
// Won and Bombsite ride along for analysis but are not clustering inputs.
type Vector struct {
	MatchFile string
	RoundNum  int
	Won       bool
	Bombsite  model.Bombsite
	Values    []float64
}

// Names returns the feature names in Values order.
func Names() []string {
	names := make([]string, 0, 3*GridSize*GridSize+8)
	for _, band := range []string{"early", "mid", "late"} {
		for i := 0; i < GridSize*GridSize; i++ {
			names = append(names, fmt.Sprintf("%s_grid_%d", band, i))
		}
	}
	names = append(names,
		"smoke_count", "flash_count", "he_count", "molotov_count",
		"utility_avg_time", "utility_first_time",
		"first_kill_time", "kills_before_30s",
	)
	return names
}

// Extract builds the feature vector for one round. The position/utility/kill
// slices must already be restricted to that round's (match_file, round_num);
// side and teamPlayers further restrict which actors count (side filters in
// map-wide mode, teamPlayers in team mode; either may be zero-valued).
// Missing data for a category yields zeros, never a short vector.
func Extract(round model.Round, positions []model.PositionSample, utility []model.UtilityEvent,
	kills []model.KillEvent, side model.Side, teamPlayers map[string]struct{}, bounds Bounds) Vector {

	v := Vector{
		MatchFile: round.MatchFile,
		RoundNum:  round.RoundNum,
		Bombsite:  round.Bombsite,
	}
	if round.TeamSide != model.SideUnknown {
		v.Won = round.TeamSide == round.Winner
	} else if side != model.SideUnknown {
		v.Won = side == round.Winner
	}

	v.Values = make([]float64, 0, 3*GridSize*GridSize+8)

	// Spatial: one occupancy grid per time band over the shared frame.
	var early, mid, late []model.PositionSample
	for _, p := range positions {
		if side != model.SideUnknown && p.PlayerSide != side {
			continue
		}
		if len(teamPlayers) > 0 {
			if _, ok := teamPlayers[p.PlayerName]; !ok {
				continue
			}
		}
		switch {
		case p.Seconds <= earlyBandEnd:
			early = append(early, p)
		case p.Seconds <= midBandEnd:
			mid = append(mid, p)
		default:
			late = append(late, p)
		}
	}
	v.Values = append(v.Values, occupancyGrid(early, bounds)...)
	v.Values = append(v.Values, occupancyGrid(mid, bounds)...)
	v.Values = append(v.Values, occupancyGrid(late, bounds)...)

	// Utility: per-type counts plus throw timing.
	var smoke, flash, he, molotov float64
	var utilSum, utilFirst float64
	utilCount := 0
	for _, u := range utility {
		if side != model.SideUnknown && u.ThrowerSide != side {
			continue
		}
		if len(teamPlayers) > 0 {
			if _, ok := teamPlayers[u.ThrowerName]; !ok {
				continue
			}
		}
		switch u.GrenadeType {
		case "smoke":
			smoke++
		case "flash":
			flash++
		case "he":
			he++
		case "molotov":
			molotov++
		}
		if utilCount == 0 || u.Seconds < utilFirst {
			utilFirst = u.Seconds
		}
		utilSum += u.Seconds
		utilCount++
	}
	utilAvg := 0.0
	if utilCount > 0 {
		utilAvg = utilSum / float64(utilCount)
	}
	v.Values = append(v.Values, smoke, flash, he, molotov, utilAvg, utilFirst)

	// Kill timing.
	var firstKill float64
	var killsBefore30 float64
	killCount := 0
	for _, k := range kills {
		if side != model.SideUnknown && k.AttackerSide != side {
			continue
		}
		if len(teamPlayers) > 0 {
			if _, ok := teamPlayers[k.AttackerName]; !ok {
				continue
			}
		}
		if killCount == 0 || k.Seconds < firstKill {
			firstKill = k.Seconds
		}
		if k.Seconds <= 30 {
			killsBefore30++
		}
		killCount++
	}
	v.Values = append(v.Values, firstKill, killsBefore30)

	return v
}

// occupancyGrid rasterizes position samples into a flattened GridSize x
// GridSize histogram over the shared bounds. Samples outside the bounds are
// dropped; samples on the max edge count into the last cell.
func occupancyGrid(positions []model.PositionSample, b Bounds) []float64 {
	grid := make([]float64, GridSize*GridSize)
	xSpan := b.XMax - b.XMin
	ySpan := b.YMax - b.YMin
	if xSpan <= 0 || ySpan <= 0 {
		return grid
	}
	for _, p := range positions {
		if p.X < b.XMin || p.X > b.XMax || p.Y < b.YMin || p.Y > b.YMax {
			continue
		}
		cx := int((p.X - b.XMin) / xSpan * GridSize)
		cy := int((p.Y - b.YMin) / ySpan * GridSize)
		if cx == GridSize {
			cx = GridSize - 1
		}
		if cy == GridSize {
			cy = GridSize - 1
		}
		grid[cx*GridSize+cy]++
	}
	return grid
}

// BuildMatrix extracts one vector per qualifying round across the whole
// batch. In team mode (rounds carry TeamSide) only rounds where the team
// played the requested side are included; in map-wide mode every round is
// included and player actions are filtered by side instead.
func BuildMatrix(data *model.MatchData, side model.Side, teamPlayers map[string]struct{}) []Vector {
	teamMode := false
	for _, r := range data.Rounds {
		if r.TeamSide != model.SideUnknown {
			teamMode = true
			break
		}
	}

	bounds, _ := ComputeBounds(data.Positions, side)

	// Index events by (match_file, round_num) so shared round numbers across
	// demos never mix.
	type key struct {
		file string
		num  int
	}
	posByRound := make(map[key][]model.PositionSample)
	for _, p := range data.Positions {
		k := key{p.MatchFile, p.RoundNum}
		posByRound[k] = append(posByRound[k], p)
	}
	utilByRound := make(map[key][]model.UtilityEvent)
	for _, u := range data.Utility {
		k := key{u.MatchFile, u.RoundNum}
		utilByRound[k] = append(utilByRound[k], u)
	}
	killsByRound := make(map[key][]model.KillEvent)
	for _, kl := range data.Kills {
		k := key{kl.MatchFile, kl.RoundNum}
		killsByRound[k] = append(killsByRound[k], kl)
	}

	var vectors []Vector
	for _, r := range data.Rounds {
		if teamMode && side != model.SideUnknown && r.TeamSide != side {
			continue
		}
		k := key{r.MatchFile, r.RoundNum}
		vectors = append(vectors, Extract(
			r, posByRound[k], utilByRound[k], killsByRound[k],
			side, teamPlayers, bounds,
		))
	}
	return vectors
}
