// Package sides attributes rounds to the side a target roster played on,
// by majority vote over per-round side observations.
package sides

import (
	"sort"

	"github.com/pable/go-cs-strats/internal/model"
)

// DetermineTeamSide decides which side the target roster played in roundNum.
//
// Each roster player contributes their first observed side in the round.
// The majority side wins. On an exact tie, the side of the lexicographically
// first observed roster player is used, so the result does not depend on
// map iteration order. Returns SideUnknown if no roster player was observed
// in the round.
func DetermineTeamSide(roundNum int, obs []model.SideObservation, teamPlayers map[string]struct{}) model.Side {
	if len(teamPlayers) == 0 {
		return model.SideUnknown
	}

	// First observation per roster player in this round.
	firstSide := make(map[string]model.Side)
	firstTick := make(map[string]int)
	for _, o := range obs {
		if o.RoundNum != roundNum || o.Side == model.SideUnknown {
			continue
		}
		if _, isTeam := teamPlayers[o.PlayerName]; !isTeam {
			continue
		}
		if tick, seen := firstTick[o.PlayerName]; !seen || o.Tick < tick {
			firstTick[o.PlayerName] = o.Tick
			firstSide[o.PlayerName] = o.Side
		}
	}
	if len(firstSide) == 0 {
		return model.SideUnknown
	}

	var tCount, ctCount int
	for _, s := range firstSide {
		switch s {
		case model.SideT:
			tCount++
		case model.SideCT:
			ctCount++
		}
	}

	switch {
	case tCount > ctCount:
		return model.SideT
	case ctCount > tCount:
		return model.SideCT
	}

	// Tie: lexicographic player order breaks it deterministically.
	observed := make([]string, 0, len(firstSide))
	for name := range firstSide {
		observed = append(observed, name)
	}
	sort.Strings(observed)
	return firstSide[observed[0]]
}

// AttributeRounds writes TeamSide onto every round using the match's side
// observations. Rounds with no roster observation stay SideUnknown.
func AttributeRounds(rounds []model.Round, obs []model.SideObservation, teamPlayers map[string]struct{}) {
	for i := range rounds {
		rounds[i].TeamSide = DetermineTeamSide(rounds[i].RoundNum, obs, teamPlayers)
	}
}
