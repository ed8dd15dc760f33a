// Package teams resolves team identity across matches from noisy per-match
// roster snapshots. Rosters fluctuate by a substitute between matches, so
// grouping uses set overlap rather than exact equality.
package teams

import (
	"sort"

	"github.com/pable/go-cs-strats/internal/model"
)

// membershipThreshold is the fraction of a group's matches a player must
// appear in to be counted as part of the stable core.
const membershipThreshold = 0.6

// IdentifyCommonTeam finds the single team recurring across the given
// matches. playersPerMatch holds all player names observed in each match.
//
// Players present in every match win outright when there are at least
// minPlayers of them. Otherwise players present in at least 60% of matches
// form the candidate core. Returns an empty set if no core of minPlayers
// exists.
func IdentifyCommonTeam(playersPerMatch []map[string]struct{}, minPlayers int) map[string]struct{} {
	if len(playersPerMatch) == 0 {
		return map[string]struct{}{}
	}

	common := make(map[string]struct{}, len(playersPerMatch[0]))
	for name := range playersPerMatch[0] {
		common[name] = struct{}{}
	}
	for _, players := range playersPerMatch[1:] {
		for name := range common {
			if _, ok := players[name]; !ok {
				delete(common, name)
			}
		}
	}
	if len(common) >= minPlayers {
		return common
	}

	counts := make(map[string]int)
	for _, players := range playersPerMatch {
		for name := range players {
			counts[name]++
		}
	}
	threshold := float64(len(playersPerMatch)) * membershipThreshold
	frequent := make(map[string]struct{})
	for name, count := range counts {
		if float64(count) >= threshold {
			frequent[name] = struct{}{}
		}
	}
	if len(frequent) >= minPlayers {
		return frequent
	}
	return map[string]struct{}{}
}

// IdentifyAllTeams groups roster snapshots (both sides, all matches) into
// teams by pairwise player overlap.
//
// Snapshots i and j join the same group when they share at least minPlayers
// players; grouping extends transitively (single-linkage), which tolerates
// one-player substitutions but can chain unrelated rosters through shared
// stand-ins. A group qualifies as a team only when it spans at least
// minDemos distinct matches; its membership is the players appearing in at
// least 60% of those matches.
//
// The result is independent of snapshot input order: teams are sorted by
// their lexicographically smallest member.
func IdentifyAllTeams(snapshots []model.RosterSnapshot, minPlayers, minDemos int) []model.Team {
	n := len(snapshots)
	if n == 0 {
		return nil
	}

	// Union-find over snapshots.
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			if ri > rj {
				ri, rj = rj, ri
			}
			parent[rj] = ri
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if overlap(snapshots[i].Players, snapshots[j].Players) >= minPlayers {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := find(i)
		groups[root] = append(groups[root], i)
	}

	var teams []model.Team
	for _, members := range groups {
		matchFiles := make(map[string]struct{})
		for _, idx := range members {
			matchFiles[snapshots[idx].MatchFile] = struct{}{}
		}
		if len(matchFiles) < minDemos {
			continue
		}

		// A player counts once per match, even if they appear in several
		// snapshots of the same match.
		matchesPerPlayer := make(map[string]map[string]struct{})
		for _, idx := range members {
			snap := snapshots[idx]
			for name := range snap.Players {
				if matchesPerPlayer[name] == nil {
					matchesPerPlayer[name] = make(map[string]struct{})
				}
				matchesPerPlayer[name][snap.MatchFile] = struct{}{}
			}
		}

		threshold := float64(len(matchFiles)) * membershipThreshold
		core := make(map[string]struct{})
		for name, matches := range matchesPerPlayer {
			if float64(len(matches)) >= threshold {
				core[name] = struct{}{}
			}
		}
		if len(core) < minPlayers {
			continue
		}

		files := make([]string, 0, len(matchFiles))
		for f := range matchFiles {
			files = append(files, f)
		}
		sort.Strings(files)
		teams = append(teams, model.Team{Players: core, MatchFiles: files})
	}

	sort.Slice(teams, func(i, j int) bool {
		return firstName(teams[i].Players) < firstName(teams[j].Players)
	})
	return teams
}

func overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	count := 0
	for name := range a {
		if _, ok := b[name]; ok {
			count++
		}
	}
	return count
}

func firstName(set map[string]struct{}) string {
	first := ""
	for name := range set {
		if first == "" || name < first {
			first = name
		}
	}
	return first
}
