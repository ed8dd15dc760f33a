package sides

import (
	"testing"

	"github.com/pable/go-cs-strats/internal/model"
)

const (
	playerA = "alice"
	playerB = "bob"
	playerC = "carol"
	playerD = "dave"
	playerE = "eve"
)

func roster(names ...string) map[string]struct{} {
	return model.NameSet(names)
}

func obs(round int, name string, side model.Side, tick int) model.SideObservation {
	return model.SideObservation{RoundNum: round, PlayerName: name, Side: side, Tick: tick}
}

func TestDetermineTeamSide_Majority(t *testing.T) {
	team := roster(playerA, playerB, playerC, playerD, playerE)
	observations := []model.SideObservation{
		obs(1, playerA, model.SideT, 100),
		obs(1, playerB, model.SideT, 100),
		obs(1, playerC, model.SideT, 100),
		obs(1, playerD, model.SideT, 100),
		obs(1, playerE, model.SideCT, 100), // mid-round swap artifact
	}

	if got := DetermineTeamSide(1, observations, team); got != model.SideT {
		t.Errorf("expected T by majority, got %s", got)
	}
}

func TestDetermineTeamSide_IgnoresOtherRoster(t *testing.T) {
	team := roster(playerA, playerB)
	observations := []model.SideObservation{
		obs(1, playerA, model.SideCT, 100),
		obs(1, playerB, model.SideCT, 100),
		// Opponents on T should not influence the vote.
		obs(1, "opp1", model.SideT, 100),
		obs(1, "opp2", model.SideT, 100),
		obs(1, "opp3", model.SideT, 100),
	}

	if got := DetermineTeamSide(1, observations, team); got != model.SideCT {
		t.Errorf("expected CT, got %s", got)
	}
}

func TestDetermineTeamSide_FirstObservationWins(t *testing.T) {
	team := roster(playerA)
	observations := []model.SideObservation{
		// Later tick listed first; the earliest tick is what counts.
		obs(1, playerA, model.SideCT, 500),
		obs(1, playerA, model.SideT, 100),
	}

	if got := DetermineTeamSide(1, observations, team); got != model.SideT {
		t.Errorf("expected T from earliest observation, got %s", got)
	}
}

func TestDetermineTeamSide_TieBreaksLexicographically(t *testing.T) {
	team := roster(playerA, playerB, playerC, playerD)
	observations := []model.SideObservation{
		obs(3, playerB, model.SideCT, 100),
		obs(3, playerD, model.SideT, 100),
		obs(3, playerA, model.SideT, 100), // "alice" sorts first
		obs(3, playerC, model.SideCT, 100),
	}

	// Run several times with the observations reordered; the answer must be
	// stable and come from the first player in name order.
	for i := 0; i < len(observations); i++ {
		rotated := append(append([]model.SideObservation{}, observations[i:]...), observations[:i]...)
		if got := DetermineTeamSide(3, rotated, team); got != model.SideT {
			t.Errorf("rotation %d: expected T (alice's side), got %s", i, got)
		}
	}
}

func TestDetermineTeamSide_NoObservations(t *testing.T) {
	team := roster(playerA, playerB)
	observations := []model.SideObservation{
		obs(2, playerA, model.SideT, 100), // different round
	}

	if got := DetermineTeamSide(5, observations, team); got != model.SideUnknown {
		t.Errorf("expected unknown side, got %s", got)
	}
	if got := DetermineTeamSide(5, nil, nil); got != model.SideUnknown {
		t.Errorf("expected unknown side for empty roster, got %s", got)
	}
}

func TestAttributeRounds(t *testing.T) {
	team := roster(playerA, playerB, playerC)
	rounds := []model.Round{
		{MatchFile: "m1.dem", RoundNum: 1},
		{MatchFile: "m1.dem", RoundNum: 2},
		{MatchFile: "m1.dem", RoundNum: 3},
	}
	observations := []model.SideObservation{
		obs(1, playerA, model.SideT, 10),
		obs(1, playerB, model.SideT, 10),
		obs(2, playerA, model.SideCT, 10),
		obs(2, playerC, model.SideCT, 10),
		// Round 3: nobody from the roster observed.
	}

	AttributeRounds(rounds, observations, team)

	want := []model.Side{model.SideT, model.SideCT, model.SideUnknown}
	for i, r := range rounds {
		if r.TeamSide != want[i] {
			t.Errorf("round %d: expected %s, got %s", r.RoundNum, want[i], r.TeamSide)
		}
	}
}
