package features

import (
	"testing"

	"github.com/pable/go-cs-strats/internal/model"
)

const vecLen = 3*GridSize*GridSize + 8

// Feature indexes at the tail of a vector.
const (
	idxSmoke = 3*GridSize*GridSize + iota
	idxFlash
	idxHE
	idxMolotov
	idxUtilAvg
	idxUtilFirst
	idxFirstKill
	idxKillsBefore30
)

func pos(file string, round int, name string, side model.Side, x, y, secs float64) model.PositionSample {
	return model.PositionSample{
		MatchFile: file, RoundNum: round, PlayerName: name,
		PlayerSide: side, X: x, Y: y, Seconds: secs,
	}
}

func TestNamesMatchVectorLength(t *testing.T) {
	names := Names()
	if len(names) != vecLen {
		t.Fatalf("expected %d feature names, got %d", vecLen, len(names))
	}

	v := Extract(model.Round{MatchFile: "m1.dem", RoundNum: 1}, nil, nil, nil,
		model.SideT, nil, Bounds{XMin: 0, XMax: 1000, YMin: 0, YMax: 1000})
	if len(v.Values) != len(names) {
		t.Errorf("vector length %d does not match names length %d", len(v.Values), len(names))
	}
}

func TestExtract_MissingDataYieldsZeros(t *testing.T) {
	v := Extract(model.Round{MatchFile: "m1.dem", RoundNum: 1}, nil, nil, nil,
		model.SideT, nil, Bounds{XMin: 0, XMax: 1000, YMin: 0, YMax: 1000})

	if len(v.Values) != vecLen {
		t.Fatalf("expected full-length vector, got %d", len(v.Values))
	}
	for i, val := range v.Values {
		if val != 0 {
			t.Errorf("value %d: expected 0 for missing data, got %v", i, val)
		}
	}
}

func TestComputeBounds_PadsExtents(t *testing.T) {
	positions := []model.PositionSample{
		pos("m1.dem", 1, "a", model.SideT, -500, 200, 5),
		pos("m1.dem", 1, "b", model.SideT, 800, -300, 5),
		pos("m1.dem", 1, "x", model.SideCT, 9999, 9999, 5), // other side, ignored
	}

	b, ok := ComputeBounds(positions, model.SideT)
	if !ok {
		t.Fatal("expected bounds from T samples")
	}
	if b.XMin != -600 || b.XMax != 900 {
		t.Errorf("X bounds with padding: expected [-600, 900], got [%v, %v]", b.XMin, b.XMax)
	}
	if b.YMin != -400 || b.YMax != 300 {
		t.Errorf("Y bounds with padding: expected [-400, 300], got [%v, %v]", b.YMin, b.YMax)
	}

	if _, ok := ComputeBounds(nil, model.SideT); ok {
		t.Error("expected no bounds for empty input")
	}
}

func TestExtract_TimeBands(t *testing.T) {
	b := Bounds{XMin: 0, XMax: 1000, YMin: 0, YMax: 1000}
	positions := []model.PositionSample{
		pos("m1.dem", 1, "a", model.SideT, 50, 50, 5),   // early
		pos("m1.dem", 1, "a", model.SideT, 50, 50, 15),  // early (inclusive edge)
		pos("m1.dem", 1, "a", model.SideT, 50, 50, 30),  // mid
		pos("m1.dem", 1, "a", model.SideT, 50, 50, 60),  // late
		pos("m1.dem", 1, "a", model.SideCT, 50, 50, 5),  // wrong side
	}

	v := Extract(model.Round{MatchFile: "m1.dem", RoundNum: 1}, positions, nil, nil,
		model.SideT, nil, b)

	sum := func(from, to int) float64 {
		total := 0.0
		for _, x := range v.Values[from:to] {
			total += x
		}
		return total
	}
	cells := GridSize * GridSize
	if got := sum(0, cells); got != 2 {
		t.Errorf("early band: expected 2 samples, got %v", got)
	}
	if got := sum(cells, 2*cells); got != 1 {
		t.Errorf("mid band: expected 1 sample, got %v", got)
	}
	if got := sum(2*cells, 3*cells); got != 1 {
		t.Errorf("late band: expected 1 sample, got %v", got)
	}
}

func TestExtract_SameCellAcrossRounds(t *testing.T) {
	// Identical coordinates in different rounds must land in the same cell
	// because bounds are shared.
	b := Bounds{XMin: -1000, XMax: 1000, YMin: -1000, YMax: 1000}
	p1 := []model.PositionSample{pos("m1.dem", 1, "a", model.SideT, 123, -456, 5)}
	p2 := []model.PositionSample{pos("m2.dem", 7, "b", model.SideT, 123, -456, 5)}

	v1 := Extract(model.Round{MatchFile: "m1.dem", RoundNum: 1}, p1, nil, nil, model.SideT, nil, b)
	v2 := Extract(model.Round{MatchFile: "m2.dem", RoundNum: 7}, p2, nil, nil, model.SideT, nil, b)

	for i := 0; i < GridSize*GridSize; i++ {
		if v1.Values[i] != v2.Values[i] {
			t.Fatalf("cell %d differs across rounds with shared bounds", i)
		}
	}
}

func TestExtract_UtilityAndKillFeatures(t *testing.T) {
	b := Bounds{XMin: 0, XMax: 1000, YMin: 0, YMax: 1000}
	round := model.Round{MatchFile: "m1.dem", RoundNum: 1}

	utility := []model.UtilityEvent{
		{MatchFile: "m1.dem", RoundNum: 1, GrenadeType: "smoke", ThrowerName: "a", ThrowerSide: model.SideT, Seconds: 10},
		{MatchFile: "m1.dem", RoundNum: 1, GrenadeType: "smoke", ThrowerName: "b", ThrowerSide: model.SideT, Seconds: 20},
		{MatchFile: "m1.dem", RoundNum: 1, GrenadeType: "flash", ThrowerName: "a", ThrowerSide: model.SideT, Seconds: 30},
		{MatchFile: "m1.dem", RoundNum: 1, GrenadeType: "he", ThrowerName: "x", ThrowerSide: model.SideCT, Seconds: 5}, // opponent
	}
	kills := []model.KillEvent{
		{MatchFile: "m1.dem", RoundNum: 1, AttackerName: "a", AttackerSide: model.SideT, Seconds: 25},
		{MatchFile: "m1.dem", RoundNum: 1, AttackerName: "b", AttackerSide: model.SideT, Seconds: 40},
		{MatchFile: "m1.dem", RoundNum: 1, AttackerName: "x", AttackerSide: model.SideCT, Seconds: 8}, // opponent
	}

	v := Extract(round, nil, utility, kills, model.SideT, nil, b)

	if got := v.Values[idxSmoke]; got != 2 {
		t.Errorf("smoke_count: expected 2, got %v", got)
	}
	if got := v.Values[idxFlash]; got != 1 {
		t.Errorf("flash_count: expected 1, got %v", got)
	}
	if got := v.Values[idxHE]; got != 0 {
		t.Errorf("he_count: expected 0 (opponent nade), got %v", got)
	}
	if got := v.Values[idxUtilAvg]; got != 20 {
		t.Errorf("utility_avg_time: expected 20, got %v", got)
	}
	if got := v.Values[idxUtilFirst]; got != 10 {
		t.Errorf("utility_first_time: expected 10, got %v", got)
	}
	if got := v.Values[idxFirstKill]; got != 25 {
		t.Errorf("first_kill_time: expected 25, got %v", got)
	}
	if got := v.Values[idxKillsBefore30]; got != 1 {
		t.Errorf("kills_before_30s: expected 1, got %v", got)
	}
}

func TestExtract_WonFlag(t *testing.T) {
	b := Bounds{XMin: 0, XMax: 1000, YMin: 0, YMax: 1000}

	won := Extract(model.Round{TeamSide: model.SideT, Winner: model.SideT}, nil, nil, nil, model.SideT, nil, b)
	if !won.Won {
		t.Error("expected Won=true when team side matches winner")
	}
	lost := Extract(model.Round{TeamSide: model.SideT, Winner: model.SideCT}, nil, nil, nil, model.SideT, nil, b)
	if lost.Won {
		t.Error("expected Won=false when team side lost")
	}
	sideOnly := Extract(model.Round{Winner: model.SideCT}, nil, nil, nil, model.SideCT, nil, b)
	if !sideOnly.Won {
		t.Error("expected Won=true in side-only mode when analyzed side won")
	}
}

func TestBuildMatrix_TeamModeFiltersRounds(t *testing.T) {
	data := &model.MatchData{
		MapName: "de_mirage",
		Rounds: []model.Round{
			{MatchFile: "m1.dem", RoundNum: 1, TeamSide: model.SideT, Winner: model.SideT},
			{MatchFile: "m1.dem", RoundNum: 2, TeamSide: model.SideCT, Winner: model.SideT},
			{MatchFile: "m2.dem", RoundNum: 1, TeamSide: model.SideT, Winner: model.SideCT},
		},
		Positions: []model.PositionSample{
			pos("m1.dem", 1, "a", model.SideT, 100, 100, 5),
		},
	}

	vectors := BuildMatrix(data, model.SideT, model.NameSet([]string{"a"}))
	if len(vectors) != 2 {
		t.Fatalf("expected 2 T-side vectors, got %d", len(vectors))
	}
	for _, v := range vectors {
		if len(v.Values) != vecLen {
			t.Errorf("round %s#%d: unexpected vector length %d", v.MatchFile, v.RoundNum, len(v.Values))
		}
	}
	// Round numbers collide across matches; both must survive distinctly.
	if vectors[0].MatchFile == vectors[1].MatchFile {
		t.Error("expected vectors from both matches")
	}
}
