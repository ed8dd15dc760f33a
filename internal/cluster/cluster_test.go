package cluster

import (
	"math"
	"testing"

	"github.com/pable/go-cs-strats/internal/features"
	"github.com/pable/go-cs-strats/internal/model"
)

func vec(file string, round int, values ...float64) features.Vector {
	return features.Vector{MatchFile: file, RoundNum: round, Values: values}
}

func TestStandardize(t *testing.T) {
	matrix := [][]float64{
		{1, 5, math.NaN()},
		{3, 5, math.Inf(1)},
		{5, 5, 0},
	}

	out := Standardize(matrix)

	// Column 0 has mean 3; extremes must be symmetric around zero.
	if out[1][0] != 0 {
		t.Errorf("expected centered middle value 0, got %v", out[1][0])
	}
	if out[0][0] != -out[2][0] {
		t.Errorf("expected symmetric extremes, got %v and %v", out[0][0], out[2][0])
	}
	// Constant column becomes all zeros.
	for i := range out {
		if out[i][1] != 0 {
			t.Errorf("row %d: expected 0 for zero-variance column, got %v", i, out[i][1])
		}
	}
	// Non-finite values are treated as zero before scaling.
	for i := range out {
		if math.IsNaN(out[i][2]) || math.IsInf(out[i][2], 0) {
			t.Errorf("row %d: non-finite value survived standardization", i)
		}
	}
}

func TestDBSCAN_TwoClusters(t *testing.T) {
	// Two tight groups far apart, one straggler.
	matrix := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
		{100, 100},
	}

	labels := DBSCAN(matrix, Params{Eps: 0.5, MinSamples: 2})

	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("expected first group in one cluster, got %v", labels[:3])
	}
	if labels[3] != labels[4] || labels[4] != labels[5] {
		t.Errorf("expected second group in one cluster, got %v", labels[3:6])
	}
	if labels[0] == labels[3] {
		t.Error("expected the two groups in different clusters")
	}
	if labels[6] != model.ClusterNoise {
		t.Errorf("expected straggler to be noise, got %d", labels[6])
	}
}

func TestDBSCAN_HugeEpsOneCluster(t *testing.T) {
	vectors := make([]features.Vector, 20)
	for i := range vectors {
		vectors[i] = vec("m1.dem", i+1, float64(i), float64(i*2))
	}

	res := Run(vectors, Params{Eps: 1e6, MinSamples: 2})

	if res.NumStrategies != 1 {
		t.Errorf("expected one giant cluster, got %d", res.NumStrategies)
	}
	if res.NumNoise != 0 {
		t.Errorf("expected no noise with huge eps, got %d", res.NumNoise)
	}
}

func TestDBSCAN_TinyEpsAllNoise(t *testing.T) {
	vectors := []features.Vector{
		vec("m1.dem", 1, 0, 0),
		vec("m1.dem", 2, 1, 1),
		vec("m1.dem", 3, 2, 2),
	}

	res := Run(vectors, Params{Eps: 1e-9, MinSamples: 2})

	if res.NumStrategies != 0 {
		t.Errorf("expected no strategies, got %d", res.NumStrategies)
	}
	if res.NumNoise != len(vectors) {
		t.Errorf("expected all %d rounds as noise, got %d", len(vectors), res.NumNoise)
	}
	for i, l := range res.Labels {
		if l != model.ClusterNoise {
			t.Errorf("round %d: expected noise label, got %d", i, l)
		}
	}
}

func TestMergeLabels_CompositeKey(t *testing.T) {
	// Two matches share round number 3; each must get its own label.
	rounds := []model.Round{
		{MatchFile: "m1.dem", RoundNum: 3},
		{MatchFile: "m2.dem", RoundNum: 3},
		{MatchFile: "m1.dem", RoundNum: 4}, // not clustered
	}
	vectors := []features.Vector{
		vec("m1.dem", 3, 0, 0),
		vec("m2.dem", 3, 1, 1),
	}
	labels := []int{0, 1}

	out := MergeLabels(rounds, vectors, labels)

	if !out[0].HasCluster || out[0].Cluster != 0 {
		t.Errorf("m1#3: expected cluster 0, got %+v", out[0])
	}
	if !out[1].HasCluster || out[1].Cluster != 1 {
		t.Errorf("m2#3: expected cluster 1, got %+v", out[1])
	}
	if out[2].HasCluster {
		t.Errorf("m1#4: expected no cluster, got %+v", out[2])
	}
	// Input slice untouched.
	if rounds[0].HasCluster {
		t.Error("MergeLabels mutated its input")
	}
}

func TestMergeLabels_SingleMatchFallback(t *testing.T) {
	// With one demo the round table may carry a different file spelling
	// than the vectors; round_num alone is the fallback key.
	rounds := []model.Round{
		{MatchFile: "demos/m1.dem", RoundNum: 1},
		{MatchFile: "demos/m1.dem", RoundNum: 2},
	}
	vectors := []features.Vector{
		vec("m1.dem", 1, 0, 0),
		vec("m1.dem", 2, 1, 1),
	}

	out := MergeLabels(rounds, vectors, []int{0, model.ClusterNoise})

	if !out[0].HasCluster || out[0].Cluster != 0 {
		t.Errorf("round 1: expected cluster 0, got %+v", out[0])
	}
	if !out[1].HasCluster || out[1].Cluster != model.ClusterNoise {
		t.Errorf("round 2: expected noise label, got %+v", out[1])
	}
}

func TestAutoTune_TargetsClusterCount(t *testing.T) {
	// Three well-separated pairs: target 3 should find parameters that
	// produce exactly 3 clusters.
	var vectors []features.Vector
	centers := [][2]float64{{0, 0}, {50, 50}, {-50, 80}}
	round := 1
	for _, c := range centers {
		for i := 0; i < 2; i++ {
			vectors = append(vectors, vec("m1.dem", round, c[0]+float64(i)*0.01, c[1]))
			round++
		}
	}

	p := AutoTune(vectors, 0.1, 2.0, 2, 3, 3)
	res := Run(vectors, p)
	if res.NumStrategies != 3 {
		t.Errorf("expected tuned parameters to yield 3 strategies, got %d (eps=%v ms=%d)",
			res.NumStrategies, p.Eps, p.MinSamples)
	}
}

func TestAutoTune_EmptyInput(t *testing.T) {
	p := AutoTune(nil, 0.1, 2.0, 2, 3, 5)
	if p != DefaultParams() {
		t.Errorf("expected defaults for empty input, got %+v", p)
	}
}
