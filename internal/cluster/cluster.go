// Package cluster standardizes feature vectors and groups rounds into
// strategies with density-based clustering (DBSCAN).
package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pable/go-cs-strats/internal/features"
	"github.com/pable/go-cs-strats/internal/model"
)

// Params are the DBSCAN tuning knobs.
type Params struct {
	Eps        float64 // neighborhood radius in standardized feature space
	MinSamples int     // neighborhood size (incl. the point) for a core point
}

// DefaultParams mirror the defaults the tool ships with.
func DefaultParams() Params {
	return Params{Eps: 0.5, MinSamples: 2}
}

// Standardize scales each feature column to zero mean and unit variance,
// in place on a copy. Non-finite values become zero before scaling;
// zero-variance columns map to all zeros rather than dividing by zero.
func Standardize(matrix [][]float64) [][]float64 {
	if len(matrix) == 0 {
		return nil
	}
	rows, cols := len(matrix), len(matrix[0])
	out := make([][]float64, rows)
	for i := range matrix {
		out[i] = make([]float64, cols)
		for j, v := range matrix[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			out[i][j] = v
		}
	}

	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			col[i] = out[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			for i := 0; i < rows; i++ {
				out[i][j] = 0
			}
			continue
		}
		for i := 0; i < rows; i++ {
			out[i][j] = (out[i][j] - mean) / std
		}
	}
	return out
}

// DBSCAN assigns a cluster label to each row of the (already standardized)
// matrix under Euclidean distance. Labels are arbitrary non-negative ints;
// rows in no dense region get model.ClusterNoise.
func DBSCAN(matrix [][]float64, p Params) []int {
	n := len(matrix)
	labels := make([]int, n)
	const unvisited = -2
	for i := range labels {
		labels[i] = unvisited
	}

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if floats.Distance(matrix[i], matrix[j], 2) <= p.Eps {
				out = append(out, j) // includes i itself
			}
		}
		return out
	}

	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		seed := neighbors(i)
		if len(seed) < p.MinSamples {
			labels[i] = model.ClusterNoise
			continue
		}
		labels[i] = next
		// Expand the cluster breadth-first from the seed neighborhood.
		for q := 0; q < len(seed); q++ {
			j := seed[q]
			if labels[j] == model.ClusterNoise {
				labels[j] = next // border point
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = next
			jn := neighbors(j)
			if len(jn) >= p.MinSamples {
				seed = append(seed, jn...)
			}
		}
		next++
	}
	return labels
}

// Result is one clustering run over a feature matrix.
type Result struct {
	Labels        []int // parallel to the input vectors
	NumStrategies int   // distinct labels excluding noise
	NumNoise      int
	Params        Params
}

// Run standardizes the vectors' values and clusters them.
func Run(vectors []features.Vector, p Params) Result {
	matrix := make([][]float64, len(vectors))
	for i, v := range vectors {
		matrix[i] = v.Values
	}
	labels := DBSCAN(Standardize(matrix), p)

	distinct := make(map[int]struct{})
	noise := 0
	for _, l := range labels {
		if l == model.ClusterNoise {
			noise++
			continue
		}
		distinct[l] = struct{}{}
	}
	return Result{
		Labels:        labels,
		NumStrategies: len(distinct),
		NumNoise:      noise,
		Params:        p,
	}
}

// MergeLabels attaches cluster labels back onto the round table.
//
// Multiple matches share round numbers, so the composite (match_file,
// round_num) key is used whenever the batch spans more than one match; with
// a single match, round_num alone is an acceptable fallback key. Rounds not
// present in the clustering run keep HasCluster=false.
func MergeLabels(rounds []model.Round, vectors []features.Vector, labels []int) []model.Round {
	out := make([]model.Round, len(rounds))
	copy(out, rounds)

	matchFiles := make(map[string]struct{})
	for _, v := range vectors {
		matchFiles[v.MatchFile] = struct{}{}
	}
	singleMatch := len(matchFiles) <= 1

	type key struct {
		file string
		num  int
	}
	byKey := make(map[key]int, len(vectors))
	byNum := make(map[int]int, len(vectors))
	for i, v := range vectors {
		byKey[key{v.MatchFile, v.RoundNum}] = labels[i]
		byNum[v.RoundNum] = labels[i]
	}

	for i := range out {
		if singleMatch {
			if l, ok := byNum[out[i].RoundNum]; ok {
				out[i].HasCluster = true
				out[i].Cluster = l
			}
			continue
		}
		if l, ok := byKey[key{out[i].MatchFile, out[i].RoundNum}]; ok {
			out[i].HasCluster = true
			out[i].Cluster = l
		}
	}
	return out
}

// AutoTune grid-searches (eps, minSamples) for the pair whose cluster count
// lands closest to targetClusters. Assistive default-picker only; ties keep
// the first (smallest) pair tried.
func AutoTune(vectors []features.Vector, epsMin, epsMax float64, minSamplesMin, minSamplesMax, targetClusters int) Params {
	best := Params{Eps: epsMin, MinSamples: minSamplesMin}
	if len(vectors) == 0 {
		return DefaultParams()
	}

	bestScore := math.Inf(1)
	const epsSteps = 5
	for s := 0; s < epsSteps; s++ {
		eps := epsMin
		if epsSteps > 1 {
			eps = epsMin + (epsMax-epsMin)*float64(s)/float64(epsSteps-1)
		}
		for ms := minSamplesMin; ms <= minSamplesMax; ms++ {
			res := Run(vectors, Params{Eps: eps, MinSamples: ms})
			score := math.Abs(float64(res.NumStrategies - targetClusters))
			if score < bestScore {
				bestScore = score
				best = Params{Eps: eps, MinSamples: ms}
			}
		}
	}
	return best
}
