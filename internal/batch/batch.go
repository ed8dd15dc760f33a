// Package batch runs the demo decoder over a folder of replays with a
// bounded worker pool and consolidates the results into a single dataset.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pable/go-cs-strats/internal/model"
	"github.com/pable/go-cs-strats/internal/parser"
)

// DefaultWorkers bounds decoder concurrency. Decoding holds the whole
// demo in memory, so this stays low on purpose.
const DefaultWorkers = 2

// Options configure a batch run.
type Options struct {
	// Workers is the max number of demos decoded at once. Zero means
	// DefaultWorkers.
	Workers int

	// SampleInterval is forwarded to the parser (seconds between
	// mid-round position samples).
	SampleInterval float64

	// StrictMap aborts the batch when demos disagree on the map.
	// When false, demos from minority maps are skipped with a warning.
	StrictMap bool

	Logger *zap.Logger
}

// Result is the outcome of a batch run.
type Result struct {
	Data    *model.MatchData
	Decoded []*model.DecodedMatch
	Failed  []string
	Skipped []string
}

// DiscoverDemos lists .dem files directly under dir, sorted by name.
func DiscoverDemos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read demo dir: %w", err)
	}
	var demos []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".dem") {
			demos = append(demos, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(demos)
	return demos, nil
}

// Run decodes all demos and consolidates them into one MatchData.
// A demo that fails to decode is recorded in Result.Failed and does not
// fail the batch. Map consistency is validated after decoding.
func Run(ctx context.Context, paths []string, opts Options) (*Result, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no demo files to process")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var (
		mu      sync.Mutex
		decoded []*model.DecodedMatch
		failed  []string
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			log.Info("decoding demo", zap.String("file", filepath.Base(path)))
			dm, err := parser.ParseDemo(path, parser.Options{SampleInterval: opts.SampleInterval})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("demo decode failed, skipping",
					zap.String("file", filepath.Base(path)),
					zap.Error(err))
				failed = append(failed, filepath.Base(path))
				return nil
			}
			decoded = append(decoded, dm)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("all %d demos failed to decode", len(paths))
	}

	// Deterministic order regardless of decode completion order.
	sort.Slice(decoded, func(i, j int) bool {
		return decoded[i].MatchFile < decoded[j].MatchFile
	})

	decoded, skipped, err := validateMaps(decoded, opts.StrictMap, log)
	if err != nil {
		return nil, err
	}

	return &Result{
		Data:    Consolidate(decoded),
		Decoded: decoded,
		Failed:  failed,
		Skipped: skipped,
	}, nil
}

// validateMaps keeps only demos from the majority map. In strict mode
// any disagreement aborts instead.
func validateMaps(decoded []*model.DecodedMatch, strict bool, log *zap.Logger) ([]*model.DecodedMatch, []string, error) {
	counts := make(map[string]int)
	for _, dm := range decoded {
		counts[dm.MapName]++
	}
	if len(counts) <= 1 {
		return decoded, nil, nil
	}
	if strict {
		maps := make([]string, 0, len(counts))
		for m := range counts {
			maps = append(maps, m)
		}
		sort.Strings(maps)
		return nil, nil, fmt.Errorf("demos span multiple maps: %s", strings.Join(maps, ", "))
	}

	majority := ""
	for m, n := range counts {
		if n > counts[majority] || (n == counts[majority] && (majority == "" || m < majority)) {
			majority = m
		}
	}

	var kept []*model.DecodedMatch
	var skipped []string
	for _, dm := range decoded {
		if dm.MapName != majority {
			log.Warn("skipping demo from different map",
				zap.String("file", dm.MatchFile),
				zap.String("map", dm.MapName),
				zap.String("expected", majority))
			skipped = append(skipped, dm.MatchFile)
			continue
		}
		kept = append(kept, dm)
	}
	return kept, skipped, nil
}

// Consolidate merges decoded matches into one MatchData.
func Consolidate(decoded []*model.DecodedMatch) *model.MatchData {
	data := &model.MatchData{}
	for _, dm := range decoded {
		if data.MapName == "" {
			data.MapName = dm.MapName
		}
		data.Rounds = append(data.Rounds, dm.Rounds...)
		data.Kills = append(data.Kills, dm.Kills...)
		data.Utility = append(data.Utility, dm.Utility...)
		data.Positions = append(data.Positions, dm.Positions...)
	}
	return data
}

// Rosters collects every roster snapshot across decoded matches.
func Rosters(decoded []*model.DecodedMatch) []model.RosterSnapshot {
	var out []model.RosterSnapshot
	for _, dm := range decoded {
		out = append(out, dm.Rosters...)
	}
	return out
}
