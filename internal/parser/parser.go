// Package parser decodes CS2 demo files into the record streams the
// discovery pipeline consumes: rounds, kills, utility events, position
// samples, per-round side observations, and opening-round roster snapshots.
package parser

import (
	"fmt"
	"os"
	"path/filepath"

	demoinfocs "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs"
	common "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/events"

	"github.com/pable/go-cs-strats/internal/model"
)

const (
	// fallbackTickRate is used until the demo reports its own rate.
	fallbackTickRate = 64.0

	// rosterRounds is how many opening rounds feed the roster snapshots.
	rosterRounds = 3
)

// Options tune what the parser samples.
type Options struct {
	// SampleInterval is the spacing of mid-round position samples, in
	// seconds. Zero disables mid-round sampling (round_start and
	// freeze_end samples are always taken).
	SampleInterval float64
}

// ParseDemo decodes the demo at path into a DecodedMatch. A failure to
// decode is returned as an error and concerns this match only.
func ParseDemo(path string, opts Options) (*model.DecodedMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open demo: %w", err)
	}
	defer f.Close()

	p := demoinfocs.NewParser(f)
	defer p.Close()

	dm := &model.DecodedMatch{
		MatchFile: filepath.Base(path),
	}

	var (
		roundNumber    int
		roundStartTick int
		freezeEndTick  int
		roundEnded     bool
		nextSampleTick int
		roundSite      model.Bombsite
	)

	tickRate := func() float64 {
		if tr := p.TickRate(); tr > 0 {
			return tr
		}
		return fallbackTickRate
	}
	secondsSince := func(tick int) float64 {
		if tick < roundStartTick {
			return 0
		}
		return float64(tick-roundStartTick) / tickRate()
	}

	// One side observation per (round, player): the first side seen.
	type obsKey struct {
		round  int
		player string
	}
	sideSeen := make(map[obsKey]struct{})
	observeSides := func(tick int) {
		for _, pl := range p.GameState().Participants().Playing() {
			if pl == nil || pl.Name == "" {
				continue
			}
			side := sideFromCommon(pl.Team)
			if side == model.SideUnknown {
				continue
			}
			k := obsKey{roundNumber, pl.Name}
			if _, ok := sideSeen[k]; ok {
				continue
			}
			sideSeen[k] = struct{}{}
			dm.SideObs = append(dm.SideObs, model.SideObservation{
				RoundNum:   roundNumber,
				PlayerName: pl.Name,
				Side:       side,
				Tick:       tick,
			})
		}
	}

	samplePositions := func(tick int, phase model.PositionPhase) {
		for _, pl := range p.GameState().Participants().Playing() {
			if pl == nil || pl.Name == "" {
				continue
			}
			pos := pl.Position()
			dm.Positions = append(dm.Positions, model.PositionSample{
				MatchFile:  dm.MatchFile,
				RoundNum:   roundNumber,
				PlayerName: pl.Name,
				PlayerSide: sideFromCommon(pl.Team),
				X:          pos.X,
				Y:          pos.Y,
				Z:          pos.Z,
				Tick:       tick,
				Seconds:    secondsSince(tick),
				Phase:      phase,
			})
		}
	}

	// Opening-round rosters, one set per side.
	rosterBySide := map[model.Side]map[string]struct{}{
		model.SideT:  {},
		model.SideCT: {},
	}
	snapshotRosters := func() {
		if roundNumber > rosterRounds {
			return
		}
		for _, pl := range p.GameState().Participants().Playing() {
			if pl == nil || pl.Name == "" {
				continue
			}
			if side := sideFromCommon(pl.Team); side != model.SideUnknown {
				rosterBySide[side][pl.Name] = struct{}{}
			}
		}
	}

	p.RegisterEventHandler(func(e events.RoundStart) {
		if p.GameState().IsWarmupPeriod() {
			return
		}
		roundNumber++
		roundStartTick = p.GameState().IngameTick()
		freezeEndTick = roundStartTick // updated by RoundFreezetimeEnd
		roundEnded = false
		nextSampleTick = 0
		roundSite = model.SiteNone
		observeSides(roundStartTick)
		samplePositions(roundStartTick, model.PhaseRoundStart)
	})

	p.RegisterEventHandler(func(e events.RoundFreezetimeEnd) {
		if roundNumber == 0 {
			return
		}
		freezeEndTick = p.GameState().IngameTick()
		observeSides(freezeEndTick)
		samplePositions(freezeEndTick, model.PhaseFreezeEnd)
		snapshotRosters()
		if opts.SampleInterval > 0 {
			nextSampleTick = freezeEndTick + int(opts.SampleInterval*tickRate())
		}
	})

	// Mid-round position sampling on frame boundaries.
	p.RegisterEventHandler(func(e events.FrameDone) {
		if roundNumber == 0 || roundEnded || nextSampleTick == 0 {
			return
		}
		tick := p.GameState().IngameTick()
		if tick < nextSampleTick {
			return
		}
		observeSides(tick)
		samplePositions(tick, model.PhaseMidRound)
		nextSampleTick = tick + int(opts.SampleInterval*tickRate())
	})

	p.RegisterEventHandler(func(e events.BombPlanted) {
		if roundNumber == 0 {
			return
		}
		switch e.Site {
		case events.BombsiteA:
			roundSite = model.SiteA
		case events.BombsiteB:
			roundSite = model.SiteB
		}
	})

	entrySeen := make(map[int]bool)
	p.RegisterEventHandler(func(e events.Kill) {
		if roundNumber == 0 || e.Killer == nil || e.Victim == nil {
			return
		}
		tick := p.GameState().IngameTick()
		var weapName string
		if e.Weapon != nil {
			weapName = e.Weapon.Type.String()
		}
		pos := e.Killer.Position()
		dm.Kills = append(dm.Kills, model.KillEvent{
			MatchFile:    dm.MatchFile,
			RoundNum:     roundNumber,
			AttackerName: e.Killer.Name,
			VictimName:   e.Victim.Name,
			AttackerSide: sideFromCommon(e.Killer.Team),
			VictimSide:   sideFromCommon(e.Victim.Team),
			Weapon:       weapName,
			X:            pos.X,
			Y:            pos.Y,
			Z:            pos.Z,
			Tick:         tick,
			Seconds:      secondsSince(tick),
			IsEntryFrag:  !entrySeen[roundNumber],
			Headshot:     e.IsHeadshot,
		})
		entrySeen[roundNumber] = true
	})

	recordUtility := func(grenadeType string, ge events.GrenadeEvent) {
		if roundNumber == 0 {
			return
		}
		tick := p.GameState().IngameTick()
		u := model.UtilityEvent{
			MatchFile:   dm.MatchFile,
			RoundNum:    roundNumber,
			GrenadeType: grenadeType,
			X:           ge.Position.X,
			Y:           ge.Position.Y,
			Z:           ge.Position.Z,
			Tick:        tick,
			Seconds:     secondsSince(tick),
		}
		if ge.Thrower != nil {
			u.ThrowerName = ge.Thrower.Name
			u.ThrowerSide = sideFromCommon(ge.Thrower.Team)
		}
		dm.Utility = append(dm.Utility, u)
	}
	p.RegisterEventHandler(func(e events.SmokeStart) { recordUtility("smoke", e.GrenadeEvent) })
	p.RegisterEventHandler(func(e events.FlashExplode) { recordUtility("flash", e.GrenadeEvent) })
	p.RegisterEventHandler(func(e events.HeExplode) { recordUtility("he", e.GrenadeEvent) })
	p.RegisterEventHandler(func(e events.FireGrenadeStart) { recordUtility("molotov", e.GrenadeEvent) })

	p.RegisterEventHandler(func(e events.RoundEnd) {
		if roundNumber == 0 {
			return
		}
		roundEnded = true
		dm.Rounds = append(dm.Rounds, model.Round{
			MatchFile: dm.MatchFile,
			RoundNum:  roundNumber,
			Winner:    sideFromCommon(e.Winner),
			Bombsite:  roundSite,
			IsPistol:  roundNumber == 1 || roundNumber == 13, // MR12 half starts
			EndReason: reasonString(e.Reason),
		})
	})

	if err := p.ParseToEnd(); err != nil {
		return nil, fmt.Errorf("parse demo: %w", err)
	}

	dm.MapName = p.Header().MapName
	dm.Tickrate = tickRate()

	for side, players := range rosterBySide {
		if len(players) == 0 {
			continue
		}
		dm.Rosters = append(dm.Rosters, model.RosterSnapshot{
			MatchFile: dm.MatchFile,
			Side:      side,
			Players:   players,
		})
	}

	return dm, nil
}

func sideFromCommon(t common.Team) model.Side {
	switch t {
	case common.TeamTerrorists:
		return model.SideT
	case common.TeamCounterTerrorists:
		return model.SideCT
	default:
		return model.SideUnknown
	}
}

func reasonString(r events.RoundEndReason) string {
	switch r {
	case events.RoundEndReasonBombDefused:
		return "bomb_defused"
	case events.RoundEndReasonTargetBombed:
		return "target_bombed"
	case events.RoundEndReasonTargetSaved:
		return "target_saved"
	case events.RoundEndReasonTerroristsWin:
		return "t_win"
	case events.RoundEndReasonCTWin:
		return "ct_win"
	case events.RoundEndReasonTerroristsSurrender:
		return "t_surrender"
	case events.RoundEndReasonCTSurrender:
		return "ct_surrender"
	default:
		return "other"
	}
}
