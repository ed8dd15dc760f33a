package model

import "sort"

// Side represents which side a team or player is on for a round.
// T is the attacking side, CT the defending side.
type Side int

const (
	SideUnknown Side = 0
	SideT       Side = 1
	SideCT      Side = 2
)

func (s Side) String() string {
	switch s {
	case SideT:
		return "T"
	case SideCT:
		return "CT"
	default:
		return "?"
	}
}

// ParseSide converts a "T"/"CT" string (any case) to a Side.
func ParseSide(s string) Side {
	switch s {
	case "T", "t":
		return SideT
	case "CT", "ct", "cT", "Ct":
		return SideCT
	default:
		return SideUnknown
	}
}

// Bombsite is the plant location category for a round.
type Bombsite int

const (
	SiteNone Bombsite = 0
	SiteA    Bombsite = 1
	SiteB    Bombsite = 2
)

func (b Bombsite) String() string {
	switch b {
	case SiteA:
		return "bombsite_a"
	case SiteB:
		return "bombsite_b"
	default:
		return "not_planted"
	}
}

// ClusterNoise is the DBSCAN label for rounds that belong to no dense region.
const ClusterNoise = -1

// Round is one round of one match. Round numbers repeat across demos, so
// the unique key is (MatchFile, RoundNum).
// TeamSide is written once by side attribution; Cluster is attached after
// clustering (HasCluster=false means the round was not part of the run).
type Round struct {
	MatchFile string
	RoundNum  int
	Winner    Side
	Bombsite  Bombsite
	TeamSide  Side
	IsPistol  bool
	EndReason string

	HasCluster bool
	Cluster    int
}

// KillEvent is one kill, positioned at the attacker.
type KillEvent struct {
	MatchFile    string
	RoundNum     int
	AttackerName string
	VictimName   string
	AttackerSide Side
	VictimSide   Side
	Weapon       string
	X, Y, Z      float64
	Tick         int
	Seconds      float64 // seconds into round
	IsEntryFrag  bool
	Headshot     bool
}

// UtilityEvent is one grenade detonation (or burn start, for molotovs).
type UtilityEvent struct {
	MatchFile   string
	RoundNum    int
	GrenadeType string // "smoke", "flash", "he", "molotov"
	ThrowerName string
	ThrowerSide Side
	X, Y, Z     float64
	Tick        int
	Seconds     float64
}

// PositionPhase says when in the round a position sample was taken.
type PositionPhase string

const (
	PhaseRoundStart PositionPhase = "round_start"
	PhaseFreezeEnd  PositionPhase = "freeze_end"
	PhaseMidRound   PositionPhase = "mid_round"
)

// PositionSample is one player's location at one sampled moment.
type PositionSample struct {
	MatchFile  string
	RoundNum   int
	PlayerName string
	PlayerSide Side
	X, Y, Z    float64
	Tick       int
	Seconds    float64
	Phase      PositionPhase
}

// SideObservation is the first side a player was observed on in a round.
// The parser emits at most one per (round, player).
type SideObservation struct {
	RoundNum   int
	PlayerName string
	Side       Side
	Tick       int
}

// RosterSnapshot is the set of players observed on one side during a match's
// opening rounds. Transient input to team identification.
type RosterSnapshot struct {
	MatchFile string
	Side      Side
	Players   map[string]struct{}
}

// DecodedMatch is everything extracted from one demo file.
type DecodedMatch struct {
	MatchFile string
	MapName   string
	Tickrate  float64

	Rounds    []Round
	Kills     []KillEvent
	Utility   []UtilityEvent
	Positions []PositionSample
	SideObs   []SideObservation
	Rosters   []RosterSnapshot
}

// MatchData holds the consolidated multi-match record tables the discovery
// pipeline operates on.
type MatchData struct {
	MapName   string
	Rounds    []Round
	Kills     []KillEvent
	Utility   []UtilityEvent
	Positions []PositionSample
}

// RunSummary is the stored record of one discovery run.
type RunSummary struct {
	ID            int64
	CreatedAt     string
	MapName       string
	Side          Side
	TeamPlayers   string // comma-joined roster, empty in side-only mode
	DemoCount     int
	Eps           float64
	MinSamples    int
	NumStrategies int
	NumNoise      int
}

// Team is an identified roster: an unordered set of player names that recur
// together across matches. MatchFiles lists the matches the roster spans.
type Team struct {
	Players    map[string]struct{}
	MatchFiles []string
}

// Names returns the roster in lexicographic order.
func (t Team) Names() []string {
	return SortedNames(t.Players)
}

// SortedNames flattens a player-name set into a sorted slice.
func SortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NameSet builds a player-name set from a slice.
func NameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
