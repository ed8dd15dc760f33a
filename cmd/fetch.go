package cmd

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/pable/go-cs-strats/internal/faceit"
	"github.com/pable/go-cs-strats/internal/steam"
)

// fetch command flags.
var (
	// fetchDir is where downloaded demos land, ready for `discover`.
	fetchDir string
	// fetchPlayer is the FACEIT nickname or Steam ID64 whose matches to pull.
	fetchPlayer string
	// fetchMap restricts downloads to demos on this map (e.g. "de_mirage").
	fetchMap string
	// fetchCount is the number of demos to download.
	fetchCount int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download demos into a folder for strategy discovery",
}

var fetchFaceitCmd = &cobra.Command{
	Use:   "faceit",
	Short: "Download a FACEIT player's recent demos",
	Long: `Fetches recent matches for a FACEIT player and downloads their demos into
a folder. Point 'discover' at that folder afterwards.

Examples:
  # Last 10 Mirage demos for a player
  csstrats fetch faceit --player <nickname> --map de_mirage --count 10 --dir demos/

  csstrats discover demos/ --side T`,
	RunE: runFetchFaceit,
}

var fetchCodeCmd = &cobra.Command{
	Use:   "code <sharecode>...",
	Short: "Download matchmaking demos from CS2 share codes",
	Long: `Decodes CS2 match share codes (CSGO-XXXXX-...), locates each demo on
Valve's replay servers and downloads it into the target folder.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetchCode,
}

func init() {
	fetchCmd.PersistentFlags().StringVar(&fetchDir, "dir", "demos", "folder to download demos into")

	fetchFaceitCmd.Flags().StringVar(&fetchPlayer, "player", "", "FACEIT nickname or Steam ID64 (required)")
	fetchFaceitCmd.Flags().StringVar(&fetchMap, "map", "", "only download matches on this map (e.g. de_mirage)")
	fetchFaceitCmd.Flags().IntVar(&fetchCount, "count", 10, "number of demos to download")
	_ = fetchFaceitCmd.MarkFlagRequired("player")

	fetchCmd.AddCommand(fetchFaceitCmd)
	fetchCmd.AddCommand(fetchCodeCmd)
}

func runFetchFaceit(cmd *cobra.Command, args []string) error {
	apiKey, err := loadFaceitAPIKey()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(fetchDir, 0755); err != nil {
		return fmt.Errorf("create demo dir: %w", err)
	}

	client := faceit.NewClient(apiKey)

	var fp *faceit.Player
	if looksLikeSteamID(fetchPlayer) {
		fp, err = client.GetPlayerBySteamID(fetchPlayer)
	} else {
		fp, err = client.GetPlayerByNickname(fetchPlayer)
	}
	if err != nil {
		return fmt.Errorf("lookup player %q: %w", fetchPlayer, err)
	}
	fmt.Printf("Player: %s  level=%d  ELO=%d  region=%s\n",
		fp.Nickname, fp.Games.CS2.SkillLevel,
		fp.Games.CS2.FaceitELO, fp.Games.CS2.Region)

	// Over-fetch history to leave room for map filtering.
	histLimit := fetchCount * 5
	if histLimit < 50 {
		histLimit = 50
	}
	history, err := client.GetMatchHistory(fp.PlayerID, histLimit)
	if err != nil {
		return fmt.Errorf("match history: %w", err)
	}

	downloaded := 0
	for _, item := range history {
		if downloaded >= fetchCount {
			break
		}
		if !strings.EqualFold(item.Status, "FINISHED") {
			continue
		}

		match, err := client.GetMatch(item.MatchID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  [skip] %s: %v\n", item.MatchID, err)
			continue
		}

		mapName := match.MapName()
		if fetchMap != "" && mapName != fetchMap {
			continue
		}
		if len(match.DemoURLs) == 0 {
			fmt.Printf("  [skip] %s: no demo URL\n", item.MatchID)
			continue
		}

		outPath := filepath.Join(fetchDir, item.MatchID+".dem")
		if _, err := os.Stat(outPath); err == nil {
			fmt.Printf("  [skip] %s: already downloaded\n", item.MatchID)
			downloaded++
			continue
		}

		fmt.Printf("[%d/%d] %s  map=%s\n", downloaded+1, fetchCount, item.MatchID, mapName)
		if err := downloadDemo(match.DemoURLs[0], outPath); err != nil {
			fmt.Fprintf(os.Stderr, "  [error] download: %v\n", err)
			continue
		}
		downloaded++
	}

	fmt.Printf("\nDone: %d/%d demos in %s\n", downloaded, fetchCount, fetchDir)
	return nil
}

func runFetchCode(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(fetchDir, 0755); err != nil {
		return fmt.Errorf("create demo dir: %w", err)
	}

	downloaded := 0
	for _, code := range args {
		sc, err := steam.Decode(code)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  [skip] %s: %v\n", code, err)
			continue
		}

		outPath := filepath.Join(fetchDir, fmt.Sprintf("match_%d.dem", sc.MatchID))
		if _, err := os.Stat(outPath); err == nil {
			fmt.Printf("  [skip] match %d: already downloaded\n", sc.MatchID)
			downloaded++
			continue
		}

		fmt.Printf("Resolving %s (match %d)...\n", code, sc.MatchID)
		demoURL, err := steam.ResolveReplayURL(sc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  [error] %v\n", err)
			continue
		}

		if err := downloadDemo(demoURL, outPath); err != nil {
			fmt.Fprintf(os.Stderr, "  [error] download: %v\n", err)
			continue
		}
		fmt.Printf("  saved %s\n", outPath)
		downloaded++
	}

	fmt.Printf("\nDone: %d/%d demos in %s\n", downloaded, len(args), fetchDir)
	return nil
}

// downloadDemo downloads a demo URL (handling bzip2, zstd or gzip) to outPath.
func downloadDemo(url, outPath string) error {
	resp, err := http.Get(url) //nolint:gosec
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var src io.Reader = resp.Body
	switch {
	case strings.HasSuffix(url, ".bz2"):
		src = bzip2.NewReader(resp.Body)
	case strings.HasSuffix(url, ".zst"):
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		src = dec
	case strings.HasSuffix(url, ".gz") || resp.Header.Get("Content-Encoding") == "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	if _, err := io.Copy(f, src); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// loadFaceitAPIKey returns the FACEIT Data API key from the FACEIT_API_KEY
// environment variable or ~/.csstrats/faceit_api_key file.
func loadFaceitAPIKey() (string, error) {
	if key := os.Getenv("FACEIT_API_KEY"); key != "" {
		return key, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(home, ".csstrats", "faceit_api_key"))
	if err != nil {
		return "", fmt.Errorf("FACEIT API key not found: set FACEIT_API_KEY or create ~/.csstrats/faceit_api_key")
	}
	return strings.TrimSpace(string(data)), nil
}

// looksLikeSteamID returns true if s is a numeric string of at least 15 digits,
// consistent with a Steam ID64.
func looksLikeSteamID(s string) bool {
	if len(s) < 15 {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
