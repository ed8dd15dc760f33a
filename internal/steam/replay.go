package steam

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ReplayURLPattern returns the URL template being probed for a share code
// (with server number N=1 as a representative sample). Useful for manual debugging.
func ReplayURLPattern(sc ShareCode) string {
	return fmt.Sprintf("http://replay1.valve.net/730/%d_%d_%d.dem.bz2",
		sc.MatchID, sc.ReservationID, sc.TVPort)
}

// ResolveReplayURL probes Valve's replay server fleet to find the download URL
// for the given share code. Demos are hosted at:
//
//	http://replay{N}.valve.net/730/{matchID}_{reservationID}_{tvPort}.dem.bz2
//
// The server number N is not publicly derivable without Game Coordinator access,
// so servers 1-150 are probed concurrently. HEAD requests are avoided because
// some Valve servers silently drop them; instead a GET with Range: bytes=0-0
// downloads nothing but reliably exercises the request path.
// Returns an error if no server has the file (demo may have expired).
func ResolveReplayURL(sc ShareCode) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	found := make(chan string, 1)
	var once sync.Once
	var wg sync.WaitGroup

	probeClient := &http.Client{Timeout: 8 * time.Second}

	for n := 1; n <= 150; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			u := fmt.Sprintf("http://replay%d.valve.net/730/%d_%d_%d.dem.bz2",
				n, sc.MatchID, sc.ReservationID, sc.TVPort)

			req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
			if err != nil {
				return
			}
			// Request only the first byte so the demo is not downloaded here.
			req.Header.Set("Range", "bytes=0-0")

			resp, err := probeClient.Do(req)
			if err != nil {
				return
			}
			io.Copy(io.Discard, resp.Body) //nolint:errcheck
			resp.Body.Close()

			// 200 OK or 206 Partial Content both mean the file exists.
			if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent {
				once.Do(func() {
					select {
					case found <- u:
					default:
					}
					cancel()
				})
			}
		}(n)
	}

	go func() {
		wg.Wait()
		close(found)
	}()

	u, ok := <-found
	if !ok {
		sample := ReplayURLPattern(sc)
		return "", fmt.Errorf("demo not found on any Valve replay server (servers 1-150)\n"+
			"  Verify the URL format manually: curl -I %q\n"+
			"  If curl returns 404 on all servers, the demo may have expired (kept ~30 days)",
			sample)
	}
	return u, nil
}
