package storage

import (
	"database/sql"
	"fmt"

	"github.com/pable/go-cs-strats/internal/analysis"
	"github.com/pable/go-cs-strats/internal/model"
)

// InsertRun inserts a discovery run record and returns its id.
func (db *DB) InsertRun(run model.RunSummary) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO runs(created_at, map_name, side, team_players, demo_count, eps, min_samples, num_strategies, num_noise)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt, run.MapName, run.Side.String(), run.TeamPlayers,
		run.DemoCount, run.Eps, run.MinSamples, run.NumStrategies, run.NumNoise,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertRounds bulk-inserts labeled rounds for a run in a transaction.
func (db *DB) InsertRounds(runID int64, rounds []model.Round) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO run_rounds(
			run_id, match_file, round_num, winner, bombsite, team_side,
			is_pistol, end_reason, has_cluster, cluster
		) VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rounds {
		_, err = stmt.Exec(
			runID, r.MatchFile, r.RoundNum, r.Winner.String(), r.Bombsite.String(),
			r.TeamSide.String(), boolInt(r.IsPistol), r.EndReason,
			boolInt(r.HasCluster), r.Cluster,
		)
		if err != nil {
			return fmt.Errorf("insert round %s#%d: %w", r.MatchFile, r.RoundNum, err)
		}
	}
	return tx.Commit()
}

// InsertClusterStats bulk-inserts per-cluster stats (and the unclustered
// group, if present) for a run in a transaction.
func (db *DB) InsertClusterStats(runID int64, report *analysis.Report) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO cluster_stats(
			run_id, cluster_id, frequency, pct_rounds, wins, losses, win_rate
		) VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	siteStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO cluster_sites(run_id, cluster_id, site, count, pct)
		VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer siteStmt.Close()

	insert := func(cs analysis.ClusterStats) error {
		if _, err := stmt.Exec(runID, cs.ClusterID, cs.Frequency, cs.PctOfRounds, cs.Wins, cs.Losses, cs.WinRate); err != nil {
			return fmt.Errorf("insert cluster %d: %w", cs.ClusterID, err)
		}
		for _, site := range cs.Sites {
			if _, err := siteStmt.Exec(runID, cs.ClusterID, site.Site.String(), site.Count, site.Percentage); err != nil {
				return fmt.Errorf("insert cluster %d site %s: %w", cs.ClusterID, site.Site, err)
			}
		}
		return nil
	}

	for _, cs := range report.Clusters {
		if err := insert(cs); err != nil {
			return err
		}
	}
	if report.Unclustered != nil {
		if err := insert(*report.Unclustered); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListRuns returns all stored runs ordered by creation time desc.
func (db *DB) ListRuns() ([]model.RunSummary, error) {
	rows, err := db.conn.Query(`
		SELECT id, created_at, map_name, side, team_players, demo_count, eps, min_samples, num_strategies, num_noise
		FROM runs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		var sideStr string
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.MapName, &sideStr, &r.TeamPlayers,
			&r.DemoCount, &r.Eps, &r.MinSamples, &r.NumStrategies, &r.NumNoise); err != nil {
			return nil, err
		}
		r.Side = model.ParseSide(sideStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns a single run by id, or nil if not found.
func (db *DB) GetRun(id int64) (*model.RunSummary, error) {
	var r model.RunSummary
	var sideStr string
	err := db.conn.QueryRow(`
		SELECT id, created_at, map_name, side, team_players, demo_count, eps, min_samples, num_strategies, num_noise
		FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.CreatedAt, &r.MapName, &sideStr, &r.TeamPlayers,
			&r.DemoCount, &r.Eps, &r.MinSamples, &r.NumStrategies, &r.NumNoise)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Side = model.ParseSide(sideStr)
	return &r, nil
}

// GetRounds returns all labeled rounds for a run ordered by match file
// then round number.
func (db *DB) GetRounds(runID int64) ([]model.Round, error) {
	rows, err := db.conn.Query(`
		SELECT match_file, round_num, winner, bombsite, team_side, is_pistol, end_reason, has_cluster, cluster
		FROM run_rounds WHERE run_id = ?
		ORDER BY match_file, round_num`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Round
	for rows.Next() {
		var r model.Round
		var winnerStr, siteStr, sideStr string
		var pistolInt, hasClusterInt int
		if err := rows.Scan(&r.MatchFile, &r.RoundNum, &winnerStr, &siteStr, &sideStr,
			&pistolInt, &r.EndReason, &hasClusterInt, &r.Cluster); err != nil {
			return nil, err
		}
		r.Winner = model.ParseSide(winnerStr)
		r.Bombsite = parseSite(siteStr)
		r.TeamSide = model.ParseSide(sideStr)
		r.IsPistol = pistolInt != 0
		r.HasCluster = hasClusterInt != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetClusterStats returns all cluster stats for a run with their
// bombsite distributions, ordered by cluster id (noise group last).
func (db *DB) GetClusterStats(runID int64) ([]analysis.ClusterStats, error) {
	rows, err := db.conn.Query(`
		SELECT cluster_id, frequency, pct_rounds, wins, losses, win_rate
		FROM cluster_stats WHERE run_id = ?
		ORDER BY CASE WHEN cluster_id < 0 THEN 1 ELSE 0 END, cluster_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analysis.ClusterStats
	for rows.Next() {
		var cs analysis.ClusterStats
		if err := rows.Scan(&cs.ClusterID, &cs.Frequency, &cs.PctOfRounds,
			&cs.Wins, &cs.Losses, &cs.WinRate); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	siteRows, err := db.conn.Query(`
		SELECT cluster_id, site, count, pct
		FROM cluster_sites WHERE run_id = ?
		ORDER BY cluster_id, site`, runID)
	if err != nil {
		return nil, err
	}
	defer siteRows.Close()

	byID := make(map[int]int, len(out))
	for i, cs := range out {
		byID[cs.ClusterID] = i
	}
	for siteRows.Next() {
		var clusterID, count int
		var site string
		var pct float64
		if err := siteRows.Scan(&clusterID, &site, &count, &pct); err != nil {
			return nil, err
		}
		if i, ok := byID[clusterID]; ok {
			out[i].Sites = append(out[i].Sites, analysis.SiteShare{
				Site:       parseSite(site),
				Count:      count,
				Percentage: pct,
			})
		}
	}
	return out, siteRows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseSite(s string) model.Bombsite {
	switch s {
	case "bombsite_a":
		return model.SiteA
	case "bombsite_b":
		return model.SiteB
	default:
		return model.SiteNone
	}
}
