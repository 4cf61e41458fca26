package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

// Store provides database operations for analytics.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the analytics database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create analytics dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			visitor_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			event TEXT NOT NULL DEFAULT 'page_view',
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			path TEXT NOT NULL,
			referrer TEXT NOT NULL DEFAULT '',
			screen_size TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bot_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			path TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
		CREATE INDEX IF NOT EXISTS idx_visits_visitor_id ON visits(visitor_id);
		CREATE INDEX IF NOT EXISTS idx_visits_event ON visits(event);
		CREATE INDEX IF NOT EXISTS idx_bot_visits_timestamp ON bot_visits(timestamp);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// GetSetting retrieves a setting value by key. Returns "" if not found.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// SaveVisit stores a new visit.
func (s *Store) SaveVisit(ctx context.Context, v *Visit) error {
	event := v.Event
	if event == "" {
		event = DefaultEvent
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO visits
		(visitor_id, ip_hash, event, browser, os, device, path, referrer, screen_size, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.IPHash, event, v.Browser, v.OS, v.Device, v.Path, v.Referrer, v.ScreenSize, v.Timestamp.UTC())
	return err
}

// SaveBotVisit stores a new bot visit.
func (s *Store) SaveBotVisit(ctx context.Context, bv *BotVisit) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO bot_visits (bot_name, ip_hash, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		bv.BotName, bv.IPHash, bv.UserAgent, bv.Path, bv.Timestamp.UTC())
	return err
}

// GetStats aggregates visits in [from, to). Page counts only include
// page_view events; TopEvents covers every event. Daily buckets become
// monthly when monthly is set.
func (s *Store) GetStats(ctx context.Context, from, to time.Time, monthly bool) (*Stats, error) {
	from, to = from.UTC(), to.UTC()
	stats := &Stats{
		Period:        from.Format("2006-01-02") + " to " + to.Format("2006-01-02"),
		TopPages:      []PageStat{},
		TopEvents:     []DimensionStat{},
		BrowserStats:  []DimensionStat{},
		DeviceStats:   []DimensionStat{},
		ReferrerStats: []DimensionStat{},
		DailyViews:    []DailyView{},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM visits
			WHERE event = ? AND timestamp >= ? AND timestamp < ?`, DefaultEvent, from, to).Scan(&stats.TotalViews)
		if err != nil {
			return fmt.Errorf("count views: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT visitor_id) FROM visits
			WHERE timestamp >= ? AND timestamp < ?`, from, to).Scan(&stats.UniqueVisitors)
		if err != nil {
			return fmt.Errorf("count unique visitors: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bot_visits
			WHERE timestamp >= ? AND timestamp < ?`, from, to).Scan(&stats.BotVisits)
		if err != nil {
			return fmt.Errorf("count bot visits: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT path, COUNT(*) AS views FROM visits
			WHERE event = ? AND timestamp >= ? AND timestamp < ?
			GROUP BY path ORDER BY views DESC, path LIMIT 10`, DefaultEvent, from, to)
		if err != nil {
			return fmt.Errorf("top pages: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var p PageStat
			if err := rows.Scan(&p.Path, &p.Views); err != nil {
				return fmt.Errorf("top pages: %w", err)
			}
			stats.TopPages = append(stats.TopPages, p)
		}
		return rows.Err()
	})
	g.Go(func() error {
		var err error
		stats.TopEvents, err = s.dimension(ctx, "event", from, to)
		return err
	})
	g.Go(func() error {
		var err error
		stats.BrowserStats, err = s.dimension(ctx, "browser", from, to)
		return err
	})
	g.Go(func() error {
		var err error
		stats.DeviceStats, err = s.dimension(ctx, "device", from, to)
		return err
	})
	g.Go(func() error {
		var err error
		stats.ReferrerStats, err = s.dimension(ctx, "referrer", from, to)
		return err
	})
	g.Go(func() error {
		bucket := "%Y-%m-%d"
		if monthly {
			bucket = "%Y-%m"
		}
		rows, err := s.db.QueryContext(ctx, `SELECT strftime(?, timestamp) AS d, COUNT(*) FROM visits
			WHERE event = ? AND timestamp >= ? AND timestamp < ?
			GROUP BY d ORDER BY d`, bucket, DefaultEvent, from, to)
		if err != nil {
			return fmt.Errorf("daily views: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var d DailyView
			if err := rows.Scan(&d.Date, &d.Views); err != nil {
				return fmt.Errorf("daily views: %w", err)
			}
			stats.DailyViews = append(stats.DailyViews, d)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// dimensionColumns whitelists the columns dimension may group by.
var dimensionColumns = map[string]bool{"event": true, "browser": true, "device": true, "referrer": true}

func (s *Store) dimension(ctx context.Context, column string, from, to time.Time) ([]DimensionStat, error) {
	if !dimensionColumns[column] {
		return nil, fmt.Errorf("unknown dimension %q", column)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+column+`, COUNT(*) AS n FROM visits
		WHERE timestamp >= ? AND timestamp < ? AND `+column+` != ''
		GROUP BY `+column+` ORDER BY n DESC, `+column+` LIMIT 10`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s stats: %w", column, err)
	}
	defer rows.Close()
	out := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, fmt.Errorf("%s stats: %w", column, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CleanupOldVisits removes visits and bot visits older than retentionDays.
func (s *Store) CleanupOldVisits(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup visits: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bot_visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup bot_visits: %w", err)
	}
	return nil
}

// StartCleanupScheduler runs periodic cleanup of old data until the returned
// stop function is called. Errors are passed to onErr.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration, onErr func(error)) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.CleanupOldVisits(context.Background(), retentionDays); err != nil && onErr != nil {
					onErr(err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
