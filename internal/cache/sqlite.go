package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"statusgen/internal/logging"
)

// SQLite is a durable response cache. A statusgen run is short-lived, so an
// on-disk store is what makes the 24h TTL useful across invocations.
// Payloads are zstd-compressed; upstream JSON compresses well.
type SQLite struct {
	conn   *sql.DB
	ttl    time.Duration
	now    clock
	logger *logging.Logger

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// SQLiteOptions configures a SQLite cache.
type SQLiteOptions struct {
	Path string
	TTL  time.Duration
	Now  func() time.Time
}

// OpenSQLite opens or creates the cache database.
func OpenSQLite(opts SQLiteOptions, logger *logging.Logger) (*SQLite, error) {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS response_cache (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			expires_at TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		conn.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		conn.Close()
		return nil, err
	}

	c := &SQLite{conn: conn, ttl: opts.TTL, now: now, logger: logger, enc: enc, dec: dec}

	// Startup sweep replaces the long-running process's periodic one.
	c.Sweep()

	return c, nil
}

// Get implements ResponseCache.
func (c *SQLite) Get(key string) ([]byte, bool) {
	var blob []byte
	var expiresAt string
	err := c.conn.QueryRow(
		`SELECT value, expires_at FROM response_cache WHERE key = ?`, key,
	).Scan(&blob, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Cache read failed", map[string]interface{}{"error": err.Error()})
		return nil, false
	}

	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil || c.now().After(expiry) {
		c.conn.Exec(`DELETE FROM response_cache WHERE key = ?`, key)
		return nil, false
	}

	value, err := c.dec.DecodeAll(blob, nil)
	if err != nil {
		c.logger.Warn("Cache entry corrupt, dropping", map[string]interface{}{"error": err.Error()})
		c.conn.Exec(`DELETE FROM response_cache WHERE key = ?`, key)
		return nil, false
	}
	return value, true
}

// Set implements ResponseCache.
func (c *SQLite) Set(key string, value []byte) {
	now := c.now()
	_, err := c.conn.Exec(`
		INSERT OR REPLACE INTO response_cache (key, value, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`,
		key,
		c.enc.EncodeAll(value, nil),
		now.Add(c.ttl).Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		c.logger.Warn("Cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

// Bypassed implements ResponseCache.
func (c *SQLite) Bypassed() bool { return false }

// Sweep deletes expired rows.
func (c *SQLite) Sweep() {
	_, err := c.conn.Exec(
		`DELETE FROM response_cache WHERE expires_at < ?`,
		c.now().Format(time.RFC3339),
	)
	if err != nil {
		c.logger.Warn("Cache sweep failed", map[string]interface{}{"error": err.Error()})
	}
}

// Close releases the database and codecs.
func (c *SQLite) Close() error {
	c.enc.Close()
	c.dec.Close()
	return c.conn.Close()
}
