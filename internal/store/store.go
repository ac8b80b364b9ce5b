package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"snsapi/internal/model"
)

var ErrTokenNotFound = errors.New("token not found")

// DB wraps the SQLite database holding tokens, fetched messages and the
// local action log.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: databases shared across calls
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS tokens (
	  channel TEXT PRIMARY KEY,
	  access_token TEXT NOT NULL,
	  refresh_token TEXT,
	  code TEXT,
	  expires_in INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
	  platform TEXT NOT NULL,
	  status_id TEXT NOT NULL,
	  source_user_id TEXT NOT NULL,
	  channel TEXT NOT NULL,
	  userid TEXT,
	  username TEXT,
	  ts INTEGER NOT NULL,
	  text TEXT,
	  comments_count INTEGER,
	  payload TEXT,
	  PRIMARY KEY (platform, status_id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_channel_ts ON messages(channel, ts);
	CREATE TABLE IF NOT EXISTS actions (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  type TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_actions_ts ON actions(ts);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	return err
}

// SaveToken stores the access token of channel, replacing any previous one.
func (d *DB) SaveToken(ctx context.Context, channel string, tok model.AccessToken) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO tokens(channel, access_token, refresh_token, code, expires_in) VALUES(?,?,?,?,?)
	ON CONFLICT(channel) DO UPDATE SET access_token=excluded.access_token, refresh_token=excluded.refresh_token, code=excluded.code, expires_in=excluded.expires_in`,
		channel, tok.AccessToken, tok.RefreshToken, tok.Code, tok.ExpiresIn)
	return err
}

// LoadToken returns ErrTokenNotFound when channel was never authorized.
func (d *DB) LoadToken(ctx context.Context, channel string) (model.AccessToken, error) {
	var tok model.AccessToken
	var refresh, code sql.NullString
	row := d.sql.QueryRowContext(ctx, `SELECT access_token, refresh_token, code, expires_in FROM tokens WHERE channel=?`, channel)
	if err := row.Scan(&tok.AccessToken, &refresh, &code, &tok.ExpiresIn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tok, ErrTokenNotFound
		}
		return tok, err
	}
	tok.RefreshToken = refresh.String
	tok.Code = code.String
	return tok, nil
}

// PutMessages upserts messages keyed by platform and status id.
func (d *DB) PutMessages(ctx context.Context, msgs []model.Message) (int, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO messages(platform, status_id, source_user_id, channel, userid, username, ts, text, comments_count, payload)
	VALUES(?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(platform, status_id) DO UPDATE SET text=excluded.text, comments_count=excluded.comments_count, payload=excluded.payload`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, m := range msgs {
		payload, err := json.Marshal(m)
		if err != nil {
			return 0, fmt.Errorf("encode message %s: %w", m.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, m.ID.Platform, m.ID.StatusID, m.ID.SourceUserID, m.Channel,
			m.UserID, m.Username, m.Time.Unix(), m.Text, m.CommentsCount, string(payload)); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(msgs), nil
}

// LoadMessages returns the newest stored messages of channel, newest first.
func (d *DB) LoadMessages(ctx context.Context, channel string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT payload FROM messages WHERE channel=? ORDER BY ts DESC, status_id DESC LIMIT ?`, channel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Message
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var m model.Message
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, fmt.Errorf("decode stored message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PutAction records a mutation we performed.
func (d *DB) PutAction(ctx context.Context, ts time.Time, typ string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO actions(ts, type) VALUES(?,?)`, ts.Unix(), typ)
	return err
}

// CountActionsWithin counts actions of typ in [start, end). An empty typ
// counts every action.
func (d *DB) CountActionsWithin(ctx context.Context, start, end time.Time, typ string) (int, error) {
	var row *sql.Row
	if typ == "" {
		row = d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM actions WHERE ts>=? AND ts<?`, start.Unix(), end.Unix())
	} else {
		row = d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM actions WHERE ts>=? AND ts<? AND type=?`, start.Unix(), end.Unix(), typ)
	}
	var n int
	err := row.Scan(&n)
	return n, err
}

func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO cursors(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// LoadCursor returns "" with no error for an unknown key.
func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}
