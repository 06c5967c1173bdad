// Package instances mirrors the declared strategy-instance registry into a
// sqlite table, so operational tooling can inspect and flip instance status
// out-of-band.
package instances

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"stratos/internal/strategy"
)

const schema = `
CREATE TABLE IF NOT EXISTS strategy_instances (
	id            TEXT PRIMARY KEY,
	strategy_type TEXT NOT NULL,
	params_json   TEXT NOT NULL DEFAULT '{}',
	status        TEXT NOT NULL DEFAULT 'active',
	updated_at    TIMESTAMP NOT NULL
);`

// Store wraps the sqlite mirror.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("instance store: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("instance store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Sync upserts every declared instance and prunes rows whose id is no longer
// declared.
func (s *Store) Sync(ctx context.Context, insts []strategy.Instance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	ids := make([]any, 0, len(insts))
	for _, inst := range insts {
		params, err := json.Marshal(inst.Params)
		if err != nil {
			return fmt.Errorf("instance store: params of %q: %w", inst.ID, err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO strategy_instances
			(id, strategy_type, params_json, status, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				strategy_type = excluded.strategy_type,
				params_json   = excluded.params_json,
				status        = excluded.status,
				updated_at    = excluded.updated_at`,
			inst.ID, inst.Type, string(params), string(inst.Status), now)
		if err != nil {
			return err
		}
		ids = append(ids, inst.ID)
	}
	if len(ids) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM strategy_instances`); err != nil {
			return err
		}
	} else {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM strategy_instances WHERE id NOT IN (`+placeholders+`)`, ids...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetStatus updates one instance's status.
func (s *Store) SetStatus(ctx context.Context, id string, status strategy.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE strategy_instances SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("instance store: unknown instance %q", id)
	}
	return nil
}

// List returns the mirrored instances ordered by id.
func (s *Store) List(ctx context.Context) ([]strategy.Instance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy_type, params_json, status FROM strategy_instances ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []strategy.Instance
	for rows.Next() {
		var inst strategy.Instance
		var params string
		var status string
		if err := rows.Scan(&inst.ID, &inst.Type, &params, &status); err != nil {
			return nil, err
		}
		inst.Status = strategy.Status(status)
		if err := json.Unmarshal([]byte(params), &inst.Params); err != nil {
			return nil, fmt.Errorf("instance store: params of %q: %w", inst.ID, err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
