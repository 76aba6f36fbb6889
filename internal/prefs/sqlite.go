package prefs

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLite persiste les préférences dans la table preferences(namespace, key, value).
// Les valeurs sont encodées en JSON ; une clé absente prend la valeur par défaut.
type SQLite struct {
	hub

	db       *sql.DB
	path     string
	defaults Preferences

	// sérialise Set et Watch : lecture + écriture + notification
	mu sync.Mutex
	// dernier état notifié ; nil tant que Watch n'a pas démarré
	seen *Preferences
}

// OpenSQLite ouvre (ou crée) la base à path.
func OpenSQLite(path string, defaults Preferences) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure preferences directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db, path: path, defaults: defaults}, nil
}

func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Get(ctx context.Context) (Preferences, error) {
	return s.load(ctx, s.db)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLite) load(ctx context.Context, q queryer) (Preferences, error) {
	p := s.defaults
	rows, err := q.QueryContext(ctx, "SELECT key, value FROM preferences WHERE namespace = ?", Namespace)
	if err != nil {
		return p, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return p, fmt.Errorf("scan preference: %w", err)
		}
		if err := assign(&p, key, value); err != nil {
			// valeur corrompue : on garde le défaut
			continue
		}
	}
	if err := rows.Err(); err != nil {
		return p, fmt.Errorf("iterate preferences: %w", err)
	}
	return p, nil
}

func assign(p *Preferences, key, value string) error {
	var dst any
	switch key {
	case KeyEnabled:
		dst = &p.Enabled
	case KeyLanguage:
		dst = &p.Language
	case KeyHideButton:
		dst = &p.HideButton
	case KeyForceRefresh:
		dst = &p.ForceRefresh
	default:
		return nil
	}
	return json.Unmarshal([]byte(value), dst)
}

func (s *SQLite) Set(ctx context.Context, u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.Empty() {
		return nil
	}

	s.mu.Lock()
	changes, cur, err := s.apply(ctx, u)
	if err == nil && s.seen != nil {
		s.seen = &cur
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(changes)
	return nil
}

// Watch relit la base toutes les interval et notifie les abonnés des
// changements écrits par un autre processus (captionsync prefs set).
// Bloque jusqu'à l'annulation de ctx.
func (s *SQLite) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("watch preferences: invalid interval %s", interval)
	}
	s.mu.Lock()
	cur, err := s.load(ctx, s.db)
	if err == nil {
		s.seen = &cur
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("watch preferences: %w", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.notify(s.reload(ctx))
		}
	}
}

func (s *SQLite) reload(ctx context.Context) Changes {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.load(ctx, s.db)
	if err != nil {
		// base momentanément verrouillée : on réessaie au tick suivant
		return nil
	}
	changes := Diff(*s.seen, cur)
	s.seen = &cur
	return changes
}

func (s *SQLite) apply(ctx context.Context, u Update) (Changes, Preferences, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, Preferences{}, fmt.Errorf("begin preferences tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	old, err := s.load(ctx, tx)
	if err != nil {
		return nil, Preferences{}, err
	}
	cur := u.Apply(old)
	changes := Diff(old, cur)

	for key, ch := range changes {
		value, err := json.Marshal(ch.New)
		if err != nil {
			return nil, Preferences{}, fmt.Errorf("encode %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO preferences (namespace, key, value) VALUES (?, ?, ?)
			 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value,
			 updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
			Namespace, key, string(value),
		); err != nil {
			return nil, Preferences{}, fmt.Errorf("store %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, Preferences{}, fmt.Errorf("commit preferences: %w", err)
	}
	return changes, cur, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
