// Package repostore persists repository metadata, search contexts, and
// permission grants in SQLite. The search pipeline resolves file matches
// against it and expands context: filters through it.
package repostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	serrors "github.com/sourcebot-dev/sourcebot-sub003/internal/errors"
)

// ErrNotFound is returned when a repository or search context does not
// exist. Callers skip file matches whose repository resolves to this.
var ErrNotFound = errors.New("not found")

// Repo is the indexed metadata of one repository.
type Repo struct {
	ID           uint32
	Name         string
	DisplayName  string
	CodeHostType string
	WebURL       string
	Private      bool
	Archived     bool
	Fork         bool
	IndexedAt    time.Time
}

// cacheSize bounds the read-through metadata cache. Repo rows are small;
// this comfortably covers the working set of a large instance.
const cacheSize = 4096

// Store provides read access to repository metadata backed by SQLite.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool

	// byID and byName cache resolved rows. Negative results are not
	// cached so newly indexed repositories appear immediately.
	byID   *lru.Cache[uint32, *Repo]
	byName *lru.Cache[string, *Repo]

	permissionSyncEnabled bool
}

// Options configure the store.
type Options struct {
	// Path is the database file. Empty means an in-memory database.
	Path string

	// PermissionSyncEnabled restricts search results to repositories the
	// requesting user holds a grant for. When false every repository is
	// visible to everyone.
	PermissionSyncEnabled bool
}

// Open opens (and if necessary creates) the repository store.
func Open(opts Options) (*Store, error) {
	dsn := ":memory:"
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = opts.Path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to prevent lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	byID, err := lru.New[uint32, *Repo](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	byName, err := lru.New[string, *Repo](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:                    db,
		byID:                  byID,
		byName:                byName,
		permissionSyncEnabled: opts.PermissionSyncEnabled,
	}, nil
}

func migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS repos (
			id             INTEGER PRIMARY KEY,
			name           TEXT NOT NULL UNIQUE,
			display_name   TEXT NOT NULL DEFAULT '',
			code_host_type TEXT NOT NULL DEFAULT '',
			web_url        TEXT NOT NULL DEFAULT '',
			private        INTEGER NOT NULL DEFAULT 0,
			archived       INTEGER NOT NULL DEFAULT 0,
			fork           INTEGER NOT NULL DEFAULT 0,
			indexed_at     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS search_contexts (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS search_context_repos (
			context_id INTEGER NOT NULL REFERENCES search_contexts(id) ON DELETE CASCADE,
			repo_name  TEXT NOT NULL,
			PRIMARY KEY (context_id, repo_name)
		)`,
		`CREATE TABLE IF NOT EXISTS repo_permissions (
			repo_id INTEGER NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			PRIMARY KEY (repo_id, user_id)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close releases the database. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

const repoColumns = "id, name, display_name, code_host_type, web_url, private, archived, fork, indexed_at"

func scanRepo(row *sql.Row) (*Repo, error) {
	var r Repo
	var indexedAt int64
	err := row.Scan(&r.ID, &r.Name, &r.DisplayName, &r.CodeHostType, &r.WebURL,
		&r.Private, &r.Archived, &r.Fork, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, serrors.New(serrors.ErrCodeRepoLookup, "failed to load repository", err)
	}
	if indexedAt > 0 {
		r.IndexedAt = time.Unix(indexedAt, 0).UTC()
	}
	return &r, nil
}

// GetRepoByID resolves a repository by its numeric identifier.
func (s *Store) GetRepoByID(ctx context.Context, id uint32) (*Repo, error) {
	if repo, ok := s.byID.Get(id); ok {
		return repo, nil
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+repoColumns+" FROM repos WHERE id = ?", id)
	repo, err := scanRepo(row)
	if err != nil {
		return nil, err
	}

	s.byID.Add(repo.ID, repo)
	s.byName.Add(repo.Name, repo)
	return repo, nil
}

// GetRepoByName resolves a repository by its fully qualified name.
func (s *Store) GetRepoByName(ctx context.Context, name string) (*Repo, error) {
	if repo, ok := s.byName.Get(name); ok {
		return repo, nil
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+repoColumns+" FROM repos WHERE name = ?", name)
	repo, err := scanRepo(row)
	if err != nil {
		return nil, err
	}

	s.byID.Add(repo.ID, repo)
	s.byName.Add(repo.Name, repo)
	return repo, nil
}

// UpsertRepo inserts or updates a repository row and invalidates any
// cached copy.
func (s *Store) UpsertRepo(ctx context.Context, repo *Repo) error {
	var indexedAt int64
	if !repo.IndexedAt.IsZero() {
		indexedAt = repo.IndexedAt.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repos (id, name, display_name, code_host_type, web_url, private, archived, fork, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			display_name = excluded.display_name,
			code_host_type = excluded.code_host_type,
			web_url = excluded.web_url,
			private = excluded.private,
			archived = excluded.archived,
			fork = excluded.fork,
			indexed_at = excluded.indexed_at`,
		repo.ID, repo.Name, repo.DisplayName, repo.CodeHostType, repo.WebURL,
		repo.Private, repo.Archived, repo.Fork, indexedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert repository %q: %w", repo.Name, err)
	}

	s.byID.Remove(repo.ID)
	s.byName.Remove(repo.Name)
	return nil
}

// ExpandSearchContext returns the repository names a named search
// context contains. Unknown names yield a user-correctable error.
func (s *Store) ExpandSearchContext(ctx context.Context, name string) ([]string, error) {
	var contextID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM search_contexts WHERE name = ?", name).Scan(&contextID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, serrors.UnknownContextError(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up search context %q: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT repo_name FROM search_context_repos WHERE context_id = ? ORDER BY repo_name", contextID)
	if err != nil {
		return nil, fmt.Errorf("failed to expand search context %q: %w", name, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var repoName string
		if err := rows.Scan(&repoName); err != nil {
			return nil, err
		}
		names = append(names, repoName)
	}
	return names, rows.Err()
}

// PutSearchContext creates or replaces a named search context.
func (s *Store) PutSearchContext(ctx context.Context, name string, repoNames []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var contextID int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO search_contexts (name) VALUES (?) ON CONFLICT(name) DO UPDATE SET name = excluded.name RETURNING id",
		name).Scan(&contextID)
	if err != nil {
		return fmt.Errorf("failed to save search context %q: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM search_context_repos WHERE context_id = ?", contextID); err != nil {
		return err
	}
	for _, repoName := range repoNames {
		repoName = strings.TrimSpace(repoName)
		if repoName == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO search_context_repos (context_id, repo_name) VALUES (?, ?)",
			contextID, repoName); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RepoNamesIndexedBetween returns the names of repositories whose last
// index run falls inside the given bounds. Nil bounds are open.
func (s *Store) RepoNamesIndexedBetween(ctx context.Context, since, until *time.Time) ([]string, error) {
	query := "SELECT name FROM repos WHERE 1=1"
	args := []any{}
	if since != nil {
		query += " AND indexed_at >= ?"
		args = append(args, since.Unix())
	}
	if until != nil {
		query += " AND indexed_at <= ?"
		args = append(args, until.Unix())
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, serrors.New(serrors.ErrCodeRepoLookup, "failed to filter repositories by index time", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GrantRepoPermission records that a user may see a repository.
func (s *Store) GrantRepoPermission(ctx context.Context, repoID uint32, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO repo_permissions (repo_id, user_id) VALUES (?, ?)",
		repoID, userID)
	return err
}

// AccessibleRepoNames returns the repositories a user may search, or nil
// when access is unrestricted (permission syncing disabled). An empty
// non-nil slice means the user can see nothing.
func (s *Store) AccessibleRepoNames(ctx context.Context, userID string) ([]string, error) {
	if !s.permissionSyncEnabled {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.name FROM repos r
		JOIN repo_permissions p ON p.repo_id = r.id
		WHERE p.user_id = ?
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, serrors.New(serrors.ErrCodeRepoLookup, "failed to load accessible repositories", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
