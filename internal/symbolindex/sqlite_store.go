package symbolindex

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO

	"github.com/Aman-CERP/polydocs-mcp/internal/cachestore"
	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

// SQLiteStore persists symbol records to an FTS5-backed SQLite database so
// the symbol index survives process restarts instead of being rebuilt from
// a fresh docs.rs scrape on every run.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// NewSQLiteStore opens (or creates) the symbol store at path. An empty path
// opens an in-memory database, used by tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, docerrors.New(docerrors.ErrCodeFilePermission, "failed to create symbol index directory", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, docerrors.New(docerrors.ErrCodeFileCorrupt, "failed to open symbol index database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, docerrors.New(docerrors.ErrCodeFileCorrupt, "failed to configure symbol index database", err)
		}
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS symbols (
		package_key  TEXT NOT NULL,
		name         TEXT NOT NULL,
		path         TEXT NOT NULL,
		module_path  TEXT NOT NULL,
		kind         TEXT NOT NULL,
		doc          TEXT,
		parent_name  TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_symbols_package ON symbols(package_key);

	CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
		package_key UNINDEXED,
		rowid_ref UNINDEXED,
		content,
		tokenize='unicode61'
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return docerrors.New(docerrors.ErrCodeIndexFailed, "failed to initialize symbol index schema", err)
	}
	return nil
}

// Put replaces all stored symbols for a package with the given records.
func (s *SQLiteStore) Put(ctx context.Context, pkg docmodel.PackageRef, records []docmodel.SymbolRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docerrors.New(docerrors.ErrCodeInternal, "symbol index store is closed", nil)
	}

	key := cachestore.PackageKey(pkg)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return docerrors.New(docerrors.ErrCodeInternal, "failed to begin symbol index transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE package_key = ?`, key); err != nil {
		return docerrors.New(docerrors.ErrCodeIndexFailed, "failed to clear existing symbols", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols_fts WHERE package_key = ?`, key); err != nil {
		return docerrors.New(docerrors.ErrCodeIndexFailed, "failed to clear existing symbol index", err)
	}

	insertSymbol, err := tx.PrepareContext(ctx,
		`INSERT INTO symbols(package_key, name, path, module_path, kind, doc, parent_name) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return docerrors.New(docerrors.ErrCodeInternal, "failed to prepare symbol insert", err)
	}
	defer insertSymbol.Close()

	insertFTS, err := tx.PrepareContext(ctx,
		`INSERT INTO symbols_fts(package_key, rowid_ref, content) VALUES (?, ?, ?)`)
	if err != nil {
		return docerrors.New(docerrors.ErrCodeInternal, "failed to prepare symbol fts insert", err)
	}
	defer insertFTS.Close()

	for i, rec := range records {
		res, err := insertSymbol.ExecContext(ctx, key, rec.Name, rec.Path, rec.ModulePath, string(rec.Kind), rec.Doc, rec.ParentName)
		if err != nil {
			return docerrors.New(docerrors.ErrCodeIndexFailed, fmt.Sprintf("failed to insert symbol %q", rec.Path), err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return docerrors.New(docerrors.ErrCodeIndexFailed, "failed to read inserted symbol rowid", err)
		}
		content := strings.Join([]string{rec.Name, rec.Path, rec.Doc}, " ")
		if _, err := insertFTS.ExecContext(ctx, key, rowID, content); err != nil {
			return docerrors.New(docerrors.ErrCodeIndexFailed, fmt.Sprintf("failed to index symbol %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return docerrors.New(docerrors.ErrCodeIndexFailed, "failed to commit symbol index update", err)
	}
	return nil
}

// Load reconstructs a package's full symbol record set from disk, used to
// rebuild an in-memory Index without re-fetching the search index.
func (s *SQLiteStore) Load(ctx context.Context, pkg docmodel.PackageRef) ([]docmodel.SymbolRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docerrors.New(docerrors.ErrCodeInternal, "symbol index store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, path, module_path, kind, doc, parent_name FROM symbols WHERE package_key = ?`,
		cachestore.PackageKey(pkg))
	if err != nil {
		return nil, docerrors.New(docerrors.ErrCodeSearchFailed, "failed to load symbols", err)
	}
	defer rows.Close()

	var records []docmodel.SymbolRecord
	for rows.Next() {
		var rec docmodel.SymbolRecord
		var kind string
		var doc, parent sql.NullString
		if err := rows.Scan(&rec.Name, &rec.Path, &rec.ModulePath, &kind, &doc, &parent); err != nil {
			return nil, docerrors.New(docerrors.ErrCodeSearchFailed, "failed to scan symbol row", err)
		}
		rec.Kind = docmodel.ItemKind(kind)
		rec.Doc = doc.String
		rec.ParentName = parent.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Search runs an FTS5 MATCH query scoped to a package, ranked by bm25.
func (s *SQLiteStore) Search(ctx context.Context, pkg docmodel.PackageRef, query string, limit int) ([]docmodel.SymbolMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docerrors.New(docerrors.ErrCodeInternal, "symbol index store is closed", nil)
	}
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}

	key := cachestore.PackageKey(pkg)
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.path, s.module_path, s.kind, s.doc, s.parent_name, bm25(symbols_fts) AS score
		FROM symbols_fts
		JOIN symbols AS s ON s.rowid = symbols_fts.rowid_ref
		WHERE symbols_fts.package_key = ? AND symbols_fts MATCH ?
		ORDER BY score
		LIMIT ?`, key, query, limit)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return nil, nil
		}
		return nil, docerrors.New(docerrors.ErrCodeSearchFailed, "symbol search failed", err)
	}
	defer rows.Close()

	var matches []docmodel.SymbolMatch
	for rows.Next() {
		var rec docmodel.SymbolRecord
		var kind string
		var doc, parent sql.NullString
		var score float64
		if err := rows.Scan(&rec.Name, &rec.Path, &rec.ModulePath, &kind, &doc, &parent, &score); err != nil {
			return nil, docerrors.New(docerrors.ErrCodeSearchFailed, "failed to scan symbol search result", err)
		}
		rec.Kind = docmodel.ItemKind(kind)
		rec.Doc = doc.String
		rec.ParentName = parent.String
		// FTS5's bm25() returns negative values where lower is a better
		// match; negate so higher scores mean better matches.
		matches = append(matches, docmodel.SymbolMatch{SymbolRecord: rec, Score: -score})
	}
	return matches, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
