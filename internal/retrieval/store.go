package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists indexed documents in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and creates if needed) the document database at path.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS documents (
		doc_id     TEXT PRIMARY KEY,
		path       TEXT NOT NULL,
		content    TEXT NOT NULL,
		indexed_at INTEGER NOT NULL
	);`)
	return err
}

// Put inserts or replaces docs in one transaction.
func (s *Store) Put(ctx context.Context, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (doc_id, path, content, indexed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			path = excluded.path,
			content = excluded.content,
			indexed_at = excluded.indexed_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.ID, d.Path, d.Content, d.IndexedAt.Unix()); err != nil {
			return fmt.Errorf("failed to store %s: %w", d.Path, err)
		}
	}
	return tx.Commit()
}

// All returns every stored document ordered by id.
func (s *Store) All(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc_id, path, content, indexed_at FROM documents ORDER BY doc_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			d  Document
			ts int64
		)
		if err := rows.Scan(&d.ID, &d.Path, &d.Content, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.IndexedAt = time.Unix(ts, 0).UTC()
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Clear deletes every document.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
