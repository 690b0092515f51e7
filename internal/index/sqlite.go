package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type sqliteBackend struct{}

func (sqliteBackend) Name() string { return BackendSQLite }

func (sqliteBackend) FileName(collection string) string { return collection + ".sqlite" }

func (sqliteBackend) Write(path string, meta Meta, entries []Entry) (err error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close database: %w", cerr)
		}
	}()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS index_meta (
			collection TEXT PRIMARY KEY,
			meta TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			collection TEXT NOT NULL,
			position INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding TEXT NOT NULL,
			PRIMARY KEY (collection, position)
		)`,
	}
	for _, query := range queries {
		if _, err := conn.Exec(query); err != nil {
			return fmt.Errorf("failed to setup database tables: %w", err)
		}
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO entries (collection, position, text, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		embedding, err := json.Marshal(entry.Embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding %d: %w", entry.Position, err)
		}
		if _, err := stmt.Exec(meta.Collection, entry.Position, entry.Text, string(embedding)); err != nil {
			return fmt.Errorf("failed to insert entry %d: %w", entry.Position, err)
		}
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode meta: %w", err)
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO index_meta (collection, meta) VALUES (?, ?)`, meta.Collection, string(metaJSON)); err != nil {
		return fmt.Errorf("failed to insert meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (sqliteBackend) Read(path, collection string) (Meta, []Entry, error) {
	conn, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return Meta{}, nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	var (
		meta     Meta
		metaJSON string
	)
	err = conn.QueryRow(`SELECT meta FROM index_meta WHERE collection = ?`, collection).Scan(&metaJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meta{}, nil, fmt.Errorf("%w: %s", errMissingCollection, collection)
		}
		return Meta{}, nil, fmt.Errorf("failed to read meta: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return Meta{}, nil, fmt.Errorf("failed to decode meta: %w", err)
	}

	rows, err := conn.Query(`SELECT position, text, embedding FROM entries WHERE collection = ? ORDER BY position`, collection)
	if err != nil {
		return Meta{}, nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			embedding string
		)
		if err := rows.Scan(&entry.Position, &entry.Text, &embedding); err != nil {
			return Meta{}, nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(embedding), &entry.Embedding); err != nil {
			return Meta{}, nil, fmt.Errorf("failed to decode embedding %d: %w", entry.Position, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return Meta{}, nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return meta, entries, nil
}
