package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/rs/zerolog/log"
)

// PGVector is a collection stored in a Postgres table with a pgvector column.
type PGVector struct {
	conn  *pgx.Conn
	table string
}

// OpenPGVector connects, enables the vector extension and gets or creates
// the collection table.
func OpenPGVector(ctx context.Context, databaseURL string, collection string, dimensions int) (*PGVector, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("database url is required for the pgvector backend")
	}
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	s, err := NewPGVector(ctx, conn, collection, dimensions)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

// NewPGVector prepares the collection on an existing connection. The store
// takes ownership of conn.
func NewPGVector(ctx context.Context, conn *pgx.Conn, collection string, dimensions int) (*PGVector, error) {
	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return nil, fmt.Errorf("create vector extension: %w", err)
	}
	if err := pgxvector.RegisterTypes(ctx, conn); err != nil {
		return nil, fmt.Errorf("register vector types: %w", err)
	}
	s := &PGVector{conn: conn, table: pgx.Identifier{collection}.Sanitize()}
	if err := s.ensureTable(ctx, collection, dimensions); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PGVector) ensureTable(ctx context.Context, collection string, dimensions int) error {
	var exists bool
	err := s.conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)",
		collection).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check collection table: %w", err)
	}
	if exists {
		log.Info().Str("collection", collection).Msg("collection found; updating existing collection")
		return nil
	}
	vecType := "vector"
	if dimensions > 0 {
		vecType = fmt.Sprintf("vector(%d)", dimensions)
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding %s NOT NULL
		)`, s.table, vecType)
	if _, err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create collection table: %w", err)
	}
	log.Info().Str("collection", collection).Msg("collection not found; created a new collection")
	return nil
}

func (s *PGVector) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.conn.QueryRow(ctx, fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", s.table), id).Scan(&exists)
	return exists, err
}

func (s *PGVector) Add(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New("record id is required")
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.conn.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`, s.table),
		rec.ID, rec.Text(), meta, pgvector.NewVector(rec.Embedding))
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *PGVector) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := s.conn.Query(ctx,
		fmt.Sprintf("SELECT id, metadata, embedding, embedding <=> $1 AS distance FROM %s ORDER BY distance, id LIMIT $2", s.table),
		pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var (
			m    Match
			meta []byte
			vec  pgvector.Vector
		)
		if err := rows.Scan(&m.ID, &meta, &vec, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal(meta, &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		m.Embedding = vec.Slice()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PGVector) Count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", s.table)).Scan(&n)
	return n, err
}

func (s *PGVector) Close() error {
	return s.conn.Close(context.Background())
}
