package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// LocalStore is a SQLite-backed Store for setups without a Qdrant service,
// such as studying offline on a laptop. Vectors are stored as JSON and
// scored with cosine similarity in process; fine for the few thousand
// chunks a personal document library produces.
type LocalStore struct {
	db        *sql.DB
	batchSize int
	mu        sync.Mutex
}

func NewLocalStore(path string, batchSize int) (*LocalStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("local_path is required for local vector store")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	dbPath := filepath.Join(path, "chunks.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	store := &LocalStore{db: db, batchSize: batchSize}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *LocalStore) EnsureCollection(ctx context.Context, dims int) error {
	return s.initSchema()
}

// StoreChunks mirrors the Qdrant gateway's contract: batched writes in
// document order with partial-success accounting. Each batch is one
// transaction, so a stored count only includes committed batches.
func (s *LocalStore) StoreChunks(ctx context.Context, fileID int64, chunks []EmbeddedChunk) (int, error) {
	stored := 0
	total := len(chunks)
	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}
		if err := s.storeBatch(ctx, fileID, chunks[start:end]); err != nil {
			return stored, &PartialStoreError{
				FileID: fileID,
				Stored: stored,
				Total:  total,
				Err:    fmt.Errorf("write batch starting at chunk %d: %w", start, err),
			}
		}
		stored += end - start
	}
	return stored, nil
}

func (s *LocalStore) storeBatch(ctx context.Context, fileID int64, chunks []EmbeddedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks
		(id, file_id, chunk_index, text, vector)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		vectorJSON, err := encodeVector(chunk.Vector)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), fileID, chunk.Index, chunk.Text, vectorJSON,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *LocalStore) Search(ctx context.Context, vector []float32, limit int, fileID *int64) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	queryVec, queryNorm := toFloat64Vector(vector)
	if len(queryVec) == 0 || queryNorm == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}

	query := `SELECT file_id, text, vector FROM chunks`
	var args []any
	if fileID != nil {
		query += ` WHERE file_id = ?`
		args = append(args, *fileID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var rowFileID int64
		var text, vectorJSON string
		if err := rows.Scan(&rowFileID, &text, &vectorJSON); err != nil {
			return nil, err
		}
		vec, err := decodeVector(vectorJSON)
		if err != nil {
			continue
		}
		hits = append(hits, SearchHit{
			Text:   text,
			Score:  cosineSimilarity(queryVec, vec, queryNorm),
			FileID: rowFileID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *LocalStore) DeleteDocument(ctx context.Context, fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID)
	return err
}

func (s *LocalStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

func (s *LocalStore) initSchema() error {
	pragmas := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
	}
	for _, stmt := range pragmas {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init vector db: %w", err)
		}
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			file_id INTEGER,
			chunk_index INTEGER,
			text TEXT,
			vector TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_file ON chunks (file_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init vector db: %w", err)
		}
	}
	return nil
}

func encodeVector(vec []float32) (string, error) {
	data := make([]float64, len(vec))
	for i, val := range vec {
		data[i] = float64(val)
	}
	out, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeVector(raw string) ([]float64, error) {
	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func toFloat64Vector(vec []float32) ([]float64, float64) {
	out := make([]float64, len(vec))
	var sum float64
	for i, val := range vec {
		v := float64(val)
		out[i] = v
		sum += v * v
	}
	return out, math.Sqrt(sum)
}

func cosineSimilarity(query []float64, vec []float64, queryNorm float64) float64 {
	if len(query) == 0 || len(vec) == 0 || queryNorm == 0 {
		return 0
	}
	if len(query) != len(vec) {
		return 0
	}
	var dot float64
	var norm float64
	for i, val := range vec {
		dot += query[i] * val
		norm += val * val
	}
	if norm == 0 {
		return 0
	}
	return dot / (queryNorm * math.Sqrt(norm))
}
