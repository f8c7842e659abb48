package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Chunk is one embedded slice of an ingested document.
type Chunk struct {
	ID         string            `json:"id"`
	Document   string            `json:"document"`
	ChunkIndex int               `json:"chunk_index"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Vector     []float32         `json:"-"`
}

// Hit is one nearest-neighbour search result. Relevance is a similarity
// score in [0,1], derived from the cosine distance.
type Hit struct {
	Chunk
	Distance  float64 `json:"distance"`
	Relevance float64 `json:"relevance"`
}

// Stats summarizes the collection.
type Stats struct {
	TotalChunks    int `json:"total_chunks"`
	TotalDocuments int `json:"total_documents"`
}

// Store persists evidence chunks and their embeddings in Postgres with
// the pgvector extension. Metric selects the distance operator used for
// search; empty means cosine.
type Store struct {
	DB     *sql.DB
	Metric string
}

var vectorOps = map[string]string{
	"cosine":        "<=>",
	"l2":            "<->",
	"inner_product": "<#>",
}

func (s *Store) distanceOp() string {
	if op, ok := vectorOps[s.Metric]; ok {
		return op
	}
	return "<=>"
}

// NewWithDSN opens the store with an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn, metric string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db, Metric: metric}, nil
}

// AddChunks inserts chunks with their embeddings. Chunks without an ID get
// a generated one.
func (s *Store) AddChunks(ctx context.Context, chunks []Chunk) error {
	for i := range chunks {
		c := &chunks[i]
		if c.Document == "" {
			return fmt.Errorf("chunk %d: document required", i)
		}
		if len(c.Vector) == 0 {
			return fmt.Errorf("chunk %d: embedding vector required", i)
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		vecLiteral, err := encodeVectorLiteral(c.Vector)
		if err != nil {
			return err
		}
		meta := c.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		metaBytes, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		_, err = s.DB.ExecContext(ctx, `
INSERT INTO evidence_chunks (id, document, chunk_index, content, metadata, embedding, created_at)
VALUES ($1,$2,$3,$4,$5,$6::vector,NOW())
ON CONFLICT (id) DO UPDATE SET
  document = EXCLUDED.document,
  chunk_index = EXCLUDED.chunk_index,
  content = EXCLUDED.content,
  metadata = EXCLUDED.metadata,
  embedding = EXCLUDED.embedding;
`, c.ID, c.Document, c.ChunkIndex, c.Content, metaBytes, vecLiteral)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

// Search returns the topK chunks closest to the supplied vector.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector must not be empty")
	}
	if topK <= 0 {
		topK = 5
	}
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	op := s.distanceOp()
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
SELECT id, document, chunk_index, content, metadata, embedding %s $1::vector AS distance
FROM evidence_chunks
ORDER BY embedding %s $1::vector
LIMIT $2
`, op, op), vecLiteral, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h         Hit
			metaBytes []byte
		)
		if err := rows.Scan(&h.ID, &h.Document, &h.ChunkIndex, &h.Content, &metaBytes, &h.Distance); err != nil {
			return nil, err
		}
		if len(metaBytes) > 0 {
			_ = json.Unmarshal(metaBytes, &h.Metadata)
		}
		h.Relevance = 1 - h.Distance
		if h.Relevance < 0 {
			h.Relevance = 0
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Stats reports how many chunks and distinct documents are stored.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT document) FROM evidence_chunks`).
		Scan(&st.TotalChunks, &st.TotalDocuments)
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

// DeleteDocument removes all chunks of one document and reports how many
// were deleted.
func (s *Store) DeleteDocument(ctx context.Context, document string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM evidence_chunks WHERE document = $1`, document)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Documents lists the distinct stored document names with chunk counts.
func (s *Store) Documents(ctx context.Context) (map[string]int, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT document, COUNT(*) FROM evidence_chunks GROUP BY document ORDER BY document`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var doc string
		var n int
		if err := rows.Scan(&doc, &n); err != nil {
			return nil, err
		}
		out[doc] = n
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.DB.Close() }

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}

func decodeVectorLiteral(lit string) ([]float32, error) {
	lit = strings.TrimSpace(lit)
	if lit == "" {
		return nil, fmt.Errorf("empty vector literal")
	}
	lit = strings.TrimPrefix(lit, "[")
	lit = strings.TrimSuffix(lit, "]")
	parts := strings.Split(lit, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector value %q: %w", value, err)
		}
		vec = append(vec, float32(f))
	}
	return vec, nil
}
