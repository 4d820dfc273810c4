package store

import (
	"context"
	"fmt"

	"github.com/perbu/dockhand/pkg/dockhand"
)

type chunkRow struct {
	ID            string `db:"id"`
	Text          string `db:"text"`
	DocTitle      string `db:"doc_title"`
	SourceLocator string `db:"source_locator"`
	Path          string `db:"path"`
	Module        string `db:"module"`
	Embedding     []byte `db:"embedding"`
}

// ReplaceChunks stores chunks in a single transaction. Every document that
// contributes a chunk is replaced as a whole: its previously stored chunks
// are deleted first, so sections removed from a document stop being
// retrievable.
func (s *Store) ReplaceChunks(ctx context.Context, chunks []dockhand.Chunk) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	seen := make(map[string]bool)
	for _, c := range chunks {
		if c.Path == "" || seen[c.Path] {
			continue
		}
		seen[c.Path] = true
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE path = ?`, c.Path); err != nil {
			return fmt.Errorf("clearing chunks of %s: %w", c.Path, err)
		}
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO chunks (id, text, doc_title, source_locator, path, module, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET text=excluded.text, doc_title=excluded.doc_title,
			source_locator=excluded.source_locator, path=excluded.path, module=excluded.module,
			embedding=excluded.embedding`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Text, c.DocTitle, c.SourceLocator, c.Path, c.Module, encodeVector(c.Embedding)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// CountChunks returns the number of stored chunks
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM chunks`); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// NearestChunks returns the k chunks most similar to vec, optionally
// restricted to module. Results are ordered by descending similarity.
// Chunks are read on every call so documents ingested by another process
// are visible immediately.
func (s *Store) NearestChunks(ctx context.Context, vec []float32, k int, module string) ([]dockhand.ScoredChunk, error) {
	chunks, err := s.loadChunks(ctx, module)
	if err != nil {
		return nil, err
	}
	return dockhand.Search(chunks, vec, k), nil
}

func (s *Store) loadChunks(ctx context.Context, module string) ([]dockhand.Chunk, error) {
	query := `SELECT id, text, doc_title, source_locator, path, module, embedding FROM chunks WHERE embedding IS NOT NULL`
	var args []any
	if module != "" {
		query += ` AND module = ?`
		args = append(args, module)
	}
	query += ` ORDER BY id`

	var rows []chunkRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}

	chunks := make([]dockhand.Chunk, 0, len(rows))
	for _, r := range rows {
		vec, err := decodeVector(r.Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", r.ID, err)
		}
		chunks = append(chunks, dockhand.Chunk{
			ID:            r.ID,
			Text:          r.Text,
			DocTitle:      r.DocTitle,
			SourceLocator: r.SourceLocator,
			Path:          r.Path,
			Module:        r.Module,
			Embedding:     vec,
		})
	}
	return chunks, nil
}
