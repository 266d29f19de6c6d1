package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.klb.dev/clipkeep/internal/metrics"
	"go.klb.dev/clipkeep/internal/model"
)

// enforceLimitAsync runs a retention pass in the background. The caller
// never sees its result; failures go to the log and metrics.
func (s *Store) enforceLimitAsync() {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), retentionTimeout)
		defer cancel()

		n, err := s.enforceLimit(ctx)
		if err != nil {
			slog.Error("retention pass failed", "err", err)
			metrics.RetentionErrors.Inc()
			return
		}
		if n > 0 {
			slog.Info("history limit enforced", "evicted", n)
		}
	}()
}

// enforceLimit evicts the oldest non-favorite records until the live count
// is within the history limit, or no evictable records remain. Favorites
// are never evicted, so the count may stay above the limit. Cached images
// of evicted records are removed after the transaction commits.
func (s *Store) enforceLimit(ctx context.Context) (int, error) {
	limit := s.settings.HistoryLimit()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM clipboard_history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	if count <= limit {
		return 0, nil
	}
	excess := count - limit

	rows, err := tx.QueryContext(ctx,
		`SELECT id, content_type, image_path FROM clipboard_history
		 WHERE is_favorite = 0
		 ORDER BY timestamp ASC, id ASC
		 LIMIT ?`, excess)
	if err != nil {
		return 0, fmt.Errorf("select eviction candidates: %w", err)
	}
	var (
		ids    []any
		images []string
	)
	for rows.Next() {
		var (
			id    int64
			kind  string
			image *string
		)
		if err := rows.Scan(&id, &kind, &image); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan eviction candidate: %w", err)
		}
		ids = append(ids, id)
		if model.Kind(kind) == model.KindImage && image != nil && *image != "" {
			images = append(images, *image)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if len(ids) == 0 {
		slog.Warn("history over limit but every record is a favorite", "count", count, "limit", limit)
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	res, err := tx.ExecContext(ctx, `DELETE FROM clipboard_history WHERE id IN (`+placeholders+`)`, ids...)
	if err != nil {
		return 0, fmt.Errorf("evict records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit eviction: %w", err)
	}
	n, _ := res.RowsAffected()
	metrics.Evictions.Add(float64(n))

	for _, p := range images {
		_ = removeImage(p)
	}
	return int(n), nil
}

// ClearProblem is a non-fatal failure during ClearAll.
type ClearProblem struct {
	Stage string `json:"stage"` // "snapshot" or "file_delete"
	Path  string `json:"path,omitempty"`
	Err   string `json:"error"`
}

// ClearResult reports what ClearAll did.
type ClearResult struct {
	Deleted  int64          `json:"deleted"`
	Problems []ClearProblem `json:"problems,omitempty"`
}

// ClearAll deletes every record, favorites included, then removes the
// cached images that were referenced. Only a failure of the row deletion
// itself is returned as an error; file removal failures are reported in
// ClearResult.Problems.
func (s *Store) ClearAll(ctx context.Context) (ClearResult, error) {
	var result ClearResult

	images, err := s.ImagePaths(ctx)
	if err != nil {
		slog.Error("clear: image snapshot failed, files may be orphaned", "err", err)
		result.Problems = append(result.Problems, ClearProblem{Stage: "snapshot", Err: err.Error()})
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM clipboard_history`)
	if err != nil {
		return result, fmt.Errorf("clear history: %w", err)
	}
	result.Deleted, _ = res.RowsAffected()

	for _, p := range images {
		if err := removeImage(p); err != nil {
			result.Problems = append(result.Problems, ClearProblem{Stage: "file_delete", Path: p, Err: err.Error()})
		}
	}

	slog.Info("history cleared", "deleted", result.Deleted, "problems", len(result.Problems))
	return result, nil
}
