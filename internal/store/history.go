package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.klb.dev/clipkeep/internal/metrics"
	"go.klb.dev/clipkeep/internal/model"
)

const recordColumns = `id, content_type, text_content, image_path, file_paths, source_app,
	timestamp, is_favorite, hash, preview_text, search_text`

// DefaultPageSize is used by List when Query.Limit is zero.
const DefaultPageSize = 50

// Query filters and pages List results. Zero values mean "no filter".
type Query struct {
	Search        string     `json:"search,omitempty"`
	Kind          model.Kind `json:"kind,omitempty"`
	FavoritesOnly bool       `json:"favorites_only,omitempty"`
	Limit         int        `json:"limit,omitempty"`
	Offset        int        `json:"offset,omitempty"`
}

// Add stores a captured record and returns the stored row. It returns
// (nil, nil) when the record was not added because of a constraint
// violation.
//
// With deduplication on, a record whose hash already exists refreshes the
// existing row's timestamp, source app, preview and search text; content is
// left as first captured. With deduplication off every record is inserted
// and the retention limit is enforced in the background.
func (s *Store) Add(ctx context.Context, rec *model.Record) (*model.Record, error) {
	if s.settings.DeduplicateEnabled() && rec.Hash != "" {
		return s.upsert(ctx, rec)
	}

	id, err := insertRecord(ctx, s.db, rec)
	if err != nil {
		if isConstraint(err) {
			slog.Warn("record not added: constraint violation", "hash", rec.Hash, "err", err)
			metrics.StoreResults.WithLabelValues("skipped").Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}
	metrics.StoreResults.WithLabelValues("inserted").Inc()

	// The retention pass may evict this row before the caller sees it, so
	// the result comes from what was inserted, not from a read-back.
	out := *rec
	out.ID = id
	s.enforceLimitAsync()
	return &out, nil
}

func (s *Store) upsert(ctx context.Context, rec *model.Record) (*model.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var (
		id       int64
		existing sql.NullString
		updated  bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, image_path FROM clipboard_history WHERE hash = ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
		rec.Hash,
	).Scan(&id, &existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, err = insertRecord(ctx, tx, rec)
		if err != nil {
			if isConstraint(err) {
				slog.Warn("record not added: constraint violation", "hash", rec.Hash, "err", err)
				metrics.StoreResults.WithLabelValues("skipped").Inc()
				return nil, nil
			}
			return nil, fmt.Errorf("insert record: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("lookup hash: %w", err)
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE clipboard_history
			 SET timestamp = ?, source_app = ?, preview_text = ?, search_text = ?
			 WHERE id = ?`,
			rec.Timestamp, nullString(rec.SourceApp), rec.PreviewText, rec.SearchText, id,
		)
		if err != nil {
			return nil, fmt.Errorf("refresh record %d: %w", id, err)
		}
		updated = true
	}

	out, err := getRecord(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if updated {
		metrics.StoreResults.WithLabelValues("deduplicated").Inc()
		slog.Debug("duplicate capture refreshed existing record", "id", id)
		// the candidate's freshly cached copy is not referenced by any row
		if p := rec.ImagePath(); p != "" && p != existing.String {
			_ = removeImage(p)
		}
	} else {
		metrics.StoreResults.WithLabelValues("inserted").Inc()
	}
	return out, nil
}

func insertRecord(ctx context.Context, db execer, rec *model.Record) (int64, error) {
	text, image, files, err := contentColumns(rec.Content)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO clipboard_history
		 (content_type, text_content, image_path, file_paths, source_app, timestamp, is_favorite, hash, preview_text, search_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Kind()), text, image, files, nullString(rec.SourceApp), rec.Timestamp,
		boolInt(rec.Favorite), nullString(rec.Hash), rec.PreviewText, rec.SearchText,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// contentColumns flattens a content variant into the three nullable columns.
func contentColumns(c model.Content) (text, image, files sql.NullString, err error) {
	switch c := c.(type) {
	case model.Text:
		text = sql.NullString{String: c.Text, Valid: true}
	case model.Image:
		image = sql.NullString{String: c.Path, Valid: true}
	case model.Files:
		b, err := json.Marshal(c.Paths)
		if err != nil {
			return text, image, files, fmt.Errorf("encode file paths: %w", err)
		}
		files = sql.NullString{String: string(b), Valid: true}
	}
	return text, image, files, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*model.Record, error) {
	var (
		r                                model.Record
		kind                             string
		text, image, files, source, hash sql.NullString
		preview, search                  sql.NullString
		fav                              int
	)
	if err := row.Scan(&r.ID, &kind, &text, &image, &files, &source,
		&r.Timestamp, &fav, &hash, &preview, &search); err != nil {
		return nil, err
	}

	var paths []string
	if files.Valid && files.String != "" {
		if err := json.Unmarshal([]byte(files.String), &paths); err != nil {
			slog.Error("stored file paths unreadable", "id", r.ID, "err", err)
			paths = []string{}
		}
	}
	var textPtr, imagePtr *string
	if text.Valid {
		textPtr = &text.String
	}
	if image.Valid {
		imagePtr = &image.String
	}
	c, err := model.NewContent(model.Kind(kind), textPtr, imagePtr, paths)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", r.ID, err)
	}

	r.Content = c
	r.SourceApp = source.String
	r.Favorite = fav != 0
	r.Hash = hash.String
	r.PreviewText = preview.String
	r.SearchText = search.String
	return &r, nil
}

func getRecord(ctx context.Context, db execer, id int64) (*model.Record, error) {
	row := db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM clipboard_history WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get record %d: %w", id, err)
	}
	return r, nil
}

// Get returns the record with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*model.Record, error) {
	return getRecord(ctx, s.db, id)
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, q Query) ([]*model.Record, error) {
	var (
		where []string
		args  []any
	)
	if q.Search != "" {
		like := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		where = append(where, `(LOWER(preview_text) LIKE ? ESCAPE '\' OR LOWER(search_text) LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if q.Kind != "" {
		where = append(where, "content_type = ?")
		args = append(args, string(q.Kind))
	}
	if q.FavoritesOnly {
		where = append(where, "is_favorite = 1")
	}

	query := `SELECT ` + recordColumns + ` FROM clipboard_history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, max(q.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Count returns the number of live records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clipboard_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Delete removes a record and, for images, its cached file. It reports
// false if no record had that id.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	var (
		kind  string
		image sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content_type, image_path FROM clipboard_history WHERE id = ?`, id,
	).Scan(&kind, &image)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup record %d: %w", id, err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM clipboard_history WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete record %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if model.Kind(kind) == model.KindImage && image.String != "" {
		_ = removeImage(image.String)
	}
	slog.Info("record deleted", "id", id)
	return true, nil
}

// SetFavorite sets the favorite flag. It reports false if no record had
// that id.
func (s *Store) SetFavorite(ctx context.Context, id int64, fav bool) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clipboard_history SET is_favorite = ? WHERE id = ?`, boolInt(fav), id)
	if err != nil {
		return false, fmt.Errorf("set favorite %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ToggleFavorite flips the favorite flag and returns the updated record,
// or ErrNotFound.
func (s *Store) ToggleFavorite(ctx context.Context, id int64) (*model.Record, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clipboard_history SET is_favorite = 1 - is_favorite WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("toggle favorite %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return s.Get(ctx, id)
}

// ImageData returns the cached PNG of an image record. A record whose cache
// file has gone missing reports ErrNotFound.
func (s *Store) ImageData(ctx context.Context, id int64) ([]byte, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	img, ok := rec.Content.(model.Image)
	if !ok || img.Path == "" {
		return nil, fmt.Errorf("record %d: %w", id, ErrNotImage)
	}
	data, err := os.ReadFile(img.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("image of record %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read image of record %d: %w", id, err)
	}
	return data, nil
}

// ImagePaths returns every cached image path referenced by a record.
func (s *Store) ImagePaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT image_path FROM clipboard_history WHERE content_type = 'image' AND image_path IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list image paths: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
