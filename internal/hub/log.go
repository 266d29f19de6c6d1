package hub

import (
	"context"
	"log/slog"

	"go.klb.dev/clipkeep/internal/model"
)

// LogRecord logs a history record at INFO (id, kind, source) and DEBUG
// (preview up to 120 chars).
func LogRecord(event string, rec *model.Record) {
	slog.Info(event, "id", rec.ID, "kind", rec.Kind(), "source_app", rec.SourceApp, "favorite", rec.Favorite)

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	preview := []rune(rec.PreviewText)
	if len(preview) > 120 {
		preview = append(preview[:120], '…')
	}
	slog.Debug("history record", "id", rec.ID, "hash", rec.Hash, "preview", string(preview))
}
