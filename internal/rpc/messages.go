package rpc

import (
	"go.klb.dev/clipkeep/internal/hub"
	"go.klb.dev/clipkeep/internal/model"
	"go.klb.dev/clipkeep/internal/settings"
	"go.klb.dev/clipkeep/internal/shortcut"
	"go.klb.dev/clipkeep/internal/store"
)

type Empty struct{}

type ListHistoryRequest struct {
	store.Query
}

type ListHistoryResponse struct {
	Records []*model.Record `json:"records"`
	Total   int             `json:"total"`
}

type RecordRequest struct {
	ID int64 `json:"id"`
}

type RecordResponse struct {
	Record *model.Record `json:"record"`
}

// ImageResponse carries the cached PNG of an image record.
type ImageResponse struct {
	PNG []byte `json:"png"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

type SetFavoriteRequest struct {
	ID       int64 `json:"id"`
	Favorite bool  `json:"favorite"`
}

type ClearResponse struct {
	store.ClearResult
}

// PasteRequest puts a stored record back on the clipboard. CopyOnly skips
// the paste keystroke.
type PasteRequest struct {
	ID       int64 `json:"id"`
	CopyOnly bool  `json:"copy_only,omitempty"`
}

// CopyRequest writes new content to the clipboard. Exactly one of Text and
// PNG is used; PNG wins when both are set.
type CopyRequest struct {
	Text string `json:"text,omitempty"`
	PNG  []byte `json:"png,omitempty"`
}

type StatusResponse struct {
	Version     string   `json:"version"`
	Backend     string   `json:"backend"`
	Monitoring  bool     `json:"monitoring"`
	Records     int      `json:"records"`
	Shortcuts   []string `json:"shortcuts"`
	Subscribers int      `json:"subscribers"`
	StartedAt   int64    `json:"started_at"`
}

type SettingsResponse struct {
	settings.Values
}

type UpdateSettingsRequest struct {
	settings.Patch
}

type ListTemplatesResponse struct {
	Templates []*model.Template `json:"templates"`
}

type TemplateRequest struct {
	ID string `json:"id"`
}

type TemplateResponse struct {
	Template *model.Template `json:"template"`
}

type CreateTemplateRequest struct {
	Template model.Template `json:"template"`
}

type UpdateTemplateRequest struct {
	ID    string              `json:"id"`
	Patch model.TemplatePatch `json:"patch"`
}

type DeleteTemplateResponse struct {
	Deleted bool `json:"deleted"`
}

type ResolveResponse struct {
	Text string `json:"text"`
}

type ShortcutsResponse struct {
	shortcut.Summary
}

// WatchRequest opens an event stream. An empty Types receives everything.
type WatchRequest struct {
	Types []hub.EventType `json:"types,omitempty"`
}
