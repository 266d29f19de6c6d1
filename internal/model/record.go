// Package model defines the clipkeep history and template records.
//
// Record content is a tagged variant (Text, Image or Files). On the wire and
// in storage it is flattened into one nullable field per kind, so JSON
// payloads look like the clipboard_history row:
//
//	{"id":1,"content_type":"text","text_content":"hello",...}
package model

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Kind identifies the content type of a record.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

// ParseKind converts a string to a Kind. The empty string is accepted and
// returns "" (no filter).
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case "", KindText, KindImage, KindFile:
		return k, nil
	default:
		return "", fmt.Errorf("unknown content type %q", s)
	}
}

// Content is the payload of a record. Exactly one implementation is set.
type Content interface {
	Kind() Kind
	content()
}

// Text is captured clipboard text.
type Text struct {
	Text string
}

// Image is a captured image cached on disk as PNG. The record owns the file.
type Image struct {
	Path string
}

// Files is a list of file or folder paths. The paths are references only;
// clipkeep never deletes them.
type Files struct {
	Paths []string
}

func (Text) Kind() Kind  { return KindText }
func (Image) Kind() Kind { return KindImage }
func (Files) Kind() Kind { return KindFile }

func (Text) content()  {}
func (Image) content() {}
func (Files) content() {}

// Record is one clipboard_history row.
type Record struct {
	ID          int64
	Content     Content
	SourceApp   string
	Timestamp   int64 // epoch milliseconds
	Favorite    bool
	Hash        string
	PreviewText string
	SearchText  string
}

// Kind returns the content kind, or "" if the record has no content.
func (r *Record) Kind() Kind {
	if r.Content == nil {
		return ""
	}
	return r.Content.Kind()
}

// HasContent reports whether the populated payload field is non-empty.
func (r *Record) HasContent() bool {
	switch c := r.Content.(type) {
	case Text:
		return c.Text != ""
	case Image:
		return c.Path != ""
	case Files:
		return len(c.Paths) > 0
	default:
		return false
	}
}

// ImagePath returns the cached image path for image records, or "".
func (r *Record) ImagePath() string {
	if img, ok := r.Content.(Image); ok {
		return img.Path
	}
	return ""
}

// wireRecord is the flat JSON layout of a Record.
type wireRecord struct {
	ID          int64    `json:"id"`
	ContentType Kind     `json:"content_type"`
	TextContent *string  `json:"text_content"`
	ImagePath   *string  `json:"image_path"`
	FilePaths   []string `json:"file_paths"`
	SourceApp   string   `json:"source_app,omitempty"`
	Timestamp   int64    `json:"timestamp"`
	IsFavorite  bool     `json:"is_favorite"`
	Hash        string   `json:"hash"`
	PreviewText string   `json:"preview_text"`
	SearchText  string   `json:"search_text"`
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		ID:          r.ID,
		ContentType: r.Kind(),
		SourceApp:   r.SourceApp,
		Timestamp:   r.Timestamp,
		IsFavorite:  r.Favorite,
		Hash:        r.Hash,
		PreviewText: r.PreviewText,
		SearchText:  r.SearchText,
	}
	switch c := r.Content.(type) {
	case Text:
		w.TextContent = &c.Text
	case Image:
		w.ImagePath = &c.Path
	case Files:
		w.FilePaths = c.Paths
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(b []byte) error {
	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("record decode: %w", err)
	}
	c, err := NewContent(w.ContentType, w.TextContent, w.ImagePath, w.FilePaths)
	if err != nil {
		return err
	}
	*r = Record{
		ID:          w.ID,
		Content:     c,
		SourceApp:   w.SourceApp,
		Timestamp:   w.Timestamp,
		Favorite:    w.IsFavorite,
		Hash:        w.Hash,
		PreviewText: w.PreviewText,
		SearchText:  w.SearchText,
	}
	return nil
}

// NewContent rebuilds a Content from the flat nullable layout. The field
// matching kind must be set.
func NewContent(kind Kind, text, image *string, files []string) (Content, error) {
	switch kind {
	case KindText:
		if text == nil {
			return nil, fmt.Errorf("text record without text_content")
		}
		return Text{Text: *text}, nil
	case KindImage:
		if image == nil {
			return nil, fmt.Errorf("image record without image_path")
		}
		return Image{Path: *image}, nil
	case KindFile:
		return Files{Paths: files}, nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown content type %q", kind)
	}
}

const previewRunes = 100

// Derive fills PreviewText and SearchText from the record content.
func (r *Record) Derive() {
	switch c := r.Content.(type) {
	case Text:
		r.PreviewText = truncateRunes(c.Text, previewRunes)
		r.SearchText = c.Text
	case Image:
		name := filepath.Base(c.Path)
		r.PreviewText = name
		r.SearchText = name
	case Files:
		names := make([]string, len(c.Paths))
		for i, p := range c.Paths {
			names[i] = filepath.Base(p)
		}
		if len(names) == 1 {
			r.PreviewText = names[0]
		} else {
			r.PreviewText = fmt.Sprintf("%d files/folders", len(names))
		}
		r.SearchText = strings.Join(names, " ")
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
