// Package snippet expands placeholder tokens in template snippets.
//
// Recognised placeholders (names are case-insensitive):
//
//	{now}        date and time, default pattern yyyy-MM-dd HH:mm:ss
//	{isodate}    date, default pattern yyyy-MM-dd
//	{isotime}    time, default pattern HH:mm:ss
//	{timestamp}  epoch milliseconds
//	{clipboard}  current clipboard text
//
// The date family takes an optional pattern, e.g. {now:dd/MM/yyyy}. Unknown
// names are left in the output as written.
package snippet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.klb.dev/clipkeep/internal/model"
)

// ErrNilTemplate is returned by Resolve for a nil template.
var ErrNilTemplate = errors.New("snippet: nil template")

// ClipboardReader supplies the live clipboard text for {clipboard}.
type ClipboardReader interface {
	Text() ([]byte, error)
}

var defaultPatterns = map[string]*Pattern{
	"now":     MustPattern("yyyy-MM-dd HH:mm:ss"),
	"isodate": MustPattern("yyyy-MM-dd"),
	"isotime": MustPattern("HH:mm:ss"),
}

// Resolver expands snippets.
type Resolver struct {
	clip ClipboardReader
	now  func() time.Time
}

// NewResolver returns a Resolver reading {clipboard} from clip. clip may
// be nil, in which case {clipboard} renders as an error marker.
func NewResolver(clip ClipboardReader) *Resolver {
	return &Resolver{clip: clip, now: time.Now}
}

// Resolve expands tmpl's snippet content.
func (r *Resolver) Resolve(ctx context.Context, tmpl *model.Template) (string, error) {
	if tmpl == nil {
		return "", ErrNilTemplate
	}
	return r.ResolveText(ctx, tmpl.SnippetContent)
}

// ResolveText expands s. Every placeholder sees the same instant. A failing
// placeholder renders as [Error: name]; the rest of s still resolves.
func (r *Resolver) ResolveText(ctx context.Context, s string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := r.now()

	var b strings.Builder
	for _, tok := range Lex(s) {
		if !tok.Placeholder {
			b.WriteString(tok.Raw)
			continue
		}
		out, err := r.expand(tok, now)
		if err != nil {
			slog.Error("placeholder failed", "placeholder", tok.Raw, "err", err)
			out = "[Error: " + tok.Name + "]"
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func (r *Resolver) expand(tok Token, now time.Time) (string, error) {
	name := strings.ToLower(tok.Name)
	switch name {
	case "now", "isodate", "isotime":
		pat := defaultPatterns[name]
		if tok.HasFormat {
			p, err := ParsePattern(tok.Format)
			if err != nil {
				slog.Warn("invalid date pattern, using default", "placeholder", tok.Raw, "err", err)
			} else {
				pat = p
			}
		}
		return pat.Format(now), nil
	case "timestamp":
		return strconv.FormatInt(now.UnixMilli(), 10), nil
	case "clipboard":
		if r.clip == nil {
			return "", errors.New("no clipboard available")
		}
		text, err := r.clip.Text()
		if err != nil {
			return "", fmt.Errorf("read clipboard: %w", err)
		}
		return string(text), nil
	}
	slog.Warn("unsupported placeholder", "placeholder", tok.Raw)
	return tok.Raw, nil
}
