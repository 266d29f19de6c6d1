// Package rpc is the daemon's control API: a gRPC service registered by hand
// with a JSON codec, so no generated code is needed. The CLI reaches it
// over the IPC socket through Client.
package rpc

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/clipkeep/internal/history"
	"go.klb.dev/clipkeep/internal/hub"
	"go.klb.dev/clipkeep/internal/model"
	"go.klb.dev/clipkeep/internal/paste"
	"go.klb.dev/clipkeep/internal/settings"
	"go.klb.dev/clipkeep/internal/shortcut"
	"go.klb.dev/clipkeep/internal/snippet"
	"go.klb.dev/clipkeep/internal/store"
	"go.klb.dev/clipkeep/internal/templates"
)

// watchBuffer is the per-stream event backlog before events are dropped.
const watchBuffer = 64

// Monitor reports whether clipboard polling is active.
type Monitor interface {
	Running() bool
}

// Shortcuts is the hotkey side of *shortcut.Manager.
type Shortcuts interface {
	Bound() []string
	UpdateShortcuts(ctx context.Context) (shortcut.Summary, error)
}

// Deps wires the service to the rest of the daemon.
type Deps struct {
	Version   string
	Backend   string
	Store     *store.Store
	History   *history.Manager
	Templates *templates.Service
	Settings  *settings.Store
	Sink      *paste.Sink
	Hub       *hub.Hub
	Monitor   Monitor   // may be nil
	Shortcuts Shortcuts // may be nil
}

// Service implements clipkeep.v1.History.
type Service struct {
	d       Deps
	started time.Time
}

// New returns a Service.
func New(d Deps) *Service {
	return &Service{d: d, started: time.Now()}
}

// Register adds the service to s.
func Register(s *grpc.Server, svc *Service) {
	s.RegisterService(&serviceDesc, svc)
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var (
		tv *templates.ValidationError
		sv *settings.ValidationError
	)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, store.ErrNotImage), errors.Is(err, paste.ErrNothingToOpen):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &tv), errors.As(err, &sv),
		errors.Is(err, history.ErrInvalidRecord), errors.Is(err, snippet.ErrNilTemplate):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	slog.Error("rpc failed", "err", err)
	return status.Error(codes.Internal, err.Error())
}

func (s *Service) ListHistory(ctx context.Context, in *ListHistoryRequest) (*ListHistoryResponse, error) {
	if in.Kind != "" {
		if _, err := model.ParseKind(string(in.Kind)); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}
	if in.Limit < 0 || in.Offset < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit and offset must not be negative")
	}
	recs, err := s.d.Store.List(ctx, in.Query)
	if err != nil {
		return nil, toStatus(err)
	}
	total, err := s.d.Store.Count(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	if recs == nil {
		recs = []*model.Record{}
	}
	return &ListHistoryResponse{Records: recs, Total: total}, nil
}

func (s *Service) GetRecord(ctx context.Context, in *RecordRequest) (*RecordResponse, error) {
	rec, err := s.d.Store.Get(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RecordResponse{Record: rec}, nil
}

func (s *Service) GetImage(ctx context.Context, in *RecordRequest) (*ImageResponse, error) {
	data, err := s.d.Store.ImageData(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ImageResponse{PNG: data}, nil
}

// OpenRecord opens an image or file-list record on the daemon's desktop.
func (s *Service) OpenRecord(ctx context.Context, in *RecordRequest) (*Empty, error) {
	rec, err := s.d.Store.Get(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.d.Sink.Open(ctx, rec); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *Service) DeleteRecord(ctx context.Context, in *RecordRequest) (*DeleteResponse, error) {
	ok, err := s.d.History.Delete(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DeleteResponse{Deleted: ok}, nil
}

func (s *Service) SetFavorite(ctx context.Context, in *SetFavoriteRequest) (*RecordResponse, error) {
	rec, err := s.d.History.SetFavorite(ctx, in.ID, in.Favorite)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RecordResponse{Record: rec}, nil
}

func (s *Service) ToggleFavorite(ctx context.Context, in *RecordRequest) (*RecordResponse, error) {
	rec, err := s.d.History.ToggleFavorite(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RecordResponse{Record: rec}, nil
}

func (s *Service) ClearHistory(ctx context.Context, _ *Empty) (*ClearResponse, error) {
	res, err := s.d.History.Clear(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ClearResponse{ClearResult: res}, nil
}

func (s *Service) PasteRecord(ctx context.Context, in *PasteRequest) (*Empty, error) {
	rec, err := s.d.Store.Get(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	if in.CopyOnly {
		err = s.d.Sink.CopyRecord(rec)
	} else {
		err = s.d.Sink.PasteRecord(ctx, rec)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	slog.Info("record pasted", "id", rec.ID, "kind", rec.Kind(), "copy_only", in.CopyOnly)
	return &Empty{}, nil
}

func (s *Service) Copy(_ context.Context, in *CopyRequest) (*Empty, error) {
	var err error
	switch {
	case len(in.PNG) > 0:
		err = s.d.Sink.CopyImage(in.PNG)
	case in.Text != "":
		err = s.d.Sink.CopyRecord(&model.Record{Content: model.Text{Text: in.Text}})
	default:
		return nil, status.Error(codes.InvalidArgument, "nothing to copy")
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *Service) Status(ctx context.Context, _ *Empty) (*StatusResponse, error) {
	n, err := s.d.Store.Count(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &StatusResponse{
		Version:     s.d.Version,
		Backend:     s.d.Backend,
		Records:     n,
		Shortcuts:   []string{},
		Subscribers: s.d.Hub.Len(),
		StartedAt:   s.started.UnixMilli(),
	}
	if s.d.Monitor != nil {
		out.Monitoring = s.d.Monitor.Running()
	}
	if s.d.Shortcuts != nil {
		out.Shortcuts = s.d.Shortcuts.Bound()
	}
	return out, nil
}

func (s *Service) GetSettings(_ context.Context, _ *Empty) (*SettingsResponse, error) {
	return &SettingsResponse{Values: s.d.Settings.Values()}, nil
}

func (s *Service) UpdateSettings(_ context.Context, in *UpdateSettingsRequest) (*SettingsResponse, error) {
	v, err := s.d.Settings.Update(in.Patch)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SettingsResponse{Values: v}, nil
}

func (s *Service) ListTemplates(ctx context.Context, _ *Empty) (*ListTemplatesResponse, error) {
	list, err := s.d.Templates.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	if list == nil {
		list = []*model.Template{}
	}
	return &ListTemplatesResponse{Templates: list}, nil
}

func (s *Service) GetTemplate(ctx context.Context, in *TemplateRequest) (*TemplateResponse, error) {
	t, err := s.d.Templates.Get(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TemplateResponse{Template: t}, nil
}

func (s *Service) CreateTemplate(ctx context.Context, in *CreateTemplateRequest) (*TemplateResponse, error) {
	t, err := s.d.Templates.Create(ctx, in.Template)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TemplateResponse{Template: t}, nil
}

func (s *Service) UpdateTemplate(ctx context.Context, in *UpdateTemplateRequest) (*TemplateResponse, error) {
	t, err := s.d.Templates.Update(ctx, in.ID, in.Patch)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TemplateResponse{Template: t}, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, in *TemplateRequest) (*DeleteTemplateResponse, error) {
	ok, err := s.d.Templates.Delete(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DeleteTemplateResponse{Deleted: ok}, nil
}

func (s *Service) ToggleTemplate(ctx context.Context, in *TemplateRequest) (*TemplateResponse, error) {
	t, err := s.d.Templates.Toggle(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TemplateResponse{Template: t}, nil
}

func (s *Service) ResolveTemplate(ctx context.Context, in *TemplateRequest) (*ResolveResponse, error) {
	text, err := s.d.Templates.Resolve(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ResolveResponse{Text: text}, nil
}

func (s *Service) SyncShortcuts(ctx context.Context, _ *Empty) (*ShortcutsResponse, error) {
	if s.d.Shortcuts == nil {
		return nil, status.Error(codes.Unavailable, "hotkeys are not available in this session")
	}
	sum, err := s.d.Shortcuts.UpdateShortcuts(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ShortcutsResponse{Summary: sum}, nil
}

// Watch streams history events until the client goes away.
func (s *Service) Watch(in *WatchRequest, stream grpc.ServerStream) error {
	want := make(map[hub.EventType]bool, len(in.Types))
	for _, t := range in.Types {
		want[t] = true
	}

	sub := hub.NewChanSubscriber("rpc-watch-"+uuid.NewString(), watchBuffer)
	s.d.Hub.Subscribe(sub)
	defer s.d.Hub.Unsubscribe(sub)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-sub.Events():
			if len(want) > 0 && !want[ev.Type] {
				continue
			}
			if err := stream.SendMsg(&ev); err != nil {
				return err
			}
		}
	}
}
