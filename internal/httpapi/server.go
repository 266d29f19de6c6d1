// Package httpapi is the read-mostly HTTP view of the clipboard history,
// served on the IPC socket next to gRPC and optionally on a TCP address.
//
//	GET    /healthz
//	GET    /metrics
//	GET    /v1/history            ?search= &kind= &favorites=1 &limit= &offset=
//	DELETE /v1/history
//	GET    /v1/history/{id}
//	GET    /v1/history/{id}/image      cached PNG of an image record
//	DELETE /v1/history/{id}
//	POST   /v1/history/{id}/favorite   body {"favorite": bool}, empty toggles
//	GET    /v1/templates
//	GET    /v1/events              websocket stream of history events
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"go.klb.dev/clipkeep/internal/history"
	"go.klb.dev/clipkeep/internal/hub"
	"go.klb.dev/clipkeep/internal/metrics"
	"go.klb.dev/clipkeep/internal/model"
	"go.klb.dev/clipkeep/internal/store"
)

// History is the read side of *store.Store.
type History interface {
	List(ctx context.Context, q store.Query) ([]*model.Record, error)
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id int64) (*model.Record, error)
	ImageData(ctx context.Context, id int64) ([]byte, error)
}

// Templates lists templates.
type Templates interface {
	List(ctx context.Context) ([]*model.Template, error)
}

// Server holds the handler dependencies.
type Server struct {
	history   History
	manager   *history.Manager
	templates Templates
	hub       *hub.Hub
}

// New returns a Server.
func New(h History, m *history.Manager, t Templates, events *hub.Hub) *Server {
	return &Server{history: h, manager: m, templates: t, hub: events}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/v1/events", s.handleEvents)

	r.Route("/v1/history", func(r chi.Router) {
		r.Get("/", s.listHistory)
		r.Delete("/", s.clearHistory)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getRecord)
			r.Get("/image", s.getImage)
			r.Delete("/", s.deleteRecord)
			r.Post("/favorite", s.favorite)
		})
	})
	r.Get("/v1/templates", s.listTemplates)
	return r
}

// Serve runs h on l until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, l net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(l) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// RequireToken rejects requests without "Authorization: Bearer <token>".
// Browsers cannot set headers on a websocket, so a token query parameter is
// accepted as well. /healthz stays open.
func RequireToken(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				got = r.URL.Query().Get("token")
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="clipkeep"`)
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("http response write failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNotImage) {
		code = http.StatusNotFound
	} else {
		slog.Error("http handler failed", "err", err)
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid record id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := store.Query{Search: qs.Get("search")}
	if k := qs.Get("kind"); k != "" {
		kind, err := model.ParseKind(k)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		q.Kind = kind
	}
	if fav := qs.Get("favorites"); fav != "" {
		on, err := strconv.ParseBool(fav)
		if err != nil {
			badRequest(w, "favorites must be a boolean")
			return
		}
		q.FavoritesOnly = on
	}
	var err error
	if q.Limit, err = queryInt(r, "limit"); err != nil {
		badRequest(w, err.Error())
		return
	}
	if q.Offset, err = queryInt(r, "offset"); err != nil {
		badRequest(w, err.Error())
		return
	}

	recs, err := s.history.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	total, err := s.history.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []*model.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs, "total": total})
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := s.history.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	data, err := s.history.ImageData(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Debug("http response write failed", "err", err)
	}
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := s.manager.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "record not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) favorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Favorite *bool `json:"favorite"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid body")
		return
	}

	var (
		rec *model.Record
		err error
	)
	if body.Favorite == nil {
		rec, err = s.manager.ToggleFavorite(r.Context(), id)
	} else {
		rec, err = s.manager.SetFavorite(r.Context(), id, *body.Favorite)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	res, err := s.manager.Clear(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.templates.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*model.Template{}
	}
	writeJSON(w, http.StatusOK, list)
}
