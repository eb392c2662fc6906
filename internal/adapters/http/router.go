package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/aps-model-browser/internal/adapters/page"
	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/core/ports"
)

const (
	uploadField           = "modelFile"
	defaultUploadMaxBytes = 512 << 20
	multipartMemory       = 32 << 20
	defaultDispatchWait   = 2 * time.Minute
	streamKeepAlive       = 25 * time.Second
)

// PageModel is the page state the UI endpoints read.
type PageModel interface {
	Snapshot() page.Snapshot
	Subscribe() chan page.Snapshot
	Unsubscribe(ch chan page.Snapshot)
}

// HTTPMetrics instruments the handler chain and serves the exposition.
type HTTPMetrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

type Options struct {
	Logger  *slog.Logger
	Metrics HTTPMetrics
	// Health reports extra component states on /healthz.
	Health func() map[string]string

	RateLimitRPS     int
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration

	DispatchTimeout time.Duration
	UploadMaxBytes  int64
}

type Router struct {
	shell   ports.Shell
	page    PageModel
	tokens  ports.TokenSource
	options Options
	logger  *slog.Logger
}

func NewRouter(shell ports.Shell, model PageModel, tokens ports.TokenSource, options Options) *Router {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.DispatchTimeout <= 0 {
		options.DispatchTimeout = defaultDispatchWait
	}
	if options.UploadMaxBytes <= 0 {
		options.UploadMaxBytes = defaultUploadMaxBytes
	}
	return &Router{
		shell:   shell,
		page:    model,
		tokens:  tokens,
		options: options,
		logger:  options.Logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.options.Metrics != nil {
		mux.Handle("GET /metrics", rt.options.Metrics.Handler())
	}
	mux.HandleFunc("GET /ui/stream", rt.stream)

	mux.Handle("GET /{$}", rt.guarded(http.HandlerFunc(rt.index)))
	mux.Handle("GET /ui/state", rt.guarded(http.HandlerFunc(rt.state)))
	mux.Handle("POST /ui/select/{level}/{id}", rt.guarded(http.HandlerFunc(rt.selectEntry)))
	mux.Handle("POST /ui/refresh", rt.guarded(http.HandlerFunc(rt.refresh)))
	mux.Handle("POST /ui/upload", rt.guarded(http.HandlerFunc(rt.upload)))
	mux.Handle("GET /view3d/{urn}", rt.guarded(rt.viewerHandler(domain.Role3D)))
	mux.Handle("GET /view2d/{urn}", rt.guarded(rt.viewerHandler(domain.Role2D)))

	var handler http.Handler = mux
	handler = accessLogMiddleware(handler, rt.logger)
	if rt.options.Metrics != nil {
		handler = rt.options.Metrics.Middleware(handler)
	}
	return requestIDMiddleware(handler)
}

// guarded applies traffic control to interactive endpoints. The event
// stream and probes stay outside it.
func (rt *Router) guarded(next http.Handler) http.Handler {
	h := backpressureMiddleware(next, rt.options.MaxInFlight, rt.options.BackpressureWait)
	return rateLimitMiddleware(h, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{"status": "ok"}
	if rt.options.Health != nil {
		if components := rt.options.Health(); len(components) > 0 {
			payload["components"] = components
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

// state returns the page snapshot. The first call performs the initial
// page load.
func (rt *Router) state(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := rt.dispatchContext(r)
	defer cancel()
	if err := rt.shell.Start(ctx); err != nil {
		rt.logger.Warn("page_start_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
	writeJSON(w, http.StatusOK, rt.page.Snapshot())
}

func (rt *Router) selectEntry(w http.ResponseWriter, r *http.Request) {
	level, ok := domain.ParseLevel(r.PathValue("level"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown level %q", r.PathValue("level"))})
		return
	}
	rt.dispatch(w, r, domain.Event{Type: domain.EventSelect, Level: level, ID: r.PathValue("id")})
}

func (rt *Router) refresh(w http.ResponseWriter, r *http.Request) {
	rt.dispatch(w, r, domain.Event{Type: domain.EventRefresh})
}

func (rt *Router) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.options.UploadMaxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	// A missing file is reported by the upload controller, like an empty
	// file picker.
	var file *domain.UploadFile
	part, header, err := r.FormFile(uploadField)
	switch {
	case err == nil:
		defer part.Close()
		file = uploadFileFrom(part, header)
	case errors.Is(err, http.ErrMissingFile):
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("multipart field '%s' is invalid", uploadField)})
		return
	}

	rt.dispatch(w, r, domain.Event{Type: domain.EventUpload, File: file})
}

func uploadFileFrom(part multipart.File, header *multipart.FileHeader) *domain.UploadFile {
	return &domain.UploadFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        part,
	}
}

// dispatch routes one page event and answers with the resulting snapshot.
func (rt *Router) dispatch(w http.ResponseWriter, r *http.Request, event domain.Event) {
	ctx, cancel := rt.dispatchContext(r)
	defer cancel()

	if err := rt.shell.Dispatch(ctx, event); err != nil {
		rt.logger.Warn("page_event_failed",
			"request_id", requestIDFromContext(r.Context()),
			"event", string(event.Type),
			"level", event.Level.String(),
			"id", event.ID,
			"error", err,
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.page.Snapshot())
}

// dispatchContext detaches controller work from the client connection: a
// list fetch or upload that has started runs to completion so the page
// state stays consistent for other observers.
func (rt *Router) dispatchContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), rt.options.DispatchTimeout)
}

// stream pushes a snapshot on connect and after every page change.
func (rt *Router) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ch := rt.page.Subscribe()
	defer rt.page.Unsubscribe(ch)

	if err := writeSnapshotEvent(w, rt.page.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSnapshotEvent(w, snapshot); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, snapshot page.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snapshot.Revision, strings.TrimSpace(string(payload)))
	return err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
