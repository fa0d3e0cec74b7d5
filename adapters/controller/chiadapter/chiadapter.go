// Package chiadapter serves controllers over HTTP with a chi router.
package chiadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/danpasecinic/trellis"
	"github.com/danpasecinic/trellis/adapters/controller"
)

const (
	DefaultListenAddr = ":8080"
	RequestIDHeader   = "X-Request-Id"

	listenHookName = "chiadapter.listen"
	maxBodyBytes   = 10 << 20
)

type Options struct {
	controller.Options

	// ListenAddr is where the server listens once the application is
	// ready. It defaults to DefaultListenAddr.
	ListenAddr string
	// Router replaces the internal router. No server is started then:
	// the caller serves Router itself.
	Router chi.Router
	// HealthPath exposes the application health checks when set.
	HealthPath        string
	ReadHeaderTimeout time.Duration
	Middlewares       []func(http.Handler) http.Handler
}

type Adapter struct {
	*controller.Adapter

	opts   Options
	router chi.Router
	app    *trellis.App

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

func New(opts Options) *Adapter {
	if opts.ListenAddr == "" {
		opts.ListenAddr = DefaultListenAddr
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 10 * time.Second
	}

	a := &Adapter{opts: opts}
	a.router = opts.Router
	if a.router == nil {
		r := chi.NewRouter()
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		for _, mw := range opts.Middlewares {
			r.Use(mw)
		}
		a.router = r
	}
	a.Adapter = controller.NewAdapter(a, opts.Options)
	return a
}

func (a *Adapter) RegisterModule(ctx context.Context, app *trellis.App) error {
	if err := a.Adapter.RegisterModule(ctx, app); err != nil {
		return err
	}
	a.app = app

	if a.opts.HealthPath != "" {
		a.router.Get(a.opts.HealthPath, a.health)
	}
	if a.opts.Router != nil {
		return nil
	}
	return app.RegisterNamedHook(trellis.PhaseContextReady, listenHookName, func(context.Context, *trellis.App) error {
		return a.listen()
	})
}

// Router returns the router the routes are bound on.
func (a *Adapter) Router() chi.Router {
	return a.router
}

// Addr returns the address the server listens on, empty before it
// started.
func (a *Adapter) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Bind registers ep on the router. ":name" segments become chi
// "{name}" parameters.
func (a *Adapter) Bind(ep *controller.Endpoint) error {
	a.router.MethodFunc(ep.Method, RoutePattern(ep.Path), a.handle(ep))
	return nil
}

// RoutePattern converts a controller path into a chi pattern.
func RoutePattern(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if strings.HasPrefix(s, ":") && len(s) > 1 {
			segments[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}

func (a *Adapter) listen() error {
	ln, err := net.Listen("tcp", a.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.opts.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: a.opts.ReadHeaderTimeout,
	}

	a.mu.Lock()
	a.server = srv
	a.listener = ln
	a.mu.Unlock()

	a.Logger().Info("HTTP server listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger().Error("HTTP server stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the server gracefully.
func (a *Adapter) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.server
	a.server = nil
	a.listener = nil
	a.mu.Unlock()

	if srv == nil {
		return nil
	}
	a.Logger().Info("shutting down HTTP server")
	return srv.Shutdown(ctx)
}

func (a *Adapter) handle(ep *controller.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := a.buildRequest(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		w.Header().Set(RequestIDHeader, req.ID())

		res := controller.NewRecordedResponse()
		if err := a.Serve(r.Context(), ep, req, res); err != nil {
			a.writeError(w, r, err)
			return
		}
		a.writeResponse(w, res)
	}
}

func (a *Adapter) buildRequest(r *http.Request) (*controller.Request, error) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}

	b := controller.NewRequestBuilder().
		WithID(id).
		WithAdapter(a.Adapter).
		WithMethod(r.Method).
		WithPath(r.URL.Path).
		WithQuery(firstValues(r.URL.Query())).
		WithHeaders(firstValues(r.Header)).
		WithPathParams(pathParams(r))

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch contentType {
	case "application/json":
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return nil, trellis.NewError(trellis.ErrCodeBadInput, "cannot read request body", err)
		}
		if len(body) > 0 {
			b = b.WithJSONBody(string(body)).WithSelfParsedJSON()
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, trellis.NewError(trellis.ErrCodeBadInput, "cannot parse form", err)
		}
		b = b.WithPostParams(firstValues(r.PostForm))
	}

	return b.Build()
}

func (a *Adapter) writeResponse(w http.ResponseWriter, res *controller.RecordedResponse) {
	for name, values := range res.Header() {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}

	var payload []byte
	switch body := res.Body().(type) {
	case nil:
	case string:
		payload = []byte(body)
	case []byte:
		payload = body
	default:
		data, err := json.Marshal(body)
		if err != nil {
			a.Logger().Error("cannot encode response body", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		payload = data
	}

	w.WriteHeader(res.Status())
	if len(payload) > 0 {
		_, _ = w.Write(payload)
	}
}

func (a *Adapter) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if trellis.IsBadInput(err) {
		status = http.StatusBadRequest
	}
	a.Logger().Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	http.Error(w, http.StatusText(status), status)
}

type healthResponse struct {
	Status trellis.HealthStatus   `json:"status"`
	Checks []trellis.HealthReport `json:"checks"`
}

func (a *Adapter) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: trellis.HealthStatusUp, Checks: []trellis.HealthReport{}}
	if a.app != nil {
		resp.Checks = append(resp.Checks, a.app.Health(r.Context())...)
	}

	status := http.StatusOK
	for _, c := range resp.Checks {
		if c.Status == trellis.HealthStatusDown {
			resp.Status = trellis.HealthStatusDown
			status = http.StatusServiceUnavailable
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		a.Logger().Warn("cannot write health response", "error", err)
	}
}

func firstValues(values map[string][]string) controller.Params {
	out := make(controller.Params, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func pathParams(r *http.Request) controller.Params {
	out := controller.Params{}
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return out
	}
	for i, key := range rctx.URLParams.Keys {
		if i < len(rctx.URLParams.Values) {
			out[key] = rctx.URLParams.Values[i]
		}
	}
	return out
}
