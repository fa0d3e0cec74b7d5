package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	goreflect "reflect"
	"slices"
	"sync"

	"github.com/danpasecinic/trellis"
	"github.com/danpasecinic/trellis/internal/reflect"
)

// Endpoint is a route bound to one HTTP method.
type Endpoint struct {
	Controller Controller
	Route      Route
	Method     string
	Path       string
}

// Name identifies the endpoint in logs and errors.
func (ep *Endpoint) Name() string {
	return fmt.Sprintf("%s %s (%s)", ep.Method, ep.Path, reflect.TypeKeyFromValue(ep.Controller))
}

// SecurityRule returns the rule applying to the endpoint and whether
// the endpoint is excluded from security checks. A route rule wins over
// the rule of its controller.
func (ep *Endpoint) SecurityRule() (*SecurityRule, bool) {
	var controllerRule *SecurityRule
	if sc, ok := ep.Controller.(SecuredController); ok {
		controllerRule = sc.Security()
	}
	routeRule := ep.Route.Security

	excluded := (routeRule != nil && routeRule.Excluded) ||
		(routeRule == nil && controllerRule != nil && controllerRule.Excluded)

	if routeRule != nil {
		return routeRule, excluded
	}
	return controllerRule, excluded
}

// Binder attaches an endpoint to a concrete router.
type Binder interface {
	Bind(ep *Endpoint) error
}

type Options struct {
	// Controllers are registered when controllers are scanned, in
	// addition to the ones handed over by Declare.
	Controllers      []Controller
	SecurityAdapters []SecurityAdapter
	BeforeAuth       []RequestFilter
	AfterAuth        []RequestFilter
}

// Adapter implements the router independent part of a controller
// module. Router adapters embed it and provide a Binder.
type Adapter struct {
	binder Binder
	opts   Options
	logger *slog.Logger

	mu          sync.RWMutex
	serializers map[MediaType]Serializer
	controllers []Controller
	endpoints   []*Endpoint
}

func NewAdapter(binder Binder, opts Options) *Adapter {
	if len(opts.BeforeAuth) == 0 {
		opts.BeforeAuth = []RequestFilter{EmptyRequestFilter}
	}
	if len(opts.AfterAuth) == 0 {
		opts.AfterAuth = []RequestFilter{EmptyRequestFilter}
	}

	a := &Adapter{
		binder:      binder,
		opts:        opts,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		serializers: make(map[MediaType]Serializer),
	}
	for _, s := range opts.SecurityAdapters {
		s.SetControllerAdapter(a)
	}
	a.registerCommonSerializers()
	return a
}

func (a *Adapter) ModuleType() trellis.ModuleType {
	return trellis.ModuleTypeController
}

func (a *Adapter) RegisterModule(_ context.Context, app *trellis.App) error {
	a.logger = app.Logger().With("module", "controller")
	return nil
}

func (a *Adapter) Logger() *slog.Logger {
	return a.logger
}

func (a *Adapter) SecurityAdapters() []SecurityAdapter {
	return a.opts.SecurityAdapters
}

// ScanControllers registers the controllers given in the options.
func (a *Adapter) ScanControllers(ctx context.Context) error {
	a.logger.Debug("scanning controllers", "count", len(a.opts.Controllers))
	for _, c := range a.opts.Controllers {
		if err := a.RegisterController(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// HandleContextAvailable injects the dependencies of every registered
// controller.
func (a *Adapter) HandleContextAvailable(_ context.Context) error {
	di, err := trellis.CurrentDIModule()
	if err != nil {
		a.logger.Warn("no DI module, controllers will not be injected")
		return nil
	}

	for _, c := range a.Controllers() {
		a.warnDatabaseInjection(c)
		if err := di.InjectInto(c); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) warnDatabaseInjection(c Controller) {
	fields, err := reflect.InjectFields(goreflect.TypeOf(c))
	if err != nil {
		return
	}
	for _, f := range fields {
		if f.Identifier == trellis.DatabaseConnectionIdentifier {
			a.logger.Warn(
				"controller injects the database connection, prefer going through a component",
				"controller", reflect.TypeKeyFromValue(c),
				"field", f.Name,
			)
		}
	}
}

// RegisterController validates c and binds each of its routes once. A
// controller already registered is ignored.
func (a *Adapter) RegisterController(_ context.Context, c Controller) error {
	if reflect.IsNil(c) {
		return trellis.NewError(trellis.ErrCodeBadInput, "cannot register a nil controller", nil)
	}

	a.mu.RLock()
	registered := slices.Contains(a.controllers, c)
	a.mu.RUnlock()
	if registered {
		return nil
	}

	name := reflect.TypeKeyFromValue(c)
	if err := ValidatePrefix(c.Prefix()); err != nil {
		return withController(err, name)
	}
	for _, route := range c.Routes() {
		if err := a.HandleRoute(c, route); err != nil {
			return withController(err, name)
		}
	}

	a.mu.Lock()
	a.controllers = append(a.controllers, c)
	a.mu.Unlock()

	a.logger.Debug("registered controller", "controller", name, "prefix", c.Prefix())
	return nil
}

// HandleRoute binds route on every method it declares.
func (a *Adapter) HandleRoute(c Controller, route Route) error {
	if err := validateRoute(route); err != nil {
		return err
	}
	if route.Produces == "" {
		route.Produces = MediaTypeNone
	}

	for _, method := range route.Methods {
		ep := &Endpoint{
			Controller: c,
			Route:      route,
			Method:     method,
			Path:       FullPath(c.Prefix(), route.Path),
		}
		if a.binder != nil {
			if err := a.binder.Bind(ep); err != nil {
				return err
			}
		}

		a.mu.Lock()
		a.endpoints = append(a.endpoints, ep)
		a.mu.Unlock()

		a.logger.Debug("bound route", "method", method, "path", ep.Path)
	}
	return nil
}

func (a *Adapter) Controllers() []Controller {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Controller, len(a.controllers))
	copy(out, a.controllers)
	return out
}

func (a *Adapter) Endpoints() []*Endpoint {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*Endpoint, len(a.endpoints))
	copy(out, a.endpoints)
	return out
}

// RegisterProducerSerializer replaces the serializer of a media type.
func (a *Adapter) RegisterProducerSerializer(mt MediaType, s Serializer) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.serializers[mt] = s
}

func (a *Adapter) serializer(mt MediaType) (Serializer, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.serializers[mt]
	if !ok {
		return nil, trellis.NewError(trellis.ErrCodeBadInput, fmt.Sprintf("no serializer for media type %q", mt), nil)
	}
	return s, nil
}

// Serve runs the filters, the handler and the serializer of ep. The
// request is read-only afterwards.
func (a *Adapter) Serve(ctx context.Context, ep *Endpoint, req *Request, res Response) error {
	if req.Adapter() == nil {
		if err := req.SetAdapter(a); err != nil {
			return err
		}
	}
	rc := &RequestContext{Request: req, Response: res}

	proceed, err := a.runFilters(ctx, rc, a.securityFilters(ep))
	if err != nil {
		return err
	}

	if proceed {
		result, err := ep.Route.Handler(ctx, req, res)
		if err != nil {
			return err
		}
		if result != nil {
			res.SetBody(result)
		}
	}

	mt := ep.Route.Produces
	if mt == "" {
		mt = MediaTypeNone
	}
	s, err := a.serializer(mt)
	if err != nil {
		return err
	}
	if err := s(ctx, rc); err != nil {
		return err
	}

	req.MakeReadOnly()
	return nil
}

func (a *Adapter) securityFilters(ep *Endpoint) []RequestFilter {
	filters := make([]RequestFilter, 0, len(a.opts.SecurityAdapters))
	for _, s := range a.opts.SecurityAdapters {
		filters = append(filters, s.MethodSecurityFilter(ep))
	}
	return filters
}

// runFilters runs before-auth, security and after-auth filters in that
// order and stops at the first one returning false.
func (a *Adapter) runFilters(ctx context.Context, rc *RequestContext, security []RequestFilter) (bool, error) {
	chain := make([]RequestFilter, 0, len(a.opts.BeforeAuth)+len(security)+len(a.opts.AfterAuth))
	chain = append(chain, a.opts.BeforeAuth...)
	chain = append(chain, security...)
	chain = append(chain, a.opts.AfterAuth...)

	for _, f := range chain {
		ok, err := f.Body(ctx, rc)
		if err != nil {
			return false, err
		}
		if !ok {
			a.logger.Debug("request stopped by filter", "filter", f.Name, "path", rc.Request.Path())
			return false, nil
		}
	}
	return true, nil
}

func (a *Adapter) registerCommonSerializers() {
	a.serializers[MediaTypeNone] = func(_ context.Context, rc *RequestContext) error {
		a.logger.Debug("no serializer for request", "path", rc.Request.Path())
		return nil
	}
	a.serializers[MediaTypeJSON] = func(_ context.Context, rc *RequestContext) error {
		rc.Response.SetHeader("Content-Type", "application/json;charset=UTF-8")
		body := rc.Response.Body()
		if body == nil {
			return nil
		}
		data, err := json.Marshal(body)
		if err != nil {
			return trellis.NewError(trellis.ErrCodeBadInput, "response body cannot be encoded as JSON", err)
		}
		rc.Response.SetBody(string(data))
		return nil
	}
	a.serializers[MediaTypeText] = func(_ context.Context, rc *RequestContext) error {
		rc.Response.SetHeader("Content-Type", "text/plain;charset=UTF-8")
		return nil
	}
	a.serializers[MediaTypeHTML] = func(_ context.Context, rc *RequestContext) error {
		rc.Response.SetHeader("Content-Type", "text/html;charset=UTF-8")
		return nil
	}
}

func withController(err error, name string) error {
	if coded, ok := err.(*trellis.Error); ok && coded.Component == "" {
		return coded.WithComponent(name)
	}
	return err
}
