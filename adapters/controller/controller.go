// Package controller holds the parts of an HTTP controller adapter that
// do not depend on a router: controller declaration, route validation,
// request filters, serializers and the request model.
package controller

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"slices"

	"github.com/danpasecinic/trellis"
)

type MediaType string

const (
	MediaTypeNone MediaType = "none"
	MediaTypeJSON MediaType = "json"
	MediaTypeText MediaType = "text"
	MediaTypeHTML MediaType = "html"
)

// Handler serves a route. A non-nil result becomes the response body.
type Handler func(ctx context.Context, req *Request, res Response) (any, error)

// Controller groups routes under a common prefix.
type Controller interface {
	Prefix() string
	Routes() []Route
}

// SecuredController applies a security rule to every route of the
// controller that does not carry its own.
type SecuredController interface {
	Security() *SecurityRule
}

type Route struct {
	Methods  []string
	Path     string
	Handler  Handler
	Produces MediaType
	Security *SecurityRule
}

var supportedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

func GET(path string, h Handler) Route {
	return Route{Methods: []string{http.MethodGet}, Path: path, Handler: h}
}

func POST(path string, h Handler) Route {
	return Route{Methods: []string{http.MethodPost}, Path: path, Handler: h}
}

func PUT(path string, h Handler) Route {
	return Route{Methods: []string{http.MethodPut}, Path: path, Handler: h}
}

func DELETE(path string, h Handler) Route {
	return Route{Methods: []string{http.MethodDelete}, Path: path, Handler: h}
}

func (r Route) WithProduces(mt MediaType) Route {
	r.Produces = mt
	return r
}

func (r Route) WithSecurity(rule *SecurityRule) Route {
	r.Security = rule
	return r
}

var (
	prefixPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_\s/]+$`)
	pathPattern   = regexp.MustCompile(`^[a-zA-Z0-9\-_\s/:]+$`)
)

// ValidatePrefix checks a controller prefix: "/" or a path starting with
// a slash and not ending with one. Colons are not allowed.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return trellis.NewError(trellis.ErrCodeBadInput, "controller prefix must not be empty", nil)
	}
	if prefix != "/" && (prefix[0] != '/' || prefix[len(prefix)-1] == '/') {
		return trellis.NewError(
			trellis.ErrCodeBadInput,
			fmt.Sprintf("controller prefix must start with a slash and must not end with one, got %q", prefix),
			nil,
		)
	}
	if !prefixPattern.MatchString(prefix) {
		return trellis.NewError(
			trellis.ErrCodeBadInput,
			fmt.Sprintf("controller prefix %q may only contain letters, digits, dashes, underscores, spaces and slashes", prefix),
			nil,
		)
	}
	return nil
}

// ValidateRoutePath checks the path of a route relative to its prefix.
// An empty path serves the prefix itself.
func ValidateRoutePath(path string) error {
	if path == "" {
		return nil
	}
	if path[0] == '/' || path[len(path)-1] == '/' {
		return trellis.NewError(
			trellis.ErrCodeBadInput,
			fmt.Sprintf("route path must not start or end with a slash, got %q", path),
			nil,
		)
	}
	if !pathPattern.MatchString(path) {
		return trellis.NewError(
			trellis.ErrCodeBadInput,
			fmt.Sprintf("route path %q may only contain letters, digits, dashes, underscores, spaces, slashes and colons", path),
			nil,
		)
	}
	return nil
}

func validateRoute(r Route) error {
	if err := ValidateRoutePath(r.Path); err != nil {
		return err
	}
	if len(r.Methods) == 0 {
		return trellis.NewError(trellis.ErrCodeBadInput, fmt.Sprintf("route %q has no HTTP method", r.Path), nil)
	}
	for _, m := range r.Methods {
		if !slices.Contains(supportedMethods, m) {
			return trellis.NewError(trellis.ErrCodeBadInput, fmt.Sprintf("route %q uses unsupported method %s", r.Path, m), nil)
		}
	}
	if r.Handler == nil {
		return trellis.NewError(trellis.ErrCodeBadInput, fmt.Sprintf("route %q has no handler", r.Path), nil)
	}
	return nil
}

// FullPath joins a controller prefix and a route path. The "/" prefix
// contributes nothing.
func FullPath(prefix, path string) string {
	if prefix == "/" {
		prefix = ""
	}
	return prefix + "/" + path
}

// Registrar is implemented by controller adapters accepting controllers.
type Registrar interface {
	RegisterController(ctx context.Context, c Controller) error
}

// Declare hands controllers to every controller adapter of the
// application once controllers are scanned. It can be called from init
// functions.
func Declare(controllers ...Controller) error {
	return trellis.RegisterHooks(trellis.HookEntry{
		Phase: trellis.PhaseControllersAfterScan,
		Body: func(ctx context.Context, app *trellis.App) error {
			for _, adapter := range app.ControllerAdapters() {
				r, ok := adapter.(Registrar)
				if !ok {
					continue
				}
				for _, c := range controllers {
					if err := r.RegisterController(ctx, c); err != nil {
						return err
					}
				}
			}
			return nil
		},
	})
}

// MustDeclare is Declare for init functions.
func MustDeclare(controllers ...Controller) {
	if err := Declare(controllers...); err != nil {
		panic(err)
	}
}
