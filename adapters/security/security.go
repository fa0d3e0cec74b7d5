// Package security secures controller endpoints. An Adapter combines a
// Strategy, which knows how credentials travel with a request, with the
// validation rules attached to routes and controllers.
package security

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/danpasecinic/trellis"
	"github.com/danpasecinic/trellis/adapters/controller"
)

const (
	StatusHeader = "X-Trellis-Authentication-Status"

	MissingCredentials   = "Authentication information is missing"
	AuthenticationFailed = "isAuthenticated() failed"
	ValidationFailed     = "error in global or custom validators"
)

// Strategy extracts and checks the credentials of a request.
type Strategy interface {
	// Supports reports whether the request carries credentials this
	// strategy understands.
	Supports(rc *controller.RequestContext) bool
	// CreateRequestSecurityObject builds the authentication metadata
	// stored on the request.
	CreateRequestSecurityObject(ctx context.Context, rc *controller.RequestContext) (any, error)
	IsAuthenticated(ctx context.Context, rc *controller.RequestContext) bool
}

type Options struct {
	// CheckAll secures every endpoint, not only those with a rule.
	CheckAll bool
	// Optional lets requests without credentials through.
	Optional bool
	// ValidationAction runs after authentication succeeded. The default
	// accepts every request.
	ValidationAction controller.ValidationFunc
	LoginURL         string
}

type Adapter struct {
	name     string
	strategy Strategy
	opts     Options
	logger   *slog.Logger

	registered bool
	controller *controller.Adapter
}

func New(name string, strategy Strategy, opts Options) *Adapter {
	if opts.ValidationAction == nil {
		opts.ValidationAction = func(context.Context, *controller.RequestContext) (bool, error) {
			return true, nil
		}
	}
	return &Adapter{
		name:     name,
		strategy: strategy,
		opts:     opts,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (a *Adapter) Name() string {
	return a.name
}

func (a *Adapter) Options() Options {
	return a.opts
}

func (a *Adapter) Strategy() Strategy {
	return a.strategy
}

// ModuleType and RegisterModule let the adapter be registered on the
// application, which gives it the application logger.
func (a *Adapter) ModuleType() trellis.ModuleType {
	return trellis.ModuleTypeControllerSecurity
}

func (a *Adapter) RegisterModule(_ context.Context, app *trellis.App) error {
	a.logger = app.Logger().With("module", "security", "adapter", a.name)
	a.registered = true
	return nil
}

func (a *Adapter) SetControllerAdapter(c *controller.Adapter) {
	a.controller = c
}

// Logger returns the application logger once the adapter or its
// controller adapter is registered.
func (a *Adapter) Logger() *slog.Logger {
	if a.controller != nil && !a.registered {
		return a.controller.Logger().With("adapter", a.name)
	}
	return a.logger
}

func (a *Adapter) ControllerAdapter() *controller.Adapter {
	return a.controller
}

// MethodSecurityFilter returns the filter securing ep. Excluded
// endpoints, and endpoints without a rule unless CheckAll is set, get a
// filter letting everything through.
func (a *Adapter) MethodSecurityFilter(ep *controller.Endpoint) controller.RequestFilter {
	rule, excluded := ep.SecurityRule()
	if excluded || (rule == nil && !a.opts.CheckAll) {
		return controller.EmptyRequestFilter
	}
	if rule == nil {
		rule = &controller.SecurityRule{}
	}

	return controller.RequestFilter{
		Name: a.name + ".MethodSecurityFilter",
		Body: func(ctx context.Context, rc *controller.RequestContext) (bool, error) {
			supports := a.strategy.Supports(rc)
			switch {
			case !supports && !a.opts.Optional:
				rc.Response.
					SetStatus(http.StatusBadRequest, MissingCredentials).
					SetBody(MissingCredentials)
				return false, nil
			case supports:
				return a.authenticate(ctx, ep, rc, rule)
			default:
				return true, nil
			}
		},
	}
}

func (a *Adapter) authenticate(
	ctx context.Context,
	ep *controller.Endpoint,
	rc *controller.RequestContext,
	rule *controller.SecurityRule,
) (bool, error) {
	metadata, err := a.strategy.CreateRequestSecurityObject(ctx, rc)
	if err != nil {
		return false, err
	}
	if err := rc.Request.SetAuthMetadata(metadata); err != nil {
		return false, err
	}

	if !a.strategy.IsAuthenticated(ctx, rc) {
		rc.Response.SetStatus(http.StatusUnauthorized, "")
		rc.Response.SetHeader(StatusHeader, AuthenticationFailed)
		return false, nil
	}

	var ok bool
	if rule.OverrideGlobalValidation {
		if rule.CustomValidation == nil {
			return false, trellis.NewError(
				trellis.ErrCodeBadInput,
				fmt.Sprintf("OverrideGlobalValidation needs a CustomValidation, at %s", ep.Name()),
				nil,
			)
		}
		ok, err = rule.CustomValidation(ctx, rc)
	} else {
		ok, err = a.RunModulesValidationActions(ctx, rc, rule)
		if err == nil && ok && rule.CustomValidation != nil {
			ok, err = rule.CustomValidation(ctx, rc)
		}
	}
	if err != nil {
		return false, err
	}

	if !ok {
		rc.Response.SetStatus(http.StatusUnauthorized, "")
		rc.Response.SetHeader(StatusHeader, ValidationFailed)
	}
	return ok, nil
}

// RunModulesValidationActions runs the validation action of the security
// adapter named by rule.TargetModule, or of every security adapter of
// the controller adapter until one rejects the request.
func (a *Adapter) RunModulesValidationActions(
	ctx context.Context,
	rc *controller.RequestContext,
	rule *controller.SecurityRule,
) (bool, error) {
	owner := rc.Request.Adapter()
	if owner == nil {
		owner = a.controller
	}
	var modules []controller.SecurityAdapter
	if owner != nil {
		modules = owner.SecurityAdapters()
	} else {
		modules = []controller.SecurityAdapter{a}
	}

	if rule.TargetModule != "" {
		for _, m := range modules {
			if m.Name() == rule.TargetModule {
				return m.RunValidationAction(ctx, rc)
			}
		}
		return false, trellis.NewError(
			trellis.ErrCodeBadInput,
			fmt.Sprintf("no security adapter named %q is registered on the controller adapter", rule.TargetModule),
			nil,
		)
	}

	for _, m := range modules {
		ok, err := m.RunValidationAction(ctx, rc)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

func (a *Adapter) RunValidationAction(ctx context.Context, rc *controller.RequestContext) (bool, error) {
	return a.opts.ValidationAction(ctx, rc)
}

type securityAdapters interface {
	SecurityAdapters() []controller.SecurityAdapter
}

// Bind assigns to dst the security adapter named name once controllers
// are ready. An empty name picks the only security adapter, and fails
// when there are several. Without a controller adapter holding security
// adapters the hook fails with ErrCodeModuleNotFound.
func Bind[T controller.SecurityAdapter](dst *T, name string) error {
	return trellis.RegisterHooks(trellis.HookEntry{
		Phase: trellis.PhaseControllersReady,
		Body: func(_ context.Context, app *trellis.App) error {
			bound := false
			for _, m := range app.ControllerAdapters() {
				owner, ok := m.(securityAdapters)
				if !ok {
					continue
				}
				found, err := pick(owner.SecurityAdapters(), name)
				if err != nil {
					return err
				}
				typed, ok := found.(T)
				if !ok {
					return trellis.NewError(
						trellis.ErrCodeBadInput,
						fmt.Sprintf("security adapter %q is %T, not the requested type", found.Name(), found),
						nil,
					)
				}
				*dst = typed
				bound = true
			}
			if !bound {
				return trellis.NewError(trellis.ErrCodeModuleNotFound, "no controller adapter holds security adapters", nil)
			}
			return nil
		},
	})
}

func pick(modules []controller.SecurityAdapter, name string) (controller.SecurityAdapter, error) {
	if name != "" {
		for _, m := range modules {
			if m.Name() == name {
				return m, nil
			}
		}
		return nil, trellis.NewError(trellis.ErrCodeModuleNotFound, fmt.Sprintf("no security adapter named %q", name), nil)
	}

	switch len(modules) {
	case 0:
		return nil, trellis.NewError(trellis.ErrCodeModuleNotFound, "no security adapter registered", nil)
	case 1:
		return modules[0], nil
	default:
		return nil, trellis.NewError(
			trellis.ErrCodeBadInput,
			"several security adapters are registered, a name is required",
			nil,
		)
	}
}
