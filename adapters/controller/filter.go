package controller

import (
	"context"
)

type RequestContext struct {
	Request  *Request
	Response Response
}

// FilterFunc decides whether the request goes on. Returning false stops
// the chain; the filter is expected to have set the response.
type FilterFunc func(ctx context.Context, rc *RequestContext) (bool, error)

type RequestFilter struct {
	Name string
	Body FilterFunc
}

// EmptyRequestFilter lets every request through.
var EmptyRequestFilter = RequestFilter{
	Name: "empty",
	Body: func(context.Context, *RequestContext) (bool, error) { return true, nil },
}

// ValidationFunc is a security validation run after authentication.
type ValidationFunc func(ctx context.Context, rc *RequestContext) (bool, error)

// SecurityRule describes how a route, or a whole controller, is secured.
type SecurityRule struct {
	// Excluded disables security checks even when the security adapter
	// checks every route.
	Excluded bool
	// OverrideGlobalValidation skips the validation actions of the
	// security adapters and runs CustomValidation only.
	OverrideGlobalValidation bool
	CustomValidation         ValidationFunc
	// TargetModule restricts the validation actions to the security
	// adapter with this name.
	TargetModule string
}

// SecurityAdapter produces the security filter of each endpoint.
type SecurityAdapter interface {
	Name() string
	SetControllerAdapter(a *Adapter)
	MethodSecurityFilter(ep *Endpoint) RequestFilter
	RunValidationAction(ctx context.Context, rc *RequestContext) (bool, error)
}

// Serializer turns the response body into its wire form.
type Serializer func(ctx context.Context, rc *RequestContext) error
