package controller_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/trellis"
	"github.com/danpasecinic/trellis/adapters/controller"
	"github.com/danpasecinic/trellis/trellistest"
)

type recordingBinder struct {
	endpoints []*controller.Endpoint
}

func (b *recordingBinder) Bind(ep *controller.Endpoint) error {
	b.endpoints = append(b.endpoints, ep)
	return nil
}

type Greeter struct {
	Greeting string
}

type HelloController struct {
	Greeter *Greeter `inject:"greeter"`
	prefix  string
}

func (c *HelloController) Prefix() string {
	if c.prefix == "" {
		return "/hello"
	}
	return c.prefix
}

func (c *HelloController) Routes() []controller.Route {
	return []controller.Route{
		controller.GET(":name", c.hello).WithProduces(controller.MediaTypeJSON),
		{Methods: []string{http.MethodPost, http.MethodPut}, Path: "", Handler: c.hello},
	}
}

func (c *HelloController) hello(_ context.Context, req *controller.Request, _ controller.Response) (any, error) {
	return map[string]string{"message": c.Greeter.Greeting + " " + req.PathParams()["name"]}, nil
}

type RootController struct{}

func (RootController) Prefix() string { return "/" }

func (RootController) Routes() []controller.Route {
	return []controller.Route{
		controller.GET("", func(context.Context, *controller.Request, controller.Response) (any, error) {
			return "root", nil
		}).WithProduces(controller.MediaTypeText),
	}
}

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		prefix string
		valid  bool
	}{
		{"/", true},
		{"/users", true},
		{"/api/v1_users-list", true},
		{"", false},
		{"users", false},
		{"/users/", false},
		{"/users/:id", false},
		{"/users?x", false},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			err := controller.ValidatePrefix(tt.prefix)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, trellis.IsBadInput(err), "expected bad input, got %v", err)
			}
		})
	}
}

func TestValidateRoutePath(t *testing.T) {
	tests := []struct {
		path  string
		valid bool
	}{
		{"", true},
		{"list", true},
		{"users/:id/roles", true},
		{"/list", false},
		{"list/", false},
		{"list.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := controller.ValidateRoutePath(tt.path)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, trellis.IsBadInput(err), "expected bad input, got %v", err)
			}
		})
	}
}

func TestFullPath(t *testing.T) {
	assert.Equal(t, "/users/:id", controller.FullPath("/users", ":id"))
	assert.Equal(t, "/users/", controller.FullPath("/users", ""))
	assert.Equal(t, "/", controller.FullPath("/", ""))
	assert.Equal(t, "/health", controller.FullPath("/", "health"))
}

func TestRegisterControllerBindsEveryMethod(t *testing.T) {
	binder := &recordingBinder{}
	adapter := controller.NewAdapter(binder, controller.Options{})
	ctrl := &HelloController{}

	require.NoError(t, adapter.RegisterController(context.Background(), ctrl))
	require.NoError(t, adapter.RegisterController(context.Background(), ctrl))

	require.Len(t, binder.endpoints, 3)
	assert.Equal(t, http.MethodGet, binder.endpoints[0].Method)
	assert.Equal(t, "/hello/:name", binder.endpoints[0].Path)
	assert.Equal(t, http.MethodPost, binder.endpoints[1].Method)
	assert.Equal(t, http.MethodPut, binder.endpoints[2].Method)
	assert.Equal(t, controller.MediaTypeNone, binder.endpoints[1].Route.Produces)
	assert.Len(t, adapter.Controllers(), 1)
}

type badRoutes struct {
	routes []controller.Route
}

func (b *badRoutes) Prefix() string { return "/bad" }

func (b *badRoutes) Routes() []controller.Route { return b.routes }

func TestRegisterControllerRejectsBadRoutes(t *testing.T) {
	noop := func(context.Context, *controller.Request, controller.Response) (any, error) { return nil, nil }
	tests := []struct {
		name string
		ctrl controller.Controller
	}{
		{"no method", &badRoutes{routes: []controller.Route{{Path: "x", Handler: noop}}}},
		{"patch", &badRoutes{routes: []controller.Route{{Methods: []string{http.MethodPatch}, Handler: noop}}}},
		{"no handler", &badRoutes{routes: []controller.Route{{Methods: []string{http.MethodGet}}}}},
		{"bad prefix", &HelloController{prefix: "/trailing/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := controller.NewAdapter(&recordingBinder{}, controller.Options{})
			err := adapter.RegisterController(context.Background(), tt.ctrl)
			assert.True(t, trellis.IsBadInput(err), "expected bad input, got %v", err)
			assert.Empty(t, adapter.Controllers())
		})
	}
}

func TestServeJSON(t *testing.T) {
	binder := &recordingBinder{}
	adapter := controller.NewAdapter(binder, controller.Options{})
	ctrl := &HelloController{Greeter: &Greeter{Greeting: "hi"}}
	require.NoError(t, adapter.RegisterController(context.Background(), ctrl))

	req, err := controller.NewRequestBuilder().
		WithMethod(http.MethodGet).
		WithPath("/hello/ada").
		WithPathParams(controller.Params{"name": "ada"}).
		Build()
	require.NoError(t, err)
	res := controller.NewRecordedResponse()

	require.NoError(t, adapter.Serve(context.Background(), binder.endpoints[0], req, res))

	assert.Equal(t, `{"message":"hi ada"}`, res.Body())
	assert.Equal(t, "application/json;charset=UTF-8", res.Header().Get("Content-Type"))
	assert.True(t, req.IsReadOnly())
	assert.Same(t, adapter, req.Adapter())

	err = req.SetPath("/other")
	assert.True(t, trellis.IsReadOnly(err), "expected read-only error, got %v", err)
}

func TestServeText(t *testing.T) {
	binder := &recordingBinder{}
	adapter := controller.NewAdapter(binder, controller.Options{})
	require.NoError(t, adapter.RegisterController(context.Background(), RootController{}))

	res := controller.NewRecordedResponse()
	require.NoError(t, adapter.Serve(context.Background(), binder.endpoints[0], controller.NewRequest(), res))

	assert.Equal(t, "/", binder.endpoints[0].Path)
	assert.Equal(t, "root", res.Body())
	assert.Equal(t, "text/plain;charset=UTF-8", res.Header().Get("Content-Type"))
}

func TestFilterStopsRequest(t *testing.T) {
	var order []string
	filter := func(name string, proceed bool) controller.RequestFilter {
		return controller.RequestFilter{
			Name: name,
			Body: func(_ context.Context, rc *controller.RequestContext) (bool, error) {
				order = append(order, name)
				if !proceed {
					rc.Response.SetStatus(http.StatusTeapot, "")
				}
				return proceed, nil
			},
		}
	}

	binder := &recordingBinder{}
	adapter := controller.NewAdapter(binder, controller.Options{
		BeforeAuth: []controller.RequestFilter{filter("first", true), filter("second", false)},
		AfterAuth:  []controller.RequestFilter{filter("after", true)},
	})
	require.NoError(t, adapter.RegisterController(context.Background(), RootController{}))

	res := controller.NewRecordedResponse()
	require.NoError(t, adapter.Serve(context.Background(), binder.endpoints[0], controller.NewRequest(), res))

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, http.StatusTeapot, res.Status())
	assert.Nil(t, res.Body())
	assert.Equal(t, "text/plain;charset=UTF-8", res.Header().Get("Content-Type"))
}

func TestHandlerError(t *testing.T) {
	boom := errors.New("boom")
	ctrl := &badRoutes{routes: []controller.Route{
		controller.GET("fail", func(context.Context, *controller.Request, controller.Response) (any, error) {
			return nil, boom
		}),
	}}

	binder := &recordingBinder{}
	adapter := controller.NewAdapter(binder, controller.Options{})
	require.NoError(t, adapter.RegisterController(context.Background(), ctrl))

	req := controller.NewRequest()
	err := adapter.Serve(context.Background(), binder.endpoints[0], req, controller.NewRecordedResponse())
	assert.ErrorIs(t, err, boom)
	assert.False(t, req.IsReadOnly())
}

func TestCustomSerializer(t *testing.T) {
	binder := &recordingBinder{}
	adapter := controller.NewAdapter(binder, controller.Options{})
	adapter.RegisterProducerSerializer(controller.MediaTypeText, func(_ context.Context, rc *controller.RequestContext) error {
		rc.Response.SetBody("<" + rc.Response.Body().(string) + ">")
		return nil
	})
	require.NoError(t, adapter.RegisterController(context.Background(), RootController{}))

	res := controller.NewRecordedResponse()
	require.NoError(t, adapter.Serve(context.Background(), binder.endpoints[0], controller.NewRequest(), res))
	assert.Equal(t, "<root>", res.Body())
}

func TestRequestBuilder(t *testing.T) {
	req, err := controller.NewRequestBuilder().
		WithHeaders(controller.Params{"Content-Type": "application/json"}).
		WithJSONBody(`{"name":"ada"}`).
		WithSelfParsedJSON().
		Build()
	require.NoError(t, err)

	assert.Equal(t, "application/json", req.Header("content-type"))
	assert.Equal(t, map[string]any{"name": "ada"}, req.ParsedJSON())

	_, err = controller.NewRequestBuilder().WithSelfParsedJSON().Build()
	assert.True(t, trellis.IsBadInput(err), "expected bad input, got %v", err)

	_, err = controller.NewRequestBuilder().WithReadOnly().WithPath("/x").Build()
	assert.True(t, trellis.IsReadOnly(err), "expected read-only error, got %v", err)
}

func TestDeclareAndInject(t *testing.T) {
	ctx := context.Background()
	app := trellistest.New(t)

	binder := &recordingBinder{}
	adapter := controller.NewAdapter(binder, controller.Options{})
	ctrl := &HelloController{}
	require.NoError(t, controller.Declare(ctrl))

	app.RequireRegister(
		ctx,
		trellis.NewDIModule(trellis.NewInstance(&Greeter{Greeting: "hey"}, trellis.WithIdentifier("greeter"))),
		adapter,
	)
	app.RequireInit(ctx)

	require.Len(t, adapter.Controllers(), 1)
	require.NotNil(t, ctrl.Greeter)
	assert.Equal(t, "hey", ctrl.Greeter.Greeting)
	assert.Len(t, adapter.Endpoints(), 3)
}

func TestOptionsControllersScanned(t *testing.T) {
	ctx := context.Background()
	app := trellistest.New(t, trellis.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	adapter := controller.NewAdapter(&recordingBinder{}, controller.Options{
		Controllers: []controller.Controller{RootController{}},
	})
	app.RequireRegister(ctx, trellis.NewDIModule(), adapter)
	app.RequireInit(ctx)

	assert.Len(t, adapter.Endpoints(), 1)
}
