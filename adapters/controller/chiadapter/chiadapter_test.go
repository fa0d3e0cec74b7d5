package chiadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/trellis"
	"github.com/danpasecinic/trellis/adapters/controller"
	"github.com/danpasecinic/trellis/adapters/controller/chiadapter"
	"github.com/danpasecinic/trellis/trellistest"
)

type Store struct {
	items map[string]string
}

func (s *Store) HealthCheck(context.Context) error {
	if s.items == nil {
		return errors.New("store not loaded")
	}
	return nil
}

type ItemController struct {
	Store *Store `inject:""`
}

func (c *ItemController) Prefix() string { return "/items" }

func (c *ItemController) Routes() []controller.Route {
	return []controller.Route{
		controller.GET(":id", c.get).WithProduces(controller.MediaTypeJSON),
		controller.POST("", c.create).WithProduces(controller.MediaTypeJSON),
		controller.GET("search", c.search).WithProduces(controller.MediaTypeText),
	}
}

func (c *ItemController) get(_ context.Context, req *controller.Request, res controller.Response) (any, error) {
	item, ok := c.Store.items[req.PathParams()["id"]]
	if !ok {
		res.SetStatus(http.StatusNotFound, "")
		return map[string]string{"error": "not found"}, nil
	}
	return map[string]string{"id": req.PathParams()["id"], "name": item}, nil
}

func (c *ItemController) create(_ context.Context, req *controller.Request, res controller.Response) (any, error) {
	body, ok := req.ParsedJSON().(map[string]any)
	if !ok {
		return nil, trellis.NewError(trellis.ErrCodeBadInput, "expected a JSON object", nil)
	}
	id := body["id"].(string)
	c.Store.items[id] = body["name"].(string)
	res.SetStatus(http.StatusCreated, "")
	return map[string]string{"id": id}, nil
}

func (c *ItemController) search(_ context.Context, req *controller.Request, _ controller.Response) (any, error) {
	return "query=" + req.Query()["q"] + " agent=" + req.Header("User-Agent"), nil
}

func newApp(t *testing.T, opts chiadapter.Options) (*trellistest.TestApp, *chiadapter.Adapter, *Store) {
	t.Helper()

	ctx := context.Background()
	store := &Store{items: map[string]string{"1": "apple"}}
	opts.Controllers = append(opts.Controllers, &ItemController{})

	app := trellistest.New(t)
	adapter := chiadapter.New(opts)
	app.RequireRegister(ctx, trellis.NewDIModule(trellis.NewInstance(store)), adapter)
	app.RequireInit(ctx)
	return app, adapter, store
}

func TestRoutePattern(t *testing.T) {
	assert.Equal(t, "/items/{id}", chiadapter.RoutePattern("/items/:id"))
	assert.Equal(t, "/items", chiadapter.RoutePattern("/items/"))
	assert.Equal(t, "/", chiadapter.RoutePattern("/"))
	assert.Equal(t, "/a/{b}/c/{d}", chiadapter.RoutePattern("/a/:b/c/:d"))
}

func TestServeThroughExternalRouter(t *testing.T) {
	router := chi.NewRouter()
	_, _, store := newApp(t, chiadapter.Options{Router: router})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"1","name":"apple"}`, rec.Body.String())
	assert.Equal(t, "application/json;charset=UTF-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(chiadapter.RequestIDHeader))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"id":"2","name":"pear"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(chiadapter.RequestIDHeader, "req-42")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(chiadapter.RequestIDHeader))
	assert.Equal(t, "pear", store.items["2"])
}

func TestNotFoundStatusFromHandler(t *testing.T) {
	router := chi.NewRouter()
	newApp(t, chiadapter.Options{Router: router})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}

func TestQueryAndHeaders(t *testing.T) {
	router := chi.NewRouter()
	newApp(t, chiadapter.Options{Router: router})

	req := httptest.NewRequest(http.MethodGet, "/items/search?q=red", nil)
	req.Header.Set("User-Agent", "tester")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "query=red agent=tester", rec.Body.String())
	assert.Equal(t, "text/plain;charset=UTF-8", rec.Header().Get("Content-Type"))
}

func TestBadJSONBody(t *testing.T) {
	router := chi.NewRouter()
	newApp(t, chiadapter.Options{Router: router})

	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{broken`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthPath(t *testing.T) {
	router := chi.NewRouter()
	_, _, store := newApp(t, chiadapter.Options{Router: router, HealthPath: "/health"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "up", body.Status)
	require.Len(t, body.Checks, 1)

	store.items = nil
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerLifecycle(t *testing.T) {
	app, adapter, _ := newApp(t, chiadapter.Options{ListenAddr: "127.0.0.1:0"})

	addr := adapter.Addr()
	require.NotEmpty(t, addr)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/items/1")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"1","name":"apple"}`, string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))
	assert.Empty(t, adapter.Addr())
}
