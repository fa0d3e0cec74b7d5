package controller

import (
	"encoding/json"
	"maps"
	"strings"

	"github.com/danpasecinic/trellis"
)

type Params map[string]string

// Request is the router independent view of an HTTP request. Once the
// request has been served it becomes read-only and every setter fails.
type Request struct {
	readOnly bool

	id           string
	method       string
	path         string
	adapter      *Adapter
	query        Params
	pathParams   Params
	postParams   Params
	headers      Params
	jsonBody     string
	parsedJSON   any
	authMetadata any
}

func NewRequest() *Request {
	return &Request{
		query:      Params{},
		pathParams: Params{},
		postParams: Params{},
		headers:    Params{},
	}
}

func (r *Request) checkReadOnly() error {
	if r.readOnly {
		return trellis.NewError(trellis.ErrCodeReadOnly, "request is read-only once served", nil)
	}
	return nil
}

func (r *Request) ID() string { return r.id }
func (r *Request) Method() string { return r.method }
func (r *Request) Path() string { return r.path }
func (r *Request) Adapter() *Adapter { return r.adapter }
func (r *Request) Query() Params { return r.query }
func (r *Request) PathParams() Params { return r.pathParams }
func (r *Request) PostParams() Params { return r.postParams }
func (r *Request) Headers() Params { return r.headers }
func (r *Request) JSONBody() string { return r.jsonBody }
func (r *Request) ParsedJSON() any { return r.parsedJSON }
func (r *Request) AuthMetadata() any { return r.authMetadata }
func (r *Request) IsReadOnly() bool { return r.readOnly }

func (r *Request) Header(name string) string {
	return r.headers[strings.ToLower(name)]
}

func (r *Request) SetID(id string) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	r.id = id
	return nil
}

func (r *Request) SetMethod(method string) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	r.method = method
	return nil
}

func (r *Request) SetPath(path string) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	r.path = path
	return nil
}

func (r *Request) SetAdapter(a *Adapter) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	r.adapter = a
	return nil
}

func (r *Request) SetQuery(p Params) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	r.query = p
	return nil
}

func (r *Request) SetPathParams(p Params) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	r.pathParams = p
	return nil
}

func (r *Request) SetPostParams(p Params) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	r.postParams = p
	return nil
}

// SetHeaders stores the headers with lower-cased names.
func (r *Request) SetHeaders(p Params) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	headers := make(Params, len(p))
	for k, v := range p {
		headers[strings.ToLower(k)] = v
	}
	r.headers = headers
	return nil
}

func (r *Request) SetJSONBody(body string) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	r.jsonBody = body
	return nil
}

func (r *Request) SetParsedJSON(v any) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	r.parsedJSON = v
	return nil
}

func (r *Request) SetAuthMetadata(v any) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	r.authMetadata = v
	return nil
}

// MakeReadOnly freezes the request.
func (r *Request) MakeReadOnly() {
	r.readOnly = true
}

// RequestBuilder assembles a Request. The first failing step is kept and
// returned by Build.
type RequestBuilder struct {
	req *Request
	err error
}

func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{req: NewRequest()}
}

func (b *RequestBuilder) apply(fn func(*Request) error) *RequestBuilder {
	if b.err == nil {
		b.err = fn(b.req)
	}
	return b
}

func (b *RequestBuilder) WithID(id string) *RequestBuilder {
	return b.apply(func(r *Request) error { return r.SetID(id) })
}

func (b *RequestBuilder) WithMethod(method string) *RequestBuilder {
	return b.apply(func(r *Request) error { return r.SetMethod(method) })
}

func (b *RequestBuilder) WithPath(path string) *RequestBuilder {
	return b.apply(func(r *Request) error { return r.SetPath(path) })
}

func (b *RequestBuilder) WithAdapter(a *Adapter) *RequestBuilder {
	return b.apply(func(r *Request) error { return r.SetAdapter(a) })
}

func (b *RequestBuilder) WithQuery(p Params) *RequestBuilder {
	return b.apply(func(r *Request) error { return r.SetQuery(maps.Clone(p)) })
}

func (b *RequestBuilder) WithPathParams(p Params) *RequestBuilder {
	return b.apply(func(r *Request) error { return r.SetPathParams(maps.Clone(p)) })
}

func (b *RequestBuilder) WithPostParams(p Params) *RequestBuilder {
	return b.apply(func(r *Request) error { return r.SetPostParams(maps.Clone(p)) })
}

func (b *RequestBuilder) WithHeaders(p Params) *RequestBuilder {
	return b.apply(func(r *Request) error { return r.SetHeaders(p) })
}

func (b *RequestBuilder) WithJSONBody(body string) *RequestBuilder {
	return b.apply(func(r *Request) error { return r.SetJSONBody(body) })
}

func (b *RequestBuilder) WithParsedJSON(v any) *RequestBuilder {
	return b.apply(func(r *Request) error { return r.SetParsedJSON(v) })
}

// WithSelfParsedJSON decodes the JSON body set by WithJSONBody.
func (b *RequestBuilder) WithSelfParsedJSON() *RequestBuilder {
	return b.apply(func(r *Request) error {
		if r.jsonBody == "" {
			return trellis.NewError(trellis.ErrCodeBadInput, "WithSelfParsedJSON needs a JSON body, call WithJSONBody first", nil)
		}
		var v any
		if err := json.Unmarshal([]byte(r.jsonBody), &v); err != nil {
			return trellis.NewError(trellis.ErrCodeBadInput, "request body is not valid JSON", err)
		}
		return r.SetParsedJSON(v)
	})
}

func (b *RequestBuilder) WithReadOnly() *RequestBuilder {
	return b.apply(func(r *Request) error {
		r.MakeReadOnly()
		return nil
	})
}

func (b *RequestBuilder) Build() (*Request, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.req, nil
}
