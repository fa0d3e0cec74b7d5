package controller

import (
	"net/http"
	"sync"
)

// Response is what handlers, filters and serializers write to. Router
// adapters turn it into an HTTP response once the request is served.
type Response interface {
	SetHeader(name, value string) Response
	SetStatus(status int, text string) Response
	Body() any
	SetBody(body any) Response
}

// RecordedResponse keeps everything in memory.
type RecordedResponse struct {
	mu         sync.Mutex
	status     int
	statusText string
	header     http.Header
	body       any
}

func NewRecordedResponse() *RecordedResponse {
	return &RecordedResponse{
		status: http.StatusOK,
		header: make(http.Header),
	}
}

func (r *RecordedResponse) SetHeader(name, value string) Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.header.Set(name, value)
	return r
}

// SetStatus records the status code. An empty text means the standard
// status text.
func (r *RecordedResponse) SetStatus(status int, text string) Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status = status
	r.statusText = text
	return r
}

func (r *RecordedResponse) Body() any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.body
}

func (r *RecordedResponse) SetBody(body any) Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.body = body
	return r
}

func (r *RecordedResponse) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

func (r *RecordedResponse) StatusText() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.statusText == "" {
		return http.StatusText(r.status)
	}
	return r.statusText
}

// Header returns a copy of the recorded headers.
func (r *RecordedResponse) Header() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.header.Clone()
}
