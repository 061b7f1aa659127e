package transport

import (
	"context"
	"net/http"
	"time"
)

type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    []byte
	// Signer, when set, signs the final http request after headers are applied.
	Signer               RequestSigner
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

type Adapter interface {
	Kind() string
	Do(ctx context.Context, req Request) (Response, error)
}

type RequestSigner interface {
	Sign(ctx context.Context, req *http.Request, body []byte) error
}
