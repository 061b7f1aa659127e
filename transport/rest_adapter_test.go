package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-splitpay/core"
)

type headerSigner struct {
	body []byte
}

func (s *headerSigner) Sign(_ context.Context, req *http.Request, body []byte) error {
	s.body = append([]byte(nil), body...)
	req.Header.Set("Signature", "sig1=:"+req.Method+":")
	return nil
}

func TestRESTAdapter_DoSendsMethodHeadersAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST method, got %s", r.Method)
		}
		if got := r.URL.Query().Get("q"); got != "search" {
			t.Errorf("expected query value, got %q", got)
		}
		if got := r.Header.Get("X-Test"); got != "value" {
			t.Errorf("expected header value, got %q", got)
		}
		if got := r.Header.Get("Signature"); got != "sig1=:POST:" {
			t.Errorf("expected signature header, got %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
		}
		if string(body) != "payload" {
			t.Errorf("expected request body payload")
		}
		w.Header().Set("X-Server", "ok")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("done"))
	}))
	defer server.Close()

	signer := &headerSigner{}
	adapter := NewRESTAdapter(server.Client())
	result, err := adapter.Do(context.Background(), Request{
		Method: "POST",
		URL:    server.URL,
		Query:  map[string]string{"q": "search"},
		Headers: map[string]string{
			"X-Test": "value",
		},
		Body:    []byte("payload"),
		Signer:  signer,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("perform rest request: %v", err)
	}
	if result.StatusCode != http.StatusAccepted || !result.OK() {
		t.Fatalf("expected accepted status, got %d", result.StatusCode)
	}
	if string(result.Body) != "done" {
		t.Fatalf("unexpected response body: %q", string(result.Body))
	}
	if result.Headers["X-Server"] != "ok" {
		t.Fatalf("expected response header")
	}
	if string(signer.body) != "payload" {
		t.Fatalf("expected signer to see the request body, got %q", string(signer.body))
	}
}

func TestRESTAdapter_KeepsURLWhenNoQueryIsAdded(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	if _, err := adapter.Do(context.Background(), Request{URL: server.URL + "/x?b=2&a=1"}); err != nil {
		t.Fatalf("perform rest request: %v", err)
	}
	if seen != "b=2&a=1" {
		t.Fatalf("expected raw query untouched, got %q", seen)
	}
}

func TestNewRESTAdapter_DefaultClientTimeout(t *testing.T) {
	adapter := NewRESTAdapter(nil)
	httpClient, ok := adapter.Client.(*http.Client)
	if !ok {
		t.Fatalf("expected default http client implementation")
	}
	if httpClient.Timeout != defaultRESTClientTimeout {
		t.Fatalf("expected default timeout %s, got %s", defaultRESTClientTimeout, httpClient.Timeout)
	}
	if adapter.MaxResponseBodyBytes != defaultRESTResponseBodyLimit {
		t.Fatalf("expected default response body limit %d, got %d", defaultRESTResponseBodyLimit, adapter.MaxResponseBodyBytes)
	}
}

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}
	if !strings.Contains(err.Error(), "response body exceeds limit of 4 bytes") {
		t.Fatalf("unexpected error: %v", err)
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.ServiceErrorResolutionFailed {
		t.Fatalf("expected %q text code, got %q", core.ServiceErrorResolutionFailed, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTAdapter_RequestBodyLimitOverridesAdapterLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 1024

	_, err := adapter.Do(context.Background(), Request{
		Method:               "GET",
		URL:                  server.URL,
		MaxResponseBodyBytes: 4,
	})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}
	if !strings.Contains(err.Error(), "response body exceeds limit of 4 bytes") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRESTAdapter_RejectsRelativeURL(t *testing.T) {
	adapter := NewRESTAdapter(nil)
	_, err := adapter.Do(context.Background(), Request{URL: "/incoming-payments"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %v", err)
	}
	if rich.Category != goerrors.CategoryBadInput || rich.TextCode != core.ServiceErrorBadInput {
		t.Fatalf("unexpected error envelope %q/%q", rich.Category, rich.TextCode)
	}
}

func TestRESTAdapter_NilReturnsRichError(t *testing.T) {
	var adapter *RESTAdapter
	_, err := adapter.Do(context.Background(), Request{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.ServiceErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.ServiceErrorInternal, rich.TextCode)
	}
}

func TestStatusError_CarriesUpstreamStatusAndDetail(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		category goerrors.Category
		detail   string
	}{
		{
			name:     "gnap error object",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":"invalid_client","description":"unknown key"}}`,
			category: goerrors.CategoryBadInput,
			detail:   "invalid_client: unknown key",
		},
		{
			name:     "plain error string",
			status:   http.StatusUnauthorized,
			body:     `{"error":"invalid_token"}`,
			category: goerrors.CategoryAuth,
			detail:   "invalid_token",
		},
		{
			name:     "message field",
			status:   http.StatusTooManyRequests,
			body:     `{"message":"slow down"}`,
			category: goerrors.CategoryRateLimit,
			detail:   "slow down",
		},
		{
			name:     "non json",
			status:   http.StatusServiceUnavailable,
			body:     `maintenance`,
			category: goerrors.CategoryExternal,
			detail:   "maintenance",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := StatusError(Response{StatusCode: tt.status, Body: []byte(tt.body)}, map[string]any{"step": "x"})
			var rich *goerrors.Error
			if !goerrors.As(err, &rich) {
				t.Fatalf("expected go-errors envelope, got %T", err)
			}
			if rich.Code != tt.status {
				t.Fatalf("expected code %d, got %d", tt.status, rich.Code)
			}
			if rich.Category != tt.category {
				t.Fatalf("expected category %q, got %q", tt.category, rich.Category)
			}
			if !strings.Contains(rich.Message, tt.detail) {
				t.Fatalf("expected message to contain %q, got %q", tt.detail, rich.Message)
			}
			if rich.Metadata["step"] != "x" || rich.Metadata["status_code"] != tt.status {
				t.Fatalf("unexpected metadata %#v", rich.Metadata)
			}
		})
	}
}
