package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/antchfx/htmlquery"

	derrors "github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/observability"
)

func testClient(t *testing.T, server *httptest.Server, headers map[string]string) *Client {
	t.Helper()
	c := NewClient(time.Second, headers)
	c.http = server.Client()
	return c
}

func TestNewClient(t *testing.T) {
	headers := map[string]string{"User-Agent": "test"}
	client := NewClient(0, headers)

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.http == nil {
		t.Fatal("NewClient() http client is nil")
	}
	if client.http.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.http.Timeout, DefaultTimeout)
	}
	if client.headers["User-Agent"] != "test" {
		t.Error("NewClient() headers not set correctly")
	}
}

func TestNewClientNilHeaders(t *testing.T) {
	client := NewClient(5*time.Second, nil)
	if client.headers != nil {
		t.Error("NewClient() should allow nil headers")
	}
	if client.http.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", client.http.Timeout)
	}
}

func TestClientGet(t *testing.T) {
	type response struct {
		Message string `json:"message"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(response{Message: "hello"})
	}))
	defer server.Close()

	var resp response
	if err := testClient(t, server, nil).Get(context.Background(), server.URL, &resp); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("Get() message = %q, want %q", resp.Message, "hello")
	}
}

func TestClientGetBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	var resp map[string]string
	err := testClient(t, server, nil).Get(context.Background(), server.URL, &resp)
	if !derrors.Is(err, derrors.ErrCodeScrape) {
		t.Errorf("Get() error = %v, want SCRAPE_ERROR", err)
	}
}

func TestClientSendsDefaultHeaders(t *testing.T) {
	var received string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := testClient(t, server, DefaultHeaders())
	if _, err := client.GetText(context.Background(), server.URL); err != nil {
		t.Fatalf("GetText() error: %v", err)
	}
	if received != UserAgent() {
		t.Errorf("User-Agent = %q, want %q", received, UserAgent())
	}
}

func TestClientGetText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("PORTVERSION?=\t1.16.0\n"))
	}))
	defer server.Close()

	text, err := testClient(t, server, nil).GetText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetText() error: %v", err)
	}
	if text != "PORTVERSION?=\t1.16.0\n" {
		t.Errorf("GetText() = %q", text)
	}
}

func TestClientGetHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>Package: rustc (1.14.0+dfsg1-1)</h1></body></html>`))
	}))
	defer server.Close()

	doc, err := testClient(t, server, nil).GetHTML(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetHTML() error: %v", err)
	}
	h1 := htmlquery.FindOne(doc, "//h1")
	if h1 == nil {
		t.Fatal("GetHTML() document has no h1")
	}
	if got := htmlquery.InnerText(h1); got != "Package: rustc (1.14.0+dfsg1-1)" {
		t.Errorf("h1 = %q", got)
	}
}

func TestClientGet404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	var resp map[string]string
	err := testClient(t, server, nil).Get(context.Background(), server.URL, &resp)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if !derrors.Is(err, derrors.ErrCodeNotFound) {
		t.Errorf("Get() error = %v, want NOT_FOUND", err)
	}
}

func TestClientGet500(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(t, server, nil).GetText(context.Background(), server.URL)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("GetText() error = %v, want ErrNetwork", err)
	}
	if !derrors.Is(err, derrors.ErrCodeNetwork) {
		t.Errorf("GetText() error = %v, want NETWORK_ERROR", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want exactly 1", calls)
	}
}

func TestClientConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	client := testClient(t, server, nil)
	server.Close()

	_, err := client.GetText(context.Background(), url)
	if !derrors.Is(err, derrors.ErrCodeNetwork) {
		t.Errorf("GetText() error = %v, want NETWORK_ERROR", err)
	}
}

func TestClientCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(t, server, nil).GetText(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("GetText() error = %v, want context.Canceled", err)
	}
}

func TestClientGetConditional(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"abc"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"abc"`)
		w.Write([]byte("payload"))
	}))
	defer server.Close()
	client := testClient(t, server, nil)

	t.Run("miss", func(t *testing.T) {
		res, err := client.GetConditional(context.Background(), server.URL, "")
		if err != nil {
			t.Fatalf("GetConditional() error: %v", err)
		}
		defer res.Body.Close()
		if res.NotModified {
			t.Error("NotModified = true, want false")
		}
		if res.ETag != `"abc"` {
			t.Errorf("ETag = %q, want %q", res.ETag, `"abc"`)
		}
		data, _ := io.ReadAll(res.Body)
		if string(data) != "payload" {
			t.Errorf("body = %q, want payload", data)
		}
	})

	t.Run("not modified", func(t *testing.T) {
		res, err := client.GetConditional(context.Background(), server.URL, `"abc"`)
		if err != nil {
			t.Fatalf("GetConditional() error: %v", err)
		}
		if !res.NotModified {
			t.Error("NotModified = false, want true")
		}
		if res.Body != nil {
			t.Error("Body should be nil when not modified")
		}
		if res.ETag != `"abc"` {
			t.Errorf("ETag = %q, want %q", res.ETag, `"abc"`)
		}
	})
}

func TestClientEmitsHTTPHooks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	hooks := &recordingHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	testClient(t, server, nil).GetText(context.Background(), server.URL+"/jessie/rustc")

	if hooks.requests != 1 {
		t.Errorf("requests = %d, want 1", hooks.requests)
	}
	if hooks.status != http.StatusTeapot {
		t.Errorf("status = %d, want %d", hooks.status, http.StatusTeapot)
	}
	if hooks.path != "/jessie/rustc" {
		t.Errorf("path = %q, want /jessie/rustc", hooks.path)
	}
}

type recordingHooks struct {
	observability.NoopHTTPHooks
	requests int
	status   int
	path     string
}

func (h *recordingHooks) OnRequest(_ context.Context, _, _, path string) {
	h.requests++
	h.path = path
}

func (h *recordingHooks) OnResponse(_ context.Context, _, _, _ string, status int, _ time.Duration) {
	h.status = status
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		wantErr  bool
		wantType error
		wantCode derrors.Code
	}{
		{name: "200 OK", code: 200},
		{name: "404 Not Found", code: 404, wantErr: true, wantType: ErrNotFound, wantCode: derrors.ErrCodeNotFound},
		{name: "500 Internal Server Error", code: 500, wantErr: true, wantType: ErrNetwork, wantCode: derrors.ErrCodeNetwork},
		{name: "503 Service Unavailable", code: 503, wantErr: true, wantType: ErrNetwork, wantCode: derrors.ErrCodeNetwork},
		{name: "403 Forbidden", code: 403, wantErr: true, wantType: ErrNetwork, wantCode: derrors.ErrCodeNetwork},
		{name: "204 No Content", code: 204, wantErr: true, wantType: ErrNetwork, wantCode: derrors.ErrCodeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStatus(tt.code)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("checkStatus() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantType) {
				t.Errorf("checkStatus() error = %v, want %v", err, tt.wantType)
			}
			if got := derrors.GetCode(err); got != tt.wantCode {
				t.Errorf("checkStatus() code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}
