package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/velocity-9/v9-router/internal/component"
	"github.com/velocity-9/v9-router/internal/routererr"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func testClient(rt roundTripperFunc) *Client {
	return NewWithHTTPClient("http://worker-a/", 2*time.Second, &http.Client{Transport: rt})
}

func TestListComponents(t *testing.T) {
	client := testClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodGet {
			t.Fatalf("method=%s", req.Method)
		}
		if req.URL.Path != "/meta/status" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		body := `{
			"active_components": [
				{"id": {"path": {"user": "alice", "repo": "app"}}, "extra": "ignored"},
				{"id": {"path": {"user": "bob", "repo": "tool"}}}
			],
			"uptime": 12345
		}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(bytes.NewBufferString(body)),
		}, nil
	})

	paths, err := client.ListComponents(context.Background())
	if err != nil {
		t.Fatalf("ListComponents: %v", err)
	}
	want := []component.Path{
		{User: "alice", Repo: "app"},
		{User: "bob", Repo: "tool"},
	}
	if len(paths) != len(want) {
		t.Fatalf("len=%d", len(paths))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("paths[%d]=%v want %v", i, paths[i], want[i])
		}
	}
}

func TestListComponentsDecodeError(t *testing.T) {
	client := testClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString("not json")),
		}, nil
	})

	_, err := client.ListComponents(context.Background())
	var rerr *routererr.Error
	if !errors.As(err, &rerr) || rerr.Kind != routererr.KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestListComponentsNetworkError(t *testing.T) {
	client := testClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := client.ListComponents(context.Background())
	var rerr *routererr.Error
	if !errors.As(err, &rerr) || rerr.Kind != routererr.KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestForward(t *testing.T) {
	client := testClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost {
			t.Fatalf("method=%s", req.Method)
		}
		if req.URL.Path != "/sl/alice/app/run" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if req.URL.RawQuery != "x=1" {
			t.Fatalf("query=%q", req.URL.RawQuery)
		}
		if ct := req.Header.Get("Content-Type"); ct != "text/plain" {
			t.Fatalf("content-type=%q", ct)
		}
		body, _ := io.ReadAll(req.Body)
		if string(body) != "hi" {
			t.Fatalf("body=%q", body)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString("ok")),
		}, nil
	})

	status, body, err := client.Forward(context.Background(), component.Request{
		Verb:        http.MethodPost,
		Query:       "x=1",
		Body:        []byte("hi"),
		ContentType: "text/plain",
		Path:        component.Path{User: "alice", Repo: "app"},
		Method:      "run",
	})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if status != http.StatusOK || string(body) != "ok" {
		t.Fatalf("status=%d body=%q", status, body)
	}
}

func TestForwardNoQuery(t *testing.T) {
	client := testClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.RawQuery != "" {
			t.Fatalf("query=%q", req.URL.RawQuery)
		}
		if req.Header.Get("Content-Type") != "" {
			t.Fatalf("unexpected content-type header")
		}
		return &http.Response{
			StatusCode: http.StatusNoContent,
			Body:       io.NopCloser(bytes.NewReader(nil)),
		}, nil
	})

	status, _, err := client.Forward(context.Background(), component.Request{
		Verb:   http.MethodGet,
		Path:   component.Path{User: "alice", Repo: "app"},
		Method: "run",
	})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if status != http.StatusNoContent {
		t.Fatalf("status=%d", status)
	}
}

// A worker 404 is a normal return value at this layer, never an error.
func TestForwardStatusIsData(t *testing.T) {
	client := testClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(bytes.NewBufferString("v9: worker 404")),
		}, nil
	})

	status, body, err := client.Forward(context.Background(), component.Request{
		Verb:   http.MethodGet,
		Path:   component.Path{User: "alice", Repo: "app"},
		Method: "run",
	})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if status != http.StatusNotFound || string(body) != "v9: worker 404" {
		t.Fatalf("status=%d body=%q", status, body)
	}
}

func TestForwardNetworkError(t *testing.T) {
	client := testClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial timeout")
	})

	_, _, err := client.Forward(context.Background(), component.Request{
		Verb:   http.MethodGet,
		Path:   component.Path{User: "alice", Repo: "app"},
		Method: "run",
	})
	var rerr *routererr.Error
	if !errors.As(err, &rerr) || rerr.Kind != routererr.KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestBaseURLTrailingSlashTrimmed(t *testing.T) {
	c := New("http://worker-a/", 0)
	if c.BaseURL() != "http://worker-a" {
		t.Fatalf("baseURL=%q", c.BaseURL())
	}
}
