package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDashScopeCallSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req dashScopeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(req.Input.Messages) != 1 || req.Input.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Input.Messages)
		}
		if req.Parameters.ResultFormat != "message" {
			t.Errorf("result_format = %q", req.Parameters.ResultFormat)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"output": {"choices": [{"message": {"role": "assistant", "content": "the reply"}}]},
			"usage": {"input_tokens": 9, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	c := newDashScope(Config{Provider: ProviderAlibaba, APIKey: "test-key", BaseURL: srv.URL})

	reply, usage, err := c.Call(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "the reply" {
		t.Errorf("reply = %q", reply)
	}
	if usage.InputTokens != 9 || usage.OutputTokens != 4 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestDashScopeCallTextFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": {"text": "plain text reply"}}`))
	}))
	defer srv.Close()

	c := newDashScope(Config{Provider: ProviderAlibaba, APIKey: "test-key", BaseURL: srv.URL})

	reply, usage, err := c.Call(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "plain text reply" {
		t.Errorf("reply = %q", reply)
	}
	if !usage.Estimated {
		t.Error("expected estimated usage when the envelope has no counts")
	}
}

func TestDashScopeCallErrorKinds(t *testing.T) {
	tests := []struct {
		status   int
		expected Kind
	}{
		{401, KindAuth},
		{429, KindRateLimited},
		{500, KindServer},
		{400, KindMalformed},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(`{"code": "Whoops", "message": "nope"}`))
		}))

		c := newDashScope(Config{Provider: ProviderAlibaba, APIKey: "test-key", BaseURL: srv.URL})
		_, _, err := c.Call(context.Background(), "hello")
		srv.Close()

		if KindOf(err) != tt.expected {
			t.Errorf("status %d: kind = %q, want %q", tt.status, KindOf(err), tt.expected)
		}
	}
}

func TestDashScopeCallEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": {}}`))
	}))
	defer srv.Close()

	c := newDashScope(Config{Provider: ProviderAlibaba, APIKey: "test-key", BaseURL: srv.URL})
	_, _, err := c.Call(context.Background(), "hello")
	if KindOf(err) != KindMalformed {
		t.Errorf("expected malformed error, got %v", err)
	}
}
