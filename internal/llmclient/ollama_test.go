package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOllamaChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"response":"hello there","done":true}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3", time.Second)
	out, err := c.Chat(context.Background(), "sys", "user", ChatOptions{})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != "hello there" {
		t.Fatalf("got %q", out)
	}
}

func TestOllamaChat_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":"  ","done":true}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3", time.Second)
	if _, err := c.Chat(context.Background(), "", "u", ChatOptions{}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("want ErrEmptyResponse, got %v", err)
	}
}

func TestOllamaChatStream_NDJSONFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"one ","done":false}`)
		fmt.Fprintln(w, `{"response":"two","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3", time.Second)
	var sb strings.Builder
	err := c.ChatStream(context.Background(), "", "u", ChatOptions{}, func(f string) {
		sb.WriteString(f)
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if sb.String() != "one two" {
		t.Fatalf("got %q", sb.String())
	}
}

func TestOllamaStatusError_NotFoundIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "missing", time.Second)
	_, err := c.Chat(context.Background(), "", "u", ChatOptions{})
	var perm *PermanentError
	if !errors.As(err, &perm) {
		t.Fatalf("404 must be permanent, got %v", err)
	}
}

func TestOllamaStatusError_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3", time.Second)
	_, err := c.Chat(context.Background(), "", "u", ChatOptions{})
	if err == nil {
		t.Fatalf("expected error")
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		t.Fatalf("500 must stay retryable: %v", err)
	}
}

func TestListOllamaModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"models":[{"name":"llama3:latest","size":4661224676},{"name":"qwen2:7b","size":4431388276}]}`)
	}))
	defer srv.Close()

	models, err := ListOllamaModels(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(models) != 2 || models[0].Name != "llama3:latest" || models[0].SizeBytes == 0 {
		t.Fatalf("got %+v", models)
	}
}
