package tools

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestFetchTool_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "Dochi/") {
			t.Errorf("Expected default user agent, got %q", ua)
		}
		w.Write([]byte("hello from server"))
	}))
	defer server.Close()

	tool := NewFetchTool("fetch", "HTTP fetch", map[string]string{}, zap.NewNop())

	result, err := tool.Execute(`{"operation": "GET", "url": "` + server.URL + `"}`)
	if err != nil {
		t.Fatalf("Failed to execute fetch: %v", err)
	}
	if !strings.Contains(result, "Status: 200 OK") {
		t.Errorf("Expected status line in result, got %q", result)
	}
	if !strings.Contains(result, "hello from server") {
		t.Errorf("Expected response body in result, got %q", result)
	}
}

func TestFetchTool_PostWithHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	tool := NewFetchTool("fetch", "HTTP fetch", map[string]string{}, zap.NewNop())

	args := `{"operation": "POST", "url": "` + server.URL + `", "headers": ["Content-Type: application/json"], "body": "{\"ok\": true}"}`
	result, err := tool.Execute(args)
	if err != nil {
		t.Fatalf("Failed to execute fetch: %v", err)
	}
	if !strings.Contains(result, "Status: 201") {
		t.Errorf("Expected 201 status, got %q", result)
	}
}

func TestFetchTool_MissingArguments(t *testing.T) {
	tool := NewFetchTool("fetch", "HTTP fetch", map[string]string{}, zap.NewNop())

	if _, err := tool.Execute(`{"operation": "GET"}`); err == nil {
		t.Error("Expected error when url is missing")
	}
	if _, err := tool.Execute(`{"url": "http://example.com"}`); err == nil {
		t.Error("Expected error when operation is missing")
	}
	if _, err := tool.Execute(`{"operation": "PATCH", "url": "http://example.com"}`); err == nil {
		t.Error("Expected error for unsupported operation")
	}
}

func TestToolFactory(t *testing.T) {
	factory, err := NewToolFactory(zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create tool factory: %v", err)
	}

	tools, err := factory.ListTools()
	if err != nil {
		t.Fatalf("Failed to list tools: %v", err)
	}
	if len(tools) < 2 {
		t.Fatalf("Expected at least 2 registered tools, got %d", len(tools))
	}

	tool, err := factory.GetToolByName("Fetch")
	if err != nil {
		t.Fatalf("Failed to get fetch tool: %v", err)
	}
	if tool.Name() != "Fetch" {
		t.Errorf("Expected tool name Fetch, got %s", tool.Name())
	}

	if _, err := factory.GetToolByName("Nonexistent"); err == nil {
		t.Error("Expected error for unknown tool name")
	}
}
