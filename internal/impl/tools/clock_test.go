package tools

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestClockTool_Execute(t *testing.T) {
	tool := NewClockTool("clock", "Current date and time", map[string]string{}, zap.NewNop())
	tool.now = func() time.Time {
		return time.Date(2026, 8, 29, 14, 25, 0, 0, time.UTC)
	}

	result, err := tool.Execute(`{"timezone": "UTC"}`)
	if err != nil {
		t.Fatalf("Failed to execute clock tool: %v", err)
	}

	expected := "Saturday, August 29, 2026 14:25:00 UTC"
	if result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

func TestClockTool_ExecuteWithZone(t *testing.T) {
	tool := NewClockTool("clock", "Current date and time", map[string]string{}, zap.NewNop())
	tool.now = func() time.Time {
		return time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	}

	result, err := tool.Execute(`{"timezone": "Asia/Seoul"}`)
	if err != nil {
		t.Fatalf("Failed to execute clock tool: %v", err)
	}

	// Seoul is UTC+9, so midnight UTC is 09:00 local
	if !strings.Contains(result, "09:00:00") {
		t.Errorf("Expected Seoul local time in result, got %q", result)
	}
}

func TestClockTool_ExecuteUnknownZone(t *testing.T) {
	tool := NewClockTool("clock", "Current date and time", map[string]string{}, zap.NewNop())

	_, err := tool.Execute(`{"timezone": "Mars/Olympus"}`)
	if err == nil {
		t.Error("Expected error for unknown time zone")
	}
}

func TestClockTool_ExecuteEmptyArguments(t *testing.T) {
	tool := NewClockTool("clock", "Current date and time", map[string]string{}, zap.NewNop())

	result, err := tool.Execute("")
	if err != nil {
		t.Fatalf("Failed to execute clock tool without arguments: %v", err)
	}
	if result == "" {
		t.Error("Expected a formatted timestamp")
	}
}
