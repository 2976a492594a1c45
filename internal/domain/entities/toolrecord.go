package entities

import "time"

// ToolExecutionRecord archives one tool run alongside the assistant
// message that requested it. Owned by value, never referenced.
type ToolExecutionRecord struct {
	Name          string        `json:"name" bson:"name"`
	InputSummary  string        `json:"input_summary" bson:"input_summary"`
	ResultSummary string        `json:"result_summary" bson:"result_summary"`
	Success       bool          `json:"success" bson:"success"`
	Duration      time.Duration `json:"duration" bson:"duration"`
}

const maxSummaryLen = 200

// NewToolExecutionRecord truncates both summaries so archived records
// stay small regardless of tool output size.
func NewToolExecutionRecord(name, input, result string, success bool, duration time.Duration) ToolExecutionRecord {
	return ToolExecutionRecord{
		Name:          name,
		InputSummary:  summarize(input),
		ResultSummary: summarize(result),
		Success:       success,
		Duration:      duration,
	}
}

func summarize(s string) string {
	if len(s) <= maxSummaryLen {
		return s
	}
	return s[:maxSummaryLen] + "..."
}
