package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/midagedev/dochi/internal/domain/entities"
	"github.com/midagedev/dochi/internal/domain/events"
	"github.com/midagedev/dochi/internal/domain/interfaces"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OpenAIIntegration talks to any OpenAI-compatible chat completions
// endpoint, including the tool-call loop.
type OpenAIIntegration struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	model      string
	registry   interfaces.ToolRegistry
	logger     *zap.Logger
	lastUsage  *entities.Usage
	totalUsage *entities.Usage
}

func NewOpenAIIntegration(baseURL, apiKey, model string, registry interfaces.ToolRegistry, logger *zap.Logger) (*OpenAIIntegration, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL cannot be empty")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey cannot be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	return &OpenAIIntegration{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 600 * time.Second},
		model:      model,
		registry:   registry,
		logger:     logger,
		lastUsage:  &entities.Usage{},
		totalUsage: &entities.Usage{},
	}, nil
}

// ModelName returns the name of the model being used
func (m *OpenAIIntegration) ModelName() string {
	return m.model
}

// convertToAPIMessages converts message entities to the wire format
func convertToAPIMessages(messages []*entities.Message) []map[string]any {
	apiMessages := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		apiMsg := map[string]any{
			"role": msg.Role,
		}
		if msg.Role == entities.RoleAssistant && len(msg.ToolCalls) > 0 {
			apiMsg["tool_calls"] = msg.ToolCalls
			if msg.Content == "" {
				apiMsg["content"] = "Executing tool call."
			} else {
				apiMsg["content"] = msg.Content
			}
		} else if len(msg.Images) > 0 {
			parts := []map[string]any{{"type": "text", "text": msg.Content}}
			for _, img := range msg.Images {
				url := img.URL
				if url == "" && img.Data != "" {
					url = fmt.Sprintf("data:%s;base64,%s", img.MimeType, img.Data)
				}
				parts = append(parts, map[string]any{
					"type":      "image_url",
					"image_url": map[string]any{"url": url},
				})
			}
			apiMsg["content"] = parts
		} else {
			apiMsg["content"] = msg.Content
			if msg.Role == entities.RoleTool {
				apiMsg["tool_call_id"] = msg.ToolCallID
			}
		}
		apiMessages = append(apiMessages, apiMsg)
	}
	return apiMessages
}

func toolDefinitions(toolList []entities.Tool) []map[string]any {
	tools := make([]map[string]any, len(toolList))
	for i, tool := range toolList {
		requiredFields := make([]string, 0)
		for _, param := range tool.Parameters() {
			if param.Required {
				requiredFields = append(requiredFields, param.Name)
			}
		}

		properties := make(map[string]any)
		for _, param := range tool.Parameters() {
			property := map[string]any{
				"type":        param.Type,
				"description": param.Description,
			}
			if len(param.Enum) > 0 {
				property["enum"] = param.Enum
			}
			if param.Type == "array" && len(param.Items) > 0 {
				property["items"] = map[string]any{
					"type": param.Items[0].Type,
				}
			}
			properties[param.Name] = property
		}

		tools[i] = map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        tool.Name(),
				"description": tool.Description(),
				"parameters": map[string]any{
					"type":       "object",
					"properties": properties,
					"required":   requiredFields,
				},
			},
		}
	}
	return tools
}

// GenerateResponse runs the chat completion, executing tool calls via
// the registry until the model responds with plain content. New
// messages are handed to the callback as they are produced.
func (m *OpenAIIntegration) GenerateResponse(ctx context.Context, messages []*entities.Message, toolList []entities.Tool, options map[string]any, callback interfaces.MessageCallback) ([]*entities.Message, error) {
	if ctx.Err() == context.Canceled {
		return nil, fmt.Errorf("operation canceled by user")
	}

	conversationID, _ := options["conversation_id"].(string)

	if len(toolList) == 0 && m.registry != nil {
		registered, err := m.registry.ListTools()
		if err != nil {
			m.logger.Warn("Failed to list registered tools", zap.Error(err))
		} else {
			toolList = registered
		}
	}

	reqBody := map[string]any{
		"model": m.model,
	}
	if tools := toolDefinitions(toolList); len(tools) > 0 {
		reqBody["tools"] = tools
	}
	for key, value := range options {
		if key == "conversation_id" {
			continue
		}
		reqBody[key] = value
	}

	apiMessages := convertToAPIMessages(messages)
	reqBody["messages"] = apiMessages

	var newMessages []*entities.Message

	// Loop to handle tool calls
	for {
		if ctx.Err() == context.Canceled {
			return newMessages, fmt.Errorf("operation canceled by user")
		}

		started := time.Now()
		choice, usage, err := m.complete(ctx, reqBody)
		if err != nil {
			return newMessages, err
		}
		latency := time.Since(started)

		m.lastUsage = &entities.Usage{
			Provider:         "openai-compatible",
			Model:            m.model,
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
			LatencyMS:        latency.Milliseconds(),
		}
		m.totalUsage.PromptTokens += usage.PromptTokens
		m.totalUsage.CompletionTokens += usage.CompletionTokens
		m.totalUsage.TotalTokens += usage.TotalTokens

		if len(choice.ToolCalls) == 0 {
			usageCopy := *m.lastUsage
			finalMessage := &entities.Message{
				ID:        uuid.New().String(),
				Role:      entities.RoleAssistant,
				Content:   choice.Content,
				Usage:     &usageCopy,
				Timestamp: time.Now(),
			}
			newMessages = append(newMessages, finalMessage)
			if callback != nil {
				if err := callback([]*entities.Message{finalMessage}); err != nil {
					m.logger.Warn("Message callback failed", zap.Error(err))
				}
			}
			break
		}

		// The model asked for tools: record the request, execute each
		// call, and feed the results back.
		content := choice.Content
		if content == "" {
			content = fmt.Sprintf("Executing %s tool with arguments: %s", choice.ToolCalls[0].Function.Name, choice.ToolCalls[0].Function.Arguments)
		}
		toolCallMessage := &entities.Message{
			ID:        uuid.New().String(),
			Role:      entities.RoleAssistant,
			Content:   content,
			ToolCalls: choice.ToolCalls,
			Timestamp: time.Now(),
		}

		apiMessages = append(apiMessages, map[string]any{
			"role":       "assistant",
			"content":    content,
			"tool_calls": choice.ToolCalls,
		})

		batch := []*entities.Message{toolCallMessage}
		for _, toolCall := range choice.ToolCalls {
			if ctx.Err() == context.Canceled {
				return newMessages, fmt.Errorf("operation canceled by user")
			}
			if toolCall.Type != "function" {
				continue
			}

			toolResult, record := m.executeTool(conversationID, toolCall)
			toolCallMessage.ToolRecords = append(toolCallMessage.ToolRecords, record)

			toolResponseMessage := &entities.Message{
				ID:         uuid.New().String(),
				Role:       entities.RoleTool,
				Content:    toolResult,
				ToolCallID: toolCall.ID,
				Timestamp:  time.Now(),
			}
			batch = append(batch, toolResponseMessage)

			apiMessages = append(apiMessages, map[string]any{
				"role":         "tool",
				"content":      toolResult,
				"tool_call_id": toolCall.ID,
			})
		}

		newMessages = append(newMessages, batch...)
		if callback != nil {
			if err := callback(batch); err != nil {
				m.logger.Warn("Message callback failed", zap.Error(err))
			}
		}

		reqBody["messages"] = apiMessages
	}

	return newMessages, nil
}

func (m *OpenAIIntegration) executeTool(conversationID string, toolCall entities.ToolCall) (string, entities.ToolExecutionRecord) {
	toolName := toolCall.Function.Name
	started := time.Now()

	var tool entities.Tool
	if m.registry != nil {
		tool, _ = m.registry.GetToolByName(toolName)
	}

	var toolResult string
	success := false
	if tool == nil {
		toolResult = fmt.Sprintf("Tool %s not found", toolName)
	} else {
		result, execErr := tool.Execute(toolCall.Function.Arguments)
		if execErr != nil {
			toolResult = fmt.Sprintf("Tool %s execution failed: %v", toolName, execErr)
		} else {
			toolResult = result
			success = true
		}
	}
	duration := time.Since(started)

	errMsg := ""
	if !success {
		errMsg = toolResult
	}
	events.PublishToolCallEvent(entities.NewToolCallEvent(
		conversationID, toolCall.ID, toolName, toolCall.Function.Arguments, toolResult, errMsg, nil,
	))

	return toolResult, entities.NewToolExecutionRecord(toolName, toolCall.Function.Arguments, toolResult, success, duration)
}

type completionChoice struct {
	Content   string              `json:"content"`
	ToolCalls []entities.ToolCall `json:"tool_calls,omitempty"`
}

type completionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// complete performs one request with retry on transient failures.
func (m *OpenAIIntegration) complete(ctx context.Context, reqBody map[string]any) (*completionChoice, *completionUsage, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling request: %v", err)
	}

	var resp *http.Response
	for attempt := 0; attempt < 3; attempt++ {
		if ctx.Err() == context.Canceled {
			return nil, nil, fmt.Errorf("operation canceled by user")
		}

		req, err := http.NewRequestWithContext(ctx, "POST", m.baseURL, bytes.NewBuffer(jsonBody))
		if err != nil {
			return nil, nil, fmt.Errorf("error creating request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+m.apiKey)

		resp, err = m.httpClient.Do(req)
		if err != nil {
			if attempt < 2 {
				m.logger.Warn("Error making request, retrying", zap.Error(err))
				time.Sleep(time.Duration(attempt+1) * time.Second)
				continue
			}
			return nil, nil, fmt.Errorf("error making request: %v", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt < 2 {
				time.Sleep(time.Duration(attempt+1) * time.Second)
				continue
			}
			return nil, nil, fmt.Errorf("rate limit exceeded")
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			m.logger.Error("Unexpected status code", zap.Int("status", resp.StatusCode), zap.String("body", string(body)))
			return nil, nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}
		break
	}
	defer resp.Body.Close()

	var responseBody struct {
		Choices []struct {
			Message completionChoice `json:"message"`
		} `json:"choices"`
		Usage completionUsage `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&responseBody); err != nil {
		return nil, nil, fmt.Errorf("error decoding response: %v", err)
	}
	if len(responseBody.Choices) == 0 {
		return nil, nil, fmt.Errorf("no choices in response")
	}

	return &responseBody.Choices[0].Message, &responseBody.Usage, nil
}

// GetUsage returns token totals accumulated across the whole exchange.
func (m *OpenAIIntegration) GetUsage() (*entities.Usage, error) {
	return m.totalUsage, nil
}

// GetLastUsage returns usage for the most recent completion only.
func (m *OpenAIIntegration) GetLastUsage() (*entities.Usage, error) {
	return m.lastUsage, nil
}

var _ interfaces.LLMIntegration = (*OpenAIIntegration)(nil)
