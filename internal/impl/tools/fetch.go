package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/midagedev/dochi/internal/domain/entities"

	"go.uber.org/zap"
)

const defaultUserAgent = "Dochi/1.0 (Assistant; +https://github.com/midagedev/dochi)"

// FetchTool performs HTTP requests on behalf of the assistant.
type FetchTool struct {
	name          string
	description   string
	configuration map[string]string
	logger        *zap.Logger
	client        *http.Client
}

func NewFetchTool(name, description string, configuration map[string]string, logger *zap.Logger) *FetchTool {
	return &FetchTool{
		name:          name,
		description:   description,
		configuration: configuration,
		logger:        logger,
		client:        &http.Client{},
	}
}

func (t *FetchTool) Name() string {
	return t.name
}

func (t *FetchTool) Description() string {
	return t.description
}

func (t *FetchTool) Configuration() map[string]string {
	return t.configuration
}

func (t *FetchTool) UpdateConfiguration(config map[string]string) {
	t.configuration = config
}

func (t *FetchTool) Parameters() []entities.Parameter {
	return []entities.Parameter{
		{
			Name:        "operation",
			Type:        "string",
			Enum:        []string{"GET", "POST", "PUT", "DELETE"},
			Description: "The HTTP operation to perform",
			Required:    true,
		},
		{
			Name:        "url",
			Type:        "string",
			Description: "The URL to fetch. Must include the protocol (e.g., http:// or https://)",
			Required:    true,
		},
		{
			Name:        "headers",
			Type:        "array",
			Items:       []entities.Item{{Type: "string"}},
			Description: "Array of headers in the format 'key:value' to include in the request",
			Required:    false,
		},
		{
			Name:        "body",
			Type:        "string",
			Description: "The BODY of the request",
			Required:    false,
		},
	}
}

func (t *FetchTool) Execute(arguments string) (string, error) {
	t.logger.Debug("Executing fetch operation", zap.String("arguments", arguments))

	var args struct {
		Operation string   `json:"operation"`
		Url       string   `json:"url"`
		Headers   []string `json:"headers"`
		Body      string   `json:"body"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		t.logger.Error("Failed to parse arguments", zap.Error(err))
		return "", err
	}

	if args.Operation == "" || args.Url == "" {
		return "", fmt.Errorf("operation and url are required")
	}

	var bodyReader io.Reader
	switch args.Operation {
	case "GET", "DELETE":
	case "POST", "PUT":
		bodyReader = bytes.NewBufferString(args.Body)
	default:
		return "", fmt.Errorf("unsupported operation: %s", args.Operation)
	}

	req, err := http.NewRequest(args.Operation, args.Url, bodyReader)
	if err != nil {
		return "", err
	}
	return t.doRequest(req, args.Headers)
}

func (t *FetchTool) doRequest(req *http.Request, headers []string) (string, error) {
	userAgent := t.configuration["user_agent"]
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 {
			continue
		}
		req.Header.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Status: %s\n\n%s", resp.Status, string(body)), nil
}

var _ entities.Tool = (*FetchTool)(nil)
