package tools

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/midagedev/dochi/internal/domain/entities"

	"go.uber.org/zap"
)

// ClockTool reports the current date and time, optionally in a named
// IANA time zone.
type ClockTool struct {
	name          string
	description   string
	configuration map[string]string
	logger        *zap.Logger
	now           func() time.Time
}

func NewClockTool(name, description string, configuration map[string]string, logger *zap.Logger) *ClockTool {
	return &ClockTool{
		name:          name,
		description:   description,
		configuration: configuration,
		logger:        logger,
		now:           time.Now,
	}
}

func (t *ClockTool) Name() string {
	return t.name
}

func (t *ClockTool) Description() string {
	return t.description
}

func (t *ClockTool) Configuration() map[string]string {
	return t.configuration
}

func (t *ClockTool) UpdateConfiguration(config map[string]string) {
	t.configuration = config
}

func (t *ClockTool) Parameters() []entities.Parameter {
	return []entities.Parameter{
		{
			Name:        "timezone",
			Type:        "string",
			Description: "IANA time zone name (e.g., Asia/Seoul). Defaults to the local zone.",
			Required:    false,
		},
	}
}

func (t *ClockTool) Execute(arguments string) (string, error) {
	var args struct {
		Timezone string `json:"timezone"`
	}
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			t.logger.Error("Failed to parse arguments", zap.Error(err))
			return "", err
		}
	}

	loc := time.Local
	if args.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(args.Timezone)
		if err != nil {
			return "", fmt.Errorf("unknown time zone: %s", args.Timezone)
		}
	}

	return t.now().In(loc).Format("Monday, January 2, 2006 15:04:05 MST"), nil
}

var _ entities.Tool = (*ClockTool)(nil)
