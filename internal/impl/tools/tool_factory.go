package tools

import (
	"sort"

	"github.com/midagedev/dochi/internal/domain/entities"
	"github.com/midagedev/dochi/internal/domain/errs"
	"github.com/midagedev/dochi/internal/domain/interfaces"

	"go.uber.org/zap"
)

type ToolFactoryEntry struct {
	Name        string
	Description string
	ConfigKeys  []string
	Factory     func(name, description string, configuration map[string]string, logger *zap.Logger) entities.Tool
}

// ToolFactory builds and holds the registered tool set. It doubles as
// the registry the LLM integration resolves tool calls against.
type ToolFactory struct {
	toolFactories map[string]*ToolFactoryEntry
	tools         map[string]entities.Tool
	logger        *zap.Logger
}

func NewToolFactory(logger *zap.Logger) (*ToolFactory, error) {
	toolFactory := &ToolFactory{
		toolFactories: make(map[string]*ToolFactoryEntry),
		tools:         make(map[string]entities.Tool),
		logger:        logger,
	}

	toolFactory.toolFactories["Fetch"] = &ToolFactoryEntry{
		Name:        "Fetch",
		Description: `This tool provides the ability to fetch content from the internet using the HTTP 1.1 protocol.`,
		ConfigKeys:  []string{"user_agent"},
		Factory: func(name, description string, configuration map[string]string, logger *zap.Logger) entities.Tool {
			return NewFetchTool(name, description, configuration, logger)
		},
	}
	toolFactory.toolFactories["Clock"] = &ToolFactoryEntry{
		Name:        "Clock",
		Description: `This tool reports the current date and time in any IANA time zone.`,
		ConfigKeys:  []string{},
		Factory: func(name, description string, configuration map[string]string, logger *zap.Logger) entities.Tool {
			return NewClockTool(name, description, configuration, logger)
		},
	}

	for _, entry := range toolFactory.toolFactories {
		configuration := make(map[string]string, len(entry.ConfigKeys))
		for _, key := range entry.ConfigKeys {
			configuration[key] = ""
		}
		toolFactory.tools[entry.Name] = entry.Factory(entry.Name, entry.Description, configuration, logger)
	}

	return toolFactory, nil
}

func (f *ToolFactory) GetToolByName(name string) (entities.Tool, error) {
	tool, ok := f.tools[name]
	if !ok {
		return nil, errs.NotFoundErrorf("tool not found: %s", name)
	}
	return tool, nil
}

func (f *ToolFactory) ListTools() ([]entities.Tool, error) {
	names := make([]string, 0, len(f.tools))
	for name := range f.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]entities.Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, f.tools[name])
	}
	return tools, nil
}

var _ interfaces.ToolRegistry = (*ToolFactory)(nil)
