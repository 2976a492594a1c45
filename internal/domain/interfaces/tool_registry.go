package interfaces

import (
	"github.com/midagedev/dochi/internal/domain/entities"
)

type ToolRegistry interface {
	GetToolByName(name string) (entities.Tool, error)
	ListTools() ([]entities.Tool, error)
}
