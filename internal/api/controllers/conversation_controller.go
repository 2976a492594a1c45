package apicontrollers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/midagedev/dochi/internal/domain/entities"
	"github.com/midagedev/dochi/internal/domain/errs"
	"github.com/midagedev/dochi/internal/domain/services"
	"github.com/midagedev/dochi/internal/impl/export"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ConversationController struct {
	logger        *zap.Logger
	conversations services.ConversationService
	session       services.SessionService
	exports       services.ExportService
}

func NewConversationController(logger *zap.Logger, conversations services.ConversationService, session services.SessionService, exports services.ExportService) *ConversationController {
	return &ConversationController{
		logger:        logger,
		conversations: conversations,
		session:       session,
		exports:       exports,
	}
}

// RegisterRoutes registers all conversation-related routes with Echo
func (c *ConversationController) RegisterRoutes(e *echo.Group) {
	e.GET("/conversations", c.ListConversations)
	e.POST("/conversations", c.CreateConversation)
	e.GET("/conversations/:id", c.GetConversation)
	e.PUT("/conversations/:id", c.RenameConversation)
	e.DELETE("/conversations/:id", c.DeleteConversation)
	e.POST("/conversations/:id/select", c.SelectConversation)
	e.GET("/conversations/:id/export", c.ExportConversation)
	e.POST("/messages", c.SendMessage)
	e.POST("/cancel", c.CancelRequest)
	e.GET("/session/state", c.SessionState)
}

// ConversationSummary is the list view shape.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Source       string    `json:"source"`
	MessageCount int       `json:"message_count"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updated_at"`
	UpdatedHuman string    `json:"updated_human"`
}

func (c *ConversationController) ListConversations(ctx echo.Context) error {
	conversations, err := c.conversations.ListConversations(ctx.Request().Context())
	if err != nil {
		return c.handleError(ctx, err)
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summaries = append(summaries, ConversationSummary{
			ID:           conversation.ID,
			Title:        conversation.DeriveTitle(),
			Source:       string(conversation.Source),
			MessageCount: len(conversation.Messages),
			Active:       conversation.Active,
			UpdatedAt:    conversation.UpdatedAt,
			UpdatedHuman: humanize.Time(conversation.UpdatedAt),
		})
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (c *ConversationController) GetConversation(ctx echo.Context) error {
	id := ctx.Param("id")
	conversation, err := c.conversations.GetConversation(ctx.Request().Context(), id)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, conversation)
}

func (c *ConversationController) CreateConversation(ctx echo.Context) error {
	var input struct {
		Title string `json:"title"`
	}
	if err := ctx.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	conversation, err := c.conversations.CreateConversation(ctx.Request().Context(), input.Title)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, conversation)
}

func (c *ConversationController) RenameConversation(ctx echo.Context) error {
	var input struct {
		Title string `json:"title"`
	}
	if err := ctx.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if err := c.conversations.RenameConversation(ctx.Request().Context(), ctx.Param("id"), input.Title); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (c *ConversationController) DeleteConversation(ctx echo.Context) error {
	if err := c.conversations.DeleteConversation(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (c *ConversationController) SelectConversation(ctx echo.Context) error {
	if err := c.session.SelectConversation(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (c *ConversationController) SendMessage(ctx echo.Context) error {
	var input struct {
		Content string                     `json:"content"`
		Images  []entities.ImageAttachment `json:"images,omitempty"`
	}
	if err := ctx.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	message, err := c.session.SendMessage(ctx.Request().Context(), input.Content, input.Images)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, message)
}

func (c *ConversationController) CancelRequest(ctx echo.Context) error {
	c.session.CancelRequest()
	return ctx.NoContent(http.StatusAccepted)
}

func (c *ConversationController) SessionState(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{
		"state":        string(c.session.State()),
		"partial_text": c.session.PartialText(),
	})
}

func (c *ConversationController) ExportConversation(ctx echo.Context) error {
	format := ctx.QueryParam("format")
	if format == "" {
		format = "md"
	}
	opts := export.Options{
		IncludeSystem:   boolParam(ctx, "include_system"),
		IncludeTool:     boolParam(ctx, "include_tool"),
		IncludeMetadata: boolParam(ctx, "include_metadata"),
	}

	data, filename, err := c.exports.ExportConversation(ctx.Request().Context(), ctx.Param("id"), format, opts)
	if err != nil {
		return c.handleError(ctx, err)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+filename)
	return ctx.Blob(http.StatusOK, contentType(format), data)
}

func boolParam(ctx echo.Context, name string) bool {
	value, err := strconv.ParseBool(ctx.QueryParam(name))
	return err == nil && value
}

func contentType(format string) string {
	switch format {
	case "json":
		return echo.MIMEApplicationJSON
	case "html":
		return echo.MIMETextHTML
	default:
		return "text/markdown"
	}
}

func (c *ConversationController) handleError(ctx echo.Context, err error) error {
	switch err.(type) {
	case *errs.NotFoundError:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case *errs.ValidationError:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case *errs.ReadOnlyError:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case *errs.CanceledError:
		return echo.NewHTTPError(http.StatusRequestTimeout, err.Error())
	default:
		c.logger.Error("Request failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
