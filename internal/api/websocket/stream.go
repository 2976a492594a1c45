package websocket

import (
	"net/http"

	"github.com/midagedev/dochi/internal/domain/events"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Envelope is the frame pushed to stream subscribers.
type Envelope struct {
	Kind           string `json:"kind"`
	ConversationID string `json:"conversation_id"`
	Payload        any    `json:"payload"`
}

// StreamHub fans domain events out to websocket subscribers, scoped by
// conversation id.
type StreamHub struct {
	logger       *zap.Logger
	connections  map[string][]*websocket.Conn
	register     chan registration
	unregister   chan registration
	broadcast    chan Envelope
	done         chan struct{}
	unsubscribes []func()
}

type registration struct {
	ConversationID string
	conn           *websocket.Conn
}

func NewStreamHub(logger *zap.Logger) *StreamHub {
	return &StreamHub{
		logger:      logger,
		connections: make(map[string][]*websocket.Conn),
		register:    make(chan registration),
		unregister:  make(chan registration),
		broadcast:   make(chan Envelope, 64),
		done:        make(chan struct{}),
	}
}

// Start subscribes to the domain event bus and begins the fan-out
// loop. Call Stop to detach.
func (h *StreamHub) Start() {
	h.unsubscribes = append(h.unsubscribes,
		events.SubscribeToMessageHistoryEvents(func(data events.MessageHistoryEventData) {
			h.broadcast <- Envelope{Kind: "messages", ConversationID: data.ConversationID, Payload: data.Messages}
		}),
		events.SubscribeToStreamDeltaEvents(func(data events.StreamDeltaEventData) {
			h.broadcast <- Envelope{Kind: "stream", ConversationID: data.ConversationID, Payload: data}
		}),
		events.SubscribeToStateChangeEvents(func(data events.StateChangeEventData) {
			h.broadcast <- Envelope{Kind: "state", ConversationID: data.ConversationID, Payload: data.State}
		}),
		events.SubscribeToToolCallEvents(func(data events.ToolCallEventData) {
			h.broadcast <- Envelope{Kind: "tool_call", ConversationID: data.Event.ConversationID, Payload: data.Event}
		}),
	)
	go h.run()
}

// Stop detaches the event subscriptions and shuts the fan-out loop
// down. Safe to call more than once.
func (h *StreamHub) Stop() {
	for _, unsubscribe := range h.unsubscribes {
		unsubscribe()
	}
	if h.unsubscribes != nil {
		h.unsubscribes = nil
		close(h.done)
	}
}

func (h *StreamHub) run() {
	for {
		select {
		case <-h.done:
			return
		case reg := <-h.register:
			h.connections[reg.ConversationID] = append(h.connections[reg.ConversationID], reg.conn)
		case unreg := <-h.unregister:
			if conns, ok := h.connections[unreg.ConversationID]; ok {
				for i, conn := range conns {
					if conn == unreg.conn {
						h.connections[unreg.ConversationID] = append(conns[:i], conns[i+1:]...)
						break
					}
				}
				if len(h.connections[unreg.ConversationID]) == 0 {
					delete(h.connections, unreg.ConversationID)
				}
			}
		case envelope := <-h.broadcast:
			for _, conn := range h.connections[envelope.ConversationID] {
				if err := conn.WriteJSON(envelope); err != nil {
					h.logger.Warn("Websocket write failed", zap.Error(err))
					go func(conversationID string, conn *websocket.Conn) {
						h.unregister <- registration{conversationID, conn}
					}(envelope.ConversationID, conn)
				}
			}
		}
	}
}

// HandleConnection upgrades the request and keeps the connection
// registered until the client goes away.
func (h *StreamHub) HandleConnection(ctx echo.Context) error {
	conversationID := ctx.Param("id")
	if conversationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing conversation ID")
	}

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return err
	}

	h.register <- registration{conversationID, conn}

	go func() {
		defer func() {
			h.unregister <- registration{conversationID, conn}
			conn.Close()
		}()
		for {
			// Drain client frames; the stream is one-way.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}
